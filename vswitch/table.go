package vswitch

import (
	"sync"

	"github.com/teddymalhan/layer2-virtual-switch/libol"
)

// MacTable maps a learned source address to the UDP endpoint that last
// sent a frame carrying it. Readers share the lock; writers exclude.
type MacTable struct {
	lock    sync.RWMutex
	entries map[libol.Mac]libol.Endpoint
}

func NewMacTable() *MacTable {
	return &MacTable{
		entries: make(map[libol.Mac]libol.Endpoint, 1024),
	}
}

// Add binds mac to ep, replacing any previous binding so a device that
// moved endpoints is relearned from its next frame. Returns true only
// for a fresh key. Invalid endpoints are never stored.
func (t *MacTable) Add(mac libol.Mac, ep libol.Endpoint) bool {
	if !ep.Valid() {
		return false
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	_, ok := t.entries[mac]
	t.entries[mac] = ep
	return !ok
}

func (t *MacTable) Lookup(mac libol.Mac) (libol.Endpoint, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	ep, ok := t.entries[mac]
	return ep, ok
}

func (t *MacTable) Has(mac libol.Mac) bool {
	t.lock.RLock()
	defer t.lock.RUnlock()
	_, ok := t.entries[mac]
	return ok
}

func (t *MacTable) Del(mac libol.Mac) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	if _, ok := t.entries[mac]; !ok {
		return false
	}
	delete(t.entries, mac)
	return true
}

// Endpoints lists every bound endpoint in no particular order.
func (t *MacTable) Endpoints() []libol.Endpoint {
	t.lock.RLock()
	defer t.lock.RUnlock()
	eps := make([]libol.Endpoint, 0, len(t.entries))
	for _, ep := range t.entries {
		eps = append(eps, ep)
	}
	return eps
}

// EndpointsExcept lists every endpoint but the one keyed by mac. Keyed by
// address, not sender endpoint, so a flood from a not yet learned device
// still reaches every learned endpoint.
func (t *MacTable) EndpointsExcept(mac libol.Mac) []libol.Endpoint {
	t.lock.RLock()
	defer t.lock.RUnlock()
	eps := make([]libol.Endpoint, 0, len(t.entries))
	for key, ep := range t.entries {
		if key == mac {
			continue
		}
		eps = append(eps, ep)
	}
	return eps
}

func (t *MacTable) Macs() []libol.Mac {
	t.lock.RLock()
	defer t.lock.RUnlock()
	macs := make([]libol.Mac, 0, len(t.entries))
	for key := range t.entries {
		macs = append(macs, key)
	}
	return macs
}

func (t *MacTable) Len() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return len(t.entries)
}

func (t *MacTable) IsEmpty() bool {
	return t.Len() == 0
}

func (t *MacTable) Clear() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.entries = make(map[libol.Mac]libol.Endpoint, 1024)
}

// Snapshot copies the table, never a live reference, to keep the locking
// discipline inside this type.
func (t *MacTable) Snapshot() map[libol.Mac]libol.Endpoint {
	t.lock.RLock()
	defer t.lock.RUnlock()
	entries := make(map[libol.Mac]libol.Endpoint, len(t.entries))
	for key, ep := range t.entries {
		entries[key] = ep
	}
	return entries
}
