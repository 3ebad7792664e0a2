package network

import (
	"sync"

	"github.com/teddymalhan/layer2-virtual-switch/libol"
)

// VirtualTap is a channel backed Taper. The frame side (Read/Write) is
// what an engine drives; the host side (InWrite/OutRead) is what a test
// or a userspace bridge drives.
type VirtualTap struct {
	lock   sync.Mutex
	name   string
	ifMtu  int
	inQ    chan []byte
	outQ   chan []byte
	done   chan struct{}
	closed bool
}

func NewVirtualTap(c TapConfig) (*VirtualTap, error) {
	name := c.Name
	if name == "" {
		name = Taps.GenName()
	}
	mtu := c.Mtu
	if mtu == 0 {
		mtu = libol.EthMaxLen
	}
	size := c.VirtBuf
	if size == 0 {
		size = 1024
	}
	tap := &VirtualTap{
		name:  name,
		ifMtu: mtu,
		inQ:   make(chan []byte, size),
		outQ:  make(chan []byte, size),
		done:  make(chan struct{}),
	}
	Taps.Add(tap)
	return tap, nil
}

func (t *VirtualTap) Type() string {
	return ProviderVirtual
}

func (t *VirtualTap) Name() string {
	return t.name
}

func (t *VirtualTap) isClosed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *VirtualTap) Read(p []byte) (int, error) {
	if t.isClosed() {
		return 0, ErrTapClosed
	}
	select {
	case <-t.done:
		return 0, ErrTapClosed
	case data := <-t.inQ:
		return copy(p, data), nil
	}
}

func (t *VirtualTap) Write(p []byte) (int, error) {
	if t.isClosed() {
		return 0, ErrTapClosed
	}
	data := make([]byte, len(p))
	copy(data, p)
	select {
	case t.outQ <- data:
		return len(p), nil
	default:
		libol.Warn("VirtualTap.Write: %s buffer full", t.name)
		return len(p), nil
	}
}

func (t *VirtualTap) ReadFrame() ([]byte, error) {
	data := make([]byte, t.ifMtu)
	n, err := t.Read(data)
	if err != nil {
		return nil, err
	}
	return data[:n], nil
}

func (t *VirtualTap) WriteFrame(data []byte) error {
	n, err := t.Write(data)
	if err != nil {
		return err
	}
	if n < len(data) {
		return ErrTapPartialWrite
	}
	return nil
}

// InWrite injects one frame for the next ReadFrame.
func (t *VirtualTap) InWrite(data []byte) error {
	if t.isClosed() {
		return ErrTapClosed
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	select {
	case <-t.done:
		return ErrTapClosed
	case t.inQ <- frame:
		return nil
	}
}

// OutRead takes one frame the engine wrote, blocking until one arrives
// or the device closes.
func (t *VirtualTap) OutRead() ([]byte, error) {
	select {
	case <-t.done:
		return nil, ErrTapClosed
	case data := <-t.outQ:
		return data, nil
	}
}

func (t *VirtualTap) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		return nil
	}
	libol.Debug("VirtualTap.Close %s", t.name)
	t.closed = true
	close(t.done)
	Taps.Del(t.name)
	return nil
}

func (t *VirtualTap) Up() {
}

func (t *VirtualTap) Mtu() int {
	return t.ifMtu
}

func (t *VirtualTap) SetMtu(mtu int) {
	t.ifMtu = mtu
}

func (t *VirtualTap) String() string {
	return t.name
}
