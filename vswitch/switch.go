package vswitch

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teddymalhan/layer2-virtual-switch/config"
	"github.com/teddymalhan/layer2-virtual-switch/libol"
)

var (
	ErrAlreadyRunning = libol.NewErr("already running")
	ErrNotRunning     = libol.NewErr("not running")
)

// readTimeout is the wake interval of the receive loop, so a Stop is
// observed without forcing the socket closed.
const readTimeout = 200 * time.Millisecond

// VSwitch is the canonical learning switch on a single UDP socket: learn
// the source, forward by destination, flood broadcast, drop unknown.
type VSwitch struct {
	lock      sync.Mutex
	socket    *libol.UdpSocket
	table     *MacTable
	http      *Http
	cfg       *config.Switch
	status    int32
	done      chan struct{}
	newTime   int64
	startTime int64
	record    *libol.SafeStrInt64
	out       *libol.SubLogger
}

func NewVSwitch(c *config.Switch) (*VSwitch, error) {
	socket := libol.NewUdpSocket()
	if err := socket.Bind(c.Listen, c.Port); err != nil {
		return nil, err
	}
	socket.SetTimeout(readTimeout)
	v := &VSwitch{
		socket:  socket,
		table:   NewMacTable(),
		cfg:     c,
		newTime: time.Now().Unix(),
		record:  libol.NewSafeStrInt64(),
		out:     libol.NewSubLogger(socket.Local().String()),
	}
	if c.Http != nil && c.Http.Listen != "" {
		v.http = NewHttp(v, c.Http)
	}
	return v, nil
}

// Start blocks in the receive loop until Stop is observed.
func (v *VSwitch) Start() error {
	if !atomic.CompareAndSwapInt32(&v.status, 0, 1) {
		return ErrAlreadyRunning
	}
	v.lock.Lock()
	v.done = make(chan struct{})
	v.startTime = time.Now().Unix()
	done := v.done
	http := v.http
	v.lock.Unlock()
	if http != nil {
		libol.Go(http.Start)
	}
	v.out.Info("VSwitch.Start: ready on udp://%s", v.socket.Local())
	defer close(done)
	for v.IsRunning() {
		data, from, err := v.socket.RecvFrom(libol.UdpMaxLen)
		if err != nil {
			if libol.IsTimeout(err) {
				continue
			}
			if !v.IsRunning() {
				break
			}
			v.out.Warn("VSwitch.Start: recv %s", err)
			continue
		}
		v.process(data, from)
	}
	v.out.Info("VSwitch.Start: exited")
	return nil
}

// process runs the per frame algorithm: decode, learn, dispatch. A frame
// shorter than one header decodes to the zero frame and is learned under the
// zero address; its zero destination then matches that binding, so it is
// echoed back to its sender. The path stays total either way.
func (v *VSwitch) process(data []byte, from libol.Endpoint) {
	frame := libol.DecodeFrame(data)
	v.record.Add("recv", 1)
	v.record.Add("recvBytes", int64(len(data)))
	if v.out.Has(libol.DEBUG) {
		v.out.Debug("VSwitch.process: %s from %s size=%d", frame, from, len(data))
	}
	if v.table.Add(frame.Src, from) {
		v.record.Add("learned", 1)
		v.out.Event("VSwitch.process: learn %s on %s", frame.Src, from)
	}
	if ep, ok := v.table.Lookup(frame.Dst); ok {
		// Unicast. A destination equal to the sender's own learned
		// address is echoed back, the lookup wins over any filter.
		if _, err := v.socket.SendTo(data, ep); err != nil {
			v.record.Add("sendErr", 1)
			v.out.Warn("VSwitch.process: send %s %s", ep, err)
			return
		}
		v.record.Add("send", 1)
		v.record.Add("sendBytes", int64(len(data)))
		if v.out.Has(libol.DEBUG) {
			v.out.Debug("VSwitch.process: forwarded to %s", frame.Dst)
		}
	} else if frame.Dst.IsBroadcast() {
		sent := 0
		for _, ep := range v.table.EndpointsExcept(frame.Src) {
			if _, err := v.socket.SendTo(data, ep); err != nil {
				v.record.Add("sendErr", 1)
				v.out.Warn("VSwitch.process: flood %s %s", ep, err)
				continue
			}
			sent++
			v.record.Add("sendBytes", int64(len(data)))
		}
		v.record.Add("broadcast", 1)
		v.record.Add("send", int64(sent))
		if v.out.Has(libol.DEBUG) {
			v.out.Debug("VSwitch.process: broadcasted to %d endpoints", sent)
		}
	} else {
		v.record.Add("drop", 1)
		if v.out.Has(libol.DEBUG) {
			v.out.Debug("VSwitch.process: discarded, unknown %s", frame.Dst)
		}
	}
}

// Stop signals the loop; the pending receive returns on its next deadline
// wake. Safe to call more than once.
func (v *VSwitch) Stop() error {
	if !atomic.CompareAndSwapInt32(&v.status, 1, 0) {
		return ErrNotRunning
	}
	v.out.Info("VSwitch.Stop: learned %d", v.table.Len())
	v.lock.Lock()
	http := v.http
	v.lock.Unlock()
	if http != nil {
		http.Shutdown()
	}
	return nil
}

// Close stops a running loop, waits for it to exit and drops the socket
// last.
func (v *VSwitch) Close() {
	_ = v.Stop()
	v.lock.Lock()
	done := v.done
	v.lock.Unlock()
	if done != nil {
		<-done
	}
	_ = v.socket.Close()
}

func (v *VSwitch) IsRunning() bool {
	return atomic.LoadInt32(&v.status) == 1
}

func (v *VSwitch) Port() uint16 {
	return v.cfg.Port
}

func (v *VSwitch) Addr() string {
	return v.socket.LocalAddr()
}

// LearnedMacs lists the table keys in address order.
func (v *VSwitch) LearnedMacs() []libol.Mac {
	macs := v.table.Macs()
	sort.Slice(macs, func(i, j int) bool {
		return macs[i].Compare(macs[j]) < 0
	})
	return macs
}

func (v *VSwitch) Table() *MacTable {
	return v.table
}

func (v *VSwitch) SnapshotTable() map[libol.Mac]libol.Endpoint {
	return v.table.Snapshot()
}

func (v *VSwitch) UpTime() int64 {
	if !v.IsRunning() {
		return 0
	}
	return time.Now().Unix() - v.startTime
}

func (v *VSwitch) Record() map[string]int64 {
	return v.record.Data()
}

func (v *VSwitch) Config() *config.Switch {
	return v.cfg
}
