package point

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/teddymalhan/layer2-virtual-switch/config"
	"github.com/teddymalhan/layer2-virtual-switch/libol"
	"github.com/teddymalhan/layer2-virtual-switch/network"
)

var (
	ErrAlreadyRunning  = libol.NewErr("already running")
	ErrNotRunning      = libol.NewErr("not running")
	ErrInvalidEndpoint = libol.NewErr("invalid switch endpoint")
)

// Point bridges one tap device to one switch over UDP, one worker per
// direction. The workers share nothing but the running flag; the tap and
// the socket are each read by one worker and written by the other, which
// the kernel serializes.
type Point struct {
	lock      sync.Mutex
	cfg       *config.Point
	tap       network.Taper
	socket    *libol.UdpSocket
	remote    libol.Endpoint
	status    int32
	workers   sync.WaitGroup
	devName   string
	newTime   int64
	startTime int64
	record    *libol.SafeStrInt64
	out       *libol.SubLogger
}

func NewPoint(c *config.Point) (*Point, error) {
	remote := c.Endpoint()
	if !remote.Valid() {
		return nil, ErrInvalidEndpoint
	}
	p := &Point{
		cfg:     c,
		remote:  remote,
		newTime: time.Now().Unix(),
		record:  libol.NewSafeStrInt64(),
		out:     libol.NewSubLogger(remote.String()),
	}
	if err := p.open(); err != nil {
		return nil, err
	}
	p.out.Info("NewPoint: device %s to udp://%s", p.devName, remote)
	return p, nil
}

// open acquires the tap and the socket. After a Stop both are closed and
// reacquired here, reusing the assigned device name as the hint.
func (p *Point) open() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.tap == nil {
		name := p.devName
		if name == "" {
			name = p.cfg.Interface.Name
		}
		tap, err := network.NewTaper(network.TapConfig{
			Provider: p.cfg.Interface.Provider,
			Name:     name,
			Mtu:      p.cfg.Interface.Mtu,
		})
		if err != nil {
			return err
		}
		tap.Up()
		p.tap = tap
		p.devName = tap.Name()
	}
	if p.socket == nil {
		p.socket = libol.NewUdpSocket()
	}
	return nil
}

// Start spawns the two forwarders and returns.
func (p *Point) Start() error {
	if !atomic.CompareAndSwapInt32(&p.status, 0, 1) {
		return ErrAlreadyRunning
	}
	if err := p.open(); err != nil {
		atomic.StoreInt32(&p.status, 0)
		return err
	}
	p.lock.Lock()
	p.startTime = time.Now().Unix()
	p.lock.Unlock()
	p.workers.Add(2)
	libol.Go(p.tapToSwitch)
	libol.Go(p.switchToTap)
	p.out.Info("Point.Start: forwarders up")
	return nil
}

// Stop closes the tap and the socket so blocked reads return, then joins
// both workers. Safe to call more than once; a later Start reopens.
func (p *Point) Stop() error {
	if !atomic.CompareAndSwapInt32(&p.status, 1, 0) {
		return ErrNotRunning
	}
	p.out.Info("Point.Stop: ...")
	p.lock.Lock()
	tap := p.tap
	socket := p.socket
	p.tap = nil
	p.socket = nil
	p.lock.Unlock()
	if tap != nil {
		_ = tap.Close()
	}
	if socket != nil {
		_ = socket.Close()
	}
	p.workers.Wait()
	p.out.Info("Point.Stop: done")
	return nil
}

func (p *Point) resources() (network.Taper, *libol.UdpSocket) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.tap, p.socket
}

// tapToSwitch moves frames from the tap into single datagrams to the
// switch. One bad frame never ends the bridge.
func (p *Point) tapToSwitch() {
	defer p.workers.Done()
	p.out.Info("Point.tapToSwitch: started")
	for p.IsRunning() {
		tap, socket := p.resources()
		if tap == nil || socket == nil {
			break
		}
		data, err := tap.ReadFrame()
		if err != nil {
			if !p.IsRunning() {
				break
			}
			p.record.Add("readErr", 1)
			p.out.Warn("Point.tapToSwitch: read %s", err)
			continue
		}
		if _, err := socket.SendTo(data, p.remote); err != nil {
			if !p.IsRunning() {
				break
			}
			p.record.Add("sendErr", 1)
			p.out.Warn("Point.tapToSwitch: send %s", err)
			continue
		}
		p.record.Add("send", 1)
		p.record.Add("sendBytes", int64(len(data)))
		if p.out.Has(libol.DEBUG) {
			p.out.Debug("Point.tapToSwitch: %s size=%d", libol.DecodeFrame(data), len(data))
		}
	}
	p.out.Info("Point.tapToSwitch: exited")
}

// switchToTap moves datagrams from the switch onto the tap. The sender
// endpoint is not checked, the point trusts its configured switch.
func (p *Point) switchToTap() {
	defer p.workers.Done()
	p.out.Info("Point.switchToTap: started")
	for p.IsRunning() {
		tap, socket := p.resources()
		if tap == nil || socket == nil {
			break
		}
		data, _, err := socket.RecvFrom(p.cfg.Interface.Mtu)
		if err != nil {
			if !p.IsRunning() {
				break
			}
			p.record.Add("recvErr", 1)
			p.out.Warn("Point.switchToTap: recv %s", err)
			continue
		}
		if err := tap.WriteFrame(data); err != nil {
			if !p.IsRunning() {
				break
			}
			p.record.Add("writeErr", 1)
			p.out.Warn("Point.switchToTap: write %s", err)
			continue
		}
		p.record.Add("recv", 1)
		p.record.Add("recvBytes", int64(len(data)))
		if p.out.Has(libol.DEBUG) {
			p.out.Debug("Point.switchToTap: %s size=%d", libol.DecodeFrame(data), len(data))
		}
	}
	p.out.Info("Point.switchToTap: exited")
}

func (p *Point) IsRunning() bool {
	return atomic.LoadInt32(&p.status) == 1
}

func (p *Point) DeviceName() string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.devName
}

// Tap exposes the device so a virtual provider can be driven in tests.
func (p *Point) Tap() network.Taper {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.tap
}

func (p *Point) SwitchEndpoint() libol.Endpoint {
	return p.remote
}

func (p *Point) UpTime() int64 {
	if !p.IsRunning() {
		return 0
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	return time.Now().Unix() - p.startTime
}

func (p *Point) Record() map[string]int64 {
	return p.record.Data()
}
