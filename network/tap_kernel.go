package network

import (
	"sync"

	"github.com/songgao/water"
	"github.com/teddymalhan/layer2-virtual-switch/libol"
)

type KernelTap struct {
	lock   sync.Mutex
	device *water.Interface
	name   string
	config TapConfig
	ifMtu  int
}

func NewKernelTap(c TapConfig) (*KernelTap, error) {
	cfg := water.Config{DeviceType: water.TAP}
	cfg.Name = c.Name
	device, err := water.New(cfg)
	if err != nil {
		return nil, err
	}
	mtu := c.Mtu
	if mtu == 0 {
		mtu = libol.EthMaxLen
	}
	tap := &KernelTap{
		device: device,
		name:   device.Name(),
		config: c,
		ifMtu:  mtu,
	}
	Taps.Add(tap)
	return tap, nil
}

func (t *KernelTap) Type() string {
	return ProviderKernel
}

func (t *KernelTap) Name() string {
	return t.name
}

func (t *KernelTap) Read(p []byte) (int, error) {
	t.lock.Lock()
	if t.device == nil {
		t.lock.Unlock()
		return 0, ErrTapClosed
	}
	device := t.device
	t.lock.Unlock()
	return device.Read(p)
}

func (t *KernelTap) Write(p []byte) (int, error) {
	t.lock.Lock()
	if t.device == nil {
		t.lock.Unlock()
		return 0, ErrTapClosed
	}
	device := t.device
	t.lock.Unlock()
	return device.Write(p)
}

// ReadFrame blocks for exactly one frame. The kernel delivers whole
// frames on a tap without packet information, so no resume loop.
func (t *KernelTap) ReadFrame() ([]byte, error) {
	data := make([]byte, t.ifMtu)
	n, err := t.Read(data)
	if err != nil {
		return nil, err
	}
	return data[:n], nil
}

func (t *KernelTap) WriteFrame(data []byte) error {
	n, err := t.Write(data)
	if err != nil {
		return err
	}
	if n < len(data) {
		return ErrTapPartialWrite
	}
	return nil
}

func (t *KernelTap) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	libol.Debug("KernelTap.Close %s", t.name)
	if t.device == nil {
		return nil
	}
	Taps.Del(t.name)
	err := t.device.Close()
	t.device = nil
	return err
}

func (t *KernelTap) Up() {
	t.lock.Lock()
	defer t.lock.Unlock()
	libol.Debug("KernelTap.Up %s", t.name)
	if err := libol.IpLinkUp(t.name); err != nil {
		libol.Warn("KernelTap.Up: %s %s", t.name, err)
	}
	if err := libol.IpLinkMtu(t.name, t.ifMtu); err != nil {
		libol.Warn("KernelTap.Up: mtu %s %s", t.name, err)
	}
}

func (t *KernelTap) Mtu() int {
	return t.ifMtu
}

func (t *KernelTap) SetMtu(mtu int) {
	t.ifMtu = mtu
}

func (t *KernelTap) String() string {
	return t.name
}
