package network

import (
	"fmt"
	"sync"

	"github.com/teddymalhan/layer2-virtual-switch/libol"
)

const (
	ProviderKernel  = "kernel"
	ProviderVirtual = "virtual"
)

var (
	ErrTapClosed       = libol.NewErr("device closed")
	ErrTapPartialWrite = libol.NewErr("partial write")
)

type TapConfig struct {
	Provider string
	Name     string
	Mtu      int
	VirtBuf  int
}

// Taper moves whole Ethernet frames: one successful read is one frame,
// one write is one frame.
type Taper interface {
	Type() string
	Name() string
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Close() error
	Up()
	Mtu() int
	SetMtu(mtu int)
	String() string
}

func NewTaper(c TapConfig) (Taper, error) {
	if c.Provider == ProviderVirtual {
		return NewVirtualTap(c)
	}
	return NewKernelTap(c)
}

type tapers struct {
	lock    sync.RWMutex
	index   int
	devices map[string]Taper
}

func (t *tapers) GenName() string {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.index++
	return fmt.Sprintf("vir%d", t.index)
}

func (t *tapers) Add(tap Taper) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.devices == nil {
		t.devices = make(map[string]Taper, 1024)
	}
	t.devices[tap.Name()] = tap
}

func (t *tapers) Get(name string) Taper {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.devices[name]
}

func (t *tapers) Del(name string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	delete(t.devices, name)
}

var Taps = &tapers{}
