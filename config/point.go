package config

import (
	"github.com/teddymalhan/layer2-virtual-switch/libol"
)

type Point struct {
	Connection string    `json:"connection" yaml:"connection"`
	Port       uint16    `json:"port" yaml:"port"`
	Interface  Interface `json:"interface" yaml:"interface"`
	Log        Log       `json:"log" yaml:"log"`
	SaveFile   string    `json:"-" yaml:"-"`
}

var pd = Point{
	Interface: Interface{
		Mtu:      libol.EthMaxLen,
		Provider: "kernel",
	},
	Log: Log{
		Verbose: libol.INFO,
	},
}

func NewPoint() *Point {
	return &Point{}
}

func (c *Point) Load() error {
	return Load(c, c.SaveFile)
}

func (c *Point) Default() {
	if c.Interface.Mtu == 0 {
		c.Interface.Mtu = pd.Interface.Mtu
	}
	if c.Interface.Provider == "" {
		c.Interface.Provider = pd.Interface.Provider
	}
	if c.Log.Verbose == 0 {
		c.Log.Verbose = pd.Log.Verbose
	}
}

// Endpoint is the switch endpoint all outbound datagrams go to.
func (c *Point) Endpoint() libol.Endpoint {
	return libol.NewEndpoint(c.Connection, c.Port)
}
