package config

import "github.com/teddymalhan/layer2-virtual-switch/libol"

type Switch struct {
	Listen   string `json:"listen,omitempty" yaml:"listen,omitempty"`
	Port     uint16 `json:"port" yaml:"port"`
	Log      Log    `json:"log" yaml:"log"`
	Http     *Http  `json:"http,omitempty" yaml:"http,omitempty"`
	SaveFile string `json:"-" yaml:"-"`
}

var sd = Switch{
	Listen: "0.0.0.0",
	Log: Log{
		Verbose: libol.INFO,
	},
}

func NewSwitch() *Switch {
	return &Switch{}
}

func (c *Switch) Load() error {
	return Load(c, c.SaveFile)
}

func (c *Switch) Default() {
	if c.Listen == "" {
		c.Listen = sd.Listen
	}
	if c.Log.Verbose == 0 {
		c.Log.Verbose = sd.Log.Verbose
	}
}
