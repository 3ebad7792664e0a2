package config

import (
	"io/ioutil"
	"strings"

	"github.com/teddymalhan/layer2-virtual-switch/libol"
	"gopkg.in/yaml.v2"
)

type Log struct {
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
	Verbose int    `json:"level,omitempty" yaml:"level,omitempty"`
}

type Http struct {
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`
	Token  string `json:"token,omitempty" yaml:"token,omitempty"`
}

type Interface struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Mtu      int    `json:"mtu" yaml:"mtu"`
}

// Load fills v from a JSON (comment tolerant) or YAML file, chosen by the
// file extension.
func Load(v interface{}, file string) error {
	if file == "" {
		return nil
	}
	if strings.HasSuffix(file, ".yaml") || strings.HasSuffix(file, ".yml") {
		contents, err := ioutil.ReadFile(file)
		if err != nil {
			return libol.NewErr("config.Load: %s %s", file, err)
		}
		if err := yaml.Unmarshal(contents, v); err != nil {
			return libol.NewErr("config.Load: %s", err)
		}
		return nil
	}
	return libol.UnmarshalLoad(v, file)
}
