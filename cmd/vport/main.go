package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/teddymalhan/layer2-virtual-switch/config"
	"github.com/teddymalhan/layer2-virtual-switch/libol"
	"github.com/teddymalhan/layer2-virtual-switch/network"
	"github.com/teddymalhan/layer2-virtual-switch/point"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Usage:     "Edge agent bridging a tap device to the switch",
		ArgsUsage: "<switch_ip> <switch_port> [tap_name]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "conf",
				Usage: "the configuration file",
			},
			&cli.StringFlag{
				Name:  "log:file",
				Usage: "log saved to file",
			},
			&cli.IntFlag{
				Name:  "log:level",
				Usage: "log level",
				Value: libol.INFO,
			},
			&cli.StringFlag{
				Name:  "if:provider",
				Usage: "interface provider: kernel or virtual",
				Value: network.ProviderKernel,
			},
			&cli.IntFlag{
				Name:  "if:mtu",
				Usage: "interface mtu",
				Value: libol.EthMaxLen,
			},
		},
		Action: runPoint,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runPoint(c *cli.Context) error {
	cfg := config.NewPoint()
	cfg.SaveFile = c.String("conf")
	if err := cfg.Load(); err != nil {
		libol.Warn("runPoint.load %s", err)
	}
	if c.NArg() >= 2 {
		port, err := strconv.ParseUint(c.Args().Get(1), 10, 16)
		if err != nil || port == 0 {
			return libol.NewErr("invalid switch port: %s", c.Args().Get(1))
		}
		cfg.Connection = c.Args().Get(0)
		cfg.Port = uint16(port)
		if c.NArg() > 2 {
			cfg.Interface.Name = c.Args().Get(2)
		}
	} else if cfg.SaveFile == "" {
		return libol.NewErr("usage: vport <switch_ip> <switch_port> [tap_name]")
	}
	if c.IsSet("if:provider") || cfg.Interface.Provider == "" {
		cfg.Interface.Provider = c.String("if:provider")
	}
	if c.IsSet("if:mtu") || cfg.Interface.Mtu == 0 {
		cfg.Interface.Mtu = c.Int("if:mtu")
	}
	if file := c.String("log:file"); file != "" {
		cfg.Log.File = file
	}
	if c.IsSet("log:level") || cfg.Log.Verbose == 0 {
		cfg.Log.Verbose = c.Int("log:level")
	}
	cfg.Default()
	libol.Init(cfg.Log.File, cfg.Log.Verbose)

	p, err := point.NewPoint(cfg)
	if err != nil {
		return err
	}
	libol.PreNotify()
	if err := p.Start(); err != nil {
		return err
	}
	libol.SdNotify()
	libol.Wait()
	_ = p.Stop()
	return nil
}
