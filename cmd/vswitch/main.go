package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/teddymalhan/layer2-virtual-switch/config"
	"github.com/teddymalhan/layer2-virtual-switch/libol"
	"github.com/teddymalhan/layer2-virtual-switch/vswitch"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Usage:     "Layer-2 learning switch over UDP",
		ArgsUsage: "<port>",
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
				Name:  "http",
				Usage: "http listen on, empty to disable",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "http admin token",
			},
		},
		Action: runSwitch,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSwitch(c *cli.Context) error {
	cfg := config.NewSwitch()
	cfg.SaveFile = c.String("conf")
	if err := cfg.Load(); err != nil {
		libol.Warn("runSwitch.load %s", err)
	}
	if c.NArg() > 0 {
		port, err := strconv.ParseUint(c.Args().Get(0), 10, 16)
		if err != nil {
			return libol.NewErr("invalid port: %s", c.Args().Get(0))
		}
		cfg.Port = uint16(port)
	} else if cfg.SaveFile == "" {
		return libol.NewErr("usage: vswitch <port>")
	}
	if listen := c.String("http"); listen != "" {
		cfg.Http = &config.Http{
			Listen: listen,
			Token:  c.String("token"),
		}
	}
	if file := c.String("log:file"); file != "" {
		cfg.Log.File = file
	}
	if c.IsSet("log:level") || cfg.Log.Verbose == 0 {
		cfg.Log.Verbose = c.Int("log:level")
	}
	cfg.Default()
	libol.Init(cfg.Log.File, cfg.Log.Verbose)

	vs, err := vswitch.NewVSwitch(cfg)
	if err != nil {
		return libol.NewErr("%s (is the port already in use?)", err)
	}
	libol.PreNotify()
	libol.Go(func() {
		_ = vs.Start()
	})
	libol.SdNotify()
	libol.Wait()
	vs.Close()
	return nil
}
