package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/flowlens/flowlens/internal/cli"
	"github.com/flowlens/flowlens/internal/config"
)

const quickStart = `flowlensd - tracing backend for the FlowLens code explorer

Quick start:
  flowlensd serve --repo /path/to/target-repo    Run the backend
  flowlensd flows --repo /path/to/target-repo    List changed functions
  flowlensd step -e "pkg/mod.py::fn" -n 10       One-shot tracing step

For help:
  flowlensd --help
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Apply config defaults before parsing; CLI flags override them.
	vars := kong.Vars{
		"config_listen": cfg.Listen,
	}

	ctx := kong.Parse(&c,
		kong.Name("flowlensd"),
		kong.Description("FlowLens backend: step through a changed function's execution and stream its state events"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	// An explicit config file wins over the search path.
	if c.Globals.Config != "" {
		fileCfg, err := config.LoadFromFile(c.Globals.Config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load config %s: %v\n", c.Globals.Config, err)
			os.Exit(1)
		}
		cfg = fileCfg
	}

	globals := cli.NewGlobals(&c, cfg)
	defer globals.Log.Sync()

	if err := ctx.Run(globals); err != nil {
		globals.Log.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
