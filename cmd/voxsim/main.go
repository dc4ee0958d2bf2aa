package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/voxelphys/internal/config"
	"github.com/zeusync/voxelphys/internal/core/observability/log"
	"github.com/zeusync/voxelphys/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML scene and simulation config")
	ticks := flag.Int("ticks", -1, "override simulation.ticks (0 runs until interrupted)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "Error loading config:", err)
			os.Exit(1)
		}
	}
	if *ticks >= 0 {
		cfg.Simulation.Ticks = *ticks
	}

	app, err := injector.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing:", err)
		os.Exit(1)
	}
	defer func() { _ = app.Logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = app.Run(ctx); err != nil {
		app.Logger.Error("Simulation failed", log.Error(err))
		stop()
		os.Exit(1)
	}
}
