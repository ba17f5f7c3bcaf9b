// Copyright 2026 The Apolo Authors
// SPDX-License-Identifier: Apache-2.0

// Command apolo runs the space-mission telemetry simulator.
//
// Two subcommands cover the simulation lifecycle:
//
//	apolo proyecto    generate telemetry epochs until interrupted
//	apolo reporte     aggregate reports, then archive the folders
//
// Both read the same configuration file (JSONC, or YAML by
// extension). The proyecto loop stops cleanly on SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/apolo-mission/apolo/lib/archive"
	"github.com/apolo-mission/apolo/lib/clock"
	"github.com/apolo-mission/apolo/lib/config"
	"github.com/apolo-mission/apolo/lib/generator"
	"github.com/apolo-mission/apolo/lib/report"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.String("config", "config.json",
		"path to the simulator configuration file")
	reportsRoot := pflag.String("reports", "reports",
		"directory statistics reports are written to")
	backupsRoot := pflag.String("backups", "backups",
		"directory reported telemetry folders are archived to")
	seed := pflag.Uint64("seed", 0,
		"random seed for reproducible runs (0 seeds from entropy)")
	verbose := pflag.Bool("verbose", false,
		"log at debug level")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: apolo [flags] <proyecto|reporte>\n\nflags:\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		return fmt.Errorf("expected exactly one command, got %d", pflag.NArg())
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger.Info("configuration loaded", "path", *configPath)

	switch command := pflag.Arg(0); command {
	case "proyecto":
		return runProyecto(cfg, *seed, logger)
	case "reporte":
		return runReporte(cfg, *reportsRoot, *backupsRoot, logger)
	default:
		pflag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// runProyecto drives the generation loop until the process receives
// SIGINT or SIGTERM.
func runProyecto(cfg *config.Config, seed uint64, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rng := newRand(seed)
	logger.Info("starting simulation",
		"output_path", cfg.OutputPath,
		"missions", len(cfg.Missions),
		"time_sleep", cfg.TimeSleep)

	return generator.New(cfg, clock.Real(), rng, logger).Run(ctx)
}

// runReporte generates a report per epoch folder, then archives the
// folders. The reports and backups directories are created up front
// so a run over an empty tree still leaves both in place.
func runReporte(cfg *config.Config, reportsRoot, backupsRoot string, logger *slog.Logger) error {
	if err := os.MkdirAll(reportsRoot, 0o755); err != nil {
		return fmt.Errorf("creating reports directory: %w", err)
	}
	if err := os.MkdirAll(backupsRoot, 0o755); err != nil {
		return fmt.Errorf("creating backups directory: %w", err)
	}

	if err := report.New(clock.Real(), logger).GenerateReports(cfg.OutputPath, reportsRoot); err != nil {
		return err
	}

	archive.Archive(cfg.OutputPath, backupsRoot, logger)
	return nil
}

// newRand builds the simulation's random source. A zero seed draws
// from entropy; anything else reproduces the same draw sequence.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}
