// Copyright 2026 The Apolo Authors
// SPDX-License-Identifier: Apache-2.0

// Package generator drives the telemetry simulation: an endless
// sequence of epochs, each of which writes a folder of record files,
// holds it for the configured throttle, and removes it again.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/apolo-mission/apolo/lib/clock"
	"github.com/apolo-mission/apolo/lib/config"
	"github.com/apolo-mission/apolo/lib/telemetry"
)

// Generator produces epochs of telemetry files under the configured
// output path. All time and randomness flow through the injected
// clock and random source.
type Generator struct {
	cfg    *config.Config
	clock  clock.Clock
	rng    *rand.Rand
	logger *slog.Logger
	synth  *telemetry.Synthesizer

	// newSessionID mints the per-epoch session identifier. Tests
	// override it for deterministic file contents.
	newSessionID func() string
}

// New returns a Generator over the given configuration, clock, random
// source, and logger.
func New(cfg *config.Config, clk clock.Clock, rng *rand.Rand, logger *slog.Logger) *Generator {
	return &Generator{
		cfg:          cfg,
		clock:        clk,
		rng:          rng,
		logger:       logger,
		synth:        telemetry.NewSynthesizer(cfg, clk, rng),
		newSessionID: uuid.NewString,
	}
}

// Run executes epochs back to back until the context is canceled,
// which is the normal way to stop the simulation and returns nil. A
// failed epoch is logged and skipped; the simulation outlives any
// single epoch.
func (g *Generator) Run(ctx context.Context) error {
	for iteration := 1; ; iteration++ {
		if ctx.Err() != nil {
			g.logger.Info("simulation stopped", "epochs", iteration-1)
			return nil
		}
		if err := g.RunEpoch(ctx, iteration); err != nil {
			g.logger.Error("epoch failed", "iteration", iteration, "error", err)
		}
	}
}

// RunEpoch performs one full epoch: draw the file count, write the
// epoch folder, hold it for the configured throttle, and remove it.
// The folder is removed even when writing fails partway or the
// context is canceled during the hold.
func (g *Generator) RunEpoch(ctx context.Context, iteration int) error {
	span := g.cfg.NumFilesRange
	numFiles := span[0] + g.rng.IntN(span[1]-span[0]+1)

	folderName := fmt.Sprintf("%d_%d", iteration, numFiles)
	folderPath := filepath.Join(g.cfg.OutputPath, folderName)
	defer g.cleanup(folderPath)

	g.logger.Info("starting epoch",
		"iteration", iteration,
		"files", numFiles,
		"folder", folderName)

	if err := g.writeEpoch(folderPath, numFiles); err != nil {
		return fmt.Errorf("folder %s: %w", folderName, err)
	}

	if g.cfg.TimeSleep > 0 {
		select {
		case <-g.clock.After(time.Duration(g.cfg.TimeSleep) * time.Second):
		case <-ctx.Done():
		}
	}
	return nil
}

// writeEpoch creates the epoch folder and fills it with numFiles
// record files. One session identifier is minted per epoch and shared
// by every record that needs it.
func (g *Generator) writeEpoch(folderPath string, numFiles int) error {
	missions := g.cfg.MissionNames()
	if len(missions) == 0 {
		return errors.New("no missions configured")
	}

	if err := os.MkdirAll(folderPath, 0o755); err != nil {
		return fmt.Errorf("creating epoch folder: %w", err)
	}

	sessionID := g.newSessionID()
	for i := 1; i <= numFiles; i++ {
		mission := missions[g.rng.IntN(len(missions))]

		record, err := g.synth.Synthesize(mission, sessionID)
		if err != nil {
			return fmt.Errorf("synthesizing record %d: %w", i, err)
		}

		fileName := telemetry.FileName(g.cfg.Missions[mission], i)
		if !telemetry.HashExempt(fileName) {
			record.Hash = record.ComputeHash()
		}

		data, err := record.MarshalIndented()
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
		if err := os.WriteFile(filepath.Join(folderPath, fileName), data, 0o644); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}

		g.logger.Info("wrote telemetry file", "file", fileName, "mission", mission)
	}
	return nil
}

// cleanup removes the epoch folder and everything in it. A folder
// that was never created is not an error; anything else that resists
// removal is logged and skipped so the next epoch can start.
func (g *Generator) cleanup(folderPath string) {
	entries, err := os.ReadDir(folderPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			g.logger.Error("listing epoch folder for cleanup", "folder", folderPath, "error", err)
		}
		return
	}

	for _, entry := range entries {
		if err := os.Remove(filepath.Join(folderPath, entry.Name())); err != nil {
			g.logger.Error("removing telemetry file", "file", entry.Name(), "error", err)
		}
	}
	if err := os.Remove(folderPath); err != nil {
		g.logger.Error("removing epoch folder", "folder", folderPath, "error", err)
	}
}
