// Copyright 2026 The Apolo Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the Apolo
// simulator.
//
// The configuration file is authored as JSONC (JSON extended with //
// comments and trailing commas) or, when the file name ends in .yaml
// or .yml, as YAML. Every key is optional: absent keys fall back to
// the documented defaults, so an empty object is a valid file. A
// missing or unparseable file is fatal to the caller; no partial
// configuration is ever returned.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Sentinel errors for configuration load failures. Both are fatal;
// callers match with errors.Is and terminate before any work starts.
var (
	// ErrNotFound indicates the configuration path does not resolve
	// to a readable file.
	ErrNotFound = errors.New("configuration file not found")

	// ErrMalformed indicates the file exists but its content is not a
	// well-formed configuration (syntax error or invalid values).
	ErrMalformed = errors.New("configuration file malformed")
)

// Config is the resolved simulator configuration. It is immutable
// once loaded: components read it, none write it.
type Config struct {
	// OutputPath is the directory epoch folders are created under by
	// the generator and scanned from by the reporter.
	OutputPath string `json:"output_path" yaml:"output_path"`

	// Devices is the set of device types records draw from.
	Devices []string `json:"devices" yaml:"devices"`

	// Missions maps mission names to the short codes used in record
	// file names.
	Missions map[string]string `json:"missions" yaml:"missions"`

	// Statuses is the device status vocabulary records draw from.
	Statuses []string `json:"statuses" yaml:"statuses"`

	// TimeSleep is the inter-epoch throttle in seconds.
	TimeSleep int `json:"time_sleep" yaml:"time_sleep"`

	// NumFilesRange is the inclusive [min, max] range the per-epoch
	// file count is drawn from.
	NumFilesRange []int `json:"num_files_range" yaml:"num_files_range"`
}

// Default returns the documented defaults. Load unmarshals the file
// over this value, so absent keys keep their default.
func Default() *Config {
	return &Config{
		OutputPath:    "./devices",
		Devices:       []string{},
		Missions:      map[string]string{},
		Statuses:      []string{"excellent", "good", "warning", "faulty", "killed", "unknown"},
		TimeSleep:     20,
		NumFilesRange: []int{1, 100},
	}
}

// Load reads and validates the configuration file at path. The format
// is chosen by extension: .yaml/.yml parse as YAML, everything else as
// JSONC. Returns an error wrapping ErrNotFound or ErrMalformed for
// the two recognizable failure classes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading configuration %s: %w", path, err)
	}

	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(jsonc.ToJSON(data), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return cfg, nil
}

// validate checks value-level invariants the decoder cannot express.
func (c *Config) validate() error {
	var errs []error

	if c.TimeSleep < 0 {
		errs = append(errs, fmt.Errorf("time_sleep must be non-negative, got %d", c.TimeSleep))
	}
	if len(c.NumFilesRange) != 2 {
		errs = append(errs, fmt.Errorf("num_files_range must have exactly two elements, got %d", len(c.NumFilesRange)))
	} else if c.NumFilesRange[0] > c.NumFilesRange[1] {
		errs = append(errs, fmt.Errorf("num_files_range min %d exceeds max %d", c.NumFilesRange[0], c.NumFilesRange[1]))
	}

	return errors.Join(errs...)
}

// MissionNames returns the mission names in sorted order. Random
// selection indexes into this slice, so a seeded source reproduces
// the same mission sequence across runs.
func (c *Config) MissionNames() []string {
	names := make([]string, 0, len(c.Missions))
	for name := range c.Missions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
