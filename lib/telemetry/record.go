// Copyright 2026 The Apolo Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry defines the simulated telemetry record, its
// on-disk JSON format, and the synthesizer that produces randomized
// records.
//
// # Record files
//
// Each record is stored as one indented JSON file named
// APL{code}-0000{i}.log, where code is the short code of the record's
// mission and i is the 1-based index within the epoch. Field order in
// the file is fixed: date, mission, device_type, device_status, hash.
//
// # Integrity hash
//
// A record's hash is the SHA-256 hex digest of its compact JSON
// encoding taken while the hash field is still empty. Records for the
// "Unknown" mission are exempt and keep an empty hash; the exemption
// is keyed off the file name prefix (see HashExempt), not the mission
// value. The two agree by construction, and the file-name rule is the
// contractual one.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/apolo-mission/apolo/lib/clock"
	"github.com/apolo-mission/apolo/lib/config"
)

const (
	// UnknownMission is the sentinel mission name. Records drawn for
	// it carry a session identifier instead of the mission name, the
	// literal "unknown" for device type and status, and no hash.
	UnknownMission = "Unknown"

	// UnknownCode is the short code the sentinel mission maps to in
	// record file names.
	UnknownCode = "UNKN"

	// unknownLiteral overwrites device type and status on sentinel
	// records.
	unknownLiteral = "unknown"

	// filePrefix starts every record file name.
	filePrefix = "APL"
)

// Record is one synthetic telemetry sample. Field order matches the
// on-disk JSON format.
type Record struct {
	Date         string `json:"date"`
	Mission      string `json:"mission"`
	DeviceType   string `json:"device_type"`
	DeviceStatus string `json:"device_status"`
	Hash         string `json:"hash"`
}

// ComputeHash returns the SHA-256 hex digest of the record's compact
// JSON encoding with the hash field empty. Recomputing from a stored
// record's other fields reproduces the stored hash exactly.
func (r Record) ComputeHash() string {
	r.Hash = ""
	data, err := json.Marshal(r)
	if err != nil {
		// A struct of five strings cannot fail to marshal.
		panic(fmt.Sprintf("telemetry: marshaling record for hash: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MarshalIndented returns the record's on-disk representation:
// four-space indented JSON with the fixed field order.
func (r Record) MarshalIndented() ([]byte, error) {
	return json.MarshalIndent(r, "", "    ")
}

// FileName builds the record file name for a mission code and a
// 1-based index within the epoch.
func FileName(code string, index int) string {
	return fmt.Sprintf("%s%s-0000%d.log", filePrefix, code, index)
}

// HashExempt reports whether the record behind the given file name is
// exempt from hashing. The rule is deliberately a file-name prefix
// check against the Unknown mission code.
func HashExempt(fileName string) bool {
	return strings.HasPrefix(fileName, filePrefix+UnknownCode)
}

// Synthesizer produces randomized records from the configured device
// and status vocabularies. The random source and clock are injected
// so tests can make every draw deterministic.
type Synthesizer struct {
	cfg   *config.Config
	clock clock.Clock
	rng   *rand.Rand
}

// NewSynthesizer returns a Synthesizer over the given configuration,
// clock, and random source.
func NewSynthesizer(cfg *config.Config, clk clock.Clock, rng *rand.Rand) *Synthesizer {
	return &Synthesizer{cfg: cfg, clock: clk, rng: rng}
}

// Synthesize builds one record for the given mission. Device type and
// status are drawn uniformly from the configuration; the timestamp is
// the clock's current time in ISO-8601.
//
// For the "Unknown" sentinel the mission is replaced by sessionID and
// device type and status by the literal "unknown". The random draws
// are taken before the override and discarded in that case, so a
// given seed yields the same draw sequence regardless of mission mix.
//
// The returned record's hash is always empty; the caller decides
// whether to attach one (see HashExempt).
func (s *Synthesizer) Synthesize(mission, sessionID string) (Record, error) {
	if len(s.cfg.Devices) == 0 {
		return Record{}, errors.New("no devices configured")
	}
	if len(s.cfg.Statuses) == 0 {
		return Record{}, errors.New("no statuses configured")
	}

	record := Record{
		Date:         s.clock.Now().Format(time.RFC3339Nano),
		Mission:      mission,
		DeviceType:   s.cfg.Devices[s.rng.IntN(len(s.cfg.Devices))],
		DeviceStatus: s.cfg.Statuses[s.rng.IntN(len(s.cfg.Statuses))],
	}

	if mission == UnknownMission {
		record.Mission = sessionID
		record.DeviceType = unknownLiteral
		record.DeviceStatus = unknownLiteral
	}

	return record, nil
}
