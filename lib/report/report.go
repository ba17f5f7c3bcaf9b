// Copyright 2026 The Apolo Authors
// SPDX-License-Identifier: Apache-2.0

// Package report aggregates the telemetry files of each epoch folder
// into a per-folder statistics report.
//
// A report is a plain-text file holding four cross-tabulations of the
// folder's records: event counts by status, disconnection counts,
// inoperable-device totals per mission, and the percentage each
// mission and device type contributes to the folder. Reports are
// written next to each other under a single reports directory, named
//
//	APLSTATS-REPORT[{folder}]-{ddmmyyHHMMSS}.log
//
// so successive runs over the same folder never overwrite each other.
package report

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/apolo-mission/apolo/lib/clock"
	"github.com/apolo-mission/apolo/lib/telemetry"
)

// reportStamp is the timestamp layout in report file names: day,
// month, two-digit year, then hour, minute, second.
const reportStamp = "020106150405"

// inoperableStatuses are the device statuses counted by the
// mission-consolidation section.
var inoperableStatuses = map[string]bool{
	"faulty":  true,
	"killed":  true,
	"unknown": true,
}

// Reporter scans epoch folders and writes one statistics report per
// folder.
type Reporter struct {
	clock  clock.Clock
	logger *slog.Logger
}

// New returns a Reporter using the given clock for report timestamps.
func New(clk clock.Clock, logger *slog.Logger) *Reporter {
	return &Reporter{clock: clk, logger: logger}
}

// GenerateReports walks the epoch folders under devicesRoot and
// writes one report per folder into reportsRoot. A folder that cannot
// be processed is logged and skipped; only a devicesRoot that cannot
// be listed at all fails the run. A devicesRoot that does not exist
// yet is treated as empty.
func (r *Reporter) GenerateReports(devicesRoot, reportsRoot string) error {
	entries, err := os.ReadDir(devicesRoot)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Info("no telemetry folders to report on", "path", devicesRoot)
			return nil
		}
		return fmt.Errorf("listing telemetry folders: %w", err)
	}

	written := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folder := entry.Name()
		if err := r.reportFolder(devicesRoot, reportsRoot, folder); err != nil {
			r.logger.Error("skipping folder", "folder", folder, "error", err)
			continue
		}
		written++
	}

	r.logger.Info("report generation finished", "reports", written)
	return nil
}

// reportFolder builds and writes the report for one epoch folder,
// timing the folder's load-group-render-write cycle.
func (r *Reporter) reportFolder(devicesRoot, reportsRoot, folder string) error {
	start := r.clock.Now()
	records := r.loadRecords(filepath.Join(devicesRoot, folder))

	name := fmt.Sprintf("APLSTATS-REPORT[%s]-%s.log",
		folder, r.clock.Now().Format(reportStamp))
	path := filepath.Join(reportsRoot, name)

	if err := os.WriteFile(path, []byte(buildReport(records)), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	r.logger.Info("wrote report",
		"report", name,
		"records", len(records),
		"duration_seconds", r.clock.Now().Sub(start).Seconds())
	return nil
}

// loadRecords reads every record file in the folder. Files that
// cannot be read or decoded are logged and skipped so one corrupt
// file never sinks the folder's report.
func (r *Reporter) loadRecords(folderPath string) []telemetry.Record {
	var records []telemetry.Record
	err := filepath.WalkDir(folderPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.logger.Error("walking telemetry folder", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			r.logger.Error("reading telemetry file", "file", path, "error", err)
			return nil
		}
		var record telemetry.Record
		if err := json.Unmarshal(data, &record); err != nil {
			r.logger.Error("skipping undecodable telemetry file", "file", path, "error", err)
			return nil
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		r.logger.Error("walking telemetry folder", "path", folderPath, "error", err)
	}
	return records
}

// buildReport renders the four analysis sections over the records. An
// empty record set still yields all four headings with header-only
// tables.
func buildReport(records []telemetry.Record) string {
	var buf strings.Builder

	buf.WriteString("\n\nb) Analisis de eventos\n")
	buf.WriteString(eventAnalysis(records))

	buf.WriteString("\n\nc) Gestion de desconexiones\n")
	buf.WriteString(disconnectionAnalysis(records))

	buf.WriteString("\n\nd) Consolidacion de misiones\n")
	buf.WriteString(missionConsolidation(records))

	buf.WriteString("\n\ne) Calculo de porcentajes\n")
	buf.WriteString(percentageAnalysis(records))

	return buf.String()
}

// eventAnalysis counts records per mission and device type, split
// across the statuses seen in the data.
func eventAnalysis(records []telemetry.Record) string {
	p := newPivot()
	for _, record := range records {
		// A tab inside the row key renders mission and device type as
		// separate columns.
		p.add(record.Mission+"\t"+record.DeviceType, record.DeviceStatus, 1)
	}
	return p.render("mission\tdevice_type", formatCount)
}

// disconnectionAnalysis counts unknown-status records per mission and
// device type.
func disconnectionAnalysis(records []telemetry.Record) string {
	p := newPivot()
	for _, record := range records {
		if record.DeviceStatus != "unknown" {
			continue
		}
		p.add(record.Mission, record.DeviceType, 1)
	}
	return p.render("mission", formatCount)
}

// missionConsolidation totals inoperable devices per mission.
func missionConsolidation(records []telemetry.Record) string {
	totals := make(map[string]int)
	for _, record := range records {
		if inoperableStatuses[record.DeviceStatus] {
			totals[record.Mission]++
		}
	}

	missions := make([]string, 0, len(totals))
	for mission := range totals {
		missions = append(missions, mission)
	}
	sort.Strings(missions)

	rows := make([][]string, 0, len(missions))
	for _, mission := range missions {
		rows = append(rows, []string{mission, strconv.Itoa(totals[mission])})
	}
	return renderTable([]string{"mission", "inoperable_devices"}, rows)
}

// percentageAnalysis reports each mission and device type's share of
// the folder's records, in percent. Counts are totaled first and
// converted once at render time, so large folders cannot accumulate
// floating-point drift.
func percentageAnalysis(records []telemetry.Record) string {
	p := newPivot()
	for _, record := range records {
		p.add(record.Mission, record.DeviceType, 1)
	}
	total := float64(len(records))
	return p.render("mission", func(count float64) string {
		return strconv.FormatFloat(count/total*100, 'f', 2, 64)
	})
}

func formatCount(v float64) string {
	return strconv.Itoa(int(v))
}
