// Copyright 2026 The Apolo Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apolo-mission/apolo/lib/clock"
	"github.com/apolo-mission/apolo/lib/telemetry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeRecord(t *testing.T, folder, name string, record telemetry.Record) {
	t.Helper()
	data, err := record.MarshalIndented()
	if err != nil {
		t.Fatalf("encoding record fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(folder, name), data, 0o644); err != nil {
		t.Fatalf("writing record fixture: %v", err)
	}
}

func record(mission, device, status string) telemetry.Record {
	return telemetry.Record{
		Date:         "2026-08-25T12:00:00Z",
		Mission:      mission,
		DeviceType:   device,
		DeviceStatus: status,
	}
}

// makeFolder creates one epoch folder under devicesRoot holding the
// given records.
func makeFolder(t *testing.T, devicesRoot, name string, records ...telemetry.Record) {
	t.Helper()
	folder := filepath.Join(devicesRoot, name)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatalf("creating fixture folder: %v", err)
	}
	for i, rec := range records {
		writeRecord(t, folder, telemetry.FileName("APL1", i+1), rec)
	}
}

func readSingleReport(t *testing.T, reportsRoot string) (string, string) {
	t.Helper()
	entries, err := os.ReadDir(reportsRoot)
	if err != nil {
		t.Fatalf("reading reports root: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("found %d reports, want 1", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(reportsRoot, entries[0].Name()))
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	return entries[0].Name(), string(data)
}

func TestGenerateReportsNameAndSectionOrder(t *testing.T) {
	devicesRoot, reportsRoot := t.TempDir(), t.TempDir()
	makeFolder(t, devicesRoot, "1_2",
		record("Apollo", "sensor", "good"),
		record("Apollo", "antenna", "killed"))

	fake := clock.Fake(time.Date(2026, 8, 25, 12, 0, 5, 0, time.UTC))
	if err := New(fake, discardLogger()).GenerateReports(devicesRoot, reportsRoot); err != nil {
		t.Fatalf("GenerateReports: %v", err)
	}

	name, body := readSingleReport(t, reportsRoot)
	if want := "APLSTATS-REPORT[1_2]-250826120005.log"; name != want {
		t.Fatalf("report name = %q, want %q", name, want)
	}

	headings := []string{
		"b) Analisis de eventos",
		"c) Gestion de desconexiones",
		"d) Consolidacion de misiones",
		"e) Calculo de porcentajes",
	}
	last := -1
	for _, heading := range headings {
		index := strings.Index(body, "\n\n"+heading+"\n")
		if index < 0 {
			t.Fatalf("heading %q missing from report:\n%s", heading, body)
		}
		if index < last {
			t.Fatalf("heading %q out of order in report:\n%s", heading, body)
		}
		last = index
	}
}

func TestGenerateReportsAnalyses(t *testing.T) {
	devicesRoot, reportsRoot := t.TempDir(), t.TempDir()
	makeFolder(t, devicesRoot, "1_3",
		record("Apollo", "sensor", "good"),
		record("Apollo", "antenna", "unknown"),
		record("Orion", "sensor", "killed"))

	fake := clock.Fake(time.Date(2026, 8, 25, 12, 0, 5, 0, time.UTC))
	if err := New(fake, discardLogger()).GenerateReports(devicesRoot, reportsRoot); err != nil {
		t.Fatalf("GenerateReports: %v", err)
	}
	_, body := readSingleReport(t, reportsRoot)

	sections := strings.Split(body, "\n\n")

	find := func(heading string) string {
		t.Helper()
		for _, section := range sections {
			// Tables end with a newline of their own, so sections
			// after the first carry a leftover leading newline.
			section = strings.TrimLeft(section, "\n")
			if strings.HasPrefix(section, heading) {
				return section
			}
		}
		t.Fatalf("section %q missing from report:\n%s", heading, body)
		return ""
	}

	rowFields := func(section, label string) []string {
		t.Helper()
		for _, line := range strings.Split(section, "\n") {
			fields := strings.Fields(line)
			if len(fields) > 0 && fields[0] == label {
				return fields
			}
		}
		t.Fatalf("row %q missing from section:\n%s", label, section)
		return nil
	}

	// Events: Apollo/sensor saw one good record, no killed or unknown.
	events := find("b) Analisis de eventos")
	header := rowFields(events, "mission")
	if strings.Join(header[2:], " ") != "good killed unknown" {
		t.Fatalf("event columns = %v, want sorted statuses from data", header)
	}
	// Rows sort by mission then device type, so Apollo's antenna row
	// comes first.
	apolloAntenna := rowFields(events, "Apollo")
	if got := strings.Join(apolloAntenna[1:], " "); got != "antenna NaN NaN 1" {
		t.Fatalf("Apollo/antenna event row = %v", apolloAntenna)
	}

	// Disconnections: only Apollo's antenna went unknown.
	disconnections := find("c) Gestion de desconexiones")
	if got := rowFields(disconnections, "Apollo"); got[1] != "1" {
		t.Fatalf("Apollo disconnections = %v, want 1", got)
	}
	if strings.Contains(disconnections, "Orion") {
		t.Fatalf("Orion should not appear in disconnections:\n%s", disconnections)
	}

	// Consolidation: one inoperable device per mission.
	consolidation := find("d) Consolidacion de misiones")
	if got := rowFields(consolidation, "Apollo"); got[1] != "1" {
		t.Fatalf("Apollo inoperable = %v, want 1", got)
	}
	if got := rowFields(consolidation, "Orion"); got[1] != "1" {
		t.Fatalf("Orion inoperable = %v, want 1", got)
	}

	// Percentages: each record is a third of the folder.
	percentages := find("e) Calculo de porcentajes")
	apollo := rowFields(percentages, "Apollo")
	if strings.Join(apollo[1:], " ") != "33.33 33.33" {
		t.Fatalf("Apollo percentage row = %v, want 33.33 for both device types", apollo)
	}
	orion := rowFields(percentages, "Orion")
	if got := orion[len(orion)-1]; got != "33.33" {
		t.Fatalf("Orion sensor percentage = %q, want 33.33", got)
	}
	if orion[1] != "NaN" {
		t.Fatalf("Orion antenna percentage = %q, want NaN", orion[1])
	}
}

// TestPercentagesDerivedFromCounts pins the percentage computation:
// one division per cell over the final count, not a running sum of
// per-record shares.
func TestPercentagesDerivedFromCounts(t *testing.T) {
	var records []telemetry.Record
	for range 3 {
		records = append(records, record("Apollo", "sensor", "good"))
	}
	for range 4 {
		records = append(records, record("Orion", "antenna", "good"))
	}

	body := percentageAnalysis(records)
	if !strings.Contains(body, "42.86") {
		t.Fatalf("Apollo/sensor share of 3 in 7 missing:\n%s", body)
	}
	if !strings.Contains(body, "57.14") {
		t.Fatalf("Orion/antenna share of 4 in 7 missing:\n%s", body)
	}
}

func TestTimingLoggedPerReport(t *testing.T) {
	devicesRoot, reportsRoot := t.TempDir(), t.TempDir()
	makeFolder(t, devicesRoot, "1_1", record("Apollo", "sensor", "good"))
	makeFolder(t, devicesRoot, "2_1", record("Orion", "sensor", "good"))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	fake := clock.Fake(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	if err := New(fake, logger).GenerateReports(devicesRoot, reportsRoot); err != nil {
		t.Fatalf("GenerateReports: %v", err)
	}

	logs := buf.String()
	if got := strings.Count(logs, "duration_seconds="); got != 2 {
		t.Fatalf("duration_seconds logged %d times, want once per report:\n%s", got, logs)
	}
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, "duration_seconds=") && !strings.Contains(line, "wrote report") {
			t.Fatalf("timing attached to the wrong log entry: %s", line)
		}
	}
}

func TestGenerateReportsIdempotentBodies(t *testing.T) {
	devicesRoot, reportsRoot := t.TempDir(), t.TempDir()
	makeFolder(t, devicesRoot, "2_1", record("Apollo", "sensor", "faulty"))

	fake := clock.Fake(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	reporter := New(fake, discardLogger())

	if err := reporter.GenerateReports(devicesRoot, reportsRoot); err != nil {
		t.Fatalf("first GenerateReports: %v", err)
	}
	fake.Advance(time.Minute)
	if err := reporter.GenerateReports(devicesRoot, reportsRoot); err != nil {
		t.Fatalf("second GenerateReports: %v", err)
	}

	entries, err := os.ReadDir(reportsRoot)
	if err != nil {
		t.Fatalf("reading reports root: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("found %d reports, want 2 distinct files", len(entries))
	}

	var bodies []string
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(reportsRoot, entry.Name()))
		if err != nil {
			t.Fatalf("reading report: %v", err)
		}
		bodies = append(bodies, string(data))
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("report bodies differ across runs:\n%s\n---\n%s", bodies[0], bodies[1])
	}
}

func TestGenerateReportsEmptyFolder(t *testing.T) {
	devicesRoot, reportsRoot := t.TempDir(), t.TempDir()
	makeFolder(t, devicesRoot, "3_0")

	fake := clock.Fake(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	if err := New(fake, discardLogger()).GenerateReports(devicesRoot, reportsRoot); err != nil {
		t.Fatalf("GenerateReports: %v", err)
	}

	_, body := readSingleReport(t, reportsRoot)
	if !strings.Contains(body, "b) Analisis de eventos") {
		t.Fatalf("empty-folder report lacks headings:\n%s", body)
	}
	if strings.Contains(body, "NaN") {
		t.Fatalf("empty-folder report should have header-only tables:\n%s", body)
	}
}

func TestGenerateReportsSkipsUndecodableFiles(t *testing.T) {
	devicesRoot, reportsRoot := t.TempDir(), t.TempDir()
	makeFolder(t, devicesRoot, "4_1", record("Apollo", "sensor", "good"))
	garbage := filepath.Join(devicesRoot, "4_1", "APLAPL1-00002.log")
	if err := os.WriteFile(garbage, []byte("not json"), 0o644); err != nil {
		t.Fatalf("writing garbage fixture: %v", err)
	}

	fake := clock.Fake(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	if err := New(fake, discardLogger()).GenerateReports(devicesRoot, reportsRoot); err != nil {
		t.Fatalf("GenerateReports: %v", err)
	}

	_, body := readSingleReport(t, reportsRoot)
	// The surviving record is 100% of the decodable data.
	if !strings.Contains(body, "100.00") {
		t.Fatalf("report does not reflect the single decodable record:\n%s", body)
	}
}

func TestGenerateReportsMissingRoot(t *testing.T) {
	reportsRoot := t.TempDir()
	fake := clock.Fake(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))

	missing := filepath.Join(t.TempDir(), "never-created")
	if err := New(fake, discardLogger()).GenerateReports(missing, reportsRoot); err != nil {
		t.Fatalf("GenerateReports on missing root: %v", err)
	}

	entries, err := os.ReadDir(reportsRoot)
	if err != nil {
		t.Fatalf("reading reports root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("reports written for missing root: %v", entries)
	}
}
