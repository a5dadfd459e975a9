package yfreq

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteRecords(t *testing.T) {
	a, err := Analyze(scenarioRecords(t), "E")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var b bytes.Buffer
	if err := WriteRecords(&b, a.Lineage, a.Records...); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	want := []string{
		"Sample_ID,Terminal_SNP,Representative_SNP,YCC_Haplogroup,Major_Haplogroup,E_Level1,E_Level2,E_Level3",
		"S1,rs001,rs101,E1b1a1a1c1a1,E,E1,E1b,E1b1",
		"S2,rs002,rs102,E2a,E,E2,E2a,",
		"S3,rs003,rs103,E1b1a1a1d1a,E,E1,E1b,E1b1",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %q", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestTableRoundTrip(t *testing.T) {
	a, err := Analyze(scenarioRecords(t), "E")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tab := range a.Tables() {
		var b bytes.Buffer
		if err := WriteTable(&b, tab); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(b.String(), tab.KeyName+",Count,Frequency,Percentage\n") {
			t.Fatalf("unexpected header in %q", b.String())
		}
		got, err := ReadTable(&b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.KeyName != tab.KeyName || len(got.Rows) != len(tab.Rows) {
			t.Fatalf("expected %+v, got %+v", tab, got)
		}
		for i := range tab.Rows {
			if got.Rows[i] != tab.Rows[i] {
				t.Fatalf("%s row %d: expected %+v, got %+v", tab.KeyName, i, tab.Rows[i], got.Rows[i])
			}
		}
	}
}

func TestReadTableMalformed(t *testing.T) {
	_, err := ReadTable(strings.NewReader("Haplogroup,Count,Frequency,Percentage\nE,three,1,100\n"))
	if !errors.Is(err, ErrMalformedRow) {
		t.Fatalf("expected ErrMalformedRow, got %v", err)
	}
}

func TestTableText(t *testing.T) {
	tab := FrequencyTable{KeyName: "E_Subclade_L1", Total: 3, Rows: []FrequencyRow{
		{"E1", 2, 2.0 / 3, 200.0 / 3},
		{"E2", 1, 1.0 / 3, 100.0 / 3},
	}}
	want := "E_Subclade_L1  Count  Frequency  Percentage\n" +
		"           E1      2     0.6667        66.7\n" +
		"           E2      1     0.3333        33.3"
	if got := TableText(tab); got != want {
		t.Fatalf("expected\n%s\ngot\n%s", want, got)
	}
}

func TestSummary(t *testing.T) {
	a, err := Analyze(scenarioRecords(t), "E")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := Summary(DefaultConfig(), a)
	for _, want := range []string{
		"YRI Y-Chromosome Haplogroup Analysis Summary",
		"Total YRI male samples analyzed: 3",
		"Major Haplogroup Distribution:",
		"E Haplogroup Subclades (Level 1):",
		"Most Common YCC Haplogroups:",
		"- 3/3 (100.0%) belong to haplogroup E (95% CI ",
		"- E1b is the most common E subclade at level 2 (2/3, 66.7%)",
		"- 3 distinct YCC haplogroups and 3 distinct terminal SNPs",
		"- Haplogroup diversity 1.0000",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected summary to contain %q:\n%s", want, s)
		}
	}
}

func writeCalls(t *testing.T, dir, calls string) string {
	t.Helper()
	path := filepath.Join(dir, "haplogroups.txt")
	if err := os.WriteFile(path, []byte(calls), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestRunAnalyze(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Haplogroups = writeCalls(t, dir, scenarioCalls)
	cfg.OutDir = filepath.Join(dir, "out")

	var out strings.Builder
	a, paths, err := RunAnalyze(&out, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(a.Records))
	}
	for _, p := range paths.All() {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected output %s: %v", p, err)
		}
	}
	if filepath.Base(paths.Levels[0]) != "yri_e_subclade_l1_frequencies.csv" {
		t.Fatalf("unexpected level 1 path %s", paths.Levels[0])
	}

	major, err := ReadTablePath(paths.Major)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(major.Rows) != 1 || major.Rows[0].Key != "E" || major.Rows[0].Count != 3 || major.Total != 3 {
		t.Fatalf("unexpected major table %+v", major)
	}
	if !strings.Contains(out.String(), "Loaded 3 YRI male samples") {
		t.Fatalf("missing status line in %q", out.String())
	}
}

func TestRunAnalyzeIdempotent(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Haplogroups = writeCalls(t, dir, scenarioCalls)

	cfg.OutDir = filepath.Join(dir, "run1")
	_, first, err := RunAnalyze(io.Discard, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.OutDir = filepath.Join(dir, "run2")
	_, second, err := RunAnalyze(io.Discard, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, b := first.All(), second.All()
	for i := range a {
		da, err := os.ReadFile(a[i])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		db, err := os.ReadFile(b[i])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(da, db) {
			t.Fatalf("%s and %s differ", a[i], b[i])
		}
	}
}

func TestRunAnalyzeMalformedWritesNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Haplogroups = writeCalls(t, dir, "S1 rs001 rs101 E1b1a1a1c1a1\nS2 rs002 rs102\n")
	cfg.OutDir = filepath.Join(dir, "out")

	_, _, err := RunAnalyze(io.Discard, cfg)
	if !errors.Is(err, ErrMalformedRow) {
		t.Fatalf("expected ErrMalformedRow, got %v", err)
	}
	if _, err := os.Stat(cfg.OutDir); !os.IsNotExist(err) {
		t.Fatalf("expected no output directory, got %v", err)
	}
}

func TestWriteAnalysisFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, err := Analyze(scenarioRecords(t), "E")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := DefaultConfig()
	cfg.OutDir = filepath.Join(blocker, "out")
	if _, err := WriteAnalysis(cfg, a); !errors.Is(err, ErrWriteFailure) {
		t.Fatalf("expected ErrWriteFailure, got %v", err)
	}
}

func TestAnalyzeAndSave(t *testing.T) {
	dir := t.TempDir()
	f := AnalyzeFlags{
		Input:  writeCalls(t, dir, scenarioCalls),
		OutDir: filepath.Join(dir, "out"),
		Prefix: "test",
		DB:     filepath.Join(dir, "yfreq.db"),
	}

	var run, dsn string
	save := func(ctx context.Context, d string, debug bool, r string, a *Analysis) error {
		dsn, run = d, r
		return nil
	}
	a, err := AnalyzeAndSave(context.Background(), io.Discard, f, save)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run != "YRI" || dsn != f.DB {
		t.Fatalf("expected save of YRI to %s, got %q to %q", f.DB, run, dsn)
	}
	if a.Major.Total != 3 {
		t.Fatalf("expected 3 records, got %d", a.Major.Total)
	}
	if _, err := os.Stat(filepath.Join(f.OutDir, "test_major_haplogroup_frequencies.csv")); err != nil {
		t.Fatalf("expected major table: %v", err)
	}
}

func TestAnalyzeAndSaveSkipsSaveOnError(t *testing.T) {
	dir := t.TempDir()
	f := AnalyzeFlags{
		Input:  filepath.Join(dir, "missing.txt"),
		OutDir: filepath.Join(dir, "out"),
		DB:     filepath.Join(dir, "yfreq.db"),
	}
	called := false
	save := func(ctx context.Context, d string, debug bool, r string, a *Analysis) error {
		called = true
		return nil
	}
	if _, err := AnalyzeAndSave(context.Background(), io.Discard, f, save); !errors.Is(err, ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
	if called {
		t.Fatalf("expected no save after a failed analysis")
	}
}
