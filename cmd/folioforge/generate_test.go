package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lamim/folioforge/internal/config"
	"github.com/lamim/folioforge/internal/cost"
	"github.com/lamim/folioforge/pkg/models"
)

func TestGenerateOptions_Apply(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Provider = "openai"
	cfg.Backend.BaseURL = "https://api.example.com/v1"
	cfg.Backend.ModelName = "m"

	opts := &generateOptions{parallel: 4, workers: 7, onPartial: "restart", dryRun: true}
	if err := opts.apply(cfg); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if cfg.Generation.SectionWorkers != 4 || cfg.Generation.SubsectionWorkers != 7 {
		t.Errorf("Workers not applied: %+v", cfg.Generation)
	}
	if cfg.Generation.OnPartial != config.OnPartialRestart {
		t.Errorf("OnPartial = %q", cfg.Generation.OnPartial)
	}
	if !cfg.IsMock() {
		t.Error("Expected --dry-run to select the mock backend")
	}
}

func TestGenerateOptions_ApplyRejectsBadPolicy(t *testing.T) {
	cfg := config.Default()
	opts := &generateOptions{onPartial: "sometimes"}
	if err := opts.apply(cfg); err == nil {
		t.Error("Expected an invalid on-partial value to be rejected")
	}
}

func TestLoadOutline_MissingSuggestsCandidates(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, "syllabus_ch4.md"), []byte("# Chapter 4\n4.1 Intro\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Generation.OutlineFile = "nope.md"
	_, err := loadOutline(cfg)
	if err == nil {
		t.Fatal("Expected error for missing outline")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
	if !strings.Contains(err.Error(), "syllabus_ch4.md") {
		t.Errorf("Expected candidate in error, got %v", err)
	}
}

func TestPrintSummary(t *testing.T) {
	s := models.BatchSummary{
		RunID:      "abc",
		Total:      3,
		Succeeded:  1,
		Skipped:    1,
		Failed:     1,
		TotalWords: 1200,
		Elapsed:    90 * time.Second,
		Results: []models.SectionResult{
			{Section: models.Section{Number: "4.1"}, Status: models.ResultSuccess, Words: 1200, OutputPath: "out/Section_4.1_A.md"},
			{Section: models.Section{Number: "4.2"}, Status: models.ResultSkipped, Reason: "already completed"},
			{Section: models.Section{Number: "4.3"}, Status: models.ResultFailed},
		},
		Errors: map[string]string{"4.3": "planning failed"},
	}

	var buf bytes.Buffer
	printSummary(&buf, s, cost.Summary{})
	out := buf.String()
	for _, want := range []string{"Run:        abc", "~1200", "out/Section_4.1_A.md", "already completed", "planning failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("Summary missing %q:\n%s", want, out)
		}
	}
}
