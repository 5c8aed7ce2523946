package quality

import (
	"strings"
	"testing"
)

func hasFinding(r Report, sev Severity, substr string) bool {
	for _, f := range r.Findings {
		if f.Severity == sev && strings.Contains(f.Message, substr) {
			return true
		}
	}
	return false
}

func TestCheck_Bullets(t *testing.T) {
	content := "Intro prose.\n- one\n* two\n• three\n1. four\nMore prose."
	r := Check(content, 0)

	if r.Stats.Bullets != 4 {
		t.Errorf("Expected 4 bullets, got %d", r.Stats.Bullets)
	}
	if !hasFinding(r, SeverityError, "Found 4 bullet points") {
		t.Errorf("Expected bullet error, got %+v", r.Findings)
	}
	lineWarnings := 0
	for _, f := range r.Findings {
		if strings.HasPrefix(f.Message, "Line ") {
			lineWarnings++
		}
	}
	if lineWarnings != 3 {
		t.Errorf("Expected only the first 3 bullets reported, got %d", lineWarnings)
	}
	if r.Passed() {
		t.Error("Report with bullets should not pass")
	}
}

func TestCheck_WordCountThresholds(t *testing.T) {
	tests := []struct {
		name  string
		words int
		sev   Severity
		msg   string
	}{
		{"too_short", 700, SeverityError, "Too short"},
		{"slightly_short", 850, SeverityWarning, "Slightly short"},
		{"long_enough", 950, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Check(strings.Repeat("word ", tt.words), 1000)
			if r.Stats.Words != tt.words {
				t.Fatalf("Expected %d words, got %d", tt.words, r.Stats.Words)
			}
			if tt.sev == "" {
				if hasFinding(r, SeverityError, "short") || hasFinding(r, SeverityWarning, "short") {
					t.Errorf("Unexpected length finding %+v", r.Findings)
				}
				return
			}
			if !hasFinding(r, tt.sev, tt.msg) {
				t.Errorf("Expected %s %q, got %+v", tt.sev, tt.msg, r.Findings)
			}
		})
	}
}

func TestCheck_FiguresTablesAndExplanations(t *testing.T) {
	long := strings.Repeat("explained ", 160)
	content := "Figure 1.1: Energy levels. " + long +
		"Figure 1.2: Short one. tiny\n" +
		"Table 1.1: Values. " + long +
		"┌──┐\n└──┘"

	r := Check(content, 0)
	if r.Stats.Figures != 2 || r.Stats.Tables != 1 {
		t.Errorf("Expected 2 figures and 1 table, got %d and %d", r.Stats.Figures, r.Stats.Tables)
	}
	if !r.Stats.HasASCII {
		t.Error("Expected ASCII diagram detected")
	}
	if !hasFinding(r, SeverityWarning, "Figure 1.2 explanation too short") {
		t.Errorf("Expected short explanation warning for Figure 1.2, got %+v", r.Findings)
	}
	if hasFinding(r, SeverityWarning, "Figure 1.1 explanation") || hasFinding(r, SeverityWarning, "Table 1.1 explanation") {
		t.Errorf("Long explanations should not be flagged: %+v", r.Findings)
	}
	if !r.Passed() {
		t.Errorf("Expected pass with warnings only, got %+v", r.Findings)
	}
}

func TestCheck_MissingElements(t *testing.T) {
	r := Check("Plain prose only.", 0)
	for _, want := range []string{"No figures", "No tables", "No ASCII"} {
		if !hasFinding(r, SeverityWarning, want) {
			t.Errorf("Expected warning %q, got %+v", want, r.Findings)
		}
	}
}
