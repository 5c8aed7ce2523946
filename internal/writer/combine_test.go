package writer

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lamim/folioforge/pkg/models"
)

func writeArtifact(t *testing.T, layout *Layout, s models.Section, body string) {
	t.Helper()
	path, err := layout.SectionPath(s)
	if err != nil {
		t.Fatal(err)
	}
	content := "# " + s.Chapter + "\n\n## Section " + s.Number + ": " + s.Title + "\n\n" + body + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCombine_ChapterHeadings(t *testing.T) {
	layout, err := NewLayout(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	sections := []models.Section{
		{Chapter: "Chapter 1", Number: "1.1", Title: "A"},
		{Chapter: "Chapter 1", Number: "1.2", Title: "B"},
		{Chapter: "Chapter 2", Number: "2.1", Title: "C"},
		{Chapter: "Chapter 2", Number: "2.2", Title: "D"},
	}
	for _, s := range sections[:3] {
		writeArtifact(t, layout, s, "Body of "+s.Title+".")
	}

	res, err := Combine(layout, sections, "Complete Textbook", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Combine failed: %v", err)
	}
	if res.Included != 3 {
		t.Errorf("Expected 3 included, got %d", res.Included)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "2.2" {
		t.Errorf("Expected 2.2 missing, got %v", res.Missing)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)

	if !strings.HasPrefix(doc, "# Complete Textbook\n\n*Generated: 2025-01-01 00:00:00*") {
		t.Errorf("Unexpected header:\n%s", doc)
	}
	if n := strings.Count(doc, "# Chapter 1\n"); n != 1 {
		t.Errorf("Expected one Chapter 1 heading, got %d", n)
	}
	if n := strings.Count(doc, "# Chapter 2\n"); n != 1 {
		t.Errorf("Expected one Chapter 2 heading, got %d", n)
	}
	a := strings.Index(doc, "## Section 1.1: A")
	b := strings.Index(doc, "## Section 1.2: B")
	c := strings.Index(doc, "## Section 2.1: C")
	ch2 := strings.Index(doc, "# Chapter 2\n")
	if !(a < b && b < ch2 && ch2 < c) {
		t.Errorf("Sections out of order:\n%s", doc)
	}
}

func TestCombine_NothingToCombine(t *testing.T) {
	layout, err := NewLayout(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = Combine(layout, []models.Section{{Number: "1", Title: "X"}}, "T", time.Now())
	if err == nil {
		t.Error("Expected error when no artifacts exist")
	}
}

func TestDropLeadingHeading(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"# Chapter\n\n## Section", "\n## Section"},
		{"## Section\nbody", "## Section\nbody"},
		{"\n# Only", ""},
	}
	for _, tt := range tests {
		if got := dropLeadingHeading(tt.in); got != tt.want {
			t.Errorf("dropLeadingHeading(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
