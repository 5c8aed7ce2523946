package writer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lamim/folioforge/pkg/models"
)

func testPlan() models.Plan {
	return models.Plan{
		Section: models.Section{Chapter: "Chapter 4: Thermodynamics", Number: "4.2", Title: "Entropy"},
		Topics: []models.Topic{
			{Index: 1, Title: "Microstates", Subsections: []string{"Counting", "Boltzmann"}},
			{Index: 2, Title: "Second Law", Subsections: []string{"Statements"}},
		},
	}
}

func TestAssemble_PlanOrderAndLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Section_4.2_Entropy.md")
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	// Journal order differs from plan order
	blocks := map[string]Block{
		"2.1":      {Key: "2.1", Heading: "#### 4.2.2.1 Statements", Body: "Kelvin and Clausius."},
		"1.2":      {Key: "1.2", Heading: "#### 4.2.1.2 Boltzmann", Body: "S equals k log W."},
		IntroKey:   {Key: IntroKey, Body: "Entropy measures disorder."},
		"1.1":      {Key: "1.1", Heading: "#### 4.2.1.1 Counting", Body: "Count the arrangements."},
		SummaryKey: {Key: SummaryKey, Heading: SummaryHeading, Body: "We covered entropy."},
	}

	res, err := Assemble(path, Artifact{Plan: testPlan(), Blocks: blocks, StartedAt: started, CompletedAt: started.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(res.Missing) != 0 {
		t.Errorf("Expected no missing units, got %v", res.Missing)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)

	order := []string{
		"# Chapter 4: Thermodynamics\n",
		"## Section 4.2: Entropy\n",
		"*Generation started: 2025-01-02 03:04:05*",
		"---",
		"Entropy measures disorder.",
		"### 4.2.1 Microstates",
		"#### 4.2.1.1 Counting",
		"Count the arrangements.",
		"#### 4.2.1.2 Boltzmann",
		"S equals k log W.",
		"### 4.2.2 Second Law",
		"#### 4.2.2.1 Statements",
		"Kelvin and Clausius.",
		"### Summary and Reflection",
		"We covered entropy.",
		"*Generation completed: 2025-01-02 04:04:05*",
	}
	pos := 0
	for _, want := range order {
		i := strings.Index(doc[pos:], want)
		if i < 0 {
			t.Fatalf("Expected %q after offset %d in:\n%s", want, pos, doc)
		}
		pos += i + len(want)
	}

	wantWords := 3 + 3 + 5 + 3 + 3
	if res.Words != wantWords {
		t.Errorf("Expected %d words, got %d", wantWords, res.Words)
	}
	if !strings.HasSuffix(doc, "*Total words: ~17*\n") {
		t.Errorf("Unexpected footer in:\n%s", doc)
	}
}

func TestAssemble_MissingBlockGetsNote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.md")
	blocks := map[string]Block{
		IntroKey:   {Key: IntroKey, Body: "Intro."},
		"1.1":      {Key: "1.1", Body: "One."},
		"2.1":      {Key: "2.1", Body: "Three."},
		SummaryKey: {Key: SummaryKey, Body: "Done."},
	}

	res, err := Assemble(path, Artifact{Plan: testPlan(), Blocks: blocks, StartedAt: time.Now(), CompletedAt: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "1.2" {
		t.Errorf("Expected 1.2 missing, got %v", res.Missing)
	}

	data, _ := os.ReadFile(path)
	doc := string(data)
	if !strings.Contains(doc, "#### 4.2.1.2 Boltzmann\n\n*[Content for unit 1.2") {
		t.Errorf("Expected plan heading and note for missing unit:\n%s", doc)
	}
}

func TestAssemble_NoChapter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.md")
	plan := models.Plan{Section: models.Section{Number: "1", Title: "Intro"}}

	if _, err := Assemble(path, Artifact{Plan: plan, Blocks: map[string]Block{}, StartedAt: time.Now(), CompletedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "## Section 1: Intro") {
		t.Errorf("Expected document to start with the section heading, got:\n%s", data)
	}
}

func TestAssemble_NoTempLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.md")
	if _, err := Assemble(path, Artifact{Plan: testPlan(), Blocks: map[string]Block{}, StartedAt: time.Now(), CompletedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.md" {
		t.Errorf("Expected only the artifact in dir, got %v", entries)
	}
}

func TestAssemble_UnwritableDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.md")
	if _, err := Assemble(path, Artifact{Plan: testPlan()}); err == nil {
		t.Error("Expected error writing into a missing directory")
	}
}
