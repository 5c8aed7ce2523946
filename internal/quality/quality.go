// Package quality runs advisory heuristics over generated prose. Findings are
// logged and never fail a unit.
package quality

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lamim/folioforge/internal/util"
)

// Severity ranks a finding
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one quality issue
type Finding struct {
	Severity Severity
	Message  string
}

// Stats are the raw counts behind the findings
type Stats struct {
	Words    int
	Bullets  int
	Figures  int
	Tables   int
	HasASCII bool
}

// Report is the result of checking one unit
type Report struct {
	Stats    Stats
	Findings []Finding
}

// Passed reports whether no error-level finding was raised
func (r Report) Passed() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return false
		}
	}
	return true
}

// MinExplanationWords is the shortest acceptable prose after a figure or
// table caption
const MinExplanationWords = 150

const maxReportedBullets = 3

var (
	bulletLine   = regexp.MustCompile(`^\s*(?:[-*•]|\d+\.)\s+`)
	captionRe    = regexp.MustCompile(`(?i)(figure|table) \d+\.\d+:`)
	asciiDiagram = regexp.MustCompile(`[┌┐└┘├┤┬┴┼│─→←↑↓⇒⇐⇔]`)
)

// Check lints one unit of prose against the target length. The short-text
// thresholds are 80% (error) and 90% (warning) of targetWords.
func Check(content string, targetWords int) Report {
	var r Report
	warn := func(format string, args ...any) {
		r.Findings = append(r.Findings, Finding{SeverityWarning, fmt.Sprintf(format, args...)})
	}
	fail := func(format string, args ...any) {
		r.Findings = append(r.Findings, Finding{SeverityError, fmt.Sprintf(format, args...)})
	}

	for i, line := range strings.Split(content, "\n") {
		if !bulletLine.MatchString(line) {
			continue
		}
		r.Stats.Bullets++
		if r.Stats.Bullets <= maxReportedBullets {
			warn("Line %d: bullet point detected: %s", i+1, util.TruncateString(strings.TrimSpace(line), 50))
		}
	}
	if r.Stats.Bullets > 0 {
		fail("Found %d bullet points (should be prose only)", r.Stats.Bullets)
	}

	captions := captionRe.FindAllStringSubmatchIndex(content, -1)
	for _, m := range captions {
		if strings.EqualFold(content[m[2]:m[3]], "figure") {
			r.Stats.Figures++
		} else {
			r.Stats.Tables++
		}
	}
	switch {
	case r.Stats.Figures == 0:
		warn("No figures found (should have 2-3 per subsection)")
	case r.Stats.Figures < 2:
		warn("Only %d figure found (should have 2-3)", r.Stats.Figures)
	}
	if r.Stats.Tables == 0 {
		warn("No tables found (should have 1-2 per subsection)")
	}

	r.Stats.HasASCII = asciiDiagram.MatchString(content)
	if !r.Stats.HasASCII {
		warn("No ASCII diagrams found")
	}

	r.Stats.Words = util.CountWords(content)
	if targetWords > 0 {
		switch {
		case r.Stats.Words < targetWords*8/10:
			fail("Too short: %d words (target: %d+)", r.Stats.Words, targetWords)
		case r.Stats.Words < targetWords*9/10:
			warn("Slightly short: %d words (target: %d+)", r.Stats.Words, targetWords)
		}
	}

	// Each caption's explanation runs until the next caption or the end
	for i, m := range captions {
		end := len(content)
		if i+1 < len(captions) {
			end = captions[i+1][0]
		}
		if words := util.CountWords(content[m[0]:end]); words < MinExplanationWords {
			warn("%s explanation too short (%d words, need %d+)", strings.TrimSuffix(content[m[0]:m[1]], ":"), words, MinExplanationWords)
		}
	}

	return r
}
