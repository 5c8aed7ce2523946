package models

import (
	"strconv"
	"strings"
	"time"
)

// Section is one outline entry and one output artifact
type Section struct {
	Chapter string `json:"chapter" yaml:"chapter"`
	Number  string `json:"number" yaml:"number"`
	Title   string `json:"title" yaml:"title"`
	Ordinal int    `json:"ordinal" yaml:"-"`
}

// ID returns the stable section identifier
func (s Section) ID() string {
	return s.Number
}

// Topic is a mid-level grouping within a section
type Topic struct {
	Index       int      `json:"index"`
	Title       string   `json:"title"`
	Subsections []string `json:"subsections"`
}

// Plan is the work breakdown of a section
type Plan struct {
	Section Section
	Topics  []Topic
}

// TotalUnits returns the number of writable units: every subsection plus the
// introduction and the summary
func (p Plan) TotalUnits() int {
	total := 2
	for _, t := range p.Topics {
		total += len(t.Subsections)
	}
	return total
}

// ProgressStatus is the ephemeral status of a section in the progress monitor
type ProgressStatus string

const (
	ProgressGenerating ProgressStatus = "generating"
	ProgressComplete   ProgressStatus = "complete"
	ProgressFailed     ProgressStatus = "failed"
)

// ProgressRecord is the live view of one section
type ProgressRecord struct {
	Title          string
	Status         ProgressStatus
	TotalUnits     int
	CompletedUnits int
	CurrentUnit    string
	Words          int
	StartTime      time.Time
	EndTime        time.Time
	Error          string
}

// Elapsed returns the running or final duration of the section
func (r ProgressRecord) Elapsed() time.Duration {
	if r.StartTime.IsZero() {
		return 0
	}
	if !r.EndTime.IsZero() {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}

// ResultStatus is the outcome of one section run
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultSkipped ResultStatus = "skipped"
	ResultFailed  ResultStatus = "failed"
)

// SectionResult is the job result for one section
type SectionResult struct {
	Section    Section
	Status     ResultStatus
	Words      int
	OutputPath string
	Reason     string // why the section was skipped
	Error      error
	Duration   time.Duration
}

// BatchSummary aggregates the results of a batch
type BatchSummary struct {
	RunID      string
	Total      int
	Succeeded  int
	Skipped    int
	Failed     int
	TotalWords int
	Elapsed    time.Duration
	Results    []SectionResult
	Errors     map[string]string // section number -> error message
}

// LessSectionNumber orders section numbers numerically per dotted
// component, so "2" < "4.2" < "4.10" < "10". Non-numeric components compare
// as strings.
func LessSectionNumber(a, b string) bool {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		ai, errA := strconv.Atoi(as[i])
		bi, errB := strconv.Atoi(bs[i])
		if errA != nil || errB != nil {
			if as[i] != bs[i] {
				return as[i] < bs[i]
			}
			continue
		}
		if ai != bi {
			return ai < bi
		}
	}
	return len(as) < len(bs)
}
