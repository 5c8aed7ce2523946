package progress

import (
	"sync"
	"time"

	"github.com/lamim/folioforge/pkg/models"
)

// Monitor is the live, in-memory view of every section being generated.
// All methods are safe for concurrent use and never block on I/O.
type Monitor struct {
	mu      sync.Mutex
	records map[string]*models.ProgressRecord
	now     func() time.Time
}

// NewMonitor creates an empty monitor
func NewMonitor() *Monitor {
	return &Monitor{
		records: make(map[string]*models.ProgressRecord),
		now:     time.Now,
	}
}

// StartSection begins tracking a section, replacing any previous record
func (m *Monitor) StartSection(id, title string, totalUnits int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[id] = &models.ProgressRecord{
		Title:      title,
		Status:     models.ProgressGenerating,
		TotalUnits: totalUnits,
		StartTime:  m.now(),
	}
}

// UpdateCurrentUnit sets the label of the unit being worked on
func (m *Monitor) UpdateCurrentUnit(id, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.records[id]; ok {
		rec.CurrentUnit = label
	}
}

// CompleteUnit counts one finished unit. Completed units never exceed the total.
func (m *Monitor) CompleteUnit(id string, words int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return
	}
	if rec.CompletedUnits < rec.TotalUnits {
		rec.CompletedUnits++
	}
	rec.Words += words
}

// CompleteSection marks the section complete with its final word count
func (m *Monitor) CompleteSection(id string, totalWords int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return
	}
	rec.Status = models.ProgressComplete
	rec.CompletedUnits = rec.TotalUnits
	rec.Words = totalWords
	rec.CurrentUnit = ""
	rec.EndTime = m.now()
}

// FailSection marks the section failed
func (m *Monitor) FailSection(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return
	}
	rec.Status = models.ProgressFailed
	rec.EndTime = m.now()
	if err != nil {
		rec.Error = err.Error()
	}
}

// Snapshot returns a copy of all records
func (m *Monitor) Snapshot() map[string]models.ProgressRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]models.ProgressRecord, len(m.records))
	for id, rec := range m.records {
		out[id] = *rec
	}
	return out
}
