package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/lamim/folioforge/pkg/models"
)

// ErrUnknownSection is returned when mutating a section that was never started
var ErrUnknownSection = errors.New("section not started")

// Store persists per-section generation progress. Every mutation writes the
// whole store to disk before returning. One mutex serializes all
// read-modify-write cycles, across all sections.
type Store struct {
	path      string
	mu        sync.Mutex
	records   map[string]models.CheckpointRecord
	logger    *slog.Logger
	recovered bool
	now       func() time.Time
}

// Open loads the store at path. A missing file yields an empty store. A
// corrupt or unreadable file also yields an empty store: the file is moved
// aside and a warning is logged, and Recovered reports true.
func Open(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:    path,
		records: make(map[string]models.CheckpointRecord),
		logger:  logger.With("component", "checkpoint"),
		now:     time.Now,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err == nil {
		err = json.Unmarshal(data, &s.records)
	}
	if err != nil {
		s.quarantine(err)
		return s, nil
	}
	if s.records == nil {
		s.records = make(map[string]models.CheckpointRecord)
	}

	s.logger.Debug("Checkpoint loaded", "path", path, "sections", len(s.records))
	return s, nil
}

// quarantine moves an unusable checkpoint file out of the way so it can be
// inspected, and resets the store to empty
func (s *Store) quarantine(cause error) {
	s.records = make(map[string]models.CheckpointRecord)
	s.recovered = true

	aside := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().Format("20060102T150405"))
	if err := os.Rename(s.path, aside); err != nil {
		aside = ""
	}
	s.logger.Warn("Checkpoint file corrupt, starting empty",
		"path", s.path,
		"moved_to", aside,
		"error", cause)
}

// Recovered reports whether Open discarded a corrupt checkpoint file
func (s *Store) Recovered() bool {
	return s.recovered
}

// Path returns the file backing the store
func (s *Store) Path() string {
	return s.path
}

// StartSection creates or overwrites the in-progress record of a section
func (s *Store) StartSection(id, title string, topicCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec := models.CheckpointRecord{
		SectionTitle:         title,
		Status:               models.StatusInProgress,
		TotalTopics:          topicCount,
		CompletedSubsections: []string{},
		CompletedTopics:      []int{},
		CurrentTopic:         1,
		StartedAt:            now,
		UpdatedAt:            now,
	}
	return s.commit(id, &rec)
}

// IsSectionCompleted reports whether the section is marked completed
func (s *Store) IsSectionCompleted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	return ok && rec.Status == models.StatusCompleted
}

// IsSubsectionCompleted reports whether subsection (t, sub) of the section is
// complete. It is false for sections without a record.
func (s *Store) IsSubsectionCompleted(id string, topicIdx, subIdx int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	return ok && slices.Contains(rec.CompletedSubsections, models.SubsectionKey(topicIdx, subIdx))
}

// CompleteSubsection records subsection (t, sub) as complete. Completing an
// already complete subsection does not change the store.
func (s *Store) CompleteSubsection(id string, topicIdx, subIdx int) error {
	key := models.SubsectionKey(topicIdx, subIdx)
	return s.mutate(id, func(rec *models.CheckpointRecord) bool {
		if slices.Contains(rec.CompletedSubsections, key) {
			return false
		}
		rec.CompletedSubsections = append(rec.CompletedSubsections, key)
		rec.CurrentTopic = topicIdx
		return true
	})
}

// CompleteTopic records a topic as complete and moves the current topic past it
func (s *Store) CompleteTopic(id string, topicIdx int) error {
	return s.mutate(id, func(rec *models.CheckpointRecord) bool {
		if slices.Contains(rec.CompletedTopics, topicIdx) {
			return false
		}
		rec.CompletedTopics = append(rec.CompletedTopics, topicIdx)
		sort.Ints(rec.CompletedTopics)
		rec.CurrentTopic = topicIdx + 1
		return true
	})
}

// CompleteSection marks the section completed. Completed keys are kept.
func (s *Store) CompleteSection(id string) error {
	return s.mutate(id, func(rec *models.CheckpointRecord) bool {
		if rec.Status == models.StatusCompleted {
			return false
		}
		rec.Status = models.StatusCompleted
		return true
	})
}

// ResumePoint returns the completed keys of an in-progress section. It
// returns false for sections that were never started or are completed.
func (s *Store) ResumePoint(id string) (models.ResumePoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.Status == models.StatusCompleted {
		return models.ResumePoint{}, false
	}

	rp := models.ResumePoint{
		SectionTitle:         rec.SectionTitle,
		CompletedSubsections: make(map[string]bool, len(rec.CompletedSubsections)),
		CompletedTopics:      make(map[int]bool, len(rec.CompletedTopics)),
		CurrentTopic:         rec.CurrentTopic,
		StartedAt:            rec.StartedAt,
	}
	for _, k := range rec.CompletedSubsections {
		rp.CompletedSubsections[k] = true
	}
	for _, t := range rec.CompletedTopics {
		rp.CompletedTopics[t] = true
	}
	return rp, true
}

// ClearSection deletes the record of a section
func (s *Store) ClearSection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[id]
	if !ok {
		return nil
	}
	delete(s.records, id)
	if err := s.persist(); err != nil {
		s.records[id] = prev
		return err
	}
	return nil
}

// Record returns a copy of the record of a section
func (s *Store) Record(id string) (models.CheckpointRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return models.CheckpointRecord{}, false
	}
	return rec.Clone(), true
}

// Summary returns an overview of all sections in the store
func (s *Store) Summary() models.CheckpointSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := models.CheckpointSummary{
		Total:    len(s.records),
		Sections: make(map[string]models.CheckpointRecord, len(s.records)),
	}
	for id, rec := range s.records {
		if rec.Status == models.StatusCompleted {
			sum.Completed++
		} else {
			sum.InProgress++
		}
		sum.Sections[id] = rec.Clone()
	}
	return sum
}

// mutate applies fn to a copy of the section record and commits the copy if
// fn reports a change. The in-memory state is left untouched when persisting
// fails.
func (s *Store) mutate(id string, fn func(rec *models.CheckpointRecord) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSection, id)
	}

	next := rec.Clone()
	if !fn(&next) {
		return nil
	}
	next.UpdatedAt = s.now()
	return s.commit(id, &next)
}

// commit installs rec and persists; on failure the previous state is restored.
// Caller must hold s.mu.
func (s *Store) commit(id string, rec *models.CheckpointRecord) error {
	prev, had := s.records[id]
	s.records[id] = *rec
	if err := s.persist(); err != nil {
		if had {
			s.records[id] = prev
		} else {
			delete(s.records, id)
		}
		return err
	}
	return nil
}

// persist writes the full store atomically: temp file, fsync, rename.
// Caller must hold s.mu.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	tempPath := s.path + ".tmp"
	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to write temp checkpoint: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write temp checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync temp checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp checkpoint: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		return fmt.Errorf("failed to rename checkpoint: %w", err)
	}

	return nil
}
