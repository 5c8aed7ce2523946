package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SectionStatus is the durable status of a section in the checkpoint store
type SectionStatus string

const (
	StatusInProgress SectionStatus = "in_progress"
	StatusCompleted  SectionStatus = "completed"
)

// CheckpointRecord is the persisted progress of one section
type CheckpointRecord struct {
	SectionTitle string        `json:"section_title"`
	Status       SectionStatus `json:"status"`
	TotalTopics  int           `json:"total_topics"`

	// Keys formatted "topicIdx.subIdx", both 1-based
	CompletedSubsections []string `json:"completed_subsections"`
	CompletedTopics      []int    `json:"completed_topics"`
	CurrentTopic         int      `json:"current_topic"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the record
func (r CheckpointRecord) Clone() CheckpointRecord {
	r.CompletedSubsections = append([]string(nil), r.CompletedSubsections...)
	r.CompletedTopics = append([]int(nil), r.CompletedTopics...)
	return r
}

// ResumePoint is the snapshot consulted when re-entering a partially completed section
type ResumePoint struct {
	SectionTitle         string
	CompletedSubsections map[string]bool
	CompletedTopics      map[int]bool
	CurrentTopic         int
	StartedAt            time.Time
}

// HasSubsection reports whether the key (t, s) was completed
func (rp ResumePoint) HasSubsection(topicIdx, subIdx int) bool {
	return rp.CompletedSubsections[SubsectionKey(topicIdx, subIdx)]
}

// SubsectionKey formats the persisted key of a subsection
func SubsectionKey(topicIdx, subIdx int) string {
	return fmt.Sprintf("%d.%d", topicIdx, subIdx)
}

// ParseSubsectionKey is the inverse of SubsectionKey
func ParseSubsectionKey(key string) (int, int, error) {
	t, s, ok := strings.Cut(key, ".")
	if !ok {
		return 0, 0, fmt.Errorf("invalid subsection key %q", key)
	}
	topicIdx, err := strconv.Atoi(t)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid topic index in key %q: %w", key, err)
	}
	subIdx, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid subsection index in key %q: %w", key, err)
	}
	return topicIdx, subIdx, nil
}

// CheckpointSummary is an overview of all sections in a store
type CheckpointSummary struct {
	Total      int
	Completed  int
	InProgress int
	Sections   map[string]CheckpointRecord
}
