package writer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lamim/folioforge/internal/util"
	"github.com/lamim/folioforge/pkg/models"
)

// TimestampLayout is used for the generation started/completed stamps
const TimestampLayout = "2006-01-02 15:04:05"

// SummaryHeading is the fixed heading of the closing unit
const SummaryHeading = "### Summary and Reflection"

// TopicHeading returns the heading line for topic t of a section
func TopicHeading(sectionNumber string, topic models.Topic) string {
	return fmt.Sprintf("### %s.%d %s", sectionNumber, topic.Index, topic.Title)
}

// SubsectionHeading returns the heading line for subsection s of topic t
func SubsectionHeading(sectionNumber string, topicIdx, subIdx int, title string) string {
	return fmt.Sprintf("#### %s.%d.%d %s", sectionNumber, topicIdx, subIdx, title)
}

// Artifact describes one section document to assemble
type Artifact struct {
	Plan        models.Plan
	Blocks      map[string]Block
	StartedAt   time.Time
	CompletedAt time.Time
}

// AssembleResult reports what went into an assembled artifact
type AssembleResult struct {
	Words   int
	Missing []string // unit keys with no journal block
}

// Assemble writes the final section document to path atomically. Units are
// laid out in plan order regardless of the order they were journaled in. A
// unit with no block gets its heading and a placeholder note.
func Assemble(path string, a Artifact) (AssembleResult, error) {
	var res AssembleResult

	body := func(key string) string {
		b, ok := a.Blocks[key]
		if !ok {
			res.Missing = append(res.Missing, key)
			return fmt.Sprintf("*[Content for unit %s was recorded as complete but is missing from the journal.]*", key)
		}
		res.Words += util.CountWords(b.Body)
		return b.Body
	}
	heading := func(key, fallback string) string {
		if b, ok := a.Blocks[key]; ok && b.Heading != "" {
			return b.Heading
		}
		return fallback
	}

	s := a.Plan.Section
	var doc strings.Builder

	if s.Chapter != "" {
		fmt.Fprintf(&doc, "# %s\n\n", s.Chapter)
	}
	fmt.Fprintf(&doc, "## Section %s: %s\n\n", s.Number, s.Title)
	fmt.Fprintf(&doc, "*Generation started: %s*\n\n---\n\n", a.StartedAt.Format(TimestampLayout))

	writeUnit(&doc, "", body(IntroKey))

	for _, topic := range a.Plan.Topics {
		doc.WriteString(TopicHeading(s.Number, topic))
		doc.WriteString("\n\n")
		for i, title := range topic.Subsections {
			key := models.SubsectionKey(topic.Index, i+1)
			h := heading(key, SubsectionHeading(s.Number, topic.Index, i+1, title))
			writeUnit(&doc, h, body(key))
		}
	}

	writeUnit(&doc, SummaryHeading, body(SummaryKey))

	fmt.Fprintf(&doc, "\n---\n\n*Generation completed: %s*\n*Total words: ~%d*\n",
		a.CompletedAt.Format(TimestampLayout), res.Words)

	err := writeFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, doc.String())
		return err
	})
	if err != nil {
		return res, fmt.Errorf("failed to write section artifact: %w", err)
	}
	return res, nil
}

func writeUnit(doc *strings.Builder, heading, body string) {
	if heading != "" {
		doc.WriteString(heading)
		doc.WriteString("\n\n")
	}
	if body != "" {
		doc.WriteString(body)
		doc.WriteString("\n\n")
	}
}
