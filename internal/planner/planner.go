package planner

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lamim/folioforge/internal/config"
	"github.com/lamim/folioforge/internal/llm"
	"github.com/lamim/folioforge/internal/util"
	"github.com/lamim/folioforge/pkg/models"
)

// Planner expands sections into topics and topics into subsections.
// Backend output is advisory: unusable responses fall back to placeholder
// titles so generation can always proceed.
type Planner struct {
	gen       llm.Generator
	templates config.PromptTemplates
	limits    config.LimitsConfig
	logger    *slog.Logger
}

// New creates a planner
func New(gen llm.Generator, templates config.PromptTemplates, limits config.LimitsConfig, logger *slog.Logger) *Planner {
	return &Planner{
		gen:       gen,
		templates: templates,
		limits:    limits,
		logger:    logger.With("component", "planner"),
	}
}

// Plan expands a section into topics and every topic into subsections
func (p *Planner) Plan(ctx context.Context, section models.Section, topicCount, subsectionCount int) (models.Plan, error) {
	topics, err := p.ExpandSectionToTopics(ctx, section, topicCount)
	if err != nil {
		return models.Plan{}, err
	}

	for i := range topics {
		subs, err := p.ExpandTopicToSubsections(ctx, section, topics[i], subsectionCount)
		if err != nil {
			return models.Plan{}, err
		}
		topics[i].Subsections = subs
	}

	return models.Plan{Section: section, Topics: topics}, nil
}

// ExpandSectionToTopics returns exactly n topics for the section, without subsections
func (p *Planner) ExpandSectionToTopics(ctx context.Context, section models.Section, n int) ([]models.Topic, error) {
	prompt, err := util.RenderTemplate(p.templates.TopicExpansion, map[string]any{
		"Chapter":       section.Chapter,
		"SectionNumber": section.Number,
		"SectionTitle":  section.Title,
		"Count":         n,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render topic expansion template: %w", err)
	}

	text, err := p.gen.Generate(ctx, prompt, p.limits.TopicExpansion)
	if err != nil {
		return nil, fmt.Errorf("failed to expand section %s into topics: %w", section.Number, err)
	}

	titles := ParseTopicList(text)
	if len(titles) == 0 {
		p.logger.Warn("Topic expansion unparseable, using placeholders",
			"section", section.Number,
			"response_preview", util.TruncateString(text, 120))
	}
	titles = fit(titles, n, func(i int) string {
		return fmt.Sprintf("Topic %d: Aspect of %s", i, section.Title)
	})

	topics := make([]models.Topic, n)
	for i, title := range titles {
		topics[i] = models.Topic{Index: i + 1, Title: title}
	}
	return topics, nil
}

// ExpandTopicToSubsections returns exactly n subsection titles for the topic
func (p *Planner) ExpandTopicToSubsections(ctx context.Context, section models.Section, topic models.Topic, n int) ([]string, error) {
	prompt, err := util.RenderTemplate(p.templates.SubsectionExpansion, map[string]any{
		"Chapter":       section.Chapter,
		"SectionNumber": section.Number,
		"SectionTitle":  section.Title,
		"TopicIndex":    topic.Index,
		"TopicTitle":    topic.Title,
		"Count":         n,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render subsection expansion template: %w", err)
	}

	text, err := p.gen.Generate(ctx, prompt, p.limits.SubsectionExpansion)
	if err != nil {
		return nil, fmt.Errorf("failed to expand topic %s.%d into subsections: %w", section.Number, topic.Index, err)
	}

	titles := ParseList(text)
	if len(titles) == 0 {
		p.logger.Warn("Subsection expansion unparseable, using placeholders",
			"section", section.Number,
			"topic", topic.Index)
	}
	return fit(titles, n, func(i int) string {
		return fmt.Sprintf("Subsection %d: %s", i, topic.Title)
	}), nil
}

// fit truncates or pads titles to exactly n entries; placeholder is called
// with the 1-based position of each padded entry
func fit(titles []string, n int, placeholder func(i int) string) []string {
	if len(titles) > n {
		return titles[:n]
	}
	for i := len(titles) + 1; i <= n; i++ {
		titles = append(titles, placeholder(i))
	}
	return titles
}

var (
	enumeratorRegex = regexp.MustCompile(`^(?:\d+[.)]\s*|[-*•+]\s+)`)
	emphasisRegex   = regexp.MustCompile(`\*\*|__|` + "`")
	// "Title: description", "Title - description", "Title — description"
	descriptionSepRegex = regexp.MustCompile(`\s*(?::\s+|\s[-–—]\s)`)
)

// ParseList extracts items from numbered or bulleted lines, keeping the
// whole text after the enumerator. Lines that are not list items are ignored.
func ParseList(text string) []string {
	text = util.StripThinkTags(text)

	var items []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		loc := enumeratorRegex.FindStringIndex(line)
		if loc == nil {
			continue
		}

		item := strings.TrimSpace(line[loc[1]:])
		item = emphasisRegex.ReplaceAllString(item, "")
		item = strings.Trim(strings.TrimSpace(item), `"'`)
		if item == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// ParseTopicList is ParseList for "Title: description" items; the
// description after ":" or a spaced dash is dropped.
func ParseTopicList(text string) []string {
	items := ParseList(text)
	for i, item := range items {
		if parts := descriptionSepRegex.Split(item, 2); len(parts) == 2 && strings.TrimSpace(parts[0]) != "" {
			items[i] = strings.Trim(strings.TrimSpace(parts[0]), `"'`)
		}
	}
	return items
}
