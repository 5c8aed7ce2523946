package outline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lamim/folioforge/pkg/models"
)

// ErrDuplicateSection is returned by Validate when two sections share a number
var ErrDuplicateSection = errors.New("duplicate section number")

var (
	// "## 1. Intro", "## 4.2. Methods", "## 4.2 Methods"
	markupSectionRegex = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.\s+(.+)$|^(\d+(?:\.\d+)+)\s+(.+)$`)
	plainSectionRegex  = regexp.MustCompile(`^\s*(\d+)\.\s+(.+)`)
	chapterPrefixRegex = regexp.MustCompile(`(?i)^chapter\s+\d+\s*[:.\-]\s*`)
)

// Parse reads an outline and returns its sections in order. Two layouts are
// accepted and may be mixed: markup ("# Chapter", "## 1. Section") and plain
// text (unindented chapter lines, "1. Section" lines). Lines that match
// neither are skipped. An outline without sections is not an error.
func Parse(r io.Reader) ([]models.Section, error) {
	var (
		sections []models.Section
		chapter  string
	)

	add := func(number, title string) {
		title = strings.TrimSpace(title)
		if title == "" {
			return
		}
		sections = append(sections, models.Section{
			Chapter: chapter,
			Number:  number,
			Title:   title,
			Ordinal: len(sections) + 1,
		})
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := strings.TrimRight(scanner.Text(), " \t\r")
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			level := len(line) - len(strings.TrimLeft(line, "#"))
			text := strings.TrimSpace(line[level:])
			if text == "" || !strings.HasPrefix(line[level:], " ") {
				continue
			}
			switch level {
			case 1:
				chapter = text
			case 2:
				if m := markupSectionRegex.FindStringSubmatch(text); m != nil {
					if m[1] != "" {
						add(m[1], m[2])
					} else {
						add(m[3], m[4])
					}
				}
			}
			continue
		}

		if m := plainSectionRegex.FindStringSubmatch(raw); m != nil {
			add(m[1], m[2])
			continue
		}

		if raw == line {
			chapter = chapterPrefixRegex.ReplaceAllString(line, "")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outline: %w", err)
	}

	return sections, nil
}

// yamlOutline is the structured outline layout
type yamlOutline struct {
	Chapters []struct {
		Title    string `yaml:"title"`
		Sections []struct {
			Number string `yaml:"number"`
			Title  string `yaml:"title"`
		} `yaml:"sections"`
	} `yaml:"chapters"`
}

// ParseYAML decodes the structured outline layout
func ParseYAML(data []byte) ([]models.Section, error) {
	var doc yamlOutline
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("outline: parse yaml: %w", err)
	}

	var sections []models.Section
	for _, ch := range doc.Chapters {
		for _, s := range ch.Sections {
			number := strings.TrimSuffix(strings.TrimSpace(s.Number), ".")
			title := strings.TrimSpace(s.Title)
			if number == "" || title == "" {
				continue
			}
			sections = append(sections, models.Section{
				Chapter: strings.TrimSpace(ch.Title),
				Number:  number,
				Title:   title,
				Ordinal: len(sections) + 1,
			})
		}
	}
	return sections, nil
}

// ParseFile parses an outline file, choosing the layout by extension
func ParseFile(path string) ([]models.Section, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read outline: %w", err)
		}
		return ParseYAML(data)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open outline: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Validate rejects outlines whose section numbers are not unique
func Validate(sections []models.Section) error {
	seen := make(map[string]string, len(sections))
	for _, s := range sections {
		if prev, ok := seen[s.Number]; ok {
			return fmt.Errorf("%w: %s (%q and %q)", ErrDuplicateSection, s.Number, prev, s.Title)
		}
		seen[s.Number] = s.Title
	}
	return nil
}

// Select returns the sections with the given numbers, in outline order
func Select(sections []models.Section, numbers []string) ([]models.Section, error) {
	want := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		want[strings.TrimSuffix(strings.TrimSpace(n), ".")] = true
	}

	var out []models.Section
	for _, s := range sections {
		if want[s.Number] {
			out = append(out, s)
			delete(want, s.Number)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for n := range want {
			missing = append(missing, n)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("sections not found in outline: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

var outlinePatterns = []string{"syllabus*.md", "outline*.md", "chapter*.md", "*_outline.md", "*.yaml", "*.yml"}

// FindOutlines lists candidate outline files in dir, sorted and de-duplicated
func FindOutlines(dir string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range outlinePatterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to glob %s: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
