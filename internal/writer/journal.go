package writer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// IntroKey and SummaryKey identify the two section-level units. Subsection
// units use models.SubsectionKey.
const (
	IntroKey   = "intro"
	SummaryKey = "summary"
)

var markerPattern = regexp.MustCompile(`^<!-- unit:([A-Za-z0-9.]+) -->$`)

// Block is one unit as recorded in the journal
type Block struct {
	Key     string
	Heading string
	Body    string
}

// Journal is the append-only output stream of one section. Every unit is
// synced to disk before Append returns, so a unit recorded in the checkpoint
// always has its text on disk.
type Journal struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenJournal opens (or creates) the journal at path for appending
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &Journal{path: path, file: f}, nil
}

// Path returns the journal file path
func (j *Journal) Path() string {
	return j.path
}

// Append writes one unit block and syncs it. Heading may be empty.
func (j *Journal) Append(key, heading, body string) error {
	if !markerPattern.MatchString(marker(key)) {
		return fmt.Errorf("invalid unit key %q", key)
	}

	var b strings.Builder
	b.WriteString(marker(key))
	b.WriteString("\n")
	if heading != "" {
		b.WriteString(heading)
		b.WriteString("\n\n")
	}
	if body = strings.TrimSpace(body); body != "" {
		b.WriteString(escapeMarkers(body))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := io.WriteString(j.file, b.String()); err != nil {
		return fmt.Errorf("failed to append unit %s: %w", key, err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}
	return nil
}

// Close closes the journal file
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

func marker(key string) string {
	return "<!-- unit:" + key + " -->"
}

// escapeMarkers indents body lines that would read back as a block marker.
// The comment still renders the same in Markdown.
func escapeMarkers(body string) string {
	if !strings.Contains(body, "<!-- unit:") {
		return body
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if markerPattern.MatchString(line) {
			lines[i] = " " + line
		}
	}
	return strings.Join(lines, "\n")
}

// ReadJournal parses the journal at path into blocks keyed by unit key. When
// a key appears more than once the last block wins. A missing journal yields
// an empty map.
func ReadJournal(path string) (map[string]Block, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Block{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	return parseJournal(f)
}

func parseJournal(r io.Reader) (map[string]Block, error) {
	blocks := make(map[string]Block)

	var (
		key   string
		lines []string
	)
	flush := func() {
		if key == "" {
			return
		}
		blocks[key] = newBlock(key, lines)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := markerPattern.FindStringSubmatch(line); m != nil {
			flush()
			key = m[1]
			lines = lines[:0]
			continue
		}
		if key != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	flush()

	return blocks, nil
}

// newBlock splits the raw lines of a block. Every unit except the
// introduction is written with its heading as the first line.
func newBlock(key string, lines []string) Block {
	b := Block{Key: key}
	rest := lines
	if key != IntroKey && len(rest) > 0 && strings.HasPrefix(rest[0], "#") {
		b.Heading = rest[0]
		rest = rest[1:]
	}
	b.Body = strings.TrimSpace(strings.Join(rest, "\n"))
	return b
}
