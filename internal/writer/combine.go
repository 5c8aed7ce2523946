package writer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lamim/folioforge/internal/util"
	"github.com/lamim/folioforge/pkg/models"
)

// CombineResult reports what went into the combined document
type CombineResult struct {
	Path     string
	Included int
	Missing  []string // section numbers without an artifact
	Words    int
}

// Combine concatenates the section artifacts in outline order into one
// document. Each artifact's leading chapter heading is dropped and a single
// chapter heading is emitted whenever the chapter changes.
func Combine(layout *Layout, sections []models.Section, title string, now time.Time) (CombineResult, error) {
	res := CombineResult{Path: layout.CombinedPath()}

	var doc strings.Builder
	fmt.Fprintf(&doc, "# %s\n\n*Generated: %s*\n\n---\n\n", title, now.Format(TimestampLayout))

	chapter := ""
	for _, s := range sections {
		path, err := layout.SectionPath(s)
		if err != nil {
			return res, err
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			res.Missing = append(res.Missing, s.Number)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("failed to read section %s: %w", s.Number, err)
		}

		if s.Chapter != "" && s.Chapter != chapter {
			fmt.Fprintf(&doc, "# %s\n\n", s.Chapter)
			chapter = s.Chapter
		}

		content := dropLeadingHeading(string(data))
		res.Words += util.CountWords(content)
		res.Included++
		doc.WriteString(strings.TrimSpace(content))
		doc.WriteString("\n\n")
	}

	if res.Included == 0 {
		return res, fmt.Errorf("no section artifacts found in %s", layout.Dir())
	}

	err := writeFileAtomic(res.Path, func(w io.Writer) error {
		_, err := io.WriteString(w, doc.String())
		return err
	})
	if err != nil {
		return res, fmt.Errorf("failed to write combined document: %w", err)
	}
	return res, nil
}

// dropLeadingHeading removes the first line when it is a top-level heading
func dropLeadingHeading(content string) string {
	content = strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(content, "# ") {
		return content
	}
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		return content[i+1:]
	}
	return ""
}
