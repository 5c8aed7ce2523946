package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lamim/folioforge/internal/util"
	"github.com/lamim/folioforge/pkg/models"
)

const (
	journalDirName   = ".journal"
	logFileName      = "generation.log"
	combinedFileName = "Complete_Textbook.md"
)

// Layout resolves every path the pipeline writes under the output directory
type Layout struct {
	outputDir string
}

// NewLayout creates the output directory if it doesn't exist
func NewLayout(outputDir string) (*Layout, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Layout{outputDir: outputDir}, nil
}

// Dir returns the output directory
func (l *Layout) Dir() string {
	return l.outputDir
}

// SectionFileName returns the artifact file name for a section, e.g.
// "Section_4.2_Entropy_and_Disorder.md"
func SectionFileName(s models.Section) string {
	return fmt.Sprintf("Section_%s_%s.md", util.SanitizeFileName(s.Number), util.SanitizeFileName(s.Title))
}

// SectionPath returns the final artifact path for a section
func (l *Layout) SectionPath(s models.Section) (string, error) {
	name := SectionFileName(s)
	if err := ValidateFileName(l.outputDir, name); err != nil {
		return "", err
	}
	return filepath.Join(l.outputDir, name), nil
}

// JournalPath returns the unit journal path for a section
func (l *Layout) JournalPath(s models.Section) (string, error) {
	name := fmt.Sprintf("Section_%s.journal.md", util.SanitizeFileName(s.Number))
	dir := filepath.Join(l.outputDir, journalDirName)
	if err := ValidateFileName(dir, name); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// CombinedPath returns the path of the combined document
func (l *Layout) CombinedPath() string {
	return filepath.Join(l.outputDir, combinedFileName)
}

// LogPath returns the path of the run log file
func (l *Layout) LogPath() string {
	return filepath.Join(l.outputDir, logFileName)
}

// ArtifactExists reports whether the final artifact for a section is on disk
func (l *Layout) ArtifactExists(s models.Section) bool {
	path, err := l.SectionPath(s)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
