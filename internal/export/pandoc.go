// Package export converts the combined markdown document to other formats
// through the pandoc binary.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrPandocNotFound is returned when pandoc is not on PATH
var ErrPandocNotFound = errors.New("pandoc not installed (install with: sudo apt install pandoc)")

// Formats lists the supported output formats
var Formats = []string{"docx", "pdf"}

// Exporter runs pandoc conversions
type Exporter struct {
	pandoc string
	logger *slog.Logger
}

// New locates pandoc on PATH
func New(logger *slog.Logger) (*Exporter, error) {
	path, err := exec.LookPath("pandoc")
	if err != nil {
		return nil, ErrPandocNotFound
	}
	return &Exporter{pandoc: path, logger: logger.With("component", "export")}, nil
}

// OutputPath returns the converted file path for src in the given format
func OutputPath(src, format string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + "." + format
}

// Export converts src into format and returns the output path
func (e *Exporter) Export(ctx context.Context, src, format string) (string, error) {
	args, err := pandocArgs(src, format)
	if err != nil {
		return "", err
	}
	out := OutputPath(src, format)

	e.logger.Info("Exporting document", "source", src, "format", format)
	cmd := exec.CommandContext(ctx, e.pandoc, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		msg := strings.TrimSpace(string(output))
		if format == "pdf" {
			msg += " (PDF export needs LaTeX: sudo apt install texlive-xetex)"
		}
		return "", fmt.Errorf("pandoc failed: %w: %s", err, msg)
	}

	e.logger.Info("Export complete", "output", out)
	return out, nil
}

func pandocArgs(src, format string) ([]string, error) {
	out := OutputPath(src, format)
	switch format {
	case "docx":
		return []string{src, "-o", out}, nil
	case "pdf":
		return []string{src, "-o", out, "--pdf-engine=xelatex"}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}
