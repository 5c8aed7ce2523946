package writer

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger creates a logger that writes human-readable text to console and
// JSON to the run log in the output directory. The caller closes the file.
func SetupLogger(layout *Layout, console io.Writer, level slog.Level) (*slog.Logger, *os.File, error) {
	logFile, err := os.OpenFile(layout.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	textHandler := slog.NewTextHandler(console, &slog.HandlerOptions{Level: level})
	jsonHandler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level})

	return slog.New(slogmulti.Fanout(textHandler, jsonHandler)), logFile, nil
}
