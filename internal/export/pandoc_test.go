package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNew_PandocMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := New(testLogger()); !errors.Is(err, ErrPandocNotFound) {
		t.Errorf("Expected ErrPandocNotFound, got %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("out/Complete_Textbook.md", "docx"); got != "out/Complete_Textbook.docx" {
		t.Errorf("Unexpected output path %s", got)
	}
}

func TestPandocArgs(t *testing.T) {
	args, err := pandocArgs("a.md", "pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(args, []string{"a.md", "-o", "a.pdf", "--pdf-engine=xelatex"}) {
		t.Errorf("Unexpected pdf args %v", args)
	}
	if _, err := pandocArgs("a.md", "epub"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestExport_FakePandoc(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}

	bin := t.TempDir()
	script := "#!/bin/sh\necho converted > \"$3\"\n"
	if err := os.WriteFile(filepath.Join(bin, "pandoc"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bin)

	e, err := New(testLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	src := filepath.Join(t.TempDir(), "Complete_Textbook.md")
	if err := os.WriteFile(src, []byte("# Book\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := e.Export(context.Background(), src, "docx")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Expected output file: %v", err)
	}
	if string(data) != "converted\n" {
		t.Errorf("Unexpected output %q", data)
	}
}

func TestExport_FailureIncludesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}

	bin := t.TempDir()
	script := "#!/bin/sh\necho 'bad input' >&2\nexit 3\n"
	if err := os.WriteFile(filepath.Join(bin, "pandoc"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bin)

	e, err := New(testLogger())
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Export(context.Background(), filepath.Join(t.TempDir(), "x.md"), "docx")
	if err == nil {
		t.Fatal("Expected error from failing pandoc")
	}
	if !strings.Contains(err.Error(), "bad input") {
		t.Errorf("Expected pandoc stderr in error, got %v", err)
	}
}
