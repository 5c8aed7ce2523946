package writer

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFileName checks that name is a plain file name that resolves to a
// path inside dir. Outline-derived names go through here before any file is
// created, so a crafted section number can't write outside the output tree.
func ValidateFileName(dir, name string) error {
	if name == "" {
		return fmt.Errorf("file name cannot be empty")
	}

	if name == "." || name == ".." || strings.HasPrefix(name, "../") || strings.Contains(name, "/../") {
		return fmt.Errorf("invalid file name %q: path traversal attempt", name)
	}

	if filepath.IsAbs(name) {
		return fmt.Errorf("invalid file name %q: must be relative", name)
	}

	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("invalid file name %q: must not contain path separators", name)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("failed to resolve file path: %w", err)
	}

	// Separator suffix so "/out" doesn't match "/out-other"
	if !strings.HasPrefix(absPath, absDir+string(filepath.Separator)) {
		return fmt.Errorf("file path escapes %s", dir)
	}

	return nil
}
