package dockerfile

import (
	"path/filepath"
	"strings"
)

// ValidatePath reports whether an absolute path stays within the context
// root. Docker refuses such sources at build time; the checksum still covers
// them, so callers only warn.
func ValidatePath(contextRoot, abs string) error {
	if strings.Contains(abs, "\x00") {
		return &ParseError{Message: "path contains null byte"}
	}

	rel, err := filepath.Rel(contextRoot, abs)
	if err != nil {
		return &PathTraversalError{Path: abs}
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &PathTraversalError{Path: abs}
	}
	return nil
}
