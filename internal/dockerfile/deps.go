package dockerfile

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
)

// Extractor resolves the build-context paths referenced by COPY and ADD
// instructions. Patterns are expanded against an explicit context directory;
// the process working directory is never consulted.
type Extractor struct {
	contextDir string
	logger     *slog.Logger
}

// NewExtractor creates an Extractor rooted at contextDir, which should be an
// absolute, cleaned directory path. A nil logger uses slog.Default().
func NewExtractor(contextDir string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{contextDir: contextDir, logger: logger}
}

// Dependencies returns every path referenced by the Dockerfile content, in
// instruction order. Duplicates are kept.
func (x *Extractor) Dependencies(data []byte) ([]Dependency, error) {
	lines, err := Coalesce(data)
	if err != nil {
		return nil, err
	}

	var deps []Dependency
	for _, line := range lines {
		found, err := x.Line(line)
		if err != nil {
			return nil, err
		}
		deps = append(deps, found...)
	}
	return deps, nil
}

// Line returns the paths referenced by a single logical line.
func (x *Extractor) Line(line Line) ([]Dependency, error) {
	x.logger.Debug("Long line", "line", line.Number, "text", line.Text)

	instr, err := ParseInstruction(line)
	if err != nil {
		return nil, err
	}
	if instr.Kind == InstructionOther {
		return nil, nil
	}
	if instr.IsStageCopy() {
		x.logger.Debug("Skipping stage copy", "line", line.Number, "from", instr.Flags["from"])
		return nil, nil
	}

	var deps []Dependency
	for _, pattern := range instr.Sources {
		matches, err := x.Glob(pattern)
		if err != nil {
			return nil, &GlobError{Pattern: pattern, Line: line.Number, Err: err}
		}
		if len(matches) == 0 {
			x.logger.Info("Glob did not match any files", "pattern", pattern, "line", line.Number)
			continue
		}
		for _, dep := range matches {
			dep.Line = line.Number
			x.logger.Debug("Matching path found", "path", dep.Path)
			if err := ValidatePath(x.contextDir, dep.Abs); err != nil {
				x.logger.Warn("Dependency outside build context", "path", dep.Path, "line", line.Number)
			}
			deps = append(deps, dep)
		}
	}
	return deps, nil
}

// Glob expands one pattern. Relative patterns are resolved against the
// context directory and reported relative to it; absolute patterns are
// expanded and reported as-is. Matches are in lexical order.
func (x *Extractor) Glob(pattern string) ([]Dependency, error) {
	if filepath.IsAbs(pattern) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		deps := make([]Dependency, 0, len(matches))
		for _, m := range matches {
			deps = append(deps, Dependency{Pattern: pattern, Path: m, Abs: m})
		}
		return deps, nil
	}

	matches, err := filepath.Glob(filepath.Join(escapeGlob(x.contextDir), pattern))
	if err != nil {
		return nil, err
	}
	deps := make([]Dependency, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(x.contextDir, m)
		if err != nil {
			return nil, fmt.Errorf("relativize %s: %w", m, err)
		}
		deps = append(deps, Dependency{Pattern: pattern, Path: rel, Abs: m})
	}
	return deps, nil
}

// escapeGlob quotes the glob metacharacters of a literal path so it can be
// used as a pattern prefix.
func escapeGlob(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch {
		case r == '*' || r == '?' || r == '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		case r == '\\' && runtime.GOOS != "windows":
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
