package dockerfile

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrTrailingContinuation   = errors.New("trailing \\")
	ErrMissingArguments       = errors.New("missing arguments")
	ErrPathTraversal          = errors.New("path escapes build context")
	ErrUnsupportedInstruction = errors.New("unsupported instruction")
)

// ParseError represents an error while reading the logical lines or the
// arguments of an instruction.
type ParseError struct {
	Line    int    // Line number (1-indexed, 0 if not applicable)
	Message string // Error description
	Hint    string // Optional hint for fixing the error
	Err     error  // Optional sentinel
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		if e.Hint != "" {
			return fmt.Sprintf("line %d: %s (hint: %s)", e.Line, e.Message, e.Hint)
		}
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	if e.Hint != "" {
		return fmt.Sprintf("%s (hint: %s)", e.Message, e.Hint)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnsupportedError indicates an unsupported Dockerfile feature.
type UnsupportedError struct {
	Feature string // Description of the unsupported feature
	Line    int    // Line number where it was encountered
}

func (e *UnsupportedError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: unsupported feature: %s", e.Line, e.Feature)
	}
	return fmt.Sprintf("unsupported feature: %s", e.Feature)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupportedInstruction
}

// GlobError reports a COPY/ADD source that is not a valid glob pattern.
type GlobError struct {
	Pattern string
	Line    int
	Err     error
}

func (e *GlobError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: invalid glob %q: %v", e.Line, e.Pattern, e.Err)
	}
	return fmt.Sprintf("invalid glob %q: %v", e.Pattern, e.Err)
}

func (e *GlobError) Unwrap() error {
	return e.Err
}

// PathTraversalError indicates a path that escapes the build context.
type PathTraversalError struct {
	Path string
	Line int
}

func (e *PathTraversalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: path %q escapes build context", e.Line, e.Path)
	}
	return fmt.Sprintf("path %q escapes build context", e.Path)
}

func (e *PathTraversalError) Is(target error) bool {
	return target == ErrPathTraversal
}
