package digest

import (
	"io/fs"
	"path/filepath"

	"github.com/moby/patternmatcher"
)

// WithPatterns excludes entries matched by dockerignore-style patterns. The
// patterns are evaluated against each entry's path relative to base (the
// build context), not the digest root. When pm has exceptions ("!pattern"),
// a matched directory is descend-only: it counts only if a re-included
// entry lies below it.
func WithPatterns(base string, pm *patternmatcher.PatternMatcher) Option {
	return WithFilter(func(path, _ string, info fs.FileInfo) (Decision, error) {
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return Exclude, err
		}
		matched, err := pm.MatchesOrParentMatches(rel)
		if err != nil {
			return Exclude, err
		}
		switch {
		case !matched:
			return Include, nil
		case info.IsDir() && pm.Exclusions():
			return Descend, nil
		default:
			return Exclude, nil
		}
	})
}
