// Package checksum computes the source checksum of a Dockerfile build: the
// Dockerfile bytes plus the digests of every build-context path its COPY and
// ADD instructions reference, extra paths and extra strings.
//
// Example usage:
//
//	cfg, err := config.Options{ContextPath: "."}.Resolve(nil)
//	if err != nil {
//	    return err
//	}
//	res, err := checksum.New(cfg).Compute(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.String())
package checksum

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	"github.com/tinyrange/dfsum/internal/config"
	"github.com/tinyrange/dfsum/internal/dockerfile"
	dirdigest "github.com/tinyrange/dfsum/internal/digest"
	"golang.org/x/sync/errgroup"
)

// Algorithm names the per-path digest algorithm in OCI digest strings.
const Algorithm digest.Algorithm = "blake2b"

// Progress receives digest progress. *progressbar.ProgressBar satisfies it.
type Progress interface {
	ChangeMax(max int)
	Add(num int) error
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Calculator) { c.logger = logger }
}

// WithProgress reports each digested path to p.
func WithProgress(p Progress) Option {
	return func(c *Calculator) { c.progress = p }
}

// Calculator computes checksums for one resolved configuration.
type Calculator struct {
	cfg      *config.Resolved
	logger   *slog.Logger
	progress Progress
}

// New creates a Calculator.
func New(cfg *config.Resolved, opts ...Option) *Calculator {
	c := &Calculator{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Partial is the digest of one dependency or extra path.
type Partial struct {
	Path   string // Path as written in the Dockerfile match or extra path option
	Abs    string
	Line   int  // Dockerfile line, 0 for extra paths
	Extra  bool // Given as an extra path rather than found in the Dockerfile
	Digest []byte
}

// OCIDigest renders the partial digest as "blake2b:<hex>".
func (p Partial) OCIDigest() digest.Digest {
	return digest.NewDigestFromEncoded(Algorithm, Encode(p.Digest, true))
}

// Result is the outcome of a checksum computation.
type Result struct {
	Digest   []byte
	Partials []Partial
	hex      bool
}

// String encodes the digest as configured (hex or base64).
func (r *Result) String() string {
	return Encode(r.Digest, r.hex)
}

// Compute reads the Dockerfile, digests its dependencies and combines
// everything into the final digest. Any failure aborts the computation.
func (c *Calculator) Compute(ctx context.Context) (*Result, error) {
	partials, content, err := c.partials(ctx)
	if err != nil {
		return nil, err
	}

	items := make([][]byte, 0, len(partials)+len(c.cfg.ExtraStrings)+1)
	for _, p := range partials {
		items = append(items, p.Digest)
	}
	for _, s := range c.cfg.ExtraStrings {
		items = append(items, []byte(s))
	}
	items = append(items, content)

	sorted := sortItems(items)
	for _, item := range sorted {
		c.logger.Debug("Sorted chunk", "chunk", Encode(item, false))
	}

	return &Result{
		Digest:   fold(sorted),
		Partials: partials,
		hex:      c.cfg.Hex,
	}, nil
}

// Dependencies digests the Dockerfile dependencies and extra paths without
// combining them.
func (c *Calculator) Dependencies(ctx context.Context) ([]Partial, error) {
	partials, _, err := c.partials(ctx)
	return partials, err
}

func (c *Calculator) partials(ctx context.Context) ([]Partial, []byte, error) {
	c.logger.Debug("Opening dockerfile", "path", c.cfg.DockerfilePath)
	content, err := os.ReadFile(c.cfg.DockerfilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read dockerfile: %w", err)
	}

	deps, err := dockerfile.NewExtractor(c.cfg.ContextDir, c.logger).Dependencies(content)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(c.cfg.DockerfilePath), err)
	}

	partials := make([]Partial, 0, len(deps)+len(c.cfg.ExtraPaths))
	for _, d := range deps {
		c.logger.Info("Dockerfile depends on", "path", d.Path, "line", d.Line)
		partials = append(partials, Partial{Path: d.Path, Abs: d.Abs, Line: d.Line})
	}
	for _, p := range c.cfg.ExtraPaths {
		partials = append(partials, Partial{Path: p.Given, Abs: p.Abs, Extra: true})
	}

	if err := c.digestAll(ctx, partials); err != nil {
		return nil, nil, err
	}
	return partials, content, nil
}

// digestAll fills in the digest of every partial. Paths are digested
// concurrently; each worker writes only its own slot.
func (c *Calculator) digestAll(ctx context.Context, partials []Partial) error {
	hasher := c.hasher()

	if c.progress != nil {
		c.progress.ChangeMax(len(partials))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.cfg.Jobs, 1))
	for i := range partials {
		p := &partials[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := hasher.Digest(p.Abs)
			if err != nil {
				return err
			}
			p.Digest = sum
			c.logger.Debug("Partial digest", "digest", Encode(sum, false), "path", p.Path)
			if c.progress != nil {
				c.progress.Add(1)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Calculator) hasher() *dirdigest.Hasher {
	opts := []dirdigest.Option{dirdigest.WithIgnorePaths(c.cfg.IgnorePaths)}
	if c.cfg.Patterns != nil {
		opts = append(opts, dirdigest.WithPatterns(c.cfg.ContextDir, c.cfg.Patterns))
	}
	return dirdigest.New(opts...)
}
