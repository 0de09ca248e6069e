package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
	"gopkg.in/yaml.v3"
)

const (
	// Filename is the optional per-context configuration file.
	Filename = ".dfsum.yaml"
	// DefaultDockerfile is used when no Dockerfile path is given.
	DefaultDockerfile = "Dockerfile"
	// DockerignoreFilename is read when Dockerignore is enabled.
	DockerignoreFilename = ".dockerignore"
)

// Names of the options that Overlay treats as scalars.
const (
	FlagHex          = "hex"
	FlagFile         = "file"
	FlagDockerignore = "dockerignore"
	FlagJobs         = "jobs"
)

// Sentinel errors.
var (
	ErrMissingContext = errors.New("context path is required")
	ErrNotDirectory   = errors.New("not a directory")
	ErrVersionTooOld  = errors.New("dfsum version too old")
)

// Error reports an invalid or unusable option.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options are the user-facing checksum options, as given on the command line
// or in the configuration file.
type Options struct {
	Hex            bool     `yaml:"hex"`
	IgnorePaths    []string `yaml:"ignorePaths"`
	IgnorePatterns []string `yaml:"ignorePatterns"`
	ExtraPaths     []string `yaml:"extraPaths"`
	ExtraStrings   []string `yaml:"extraStrings"`
	DockerfilePath string   `yaml:"dockerfile"`
	Dockerignore   bool     `yaml:"dockerignore"`
	Jobs           int      `yaml:"jobs"`
	MinVersion     string   `yaml:"minVersion"`

	ContextPath string `yaml:"-"`
}

// Load reads the configuration file for a context directory. If path is
// empty, <contextDir>/.dfsum.yaml is used when present and its absence is
// not an error. A relative dockerfile in the file is resolved against the
// context directory.
func Load(contextDir, path string) (Options, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(contextDir, Filename)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Options{}, nil
		}
		return Options{}, &Error{Field: "config file", Err: fmt.Errorf("read %s: %w", path, err)}
	}

	var opts Options
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, &Error{Field: "config file", Err: fmt.Errorf("parse %s: %w", path, err)}
	}

	if opts.DockerfilePath != "" && !filepath.IsAbs(opts.DockerfilePath) {
		opts.DockerfilePath = filepath.Join(contextDir, opts.DockerfilePath)
	}
	return opts, nil
}

// Overlay returns o with flags applied on top of it. Lists are appended;
// scalar options replace o's values when changed reports the named flag as
// explicitly set. The context path always comes from flags.
func (o Options) Overlay(flags Options, changed func(name string) bool) Options {
	out := o
	out.ContextPath = flags.ContextPath
	out.IgnorePaths = append(append([]string(nil), o.IgnorePaths...), flags.IgnorePaths...)
	out.IgnorePatterns = append(append([]string(nil), o.IgnorePatterns...), flags.IgnorePatterns...)
	out.ExtraPaths = append(append([]string(nil), o.ExtraPaths...), flags.ExtraPaths...)
	out.ExtraStrings = append(append([]string(nil), o.ExtraStrings...), flags.ExtraStrings...)

	if changed(FlagHex) {
		out.Hex = flags.Hex
	}
	if changed(FlagFile) {
		out.DockerfilePath = flags.DockerfilePath
	}
	if changed(FlagDockerignore) {
		out.Dockerignore = flags.Dockerignore
	}
	if changed(FlagJobs) {
		out.Jobs = flags.Jobs
	}
	return out
}

// Path is a user-supplied path and its absolute location.
type Path struct {
	Given string
	Abs   string
}

// Resolved holds validated options with every path made absolute.
type Resolved struct {
	Hex            bool
	ContextDir     string
	DockerfilePath string
	IgnorePaths    []string
	Patterns       *patternmatcher.PatternMatcher // nil when no patterns apply
	ExtraPaths     []Path
	ExtraStrings   []string
	Jobs           int
}

// Resolve validates the options against the filesystem. A relative
// Dockerfile path is resolved against the process working directory; extra
// paths are resolved against the context directory.
func (o Options) Resolve(logger *slog.Logger) (*Resolved, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if o.ContextPath == "" {
		return nil, &Error{Field: "context path", Err: ErrMissingContext}
	}
	contextDir, err := filepath.Abs(o.ContextPath)
	if err != nil {
		return nil, &Error{Field: "context path", Err: err}
	}
	info, err := os.Stat(contextDir)
	if err != nil {
		return nil, &Error{Field: "context path", Err: err}
	}
	if !info.IsDir() {
		return nil, &Error{Field: "context path", Err: fmt.Errorf("%s: %w", contextDir, ErrNotDirectory)}
	}

	if err := CheckVersion(o.MinVersion); err != nil {
		return nil, err
	}

	r := &Resolved{
		Hex:          o.Hex,
		ContextDir:   contextDir,
		ExtraStrings: o.ExtraStrings,
		Jobs:         o.Jobs,
	}

	if o.DockerfilePath == "" {
		r.DockerfilePath = filepath.Join(contextDir, DefaultDockerfile)
	} else if r.DockerfilePath, err = filepath.Abs(o.DockerfilePath); err != nil {
		return nil, &Error{Field: "dockerfile path", Err: err}
	}

	for _, p := range o.IgnorePaths {
		r.IgnorePaths = append(r.IgnorePaths, filepath.Clean(p))
	}

	for _, p := range o.ExtraPaths {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(contextDir, p)
		}
		r.ExtraPaths = append(r.ExtraPaths, Path{Given: p, Abs: abs})
	}

	patterns := append([]string(nil), o.IgnorePatterns...)
	if o.Dockerignore {
		fromFile, err := readDockerignore(contextDir)
		if err != nil {
			return nil, err
		}
		logger.Debug("Loaded .dockerignore", "patterns", len(fromFile))
		patterns = append(fromFile, patterns...)
	}
	if len(patterns) > 0 {
		pm, err := patternmatcher.New(patterns)
		if err != nil {
			return nil, &Error{Field: "ignore pattern", Err: err}
		}
		r.Patterns = pm
	}

	if r.Jobs <= 0 {
		r.Jobs = runtime.NumCPU()
	}
	return r, nil
}

func readDockerignore(contextDir string) ([]string, error) {
	path := filepath.Join(contextDir, DockerignoreFilename)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &Error{Field: "dockerignore", Err: err}
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, &Error{Field: "dockerignore", Err: fmt.Errorf("read %s: %w", path, err)}
	}
	return patterns, nil
}
