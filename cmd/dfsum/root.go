package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tinyrange/dfsum/internal/checksum"
	"github.com/tinyrange/dfsum/internal/config"
	"github.com/tinyrange/dfsum/internal/version"
)

type rootOptions struct {
	opts       config.Options
	configPath string
	logLevel   string
	verbose    bool
	progress   bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	o := &rootOptions{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "dfsum [flags] CONTEXT",
		Short: "Checksum a Dockerfile and the build context files it copies",
		Long: `dfsum prints a checksum covering a Dockerfile and every build-context path
referenced by its COPY and ADD instructions. The checksum changes whenever the
Dockerfile, a referenced file's contents or permissions, or an extra string
changes, and is independent of the order of COPY lines.`,
		Args:          contextArg,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runChecksum(cmd, args[0])
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	addFlags(cmd.PersistentFlags(), o)

	cmd.AddCommand(newDepsCommand(o), newVersionCommand(o))
	return cmd
}

func addFlags(flags *pflag.FlagSet, o *rootOptions) {
	flags.BoolVar(&o.opts.Hex, config.FlagHex, false, "Print the checksum as hex instead of base64")
	flags.StringArrayVar(&o.opts.IgnorePaths, "ignore-path", nil, "Path to skip inside each dependency directory, relative to it; a dependency itself is always hashed (repeatable)")
	flags.StringArrayVar(&o.opts.IgnorePatterns, "ignore-pattern", nil, "Dockerignore-style pattern, relative to the context, to skip (repeatable)")
	flags.StringArrayVar(&o.opts.ExtraPaths, "extra-path", nil, "Additional path to include, relative to the context (repeatable)")
	flags.StringArrayVar(&o.opts.ExtraStrings, "extra-string", nil, "Additional string to include (repeatable)")
	flags.StringVarP(&o.opts.DockerfilePath, config.FlagFile, "f", "", "Dockerfile path (default CONTEXT/Dockerfile)")
	flags.BoolVar(&o.opts.Dockerignore, config.FlagDockerignore, false, "Also skip paths matched by CONTEXT/.dockerignore")
	flags.IntVarP(&o.opts.Jobs, config.FlagJobs, "j", 0, "Number of paths digested in parallel (default number of CPUs)")
	flags.StringVar(&o.configPath, "config", "", "Config file (default CONTEXT/"+config.Filename+")")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn or error (default warn, or $"+logEnv+")")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "Shorthand for --log-level=debug")
	flags.BoolVar(&o.progress, "progress", false, "Show a progress bar (default on when stderr is a terminal)")
}

func contextArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return usageError{err}
	}
	return nil
}

func newDepsCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deps [flags] CONTEXT",
		Short: "List every digested path with its partial digest",
		Args:  contextArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runDeps(cmd, args[0])
		},
	}
}

func newVersionCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dfsum version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(o.stdout, version.Version)
		},
	}
}

func (o *rootOptions) runChecksum(cmd *cobra.Command, contextPath string) error {
	calc, done, err := o.calculator(cmd, contextPath)
	if err != nil {
		return err
	}
	res, err := calc.Compute(cmd.Context())
	done()
	if err != nil {
		return err
	}

	fmt.Fprintln(o.stdout, res.String())
	return nil
}

func (o *rootOptions) runDeps(cmd *cobra.Command, contextPath string) error {
	calc, done, err := o.calculator(cmd, contextPath)
	if err != nil {
		return err
	}
	partials, err := calc.Dependencies(cmd.Context())
	done()
	if err != nil {
		return err
	}

	for _, p := range partials {
		fmt.Fprintf(o.stdout, "%s %s\n", p.Path, p.OCIDigest())
	}
	return nil
}

// calculator merges the config file and flags and builds a Calculator. The
// returned func must be called once the computation finishes.
func (o *rootOptions) calculator(cmd *cobra.Command, contextPath string) (*checksum.Calculator, func(), error) {
	flags := cmd.Flags()

	logger, level, err := newLogger(o.stderr, o.logLevel, flags.Changed("log-level"), o.verbose)
	if err != nil {
		return nil, nil, err
	}

	fileOpts, err := config.Load(contextPath, o.configPath)
	if err != nil {
		return nil, nil, err
	}
	flagOpts := o.opts
	flagOpts.ContextPath = contextPath
	cfg, err := fileOpts.Overlay(flagOpts, flags.Changed).Resolve(logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Resolved options",
		"context", cfg.ContextDir,
		"dockerfile", cfg.DockerfilePath,
		"jobs", cfg.Jobs,
	)

	opts := []checksum.Option{checksum.WithLogger(logger)}

	showProgress := isTerminal(o.stderr) && level > slog.LevelDebug
	if flags.Changed("progress") {
		showProgress = o.progress
	}
	if !showProgress {
		return checksum.New(cfg, opts...), func() {}, nil
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(o.stderr),
		progressbar.OptionSetDescription("digesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	opts = append(opts, checksum.WithProgress(bar))
	return checksum.New(cfg, opts...), func() { bar.Close() }, nil
}
