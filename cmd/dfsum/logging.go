package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// logEnv names the environment variable read when --log-level is not given.
const logEnv = "DFSUM_LOG"

// newLogger builds the stderr logger. An explicit --log-level wins over
// $DFSUM_LOG, and -v wins over both.
func newLogger(w io.Writer, flagLevel string, flagSet, verbose bool) (*slog.Logger, slog.Level, error) {
	level := slog.LevelWarn

	name := flagLevel
	if !flagSet {
		name = os.Getenv(logEnv)
	}
	if name != "" {
		if err := level.UnmarshalText([]byte(name)); err != nil {
			return nil, 0, usageError{fmt.Errorf("invalid log level %q", name)}
		}
	}
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), level, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
