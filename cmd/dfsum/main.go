// Command dfsum prints a checksum of a Dockerfile and every build-context
// path its COPY and ADD instructions reference.
//
//	dfsum [flags] CONTEXT
//	dfsum deps [flags] CONTEXT
//	dfsum version
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tinyrange/dfsum/internal/config"
)

// usageError marks errors caused by how dfsum was invoked.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var uerr usageError
	var cerr *config.Error
	if errors.As(err, &uerr) || errors.As(err, &cerr) {
		return 1
	}
	return 2
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCommand(stdout, stderr)
	// A nil slice makes cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	return cmd.Execute()
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "dfsum: %v\n", err)
		os.Exit(exitCode(err))
	}
}
