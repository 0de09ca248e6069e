// Package version holds the build version of dfsum.
package version

// Version is set at build time with
// -ldflags "-X github.com/tinyrange/dfsum/internal/version.Version=v1.2.3".
var Version = "dev"
