//go:build !windows

package digest

import "io/fs"

// permBits returns the low nine permission bits.
func permBits(info fs.FileInfo) uint16 {
	return uint16(info.Mode().Perm())
}
