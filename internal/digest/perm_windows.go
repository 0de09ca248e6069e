//go:build windows

package digest

import (
	"io/fs"
	"syscall"

	"golang.org/x/sys/windows"
)

// permBits maps the read-only attribute and entry type to a fixed word,
// since Windows has no POSIX permission bits.
func permBits(info fs.FileInfo) uint16 {
	readonly := readOnly(info)
	switch {
	case !readonly && !info.IsDir():
		return 0o444
	case !readonly && info.IsDir():
		return 0o555
	case readonly && !info.IsDir():
		return 0o666
	default:
		return 0o777
	}
}

func readOnly(info fs.FileInfo) bool {
	if attrs, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return attrs.FileAttributes&windows.FILE_ATTRIBUTE_READONLY != 0
	}
	return info.Mode().Perm()&0o200 == 0
}
