package digest

import (
	"encoding/binary"
	"io"
	"io/fs"
)

// PermissionBits writes the entry's permission word as two big-endian
// bytes. See permBits for the platform encoding.
func PermissionBits(_ string, info fs.FileInfo, w io.Writer) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], permBits(info))
	_, err := w.Write(buf[:])
	return err
}
