package checksum

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"slices"

	"github.com/tinyrange/dfsum/internal/digest"
)

// Combine folds items into a single digest. Items are sorted as raw byte
// strings before hashing, so the result depends on the multiset of items
// and not on their order. The input slice is not modified.
func Combine(items [][]byte) []byte {
	return fold(sortItems(items))
}

func sortItems(items [][]byte) [][]byte {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, bytes.Compare)
	return sorted
}

func fold(sorted [][]byte) []byte {
	h := digest.NewHash()
	for _, item := range sorted {
		h.Write(item)
	}
	return h.Sum(nil)
}

// Encode renders a digest as lowercase hex or as unpadded URL-safe base64.
func Encode(sum []byte, asHex bool) string {
	if asHex {
		return hex.EncodeToString(sum)
	}
	return base64.RawURLEncoding.EncodeToString(sum)
}

// Decode is the inverse of Encode.
func Decode(s string, asHex bool) ([]byte, error) {
	if asHex {
		return hex.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
