package checksum

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"
)

func TestCombineOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := rapid.SliceOf(rapid.SliceOf(rapid.Byte())).Draw(t, "items")
		permuted := rapid.Permutation(items).Draw(t, "permuted")

		if !bytes.Equal(Combine(items), Combine(permuted)) {
			t.Fatalf("Combine depends on item order")
		}
	})
}

func TestCombineContentSensitive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// Fixed-length items, like digests.
		items := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 16, 16), 1, 8).Draw(t, "items")
		i := rapid.IntRange(0, len(items)-1).Draw(t, "item")
		j := rapid.IntRange(0, len(items[i])-1).Draw(t, "byte")

		changed := make([][]byte, len(items))
		for k := range items {
			changed[k] = bytes.Clone(items[k])
		}
		changed[i][j] ^= 0xff

		if bytes.Equal(Combine(items), Combine(changed)) {
			t.Fatalf("flipping a byte did not change the digest")
		}
	})
}

func TestCombineDoesNotModifyInput(t *testing.T) {
	items := [][]byte{[]byte("c"), []byte("a"), []byte("b")}
	Combine(items)
	if string(items[0]) != "c" || string(items[1]) != "a" || string(items[2]) != "b" {
		t.Errorf("input reordered: %q", items)
	}
}

func TestCombineKnownOrder(t *testing.T) {
	// Combine hashes the byte-sorted concatenation.
	want := fold([][]byte{[]byte("a"), []byte("ab"), []byte("b")})
	got := Combine([][]byte{[]byte("b"), []byte("ab"), []byte("a")})
	if !bytes.Equal(want, got) {
		t.Error("Combine should hash items in byte order")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sum := rapid.SliceOfN(rapid.Byte(), 64, 64).Draw(t, "sum")

		for _, asHex := range []bool{true, false} {
			decoded, err := Decode(Encode(sum, asHex), asHex)
			if err != nil {
				t.Fatalf("Decode(hex=%v) failed: %v", asHex, err)
			}
			if !bytes.Equal(sum, decoded) {
				t.Fatalf("round trip mismatch (hex=%v)", asHex)
			}
		}
	})
}

func TestEncodeFormats(t *testing.T) {
	sum := []byte{0xfb, 0xff, 0x00, 0x10}

	if got := Encode(sum, true); got != "fbff0010" {
		t.Errorf("hex: got %q", got)
	}
	// URL-safe alphabet, no padding.
	if got := Encode(sum, false); got != "-_8AEA" {
		t.Errorf("base64: got %q", got)
	}
}
