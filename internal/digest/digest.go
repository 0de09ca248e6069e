// Package digest computes recursive content digests of files and directory
// trees.
//
// Every visited entry is hashed on its own and contributes its digest to its
// parent directory:
//
//	file:      'F' || metadata || content
//	directory: 'D' || metadata || for each child, sorted by name: uvarint(len(name)) || name || digest(child)
//	symlink:   'L' || metadata || link target
//
// The metadata bytes come from a MetadataFunc; the default, PermissionBits,
// writes the two-byte permission word. Filters run before an entry is
// visited, so an excluded entry (and everything below it) never reaches the
// hash.
package digest

import (
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
)

// Size is the length in bytes of digests produced with the default hash.
const Size = blake2b.Size

// NewHash returns the default hash, BLAKE2b-512.
func NewHash() hash.Hash {
	h, err := blake2b.New512(nil)
	if err != nil {
		// Only reachable with an oversized key.
		panic(err)
	}
	return h
}

// Entry type tags.
const (
	tagFile    = 'F'
	tagDir     = 'D'
	tagSymlink = 'L'
)

// MetadataFunc writes additional per-entry data into the hash of the entry
// at path, before its content. It is the extension point for what besides
// content the digest covers (permissions, ownership, timestamps).
type MetadataFunc func(path string, info fs.FileInfo, w io.Writer) error

// Decision is a filter's verdict on an entry.
type Decision int

const (
	// Include digests the entry.
	Include Decision = iota
	// Exclude leaves the entry, and everything below it, out of the hash.
	Exclude
	// Descend excludes a directory unless something below it is included.
	// A directory that ends up with no included children is left out as if
	// excluded; otherwise it is digested normally. Non-directories are
	// excluded.
	Descend
)

// FilterFunc decides whether an entry below the root is digested. rel is
// the entry's path relative to the digest root. An error aborts the digest.
type FilterFunc func(path, rel string, info fs.FileInfo) (Decision, error)

// Option configures a Hasher.
type Option func(*Hasher)

// WithHash sets the hash constructor. Defaults to NewHash.
func WithHash(newHash func() hash.Hash) Option {
	return func(h *Hasher) { h.newHash = newHash }
}

// WithMetadata sets the per-entry metadata policy. Defaults to
// PermissionBits. A nil fn disables metadata.
func WithMetadata(fn MetadataFunc) Option {
	return func(h *Hasher) { h.metadata = fn }
}

// WithFilter adds a filter. Any Exclude wins; otherwise any Descend makes
// the entry descend-only.
func WithFilter(fn FilterFunc) Option {
	return func(h *Hasher) { h.filters = append(h.filters, fn) }
}

// WithIgnorePaths excludes entries whose path relative to the digest root
// equals one of paths.
func WithIgnorePaths(paths []string) Option {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[filepath.Clean(p)] = struct{}{}
	}
	return WithFilter(func(_, rel string, _ fs.FileInfo) (Decision, error) {
		if _, ignored := set[rel]; ignored {
			return Exclude, nil
		}
		return Include, nil
	})
}

// Hasher computes recursive digests. It holds no per-call state and is safe
// for concurrent use.
type Hasher struct {
	newHash  func() hash.Hash
	metadata MetadataFunc
	filters  []FilterFunc
}

// New creates a Hasher.
func New(opts ...Option) *Hasher {
	h := &Hasher{
		newHash:  NewHash,
		metadata: PermissionBits,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Error reports a failure to digest a path.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("digest %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Digest returns the digest of the file or directory at root. A symlink at
// root is followed. Filters never apply to root itself.
func (h *Hasher) Digest(root string) ([]byte, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &Error{Path: root, Err: err}
	}
	return h.entry(root, root, info)
}

func (h *Hasher) entry(root, path string, info fs.FileInfo) ([]byte, error) {
	hh := h.newHash()

	switch mode := info.Mode(); {
	case mode&fs.ModeSymlink != 0:
		if err := h.header(hh, tagSymlink, path, info); err != nil {
			return nil, err
		}
		target, err := os.Readlink(path)
		if err != nil {
			return nil, &Error{Path: path, Err: err}
		}
		// Dangling links fail the digest like any unreadable entry.
		if _, err := os.Stat(path); err != nil {
			return nil, &Error{Path: path, Err: err}
		}
		io.WriteString(hh, target)

	case mode.IsDir():
		if err := h.header(hh, tagDir, path, info); err != nil {
			return nil, err
		}
		if _, err := h.children(hh, root, path); err != nil {
			return nil, err
		}

	case mode.IsRegular():
		if err := h.header(hh, tagFile, path, info); err != nil {
			return nil, err
		}
		if err := copyFile(hh, path); err != nil {
			return nil, err
		}

	default:
		return nil, &Error{Path: path, Err: fmt.Errorf("unsupported file type %s", mode.Type())}
	}

	return hh.Sum(nil), nil
}

func (h *Hasher) header(w io.Writer, tag byte, path string, info fs.FileInfo) error {
	w.Write([]byte{tag})
	if h.metadata == nil {
		return nil
	}
	if err := h.metadata(path, info, w); err != nil {
		return &Error{Path: path, Err: fmt.Errorf("metadata: %w", err)}
	}
	return nil
}

// children writes the digests of the included entries of dir and returns
// how many there were. os.ReadDir sorts by name, so the result does not
// depend on directory iteration order.
func (h *Hasher) children(w io.Writer, root, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, &Error{Path: dir, Err: err}
	}

	var (
		lenBuf [binary.MaxVarintLen64]byte
		count  int
	)
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			return 0, &Error{Path: path, Err: err}
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return 0, &Error{Path: path, Err: err}
		}
		decision, err := h.decide(path, rel, info)
		if err != nil {
			return 0, &Error{Path: path, Err: err}
		}

		var sum []byte
		switch {
		case decision == Exclude:
			continue
		case decision == Descend && !info.IsDir():
			continue
		case decision == Descend:
			var kept int
			if sum, kept, err = h.descend(root, path, info); err != nil {
				return 0, err
			}
			if kept == 0 {
				continue
			}
		default:
			if sum, err = h.entry(root, path, info); err != nil {
				return 0, err
			}
		}

		n := binary.PutUvarint(lenBuf[:], uint64(len(e.Name())))
		w.Write(lenBuf[:n])
		io.WriteString(w, e.Name())
		w.Write(sum)
		count++
	}
	return count, nil
}

// descend digests a descend-only directory and reports how many of its
// children were included.
func (h *Hasher) descend(root, path string, info fs.FileInfo) ([]byte, int, error) {
	hh := h.newHash()
	if err := h.header(hh, tagDir, path, info); err != nil {
		return nil, 0, err
	}
	kept, err := h.children(hh, root, path)
	if err != nil {
		return nil, 0, err
	}
	return hh.Sum(nil), kept, nil
}

func (h *Hasher) decide(path, rel string, info fs.FileInfo) (Decision, error) {
	decision := Include
	for _, f := range h.filters {
		d, err := f(path, rel, info)
		if err != nil {
			return Exclude, err
		}
		switch d {
		case Exclude:
			return Exclude, nil
		case Descend:
			decision = Descend
		}
	}
	return decision, nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &Error{Path: path, Err: err}
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return &Error{Path: path, Err: err}
	}
	return nil
}
