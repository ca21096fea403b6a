// Package vfs implements the virtual path layer over the native filesystem,
// archives (nested to any depth) and mounted SMB shares.
//
// A path string is classified into a Descriptor: a native path, a path into
// one archive on disk, or a path that crosses further archives stored inside
// that archive. Nested levels are resolved by extracting each enclosing
// archive to a temp file; edits made at depth are written back level by
// level, innermost first.
package vfs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/FileDeck/backend/internal/archive"
)

// Kind tags a classified path
type Kind int

const (
	KindNative Kind = iota
	KindArchive
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindNested:
		return "nested"
	default:
		return "native"
	}
}

// Descriptor is a classified path
type Descriptor struct {
	Raw string

	// Path is the native form of Raw after share translation
	Path string

	IsArchivePath bool
	ArchiveFile   string
	InternalPath  string
	IsNested      bool

	// NestedArchiveNames holds each inner archive's entry path within its
	// parent, outermost first.
	NestedArchiveNames []string

	// Share is set when Raw addressed a registered SMB share
	Share *Share

	final string
}

// Kind returns which of the three path forms d is
func (d Descriptor) Kind() Kind {
	switch {
	case d.IsNested:
		return KindNested
	case d.IsArchivePath:
		return KindArchive
	default:
		return KindNative
	}
}

// FinalInternalPath is the entry path inside the innermost archive
func (d Descriptor) FinalInternalPath() string {
	return d.final
}

// NamesArchive reports whether d addresses a whole archive (its root) rather
// than something inside it.
func (d Descriptor) NamesArchive() bool {
	return d.IsArchivePath && d.final == ""
}

// AsEntry reinterprets a descriptor that names an archive root as the file
// holding that archive: the innermost archive becomes an entry of its parent,
// and a top-level archive becomes a native file.
func (d Descriptor) AsEntry() Descriptor {
	if !d.NamesArchive() {
		return d
	}
	if !d.IsNested {
		return Descriptor{Raw: d.Raw, Path: d.ArchiveFile, Share: d.Share}
	}

	e := d
	last := len(d.NestedArchiveNames) - 1
	e.final = d.NestedArchiveNames[last]
	e.NestedArchiveNames = append([]string(nil), d.NestedArchiveNames[:last]...)
	e.IsNested = len(e.NestedArchiveNames) > 0
	return e
}

// Display renders d the way users address it
func (d Descriptor) Display() string {
	if !d.IsArchivePath {
		return d.Path
	}
	if d.InternalPath == "" {
		return d.ArchiveFile
	}
	return d.ArchiveFile + "/" + d.InternalPath
}

// Classifier turns path strings into descriptors
type Classifier struct {
	shares *ShareRegistry
}

// NewClassifier creates a classifier. shares may be nil.
func NewClassifier(shares *ShareRegistry) *Classifier {
	return &Classifier{shares: shares}
}

// Classify never fails: a path with no archive on disk along it is native.
// Only the outermost archive is checked for existence; deeper levels are
// recognized by extension alone.
func (c *Classifier) Classify(raw string) Descriptor {
	local, share, _ := c.shares.Translate(raw)
	d := Descriptor{Raw: raw, Share: share}

	slashed := strings.ReplaceAll(local, `\`, "/")
	segments := strings.Split(slashed, "/")

	for i, seg := range segments {
		if !archive.IsArchiveName(seg) {
			continue
		}
		prefix := filepath.FromSlash(strings.Join(segments[:i+1], "/"))
		if prefix == "" || !isRegularFile(prefix) {
			continue
		}

		d.Path = filepath.Clean(prefix)
		d.IsArchivePath = true
		d.ArchiveFile = d.Path
		d.InternalPath = archive.CleanInternal(strings.Join(segments[i+1:], "/"))
		d.NestedArchiveNames, d.final = splitNested(d.InternalPath)
		d.IsNested = len(d.NestedArchiveNames) > 0
		return d
	}

	d.Path = filepath.Clean(filepath.FromSlash(slashed))
	return d
}

// splitNested cuts internal at every archive-named segment
func splitNested(internal string) (nested []string, final string) {
	if internal == "" {
		return nil, ""
	}

	var current []string
	for _, seg := range strings.Split(internal, "/") {
		current = append(current, seg)
		if archive.IsArchiveName(seg) {
			nested = append(nested, strings.Join(current, "/"))
			current = current[:0]
		}
	}
	return nested, strings.Join(current, "/")
}

func isRegularFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
