// Package archive provides read/write primitives over a single archive file.
//
// Supported formats:
//   - ZIP (.zip, .jar): read and write
//   - TAR (.tar, .tar.gz, .tgz, .tar.zst, .tzst): read only
//
// Entry names are always forward-slash normalized. Directories inside an
// archive are either explicit ("dir/" entries) or implied by the paths of
// deeper entries; listings merge both.
//
// Every mutating call rewrites the whole archive into a sibling temp file and
// renames it over the original, so a failed or cancelled write leaves the
// original untouched. Callers with many writes to the same archive should use
// the batch forms (WriteMany, Build).
package archive

import (
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"go.uber.org/zap"
)

// Format identifies an archive container format
type Format int

const (
	FormatNone Format = iota
	FormatZip
	FormatTar
	FormatTarGz
	FormatTarZst
)

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarGz:
		return "tar.gz"
	case FormatTarZst:
		return "tar.zst"
	default:
		return "none"
	}
}

// compound suffixes first so ".tar.gz" wins over ".gz"-less ".tar"
var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tar.zst", FormatTarZst},
	{".tgz", FormatTarGz},
	{".tzst", FormatTarZst},
	{".tar", FormatTar},
	{".zip", FormatZip},
	{".jar", FormatZip},
}

// DetectFormat determines the archive format from a file name
func DetectFormat(name string) Format {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) && len(lower) > len(s.suffix) {
			return s.format
		}
	}
	return FormatNone
}

// IsArchiveName reports whether name carries a recognized archive extension
func IsArchiveName(name string) bool {
	return DetectFormat(name) != FormatNone
}

// Writable reports whether archives named like name can be modified
func Writable(name string) bool {
	return DetectFormat(name) == FormatZip
}

// Entry describes one file or directory inside an archive
type Entry struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	IsDir    bool      `json:"isDirectory"`
}

// Listing is one level of an archive's virtual directory tree
type Listing struct {
	Files       []Entry `json:"files"`
	Directories []Entry `json:"directories"`
}

// CleanInternal normalizes an archive-internal path: forward slashes, no
// leading or trailing separator, "" for the archive root.
func CleanInternal(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return strings.TrimPrefix(p, "./")
}

// JoinInternal joins archive-internal path elements
func JoinInternal(elem ...string) string {
	return CleanInternal(path.Join(elem...))
}

func baseName(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

func dirPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// within reports whether name is prefix itself or lies below it
func within(name, prefix string) bool {
	return prefix == "" || name == prefix || strings.HasPrefix(name, prefix+"/")
}

// reader is the format-independent view of an open archive
type reader interface {
	entries() []Entry
	open(name string) (io.ReadCloser, error)
	Close() error
}

// Store implements archive primitives
type Store struct {
	logger *zap.Logger
}

// NewStore creates an archive store
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{logger: logger}
}

func (s *Store) openReader(op, archivePath string) (reader, error) {
	switch DetectFormat(archivePath) {
	case FormatZip:
		return openZip(op, archivePath)
	case FormatTar, FormatTarGz, FormatTarZst:
		return openTar(op, archivePath)
	default:
		return nil, errs.Newf(errs.ArchiveCorrupt, op, archivePath, "unsupported archive format")
	}
}

// Entries returns every raw entry in the archive
func (s *Store) Entries(archivePath string) ([]Entry, error) {
	r, err := s.openReader("list", archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.entries(), nil
}

// List returns the immediate children of prefix, split into files and
// directories. Directories implied by deeper entries are synthesized once.
func (s *Store) List(archivePath, prefix string) (*Listing, error) {
	prefix = CleanInternal(prefix)

	entries, err := s.Entries(archivePath)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Files: []Entry{}, Directories: []Entry{}}
	dirs := make(map[string]int)
	found := prefix == ""
	dp := dirPrefix(prefix)

	addDir := func(e Entry) {
		if i, ok := dirs[e.Path]; ok {
			if listing.Directories[i].Modified.IsZero() {
				listing.Directories[i].Modified = e.Modified
			}
			return
		}
		dirs[e.Path] = len(listing.Directories)
		listing.Directories = append(listing.Directories, e)
	}

	for _, e := range entries {
		if e.Path == prefix && prefix != "" {
			if !e.IsDir {
				return nil, errs.New(errs.NotADirectory, "list", archivePath+"/"+prefix, nil)
			}
			found = true
			continue
		}
		if !strings.HasPrefix(e.Path, dp) {
			continue
		}
		found = true

		rest := e.Path[len(dp):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			addDir(Entry{Name: rest[:i], Path: dp + rest[:i], IsDir: true})
			continue
		}
		if e.IsDir {
			addDir(e)
			continue
		}
		listing.Files = append(listing.Files, e)
	}

	if !found {
		return nil, errs.New(errs.NotFound, "list", archivePath+"/"+prefix, nil)
	}

	sort.Slice(listing.Files, func(i, j int) bool { return listing.Files[i].Name < listing.Files[j].Name })
	sort.Slice(listing.Directories, func(i, j int) bool { return listing.Directories[i].Name < listing.Directories[j].Name })
	return listing, nil
}

// Walk returns every file and directory below prefix, directories implied
// by deeper entries included, sorted by path.
func (s *Store) Walk(archivePath, prefix string) ([]Entry, error) {
	prefix = CleanInternal(prefix)

	entries, err := s.Entries(archivePath)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]Entry)
	found := prefix == ""
	dp := dirPrefix(prefix)

	for _, e := range entries {
		if e.Path == prefix {
			if !e.IsDir {
				return nil, errs.New(errs.NotADirectory, "walk", archivePath+"/"+prefix, nil)
			}
			found = true
			continue
		}
		if !strings.HasPrefix(e.Path, dp) {
			continue
		}
		found = true

		byPath[e.Path] = e
		for parent := path.Dir(e.Path); parent != "." && parent != prefix && len(parent) > len(prefix); parent = path.Dir(parent) {
			if _, ok := byPath[parent]; !ok {
				byPath[parent] = Entry{Name: baseName(parent), Path: parent, IsDir: true}
			}
		}
	}

	if !found {
		return nil, errs.New(errs.NotFound, "walk", archivePath+"/"+prefix, nil)
	}

	out := make([]Entry, 0, len(byPath))
	for _, e := range byPath {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Stat describes the file or (explicit or implied) directory at internal
func (s *Store) Stat(archivePath, internal string) (Entry, error) {
	internal = CleanInternal(internal)
	if internal == "" {
		return Entry{Name: baseName(archivePath), IsDir: true}, nil
	}

	entries, err := s.Entries(archivePath)
	if err != nil {
		return Entry{}, err
	}

	implied := false
	for _, e := range entries {
		if e.Path == internal {
			return e, nil
		}
		if strings.HasPrefix(e.Path, internal+"/") {
			implied = true
		}
	}
	if implied {
		return Entry{Name: baseName(internal), Path: internal, IsDir: true}, nil
	}
	return Entry{}, errs.New(errs.NotFound, "stat", archivePath+"/"+internal, nil)
}

// IsDir reports whether internal names a directory inside the archive.
// The archive root is always a directory; a missing archive has only a root.
func (s *Store) IsDir(archivePath, internal string) bool {
	e, err := s.Stat(archivePath, internal)
	return err == nil && e.IsDir
}

// Open streams the content of a file entry
func (s *Store) Open(archivePath, internal string) (io.ReadCloser, error) {
	internal = CleanInternal(internal)

	r, err := s.openReader("read", archivePath)
	if err != nil {
		return nil, err
	}

	rc, err := r.open(internal)
	if err != nil {
		r.Close()
		return nil, err
	}
	return &entryReader{ReadCloser: rc, parent: r}, nil
}

type entryReader struct {
	io.ReadCloser
	parent reader
}

func (e *entryReader) Close() error {
	err := e.ReadCloser.Close()
	if perr := e.parent.Close(); err == nil {
		err = perr
	}
	return err
}

// Read returns the bytes of a file entry
func (s *Store) Read(archivePath, internal string) ([]byte, error) {
	rc, err := s.Open(archivePath, internal)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errs.New(errs.ArchiveCorrupt, "read", archivePath+"/"+internal, err)
	}
	return data, nil
}

// ReadText returns a file entry decoded as text
func (s *Store) ReadText(archivePath, internal string) (string, error) {
	data, err := s.Read(archivePath, internal)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// findEntry resolves name against r's entries. Directories never match.
func findEntry(r reader, op, archivePath, name string) (Entry, error) {
	for _, e := range r.entries() {
		if e.Path != name {
			continue
		}
		if e.IsDir {
			return Entry{}, errs.New(errs.NotAFile, op, archivePath+"/"+name, nil)
		}
		return e, nil
	}
	return Entry{}, errs.Newf(errs.NotFound, op, archivePath+"/"+name, "entry not found")
}
