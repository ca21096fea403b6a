package compare

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/archive"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/charlievieth/fastwalk"
)

// Node is one enumerated path of a tree
type Node struct {
	Path     string    `json:"relativePath"`
	FullPath string    `json:"fullPath"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modifiedTime"`
	IsDir    bool      `json:"isDirectory"`
}

// Tree is a directory-like source that can be enumerated and read
type Tree interface {
	// Walk maps forward-slash relative paths to nodes. Shallow walks list
	// immediate children only.
	Walk(recursive bool) (map[string]Node, error)
	// Open reads the file at a relative path
	Open(rel string) (io.ReadCloser, error)
}

type diskTree struct {
	root string
}

// DiskTree returns a tree rooted at a native directory
func DiskTree(root string) Tree {
	return &diskTree{root: filepath.Clean(root)}
}

func (d *diskTree) node(p string, info os.FileInfo) Node {
	rel, _ := filepath.Rel(d.root, p)
	return Node{
		Path:     filepath.ToSlash(rel),
		FullPath: p,
		Size:     info.Size(),
		Modified: info.ModTime(),
		IsDir:    info.IsDir(),
	}
}

func (d *diskTree) Walk(recursive bool) (map[string]Node, error) {
	info, err := os.Stat(d.root)
	if err != nil {
		return nil, errs.Wrap("compare", d.root, err)
	}
	if !info.IsDir() {
		return nil, errs.New(errs.NotADirectory, "compare", d.root, nil)
	}

	nodes := make(map[string]Node)

	if !recursive {
		entries, err := os.ReadDir(d.root)
		if err != nil {
			return nil, errs.Wrap("compare", d.root, err)
		}
		for _, e := range entries {
			p := filepath.Join(d.root, e.Name())
			if info, ok := statFollow(p); ok {
				n := d.node(p, info)
				nodes[n.Path] = n
			}
		}
		return nodes, nil
	}

	var mu sync.Mutex
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, d.root, func(p string, _ os.DirEntry, err error) error {
		if err != nil || p == d.root {
			return nil
		}
		info, ok := statFollow(p)
		if !ok {
			return nil
		}
		n := d.node(p, info)

		mu.Lock()
		nodes[n.Path] = n
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, errs.Wrap("compare", d.root, err)
	}
	return nodes, nil
}

// statFollow stats through symlinks; broken links fall back to the link
// itself so they still take part, as unreadable files.
func statFollow(p string) (os.FileInfo, bool) {
	info, err := os.Stat(p)
	if err == nil {
		return info, true
	}
	info, err = os.Lstat(p)
	return info, err == nil
}

func (d *diskTree) Open(rel string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.root, filepath.FromSlash(rel)))
}

type archiveTree struct {
	store   *archive.Store
	archive string
	prefix  string
}

// ArchiveTree returns a tree rooted at prefix inside an archive
func ArchiveTree(store *archive.Store, archivePath, prefix string) Tree {
	return &archiveTree{store: store, archive: archivePath, prefix: archive.CleanInternal(prefix)}
}

func (a *archiveTree) rel(internal string) string {
	if a.prefix == "" {
		return internal
	}
	return strings.TrimPrefix(internal, a.prefix+"/")
}

func (a *archiveTree) Walk(recursive bool) (map[string]Node, error) {
	nodes := make(map[string]Node)

	if !recursive {
		listing, err := a.store.List(a.archive, a.prefix)
		if err != nil {
			return nil, err
		}
		for _, group := range [][]archive.Entry{listing.Directories, listing.Files} {
			for _, e := range group {
				nodes[a.rel(e.Path)] = a.node(e)
			}
		}
		return nodes, nil
	}

	entries, err := a.store.Walk(a.archive, a.prefix)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		nodes[a.rel(e.Path)] = a.node(e)
	}
	return nodes, nil
}

func (a *archiveTree) node(e archive.Entry) Node {
	return Node{
		Path:     a.rel(e.Path),
		FullPath: a.archive + "/" + e.Path,
		Size:     e.Size,
		Modified: e.Modified,
		IsDir:    e.IsDir,
	}
}

func (a *archiveTree) Open(rel string) (io.ReadCloser, error) {
	return a.store.Open(a.archive, archive.JoinInternal(a.prefix, rel))
}
