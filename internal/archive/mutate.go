package archive

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

// Item is one file or directory to add to an archive
type Item struct {
	Source string // on-disk path; empty for directories
	Name   string // internal path
	Dir    bool
}

// WriteResult summarizes a batch write
type WriteResult struct {
	Added   int      `json:"filesAdded"`
	Total   int      `json:"totalFiles"`
	Skipped []string `json:"skipped,omitempty"`
}

// Write stores the file at source as internal, replacing any existing entry
func (s *Store) Write(archivePath, source, internal string) error {
	internal = CleanInternal(internal)
	if internal == "" {
		return errs.Newf(errs.InvalidArgument, "write", archivePath, "empty entry name")
	}

	return s.rewrite("write", archivePath, change{
		drop: func(name string) bool { return name == internal },
		add: func(zw *zip.Writer) error {
			if err := addFile(zw, source, internal); err != nil {
				return errs.Wrap("write", source, err)
			}
			return nil
		},
	})
}

// WriteMany adds items in one rewrite. Unreadable sources are skipped with
// a warning; cancellation aborts the batch and leaves the archive untouched.
func (s *Store) WriteMany(h *task.Handle, archivePath string, items []Item) (*WriteResult, error) {
	return s.writeItems(h, "write", archivePath, items, false)
}

func (s *Store) writeItems(h *task.Handle, op, archivePath string, items []Item, requireAny bool) (*WriteResult, error) {
	items = s.dedupe(op, items)
	replaced := make(map[string]bool, len(items))
	files := 0
	for _, item := range items {
		replaced[item.Name] = true
		if !item.Dir {
			files++
		}
	}

	result := &WriteResult{Total: files}
	err := s.rewrite(op, archivePath, change{
		drop: func(name string) bool { return replaced[name] },
		add: func(zw *zip.Writer) error {
			current := 0
			for _, item := range items {
				if err := h.Checkpoint(op); err != nil {
					return err
				}
				if item.Dir {
					if err := addDir(zw, item.Name); err != nil {
						return errs.Wrap(op, archivePath+"/"+item.Name, err)
					}
					continue
				}

				current++
				h.Report(current, files, item.Name)

				if err := addFile(zw, item.Source, item.Name); err != nil {
					s.logger.Warn("Skipping unreadable file",
						zap.String("operation", op),
						zap.String("source", item.Source),
						zap.Error(err))
					result.Skipped = append(result.Skipped, item.Source)
					continue
				}
				result.Added++

				if err := h.Yield(op); err != nil {
					return err
				}
			}
			if requireAny && result.Added == 0 {
				return errs.Newf(errs.Unknown, op, archivePath, "no files could be added")
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// dedupe cleans item names and keeps one item per name. The last item for a
// name wins but keeps the first one's position.
func (s *Store) dedupe(op string, items []Item) []Item {
	out := make([]Item, 0, len(items))
	at := make(map[string]int, len(items))
	for _, item := range items {
		item.Name = CleanInternal(item.Name)
		i, seen := at[item.Name]
		if !seen {
			at[item.Name] = len(out)
			out = append(out, item)
			continue
		}
		if !out[i].Dir || !item.Dir {
			s.logger.Warn("Duplicate entry name in batch, keeping the last",
				zap.String("operation", op),
				zap.String("entry", item.Name),
				zap.String("dropped", out[i].Source),
				zap.String("kept", item.Source))
		}
		out[i] = item
	}
	return out
}

// Delete removes internal and, if it is a directory, everything below it.
// It returns the number of archive entries removed.
func (s *Store) Delete(archivePath, internal string) (int, error) {
	internal = CleanInternal(internal)
	if internal == "" {
		return 0, errs.Newf(errs.InvalidArgument, "delete", archivePath, "cannot delete the archive root from inside")
	}

	entries, err := s.Entries(archivePath)
	if err != nil {
		return 0, err
	}
	matched := 0
	for _, e := range entries {
		if within(e.Path, internal) {
			matched++
		}
	}
	if matched == 0 {
		return 0, errs.New(errs.NotFound, "delete", archivePath+"/"+internal, nil)
	}

	err = s.rewrite("delete", archivePath, change{
		drop: func(name string) bool { return within(name, internal) },
	})
	if err != nil {
		return 0, err
	}
	return matched, nil
}

// Rename moves the entry or directory subtree at from to to
func (s *Store) Rename(archivePath, from, to string) error {
	from, to = CleanInternal(from), CleanInternal(to)
	if from == "" || to == "" {
		return errs.Newf(errs.InvalidArgument, "rename", archivePath, "empty entry name")
	}
	if from == to {
		return nil
	}
	if within(to, from) {
		return errs.Newf(errs.InvalidArgument, "rename", archivePath+"/"+from, "cannot move a directory into itself")
	}

	if _, err := s.Stat(archivePath, from); err != nil {
		return err
	}
	if _, err := s.Stat(archivePath, to); err == nil {
		return errs.New(errs.AlreadyExists, "rename", archivePath+"/"+to, nil)
	}

	return s.rewrite("rename", archivePath, change{
		rename: func(name string) (string, bool) {
			if name == from {
				return to, true
			}
			if strings.HasPrefix(name, from+"/") {
				return to + name[len(from):], true
			}
			return "", false
		},
	})
}

// Mkdir adds an explicit directory entry
func (s *Store) Mkdir(archivePath, internal string) error {
	internal = CleanInternal(internal)
	if internal == "" {
		return errs.New(errs.AlreadyExists, "mkdir", archivePath, nil)
	}
	if _, err := os.Stat(archivePath); err == nil {
		if _, err := s.Stat(archivePath, internal); err == nil {
			return errs.New(errs.AlreadyExists, "mkdir", archivePath+"/"+internal, nil)
		}
	}

	return s.rewrite("mkdir", archivePath, change{
		add: func(zw *zip.Writer) error { return addDir(zw, internal) },
	})
}

// Extract writes the file entry internal to dest
func (s *Store) Extract(archivePath, internal, dest string) error {
	rc, err := s.Open(archivePath, internal)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errs.Wrap("extract", dest, err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return errs.Wrap("extract", dest, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(dest)
		return errs.New(errs.ArchiveCorrupt, "extract", archivePath+"/"+internal, err)
	}
	return errs.Wrap("extract", dest, out.Close())
}

// ExtractTree extracts the subtree at prefix into destDir and returns the
// number of files written. The prefix itself maps onto destDir.
func (s *Store) ExtractTree(h *task.Handle, archivePath, prefix, destDir string) (int, error) {
	prefix = CleanInternal(prefix)

	entries, err := s.Walk(archivePath, prefix)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return 0, errs.Wrap("extract", destDir, err)
	}

	total := 0
	for _, e := range entries {
		if !e.IsDir {
			total++
		}
	}

	written := 0
	for _, e := range entries {
		if err := h.Checkpoint("extract"); err != nil {
			return written, err
		}

		rel := strings.TrimPrefix(e.Path, dirPrefix(prefix))
		target := filepath.Join(destDir, filepath.FromSlash(rel))
		if !insideDir(destDir, target) {
			return written, errs.Newf(errs.ArchiveCorrupt, "extract", archivePath+"/"+e.Path, "entry escapes destination")
		}

		if e.IsDir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, errs.Wrap("extract", target, err)
			}
			continue
		}

		h.Report(written+1, total, e.Path)
		if err := s.Extract(archivePath, e.Path, target); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func insideDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
