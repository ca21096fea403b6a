package archive

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
)

// BuildResult summarizes an archive build
type BuildResult struct {
	FilesAdded       int      `json:"filesAdded"`
	TotalFiles       int      `json:"totalFiles"`
	ArchiveSizeBytes int64    `json:"archiveSizeBytes"`
	Skipped          []string `json:"skipped,omitempty"`
}

// Build packs inputs into archivePath, creating it or adding to it. Files
// keep paths relative to their
// input's parent, so input directory "photos" becomes "photos/..." inside
// the archive; directories get no entry of their own. Unreadable files are
// skipped; Build fails only if nothing could be added or the operation was
// cancelled.
func (s *Store) Build(h *task.Handle, inputs []string, archivePath string) (*BuildResult, error) {
	if len(inputs) == 0 {
		return nil, errs.Newf(errs.InvalidArgument, "zip", archivePath, "no input paths")
	}
	if !Writable(archivePath) {
		return nil, errs.New(errs.ReadOnly, "zip", archivePath, nil)
	}

	var items []Item
	for _, input := range inputs {
		if err := h.Checkpoint("zip"); err != nil {
			return nil, err
		}
		collected, err := collect(h, input)
		if err != nil {
			return nil, err
		}
		items = append(items, collected...)
	}

	s.logger.Info("Building archive",
		zap.String("archive", archivePath),
		zap.Int("inputs", len(inputs)),
		zap.Int("items", len(items)))

	// An existing archive keeps its entries; same-named ones are replaced.
	written, err := s.writeItems(h, "zip", archivePath, items, true)
	if err != nil {
		return nil, err
	}

	result := &BuildResult{
		FilesAdded: written.Added,
		TotalFiles: written.Total,
		Skipped:    written.Skipped,
	}
	if info, err := os.Stat(archivePath); err == nil {
		result.ArchiveSizeBytes = info.Size()
	}
	return result, nil
}

// collect expands one input into archive items sorted by internal name
func collect(h *task.Handle, input string) ([]Item, error) {
	input = filepath.Clean(input)
	base := filepath.Base(input)

	info, err := os.Lstat(input)
	if err != nil || !info.IsDir() {
		// Missing or unreadable inputs are kept so they surface as skipped.
		return []Item{{Source: input, Name: base}}, nil
	}

	var (
		mu    sync.Mutex
		items []Item
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, input, func(p string, d os.DirEntry, err error) error {
		if h.Cancelled() {
			return h.Checkpoint("zip")
		}
		if err != nil || p == input || d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(input, p)
		if err != nil {
			return nil
		}
		item := Item{Source: p, Name: base + "/" + filepath.ToSlash(rel)}

		mu.Lock()
		items = append(items, item)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, errs.Wrap("zip", input, err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}
