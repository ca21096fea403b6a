package vfs

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/GriffinCanCode/FileDeck/backend/internal/archive"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/id"
	"go.uber.org/zap"
)

// TempHook observes temp file creation (+n) and removal (-n)
type TempHook func(delta int)

// Resolver flattens archive descriptors into a single on-disk archive
type Resolver struct {
	store   *archive.Store
	tempDir string
	logger  *zap.Logger
	hook    TempHook
}

// NewResolver creates a resolver extracting nested levels into tempDir
func NewResolver(store *archive.Store, tempDir string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Resolver{store: store, tempDir: tempDir, logger: logger}
}

// WithTempHook sets the temp file observer
func (r *Resolver) WithTempHook(hook TempHook) *Resolver {
	r.hook = hook
	return r
}

// TempDir returns the directory temp copies are extracted into
func (r *Resolver) TempDir() string {
	return r.tempDir
}

type level struct {
	parent string // archive holding entry: the real archive or a temp copy
	entry  string // entry path within parent
	temp   string // extracted copy of entry
}

// Resolved is the flat view of an archive descriptor. It owns the temp
// copies made for nested levels until Release.
type Resolved struct {
	FinalArchivePath  string
	FinalInternalPath string

	r        *Resolver
	levels   []level
	once     sync.Once
	released bool
}

// Resolve produces a flat view of d. Native descriptors are rejected. On
// failure every temp copy made so far is already removed.
func (r *Resolver) Resolve(ctx context.Context, d Descriptor) (*Resolved, error) {
	if !d.IsArchivePath {
		return nil, errs.Newf(errs.InvalidArgument, "resolve", d.Path, "not an archive path")
	}

	res := &Resolved{
		FinalArchivePath:  d.ArchiveFile,
		FinalInternalPath: d.FinalInternalPath(),
		r:                 r,
	}
	if !d.IsNested {
		return res, nil
	}

	if err := os.MkdirAll(r.tempDir, 0o755); err != nil {
		return nil, errs.Wrap("resolve", r.tempDir, err)
	}

	current := d.ArchiveFile
	for _, name := range d.NestedArchiveNames {
		if err := ctx.Err(); err != nil {
			res.Release()
			return nil, errs.New(errs.Cancelled, "resolve", d.Display(), err)
		}

		temp := filepath.Join(r.tempDir, id.TempName(name))
		err := r.store.Extract(current, name, temp)
		if err != nil {
			os.Remove(temp)
			res.Release()
			return nil, errs.New(errs.ArchiveCorrupt, "resolve", current+"/"+name, err)
		}
		res.levels = append(res.levels, level{parent: current, entry: name, temp: temp})
		r.tempAdded(1)

		r.logger.Debug("Extracted nested archive",
			zap.String("parent", current),
			zap.String("entry", name),
			zap.String("temp", temp))
		current = temp
	}

	res.FinalArchivePath = current
	return res, nil
}

// Sweep removes temp copies an earlier process left in the temp dir. Only
// names shaped like the resolver's own temp names are touched.
func (r *Resolver) Sweep() (int, error) {
	entries, err := os.ReadDir(r.tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errs.Wrap("sweep", r.tempDir, err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !id.IsTempName(e.Name()) {
			continue
		}
		p := filepath.Join(r.tempDir, e.Name())
		if err := os.Remove(p); err != nil {
			r.logger.Warn("Failed to remove stale temp archive", zap.String("temp", p), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func (r *Resolver) tempAdded(n int) {
	if r.hook != nil {
		r.hook(n)
	}
}

// Nested reports whether the view was built from temp copies
func (res *Resolved) Nested() bool {
	return len(res.levels) > 0
}

// TempPaths lists the temp copies owned by res, outermost first
func (res *Resolved) TempPaths() []string {
	paths := make([]string, 0, len(res.levels))
	for _, l := range res.levels {
		paths = append(paths, l.temp)
	}
	return paths
}

// WriteBack re-inserts every modified level into its parent, innermost
// first, so the edit reaches the real archive on disk.
func (res *Resolved) WriteBack(ctx context.Context) error {
	if res.released {
		return errs.Newf(errs.Unknown, "write-back", res.FinalArchivePath, "resolution already released")
	}

	for i := len(res.levels) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return errs.New(errs.Cancelled, "write-back", res.levels[i].parent, err)
		}
		l := res.levels[i]
		if err := res.r.store.Write(l.parent, l.temp, l.entry); err != nil {
			return errs.Wrap("write-back", l.parent+"/"+l.entry, err)
		}
	}
	return nil
}

// Release removes every temp copy. It is safe to call more than once.
func (res *Resolved) Release() {
	if res == nil {
		return
	}
	res.once.Do(func() {
		res.released = true
		removed := 0
		for i := len(res.levels) - 1; i >= 0; i-- {
			if err := os.Remove(res.levels[i].temp); err != nil && !os.IsNotExist(err) {
				res.r.logger.Warn("Failed to remove temp archive",
					zap.String("temp", res.levels[i].temp),
					zap.Error(err))
				continue
			}
			removed++
		}
		if removed > 0 && res.r.hook != nil {
			res.r.hook(-removed)
		}
	})
}
