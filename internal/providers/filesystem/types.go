package filesystem

import (
	"context"
	"os"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/archive"
	"github.com/GriffinCanCode/FileDeck/backend/internal/compare"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/GriffinCanCode/FileDeck/backend/internal/vfs"
	"go.uber.org/zap"
)

// DirectoryEntry is the unified listing shape for native and archive entries
type DirectoryEntry struct {
	Name         string    `json:"name"`
	RelativePath string    `json:"relativePath"`
	FullPath     string    `json:"fullPath"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modifiedTime"`
	IsDirectory  bool      `json:"isDirectory"`
	IsSymlink    bool      `json:"isSymlink,omitempty"`
	IsArchive    bool      `json:"isArchive,omitempty"`

	// TargetType is "file" or "directory"; nil for broken symlinks
	TargetType *string `json:"targetType"`
}

var (
	typeFile      = "file"
	typeDirectory = "directory"
)

func targetType(isDir bool) *string {
	if isDir {
		return &typeDirectory
	}
	return &typeFile
}

// Recorder receives per-operation metrics
type Recorder interface {
	RecordOperation(operation string, success bool, duration time.Duration)
	RecordSkipped(operation string, n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, bool, time.Duration) {}
func (nopRecorder) RecordSkipped(string, int)                   {}

// handler runs one operation; the returned map becomes the response data
type handler func(ctx context.Context, h *task.Handle, params map[string]interface{}) (map[string]interface{}, error)

// FilesystemOps provides the shared collaborators of every operation group
type FilesystemOps struct {
	Classifier *vfs.Classifier
	Resolver   *vfs.Resolver
	Store      *archive.Store
	Comparator *compare.Comparator
	Shares     *vfs.ShareRegistry
	Tasks      *task.Registry
	Logger     *zap.Logger
	Metrics    Recorder
}

func (ops *FilesystemOps) classify(p string) vfs.Descriptor {
	return ops.Classifier.Classify(p)
}

// withArchive resolves d and runs fn against the flat archive. The
// resolution is always released, on every return path.
func (ops *FilesystemOps) withArchive(ctx context.Context, d vfs.Descriptor, fn func(res *vfs.Resolved) error) error {
	res, err := ops.Resolver.Resolve(ctx, d)
	if err != nil {
		return err
	}
	defer res.Release()

	return fn(res)
}

// mutateArchive is withArchive followed by write-back through every
// enclosing level. A failed write-back fails the operation.
func (ops *FilesystemOps) mutateArchive(ctx context.Context, d vfs.Descriptor, fn func(res *vfs.Resolved) error) error {
	return ops.withArchive(ctx, d, func(res *vfs.Resolved) error {
		if err := fn(res); err != nil {
			return err
		}
		if !res.Nested() {
			return nil
		}
		return res.WriteBack(ctx)
	})
}

func (ops *FilesystemOps) skipped(operation string, n int) {
	if n > 0 {
		ops.Metrics.RecordSkipped(operation, n)
	}
}

// exists reports whether p exists without following a final symlink
func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}

// Success builds a successful envelope
func Success(operation string, data map[string]interface{}) *types.Result {
	return &types.Result{
		Success:   true,
		Operation: operation,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Failure builds a failed envelope from a classified error
func Failure(operation string, err error) *types.Result {
	msg := err.Error()
	return &types.Result{
		Success:   false,
		Operation: operation,
		Timestamp: time.Now().UTC(),
		Error:     &msg,
		ErrorKind: string(errs.KindOf(err)),
	}
}
