package filesystem

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/GriffinCanCode/FileDeck/backend/internal/vfs"
	"github.com/charlievieth/fastwalk"
)

// sizeReportEvery is how many files pass between streaming size reports
const sizeReportEvery = 200

// MetadataOps handles size queries
type MetadataOps struct {
	*FilesystemOps
}

// GetTools returns metadata operation tool definitions
func (m *MetadataOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          OpDirectorySize.String(),
			Name:        "Directory Size",
			Description: "Total size and file count of a directory or archive subtree",
			Parameters: []types.Parameter{
				{Name: "dirPath", Type: "string", Description: "Directory or archive path", Required: true},
			},
			Returns: "object",
		},
	}
}

// DirectorySize sums every file below dirPath. Unreadable entries are
// skipped and counted.
func (m *MetadataOps) DirectorySize(ctx context.Context, h *task.Handle, params map[string]interface{}) (map[string]interface{}, error) {
	dirPath, err := requirePath(params, "directory-size", "dirPath")
	if err != nil {
		return nil, err
	}

	desc := m.classify(dirPath)
	if desc.IsArchivePath {
		return m.archiveSize(ctx, dirPath, desc)
	}

	info, err := os.Stat(desc.Path)
	if err != nil {
		return nil, errs.Wrap("directory-size", desc.Path, err)
	}
	if !info.IsDir() {
		return nil, errs.New(errs.NotADirectory, "directory-size", desc.Path, nil)
	}

	var size, files, dirs, skipped atomic.Int64
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, desc.Path, func(p string, d os.DirEntry, err error) error {
		if cerr := h.Checkpoint("directory-size"); cerr != nil {
			return cerr
		}
		if err != nil {
			skipped.Add(1)
			return nil
		}
		if p == desc.Path {
			return nil
		}
		if d.IsDir() {
			dirs.Add(1)
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			skipped.Add(1)
			return nil
		}
		size.Add(fi.Size())
		if n := files.Add(1); n%sizeReportEvery == 0 {
			h.Report(int(n), 0, p)
		}
		return nil
	})
	if err != nil {
		return nil, errs.Wrap("directory-size", desc.Path, err)
	}

	m.skipped("directory-size", int(skipped.Load()))
	return sizeResult(desc.Path, size.Load(), files.Load(), dirs.Load(), skipped.Load()), nil
}

func (m *MetadataOps) archiveSize(ctx context.Context, dirPath string, desc vfs.Descriptor) (map[string]interface{}, error) {
	var size, files, dirs int64
	err := m.withArchive(ctx, desc, func(res *vfs.Resolved) error {
		entries, err := m.Store.Walk(res.FinalArchivePath, res.FinalInternalPath)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir {
				dirs++
				continue
			}
			files++
			size += e.Size
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sizeResult(dirPath, size, files, dirs, 0), nil
}

func sizeResult(p string, size, files, dirs, skipped int64) map[string]interface{} {
	return map[string]interface{}{
		"path":      p,
		"totalSize": size,
		"humanSize": formatBytes(size),
		"fileCount": files,
		"dirCount":  dirs,
		"skipped":   skipped,
	}
}

// formatBytes formats bytes to human-readable size
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.2f %s", float64(bytes)/float64(div), units[exp])
}
