package filesystem

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/GriffinCanCode/FileDeck/backend/internal/archive"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/GriffinCanCode/FileDeck/backend/internal/vfs"
	"go.uber.org/zap"
)

// Name prefixes of cloud sync roots that show up as reparse points or
// dangling links but always behave as directories.
var syncFolderPrefixes = []string{"OneDrive", "iCloudDrive", "iCloud Drive", "Dropbox", "Google Drive"}

// DirectoryOps handles directory listing and creation
type DirectoryOps struct {
	*FilesystemOps
}

// GetTools returns directory operation tool definitions
func (d *DirectoryOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          OpList.String(),
			Name:        "List Directory",
			Description: "List a directory, archive root or archive-internal directory",
			Parameters: []types.Parameter{
				{Name: "folderPath", Type: "string", Description: "Directory or archive path", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          OpMkdir.String(),
			Name:        "Create Directory",
			Description: "Create a directory on disk or inside an archive",
			Parameters: []types.Parameter{
				{Name: "dirPath", Type: "string", Description: "Directory path", Required: true},
			},
			Returns: "object",
		},
	}
}

// List lists directory contents split into files and directories
func (d *DirectoryOps) List(ctx context.Context, h *task.Handle, params map[string]interface{}) (map[string]interface{}, error) {
	folder, err := requirePath(params, "list", "folderPath")
	if err != nil {
		return nil, err
	}

	desc := d.classify(folder)
	if desc.IsArchivePath {
		return d.listArchive(ctx, folder, desc)
	}

	files, dirs, err := d.listNative(h, desc.Path)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"path":        desc.Path,
		"isArchive":   false,
		"files":       files,
		"directories": dirs,
		"count":       len(files) + len(dirs),
	}, nil
}

func (d *DirectoryOps) listArchive(ctx context.Context, folder string, desc vfs.Descriptor) (map[string]interface{}, error) {
	var listing *archive.Listing
	err := d.withArchive(ctx, desc, func(res *vfs.Resolved) error {
		var err error
		listing, err = d.Store.List(res.FinalArchivePath, res.FinalInternalPath)
		return err
	})
	if err != nil {
		return nil, err
	}

	base := strings.TrimRight(folder, `/\`)
	convert := func(entries []archive.Entry) []DirectoryEntry {
		out := make([]DirectoryEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, DirectoryEntry{
				Name:         e.Name,
				RelativePath: e.Name,
				FullPath:     base + "/" + e.Name,
				Size:         e.Size,
				ModifiedTime: e.Modified,
				IsDirectory:  e.IsDir,
				IsArchive:    !e.IsDir && archive.IsArchiveName(e.Name),
				TargetType:   targetType(e.IsDir),
			})
		}
		return out
	}

	files, dirs := convert(listing.Files), convert(listing.Directories)
	return map[string]interface{}{
		"path":        folder,
		"isArchive":   true,
		"archiveFile": desc.ArchiveFile,
		"files":       files,
		"directories": dirs,
		"count":       len(files) + len(dirs),
	}, nil
}

// listNative lstats every child, follows symlinks once and keeps going
// past broken links.
func (d *DirectoryOps) listNative(h *task.Handle, dir string) ([]DirectoryEntry, []DirectoryEntry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, errs.Wrap("list", dir, err)
	}
	if !info.IsDir() {
		return nil, nil, errs.New(errs.NotADirectory, "list", dir, nil)
	}

	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errs.Wrap("list", dir, err)
	}

	files := []DirectoryEntry{}
	dirs := []DirectoryEntry{}
	for _, child := range children {
		if err := h.Checkpoint("list"); err != nil {
			return nil, nil, err
		}

		entry, ok := d.describe(dir, child.Name())
		if !ok {
			continue
		}
		if entry.IsDirectory {
			dirs = append(dirs, entry)
		} else {
			files = append(files, entry)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	return files, dirs, nil
}

func (d *DirectoryOps) describe(dir, name string) (DirectoryEntry, bool) {
	full := filepath.Join(dir, name)
	linfo, err := os.Lstat(full)
	if err != nil {
		d.Logger.Debug("Skipping vanished entry", zap.String("path", full), zap.Error(err))
		return DirectoryEntry{}, false
	}

	entry := DirectoryEntry{
		Name:         name,
		RelativePath: name,
		FullPath:     full,
		Size:         linfo.Size(),
		ModifiedTime: linfo.ModTime(),
		IsDirectory:  linfo.IsDir(),
		TargetType:   targetType(linfo.IsDir()),
	}

	mode := linfo.Mode()
	if mode&fs.ModeSymlink != 0 {
		entry.IsSymlink = true
		target, err := os.Stat(full)
		if err != nil {
			entry.IsDirectory = false
			entry.TargetType = nil
		} else {
			entry.IsDirectory = target.IsDir()
			entry.TargetType = targetType(target.IsDir())
			entry.Size = target.Size()
		}
	}

	if !entry.IsDirectory && isSyncFolder(name, mode) {
		entry.IsDirectory = true
		entry.TargetType = targetType(true)
		entry.Size = 0
	}

	entry.IsArchive = !entry.IsDirectory && archive.IsArchiveName(name)
	return entry, true
}

// isSyncFolder reports whether a vendor sync root with ambiguous mode bits
// should be treated as a directory.
func isSyncFolder(name string, mode fs.FileMode) bool {
	if mode&(fs.ModeIrregular|fs.ModeSymlink) == 0 {
		return false
	}
	for _, prefix := range syncFolderPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Mkdir creates a directory, failing if anything already exists there
func (d *DirectoryOps) Mkdir(ctx context.Context, h *task.Handle, params map[string]interface{}) (map[string]interface{}, error) {
	dirPath, err := requirePath(params, "mkdir", "dirPath")
	if err != nil {
		return nil, err
	}

	desc := d.classify(dirPath)
	if desc.NamesArchive() {
		return nil, errs.New(errs.AlreadyExists, "mkdir", desc.ArchiveFile, nil)
	}

	if desc.IsArchivePath {
		err := d.mutateArchive(ctx, desc, func(res *vfs.Resolved) error {
			return d.Store.Mkdir(res.FinalArchivePath, res.FinalInternalPath)
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"created": true, "path": dirPath}, nil
	}

	if exists(desc.Path) {
		return nil, errs.New(errs.AlreadyExists, "mkdir", desc.Path, nil)
	}
	if err := os.MkdirAll(desc.Path, 0o755); err != nil {
		return nil, errs.Wrap("mkdir", desc.Path, err)
	}

	d.Logger.Info("Directory created", zap.String("path", desc.Path))
	return map[string]interface{}{"created": true, "path": desc.Path}, nil
}
