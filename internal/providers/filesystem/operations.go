package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/GriffinCanCode/FileDeck/backend/internal/archive"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/validate"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/GriffinCanCode/FileDeck/backend/internal/vfs"
	"go.uber.org/zap"
)

// OperationsOps handles copy, move and rename across every storage domain
type OperationsOps struct {
	*FilesystemOps
}

// GetTools returns file operation tool definitions
func (o *OperationsOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          OpCopy.String(),
			Name:        "Copy",
			Description: "Copy a file or directory between disk and archives; collisions get a (-copyN) suffix",
			Parameters: []types.Parameter{
				{Name: "sourcePath", Type: "string", Description: "Source path", Required: true},
				{Name: "destinationPath", Type: "string", Description: "Destination directory or path", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          OpMove.String(),
			Name:        "Move",
			Description: "Move a file or directory; falls back to copy and delete across devices",
			Parameters: []types.Parameter{
				{Name: "sourcePath", Type: "string", Description: "Source path", Required: true},
				{Name: "destinationPath", Type: "string", Description: "Destination directory or path", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          OpRename.String(),
			Name:        "Rename",
			Description: "Rename a file, directory or archive entry in place",
			Parameters: []types.Parameter{
				{Name: "sourcePath", Type: "string", Description: "Path to rename", Required: true},
				{Name: "newName", Type: "string", Description: "New base name", Required: true},
			},
			Returns: "object",
		},
	}
}

// transferResult summarizes one copy
type transferResult struct {
	Target  string
	Copied  int
	Total   int
	Skipped []string
}

func (r *transferResult) data(source string) map[string]interface{} {
	skipped := r.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	return map[string]interface{}{
		"source":      source,
		"destination": r.Target,
		"filesCopied": r.Copied,
		"totalFiles":  r.Total,
		"skipped":     skipped,
	}
}

// Copy copies a file or directory
func (o *OperationsOps) Copy(ctx context.Context, h *task.Handle, params map[string]interface{}) (map[string]interface{}, error) {
	src, err := requirePath(params, "copy", "sourcePath")
	if err != nil {
		return nil, err
	}
	dst, err := requirePath(params, "copy", "destinationPath")
	if err != nil {
		return nil, err
	}

	result, err := o.transfer(ctx, h, "copy", o.classify(src).AsEntry(), o.classify(dst))
	if err != nil {
		return nil, err
	}
	o.skipped("copy", len(result.Skipped))
	return result.data(src), nil
}

// transfer routes a copy by the storage domains of both sides
func (o *OperationsOps) transfer(ctx context.Context, h *task.Handle, op string, src, dst vfs.Descriptor) (*transferResult, error) {
	switch {
	case !src.IsArchivePath && !dst.IsArchivePath:
		return o.copyNative(h, op, src.Path, dst.Path)
	case src.IsArchivePath && !dst.IsArchivePath:
		return o.archiveToDisk(ctx, h, op, src, dst.Path)
	case !src.IsArchivePath && dst.IsArchivePath:
		return o.diskToArchive(ctx, h, op, src.Path, dst)
	default:
		return o.archiveToArchive(ctx, h, op, src, dst)
	}
}

// nativeTarget places name inside dst when dst is an existing directory and
// renames around any collision.
func nativeTarget(name, dst string, dir bool) string {
	target := dst
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		target = filepath.Join(dst, name)
	}
	return uniqueName(target, dir, exists)
}

func (o *OperationsOps) copyNative(h *task.Handle, op, src, dst string) (*transferResult, error) {
	info, err := os.Lstat(src)
	if err != nil {
		return nil, errs.Wrap(op, src, err)
	}

	target := nativeTarget(filepath.Base(src), dst, info.IsDir())
	if info.IsDir() && insideOrSame(src, target) {
		return nil, errs.Newf(errs.InvalidArgument, op, target, "cannot copy a directory into itself")
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, errs.Wrap(op, target, err)
	}

	if !info.IsDir() {
		name := filepath.Base(target)
		h.Report(0, 1, name)
		if err := copyFile(src, target); err != nil {
			return nil, errs.Wrap(op, src, err)
		}
		h.Report(1, 1, name)
		return &transferResult{Target: target, Copied: 1, Total: 1}, nil
	}

	return o.copyTree(h, op, src, target)
}

func (o *OperationsOps) archiveToDisk(ctx context.Context, h *task.Handle, op string, src vfs.Descriptor, dst string) (*transferResult, error) {
	var result *transferResult
	err := o.withArchive(ctx, src, func(res *vfs.Resolved) error {
		entry, err := o.Store.Stat(res.FinalArchivePath, res.FinalInternalPath)
		if err != nil {
			return err
		}

		name := path.Base(res.FinalInternalPath)
		if res.FinalInternalPath == "" {
			name = strings.TrimSuffix(filepath.Base(src.ArchiveFile), filepath.Ext(src.ArchiveFile))
		}
		target := nativeTarget(name, dst, entry.IsDir)

		if !entry.IsDir {
			h.Report(0, 1, name)
			if err := o.Store.Extract(res.FinalArchivePath, res.FinalInternalPath, target); err != nil {
				return err
			}
			h.Report(1, 1, name)
			result = &transferResult{Target: target, Copied: 1, Total: 1}
			return nil
		}

		n, err := o.Store.ExtractTree(h, res.FinalArchivePath, res.FinalInternalPath, target)
		if err != nil {
			return err
		}
		result = &transferResult{Target: target, Copied: n, Total: n}
		return nil
	})
	return result, err
}

// archiveTarget picks the entry name for name copied to res: inside the
// addressed directory when it is one, as named otherwise.
func (o *OperationsOps) archiveTarget(res *vfs.Resolved, name string, dir bool) string {
	internal := res.FinalInternalPath
	target := internal
	if internal == "" || o.Store.IsDir(res.FinalArchivePath, internal) {
		target = archive.JoinInternal(internal, name)
	}
	return uniqueName(target, dir, func(candidate string) bool {
		_, err := o.Store.Stat(res.FinalArchivePath, candidate)
		return err == nil
	})
}

func (o *OperationsOps) diskToArchive(ctx context.Context, h *task.Handle, op, src string, dst vfs.Descriptor) (*transferResult, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, errs.Wrap(op, src, err)
	}

	var result *transferResult
	err = o.mutateArchive(ctx, dst, func(res *vfs.Resolved) error {
		entry := o.archiveTarget(res, filepath.Base(src), info.IsDir())
		display := dst.ArchiveFile + "/" + strings.Join(append(append([]string{}, dst.NestedArchiveNames...), entry), "/")

		if !info.IsDir() {
			h.Report(0, 1, path.Base(entry))
			if err := o.Store.Write(res.FinalArchivePath, src, entry); err != nil {
				return err
			}
			h.Report(1, 1, path.Base(entry))
			result = &transferResult{Target: display, Copied: 1, Total: 1}
			return nil
		}

		items, err := collectItems(h, op, src, entry)
		if err != nil {
			return err
		}
		written, err := o.Store.WriteMany(h, res.FinalArchivePath, items)
		if err != nil {
			return err
		}
		result = &transferResult{Target: display, Copied: written.Added, Total: written.Total, Skipped: written.Skipped}
		return nil
	})
	return result, err
}

// collectItems is the count pass for a directory copied into an archive.
// Empty directories are kept as explicit entries.
func collectItems(h *task.Handle, op, src, prefix string) ([]archive.Item, error) {
	items := []archive.Item{{Name: prefix, Dir: true}}

	var walk func(dir, internal string) error
	walk = func(dir, internal string) error {
		if err := h.Checkpoint(op); err != nil {
			return err
		}
		children, err := os.ReadDir(dir)
		if err != nil {
			return errs.Wrap(op, dir, err)
		}
		for _, child := range children {
			p := filepath.Join(dir, child.Name())
			name := internal + "/" + child.Name()
			if child.IsDir() {
				items = append(items, archive.Item{Name: name, Dir: true})
				if err := walk(p, name); err != nil {
					return err
				}
				continue
			}
			items = append(items, archive.Item{Source: p, Name: name})
		}
		return nil
	}

	if err := walk(src, prefix); err != nil {
		return nil, err
	}
	return items, nil
}

func (o *OperationsOps) archiveToArchive(ctx context.Context, h *task.Handle, op string, src, dst vfs.Descriptor) (*transferResult, error) {
	if err := os.MkdirAll(o.Resolver.TempDir(), 0o755); err != nil {
		return nil, errs.Wrap(op, o.Resolver.TempDir(), err)
	}
	staging, err := os.MkdirTemp(o.Resolver.TempDir(), "transfer-")
	if err != nil {
		return nil, errs.Wrap(op, o.Resolver.TempDir(), err)
	}
	defer os.RemoveAll(staging)

	extracted, err := o.archiveToDisk(ctx, h, op, src, staging)
	if err != nil {
		return nil, err
	}
	return o.diskToArchive(ctx, h, op, extracted.Target, dst)
}

// Move moves a file or directory. Same-volume native moves are a rename;
// everything else is copy then delete.
func (o *OperationsOps) Move(ctx context.Context, h *task.Handle, params map[string]interface{}) (map[string]interface{}, error) {
	src, err := requirePath(params, "move", "sourcePath")
	if err != nil {
		return nil, err
	}
	dst, err := requirePath(params, "move", "destinationPath")
	if err != nil {
		return nil, err
	}

	sd, dd := o.classify(src).AsEntry(), o.classify(dst)

	if !sd.IsArchivePath && !dd.IsArchivePath {
		result, crossDevice, err := o.moveNative(h, sd.Path, dd.Path)
		if err != nil {
			return nil, err
		}
		data := result.data(src)
		data["crossDevice"] = crossDevice
		return data, nil
	}

	result, err := o.transfer(ctx, h, "move", sd, dd)
	if err != nil {
		return nil, err
	}
	if len(result.Skipped) > 0 {
		o.skipped("move", len(result.Skipped))
		return nil, errs.Newf(errs.Unknown, "move", src, "%d files could not be copied; source kept", len(result.Skipped))
	}

	if sd.IsArchivePath {
		err = o.mutateArchive(ctx, sd, func(res *vfs.Resolved) error {
			_, err := o.Store.Delete(res.FinalArchivePath, res.FinalInternalPath)
			return err
		})
	} else {
		err = removeNative(sd.Path)
	}
	if err != nil {
		return nil, err
	}
	return result.data(src), nil
}

// rename is the same-volume move primitive
var rename = os.Rename

func (o *OperationsOps) moveNative(h *task.Handle, src, dst string) (*transferResult, bool, error) {
	info, err := os.Lstat(src)
	if err != nil {
		return nil, false, errs.Wrap("move", src, err)
	}

	target := nativeTarget(filepath.Base(src), dst, info.IsDir())
	if info.IsDir() && insideOrSame(src, target) {
		return nil, false, errs.Newf(errs.InvalidArgument, "move", target, "cannot move a directory into itself")
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, false, errs.Wrap("move", target, err)
	}

	err = rename(src, target)
	if err == nil {
		return &transferResult{Target: target, Copied: 1, Total: 1}, false, nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return nil, false, errs.Wrap("move", src, err)
	}

	o.Logger.Info("Cross-device move, copying instead",
		zap.String("source", src),
		zap.String("target", target))

	var result *transferResult
	if info.IsDir() {
		result, err = o.copyTree(h, "move", src, target)
	} else {
		h.Report(0, 1, filepath.Base(target))
		err = copyFile(src, target)
		h.Report(1, 1, filepath.Base(target))
		result = &transferResult{Target: target, Copied: 1, Total: 1}
	}
	if err != nil {
		return nil, true, errs.Wrap("move", src, err)
	}
	if len(result.Skipped) > 0 {
		o.skipped("move", len(result.Skipped))
		return nil, true, errs.Newf(errs.Unknown, "move", src, "%d files could not be copied; source kept", len(result.Skipped))
	}
	if err := os.RemoveAll(src); err != nil {
		return nil, true, errs.Wrap("move", src, err)
	}
	return result, true, nil
}

// Rename renames in place; a collision is an error, never an auto-rename
func (o *OperationsOps) Rename(ctx context.Context, h *task.Handle, params map[string]interface{}) (map[string]interface{}, error) {
	src, err := requirePath(params, "rename", "sourcePath")
	if err != nil {
		return nil, err
	}
	newName, err := requireString(params, "rename", "newName")
	if err != nil {
		return nil, err
	}
	if err := validate.Name("newName", newName); err != nil {
		return nil, errs.New(errs.InvalidArgument, "rename", newName, err)
	}

	sd := o.classify(src).AsEntry()
	if sd.IsArchivePath {
		var to string
		err := o.mutateArchive(ctx, sd, func(res *vfs.Resolved) error {
			to = archive.JoinInternal(path.Dir(res.FinalInternalPath), newName)
			return o.Store.Rename(res.FinalArchivePath, res.FinalInternalPath, to)
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"renamed": true, "source": src, "newName": newName, "entry": to}, nil
	}

	if !exists(sd.Path) {
		return nil, errs.New(errs.NotFound, "rename", sd.Path, nil)
	}
	target := filepath.Join(filepath.Dir(sd.Path), newName)
	if target == sd.Path {
		return map[string]interface{}{"renamed": false, "source": src, "destination": target}, nil
	}
	if exists(target) {
		return nil, errs.New(errs.AlreadyExists, "rename", target, nil)
	}
	if err := os.Rename(sd.Path, target); err != nil {
		return nil, errs.Wrap("rename", sd.Path, err)
	}
	return map[string]interface{}{"renamed": true, "source": src, "destination": target}, nil
}

// uniqueName returns p, or the first free "stem(-copyN).ext" variant of it.
// Directories have no extension: the suffix goes after the whole name.
func uniqueName(p string, isDir bool, taken func(string) bool) string {
	if !taken(p) {
		return p
	}

	dir, name := splitLast(p)
	stem, ext := name, ""
	if !isDir {
		stem, ext = splitExt(name)
	}
	for n := 1; ; n++ {
		candidate := dir + fmt.Sprintf("%s(-copy%d)%s", stem, n, ext)
		if !taken(candidate) {
			return candidate
		}
	}
}

// splitLast splits after the final separator of either kind
func splitLast(p string) (dir, name string) {
	i := strings.LastIndexAny(p, `/\`)
	return p[:i+1], p[i+1:]
}

// splitExt keeps compound archive suffixes together
func splitExt(name string) (stem, ext string) {
	lower := strings.ToLower(name)
	for _, compound := range []string{".tar.gz", ".tar.zst"} {
		if strings.HasSuffix(lower, compound) && len(name) > len(compound) {
			return name[:len(name)-len(compound)], name[len(name)-len(compound):]
		}
	}
	ext = filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return name[:len(name)-len(ext)], ext
}

func insideOrSame(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	return err == nil && (rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))))
}
