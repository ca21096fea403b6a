package filesystem

import (
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
)

// countFiles is the first pass of a tree copy: everything that is not a
// directory counts, symlinks included.
func countFiles(h *task.Handle, op, root string) (int, error) {
	var n atomic.Int64
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		if cerr := h.Checkpoint(op); cerr != nil {
			return cerr
		}
		if err != nil || d.IsDir() {
			return nil
		}
		n.Add(1)
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(op, root, err)
	}
	return int(n.Load()), nil
}

// copyTree copies src to target in two passes so progress reports a real
// total. Cancellation is polled before every directory and file; failed
// files are skipped and reported.
func (o *OperationsOps) copyTree(h *task.Handle, op, src, target string) (*transferResult, error) {
	total, err := countFiles(h, op, src)
	if err != nil {
		return nil, err
	}

	result := &transferResult{Target: target, Total: total}

	var walk func(srcDir, dstDir string) error
	walk = func(srcDir, dstDir string) error {
		if err := h.Checkpoint(op); err != nil {
			return err
		}

		info, err := os.Stat(srcDir)
		if err != nil {
			return errs.Wrap(op, srcDir, err)
		}
		if err := os.MkdirAll(dstDir, info.Mode().Perm()|0o700); err != nil {
			return errs.Wrap(op, dstDir, err)
		}

		children, err := os.ReadDir(srcDir)
		if err != nil {
			return errs.Wrap(op, srcDir, err)
		}

		for _, child := range children {
			if err := h.Checkpoint(op); err != nil {
				return err
			}
			from := filepath.Join(srcDir, child.Name())
			to := filepath.Join(dstDir, child.Name())

			if child.IsDir() {
				if err := walk(from, to); err != nil {
					return err
				}
				continue
			}

			if err := copyEntry(from, to, child.Type()); err != nil {
				o.Logger.Warn("Skipping file during copy",
					zap.String("operation", op),
					zap.String("path", from),
					zap.Error(err))
				result.Skipped = append(result.Skipped, from)
			} else {
				result.Copied++
			}

			rel, _ := filepath.Rel(src, from)
			h.Report(result.Copied+len(result.Skipped), total, filepath.ToSlash(rel))

			if err := h.Yield(op); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(src, target); err != nil {
		return result, err
	}
	return result, nil
}

// copyEntry copies one non-directory: symlinks are recreated, everything
// else is copied as a regular file.
func copyEntry(from, to string, mode os.FileMode) error {
	if mode&os.ModeSymlink != 0 {
		link, err := os.Readlink(from)
		if err != nil {
			return err
		}
		return os.Symlink(link, to)
	}
	return copyFile(from, to)
}

// copyFile copies content, permissions and modification time
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errs.New(errs.NotAFile, "copy", src, nil)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
