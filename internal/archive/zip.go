package archive

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
)

type zipReader struct {
	path  string
	rc    *zip.ReadCloser
	list  []Entry
	files map[string]*zip.File
}

func openZip(op, archivePath string) (*zipReader, error) {
	rc, err := zip.OpenReader(archivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.New(errs.NotFound, op, archivePath, err)
		}
		return nil, errs.New(errs.ArchiveCorrupt, op, archivePath, err)
	}

	z := &zipReader{
		path:  archivePath,
		rc:    rc,
		list:  make([]Entry, 0, len(rc.File)),
		files: make(map[string]*zip.File, len(rc.File)),
	}
	for _, f := range rc.File {
		name := CleanInternal(f.Name)
		if name == "" {
			continue
		}
		isDir := strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
		z.list = append(z.list, Entry{
			Name:     baseName(name),
			Path:     name,
			Size:     int64(f.UncompressedSize64),
			Modified: f.Modified,
			IsDir:    isDir,
		})
		if !isDir {
			z.files[name] = f
		}
	}
	return z, nil
}

func (z *zipReader) entries() []Entry { return z.list }

func (z *zipReader) open(name string) (io.ReadCloser, error) {
	f, ok := z.files[name]
	if !ok {
		_, err := findEntry(z, "read", z.path, name)
		return nil, err
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errs.New(errs.ArchiveCorrupt, "read", z.path+"/"+name, err)
	}
	return rc, nil
}

func (z *zipReader) Close() error { return z.rc.Close() }

// change describes one rewrite of a zip archive. Existing entries are
// filtered through drop and rename in order, then add appends new entries.
type change struct {
	drop   func(name string) bool
	rename func(name string) (string, bool)
	add    func(zw *zip.Writer) error
}

// rewrite applies c to archivePath, creating the archive if it does not
// exist. The result replaces the original only if every step succeeded.
func (s *Store) rewrite(op, archivePath string, c change) (err error) {
	if !Writable(archivePath) {
		return errs.New(errs.ReadOnly, op, archivePath, nil)
	}

	var zr *zip.ReadCloser
	if _, statErr := os.Stat(archivePath); statErr == nil {
		zr, err = zip.OpenReader(archivePath)
		if err != nil {
			return errs.New(errs.ArchiveCorrupt, op, archivePath, err)
		}
		defer func() {
			if zr != nil {
				zr.Close()
			}
		}()
	} else if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return errs.Wrap(op, archivePath, err)
	}

	tmp := filepath.Join(filepath.Dir(archivePath), "."+uuid.NewString()+".tmp")
	out, err := os.Create(tmp)
	if err != nil {
		return errs.Wrap(op, archivePath, err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(tmp)
		}
	}()

	zw := zip.NewWriter(out)

	if zr != nil {
		for _, f := range zr.File {
			name := CleanInternal(f.Name)
			if name == "" || (c.drop != nil && c.drop(name)) {
				continue
			}
			target := f.Name
			if c.rename != nil {
				if renamed, ok := c.rename(name); ok {
					target = renamed
					if strings.HasSuffix(f.Name, "/") {
						target += "/"
					}
				}
			}
			if err = copyEntry(zw, f, target); err != nil {
				return errs.New(errs.ArchiveCorrupt, op, archivePath+"/"+name, err)
			}
		}
	}

	if c.add != nil {
		if err = c.add(zw); err != nil {
			return err
		}
	}

	if err = zw.Close(); err != nil {
		return errs.Wrap(op, archivePath, err)
	}
	if err = out.Close(); err != nil {
		return errs.Wrap(op, archivePath, err)
	}
	if zr != nil {
		zr.Close()
		zr = nil
	}
	if err = os.Rename(tmp, archivePath); err != nil {
		os.Remove(tmp)
		return errs.Wrap(op, archivePath, err)
	}
	return nil
}

// copyEntry re-encodes an existing entry under name
func copyEntry(zw *zip.Writer, f *zip.File, name string) error {
	hdr := f.FileHeader
	hdr.Name = name
	hdr.Extra = nil

	w, err := zw.CreateHeader(&hdr)
	if err != nil {
		return err
	}
	if strings.HasSuffix(name, "/") {
		return nil
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(w, rc)
	return err
}

// addFile appends the on-disk file src under name. The source is opened
// before any header is written, so an unreadable source leaves no trace.
func addFile(zw *zip.Writer, src, name string) error {
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
		return errs.New(errs.NotAFile, "add", src, nil)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

func addDir(zw *zip.Writer, name string) error {
	_, err := zw.Create(strings.TrimSuffix(name, "/") + "/")
	return err
}
