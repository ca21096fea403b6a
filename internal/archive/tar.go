package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// tarReader indexes a tar stream once; opening an entry rescans the stream
// because tar has no central directory.
type tarReader struct {
	path string
	list []Entry
}

func openTar(op, archivePath string) (*tarReader, error) {
	t := &tarReader{path: archivePath}
	err := t.scan(func(hdr *tar.Header, _ io.Reader) (bool, error) {
		name := CleanInternal(hdr.Name)
		if name == "" {
			return false, nil
		}
		mode := hdr.FileInfo().Mode()
		switch {
		case mode.IsDir():
			t.list = append(t.list, Entry{Name: baseName(name), Path: name, Modified: hdr.ModTime, IsDir: true})
		case mode.IsRegular():
			t.list = append(t.list, Entry{Name: baseName(name), Path: name, Size: hdr.Size, Modified: hdr.ModTime})
		}
		return false, nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.New(errs.NotFound, op, archivePath, err)
		}
		return nil, errs.New(errs.ArchiveCorrupt, op, archivePath, err)
	}
	return t, nil
}

// scan calls fn for each header until fn reports done
func (t *tarReader) scan(fn func(hdr *tar.Header, r io.Reader) (done bool, err error)) error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer f.Close()

	var src io.Reader = f
	switch DetectFormat(t.path) {
	case FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		src = gz
	case FormatTarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return err
		}
		defer zr.Close()
		src = zr
	}

	tr := tar.NewReader(src)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		done, err := fn(hdr, tr)
		if err != nil || done {
			return err
		}
	}
}

func (t *tarReader) entries() []Entry { return t.list }

func (t *tarReader) open(name string) (io.ReadCloser, error) {
	if _, err := findEntry(t, "read", t.path, name); err != nil {
		return nil, err
	}

	var data []byte
	err := t.scan(func(hdr *tar.Header, r io.Reader) (bool, error) {
		if CleanInternal(hdr.Name) != name || hdr.Typeflag == tar.TypeDir {
			return false, nil
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r); err != nil {
			return true, err
		}
		data = buf.Bytes()
		return true, nil
	})
	if err != nil {
		return nil, errs.New(errs.ArchiveCorrupt, "read", t.path+"/"+name, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (t *tarReader) Close() error { return nil }
