// Package testutil provides fixtures and assertions shared by backend tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// FixedTime is the modification time stamped on fixture entries
var FixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// WriteFile creates path (and its parents) with content
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WriteTree creates files under root from a name→content map. Names ending
// in "/" become empty directories.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(t, os.MkdirAll(p, 0o755))
			continue
		}
		WriteFile(t, p, content)
	}
}

// ZipBytes encodes entries as a zip archive. Names ending in "/" become
// directory entries; entries are written in name order.
func ZipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: FixedTime}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		if !strings.HasSuffix(name, "/") {
			_, err = w.Write([]byte(entries[name]))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// WriteZip writes a zip archive at path
func WriteZip(t *testing.T, path string, entries map[string]string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, ZipBytes(t, entries), 0o644))
	return path
}

// WriteNestedZip writes outer at path holding inner (as innerName) plus
// extra outer entries.
func WriteNestedZip(t *testing.T, path, innerName string, inner, extra map[string]string) string {
	t.Helper()
	outer := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		outer[k] = v
	}
	outer[innerName] = string(ZipBytes(t, inner))
	return WriteZip(t, path, outer)
}

// WriteTarGz writes a gzip-compressed tar archive at path
func WriteTarGz(t *testing.T, path string, entries map[string]string) string {
	t.Helper()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, name := range names {
		hdr := &tar.Header{Name: name, Mode: 0o644, ModTime: FixedTime, Typeflag: tar.TypeReg, Size: int64(len(entries[name]))}
		if strings.HasSuffix(name, "/") {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
			hdr.Size = 0
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(entries[name]))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// ZipNames lists the raw entry names of the archive at path
func ZipNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// Event is one recorded progress report
type Event struct {
	Current int
	Total   int
	Label   string
}

// ProgressRecorder collects progress reports
type ProgressRecorder struct {
	mu     sync.Mutex
	events []Event
}

// Record implements task.ProgressFunc
func (p *ProgressRecorder) Record(current, total int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Current: current, Total: total, Label: label})
}

// Events returns a copy of the recorded reports
func (p *ProgressRecorder) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// MockProvider is a mock service provider for transport tests
type MockProvider struct {
	mock.Mock
}

// Definition mocks the Definition method.
func (m *MockProvider) Definition() types.Service {
	args := m.Called()
	return args.Get(0).(types.Service)
}

// Execute mocks the Execute method.
func (m *MockProvider) Execute(ctx context.Context, operation string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	args := m.Called(ctx, operation, params, appCtx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Result), args.Error(1)
}

// AssertSuccess is a helper to assert a successful result.
func AssertSuccess(t *testing.T, result *types.Result) {
	t.Helper()
	if result == nil {
		t.Fatal("Result is nil")
	}
	if !result.Success {
		msg := "<nil>"
		if result.Error != nil {
			msg = *result.Error
		}
		t.Fatalf("Expected success, got error: %s", msg)
	}
}

// AssertError is a helper to assert an error result of the given kind.
// An empty kind accepts any error.
func AssertError(t *testing.T, result *types.Result, kind string) {
	t.Helper()
	if result == nil {
		t.Fatal("Result is nil")
	}
	if result.Success {
		t.Fatal("Expected error, got success")
	}
	if result.Error == nil {
		t.Fatal("Expected error message, got nil")
	}
	if kind != "" && result.ErrorKind != kind {
		t.Fatalf("Expected error kind %s, got %s (%s)", kind, result.ErrorKind, *result.Error)
	}
}

// AssertDataField is a helper to assert a data field exists and matches expected value.
func AssertDataField(t *testing.T, result *types.Result, field string, expected interface{}) {
	t.Helper()
	AssertSuccess(t, result)

	if result.Data == nil {
		t.Fatal("Result data is nil")
	}

	actual, ok := result.Data[field]
	if !ok {
		t.Fatalf("Field %s not found in result data", field)
	}

	if actual != expected {
		t.Fatalf("Field %s: expected %v, got %v", field, expected, actual)
	}
}
