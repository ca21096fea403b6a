package compare

import (
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/archive"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTree records how often file content is opened
type countingTree struct {
	Tree
	opens atomic.Int32
}

func (c *countingTree) Open(rel string) (io.ReadCloser, error) {
	c.opens.Add(1)
	return c.Tree.Open(rel)
}

func TestIdenticalTrees(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	files := map[string]string{"a.txt": "a", "sub/b.txt": "bb", "sub/deep/c.txt": "ccc"}
	testutil.WriteTree(t, left, files)
	testutil.WriteTree(t, right, files)

	result, err := New(nil).Compare(nil, DiskTree(left), DiskTree(right), true)
	require.NoError(t, err)

	assert.Empty(t, result.OnlyInLeft)
	assert.Empty(t, result.OnlyInRight)
	assert.Empty(t, result.Different)
	assert.Equal(t, []string{"a.txt", "sub", "sub/b.txt", "sub/deep", "sub/deep/c.txt"}, result.Identical)
}

func TestSizeShortCircuitsWithoutReading(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	testutil.WriteFile(t, filepath.Join(left, "f.bin"), "short")
	testutil.WriteFile(t, filepath.Join(right, "f.bin"), "much longer content")

	l := &countingTree{Tree: DiskTree(left)}
	r := &countingTree{Tree: DiskTree(right)}

	result, err := New(nil).Compare(nil, l, r, false)
	require.NoError(t, err)

	assert.Equal(t, []Difference{{Path: "f.bin", Reason: ReasonSize}}, result.Different)
	assert.Zero(t, l.opens.Load())
	assert.Zero(t, r.opens.Load())
}

func TestTimestampsNeverDecide(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	lf := testutil.WriteFile(t, filepath.Join(left, "same.txt"), "content")
	testutil.WriteFile(t, filepath.Join(right, "same.txt"), "content")
	testutil.WriteFile(t, filepath.Join(left, "trap.txt"), "aaaa")
	rf := testutil.WriteFile(t, filepath.Join(right, "trap.txt"), "bbbb")

	old := time.Now().Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(lf, old, old))
	stamp := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(left, "trap.txt"), stamp, stamp))
	require.NoError(t, os.Chtimes(rf, stamp, stamp))

	result, err := New(nil).Compare(nil, DiskTree(left), DiskTree(right), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"same.txt"}, result.Identical)
	assert.Equal(t, []Difference{{Path: "trap.txt", Reason: ReasonContent}}, result.Different)
}

func TestPartitionIsExhaustive(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	testutil.WriteTree(t, left, map[string]string{"only-left.txt": "l", "kind": "file", "both/x.txt": "x"})
	testutil.WriteTree(t, right, map[string]string{"only-right.txt": "r", "kind/": "", "both/x.txt": "x"})
	rec := &testutil.ProgressRecorder{}

	result, err := New(nil).Compare(task.New(t.Context(), "compare", rec.Record), DiskTree(left), DiskTree(right), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"only-left.txt"}, result.OnlyInLeft)
	assert.Equal(t, []string{"only-right.txt"}, result.OnlyInRight)
	assert.Equal(t, []Difference{{Path: "kind", Reason: ReasonType}}, result.Different)
	assert.Equal(t, []string{"both"}, result.Identical)

	events := rec.Events()
	require.Len(t, events, 3)
	for _, e := range events {
		assert.Equal(t, 6, e.Total)
	}
}

func TestUnreadableDoesNotAbort(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	require.NoError(t, os.Symlink(filepath.Join(left, "nowhere"), filepath.Join(left, "link")))
	require.NoError(t, os.Symlink(filepath.Join(left, "nowhere"), filepath.Join(right, "link")))
	testutil.WriteFile(t, filepath.Join(left, "ok.txt"), "ok")
	testutil.WriteFile(t, filepath.Join(right, "ok.txt"), "ok")

	result, err := New(nil).Compare(nil, DiskTree(left), DiskTree(right), true)
	require.NoError(t, err)

	assert.Equal(t, []Difference{{Path: "link", Reason: ReasonUnreadable}}, result.Different)
	assert.Equal(t, []string{"ok.txt"}, result.Identical)
}

func TestDiskAgainstArchive(t *testing.T) {
	left := t.TempDir()
	testutil.WriteTree(t, left, map[string]string{"a.txt": "a", "d/b.txt": "b", "extra.txt": "e"})
	zipPath := testutil.WriteZip(t, filepath.Join(t.TempDir(), "r.zip"), map[string]string{
		"root/a.txt":   "a",
		"root/d/b.txt": "B",
		"root/z.txt":   "z",
	})

	right := ArchiveTree(archive.NewStore(nil), zipPath, "root")
	result, err := New(nil).Compare(nil, DiskTree(left), right, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"extra.txt"}, result.OnlyInLeft)
	assert.Equal(t, []string{"z.txt"}, result.OnlyInRight)
	assert.Equal(t, []Difference{{Path: "d/b.txt", Reason: ReasonContent}}, result.Different)
	assert.Equal(t, []string{"a.txt", "d"}, result.Identical)
}

func TestCompareCancelled(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	testutil.WriteTree(t, left, map[string]string{"a": "1", "b": "2"})

	h := task.New(t.Context(), "compare", nil)
	h.Cancel()

	_, err := New(nil).Compare(h, DiskTree(left), DiskTree(right), false)
	assert.Error(t, err)
}

func TestMissingRootFails(t *testing.T) {
	_, err := New(nil).Compare(nil, DiskTree(filepath.Join(t.TempDir(), "nope")), DiskTree(t.TempDir()), false)
	assert.Error(t, err)
}
