package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKeepsRelativeLayout(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, filepath.Join(dir, "photos"), map[string]string{
		"a.jpg":      "a",
		"trip/b.jpg": "b",
		"trip/c.jpg": "c",
		"empty/":     "",
	})
	single := testutil.WriteFile(t, filepath.Join(dir, "notes.txt"), "n")
	out := filepath.Join(dir, "out.zip")
	rec := &testutil.ProgressRecorder{}

	result, err := NewStore(nil).Build(task.New(t.Context(), "zip", rec.Record), []string{filepath.Join(dir, "photos"), single}, out)
	require.NoError(t, err)

	assert.Equal(t, 4, result.FilesAdded)
	assert.Equal(t, 4, result.TotalFiles)
	assert.Positive(t, result.ArchiveSizeBytes)
	assert.Equal(t, []string{
		"notes.txt",
		"photos/a.jpg",
		"photos/trip/b.jpg",
		"photos/trip/c.jpg",
	}, testutil.ZipNames(t, out))

	events := rec.Events()
	require.Len(t, events, 4)
	assert.Equal(t, 4, events[3].Current)
	assert.Equal(t, 4, events[3].Total)
}

func TestBuildSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	testutil.WriteTree(t, src, map[string]string{"a.txt": "a", "c.txt": "c"})
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), filepath.Join(src, "b.txt")))
	out := filepath.Join(dir, "out.zip")

	result, err := NewStore(nil).Build(nil, []string{src}, out)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesAdded)
	assert.Equal(t, 3, result.TotalFiles)
	assert.Equal(t, []string{filepath.Join(src, "b.txt")}, result.Skipped)
	assert.Equal(t, []string{"src/a.txt", "src/c.txt"}, testutil.ZipNames(t, out))
}

func TestBuildFailsWhenNothingAdded(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.zip")

	_, err := NewStore(nil).Build(nil, []string{filepath.Join(dir, "missing.txt")}, out)
	require.Error(t, err)
	assert.NoFileExists(t, out)
}

func TestBuildCancelled(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, filepath.Join(dir, "src"), map[string]string{"1.txt": "1", "2.txt": "2", "3.txt": "3"})
	out := filepath.Join(dir, "out.zip")

	var h *task.Handle
	h = task.New(t.Context(), "zip", func(current, total int, label string) {
		if current == 1 {
			h.Cancel()
		}
	})

	_, err := NewStore(nil).Build(h, []string{filepath.Join(dir, "src")}, out)
	assert.True(t, errs.IsKind(err, errs.Cancelled))
	assert.NoFileExists(t, out)
}

func TestBuildRejectsReadOnlyTarget(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteFile(t, filepath.Join(dir, "a.txt"), "a")

	_, err := NewStore(nil).Build(nil, []string{src}, filepath.Join(dir, "out.tar.gz"))
	assert.True(t, errs.IsKind(err, errs.ReadOnly))
}

func TestBuildAddsToExistingArchive(t *testing.T) {
	dir := t.TempDir()
	out := testutil.WriteZip(t, filepath.Join(dir, "out.zip"), map[string]string{"old.txt": "old", "shared.txt": "before"})
	fresh := testutil.WriteFile(t, filepath.Join(dir, "fresh.txt"), "new")
	shared := testutil.WriteFile(t, filepath.Join(dir, "shared.txt"), "after")
	s := NewStore(nil)

	result, err := s.Build(nil, []string{fresh, shared}, out)
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesAdded)
	assert.Equal(t, []string{"fresh.txt", "old.txt", "shared.txt"}, testutil.ZipNames(t, out))

	text, err := s.ReadText(out, "shared.txt")
	require.NoError(t, err)
	assert.Equal(t, "after", text)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no staging files are left beside the archive")
}

func TestBuildCollapsesDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	first := testutil.WriteFile(t, filepath.Join(dir, "a", "x.txt"), "from a")
	second := testutil.WriteFile(t, filepath.Join(dir, "b", "x.txt"), "from b")
	out := filepath.Join(dir, "out.zip")
	s := NewStore(nil)

	result, err := s.Build(nil, []string{first, second}, out)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesAdded)
	assert.Equal(t, 1, result.TotalFiles)
	assert.Equal(t, []string{"x.txt"}, testutil.ZipNames(t, out))

	listing, err := s.List(out, "")
	require.NoError(t, err)
	assert.Len(t, listing.Files, 1)

	text, err := s.ReadText(out, "x.txt")
	require.NoError(t, err)
	assert.Equal(t, "from b", text)
}
