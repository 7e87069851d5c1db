package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kwinsch/historify/changelog"
	"github.com/kwinsch/historify/hashsign"
	"github.com/kwinsch/historify/journal"
	"github.com/kwinsch/historify/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*repository.Repository, repository.Category) {
	t.Helper()
	root := t.TempDir()
	repo, err := repository.Init(root, "acme-archive")
	require.NoError(t, err)

	secPath := filepath.Join(root, "signing.key")
	pubPath := filepath.Join(root, "signing.pub")
	_, err = hashsign.GenerateKeyPair(pubPath, secPath, "", "")
	require.NoError(t, err)

	dataDir := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, repo.AddCategory("docs", dataDir))

	c := changelog.New(repo)
	_, err = c.Lifecycle(secPath, "")
	require.NoError(t, err)

	cat, err := repo.Category("docs")
	require.NoError(t, err)
	return repo, cat
}

func openChangelogRows(t *testing.T, repo *repository.Repository) []journal.Transaction {
	t.Helper()
	c := changelog.New(repo)
	open, err := c.CurrentOpen()
	require.NoError(t, err)
	rows, err := journal.ReadAll(open)
	require.NoError(t, err)
	return rows
}

func TestScanEmitsNewForFreshFile(t *testing.T) {
	repo, cat := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(cat.DataPath, "a.txt"), []byte("hello"), 0o644))

	s := New(repo, 0)
	require.NoError(t, s.Scan(cat))

	rows := openChangelogRows(t, repo)
	require.Len(t, rows, 2) // closing + new
	assert.Equal(t, journal.TypeNew, rows[1].Type)
	assert.Equal(t, "a.txt", rows[1].Path)
}

func TestScanTwiceWithNoChangeEmitsNothingNew(t *testing.T) {
	repo, cat := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(cat.DataPath, "a.txt"), []byte("hello"), 0o644))

	s := New(repo, 0)
	require.NoError(t, s.Scan(cat))
	require.NoError(t, s.Scan(cat))

	rows := openChangelogRows(t, repo)
	require.Len(t, rows, 2) // closing + new; second scan added nothing
}

func TestScanDetectsChange(t *testing.T) {
	repo, cat := setup(t)
	path := filepath.Join(cat.DataPath, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	s := New(repo, 0)
	require.NoError(t, s.Scan(cat))

	require.NoError(t, os.WriteFile(path, []byte("goodbye"), 0o644))
	require.NoError(t, s.Scan(cat))

	rows := openChangelogRows(t, repo)
	require.Len(t, rows, 3)
	assert.Equal(t, journal.TypeChanged, rows[2].Type)
}

func TestScanDetectsMove(t *testing.T) {
	repo, cat := setup(t)
	oldPath := filepath.Join(cat.DataPath, "a.txt")
	require.NoError(t, os.WriteFile(oldPath, []byte("hello"), 0o644))

	s := New(repo, 0)
	require.NoError(t, s.Scan(cat))

	newPath := filepath.Join(cat.DataPath, "b.txt")
	require.NoError(t, os.Rename(oldPath, newPath))
	require.NoError(t, s.Scan(cat))

	rows := openChangelogRows(t, repo)
	require.Len(t, rows, 3)
	assert.Equal(t, journal.TypeMove, rows[2].Type)
	assert.Equal(t, "b.txt", rows[2].Path)
	assert.Equal(t, "a.txt", rows[2].Blake3)
}

func TestScanDetectsDeletion(t *testing.T) {
	repo, cat := setup(t)
	path := filepath.Join(cat.DataPath, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	s := New(repo, 0)
	require.NoError(t, s.Scan(cat))

	require.NoError(t, os.Remove(path))
	require.NoError(t, s.Scan(cat))

	rows := openChangelogRows(t, repo)
	require.Len(t, rows, 3)
	assert.Equal(t, journal.TypeDeleted, rows[2].Type)
	assert.Equal(t, "a.txt", rows[2].Path)
}

func TestScanDetectsDuplicate(t *testing.T) {
	repo, cat := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(cat.DataPath, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cat.DataPath, "b.txt"), []byte("hello"), 0o644))

	s := New(repo, 0)
	require.NoError(t, s.Scan(cat))

	rows := openChangelogRows(t, repo)
	require.Len(t, rows, 3) // closing + new(a) + duplicate(b)
	assert.Equal(t, journal.TypeNew, rows[1].Type)
	assert.Equal(t, journal.TypeDuplicate, rows[2].Type)
}

func TestScanRescanAfterDuplicateEmitsNothingNew(t *testing.T) {
	repo, cat := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(cat.DataPath, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cat.DataPath, "b.txt"), []byte("hello"), 0o644))

	s := New(repo, 0)
	require.NoError(t, s.Scan(cat))
	require.NoError(t, s.Scan(cat))

	rows := openChangelogRows(t, repo)
	// closing + new(a) + duplicate(b); the second scan, with neither file
	// touched, must not emit a spurious move for either path.
	require.Len(t, rows, 3)
}

func TestScanFailsWithoutOpenChangelog(t *testing.T) {
	root := t.TempDir()
	repo, err := repository.Init(root, "acme-archive")
	require.NoError(t, err)
	dataDir := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, repo.AddCategory("docs", dataDir))
	cat, err := repo.Category("docs")
	require.NoError(t, err)

	s := New(repo, 0)
	assert.Error(t, s.Scan(cat))
}

func TestScanWithWorkerPoolProducesSameResult(t *testing.T) {
	repo, cat := setup(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(cat.DataPath, string(rune('a'+i))+".txt"), []byte("content"), 0o644))
	}
	s := New(repo, 4)
	require.NoError(t, s.Scan(cat))

	rows := openChangelogRows(t, repo)
	// closing + 1 new + 4 duplicates (all share the same content)
	assert.Len(t, rows, 6)
}
