package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCreatesSkeleton(t *testing.T) {
	root := t.TempDir()
	repo, err := Init(root, "acme-archive")
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(root, "db"))
	assert.DirExists(t, filepath.Join(root, "db", "keys"))
	assert.DirExists(t, filepath.Join(root, "changes"))
	assert.FileExists(t, repo.SeedPath())
	assert.FileExists(t, repo.IntegrityPath())

	seed, err := os.ReadFile(repo.SeedPath())
	require.NoError(t, err)
	assert.Len(t, seed, seedSize)

	assert.Equal(t, "acme-archive", repo.Config.Get("repository.name", ""))
	assert.Equal(t, "blake3,sha256", repo.Config.Get("hash.algorithms", ""))
}

func TestInitIsIdempotentAndKeepsSeed(t *testing.T) {
	root := t.TempDir()
	repo, err := Init(root, "acme-archive")
	require.NoError(t, err)
	seed1, err := os.ReadFile(repo.SeedPath())
	require.NoError(t, err)

	_, err = Init(root, "acme-archive")
	require.NoError(t, err)
	seed2, err := os.ReadFile(repo.SeedPath())
	require.NoError(t, err)
	assert.Equal(t, seed1, seed2)
}

func TestOpenRejectsNonRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}

func TestAddCategoryInsideRoot(t *testing.T) {
	root := t.TempDir()
	repo, err := Init(root, "acme-archive")
	require.NoError(t, err)

	require.NoError(t, repo.AddCategory("docs", "docs"))
	cat, err := repo.Category("docs")
	require.NoError(t, err)
	assert.False(t, cat.External)
	assert.Equal(t, filepath.Join(root, "docs"), cat.DataPath)
}

func TestAddCategoryOutsideRoot(t *testing.T) {
	root := t.TempDir()
	external := t.TempDir()
	repo, err := Init(root, "acme-archive")
	require.NoError(t, err)

	require.NoError(t, repo.AddCategory("media", external))
	cat, err := repo.Category("media")
	require.NoError(t, err)
	assert.True(t, cat.External)
	assert.Equal(t, external, cat.DataPath)
}

func TestCategoriesListsAllRegistered(t *testing.T) {
	root := t.TempDir()
	repo, err := Init(root, "acme-archive")
	require.NoError(t, err)

	require.NoError(t, repo.AddCategory("docs", "docs"))
	require.NoError(t, repo.AddCategory("code", "code"))

	cats, err := repo.Categories()
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "code", cats[0].Name)
	assert.Equal(t, "docs", cats[1].Name)
}

func TestIntegrityUpsertAndRead(t *testing.T) {
	root := t.TempDir()
	repo, err := Init(root, "acme-archive")
	require.NoError(t, err)

	require.NoError(t, repo.UpsertIntegrity(IntegrityRow{
		ChangelogFile: "changes/changelog-2026-01-01.csv",
		Blake3:        "deadbeef",
		SignatureFile: "changes/changelog-2026-01-01.csv.minisig",
		Verified:      "true",
	}))

	rows, err := repo.ReadIntegrity()
	require.NoError(t, err)
	row, ok := rows["changes/changelog-2026-01-01.csv"]
	require.True(t, ok)
	assert.Equal(t, "deadbeef", row.Blake3)
}
