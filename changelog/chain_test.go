package changelog

import (
	"path/filepath"
	"testing"

	"github.com/kwinsch/historify/hashsign"
	"github.com/kwinsch/historify/journal"
	"github.com/kwinsch/historify/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithKey(t *testing.T) (*repository.Repository, string) {
	t.Helper()
	root := t.TempDir()
	repo, err := repository.Init(root, "acme-archive")
	require.NoError(t, err)
	secPath := filepath.Join(root, "signing.key")
	pubPath := filepath.Join(root, "signing.pub")
	_, err = hashsign.GenerateKeyPair(pubPath, secPath, "", "")
	require.NoError(t, err)
	return repo, secPath
}

func TestStateStartsSeeded(t *testing.T) {
	repo, _ := newRepoWithKey(t)
	c := New(repo)
	st, err := c.State()
	require.NoError(t, err)
	assert.Equal(t, StateSeeded, st)
}

func TestLifecycleFirstCallSignsSeedAndOpensChangelog(t *testing.T) {
	repo, key := newRepoWithKey(t)
	c := New(repo)

	opened, err := c.Lifecycle(key, "")
	require.NoError(t, err)
	assert.FileExists(t, opened)
	assert.FileExists(t, repo.SeedPath()+".minisig")

	st, err := c.State()
	require.NoError(t, err)
	assert.Equal(t, StateOpen, st)

	rows, err := journal.ReadAll(opened)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, journal.TypeClosing, rows[0].Type)
	assert.Equal(t, "db/seed.bin", rows[0].Path)
}

func TestLifecycleSecondCallClosesFirstChangelog(t *testing.T) {
	repo, key := newRepoWithKey(t)
	c := New(repo)

	first, err := c.Lifecycle(key, "")
	require.NoError(t, err)

	second, err := c.Lifecycle(key, "")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.FileExists(t, first+".minisig")

	rows, err := journal.ReadAll(second)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, journal.TypeClosing, rows[0].Type)
}

func TestAppendCommentRequiresOpenChangelog(t *testing.T) {
	repo, _ := newRepoWithKey(t)
	c := New(repo)
	err := c.AppendComment("hello")
	assert.Error(t, err)
}

func TestAppendCommentOnOpenChangelog(t *testing.T) {
	repo, key := newRepoWithKey(t)
	c := New(repo)
	opened, err := c.Lifecycle(key, "")
	require.NoError(t, err)

	require.NoError(t, c.AppendComment("checkpoint"))
	rows, err := journal.ReadAll(opened)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, journal.TypeComment, rows[1].Type)
	assert.Equal(t, "checkpoint", rows[1].Blake3)
}
