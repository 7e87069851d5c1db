package verifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kwinsch/historify/changelog"
	"github.com/kwinsch/historify/hashsign"
	"github.com/kwinsch/historify/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSignedRepo(t *testing.T) (*repository.Repository, string) {
	t.Helper()
	root := t.TempDir()
	repo, err := repository.Init(root, "acme-archive")
	require.NoError(t, err)

	secPath := filepath.Join(root, "signing.key")
	pubPath := filepath.Join(root, "signing.pub")
	_, err = hashsign.GenerateKeyPair(pubPath, secPath, "", "")
	require.NoError(t, err)

	c := changelog.New(repo)
	_, err = c.Lifecycle(secPath, "")
	require.NoError(t, err)
	_, err = c.Lifecycle(secPath, "")
	require.NoError(t, err)

	return repo, pubPath
}

func TestVerifyRecentCleanChain(t *testing.T) {
	repo, pub := setupSignedRepo(t)
	v := New(repo, pub)
	result := v.VerifyRecent()
	assert.True(t, result.OK)
	assert.Equal(t, 0, result.ExitCode())
}

func TestVerifyFullChainCleanAndRebuildsIndex(t *testing.T) {
	repo, pub := setupSignedRepo(t)
	v := New(repo, pub)
	result := v.VerifyFullChain()
	assert.True(t, result.OK)

	rows, err := repo.ReadIntegrity()
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}

func TestVerifyDetectsTamperedClosingReference(t *testing.T) {
	repo, pub := setupSignedRepo(t)
	require.NoError(t, os.WriteFile(repo.SeedPath(), make([]byte, 1<<20), 0o644))

	v := New(repo, pub)
	result := v.VerifyFullChain()
	assert.False(t, result.OK)
	assert.Equal(t, 3, result.ExitCode())
}

func TestVerifyRecentWithNoSignedChangelogWarns(t *testing.T) {
	root := t.TempDir()
	repo, err := repository.Init(root, "acme-archive")
	require.NoError(t, err)
	v := New(repo, filepath.Join(root, "nonexistent.pub"))
	result := v.VerifyRecent()
	assert.True(t, result.OK)
	assert.Equal(t, 2, result.ExitCode())
}
