package keycache

import (
	"path/filepath"
	"testing"

	"github.com/kwinsch/historify/hashsign"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genKey(t *testing.T, dir, name string) (pub string, id string) {
	t.Helper()
	pubPath := filepath.Join(dir, name+".pub")
	secPath := filepath.Join(dir, name+".key")
	keyID, err := hashsign.GenerateKeyPair(pubPath, secPath, "", "")
	require.NoError(t, err)
	return pubPath, keyID.String()
}

func TestImportThenLookupExact(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	pubPath, id := genKey(t, dir, "alice")
	got, err := c.Import(pubPath)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	resolved, err := c.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "keys", id+".pub"), resolved)
}

func TestImportIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	pubPath, _ := genKey(t, dir, "bob")
	_, err = c.Import(pubPath)
	require.NoError(t, err)
	_, err = c.Import(pubPath)
	assert.NoError(t, err)
}

func TestLookupByPrefix(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	pubPath, id := genKey(t, dir, "carol")
	_, err = c.Import(pubPath)
	require.NoError(t, err)

	resolved, err := c.Lookup(id[:4])
	require.NoError(t, err)
	assert.Contains(t, resolved, id)
}

func TestLookupUnknownFails(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = c.Lookup("DEADBEEF")
	assert.Error(t, err)
}

func TestListReturnsSortedIDs(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	pubA, idA := genKey(t, dir, "a")
	pubB, idB := genKey(t, dir, "b")
	_, err = c.Import(pubA)
	require.NoError(t, err)
	_, err = c.Import(pubB)
	require.NoError(t, err)

	ids, err := c.List()
	require.NoError(t, err)
	assert.Contains(t, ids, idA)
	assert.Contains(t, ids, idB)
}
