package hashsign

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDigestBlake3IsStableHex(t *testing.T) {
	p := writeTemp(t, "hi\n")
	d, err := Digest(p, AlgoBlake3)
	require.NoError(t, err)
	assert.Len(t, d, 64)
	d2, err := Digest(p, AlgoBlake3)
	require.NoError(t, err)
	assert.Equal(t, d, d2)
}

func TestDigestsSinglePass(t *testing.T) {
	p := writeTemp(t, "some content")
	digs, err := Digests(p, []Algo{AlgoBlake3, AlgoSHA256})
	require.NoError(t, err)
	assert.NotEqual(t, digs[AlgoBlake3], digs[AlgoSHA256])
	assert.Len(t, digs[AlgoSHA256], 64)
}

func TestDigestMissingFile(t *testing.T) {
	_, err := Digest(filepath.Join(t.TempDir(), "missing"), AlgoBlake3)
	assert.Error(t, err)
}

func TestDigestDirectoryRejected(t *testing.T) {
	_, err := Digest(t.TempDir(), AlgoBlake3)
	assert.Error(t, err)
}
