package hashsign

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genKeys(t *testing.T, password string) (pub, sec string, id KeyID) {
	t.Helper()
	dir := t.TempDir()
	pub = filepath.Join(dir, "key.pub")
	sec = filepath.Join(dir, "key.sec")
	id, err := GenerateKeyPair(pub, sec, "test", password)
	require.NoError(t, err)
	return pub, sec, id
}

func TestSignVerifyRoundTrip(t *testing.T) {
	pub, sec, _ := genKeys(t, "")
	target := filepath.Join(t.TempDir(), "target.txt")
	require.NoError(t, os.WriteFile(target, []byte("payload"), 0o644))

	require.NoError(t, Sign(target, sec, ""))
	ok, diag, err := Verify(target, pub)
	require.NoError(t, err)
	assert.True(t, ok, diag)
}

func TestVerifyMissingSignatureIsDistinctError(t *testing.T) {
	pub, _, _ := genKeys(t, "")
	target := filepath.Join(t.TempDir(), "target.txt")
	require.NoError(t, os.WriteFile(target, []byte("payload"), 0o644))

	_, _, err := Verify(target, pub)
	require.Error(t, err)
	var missing *SignatureMissingError
	assert.ErrorAs(t, err, &missing)
}

func TestVerifyTamperedFileFails(t *testing.T) {
	pub, sec, _ := genKeys(t, "")
	target := filepath.Join(t.TempDir(), "target.txt")
	require.NoError(t, os.WriteFile(target, []byte("payload"), 0o644))
	require.NoError(t, Sign(target, sec, ""))

	require.NoError(t, os.WriteFile(target, []byte("tampered!"), 0o644))
	ok, diag, err := Verify(target, pub)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEmpty(t, diag)
}

func TestEncryptedSecretKeyRequiresPassword(t *testing.T) {
	pub, sec, _ := genKeys(t, "s3cret")
	target := filepath.Join(t.TempDir(), "target.txt")
	require.NoError(t, os.WriteFile(target, []byte("payload"), 0o644))

	err := Sign(target, sec, "")
	assert.Error(t, err)

	require.NoError(t, Sign(target, sec, "s3cret"))
	ok, _, err := Verify(target, pub)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExtractKeyIDMatchesGenerated(t *testing.T) {
	pub, _, id := genKeys(t, "")
	got, err := ExtractKeyID(pub)
	require.NoError(t, err)
	assert.Equal(t, id.String(), got)
}
