package snapshot

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kwinsch/historify/changelog"
	"github.com/kwinsch/historify/hashsign"
	"github.com/kwinsch/historify/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (*repository.Repository, string) {
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
	return repo, pubPath
}

func TestSnapshotProducesArchiveAndManifest(t *testing.T) {
	repo, pub := setupRepo(t)
	p := New(repo, pub)
	outDir := t.TempDir()
	base := filepath.Join(outDir, "snap1")

	produced, err := p.Snapshot(Options{OutputBase: base}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, produced, base+".tar.gz")
	assert.FileExists(t, base+".tar.gz")
	assert.FileExists(t, base+".manifest.yaml")
}

func TestSnapshotArchiveContainsRepositoryFiles(t *testing.T) {
	repo, pub := setupRepo(t)
	p := New(repo, pub)
	base := filepath.Join(t.TempDir(), "snap1")

	_, err := p.Snapshot(Options{OutputBase: base}, time.Now())
	require.NoError(t, err)

	f, err := os.Open(base + ".tar.gz")
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		names = append(names, hdr.Name)
	}
	assert.Contains(t, names, "db/seed.bin")
}

func TestSnapshotRefusesWhenRecentVerificationFails(t *testing.T) {
	repo, pub := setupRepo(t)
	// Close the first changelog, so that the latest signed changelog (the one
	// recent verification checks) has a closing row referencing the seed.
	_, err := changelog.New(repo).Lifecycle(filepath.Join(repo.Root, "signing.key"), "")
	require.NoError(t, err)
	// Corrupt the seed so recent verification's closing-row reference breaks.
	require.NoError(t, os.WriteFile(repo.SeedPath(), make([]byte, 1<<20), 0o644))

	p := New(repo, pub)
	_, err = p.Snapshot(Options{OutputBase: filepath.Join(t.TempDir(), "snap")}, time.Now())
	assert.Error(t, err)
}

func TestBinPackFirstFitDecreasing(t *testing.T) {
	files := []sizedFile{
		{path: "a", size: 10},
		{path: "b", size: 4},
		{path: "c", size: 6},
	}
	bins := binPack(files, 10)
	require.Len(t, bins, 2)
	assert.Equal(t, "a", bins[0][0].path)
}

func TestMediumCapacityKnownAndUnknown(t *testing.T) {
	c, err := mediumCapacity("bd-r")
	require.NoError(t, err)
	assert.Equal(t, int64(25*1<<30), c)

	_, err = mediumCapacity("laserdisc")
	assert.Error(t, err)
}

func TestChainGraphHasNodePerChangelog(t *testing.T) {
	repo, _ := setupRepo(t)
	g, err := ChainGraph(repo)
	require.NoError(t, err)
	assert.Contains(t, g.String(), "seed.bin")

	open, err := changelog.New(repo).CurrentOpen()
	require.NoError(t, err)
	assert.Contains(t, g.String(), filepath.Base(open))
}
