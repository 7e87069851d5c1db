// Package keycache is the repository's cache of public signing keys,
// stored as db/keys/<KEYID>.pub and looked up by exact id or unique id
// substring.
package keycache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kwinsch/historify/hashsign"
	"github.com/kwinsch/historify/herrors"
)

// Cache points at a repository's db/keys directory.
type Cache struct {
	dir string
}

// New returns a Cache rooted at dbDir/keys, creating the directory if absent.
func New(dbDir string) (*Cache, error) {
	dir := filepath.Join(dbDir, "keys")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, herrors.Wrapf(herrors.KindIO, err, "creating %s", dir)
	}
	return &Cache{dir: dir}, nil
}

// Import copies the public key at srcPath into the cache under its
// extracted key id, falling back to the comment line then the filename stem.
// Re-importing identical bytes is a no-op, not an error.
func (c *Cache) Import(srcPath string) (string, error) {
	id, err := hashsign.ExtractKeyID(srcPath)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(srcPath)
	if err != nil {
		return "", herrors.Wrapf(herrors.KindIO, err, "reading %s", srcPath)
	}

	dst := c.pathFor(id)
	if existing, err := os.ReadFile(dst); err == nil {
		if string(existing) == string(content) {
			return id, nil
		}
		return "", herrors.Newf(herrors.KindSignature, "key id %s already cached with different content", id)
	}

	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", herrors.Wrapf(herrors.KindIO, err, "writing %s", tmp)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", herrors.Wrapf(herrors.KindIO, err, "renaming %s", tmp)
	}
	return id, nil
}

func (c *Cache) pathFor(id string) string {
	return filepath.Join(c.dir, strings.ToUpper(id)+".pub")
}

// Lookup resolves an id or id prefix to the cached public key path. An exact
// match wins; otherwise a unique substring match is accepted. No match or an
// ambiguous prefix is an error.
func (c *Cache) Lookup(idOrPrefix string) (string, error) {
	want := strings.ToUpper(idOrPrefix)
	exact := c.pathFor(want)
	if _, err := os.Stat(exact); err == nil {
		return exact, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return "", herrors.Wrapf(herrors.KindIO, err, "reading %s", c.dir)
	}
	var matches []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pub") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".pub")
		if strings.Contains(id, want) {
			matches = append(matches, e.Name())
		}
	}
	sort.Strings(matches)
	switch len(matches) {
	case 0:
		return "", herrors.Newf(herrors.KindSignature, "no cached key matches %q", idOrPrefix)
	case 1:
		return filepath.Join(c.dir, matches[0]), nil
	default:
		return "", herrors.Newf(herrors.KindSignature, "key id %q is ambiguous among %d cached keys", idOrPrefix, len(matches))
	}
}

// List returns the key ids currently cached, sorted.
func (c *Cache) List() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, herrors.Wrapf(herrors.KindIO, err, "reading %s", c.dir)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".pub") {
			ids = append(ids, strings.TrimSuffix(e.Name(), ".pub"))
		}
	}
	sort.Strings(ids)
	return ids, nil
}
