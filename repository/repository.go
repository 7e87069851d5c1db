// Package repository is the on-disk layout of a historify repository and
// its initialization. It owns db/, changes/, and the category registry that
// the other components resolve paths against.
package repository

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/kwinsch/historify/config"
	"github.com/kwinsch/historify/herrors"
)

const seedSize = 1 << 20 // 1 MiB

// Repository is a resolved historify repository rooted at Root.
type Repository struct {
	Root   string
	DBDir  string
	Chgdir string
	Config *config.Store
}

func layout(root string) (db, changes string) {
	return filepath.Join(root, "db"), filepath.Join(root, "changes")
}

// Init creates the directory skeleton, seed, integrity index, and default
// configuration at root. It is idempotent with respect to directories, but
// refuses to overwrite an existing seed.
func Init(root, name string) (*Repository, error) {
	db, changes := layout(root)
	for _, dir := range []string{root, db, changes, filepath.Join(db, "keys")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, herrors.Wrapf(herrors.KindIO, err, "creating %s", dir)
		}
	}

	seedPath := filepath.Join(db, "seed.bin")
	if _, err := os.Stat(seedPath); err == nil {
		// Existing repository: re-init is a no-op on the seed.
	} else if os.IsNotExist(err) {
		seed := make([]byte, seedSize)
		if _, err := rand.Read(seed); err != nil {
			return nil, herrors.Wrap(herrors.KindIO, err, "generating seed")
		}
		if err := os.WriteFile(seedPath, seed, 0o444); err != nil {
			return nil, herrors.Wrapf(herrors.KindIO, err, "writing %s", seedPath)
		}
	} else {
		return nil, herrors.Wrapf(herrors.KindIO, err, "statting %s", seedPath)
	}

	integrityPath := filepath.Join(db, "integrity.csv")
	if _, err := os.Stat(integrityPath); os.IsNotExist(err) {
		if err := os.WriteFile(integrityPath, []byte(IntegrityHeader()+"\n"), 0o644); err != nil {
			return nil, herrors.Wrapf(herrors.KindIO, err, "writing %s", integrityPath)
		}
	}

	store := config.NewStore(db)
	if store.Get("repository.name", "") == "" {
		if name == "" {
			name = filepath.Base(root)
		}
		if err := store.Set("repository.name", name); err != nil {
			return nil, err
		}
		if err := store.Set("repository.created", time.Now().UTC().Format(time.RFC3339)); err != nil {
			return nil, err
		}
		if err := store.Set("hash.algorithms", "blake3,sha256"); err != nil {
			return nil, err
		}
		if err := store.Set("changes.directory", "changes"); err != nil {
			return nil, err
		}
	}

	return Open(root)
}

// Open resolves an existing repository at root without touching disk state
// beyond reading its configuration.
func Open(root string) (*Repository, error) {
	db, changes := layout(root)
	if _, err := os.Stat(db); err != nil {
		return nil, herrors.Wrapf(herrors.KindConfig, err, "%s is not a historify repository", root)
	}
	return &Repository{
		Root:   root,
		DBDir:  db,
		Chgdir: changes,
		Config: config.NewStore(db),
	}, nil
}

// SeedPath returns db/seed.bin.
func (r *Repository) SeedPath() string { return filepath.Join(r.DBDir, "seed.bin") }

// IntegrityPath returns db/integrity.csv.
func (r *Repository) IntegrityPath() string { return filepath.Join(r.DBDir, "integrity.csv") }

// RelPath returns p expressed relative to the repository root, used when
// recording repository-relative paths in changelog rows.
func (r *Repository) RelPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", herrors.Wrap(herrors.KindIO, err, "resolving absolute path")
	}
	rel, err := filepath.Rel(r.Root, abs)
	if err != nil {
		return "", herrors.Wrapf(herrors.KindIO, err, "relativizing %s", p)
	}
	return filepath.ToSlash(rel), nil
}
