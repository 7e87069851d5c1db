// Package scanner walks a category's directory, hashes each file,
// classifies it against the prior-state view rebuilt from the chain, and
// appends the resulting transactions to the currently-open changelog.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/alitto/pond"
	"github.com/kwinsch/historify/changelog"
	"github.com/kwinsch/historify/hashsign"
	"github.com/kwinsch/historify/herrors"
	"github.com/kwinsch/historify/journal"
	"github.com/kwinsch/historify/repository"
)

// Scanner walks categories of a single repository.
type Scanner struct {
	repo     *repository.Repository
	chain    *changelog.Chain
	Workers  int // parallel hashing; 0 or 1 disables the worker pool
}

// New returns a Scanner bound to repo, hashing with up to workers goroutines
// in parallel, serialized back to a single append stream.
func New(repo *repository.Repository, workers int) *Scanner {
	return &Scanner{repo: repo, chain: changelog.New(repo), Workers: workers}
}

// priorState is the replayed view of a category immediately before a scan.
type priorState struct {
	byPath *pathTree
}

func (s *Scanner) buildPriorState(category string) (*priorState, error) {
	tree := newPathTree()

	names, err := s.listChangelogsInOrder()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		rows, err := journal.ReadAll(filepath.Join(s.repo.Chgdir, name))
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.Category != category {
				continue
			}
			switch row.Type {
			case journal.TypeNew, journal.TypeChanged:
				tree.insert(row.Path, fileState{Blake3: row.Blake3, Size: row.Size, Mtime: row.Mtime})
			case journal.TypeDuplicate:
				tree.insert(row.Path, fileState{Blake3: row.Blake3})
			case journal.TypeMove:
				oldPath := row.Blake3
				if st, ok := tree.lookup(oldPath); ok {
					tree.delete(oldPath)
					tree.insert(row.Path, st)
				} else {
					tree.insert(row.Path, fileState{})
				}
			case journal.TypeDeleted:
				tree.delete(row.Path)
			}
		}
	}
	return &priorState{byPath: tree}, nil
}

func (s *Scanner) listChangelogsInOrder() ([]string, error) {
	entries, err := os.ReadDir(s.repo.Chgdir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, herrors.Wrapf(herrors.KindIO, err, "reading %s", s.repo.Chgdir)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".csv" {
			names = append(names, e.Name())
		}
	}
	// Chain order is by date, then same-day counter; plain string order would
	// put "changelog-D-1.csv" before "changelog-D.csv".
	key := func(name string) (date string, n int) {
		fmt.Sscanf(name, "changelog-%10s-%d.csv", &date, &n)
		return date, n
	}
	sort.Slice(names, func(i, j int) bool {
		di, ni := key(names[i])
		dj, nj := key(names[j])
		return di < dj || (di == dj && ni < nj)
	})
	return names, nil
}

type hashedFile struct {
	relPath string
	size    int64
	ctime   time.Time
	mtime   time.Time
	blake3  string
	sha256  string
	err     error
}

func (s *Scanner) walkAndHash(cat repository.Category) ([]hashedFile, error) {
	var relPaths []string
	err := filepath.WalkDir(cat.DataPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(cat.DataPath, path)
		if err != nil {
			return err
		}
		relPaths = append(relPaths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, herrors.Wrapf(herrors.KindIO, err, "walking %s", cat.DataPath)
	}
	sort.Strings(relPaths) // deterministic walk order

	results := make([]hashedFile, len(relPaths))
	hashOne := func(i int) {
		rel := relPaths[i]
		abs := filepath.Join(cat.DataPath, rel)
		info, err := os.Stat(abs)
		if err != nil {
			results[i] = hashedFile{relPath: rel, err: err}
			return
		}
		digests, err := hashsign.Digests(abs, []hashsign.Algo{hashsign.AlgoBlake3, hashsign.AlgoSHA256})
		if err != nil {
			results[i] = hashedFile{relPath: rel, err: err}
			return
		}
		results[i] = hashedFile{
			relPath: rel,
			size:    info.Size(),
			ctime:   statCtime(info),
			mtime:   info.ModTime(),
			blake3:  digests[hashsign.AlgoBlake3],
			sha256:  digests[hashsign.AlgoSHA256],
		}
	}

	if s.Workers > 1 {
		pool := pond.New(s.Workers, len(relPaths))
		for i := range relPaths {
			i := i
			pool.Submit(func() { hashOne(i) })
		}
		pool.StopAndWait()
	} else {
		for i := range relPaths {
			hashOne(i)
		}
	}

	for _, r := range results {
		if r.err != nil {
			return nil, herrors.Wrapf(herrors.KindIO, r.err, "hashing %s", r.relPath)
		}
	}
	return results, nil
}

// Scan walks cat, classifies every file against the prior-state view, and
// appends the resulting rows to the open changelog. It fails with a
// StateError if the chain has no open changelog.
func (s *Scanner) Scan(cat repository.Category) error {
	open, err := s.chain.CurrentOpen()
	if err != nil {
		return err
	}
	if open == "" {
		return herrors.New(herrors.KindState, "no open changelog: cannot scan")
	}

	prior, err := s.buildPriorState(cat.Name)
	if err != nil {
		return err
	}
	files, err := s.walkAndHash(cat)
	if err != nil {
		return err
	}

	now := time.Now()
	seenDigestsThisWalk := map[string]bool{}
	var rows []journal.Transaction

	presentPaths := map[string]bool{}
	for _, f := range files {
		presentPaths[f.relPath] = true
	}

	// Track digests available for move-matching: only prior paths that are
	// actually absent from this walk are candidates for an old path — a
	// path still present at its old location (changed or unchanged) was
	// never moved away from.
	availableByDigest := map[string][]string{}
	for _, p := range prior.byPath.paths() {
		if presentPaths[p] {
			continue
		}
		st, _ := prior.byPath.lookup(p)
		availableByDigest[st.Blake3] = append(availableByDigest[st.Blake3], p)
	}
	for d := range availableByDigest {
		sort.Strings(availableByDigest[d])
	}

	touched := map[string]bool{}

	for _, f := range files {
		priorEntry, existed := prior.byPath.lookup(f.relPath)
		switch {
		case !existed:
			if candidates := availableByDigest[f.blake3]; len(candidates) > 0 {
				oldPath := candidates[0]
				availableByDigest[f.blake3] = candidates[1:]
				touched[oldPath] = true
				rows = append(rows, journal.Move(now, f.relPath, cat.Name, oldPath))
			} else if seenDigestsThisWalk[f.blake3] {
				rows = append(rows, journal.Duplicate(now, f.relPath, cat.Name, f.blake3))
			} else {
				rows = append(rows, journal.NewFile(now, f.relPath, cat.Name, f.size, f.ctime, f.mtime, f.sha256, f.blake3))
			}
		case priorEntry.Blake3 == f.blake3:
			// unchanged: no row emitted
		default:
			rows = append(rows, journal.Changed(now, f.relPath, cat.Name, f.size, f.ctime, f.mtime, f.sha256, f.blake3))
		}
		touched[f.relPath] = true
		seenDigestsThisWalk[f.blake3] = true
	}

	for _, p := range prior.byPath.paths() {
		if !touched[p] {
			rows = append(rows, journal.Deleted(now, p, cat.Name))
		}
	}

	for _, row := range rows {
		if err := journal.Append(open, row); err != nil {
			return err
		}
	}
	return nil
}
