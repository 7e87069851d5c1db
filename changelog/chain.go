// Package changelog is the changelog chain state machine. It opens and
// closes changelog files, writes the binding "closing" transaction, appends
// comments, and maintains the integrity index.
package changelog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/kwinsch/historify/hashsign"
	"github.com/kwinsch/historify/herrors"
	"github.com/kwinsch/historify/journal"
	"github.com/kwinsch/historify/repository"
)

// State is the repository's position in the SEEDED → READY → OPEN lifecycle.
type State int

const (
	StateSeeded State = iota
	StateReady
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateSeeded:
		return "SEEDED"
	case StateReady:
		return "READY"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// Chain operates the changelog chain of a single repository.
type Chain struct {
	repo *repository.Repository
}

// New binds a Chain to repo.
func New(repo *repository.Repository) *Chain {
	return &Chain{repo: repo}
}

var changelogNamePattern = regexp.MustCompile(`^changelog-\d{4}-\d{2}-\d{2}(-\d+)?\.csv$`)

func (c *Chain) listChangelogs() ([]string, error) {
	entries, err := os.ReadDir(c.repo.Chgdir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, herrors.Wrapf(herrors.KindIO, err, "reading %s", c.repo.Chgdir)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && changelogNamePattern.MatchString(e.Name()) {
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

func isSigned(path string) bool {
	_, err := os.Stat(path + ".minisig")
	return err == nil
}

// CurrentOpen returns the repository-relative path of the unique open
// (unsigned) changelog, or "" if none exists.
func (c *Chain) CurrentOpen() (string, error) {
	names, err := c.listChangelogs()
	if err != nil {
		return "", err
	}
	for _, name := range names {
		full := filepath.Join(c.repo.Chgdir, name)
		if !isSigned(full) {
			return full, nil
		}
	}
	return "", nil
}

// LatestSigned returns the last signed changelog in chain order, or "" if none.
func (c *Chain) LatestSigned() (string, error) {
	names, err := c.listChangelogs()
	if err != nil {
		return "", err
	}
	for i := len(names) - 1; i >= 0; i-- {
		full := filepath.Join(c.repo.Chgdir, names[i])
		if isSigned(full) {
			return full, nil
		}
	}
	return "", nil
}

// State reports the repository's current lifecycle state.
func (c *Chain) State() (State, error) {
	open, err := c.CurrentOpen()
	if err != nil {
		return 0, err
	}
	if open != "" {
		return StateOpen, nil
	}
	if isSigned(c.repo.SeedPath()) {
		return StateReady, nil
	}
	return StateSeeded, nil
}

func nextChangelogName(existing []string, today string) string {
	base := "changelog-" + today
	taken := map[string]bool{}
	for _, n := range existing {
		taken[n] = true
	}
	if !taken[base+".csv"] {
		return base + ".csv"
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d.csv", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// Lifecycle performs one "start"/"closing" step: sign the current anchor
// (open changelog, or unsigned seed), then open a fresh changelog whose
// first row binds to the anchor's signed digest.
func (c *Chain) Lifecycle(secretKeyPath, password string) (opened string, err error) {
	open, err := c.CurrentOpen()
	if err != nil {
		return "", err
	}

	needsSigning := false
	var anchor string
	switch {
	case open != "":
		anchor, needsSigning = open, true
	case !isSigned(c.repo.SeedPath()):
		anchor, needsSigning = c.repo.SeedPath(), true
	default:
		// Already READY: nothing new to sign, bind to whatever is already
		// the latest signed artifact (a changelog, or the seed itself if no
		// changelog has been closed yet).
		anchor, err = c.LatestSigned()
		if err != nil {
			return "", err
		}
		if anchor == "" {
			anchor = c.repo.SeedPath()
		}
	}

	if needsSigning {
		if err := hashsign.Sign(anchor, secretKeyPath, password); err != nil {
			return "", err // signing failure is fatal; state unchanged
		}
		if err := c.refreshIntegrityRow(anchor); err != nil {
			// Non-fatal: the index is reconstructable from the chain.
			_ = err
		}
	}
	anchorDigest, err := hashSumForClosing(anchor)
	if err != nil {
		return "", err
	}
	anchorRel, err := c.repo.RelPath(anchor)
	if err != nil {
		return "", err
	}

	names, err := c.listChangelogs()
	if err != nil {
		return "", err
	}
	today := time.Now().UTC().Format("2006-01-02")
	name := nextChangelogName(names, today)
	full := filepath.Join(c.repo.Chgdir, name)
	if err := journal.Create(full); err != nil {
		return "", err
	}

	closing := journal.Closing(time.Now(), anchorRel, anchorDigest)
	if err := journal.AppendSynced(full, closing); err != nil {
		return "", err
	}
	return full, nil
}

func hashSumForClosing(path string) (string, error) {
	return hashsign.Digest(path, hashsign.AlgoBlake3)
}

func (c *Chain) refreshIntegrityRow(path string) error {
	rel, err := c.repo.RelPath(path)
	if err != nil {
		return err
	}
	digest, err := hashsign.Digest(path, hashsign.AlgoBlake3)
	if err != nil {
		return err
	}
	return c.repo.UpsertIntegrity(repository.IntegrityRow{
		ChangelogFile:     rel,
		Blake3:            digest,
		SignatureFile:     rel + ".minisig",
		Verified:          "true",
		VerifiedTimestamp: time.Now().UTC().Format(time.RFC3339),
		RunID:             repository.NewRunID(),
	})
}

// AppendComment appends a comment transaction to the open changelog. It
// requires OPEN state.
func (c *Chain) AppendComment(message string) error {
	open, err := c.CurrentOpen()
	if err != nil {
		return err
	}
	if open == "" {
		return herrors.New(herrors.KindState, "no open changelog: cannot append comment")
	}
	return journal.Append(open, journal.Comment(time.Now(), message))
}

// AppendConfig appends a config transaction recording a key assignment to
// the open changelog, when one exists. If the chain has no open changelog,
// this is a silent no-op: the assignment is still recorded in the
// configuration store itself, just not in the chain.
func (c *Chain) AppendConfig(key, value string) error {
	open, err := c.CurrentOpen()
	if err != nil {
		return err
	}
	if open == "" {
		return nil // no open changelog yet; config still recorded in the store alone
	}
	return journal.Append(open, journal.Config(time.Now(), key, value))
}
