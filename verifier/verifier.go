// Package verifier replays the changelog chain, checks signatures and hash
// references, rebuilds the integrity index, and reports breaks.
package verifier

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kwinsch/historify/config"
	"github.com/kwinsch/historify/hashsign"
	"github.com/kwinsch/historify/herrors"
	"github.com/kwinsch/historify/journal"
	"github.com/kwinsch/historify/repository"
)

// Issue is one problem surfaced by a verification run. Fatal issues carry the
// kind of the failure (ChainError, SignatureError, SchemaError or IoError);
// warnings carry StateError.
type Issue struct {
	Kind    herrors.Kind
	Fatal   bool
	Message string
}

// Result is the outcome of a verification run.
type Result struct {
	OK     bool
	Issues []Issue
}

func (r *Result) addFatal(kind herrors.Kind, format string, args ...interface{}) {
	r.OK = false
	r.Issues = append(r.Issues, Issue{Kind: kind, Fatal: true, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) addWarning(format string, args ...interface{}) {
	r.Issues = append(r.Issues, Issue{Kind: herrors.KindState, Message: fmt.Sprintf(format, args...)})
}

// ExitCode maps the result to historify's exit status policy: 0 clean,
// 2 warnings only, 3 integrity/verification failure.
func (r Result) ExitCode() int {
	if r.OK && len(r.Issues) == 0 {
		return 0
	}
	if r.OK {
		return 2
	}
	return 3
}

// Verifier operates against a single repository.
type Verifier struct {
	repo       *repository.Repository
	pubKeyPath string
}

// New binds a Verifier to repo, using pubKeyPath to check every signature.
func New(repo *repository.Repository, pubKeyPath string) *Verifier {
	return &Verifier{repo: repo, pubKeyPath: pubKeyPath}
}

func (v *Verifier) listChangelogs() ([]string, error) {
	entries, err := os.ReadDir(v.repo.Chgdir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, herrors.Wrapf(herrors.KindIO, err, "reading %s", v.repo.Chgdir)
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

// VerifyRecent checks only the latest signed changelog.
func (v *Verifier) VerifyRecent() Result {
	result := Result{OK: true}
	names, err := v.listChangelogs()
	if err != nil {
		result.addFatal(herrors.KindIO, "%v", err)
		return result
	}
	var latestSigned string
	for i := len(names) - 1; i >= 0; i-- {
		full := filepath.Join(v.repo.Chgdir, names[i])
		if _, err := os.Stat(full + ".minisig"); err == nil {
			latestSigned = full
			break
		}
	}
	if latestSigned == "" {
		result.addWarning("no signed changelog yet")
		return result
	}
	v.verifyOne(latestSigned, true, &result)
	return result
}

// VerifyFullChain replays the entire chain from the seed, then rewrites the
// integrity index from scratch.
func (v *Verifier) VerifyFullChain() Result {
	result := Result{OK: true}
	names, err := v.listChangelogs()
	if err != nil {
		result.addFatal(herrors.KindIO, "%v", err)
		return result
	}

	runID := repository.NewRunID()
	now := time.Now().UTC().Format(time.RFC3339)
	rebuilt := map[string]repository.IntegrityRow{}
	for i, name := range names {
		full := filepath.Join(v.repo.Chgdir, name)
		isLast := i == len(names)-1
		v.verifyOne(full, isLast, &result)

		rel, err := v.repo.RelPath(full)
		if err != nil {
			result.addFatal(herrors.KindIO, "%v", err)
			continue
		}
		digest, err := hashsign.Digest(full, hashsign.AlgoBlake3)
		if err != nil {
			result.addFatal(herrors.KindIO, "%v", err)
			continue
		}
		signed := "false"
		if _, err := os.Stat(full + ".minisig"); err == nil {
			signed = "true"
		}
		rebuilt[rel] = repository.IntegrityRow{
			ChangelogFile:     rel,
			Blake3:            digest,
			SignatureFile:     rel + ".minisig",
			Verified:          signed,
			VerifiedTimestamp: now,
			RunID:             runID,
		}
	}

	if result.OK {
		if err := v.repo.WriteIntegrity(rebuilt); err != nil {
			result.addWarning("could not rebuild integrity index: %v", err)
		}
	}

	if issues := v.checkConfig(); len(issues) > 0 {
		for _, iss := range issues {
			result.addWarning("config: %s: %s", iss.Key, iss.Reason)
		}
	}
	return result
}

// verifyOne checks one changelog's signature (if present) and its closing
// row's hash reference against the file it names.
func (v *Verifier) verifyOne(changelogPath string, mayBeUnsigned bool, result *Result) {
	hasSignature := false
	if _, err := os.Stat(changelogPath + ".minisig"); err == nil {
		hasSignature = true
	}

	if hasSignature {
		ok, diagnostic, err := hashsign.Verify(changelogPath, v.pubKeyPath)
		if err != nil {
			result.addFatal(herrors.KindSignature, "verifying %s: %v", changelogPath, err)
			return
		}
		if !ok {
			result.addFatal(herrors.KindSignature, "signature invalid for %s: %s", changelogPath, diagnostic)
			return
		}
	} else if !mayBeUnsigned {
		result.addFatal(herrors.KindChain, "missing signature on non-latest changelog %s", changelogPath)
		return
	}

	rows, err := journal.ReadAll(changelogPath)
	if err != nil {
		result.addFatal(herrors.KindSchema, "%v", err)
		return
	}
	if len(rows) == 0 || rows[0].Type != journal.TypeClosing {
		result.addFatal(herrors.KindChain, "missing first closing row in %s", changelogPath)
		return
	}
	closing := rows[0]

	ref := filepath.Join(v.repo.Root, closing.Path)
	if _, err := os.Stat(ref); err != nil {
		result.addFatal(herrors.KindChain, "closing row in %s references missing file %s", changelogPath, closing.Path)
		return
	}
	got, err := hashsign.Digest(ref, hashsign.AlgoBlake3)
	if err != nil {
		result.addFatal(herrors.KindIO, "hashing %s: %v", ref, err)
		return
	}
	if got != closing.Blake3 {
		result.addFatal(herrors.KindChain, "hash chain broken at %s: expected %s, got %s", changelogPath, closing.Blake3, got)
		return
	}
}

func (v *Verifier) checkConfig() []config.Issue {
	return v.repo.Config.Check(
		func(path string) bool { _, err := os.Stat(path); return err == nil },
		func(path string) bool { _, err := os.Stat(path); return err == nil },
	)
}
