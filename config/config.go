// Package config is historify's dual-form configuration store. Every
// setting lives in two mirrored files — a section/option text file readable
// by a human, and a flat CSV of dotted keys kept in lockstep — so that the
// CSV-centric tooling elsewhere in the repository never needs an INI parser
// of its own, while operators still get an editable text file.
package config

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kwinsch/historify/herrors"
	"gopkg.in/ini.v1"
)

// ConfigError is a user-facing error produced by the store. It is kept as a
// distinct exported type even though it is backed by the herrors taxonomy
// (KindConfig).
type ConfigError struct{ err error }

func (e *ConfigError) Error() string { return e.err.Error() }
func (e *ConfigError) Unwrap() error { return e.err }

func wrapConfigErr(msg string, err error) error {
	return &ConfigError{err: herrors.Wrap(herrors.KindConfig, err, msg)}
}

// Store is historify's repository.db/config (+ .csv mirror).
type Store struct {
	textPath string
	csvPath  string
}

// NewStore points a Store at the db/ directory of a repository root.
func NewStore(dbDir string) *Store {
	return &Store{
		textPath: filepath.Join(dbDir, "config"),
		csvPath:  filepath.Join(dbDir, "config.csv"),
	}
}

func splitKey(key string) (section, option string) {
	idx := strings.Index(key, ".")
	if idx < 0 {
		return "DEFAULT", key
	}
	return key[:idx], key[idx+1:]
}

// Get looks up key, trying the text form first, then the CSV mirror,
// finally returning def.
func (s *Store) Get(key, def string) string {
	if v, ok := s.getFromText(key); ok {
		return v
	}
	if v, ok := s.getFromCSV(key); ok {
		return v
	}
	return def
}

func (s *Store) getFromText(key string) (string, bool) {
	cfg, err := ini.Load(s.textPath)
	if err != nil {
		return "", false
	}
	section, option := splitKey(key)
	sec, err := cfg.GetSection(section)
	if err != nil {
		return "", false
	}
	if !sec.HasKey(option) {
		return "", false
	}
	return sec.Key(option).String(), true
}

func (s *Store) getFromCSV(key string) (string, bool) {
	rows, err := readCSVMap(s.csvPath)
	if err != nil {
		return "", false
	}
	v, ok := rows[key]
	return v, ok
}

// Set writes key=value to both forms, each rewritten to a temp file and
// renamed into place so readers never observe a partial write.
func (s *Store) Set(key, value string) error {
	if err := s.setText(key, value); err != nil {
		return err
	}
	return s.setCSV(key, value)
}

func (s *Store) setText(key, value string) error {
	cfg, err := ini.LoadSources(ini.LoadOptions{Loose: true}, s.textPath)
	if err != nil {
		return wrapConfigErr("loading "+s.textPath, err)
	}
	section, option := splitKey(key)
	cfg.Section(section).Key(option).SetValue(value)

	tmp := s.textPath + ".tmp"
	if err := cfg.SaveTo(tmp); err != nil {
		return wrapConfigErr("writing "+tmp, err)
	}
	if err := os.Rename(tmp, s.textPath); err != nil {
		return wrapConfigErr("renaming "+tmp, err)
	}
	return nil
}

func (s *Store) setCSV(key, value string) error {
	rows, err := readCSVMap(s.csvPath)
	if err != nil {
		rows = map[string]string{}
	}
	rows[key] = value
	return writeCSVMap(s.csvPath, rows)
}

func readCSVMap(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) >= 2 {
			out[rec[0]] = rec[1]
		}
	}
	return out, nil
}

func writeCSVMap(path string, rows map[string]string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return wrapConfigErr("writing "+tmp, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"key", "value"}); err != nil {
		f.Close()
		return wrapConfigErr("writing header", err)
	}
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.Write([]string{k, rows[k]}); err != nil {
			f.Close()
			return wrapConfigErr("writing row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return wrapConfigErr("flushing", err)
	}
	if err := f.Close(); err != nil {
		return wrapConfigErr("closing " + tmp, err)
	}
	return os.Rename(tmp, path)
}

// Issue is one problem report from Check.
type Issue struct {
	Key    string
	Reason string
}

// Check reports: a missing repository name, a missing or non-blake3 hash
// algorithm list, an unreadable signing key, and a signing key with no
// corresponding public key. keyReadable and pubPresent let callers inject
// filesystem checks without this package depending on hashsign/keycache.
func (s *Store) Check(keyReadable func(path string) bool, pubPresent func(path string) bool) []Issue {
	var issues []Issue

	if s.Get("repository.name", "") == "" {
		issues = append(issues, Issue{Key: "repository.name", Reason: "missing repository name"})
	}

	algos := s.Get("hash.algorithms", "")
	if algos == "" {
		issues = append(issues, Issue{Key: "hash.algorithms", Reason: "missing hash algorithm list"})
	} else if !strings.Contains(algos, "blake3") {
		issues = append(issues, Issue{Key: "hash.algorithms", Reason: "hash.algorithms does not include blake3"})
	}

	key := s.Get("minisign.key", "")
	if key != "" && keyReadable != nil && !keyReadable(key) {
		issues = append(issues, Issue{Key: "minisign.key", Reason: "signing key is not readable: " + key})
	}

	pub := s.Get("minisign.pub", "")
	if key != "" && pub == "" {
		issues = append(issues, Issue{Key: "minisign.pub", Reason: "signing key configured without a matching public key"})
	}
	if pub != "" && pubPresent != nil && !pubPresent(pub) {
		issues = append(issues, Issue{Key: "minisign.pub", Reason: "public key is not present: " + pub})
	}

	return issues
}
