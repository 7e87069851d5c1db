package repository

import (
	"encoding/csv"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/kwinsch/historify/herrors"
)

// IntegrityRow is one row of db/integrity.csv. RunID is a derived-cache
// addition (not part of the changelog CSV's frozen nine columns): it records
// which verification run last touched the row, so repeated runs over an
// unchanged chain are distinguishable in the cache without re-deriving them
// from signature timestamps.
type IntegrityRow struct {
	ChangelogFile     string
	Blake3            string
	SignatureFile     string
	Verified          string
	VerifiedTimestamp string
	RunID             string
}

var integrityHeader = []string{"changelog_file", "blake3", "signature_file", "verified", "verified_timestamp", "run_id"}

// NewRunID generates a fresh identifier for one verification or lifecycle
// pass that touches the integrity index.
func NewRunID() string {
	return uuid.NewString()
}

// IntegrityHeader returns the frozen integrity.csv header as a comma-joined line.
func IntegrityHeader() string {
	return joinCSVRow(integrityHeader)
}

func joinCSVRow(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ","
		}
		out += f
	}
	return out
}

func (row IntegrityRow) toCSV() []string {
	return []string{row.ChangelogFile, row.Blake3, row.SignatureFile, row.Verified, row.VerifiedTimestamp, row.RunID}
}

func integrityRowFromCSV(rec []string) IntegrityRow {
	row := IntegrityRow{
		ChangelogFile:     rec[0],
		Blake3:            rec[1],
		SignatureFile:     rec[2],
		Verified:          rec[3],
		VerifiedTimestamp: rec[4],
	}
	if len(rec) > 5 {
		row.RunID = rec[5]
	}
	return row
}

// ReadIntegrity reads db/integrity.csv into a map keyed by changelog file name.
func (r *Repository) ReadIntegrity() (map[string]IntegrityRow, error) {
	f, err := os.Open(r.IntegrityPath())
	if err != nil {
		return nil, herrors.Wrapf(herrors.KindIO, err, "opening %s", r.IntegrityPath())
	}
	defer f.Close()
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, herrors.Wrapf(herrors.KindIO, err, "reading %s", r.IntegrityPath())
	}
	out := map[string]IntegrityRow{}
	for i, rec := range records {
		if i == 0 || len(rec) < 5 {
			continue
		}
		row := integrityRowFromCSV(rec)
		out[row.ChangelogFile] = row
	}
	return out, nil
}

// UpsertIntegrity updates or inserts a single row by changelog file name and
// rewrites the index atomically. A failure here is non-fatal to callers:
// the index is always reconstructable from the chain.
func (r *Repository) UpsertIntegrity(row IntegrityRow) error {
	rows, err := r.ReadIntegrity()
	if err != nil {
		rows = map[string]IntegrityRow{}
	}
	rows[row.ChangelogFile] = row
	return r.WriteIntegrity(rows)
}

// WriteIntegrity overwrites db/integrity.csv atomically with rows, sorted by
// changelog file name, as used by the verifier's full-chain rebuild.
func (r *Repository) WriteIntegrity(rows map[string]IntegrityRow) error {
	names := make([]string, 0, len(rows))
	for name := range rows {
		names = append(names, name)
	}
	sort.Strings(names)

	tmp := r.IntegrityPath() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "writing %s", tmp)
	}
	w := csv.NewWriter(f)
	if err := w.Write(integrityHeader); err != nil {
		f.Close()
		return herrors.Wrap(herrors.KindIO, err, "writing integrity header")
	}
	for _, name := range names {
		if err := w.Write(rows[name].toCSV()); err != nil {
			f.Close()
			return herrors.Wrap(herrors.KindIO, err, "writing integrity row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return herrors.Wrap(herrors.KindIO, err, "flushing integrity index")
	}
	if err := f.Close(); err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "closing %s", tmp)
	}
	return os.Rename(tmp, r.IntegrityPath())
}
