package journal

import (
	"context"
	"encoding/csv"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/kwinsch/historify/herrors"
)

const lockTimeout = 30 * time.Second

// CreateWithHeader writes a brand-new CSV file containing only header. It
// fails if the file already exists.
func CreateWithHeader(path string, header []string) error {
	if _, err := os.Stat(path); err == nil {
		return herrors.Newf(herrors.KindIO, "%s already exists", path)
	}
	lock := flock.New(path + ".lock")
	locked, err := withTimeout(func(ctx context.Context) (bool, error) {
		return lock.TryLockContext(ctx, 50*time.Millisecond)
	})
	if err != nil || !locked {
		return herrors.Newf(herrors.KindIO, "could not lock %s for creation", path)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "creating %s", path)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "writing header to %s", path)
	}
	w.Flush()
	return w.Error()
}

// ReadAllRaw reads every row of path under a shared lock, returning the rows
// that follow the header (the header itself is not returned). It fails with
// a SchemaError if the header does not match want.
func ReadAllRaw(path string, want []string) (rows [][]string, err error) {
	lock := flock.New(path + ".lock")
	locked, err := withTimeout(func(ctx context.Context) (bool, error) {
		return lock.TryRLockContext(ctx, 50*time.Millisecond)
	})
	if err != nil || !locked {
		return nil, herrors.Newf(herrors.KindIO, "could not lock %s for reading", path)
	}
	defer lock.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, herrors.Wrapf(herrors.KindIO, err, "opening %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, herrors.Wrapf(herrors.KindIO, err, "reading %s", path)
	}
	if len(all) == 0 {
		return nil, herrors.Newf(herrors.KindSchema, "%s has no header", path)
	}
	if want != nil {
		if err := validateColumns(all[0], want); err != nil {
			return nil, err
		}
	}
	return all[1:], nil
}

func validateColumns(got, want []string) error {
	if len(got) != len(want) {
		return herrors.Newf(herrors.KindSchema, "expected %d columns, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			return herrors.Newf(herrors.KindSchema, "column %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	return nil
}

// AppendRaw appends a single row to path under an exclusive whole-file lock,
// held for the duration of the write, validating the existing header first.
// Missing keys are the caller's responsibility to pad; AppendRaw writes row
// as given, so its length must match header. The store does not fsync by
// default — durability is the caller's decision, via sync.
func AppendRaw(path string, want []string, row []string, sync bool) error {
	lock := flock.New(path + ".lock")
	locked, err := withTimeout(func(ctx context.Context) (bool, error) {
		return lock.TryLockContext(ctx, 50*time.Millisecond)
	})
	if err != nil || !locked {
		return herrors.Newf(herrors.KindIO, "could not lock %s for appending", path)
	}
	defer lock.Unlock()

	existing, err := os.ReadFile(path)
	if err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "reading %s before append", path)
	}
	r := csv.NewReader(bytesReader(existing))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return herrors.Wrapf(herrors.KindSchema, err, "reading header of %s", path)
	}
	if want != nil {
		if err := validateColumns(header, want); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "opening %s to append", path)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "appending to %s", path)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return herrors.Wrap(herrors.KindIO, err, "flushing append")
	}
	if sync {
		return f.Sync()
	}
	return nil
}
