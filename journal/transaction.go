package journal

import (
	"strconv"
	"time"

	"github.com/kwinsch/historify/herrors"
)

// TimestampLayout formats the event-time column: UTC, second precision.
const TimestampLayout = "2006-01-02 15:04:05"

// MetaTimeLayout formats the ctime/mtime columns: local time.
const MetaTimeLayout = "2006-01-02T15:04:05"

// Transaction is one changelog row. It is a tagged variant over the eight
// transaction kinds, flattened to the frozen nine-column schema at the
// serialization boundary rather than carried as a loose map in memory.
type Transaction struct {
	Timestamp string
	Type      Type
	Path      string
	Category  string
	Size      string
	Ctime     string
	Mtime     string
	SHA256    string
	Blake3    string
}

// FormatTimestamp renders t as the canonical "YYYY-MM-DD HH:MM:SS UTC" event time.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout) + " UTC"
}

// FormatMetaTime renders t as the local-time file-metadata timestamp form.
func FormatMetaTime(t time.Time) string {
	return t.Local().Format(MetaTimeLayout)
}

// Closing builds the first row of a changelog, binding it to the previous
// chain artifact.
func Closing(now time.Time, refPath, refBlake3 string) Transaction {
	return Transaction{
		Timestamp: FormatTimestamp(now),
		Type:      TypeClosing,
		Path:      refPath,
		Blake3:    refBlake3,
	}
}

// NewFile records a file that did not previously exist under its path or
// digest.
func NewFile(now time.Time, path, category string, size int64, ctime, mtime time.Time, sha256, blake3 string) Transaction {
	return fileTxn(TypeNew, now, path, category, size, ctime, mtime, sha256, blake3)
}

// Changed records a file whose path is known but whose digest differs from
// prior state.
func Changed(now time.Time, path, category string, size int64, ctime, mtime time.Time, sha256, blake3 string) Transaction {
	return fileTxn(TypeChanged, now, path, category, size, ctime, mtime, sha256, blake3)
}

func fileTxn(kind Type, now time.Time, path, category string, size int64, ctime, mtime time.Time, sha256, blake3 string) Transaction {
	return Transaction{
		Timestamp: FormatTimestamp(now),
		Type:      kind,
		Path:      path,
		Category:  category,
		Size:      strconv.FormatInt(size, 10),
		Ctime:     FormatMetaTime(ctime),
		Mtime:     FormatMetaTime(mtime),
		SHA256:    sha256,
		Blake3:    blake3,
	}
}

// Move records a rename without content change; Blake3 is overloaded to
// carry the previous path.
func Move(now time.Time, newPath, category, oldPath string) Transaction {
	return Transaction{
		Timestamp: FormatTimestamp(now),
		Type:      TypeMove,
		Path:      newPath,
		Category:  category,
		Blake3:    oldPath,
	}
}

// Deleted records a path that is present in prior state but absent from the walk.
func Deleted(now time.Time, path, category string) Transaction {
	return Transaction{
		Timestamp: FormatTimestamp(now),
		Type:      TypeDeleted,
		Path:      path,
		Category:  category,
	}
}

// Duplicate is an informational row for a freshly-added file sharing a
// digest with an existing, still-present path.
func Duplicate(now time.Time, path, category, blake3 string) Transaction {
	return Transaction{
		Timestamp: FormatTimestamp(now),
		Type:      TypeDuplicate,
		Path:      path,
		Category:  category,
		Blake3:    blake3,
	}
}

// Comment wraps a free-text message, stored in the overloaded Blake3 column.
func Comment(now time.Time, message string) Transaction {
	return Transaction{
		Timestamp: FormatTimestamp(now),
		Type:      TypeComment,
		Blake3:    message,
	}
}

// Config records a configuration key assignment.
func Config(now time.Time, key, value string) Transaction {
	return Transaction{
		Timestamp: FormatTimestamp(now),
		Type:      TypeConfig,
		Path:      key,
		Blake3:    value,
	}
}

// Row flattens the Transaction into the frozen nine-column order.
func (t Transaction) Row() []string {
	return []string{
		t.Timestamp,
		string(t.Type),
		t.Path,
		t.Category,
		t.Size,
		t.Ctime,
		t.Mtime,
		t.SHA256,
		t.Blake3,
	}
}

// TransactionFromRow parses a CSV row back into a Transaction, validating
// transaction_type against the known kinds.
func TransactionFromRow(row []string) (Transaction, error) {
	if len(row) != len(Header) {
		return Transaction{}, herrors.Newf(herrors.KindSchema, "expected %d fields, got %d", len(Header), len(row))
	}
	t := Transaction{
		Timestamp: row[0],
		Type:      Type(row[1]),
		Path:      row[2],
		Category:  row[3],
		Size:      row[4],
		Ctime:     row[5],
		Mtime:     row[6],
		SHA256:    row[7],
		Blake3:    row[8],
	}
	if !validType(t.Type) {
		return Transaction{}, herrors.Newf(herrors.KindSchema, "illegal transaction_type %q", row[1])
	}
	return t, nil
}
