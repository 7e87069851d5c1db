// Package journal is the append-only CSV changelog store, and the home of
// the Transaction row variant shared with the chain lifecycle logic.
package journal

import "github.com/kwinsch/historify/herrors"

// Header is the frozen, ordered CSV column list. It never changes: the
// blake3/sha256 columns double as a payload-of-last-resort channel for
// kinds that have no digest of their own (move, comment, config, closing).
var Header = []string{
	"timestamp",
	"transaction_type",
	"path",
	"category",
	"size",
	"ctime",
	"mtime",
	"sha256",
	"blake3",
}

func validateHeader(got []string) error {
	if len(got) != len(Header) {
		return herrors.Newf(herrors.KindSchema, "expected %d columns, got %d", len(Header), len(got))
	}
	for i, want := range Header {
		if got[i] != want {
			return herrors.Newf(herrors.KindSchema, "column %d: expected %q, got %q", i, want, got[i])
		}
	}
	return nil
}

// Type is one of the eight transaction kinds.
type Type string

const (
	TypeClosing   Type = "closing"
	TypeNew       Type = "new"
	TypeChanged   Type = "changed"
	TypeMove      Type = "move"
	TypeDeleted   Type = "deleted"
	TypeDuplicate Type = "duplicate"
	TypeComment   Type = "comment"
	TypeConfig    Type = "config"
)

func validType(t Type) bool {
	switch t {
	case TypeClosing, TypeNew, TypeChanged, TypeMove, TypeDeleted, TypeDuplicate, TypeComment, TypeConfig:
		return true
	default:
		return false
	}
}
