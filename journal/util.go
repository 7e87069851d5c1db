package journal

import (
	"bytes"
	"context"
)

// withTimeout runs fn with a context canceled after lockTimeout, so a
// stuck flock retry loop cannot hang a caller forever.
func withTimeout(fn func(ctx context.Context) (bool, error)) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	return fn(ctx)
}

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }
