// Package hashsign is the narrow boundary around the BLAKE3/SHA-256 digest
// primitives and the Ed25519-family detached-signature primitive.
// Everything above this package treats both as opaque; swapping the
// underlying library never has to ripple further than this file.
package hashsign

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"github.com/kwinsch/historify/herrors"
	"lukechampine.com/blake3"
)

// Algo is a supported digest algorithm.
type Algo string

const (
	// AlgoBlake3 is the default, fast, tree-hashing algorithm used for
	// chain references and change detection.
	AlgoBlake3 Algo = "blake3"
	// AlgoSHA256 is carried alongside BLAKE3 for cross-verification with
	// tooling that only understands the traditional algorithm.
	AlgoSHA256 Algo = "sha256"

	chunkSize = 1 << 20 // 1 MiB read chunks
)

func newHasher(algo Algo) (hash.Hash, error) {
	switch algo {
	case AlgoBlake3:
		return blake3.New(32, nil), nil
	case AlgoSHA256:
		return sha256.New(), nil
	default:
		return nil, herrors.Newf(herrors.KindIO, "unsupported digest algorithm %q", algo)
	}
}

// Digest streams path in fixed-size chunks and returns its hex-lowercase
// digest under algo. It fails with a KindIO error if path is not a regular
// readable file.
func Digest(path string, algo Algo) (string, error) {
	digests, err := Digests(path, []Algo{algo})
	if err != nil {
		return "", err
	}
	return digests[algo], nil
}

// Digests computes every requested algorithm's digest for path in a single
// read pass.
func Digests(path string, algos []Algo) (map[Algo]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, herrors.Wrapf(herrors.KindIO, err, "opening %s for hashing", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, herrors.Wrapf(herrors.KindIO, err, "stat %s", path)
	}
	if !info.Mode().IsRegular() {
		return nil, herrors.Newf(herrors.KindIO, "%s is not a regular file", path)
	}

	hashers := make(map[Algo]hash.Hash, len(algos))
	writers := make([]io.Writer, 0, len(algos))
	for _, algo := range algos {
		h, err := newHasher(algo)
		if err != nil {
			return nil, err
		}
		hashers[algo] = h
		writers = append(writers, h)
	}
	mw := io.MultiWriter(writers...)

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(mw, f, buf); err != nil {
		return nil, herrors.Wrapf(herrors.KindIO, err, "reading %s for hashing", path)
	}

	out := make(map[Algo]string, len(algos))
	for algo, h := range hashers {
		out[algo] = hex.EncodeToString(h.Sum(nil))
	}
	return out, nil
}
