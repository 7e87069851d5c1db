package hashsign

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kwinsch/historify/herrors"
)

// Minisign-family detached signature format. The wire format is
// deliberately simple: an "untrusted comment" line identifying the signer's
// 8-byte key id, followed by a base64 blob of
// [2-byte algorithm tag "Ed"][8-byte keyid][64-byte ed25519 signature].
//
// Public keys carry the same ["Ed"][8-byte keyid][32-byte pubkey].
// Secret keys carry ["Ed"][8-byte keyid][64-byte ed25519 seed+pub]; when the
// key's comment line contains "encrypted", that blob is XOR-masked by a
// password-derived keystream and prefixed with its 16-byte salt.

const (
	sigAlgTag   = "Ed"
	passwordEnv = "HISTORIFY_PASSWORD"
)

// SignatureMissingError distinguishes an absent .minisig from an invalid one.
type SignatureMissingError struct {
	Path string
}

func (e *SignatureMissingError) Error() string {
	return fmt.Sprintf("no signature file for %s", e.Path)
}

func sigPath(path string) string { return path + ".minisig" }

// stretch derives a keystream of length n from password and salt via
// iterated SHA-256 — a minimal stand-in for the real KDF a production
// minisign binding would use.
func stretch(password string, salt []byte, n int) []byte {
	out := make([]byte, 0, n+sha256.Size)
	block := append([]byte(password), salt...)
	for len(out) < n {
		sum := sha256.Sum256(block)
		out = append(out, sum[:]...)
		block = sum[:]
	}
	return out[:n]
}

func xor(dst, a, b []byte) {
	for i := range a {
		dst[i] = a[i] ^ b[i]
	}
}

// KeyID is the 8-byte identifier embedded in a historify key's wire format.
type KeyID [8]byte

func (k KeyID) String() string { return strings.ToUpper(hex.EncodeToString(k[:])) }

// GenerateKeyPair creates a new Ed25519 key pair and writes it as a public
// and secret key file pair in historify's minisign-family wire format. It is
// a test/bootstrap helper; the CLI treats key material as externally
// supplied.
func GenerateKeyPair(pubPath, secPath, comment, password string) (KeyID, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyID{}, herrors.Wrap(herrors.KindSignature, err, "generating key pair")
	}
	var id KeyID
	if _, err := rand.Read(id[:]); err != nil {
		return KeyID{}, herrors.Wrap(herrors.KindSignature, err, "generating key id")
	}

	pubBlob := append([]byte(sigAlgTag), id[:]...)
	pubBlob = append(pubBlob, pub...)
	pubContent := fmt.Sprintf("untrusted comment: historify public key %s\n%s\n", id, base64.StdEncoding.EncodeToString(pubBlob))
	if err := os.WriteFile(pubPath, []byte(pubContent), 0o644); err != nil {
		return KeyID{}, herrors.Wrap(herrors.KindIO, err, "writing public key")
	}

	secBlob := append([]byte(sigAlgTag), id[:]...)
	secBlob = append(secBlob, priv...)
	encryptedNote := ""
	if password != "" {
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return KeyID{}, herrors.Wrap(herrors.KindSignature, err, "generating salt")
		}
		stream := stretch(password, salt, len(secBlob))
		masked := make([]byte, len(secBlob))
		xor(masked, secBlob, stream)
		secBlob = append(salt, masked...)
		encryptedNote = " encrypted"
	}
	header := fmt.Sprintf("untrusted comment: historify secret key %s%s", id, encryptedNote)
	if comment != "" {
		header += " (" + comment + ")"
	}
	secContent := fmt.Sprintf("%s\n%s\n", header, base64.StdEncoding.EncodeToString(secBlob))
	if err := os.WriteFile(secPath, []byte(secContent), 0o600); err != nil {
		return KeyID{}, herrors.Wrap(herrors.KindIO, err, "writing secret key")
	}
	return id, nil
}

func readWireLines(path string) (comment string, blob []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !scanner.Scan() {
		return "", nil, fmt.Errorf("empty key file")
	}
	comment = scanner.Text()
	if !scanner.Scan() {
		return comment, nil, fmt.Errorf("missing key payload line")
	}
	blob, err = base64.StdEncoding.DecodeString(strings.TrimSpace(scanner.Text()))
	return comment, blob, err
}

// ExtractKeyID extracts the 8-byte key id from a public key's wire format,
// falling back to any id stated in its comment line, finally to the
// filename stem.
func ExtractKeyID(pubKeyPath string) (string, error) {
	comment, blob, err := readWireLines(pubKeyPath)
	if err == nil && len(blob) >= 2+8 && string(blob[:2]) == sigAlgTag {
		return strings.ToUpper(hex.EncodeToString(blob[2:10])), nil
	}
	if comment != "" {
		fields := strings.Fields(comment)
		if len(fields) > 0 {
			last := fields[len(fields)-1]
			if _, decErr := hex.DecodeString(last); decErr == nil && len(last) == 16 {
				return strings.ToUpper(last), nil
			}
		}
	}
	base := strings.TrimSuffix(pubKeyPath, ".pub")
	idx := strings.LastIndexAny(base, "/\\")
	if idx >= 0 {
		base = base[idx+1:]
	}
	if base == "" {
		return "", herrors.Newf(herrors.KindSignature, "could not determine key id for %s", pubKeyPath)
	}
	return base, nil
}

func loadPublicKey(pubKeyPath string) (ed25519.PublicKey, KeyID, error) {
	_, blob, err := readWireLines(pubKeyPath)
	if err != nil {
		return nil, KeyID{}, herrors.Wrapf(herrors.KindSignature, err, "reading public key %s", pubKeyPath)
	}
	if len(blob) != 2+8+ed25519.PublicKeySize || string(blob[:2]) != sigAlgTag {
		return nil, KeyID{}, herrors.Newf(herrors.KindSignature, "malformed public key %s", pubKeyPath)
	}
	var id KeyID
	copy(id[:], blob[2:10])
	return ed25519.PublicKey(blob[10:]), id, nil
}

func loadSecretKey(secKeyPath, password string) (ed25519.PrivateKey, KeyID, error) {
	comment, blob, err := readWireLines(secKeyPath)
	if err != nil {
		return nil, KeyID{}, herrors.Wrapf(herrors.KindSignature, err, "reading secret key %s", secKeyPath)
	}
	encrypted := strings.Contains(strings.ToLower(comment), "encrypted")
	if encrypted {
		if password == "" {
			password = os.Getenv(passwordEnv)
		}
		if password == "" {
			return nil, KeyID{}, herrors.Newf(herrors.KindSignature,
				"secret key %s is encrypted: supply a password or set %s", secKeyPath, passwordEnv)
		}
		if len(blob) < 16 {
			return nil, KeyID{}, herrors.Newf(herrors.KindSignature, "malformed encrypted secret key %s", secKeyPath)
		}
		salt, masked := blob[:16], blob[16:]
		stream := stretch(password, salt, len(masked))
		plain := make([]byte, len(masked))
		xor(plain, masked, stream)
		blob = plain
	}
	if len(blob) != 2+8+ed25519.PrivateKeySize || string(blob[:2]) != sigAlgTag {
		return nil, KeyID{}, herrors.Newf(herrors.KindSignature, "malformed secret key %s (wrong password?)", secKeyPath)
	}
	var id KeyID
	copy(id[:], blob[2:10])
	return ed25519.PrivateKey(blob[10:]), id, nil
}

// IsEncrypted reports whether the secret key at path is password-protected,
// without decrypting it.
func IsEncrypted(secKeyPath string) (bool, error) {
	comment, _, err := readWireLines(secKeyPath)
	if err != nil {
		return false, herrors.Wrapf(herrors.KindSignature, err, "reading secret key %s", secKeyPath)
	}
	return strings.Contains(strings.ToLower(comment), "encrypted"), nil
}

func fileDigestBytes(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// Sign writes a detached signature to <path>.minisig using the secret key at
// secretKeyPath. Password is optional; if the key is encrypted and no
// password is given, the HISTORIFY_PASSWORD environment variable is
// consulted before failing.
func Sign(path, secretKeyPath string, password string) error {
	priv, id, err := loadSecretKey(secretKeyPath, password)
	if err != nil {
		return err
	}
	digest, err := fileDigestBytes(path)
	if err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "reading %s to sign", path)
	}
	sig := ed25519.Sign(priv, digest)

	blob := append([]byte(sigAlgTag), id[:]...)
	blob = append(blob, sig...)
	content := fmt.Sprintf(
		"untrusted comment: signature from historify secret key %s\n%s\ntrusted comment: timestamp:%d\tfile:%s\n",
		id, base64.StdEncoding.EncodeToString(blob), time.Now().UTC().Unix(), path,
	)
	if err := os.WriteFile(sigPath(path), []byte(content), 0o644); err != nil {
		return herrors.Wrap(herrors.KindIO, err, "writing signature file")
	}
	return nil
}

// Verify checks path's detached signature against publicKeyPath. It
// distinguishes a missing signature (SignatureMissingError) from an invalid
// one; diagnostic carries a human-readable reason in the failing case.
func Verify(path, publicKeyPath string) (ok bool, diagnostic string, err error) {
	sp := sigPath(path)
	if _, statErr := os.Stat(sp); statErr != nil {
		return false, "", &SignatureMissingError{Path: path}
	}
	pub, wantID, err := loadPublicKey(publicKeyPath)
	if err != nil {
		return false, "", err
	}

	raw, err := os.ReadFile(sp)
	if err != nil {
		return false, "", herrors.Wrapf(herrors.KindIO, err, "reading signature %s", sp)
	}
	lines := bytes.SplitN(raw, []byte("\n"), 3)
	if len(lines) < 2 {
		return false, "malformed signature file", nil
	}
	blob, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(lines[1])))
	if err != nil || len(blob) != 2+8+ed25519.SignatureSize || string(blob[:2]) != sigAlgTag {
		return false, "malformed signature payload", nil
	}
	var gotID KeyID
	copy(gotID[:], blob[2:10])
	if gotID != wantID {
		return false, fmt.Sprintf("signature key id %s does not match public key id %s", gotID, wantID), nil
	}
	sig := blob[10:]

	digest, err := fileDigestBytes(path)
	if err != nil {
		return false, "", herrors.Wrapf(herrors.KindIO, err, "reading %s to verify", path)
	}
	if !ed25519.Verify(pub, digest, sig) {
		return false, "signature does not verify against public key", nil
	}
	return true, "", nil
}
