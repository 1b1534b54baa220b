package install

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/vyltrex/launcher/internal/apperr"
)

// Algorithm identifies a content digest.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm accepts "sha256" or "blake3", case-insensitive.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case SHA256, "":
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("unsupported digest algorithm %q", s)
	}
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %q", string(a))
	}
}

// ParseExpectedDigest splits an optional "algo:" prefix off a catalog
// digest. A bare hex string uses def.
func ParseExpectedDigest(s string, def Algorithm) (Algorithm, string, error) {
	s = strings.TrimSpace(s)
	prefix, value, found := strings.Cut(s, ":")
	if !found {
		return def, s, nil
	}
	algo, err := ParseAlgorithm(prefix)
	if err != nil {
		return "", "", err
	}
	return algo, strings.TrimSpace(value), nil
}

// Digest streams the file at path through algo and returns lowercase hex.
// Memory use is constant regardless of file size.
func Digest(path string, algo Algorithm) (string, error) {
	h, err := algo.newHash()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerificationResult contains the outcome of a digest check.
type VerificationResult struct {
	Algorithm Algorithm
	Expected  string
	Actual    string
	Success   bool
}

// String returns a human-readable representation
func (r *VerificationResult) String() string {
	if r.Success {
		return fmt.Sprintf("%s verified", r.Algorithm)
	}
	return fmt.Sprintf("%s mismatch: expected %s, got %s", r.Algorithm, r.Expected, r.Actual)
}

// Err converts a failed result into a DIGEST_MISMATCH error.
func (r *VerificationResult) Err() error {
	if r.Success {
		return nil
	}
	return apperr.DigestMismatch(r.Expected, r.Actual)
}

// Verifier checks downloaded archives against catalog digests.
type Verifier struct {
	defaultAlgorithm Algorithm
}

// NewVerifier creates a verifier. Bare catalog digests are read as def;
// an empty def means sha256.
func NewVerifier(def Algorithm) *Verifier {
	if def == "" {
		def = SHA256
	}
	return &Verifier{defaultAlgorithm: def}
}

// Verify hashes path and compares it with expected, ignoring case. A
// mismatch is reported through the result, not the error; the error is
// reserved for unreadable files and unknown algorithms.
func (v *Verifier) Verify(path, expected string) (*VerificationResult, error) {
	algo, want, err := ParseExpectedDigest(expected, v.defaultAlgorithm)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindDigestMismatch, "cannot verify archive")
	}

	actual, err := Digest(path, algo)
	if err != nil {
		return nil, fmt.Errorf("calculate %s: %w", algo, err)
	}

	return &VerificationResult{
		Algorithm: algo,
		Expected:  want,
		Actual:    actual,
		Success:   strings.EqualFold(actual, want),
	}, nil
}
