// Package digest computes file content fingerprints.
//
// Two primitives back the whole catalog: a strong content digest over a
// file's bytes, and the same digest applied to a previously computed
// digest's raw bytes (the hash-of-hash). The second detects corruption
// of a stored hash value independent of the file it describes.
package digest

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
)

// ErrLengthMismatch reports that the digest primitive produced a sum of
// an unexpected length. It guards against a misconfigured or
// substituted algorithm, not an expected runtime condition.
var ErrLengthMismatch = errors.New("digest length mismatch")

// AccessError reports that a candidate file could not be opened or
// read. It aborts processing of that file only; the pass continues.
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access %q: %v", e.Path, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// IsAccessError reports whether err is an AccessError, unwrapping as
// needed.
func IsAccessError(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae)
}

// Engine computes fixed-length digests with a configured algorithm.
type Engine struct {
	algorithm string
	size      int
	newHash   func() hash.Hash
}

// NewSHA1 returns the reference engine: SHA-1, 20-byte digests.
func NewSHA1() *Engine {
	return &Engine{
		algorithm: "sha1",
		size:      sha1.Size,
		newHash:   sha1.New,
	}
}

// Algorithm returns the identifier stored in catalog metadata.
func (e *Engine) Algorithm() string { return e.algorithm }

// Size returns the digest length in bytes.
func (e *Engine) Size() int { return e.size }

// File streams the file at path through the digest primitive and
// returns the content digest and the number of bytes read. Open and
// read failures come back as *AccessError.
func (e *Engine) File(path string) (sum []byte, n int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, &AccessError{Path: path, Err: err}
	}
	defer f.Close()

	h := e.newHash()
	n, err = io.Copy(h, f)
	if err != nil {
		return nil, n, &AccessError{Path: path, Err: err}
	}

	sum = h.Sum(nil)
	if len(sum) != e.size {
		return nil, n, fmt.Errorf("%w: got %d bytes, want %d", ErrLengthMismatch, len(sum), e.size)
	}
	return sum, n, nil
}

// OfDigest applies the digest primitive to a digest's raw bytes.
func (e *Engine) OfDigest(d []byte) ([]byte, error) {
	h := e.newHash()
	h.Write(d)
	sum := h.Sum(nil)
	if len(sum) != e.size {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrLengthMismatch, len(sum), e.size)
	}
	return sum, nil
}
