// Package iox provides I/O helpers for bounded reads and resource cleanup.
package iox

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrTooLarge is returned when input exceeds a read limit.
var ErrTooLarge = errors.New("input too large")

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup and b.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(client))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and discards the returned error.
// Use for non-Close cleanup calls (e.g. Flush) where errors are unactionable:
//
//	defer iox.DiscardErr(w.Flush)
func DiscardErr(fn func() error) { _ = fn() }

// ReadAllLimit reads r to EOF. It fails with ErrTooLarge once more than
// limit bytes are available. A limit <= 0 means no limit.
func ReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// ReadFile reads the named file, or standard input when path is "-",
// subject to ReadAllLimit.
func ReadFile(path string, limit int64) ([]byte, error) {
	if path == "-" {
		return ReadAllLimit(os.Stdin, limit)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer DiscardClose(f)
	return ReadAllLimit(f, limit)
}
