package util

import (
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"unicode/utf8"
)

// DefaultReadSize is the receive size used when none is configured.
// Four KiB holds a typical welcome burst.
const DefaultReadSize = 4096

// MaxReadSize caps a single receive; it is also the pooled buffer size.
const MaxReadSize = 32 * 1024

// ClampReadSize forces n into [1, MaxReadSize], substituting
// DefaultReadSize for non-positive values.
func ClampReadSize(n int) int {
	switch {
	case n <= 0:
		return DefaultReadSize
	case n > MaxReadSize:
		return MaxReadSize
	}
	return n
}

// DecodeText turns raw bytes from the wire into a string.  IRC has no
// mandated encoding; invalid UTF-8 sequences are replaced with U+FFFD
// so that nothing received is silently dropped.
func DecodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

// IsHarmless returns true for errors that are expected when the peer
// goes away or we close our own side.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// IsTimeout reports whether err is a read/write deadline expiry.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
