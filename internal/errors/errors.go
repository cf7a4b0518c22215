// Package errors provides domain-specific error types for ircprobe.
//
// These types carry structured context (operation, address, IRC numeric)
// that helps the scenario runner decide whether a failure aborts a
// scenario or is merely recorded.
package errors

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotConnected       = errors.New("not connected")
	ErrInvalidCommand     = errors.New("command contains CR, LF or NUL")
	ErrReplyTimeout       = errors.New("no matching reply before timeout")
	ErrRegistrationFailed = errors.New("registration failed")
	ErrConnectionClosed   = errors.New("connection closed by server")
	ErrTunnelClosed       = errors.New("tunnel is closed")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrChecksFailed       = errors.New("scenario checks failed")
	ErrGoldenMismatch     = errors.New("transcript differs from golden file")
)

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller could retry
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ReplyError is an error numeric (or ERROR line) the server sent in
// answer to one of our commands.
type ReplyError struct {
	Command string // the command we sent, e.g. "NICK"
	Numeric string // e.g. "433", or "ERROR"
	Text    string // the raw line received
	Err     error  // sentinel classification, e.g. ErrRegistrationFailed
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s rejected with %s: %s", e.Command, e.Numeric, e.Text)
}

func (e *ReplyError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// Rejected creates a ReplyError classified under sentinel.
func Rejected(command, numeric, text string, sentinel error) *ReplyError {
	return &ReplyError{Command: command, Numeric: numeric, Text: text, Err: sentinel}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether redialing could succeed: the server may
// still be starting, or the network hiccupped.  Gateway failures
// (credentials, host key, handshake) are never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *SSHError
	if errors.As(err, &se) {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
