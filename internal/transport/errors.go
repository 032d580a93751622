package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// ErrorKind classifies transport failures. Every kind is recoverable by the
// caller via reconnect; none should escape the client as a fault.
type ErrorKind string

const (
	// Refused means nothing is listening on the socket path.
	Refused ErrorKind = "refused"
	// Broken means the peer closed or reset an established connection.
	Broken ErrorKind = "broken"
	// Timeout means a read or dial deadline expired.
	Timeout ErrorKind = "timeout"
)

// TransportError wraps a socket-level failure with its classification.
type TransportError struct {
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is allows errors.Is comparison by Kind.
func (e *TransportError) Is(target error) bool {
	t, ok := target.(*TransportError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrRefused = &TransportError{Kind: Refused}
	ErrBroken  = &TransportError{Kind: Broken}
	ErrTimeout = &TransportError{Kind: Timeout}
)

// classify maps raw socket errors onto the transport taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Kind: Timeout, Err: err}
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ENOENT),
		errors.Is(err, os.ErrNotExist):
		return &TransportError{Kind: Refused, Err: err}
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, net.ErrClosed):
		return &TransportError{Kind: Broken, Err: err}
	default:
		return &TransportError{Kind: Broken, Err: err}
	}
}

// IsTimeout reports whether err is a transport timeout. Timeouts during a
// deadline-bounded read are the supervisor's cue to poll its heartbeat clock,
// not a connection failure.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
