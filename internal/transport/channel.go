// Package transport owns the local stream socket to the HeartSync helper
// process. It knows nothing about framing or the protocol: just connect,
// read, write, close, and a structured error taxonomy.
package transport

import (
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// Channel is an open connection to the helper socket. Reads are expected to
// happen on a single goroutine; writes may come from any goroutine but must
// be serialized by the caller.
type Channel struct {
	conn net.Conn
	path string
}

// Dial connects to the helper socket at path within timeout.
func Dial(path string, timeout time.Duration) (*Channel, error) {
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, classify(err)
	}
	return &Channel{conn: conn, path: path}, nil
}

// DialFirst tries each candidate path in order and returns the first channel
// that connects. All failures are logged at debug level; the last one is
// returned if nothing connects.
func DialFirst(paths []string, timeout time.Duration, log *logrus.Logger) (*Channel, error) {
	var lastErr error = ErrRefused
	for _, path := range paths {
		ch, err := Dial(path, timeout)
		if err == nil {
			log.WithField("socket", path).Debug("Bridge socket connected")
			return ch, nil
		}
		log.WithError(err).WithField("socket", path).Debug("Bridge socket unavailable")
		lastErr = err
	}
	return nil, lastErr
}

// Path returns the socket path this channel is connected to.
func (c *Channel) Path() string { return c.path }

// Read implements io.Reader so the framing codec can consume the channel
// directly. The configured read deadline applies.
func (c *Channel) Read(p []byte) (int, error) {
	n, err := c.conn.Read(p)
	if err != nil {
		return n, classify(err)
	}
	return n, nil
}

// Write implements io.Writer.
func (c *Channel) Write(p []byte) (int, error) {
	n, err := c.conn.Write(p)
	if err != nil {
		return n, classify(err)
	}
	return n, nil
}

// ReadFull reads exactly len(p) bytes or fails.
func (c *Channel) ReadFull(p []byte) error {
	if _, err := io.ReadFull(c.conn, p); err != nil {
		return classify(err)
	}
	return nil
}

// WriteAll writes all of p or fails.
func (c *Channel) WriteAll(p []byte) error {
	for len(p) > 0 {
		n, err := c.conn.Write(p)
		if err != nil {
			return classify(err)
		}
		p = p[n:]
	}
	return nil
}

// SetReadDeadline bounds the next Read so the owning goroutine can wake up
// to check its shutdown flag and heartbeat clock.
func (c *Channel) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close shuts the socket down. Closing from another goroutine interrupts a
// blocked Read, which is how the supervisor guarantees bounded join time.
func (c *Channel) Close() error {
	return c.conn.Close()
}
