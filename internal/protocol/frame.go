// Package protocol implements the HeartSync bridge wire protocol: JSON text
// messages delimited by a 4-byte big-endian length prefix on a local stream
// socket. The helper process speaks the same protocol from the other side.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxPayload is the largest message body, in bytes, that may be sent or
// accepted. A peer declaring a larger frame is treated as a protocol
// violation and the connection is torn down before any body bytes are read.
const MaxPayload = 65536

// ErrFrameTooLarge indicates a length prefix exceeding MaxPayload.
var ErrFrameTooLarge = errors.New("frame exceeds maximum payload size")

// WriteFrame writes one length-prefixed frame to w.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))

	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write frame prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r. The declared length is
// bounds-checked before any allocation so a misbehaving peer cannot force an
// oversized read.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length > MaxPayload {
		return nil, fmt.Errorf("%w: peer declared %d bytes", ErrFrameTooLarge, length)
	}
	if length == 0 {
		return []byte{}, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}
