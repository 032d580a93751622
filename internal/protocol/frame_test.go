package protocol_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/quantumbio/heartsync/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 2, 3, 4, 16, 255, 1024, 65535, protocol.MaxPayload}

	for _, size := range sizes {
		payload := bytes.Repeat([]byte{'x'}, size)

		var buf bytes.Buffer
		require.NoError(t, protocol.WriteFrame(&buf, payload))
		require.Equal(t, size+4, buf.Len())

		decoded, err := protocol.ReadFrame(&buf)
		require.NoError(t, err)
		require.Equal(t, payload, decoded)
	}
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	err := protocol.WriteFrame(&buf, make([]byte, protocol.MaxPayload+1))

	require.ErrorIs(t, err, protocol.ErrFrameTooLarge)
	require.Zero(t, buf.Len(), "nothing must reach the wire")
}

// trackingReader fails the test if more than the 4 prefix bytes are read,
// proving the oversize check happens before any body read or allocation.
type trackingReader struct {
	t    *testing.T
	r    io.Reader
	read int
}

func (tr *trackingReader) Read(p []byte) (int, error) {
	n, err := tr.r.Read(p)
	tr.read += n
	if tr.read > 4 {
		tr.t.Fatal("read past length prefix of an oversized frame")
	}
	return n, err
}

func TestReadFrameRejectsOversizedPrefix(t *testing.T) {
	var buf bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], protocol.MaxPayload+1)
	buf.Write(prefix[:])
	buf.Write(bytes.Repeat([]byte{'x'}, 128)) // body must never be touched

	_, err := protocol.ReadFrame(&trackingReader{t: t, r: &buf})
	require.ErrorIs(t, err, protocol.ErrFrameTooLarge)
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], 10)
	buf.Write(prefix[:])
	buf.WriteString("short")

	_, err := protocol.ReadFrame(&buf)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrameEmptyStream(t *testing.T) {
	_, err := protocol.ReadFrame(bytes.NewReader(nil))
	require.ErrorIs(t, err, io.EOF)
}
