package transport_test

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/quantumbio/heartsync/internal/transport"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestSocketCandidatesOverrideWinsAndDeduplicates(t *testing.T) {
	t.Setenv(transport.SocketEnvVar, "/tmp/env.sock")

	paths := transport.SocketCandidates("/tmp/explicit.sock")
	require.Equal(t, "/tmp/explicit.sock", paths[0])
	require.Equal(t, "/tmp/env.sock", paths[1])

	seen := make(map[string]bool)
	for _, p := range paths {
		require.False(t, seen[p], "duplicate candidate %s", p)
		seen[p] = true
	}
}

func TestDialRefusedWhenNotListening(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "absent.sock")

	_, err := transport.Dial(sock, time.Second)
	require.ErrorIs(t, err, transport.ErrRefused)
}

func TestChannelReadWriteAndBrokenPeer(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "bridge.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, aerr := ln.Accept()
		if aerr == nil {
			accepted <- conn
		}
	}()

	ch, err := transport.DialFirst([]string{"/nonexistent/no.sock", sock}, time.Second, testLogger())
	require.NoError(t, err)
	require.Equal(t, sock, ch.Path())
	defer ch.Close()

	peer := <-accepted
	require.NoError(t, ch.WriteAll([]byte("ping")))

	buf := make([]byte, 4)
	_, err = peer.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf))

	// Peer closes: read must classify as broken, not crash.
	require.NoError(t, peer.Close())
	err = ch.ReadFull(make([]byte, 1))
	require.ErrorIs(t, err, transport.ErrBroken)
}

func TestReadDeadlineClassifiedAsTimeout(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "bridge.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, aerr := ln.Accept()
		if aerr == nil {
			defer conn.Close()
			time.Sleep(2 * time.Second)
		}
	}()

	ch, err := transport.Dial(sock, time.Second)
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, ch.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	err = ch.ReadFull(make([]byte, 1))
	require.True(t, transport.IsTimeout(err), "got %v", err)
}

func TestLauncherHelperNotFound(t *testing.T) {
	l := &transport.Launcher{
		Paths: []string{filepath.Join(t.TempDir(), "no-such-helper")},
		Log:   testLogger(),
	}
	require.ErrorIs(t, l.Launch(), transport.ErrHelperNotFound)
}
