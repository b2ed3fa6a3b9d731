package sdk

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/renbytes/spexplug/internal/core/domain"
	"github.com/renbytes/spexplug/internal/infrastructure/plugins"
)

// serveInBackground runs Serve and returns the first line it wrote plus a
// stop function that shuts the server down and waits for Serve to return.
func serveInBackground(t *testing.T, opts Options) (string, func() error) {
	t.Helper()

	reader, writer := io.Pipe()
	opts.HandshakeWriter = writer

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, opts)
	}()

	lineCh := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(reader).ReadString('\n')
		lineCh <- line
	}()

	var line string
	select {
	case line = <-lineCh:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("Serve never wrote a handshake line")
	}

	stop := func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			return context.DeadlineExceeded
		}
	}
	return strings.TrimSuffix(line, "\n"), stop
}

func TestServe_EmitsValidHandshake(t *testing.T) {
	line, stop := serveInBackground(t, Options{AppProtocolVersion: 7})

	handshake, err := domain.ParseHandshakeLine(line)
	require.NoError(t, err, "the emitted line must round-trip through the host decoder")
	assert.Equal(t, domain.CoreProtocolVersion, handshake.CoreProtocolVersion)
	assert.Equal(t, 7, handshake.AppProtocolVersion)
	assert.Equal(t, NetworkTCP, handshake.Network)
	assert.Equal(t, domain.RPCProtocolGRPC, handshake.RPCProtocol)
	assert.True(t, strings.HasPrefix(handshake.Address, "127.0.0.1:"),
		"default bind is loopback with an ephemeral port")
	assert.False(t, strings.HasSuffix(handshake.Address, ":0"),
		"the advertised port must be the bound one, not the requested wildcard")

	assert.NoError(t, stop())
}

func TestServe_AdvertisedChannelIsLive(t *testing.T) {
	line, stop := serveInBackground(t, Options{})
	defer stop()

	handshake, err := domain.ParseHandshakeLine(line)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := plugins.OpenChannel(ctx, handshake)
	require.NoError(t, err, "the host must be able to establish the channel at the advertised address")
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestServe_UnixSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "plugin.sock")
	line, stop := serveInBackground(t, Options{Network: NetworkUnix, Addr: socketPath})
	defer stop()

	handshake, err := domain.ParseHandshakeLine(line)
	require.NoError(t, err)
	assert.Equal(t, NetworkUnix, handshake.Network)
	assert.Equal(t, socketPath, handshake.Address)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := plugins.OpenChannel(ctx, handshake)
	require.NoError(t, err)
	conn.Close()
}

func TestServe_BindFailureEmitsNothing(t *testing.T) {
	var wrote strings.Builder

	// A unix socket path inside a nonexistent directory cannot bind.
	err := Serve(context.Background(), Options{
		Network:         NetworkUnix,
		Addr:            filepath.Join(t.TempDir(), "missing", "plugin.sock"),
		HandshakeWriter: &wrote,
	})

	require.Error(t, err)
	assert.Empty(t, wrote.String(),
		"a plugin that cannot bind must never emit a handshake line")
}

func TestServe_UnixRequiresAddr(t *testing.T) {
	err := Serve(context.Background(), Options{Network: NetworkUnix})
	require.Error(t, err)
}
