package plugins

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/renbytes/spexplug/internal/core/domain"
)

// startHealthServer runs a gRPC server with the health service on a
// loopback port, returning its advertised address.
func startHealthServer(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	go server.Serve(listener)
	t.Cleanup(server.Stop)

	return listener.Addr().String()
}

func TestOpenChannel_TCP(t *testing.T) {
	address := startHealthServer(t)

	handshake := domain.HandshakeLine{
		CoreProtocolVersion: 1,
		AppProtocolVersion:  1,
		Network:             domain.NetworkTCP,
		Address:             address,
		RPCProtocol:         domain.RPCProtocolGRPC,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := OpenChannel(ctx, handshake)
	require.NoError(t, err)
	defer conn.Close()

	// The channel is live: a second health probe over the returned conn works.
	_, err = healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	assert.NoError(t, err)
}

func TestOpenChannel_RejectsUnknownRPCProtocol(t *testing.T) {
	handshake := domain.HandshakeLine{
		CoreProtocolVersion: 1,
		AppProtocolVersion:  1,
		Network:             domain.NetworkTCP,
		Address:             "127.0.0.1:54321",
		RPCProtocol:         "netrpc",
	}

	_, err := OpenChannel(context.Background(), handshake)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "netrpc")
}

func TestOpenChannel_UnreachableAddressFails(t *testing.T) {
	// A bound-then-closed listener gives a port nothing listens on.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())

	handshake := domain.HandshakeLine{
		CoreProtocolVersion: 1,
		AppProtocolVersion:  1,
		Network:             domain.NetworkTCP,
		Address:             address,
		RPCProtocol:         domain.RPCProtocolGRPC,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = OpenChannel(ctx, handshake)
	require.Error(t, err, "the health probe must catch a dead advertised address")
}
