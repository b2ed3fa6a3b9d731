package plugins

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/renbytes/spexplug/internal/core/domain"
)

// OpenChannel establishes the RPC channel at the address a handshake
// advertised. Ownership of the handshake stream ends before this point;
// everything after the returned connection belongs to the RPC layer.
//
// The plugin's health service is probed to confirm the channel actually
// works; plugins that don't register one are tolerated.
func OpenChannel(ctx context.Context, handshake domain.HandshakeLine) (*grpc.ClientConn, error) {
	if handshake.RPCProtocol != domain.RPCProtocolGRPC {
		return nil, fmt.Errorf("unsupported rpc protocol %q: this host only speaks %q",
			handshake.RPCProtocol, domain.RPCProtocolGRPC)
	}

	var target string
	switch handshake.Network {
	case domain.NetworkTCP:
		target = handshake.Address
	case domain.NetworkUnix:
		target = "unix:" + handshake.Address
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownNetworkType, handshake.Network)
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", target, err)
	}

	probe := healthpb.NewHealthClient(conn)
	if _, err := probe.Check(ctx, &healthpb.HealthCheckRequest{}); err != nil {
		if status.Code(err) != codes.Unimplemented {
			conn.Close()
			return nil, fmt.Errorf("health probe on %s failed: %w", target, err)
		}
	}

	return conn, nil
}
