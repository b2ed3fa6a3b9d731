// Package sdk is the plugin-side half of the handshake protocol. A plugin
// binary calls Serve, which binds a listener, announces it with a single
// handshake line on stdout, and then serves gRPC until the context ends.
//
// Stdout is sacred: the handshake line is the only thing the process may
// ever write there. All diagnostics belong on stderr. Serve enforces its
// half of that contract by writing the line exactly once, after the
// listener is bound, and never touching the writer again; plugin authors
// must route their own logging away from stdout.
package sdk

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/renbytes/spexplug/internal/core/domain"
)

// NetworkType aliases the host-side enum so plugin authors outside this
// module can name it.
type NetworkType = domain.NetworkType

const (
	NetworkTCP  = domain.NetworkTCP
	NetworkUnix = domain.NetworkUnix
)

// Options configures Serve. The zero value listens on an ephemeral TCP
// loopback port and advertises protocol version 1.
type Options struct {
	// Network selects the listener transport. Default: tcp.
	Network NetworkType

	// Addr is the bind address. Default: 127.0.0.1:0 for tcp. Required for
	// unix.
	Addr string

	// AppProtocolVersion is the plugin's own service-contract version.
	// Default: 1.
	AppProtocolVersion int

	// Register adds the plugin's gRPC services to the server before it
	// starts accepting. The health service is always registered.
	Register func(*grpc.Server)

	// HandshakeWriter receives the handshake line. Default: os.Stdout.
	// Exists so tests can capture the line without owning the process's
	// real stdout.
	HandshakeWriter io.Writer

	// ServerOptions are passed through to grpc.NewServer.
	ServerOptions []grpc.ServerOption
}

// Serve binds the listener, emits the handshake line, and serves gRPC until
// ctx is cancelled (graceful stop) or the server fails. If the listener
// cannot be bound, nothing is written to the handshake writer and the error
// is returned; the caller should exit nonzero with diagnostics on stderr.
func Serve(ctx context.Context, opts Options) error {
	if opts.Network == "" {
		opts.Network = domain.NetworkTCP
	}
	if opts.Addr == "" {
		if opts.Network != domain.NetworkTCP {
			return fmt.Errorf("bind address is required for network %q", opts.Network)
		}
		opts.Addr = "127.0.0.1:0"
	}
	if opts.AppProtocolVersion == 0 {
		opts.AppProtocolVersion = 1
	}
	if opts.HandshakeWriter == nil {
		opts.HandshakeWriter = os.Stdout
	}

	listener, err := net.Listen(string(opts.Network), opts.Addr)
	if err != nil {
		return fmt.Errorf("binding %s listener on %s: %w", opts.Network, opts.Addr, err)
	}
	defer listener.Close()

	handshake := domain.HandshakeLine{
		CoreProtocolVersion: domain.CoreProtocolVersion,
		AppProtocolVersion:  opts.AppProtocolVersion,
		Network:             opts.Network,
		Address:             listenerAddress(opts, listener),
		RPCProtocol:         domain.RPCProtocolGRPC,
	}
	if err := handshake.Validate(); err != nil {
		return fmt.Errorf("handshake would be invalid: %w", err)
	}

	server := grpc.NewServer(opts.ServerOptions...)
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	if opts.Register != nil {
		opts.Register(server)
	}

	// The listener is bound and the server is fully wired: announce.
	// This is the one and only write to the handshake writer.
	if _, err := fmt.Fprintln(opts.HandshakeWriter, handshake.String()); err != nil {
		return fmt.Errorf("writing handshake line: %w", err)
	}

	go func() {
		<-ctx.Done()
		healthServer.Shutdown()
		server.GracefulStop()
	}()

	if err := server.Serve(listener); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

func listenerAddress(opts Options, listener net.Listener) string {
	if opts.Network == domain.NetworkUnix {
		return opts.Addr
	}
	// The listener resolves an ephemeral port; advertise what was actually
	// bound, not what was requested.
	return listener.Addr().String()
}
