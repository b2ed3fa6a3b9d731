package domain

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// CoreProtocolVersion is the newest handshake envelope version this host
// understands. Plugins advertising a higher version are rejected.
const CoreProtocolVersion = 1

// handshakeFieldCount is the exact number of pipe-delimited fields in a
// handshake line.
const handshakeFieldCount = 5

// RPCProtocolGRPC is the canonical wire-protocol marker advertised by
// plugins serving gRPC on the handshake address.
const RPCProtocolGRPC = "grpc"

// NetworkType identifies how the host reaches the plugin's listener.
type NetworkType string

const (
	NetworkTCP  NetworkType = "tcp"
	NetworkUnix NetworkType = "unix"
)

// HandshakeLine is the single authoritative descriptor a plugin emits on
// stdout once its listener is bound. It is the first and only content ever
// written to that stream:
//
//	<core>|<app>|<network>|<address>|<rpc>
//
// Example: 1|1|tcp|127.0.0.1:54321|grpc
type HandshakeLine struct {
	// CoreProtocolVersion is the handshake envelope version.
	CoreProtocolVersion int

	// AppProtocolVersion is the version of the plugin's own service contract.
	AppProtocolVersion int

	// Network is how to reach the listener: tcp or unix.
	Network NetworkType

	// Address is HOST:PORT for tcp, a filesystem path for unix.
	Address string

	// RPCProtocol names the wire protocol served on Address (e.g. "grpc").
	RPCProtocol string
}

// String encodes the handshake line without a trailing newline.
func (h HandshakeLine) String() string {
	return fmt.Sprintf("%d|%d|%s|%s|%s",
		h.CoreProtocolVersion, h.AppProtocolVersion, h.Network, h.Address, h.RPCProtocol)
}

// Validate checks that the line is encodable: positive versions, a known
// network type, a parseable address, and a non-empty protocol marker.
func (h HandshakeLine) Validate() error {
	if h.CoreProtocolVersion < 1 {
		return fmt.Errorf("%w: core protocol version %d", ErrMalformedHandshake, h.CoreProtocolVersion)
	}
	if h.AppProtocolVersion < 1 {
		return fmt.Errorf("%w: app protocol version %d", ErrMalformedHandshake, h.AppProtocolVersion)
	}
	if err := validateNetwork(h.Network); err != nil {
		return err
	}
	if err := validateAddress(h.Network, h.Address); err != nil {
		return err
	}
	if h.RPCProtocol == "" || strings.ContainsAny(h.RPCProtocol, "|\n") {
		return fmt.Errorf("%w: rpc protocol %q", ErrMalformedHandshake, h.RPCProtocol)
	}
	return nil
}

// ParseHandshakeLine decodes and validates a single handshake line. The
// input must not contain the trailing newline. Failures carry the raw line
// so a bad handshake can be debugged without re-running the plugin.
func ParseHandshakeLine(line string) (HandshakeLine, error) {
	line = strings.TrimSuffix(line, "\r")

	fields := strings.Split(line, "|")
	if len(fields) != handshakeFieldCount {
		return HandshakeLine{}, fmt.Errorf("%w: expected %d pipe-delimited fields, got %d in %q",
			ErrMalformedHandshake, handshakeFieldCount, len(fields), line)
	}

	core, err := strconv.Atoi(fields[0])
	if err != nil || core < 1 {
		return HandshakeLine{}, fmt.Errorf("%w: core protocol version %q is not a positive integer (line %q)",
			ErrMalformedHandshake, fields[0], line)
	}
	if core > CoreProtocolVersion {
		return HandshakeLine{}, fmt.Errorf("%w: plugin advertises version %d, host supports up to %d",
			ErrUnsupportedProtocolVersion, core, CoreProtocolVersion)
	}

	app, err := strconv.Atoi(fields[1])
	if err != nil || app < 1 {
		return HandshakeLine{}, fmt.Errorf("%w: app protocol version %q is not a positive integer (line %q)",
			ErrMalformedHandshake, fields[1], line)
	}

	// Network type is checked before the address so an unknown transport is
	// reported as such even when the address is also garbage.
	network := NetworkType(fields[2])
	if err := validateNetwork(network); err != nil {
		return HandshakeLine{}, err
	}

	address := fields[3]
	if err := validateAddress(network, address); err != nil {
		return HandshakeLine{}, err
	}

	rpc := fields[4]
	if rpc == "" {
		return HandshakeLine{}, fmt.Errorf("%w: empty rpc protocol field (line %q)", ErrMalformedHandshake, line)
	}

	return HandshakeLine{
		CoreProtocolVersion: core,
		AppProtocolVersion:  app,
		Network:             network,
		Address:             address,
		RPCProtocol:         rpc,
	}, nil
}

func validateNetwork(network NetworkType) error {
	switch network {
	case NetworkTCP, NetworkUnix:
		return nil
	default:
		return fmt.Errorf("%w: %q (want %q or %q)", ErrUnknownNetworkType, network, NetworkTCP, NetworkUnix)
	}
}

func validateAddress(network NetworkType, address string) error {
	switch network {
	case NetworkTCP:
		// SplitHostPort tolerates hosts like "ab|cd"; such an address would
		// re-encode as extra fields and break the round-trip identity.
		if strings.ContainsAny(address, "|\n") {
			return fmt.Errorf("%w: tcp address %q contains reserved characters", ErrInvalidAddress, address)
		}
		host, port, err := net.SplitHostPort(address)
		if err != nil {
			return fmt.Errorf("%w: %q is not host:port: %v", ErrInvalidAddress, address, err)
		}
		if host == "" {
			return fmt.Errorf("%w: %q has an empty host", ErrInvalidAddress, address)
		}
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("%w: %q has an invalid port", ErrInvalidAddress, address)
		}
	case NetworkUnix:
		if address == "" {
			return fmt.Errorf("%w: empty unix socket path", ErrInvalidAddress)
		}
		if strings.ContainsAny(address, "|\n") {
			return fmt.Errorf("%w: unix socket path %q contains reserved characters", ErrInvalidAddress, address)
		}
	}
	return nil
}
