package domain

import "errors"

// Protocol and discovery errors. Every failure surfaced by the handshake
// decoder, launcher, discovery, or packager wraps one of these sentinels so
// callers can branch with errors.Is while still seeing the full context
// (raw line, elapsed wait, searched directories) in the message.
var (
	// ErrMalformedHandshake indicates the first line read from the plugin's
	// stdout did not have the expected five-field shape. This usually means
	// log output leaked onto stdout before the handshake.
	ErrMalformedHandshake = errors.New("malformed handshake")

	// ErrUnsupportedProtocolVersion indicates the plugin speaks a newer
	// handshake envelope than this host understands.
	ErrUnsupportedProtocolVersion = errors.New("unsupported core protocol version")

	// ErrUnknownNetworkType indicates the network field was not "tcp" or "unix".
	ErrUnknownNetworkType = errors.New("unknown network type")

	// ErrInvalidAddress indicates the address field failed to parse for the
	// advertised network type.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrHandshakeTimeout indicates the plugin produced no handshake line
	// before the startup deadline. The child process is terminated before
	// this error is returned.
	ErrHandshakeTimeout = errors.New("handshake timeout")

	// ErrExecutableNotFound indicates the resolved plugin path does not
	// point at a runnable executable.
	ErrExecutableNotFound = errors.New("executable not found")

	// ErrSpawnFailed indicates the OS rejected the exec attempt.
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrPluginNotFound indicates no directory on the search path contains
	// an executable with the requested name.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrProtocolViolation indicates bytes appeared on the handshake stream
	// after the handshake completed. Stdout is handshake-only for the whole
	// process lifetime; trailing output means logs are leaking.
	ErrProtocolViolation = errors.New("protocol violation: unexpected data on handshake stream")

	// ErrUnrecognizedPlatformTarget indicates a release target triple with
	// no entry in the arch/os tag table.
	ErrUnrecognizedPlatformTarget = errors.New("unrecognized platform target")

	// ErrArtifactMissing indicates the compile step for a release target
	// produced no binary to archive.
	ErrArtifactMissing = errors.New("artifact missing")
)
