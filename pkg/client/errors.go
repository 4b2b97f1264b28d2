package client

import "errors"

// Sentinel errors returned by the client. Compare with errors.Is.
var (
	// ErrDaemonNotRunning means nothing is listening on the daemon socket.
	ErrDaemonNotRunning = errors.New("fastchg daemon not running")

	// ErrPermissionDenied means the socket exists but this user may not use it.
	ErrPermissionDenied = errors.New("permission denied on daemon socket")

	// ErrNotFound is returned for unknown attributes and routes (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrUnavailable is returned once the daemon has released its attribute
	// tree, typically while it shuts down (HTTP 503).
	ErrUnavailable = errors.New("attributes unavailable")
)
