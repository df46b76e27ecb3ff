package client

import "errors"

var (
	// ErrDaemonNotRunning is returned when the daemon socket does not exist
	ErrDaemonNotRunning = errors.New("daemon not running")

	// ErrPermissionDenied is returned when the socket is not accessible to the current user
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when the daemon answers 404, e.g. for an unknown camera
	ErrNotFound = errors.New("not found")
)
