package client

import "errors"

var (
	// ErrDaemonNotRunning is returned when the daemon is not running
	ErrDaemonNotRunning = errors.New("daemon not running")

	// ErrPermissionDenied is returned when the user does not have permission to connect to the daemon socket
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when the daemon answers 404, i.e. for an unknown allocation
	ErrNotFound = errors.New("not found")

	// ErrBadRequest is returned when the daemon rejects the arguments of a request
	ErrBadRequest = errors.New("bad request")
)
