package client

import "errors"

var (
	// ErrBenchNotRunning is returned when no run is serving the bench socket
	ErrBenchNotRunning = errors.New("bench not running")

	// ErrPermissionDenied is returned when the user may not open the bench socket
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when 404 is returned from the bench
	ErrNotFound = errors.New("404 not found")
)
