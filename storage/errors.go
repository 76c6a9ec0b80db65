package storage

import "errors"

var (
	// ErrClosed is returned by every operation on a closed backend.
	ErrClosed = errors.New("storage is closed")

	// ErrBadMagic is returned when a file does not start with a store header.
	ErrBadMagic = errors.New("not an index file: bad magic")

	// ErrTruncated is returned when a file is shorter than its header claims.
	ErrTruncated = errors.New("index file is truncated")

	// ErrBadRecord is returned when a record's flag byte holds an impossible value.
	ErrBadRecord = errors.New("corrupt node record")
)
