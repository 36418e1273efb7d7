package pacs

import (
	"errors"
	"fmt"
)

// ConnectError reports a failure to reach or associate with a server. The
// whole server (or window) contributes nothing when this is raised.
type ConnectError struct {
	Server string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Server, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// QueryError reports a failed C-FIND on an established association: either
// a non-success DIMSE status, or a protocol error mid-stream (Err set).
type QueryError struct {
	Server string
	Level  string // STUDY or SERIES
	Status uint16
	Err    error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s-level query against %s failed: %v", e.Level, e.Server, e.Err)
	}
	return fmt.Sprintf("%s-level query against %s failed with status 0x%04X", e.Level, e.Server, e.Status)
}

func (e *QueryError) Unwrap() error { return e.Err }

// IsConnectError reports whether err wraps a ConnectError.
func IsConnectError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce)
}
