package pacs

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectError_Unwraps(t *testing.T) {
	cause := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	err := fmt.Errorf("window skipped: %w", &ConnectError{Server: "main", Err: cause})

	assert.True(t, IsConnectError(err))

	var opErr *net.OpError
	require.ErrorAs(t, err, &opErr, "transport cause stays reachable")
}

func TestQueryError_WrapsMidStreamFailure(t *testing.T) {
	cause := errors.New("unexpected command: 0x8001 (expected C-FIND-RSP)")
	err := &QueryError{Server: "main", Level: "STUDY", Err: cause}

	assert.False(t, IsConnectError(err), "established-association failures are query errors")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "STUDY")
	assert.Contains(t, err.Error(), "unexpected command")
}

func TestQueryError_Message(t *testing.T) {
	err := &QueryError{Server: "archive", Level: "SERIES", Status: 0xA700}

	assert.Contains(t, err.Error(), "archive")
	assert.Contains(t, err.Error(), "SERIES")
	assert.Contains(t, err.Error(), "0xA700")
	assert.False(t, IsConnectError(err))
}
