package nodeclient

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockRPCError mimics a JSON-RPC error response from the node.
type mockRPCError struct {
	msg  string
	code int
}

func (e *mockRPCError) Error() string  { return e.msg }
func (e *mockRPCError) ErrorCode() int { return e.code }

func TestIsVaultNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{
			name:     "nil error",
			err:      nil,
			notFound: false,
		},
		{
			name:     "vault not found angle brackets",
			err:      &mockRPCError{msg: "Vault <2d64fe...> not found", code: -5},
			notFound: true,
		},
		{
			name:     "vault not found plain",
			err:      &mockRPCError{msg: "Vault 2d64fe not found", code: -5},
			notFound: true,
		},
		{
			name:     "short id",
			err:      &mockRPCError{msg: "vaultId must be of length 64 (not 8, for 'deadbeef')", code: -8},
			notFound: true,
		},
		{
			name:     "non-hex id",
			err:      &mockRPCError{msg: "vaultId must be hexadecimal string (not 'xyz')", code: -8},
			notFound: true,
		},
		{
			name:     "wrapped rpc error",
			err:      fmt.Errorf("call failed: %w", &mockRPCError{msg: "Vault <aa> not found", code: -5}),
			notFound: true,
		},
		{
			name:     "other node error",
			err:      &mockRPCError{msg: "work queue depth exceeded", code: -1},
			notFound: false,
		},
		{
			name:     "transport error carries no node message",
			err:      errors.New("Vault <aa> not found"),
			notFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.notFound, IsVaultNotFoundError(tt.err))
		})
	}
}

func TestIsTokenNotFoundError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTokenNotFoundError(&mockRPCError{msg: "Token DOGE does not exist!", code: -5}))
	assert.False(t, IsTokenNotFoundError(&mockRPCError{msg: "something else", code: -1}))
	assert.False(t, IsTokenNotFoundError(nil))
}
