package nodeclient

import (
	"errors"
	"regexp"

	"github.com/ethereum/go-ethereum/rpc"
)

// The node reports a missing vault in several shapes depending on how the
// lookup failed. Malformed ids (wrong length, non-hex characters) are folded
// into the same group because the node rejects them before any lookup runs.
var vaultNotFoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Vault <[^>]+> not found`),
	regexp.MustCompile(`Vault .+ not found`),
	regexp.MustCompile(`vaultId must be of length 64`),
	regexp.MustCompile(`vaultId must be hexadecimal`),
}

var tokenNotFoundPattern = regexp.MustCompile(`Token .+ does not exist`)

// IsVaultNotFoundError checks if the error is the node rejecting a vault
// lookup, either because the vault does not exist or the id is malformed.
func IsVaultNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	msg := nodeErrorMessage(err)
	if msg == "" {
		return false
	}

	for _, re := range vaultNotFoundPatterns {
		if re.MatchString(msg) {
			return true
		}
	}

	return false
}

// IsTokenNotFoundError checks if the error is the node reporting an unknown token.
func IsTokenNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	return tokenNotFoundPattern.MatchString(nodeErrorMessage(err))
}

// nodeErrorMessage extracts the message of a JSON-RPC error response.
// Transport failures carry no node message and return "".
func nodeErrorMessage(err error) string {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Error()
	}

	return ""
}
