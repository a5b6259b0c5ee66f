package vault

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying read-model failures. Handlers translate these
// to HTTP status codes; everything else is treated as an internal error.
var (
	// ErrNotFound marks an unknown vault, scheme or default scheme.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks token metadata that cannot be resolved for a symbol
	// referenced by on-chain amounts.
	ErrConflict = errors.New("conflict")

	// ErrBadRequest marks any other upstream node error. The upstream
	// message is preserved for diagnostics.
	ErrBadRequest = errors.New("bad request")
)

func notFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflict)...)
}

func badRequestf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrBadRequest)...)
}
