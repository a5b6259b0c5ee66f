package loanscheme

import "errors"

// Consistency violations. These are fatal to the block being processed:
// they indicate the persisted history window is insufficient to reconstruct
// prior state, so they are escalated rather than skipped.
var (
	// ErrSchemeMissing is returned when the current loan scheme record that an
	// operation relies on does not exist.
	ErrSchemeMissing = errors.New("current loan scheme record missing")

	// ErrHistoryMissing is returned when the history record required to undo
	// an operation does not exist.
	ErrHistoryMissing = errors.New("loan scheme history record missing")
)
