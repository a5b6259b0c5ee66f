package indexer

import (
	"errors"

	"github.com/goran-ethernal/LoanIndexor/internal/indexer/loanscheme"
)

// IsConsistencyViolation reports whether err indicates index state that
// cannot be reconstructed. Such errors halt block processing instead of
// being retried, since retrying without correcting the underlying history
// gap cannot succeed.
func IsConsistencyViolation(err error) bool {
	return errors.Is(err, loanscheme.ErrSchemeMissing) ||
		errors.Is(err, loanscheme.ErrHistoryMissing)
}
