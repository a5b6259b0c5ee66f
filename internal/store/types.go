package store

// LoanScheme is the current record of a loan scheme, one per identifier.
type LoanScheme struct {
	ID                 string `meddler:"id" json:"id"`
	InterestRate       string `meddler:"interest_rate" json:"interestRate"`
	MinCollateralRatio int64  `meddler:"min_col_ratio" json:"minColRatio"`

	// ActivateAfterBlock is the scheduled activation height the current
	// values originated from, nil for schemes that were applied immediately.
	ActivateAfterBlock *uint64 `meddler:"activate_after_block" json:"activateAfterBlock,omitempty"`
}

// History origins record which operation produced a snapshot.
const (
	HistoryOriginCreate   = "create"
	HistoryOriginUpdate   = "update"
	HistoryOriginActivate = "activate"
)

// LoanSchemeHistory is an immutable snapshot of a loan scheme at a block height.
// Exactly one record exists per mutation of the current record at that height.
type LoanSchemeHistory struct {
	RowID              int64   `meddler:"id,pk" json:"-"`
	SchemeID           string  `meddler:"scheme_id" json:"id"`
	Height             uint64  `meddler:"height" json:"height"`
	Origin             string  `meddler:"origin" json:"origin"`
	InterestRate       string  `meddler:"interest_rate" json:"interestRate"`
	MinCollateralRatio int64   `meddler:"min_col_ratio" json:"minColRatio"`
	ActivateAfterBlock *uint64 `meddler:"activate_after_block" json:"activateAfterBlock,omitempty"`
}

// Scheme returns the loan scheme values captured by the snapshot.
func (h *LoanSchemeHistory) Scheme() *LoanScheme {
	return &LoanScheme{
		ID:                 h.SchemeID,
		InterestRate:       h.InterestRate,
		MinCollateralRatio: h.MinCollateralRatio,
		ActivateAfterBlock: h.ActivateAfterBlock,
	}
}

// DeferredLoanScheme is a pending scheme update waiting for its activation
// height. At most one entry exists per identifier.
type DeferredLoanScheme struct {
	SchemeID           string `meddler:"scheme_id" json:"id"`
	InterestRate       string `meddler:"interest_rate" json:"interestRate"`
	MinCollateralRatio int64  `meddler:"min_col_ratio" json:"minColRatio"`
	ActivateAfterBlock uint64 `meddler:"activate_after_block" json:"activateAfterBlock"`
}
