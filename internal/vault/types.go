package vault

import (
	"github.com/goran-ethernal/LoanIndexor/pkg/node"
)

// Vault states exposed by the API. The node reports camel-case states,
// views carry the screaming-snake form.
const (
	StateActive        = "ACTIVE"
	StateFrozen        = "FROZEN"
	StateMayLiquidate  = "MAY_LIQUIDATE"
	StateInLiquidation = "IN_LIQUIDATION"
	StateUnknown       = "UNKNOWN"
)

// viewState maps the node's vault state to the API form.
func viewState(raw string) string {
	switch raw {
	case node.VaultStateActive:
		return StateActive
	case node.VaultStateFrozen:
		return StateFrozen
	case node.VaultStateMayLiquidate:
		return StateMayLiquidate
	case node.VaultStateInLiquidation:
		return StateInLiquidation
	default:
		return StateUnknown
	}
}

// View is either a *LoanVaultActive or a *LoanVaultLiquidated.
type View interface {
	vaultID() string
}

// LoanSchemeView is the scheme summary embedded in vault views. Default
// reports whether the scheme is the system default.
type LoanSchemeView struct {
	ID           string `json:"id"`
	MinColRatio  string `json:"minColRatio"`
	InterestRate string `json:"interestRate"`
	Default      bool   `json:"default"`
}

// TokenAmount is one amount of a vault's collateral, loan or interest list,
// enriched with token metadata and the active oracle price. All numeric
// fields are fixed-point decimal strings.
type TokenAmount struct {
	ID            string `json:"id"`
	Amount        string `json:"amount"`
	Symbol        string `json:"symbol"`
	SymbolKey     string `json:"symbolKey"`
	DisplaySymbol string `json:"displaySymbol"`
	ActivePrice   string `json:"activePrice,omitempty"`
}

// LoanVaultActive is the view of a vault that is not under liquidation.
type LoanVaultActive struct {
	VaultID      string         `json:"vaultId"`
	LoanScheme   LoanSchemeView `json:"loanScheme"`
	OwnerAddress string         `json:"ownerAddress"`
	State        string         `json:"state"`

	InformativeRatio string `json:"informativeRatio"`
	CollateralRatio  string `json:"collateralRatio"`
	CollateralValue  string `json:"collateralValue"`
	LoanValue        string `json:"loanValue"`
	InterestValue    string `json:"interestValue"`

	CollateralAmounts []TokenAmount `json:"collateralAmounts"`
	LoanAmounts       []TokenAmount `json:"loanAmounts"`
	InterestAmounts   []TokenAmount `json:"interestAmounts"`
}

func (v *LoanVaultActive) vaultID() string { return v.VaultID }

// LoanVaultLiquidated is the view of a vault under liquidation.
type LoanVaultLiquidated struct {
	VaultID      string         `json:"vaultId"`
	LoanScheme   LoanSchemeView `json:"loanScheme"`
	OwnerAddress string         `json:"ownerAddress"`
	State        string         `json:"state"`

	BatchCount         int    `json:"batchCount"`
	LiquidationHeight  uint64 `json:"liquidationHeight"`
	LiquidationPenalty string `json:"liquidationPenalty"`

	Batches []LiquidationBatch `json:"batches"`
}

func (v *LoanVaultLiquidated) vaultID() string { return v.VaultID }

// LiquidationBatch is one auctioned partition of a liquidated vault.
// A batch carries exactly one loan entry; Loan is absent if the node
// ever supplies none.
type LiquidationBatch struct {
	Index       uint32        `json:"index"`
	Collaterals []TokenAmount `json:"collaterals"`
	Loan        *TokenAmount  `json:"loan,omitempty"`
}
