package node

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Vault states as reported by the node.
const (
	VaultStateActive        = "active"
	VaultStateFrozen        = "frozen"
	VaultStateMayLiquidate  = "mayLiquidate"
	VaultStateInLiquidation = "inLiquidation"
)

// RawVault is the node's native shape for a vault. Amount lists are encoded
// as "<amount>@<symbol>" pairs; monetary fields are decoded into decimals to
// avoid float precision loss.
type RawVault struct {
	VaultID      string `json:"vaultId"`
	LoanSchemeID string `json:"loanSchemeId"`
	OwnerAddress string `json:"ownerAddress"`
	State        string `json:"state"`

	CollateralAmounts []string `json:"collateralAmounts,omitempty"`
	LoanAmounts       []string `json:"loanAmounts,omitempty"`
	InterestAmounts   []string `json:"interestAmounts,omitempty"`

	CollateralValue  decimal.Decimal `json:"collateralValue,omitempty"`
	LoanValue        decimal.Decimal `json:"loanValue,omitempty"`
	InterestValue    decimal.Decimal `json:"interestValue,omitempty"`
	CollateralRatio  int64           `json:"collateralRatio,omitempty"`
	InformativeRatio decimal.Decimal `json:"informativeRatio,omitempty"`

	// Liquidation fields, only present when State is inLiquidation.
	BatchCount         int             `json:"batchCount,omitempty"`
	LiquidationHeight  uint64          `json:"liquidationHeight,omitempty"`
	LiquidationPenalty decimal.Decimal `json:"liquidationPenalty,omitempty"`
	Batches            []RawBatch      `json:"batches,omitempty"`
}

// InLiquidation reports whether the node marked the vault as being auctioned.
func (v *RawVault) InLiquidation() bool {
	return v.State == VaultStateInLiquidation
}

// RawBatch is one liquidation batch of a vault under auction.
type RawBatch struct {
	Index       uint32   `json:"index"`
	Collaterals []string `json:"collaterals"`
	Loan        string   `json:"loan,omitempty"`
	HighestBid  *RawBid  `json:"highestBid,omitempty"`
}

// RawBid is the current highest bid on a liquidation batch.
type RawBid struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

// RawToken is the node's token metadata record. The node keys tokens by
// their numeric id; the client copies the key into ID after decoding.
type RawToken struct {
	ID            string `json:"-"`
	Symbol        string `json:"symbol"`
	SymbolKey     string `json:"symbolKey"`
	DisplaySymbol string `json:"displaySymbol"`
}

// RawActivePrice is the most recent active oracle price for a token pair.
type RawActivePrice struct {
	Key    string          `json:"key"`
	Block  RawBlockInfo    `json:"block"`
	Active decimal.Decimal `json:"activePrice"`
	Next   decimal.Decimal `json:"nextPrice,omitempty"`
}

// RawBlockInfo identifies the block a record was produced at.
type RawBlockInfo struct {
	Hash   string `json:"hash"`
	Height uint64 `json:"height"`
}

// RawBlock is a block as returned by the node with decoded transactions.
type RawBlock struct {
	Hash              string  `json:"hash"`
	Height            uint64  `json:"height"`
	PreviousBlockHash string  `json:"previousblockhash"`
	Txs               []RawTx `json:"tx"`
}

// RawTx is one transaction of a block. Plain value transfers carry no Type;
// custom transactions name their type and carry a type-specific payload.
type RawTx struct {
	TxID string          `json:"txid"`
	Type string          `json:"type,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// VaultListOptions controls pagination of ListVaults.
type VaultListOptions struct {
	// Start is the vault id to continue after, empty for the first page.
	Start string

	// IncludingStart includes the Start vault itself in the result.
	IncludingStart bool

	// Limit is the maximum number of vaults to return.
	Limit int

	// OwnerAddress restricts the listing to vaults of one owner.
	OwnerAddress string
}

// AuctionListOptions controls pagination of ListAuctions. The node orders
// auctions by (vault id, liquidation height).
type AuctionListOptions struct {
	StartVaultID   string
	StartHeight    uint64
	IncludingStart bool
	Limit          int
}
