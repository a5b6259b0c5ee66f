package indexer

// OpCode identifies the decoded domain transaction (DfTx) type an indexer handles.
type OpCode byte

const (
	// OpCreateLoanScheme creates a new loan scheme.
	OpCreateLoanScheme OpCode = 'L'

	// OpUpdateLoanScheme schedules a loan scheme update. The new values become
	// current once the activation height is reached.
	OpUpdateLoanScheme OpCode = 'u'
)

// String returns a human readable name for the op code.
func (op OpCode) String() string {
	switch op {
	case OpCreateLoanScheme:
		return "create-loan-scheme"
	case OpUpdateLoanScheme:
		return "update-loan-scheme"
	default:
		return "unknown"
	}
}

// LoanSchemeTx is the decoded payload of a loan scheme create/update transaction.
type LoanSchemeTx struct {
	SchemeID           string `json:"schemeId"`
	InterestRate       string `json:"interestRate"` // fixed-point decimal string
	MinCollateralRatio int64  `json:"minColRatio"`

	// ActivateAfterBlock is the height at which an update becomes current.
	// Zero for immediate creation.
	ActivateAfterBlock uint64 `json:"activateAfterBlock,omitempty"`
}

// DfTx is one decoded domain transaction within a block. The binary decoder
// that produces these is an external collaborator; indexers only see typed
// payloads.
type DfTx struct {
	TxID  string `json:"txid"`
	Order int    `json:"order"` // position within the block
	Op    OpCode `json:"op"`

	// LoanScheme is set for loan scheme op codes.
	LoanScheme *LoanSchemeTx `json:"loanScheme,omitempty"`
}

// Block is a decoded block handed to the indexing pipeline.
// Txs are ordered as they appear within the block.
type Block struct {
	Height     uint64 `json:"height"`
	Hash       string `json:"hash"`
	ParentHash string `json:"parentHash"`
	Txs        []DfTx `json:"txs"`
}
