package sync

import (
	"encoding/json"
	"fmt"

	"github.com/goran-ethernal/LoanIndexor/pkg/indexer"
	"github.com/goran-ethernal/LoanIndexor/pkg/node"
)

// IndexedBlock is one fully processed block. The decoded transactions are
// kept verbatim so a disconnect can replay the exact inverse of what was
// indexed, independent of what the node serves for that height afterwards.
type IndexedBlock struct {
	Height     uint64 `meddler:"height"`
	Hash       string `meddler:"hash"`
	ParentHash string `meddler:"parent_hash"`
	TxsJSON    string `meddler:"txs_json"`
	IndexedAt  int64  `meddler:"indexed_at"`
}

// Block reconstructs the indexer block from a stored record.
func (b *IndexedBlock) Block() (*indexer.Block, error) {
	var txs []indexer.DfTx
	if err := json.Unmarshal([]byte(b.TxsJSON), &txs); err != nil {
		return nil, fmt.Errorf("failed to decode stored txs for block %d: %w", b.Height, err)
	}

	return &indexer.Block{
		Height:     b.Height,
		Hash:       b.Hash,
		ParentHash: b.ParentHash,
		Txs:        txs,
	}, nil
}

// Custom transaction type tags as served by the node.
const (
	txTypeCreateLoanScheme = "CreateLoanScheme"
	txTypeUpdateLoanScheme = "UpdateLoanScheme"
)

// mapBlock converts a raw node block into the indexer's shape. Transactions
// of unknown type are carried with the zero op code and skipped by dispatch.
func mapBlock(raw *node.RawBlock) (*indexer.Block, error) {
	block := &indexer.Block{
		Height:     raw.Height,
		Hash:       raw.Hash,
		ParentHash: raw.PreviousBlockHash,
		Txs:        make([]indexer.DfTx, 0, len(raw.Txs)),
	}

	for i, rawTx := range raw.Txs {
		tx := indexer.DfTx{
			TxID:  rawTx.TxID,
			Order: i,
		}

		switch rawTx.Type {
		case txTypeCreateLoanScheme:
			tx.Op = indexer.OpCreateLoanScheme
		case txTypeUpdateLoanScheme:
			tx.Op = indexer.OpUpdateLoanScheme
		default:
			block.Txs = append(block.Txs, tx)

			continue
		}

		var payload indexer.LoanSchemeTx
		if err := json.Unmarshal(rawTx.Data, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload of tx %s: %w", rawTx.Type, rawTx.TxID, err)
		}

		tx.LoanScheme = &payload
		block.Txs = append(block.Txs, tx)
	}

	return block, nil
}
