package loanscheme

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/LoanIndexor/internal/logger"
	"github.com/goran-ethernal/LoanIndexor/internal/metrics"
	"github.com/goran-ethernal/LoanIndexor/internal/store"
	"github.com/goran-ethernal/LoanIndexor/pkg/indexer"
)

// Compile-time checks to ensure UpdateIndexer implements both hook sets.
var (
	_ indexer.Indexer      = (*UpdateIndexer)(nil)
	_ indexer.BlockIndexer = (*UpdateIndexer)(nil)
)

// UpdateIndexer indexes scheduled loan scheme updates. The update transaction
// records the pending values in the deferred queue; on every block the queue
// is scanned and entries whose activation height has been reached are
// promoted to the current table. Promotions are exactly invertible on block
// disconnect.
type UpdateIndexer struct {
	schemes *store.SchemeStore
	log     *logger.Logger

	// batchSize bounds the deferred entries scanned per block. Entries beyond
	// the cap are promoted on a later block once re-scanned.
	batchSize int
}

// NewUpdateIndexer creates a new UpdateIndexer with the given scan batch size.
func NewUpdateIndexer(schemes *store.SchemeStore, batchSize int, log *logger.Logger) *UpdateIndexer {
	return &UpdateIndexer{
		schemes:   schemes,
		log:       log.WithComponent("loan-scheme-indexer"),
		batchSize: batchSize,
	}
}

// OpCode returns the transaction type tag this indexer handles.
func (idx *UpdateIndexer) OpCode() indexer.OpCode {
	return indexer.OpUpdateLoanScheme
}

// Index records the scheduled update: a history snapshot of the values that
// were current when the transaction ran, then the pending values in the
// deferred queue. The snapshot is what makes the later promotion invertible.
func (idx *UpdateIndexer) Index(ctx context.Context, block *indexer.Block, tx *indexer.DfTx) error {
	payload := tx.LoanScheme
	if payload == nil {
		return fmt.Errorf("tx %s carries no loan scheme payload", tx.TxID)
	}

	return idx.schemes.WithTx(func(q store.Querier) error {
		current, err := idx.schemes.GetScheme(q, payload.SchemeID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("update of scheme %s at height %d: %w",
				payload.SchemeID, block.Height, ErrSchemeMissing)
		}

		if err := idx.schemes.PutHistory(q, &store.LoanSchemeHistory{
			SchemeID:           current.ID,
			Height:             block.Height,
			Origin:             store.HistoryOriginUpdate,
			InterestRate:       current.InterestRate,
			MinCollateralRatio: current.MinCollateralRatio,
			ActivateAfterBlock: current.ActivateAfterBlock,
		}); err != nil {
			return err
		}

		if err := idx.schemes.PutDeferred(q, &store.DeferredLoanScheme{
			SchemeID:           payload.SchemeID,
			InterestRate:       payload.InterestRate,
			MinCollateralRatio: payload.MinCollateralRatio,
			ActivateAfterBlock: payload.ActivateAfterBlock,
		}); err != nil {
			return err
		}

		idx.log.Debugf("deferred update of loan scheme %s at height %d, activates after block %d",
			payload.SchemeID, block.Height, payload.ActivateAfterBlock)
		return nil
	})
}

// Invalidate undoes the scheduled update: the deferred entry and the capture
// snapshot written by the transaction are removed. If the entry was promoted
// in the same block, InvalidateBlockEnd has already restored the current
// record and re-inserted the deferred entry before this runs.
func (idx *UpdateIndexer) Invalidate(ctx context.Context, block *indexer.Block, tx *indexer.DfTx) error {
	payload := tx.LoanScheme
	if payload == nil {
		return fmt.Errorf("tx %s carries no loan scheme payload", tx.TxID)
	}

	return idx.schemes.WithTx(func(q store.Querier) error {
		h, err := idx.schemes.GetHistory(q, payload.SchemeID, block.Height, store.HistoryOriginUpdate)
		if err != nil {
			return err
		}
		if h == nil {
			return fmt.Errorf("rollback of scheme %s update at height %d: %w",
				payload.SchemeID, block.Height, ErrHistoryMissing)
		}

		if err := idx.schemes.DeleteDeferred(q, payload.SchemeID); err != nil {
			return err
		}
		if err := idx.schemes.DeleteHistory(q, payload.SchemeID, block.Height, store.HistoryOriginUpdate); err != nil {
			return err
		}

		idx.log.Debugf("rolled back deferred update of loan scheme %s at height %d",
			payload.SchemeID, block.Height)
		return nil
	})
}

// IndexBlockEnd scans a bounded batch of deferred entries and promotes those
// whose activation height has been reached: the pending values overwrite the
// current record, a history snapshot marks the mutation, and the deferred
// entry is removed. Entries not yet due remain deferred.
func (idx *UpdateIndexer) IndexBlockEnd(ctx context.Context, block *indexer.Block) error {
	promoted := 0
	err := idx.schemes.WithTx(func(q store.Querier) error {
		entries, err := idx.schemes.ListDeferred(q, idx.batchSize)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if entry.ActivateAfterBlock > block.Height {
				continue
			}

			activateAfter := entry.ActivateAfterBlock
			if err := idx.schemes.PutScheme(q, &store.LoanScheme{
				ID:                 entry.SchemeID,
				InterestRate:       entry.InterestRate,
				MinCollateralRatio: entry.MinCollateralRatio,
				ActivateAfterBlock: &activateAfter,
			}); err != nil {
				return err
			}

			if err := idx.schemes.PutHistory(q, &store.LoanSchemeHistory{
				SchemeID:           entry.SchemeID,
				Height:             block.Height,
				Origin:             store.HistoryOriginActivate,
				InterestRate:       entry.InterestRate,
				MinCollateralRatio: entry.MinCollateralRatio,
				ActivateAfterBlock: &activateAfter,
			}); err != nil {
				return err
			}

			if err := idx.schemes.DeleteDeferred(q, entry.SchemeID); err != nil {
				return err
			}
			promoted++
		}

		return nil
	})
	if err != nil {
		return err
	}

	if promoted > 0 {
		metrics.SchemesPromotedAdd(promoted)
		idx.log.Infof("promoted %d deferred loan schemes at height %d", promoted, block.Height)
	}
	return nil
}

// InvalidateBlockEnd undoes every promotion performed at the disconnected
// block's height: the promoted values go back into the deferred queue and the
// current record is restored from the most recent preceding history snapshot.
// A missing current or preceding record means the kept history window cannot
// reconstruct state for this reorg depth, which is unrecoverable.
func (idx *UpdateIndexer) InvalidateBlockEnd(ctx context.Context, block *indexer.Block) error {
	return idx.schemes.WithTx(func(q store.Querier) error {
		activations, err := idx.schemes.HistoryAtHeight(q, block.Height, store.HistoryOriginActivate)
		if err != nil {
			return err
		}

		for _, act := range activations {
			current, err := idx.schemes.GetScheme(q, act.SchemeID)
			if err != nil {
				return err
			}
			if current == nil {
				return fmt.Errorf("rollback of scheme %s activation at height %d: %w",
					act.SchemeID, block.Height, ErrSchemeMissing)
			}

			previous, err := idx.schemes.LatestHistoryBefore(q, act.SchemeID, block.Height)
			if err != nil {
				return err
			}
			if previous == nil {
				return fmt.Errorf("rollback of scheme %s activation at height %d: %w",
					act.SchemeID, block.Height, ErrHistoryMissing)
			}

			if current.ActivateAfterBlock == nil {
				return fmt.Errorf("scheme %s at height %d has no activation height: %w",
					act.SchemeID, block.Height, ErrSchemeMissing)
			}

			if err := idx.schemes.PutDeferred(q, &store.DeferredLoanScheme{
				SchemeID:           current.ID,
				InterestRate:       current.InterestRate,
				MinCollateralRatio: current.MinCollateralRatio,
				ActivateAfterBlock: *current.ActivateAfterBlock,
			}); err != nil {
				return err
			}

			if err := idx.schemes.PutScheme(q, previous.Scheme()); err != nil {
				return err
			}

			if err := idx.schemes.DeleteHistory(q, act.SchemeID, block.Height, store.HistoryOriginActivate); err != nil {
				return err
			}

			idx.log.Debugf("rolled back activation of loan scheme %s at height %d",
				act.SchemeID, block.Height)
		}

		return nil
	})
}
