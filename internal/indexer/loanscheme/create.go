package loanscheme

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/LoanIndexor/internal/logger"
	"github.com/goran-ethernal/LoanIndexor/internal/store"
	"github.com/goran-ethernal/LoanIndexor/pkg/indexer"
)

// Compile-time check to ensure CreateIndexer implements indexer.Indexer.
var _ indexer.Indexer = (*CreateIndexer)(nil)

// CreateIndexer indexes loan scheme creation transactions.
type CreateIndexer struct {
	schemes *store.SchemeStore
	log     *logger.Logger
}

// NewCreateIndexer creates a new CreateIndexer.
func NewCreateIndexer(schemes *store.SchemeStore, log *logger.Logger) *CreateIndexer {
	return &CreateIndexer{
		schemes: schemes,
		log:     log.WithComponent("loan-scheme-indexer"),
	}
}

// OpCode returns the transaction type tag this indexer handles.
func (idx *CreateIndexer) OpCode() indexer.OpCode {
	return indexer.OpCreateLoanScheme
}

// Index stores the new scheme as current and records a history snapshot.
func (idx *CreateIndexer) Index(ctx context.Context, block *indexer.Block, tx *indexer.DfTx) error {
	payload := tx.LoanScheme
	if payload == nil {
		return fmt.Errorf("tx %s carries no loan scheme payload", tx.TxID)
	}

	return idx.schemes.WithTx(func(q store.Querier) error {
		scheme := &store.LoanScheme{
			ID:                 payload.SchemeID,
			InterestRate:       payload.InterestRate,
			MinCollateralRatio: payload.MinCollateralRatio,
		}
		if err := idx.schemes.PutScheme(q, scheme); err != nil {
			return err
		}

		if err := idx.schemes.PutHistory(q, &store.LoanSchemeHistory{
			SchemeID:           payload.SchemeID,
			Height:             block.Height,
			Origin:             store.HistoryOriginCreate,
			InterestRate:       payload.InterestRate,
			MinCollateralRatio: payload.MinCollateralRatio,
		}); err != nil {
			return err
		}

		idx.log.Debugf("created loan scheme %s at height %d", payload.SchemeID, block.Height)
		return nil
	})
}

// Invalidate removes the scheme created by the transaction. A creation is
// only valid for a previously unknown identifier, so deleting the current
// record restores the pre-block state.
func (idx *CreateIndexer) Invalidate(ctx context.Context, block *indexer.Block, tx *indexer.DfTx) error {
	payload := tx.LoanScheme
	if payload == nil {
		return fmt.Errorf("tx %s carries no loan scheme payload", tx.TxID)
	}

	return idx.schemes.WithTx(func(q store.Querier) error {
		h, err := idx.schemes.GetHistory(q, payload.SchemeID, block.Height, store.HistoryOriginCreate)
		if err != nil {
			return err
		}
		if h == nil {
			return fmt.Errorf("scheme %s at height %d: %w",
				payload.SchemeID, block.Height, ErrHistoryMissing)
		}

		if err := idx.schemes.DeleteScheme(q, payload.SchemeID); err != nil {
			return err
		}
		if err := idx.schemes.DeleteHistory(q, payload.SchemeID, block.Height, store.HistoryOriginCreate); err != nil {
			return err
		}

		idx.log.Debugf("rolled back creation of loan scheme %s at height %d", payload.SchemeID, block.Height)
		return nil
	})
}
