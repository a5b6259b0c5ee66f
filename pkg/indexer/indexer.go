package indexer

import "context"

// Indexer defines the interface that all transaction indexers must implement.
// An indexer processes transactions of a single op code, and must be able to
// undo its own effects exactly when the containing block is disconnected.
type Indexer interface {
	// OpCode returns the transaction type tag this indexer handles.
	// The coordinator dispatches matching transactions to exactly one indexer.
	OpCode() OpCode

	// Index processes one matching transaction. It is invoked once per
	// transaction, in the order transactions appear within the block.
	// Implementations must not assume any ordering relative to other
	// indexers beyond "same block, in-order".
	Index(ctx context.Context, block *Block, tx *DfTx) error

	// Invalidate is invoked when a previously indexed block is disconnected,
	// receiving the same transaction. It must restore state as if Index had
	// never run. A missing history or current record is a consistency
	// violation and must be returned as an error, never skipped.
	Invalidate(ctx context.Context, block *Block, tx *DfTx) error
}

// BlockIndexer is implemented by indexers that also run once per block,
// independent of the block's transactions.
type BlockIndexer interface {
	// IndexBlockEnd runs after all of the block's transactions have been
	// forwarded to this indexer.
	IndexBlockEnd(ctx context.Context, block *Block) error

	// InvalidateBlockEnd undoes the per-block work. It runs before the
	// block's transactions are invalidated, mirroring the forward order.
	InvalidateBlockEnd(ctx context.Context, block *Block) error
}
