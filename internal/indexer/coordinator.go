package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/goran-ethernal/LoanIndexor/internal/logger"
	"github.com/goran-ethernal/LoanIndexor/internal/metrics"
	"github.com/goran-ethernal/LoanIndexor/pkg/indexer"
)

// Coordinator routes decoded transactions to registered indexers by op code
// and drives the per-block hooks. The registry is built once at startup and
// never mutated afterwards; indexing itself is strictly single-writer, one
// block fully completed before the next begins.
type Coordinator struct {
	log *logger.Logger

	// byOp maps op code -> the single indexer handling it
	byOp map[indexer.OpCode]indexer.Indexer

	// registered preserves registration order for the per-block hooks
	registered []indexer.Indexer
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator(log *logger.Logger) *Coordinator {
	return &Coordinator{
		log:  log.WithComponent("indexer-coordinator"),
		byOp: make(map[indexer.OpCode]indexer.Indexer),
	}
}

// Register registers an indexer for its op code.
// Exactly one indexer may handle a given op code.
func (c *Coordinator) Register(idx indexer.Indexer) error {
	op := idx.OpCode()
	if _, exists := c.byOp[op]; exists {
		return fmt.Errorf("indexer for op code %q already registered", op)
	}

	c.byOp[op] = idx
	c.registered = append(c.registered, idx)

	c.log.Infof("registered indexer for op code %s", op)
	return nil
}

// IndexBlock forward-processes one block: every matching transaction is
// dispatched in block order, then the per-block hooks run. Any error halts
// processing of the block and is escalated to the caller.
func (c *Coordinator) IndexBlock(ctx context.Context, block *indexer.Block) error {
	start := time.Now()
	defer func() {
		metrics.BlockProcessingTimeLog("forward", time.Since(start))
	}()

	for i := range block.Txs {
		tx := &block.Txs[i]
		idx, ok := c.byOp[tx.Op]
		if !ok {
			continue
		}

		if err := idx.Index(ctx, block, tx); err != nil {
			return fmt.Errorf("indexer %s failed to index tx %s at height %d: %w",
				tx.Op, tx.TxID, block.Height, err)
		}
		metrics.TxsIndexedInc(tx.Op.String())
	}

	for _, idx := range c.registered {
		blockIdx, ok := idx.(indexer.BlockIndexer)
		if !ok {
			continue
		}

		if err := blockIdx.IndexBlockEnd(ctx, block); err != nil {
			return fmt.Errorf("indexer %s failed block-end hook at height %d: %w",
				idx.OpCode(), block.Height, err)
		}
	}

	metrics.BlocksIndexedInc()
	metrics.LastIndexedBlockSet(block.Height)

	return nil
}

// InvalidateBlock rolls back one disconnected block: the per-block hooks are
// undone first, then the block's transactions in reverse order, mirroring the
// forward pass. A failed rollback is a consistency violation and must halt
// further processing, since partial rollback would corrupt the tables.
func (c *Coordinator) InvalidateBlock(ctx context.Context, block *indexer.Block) error {
	start := time.Now()
	defer func() {
		metrics.BlockProcessingTimeLog("rollback", time.Since(start))
	}()

	for i := len(c.registered) - 1; i >= 0; i-- {
		blockIdx, ok := c.registered[i].(indexer.BlockIndexer)
		if !ok {
			continue
		}

		if err := blockIdx.InvalidateBlockEnd(ctx, block); err != nil {
			return fmt.Errorf("indexer %s failed block-end rollback at height %d: %w",
				c.registered[i].OpCode(), block.Height, err)
		}
	}

	for i := len(block.Txs) - 1; i >= 0; i-- {
		tx := &block.Txs[i]
		idx, ok := c.byOp[tx.Op]
		if !ok {
			continue
		}

		if err := idx.Invalidate(ctx, block, tx); err != nil {
			return fmt.Errorf("indexer %s failed to invalidate tx %s at height %d: %w",
				tx.Op, tx.TxID, block.Height, err)
		}
	}

	metrics.BlocksInvalidatedInc()

	return nil
}
