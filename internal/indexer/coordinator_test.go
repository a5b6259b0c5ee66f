package indexer

import (
	"context"
	"errors"
	"testing"

	"github.com/goran-ethernal/LoanIndexor/internal/logger"
	"github.com/goran-ethernal/LoanIndexor/pkg/indexer"
	"github.com/stretchr/testify/require"
)

type recordingIndexer struct {
	op    indexer.OpCode
	name  string
	calls *[]string

	indexErr error
}

func (r *recordingIndexer) OpCode() indexer.OpCode { return r.op }

func (r *recordingIndexer) Index(ctx context.Context, block *indexer.Block, tx *indexer.DfTx) error {
	*r.calls = append(*r.calls, "index:"+tx.TxID)
	return r.indexErr
}

func (r *recordingIndexer) Invalidate(ctx context.Context, block *indexer.Block, tx *indexer.DfTx) error {
	*r.calls = append(*r.calls, "invalidate:"+tx.TxID)
	return nil
}

type recordingBlockIndexer struct {
	recordingIndexer
}

func (r *recordingBlockIndexer) IndexBlockEnd(ctx context.Context, block *indexer.Block) error {
	*r.calls = append(*r.calls, "blockend:"+r.name)
	return nil
}

func (r *recordingBlockIndexer) InvalidateBlockEnd(ctx context.Context, block *indexer.Block) error {
	*r.calls = append(*r.calls, "blockend-undo:"+r.name)
	return nil
}

func testBlock(txs ...indexer.DfTx) *indexer.Block {
	return &indexer.Block{Height: 100, Hash: "h100", ParentHash: "h99", Txs: txs}
}

func TestCoordinator_RegisterRejectsDuplicateOp(t *testing.T) {
	t.Parallel()

	var calls []string
	c := NewCoordinator(logger.NewNopLogger())

	require.NoError(t, c.Register(&recordingIndexer{op: 'a', name: "a", calls: &calls}))
	require.Error(t, c.Register(&recordingIndexer{op: 'a', name: "a", calls: &calls}))
}

func TestCoordinator_IndexBlockDispatchOrder(t *testing.T) {
	t.Parallel()

	var calls []string
	c := NewCoordinator(logger.NewNopLogger())

	plain := &recordingIndexer{op: 'a', name: "a", calls: &calls}
	withHooks := &recordingBlockIndexer{recordingIndexer{op: 'b', name: "b", calls: &calls}}
	require.NoError(t, c.Register(plain))
	require.NoError(t, c.Register(withHooks))

	block := testBlock(
		indexer.DfTx{TxID: "t1", Op: 'a'},
		indexer.DfTx{TxID: "t2", Op: 'b'},
		indexer.DfTx{TxID: "t3", Op: 'x'}, // no indexer registered, skipped
		indexer.DfTx{TxID: "t4", Op: 'a'},
	)

	require.NoError(t, c.IndexBlock(context.Background(), block))

	// Transactions in block order, block-end hooks after all transactions
	require.Equal(t, []string{"index:t1", "index:t2", "index:t4", "blockend:b"}, calls)
}

func TestCoordinator_InvalidateBlockMirrorsForwardOrder(t *testing.T) {
	t.Parallel()

	var calls []string
	c := NewCoordinator(logger.NewNopLogger())

	plain := &recordingIndexer{op: 'a', name: "a", calls: &calls}
	withHooks := &recordingBlockIndexer{recordingIndexer{op: 'b', name: "b", calls: &calls}}
	require.NoError(t, c.Register(plain))
	require.NoError(t, c.Register(withHooks))

	block := testBlock(
		indexer.DfTx{TxID: "t1", Op: 'a'},
		indexer.DfTx{TxID: "t2", Op: 'b'},
	)

	require.NoError(t, c.InvalidateBlock(context.Background(), block))

	// Block-end hooks are undone first, then transactions in reverse order
	require.Equal(t, []string{"blockend-undo:b", "invalidate:t2", "invalidate:t1"}, calls)
}

func TestCoordinator_IndexBlockHaltsOnError(t *testing.T) {
	t.Parallel()

	var calls []string
	c := NewCoordinator(logger.NewNopLogger())

	failErr := errors.New("boom")
	require.NoError(t, c.Register(&recordingIndexer{op: 'a', name: "a", calls: &calls, indexErr: failErr}))

	block := testBlock(
		indexer.DfTx{TxID: "t1", Op: 'a'},
		indexer.DfTx{TxID: "t2", Op: 'a'},
	)

	err := c.IndexBlock(context.Background(), block)
	require.ErrorIs(t, err, failErr)
	require.Equal(t, []string{"index:t1"}, calls)
}
