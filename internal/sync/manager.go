package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/LoanIndexor/internal/common"
	internalindexer "github.com/goran-ethernal/LoanIndexor/internal/indexer"
	"github.com/goran-ethernal/LoanIndexor/internal/logger"
	"github.com/goran-ethernal/LoanIndexor/internal/metrics"
	"github.com/goran-ethernal/LoanIndexor/pkg/node"
	"github.com/russross/meddler"
)

// keepRecentBlocks is the rollback window: processed blocks older than this
// many heights below the tip are pruned and can no longer be disconnected.
const keepRecentBlocks = 5760

// Manager drives indexing forward, block by block in increasing height
// order. On a parent hash mismatch it disconnects the stored tip, one block
// fully rolled back before the next is examined.
type Manager struct {
	db          *sql.DB
	log         *logger.Logger
	node        node.Client
	coordinator *internalindexer.Coordinator

	startHeight  uint64
	pollInterval time.Duration
}

// NewManager creates a sync manager. Indexing begins at startHeight when
// the database holds no processed blocks yet.
func NewManager(db *sql.DB, log *logger.Logger, nodeClient node.Client,
	coordinator *internalindexer.Coordinator, startHeight uint64, pollInterval time.Duration) *Manager {
	return &Manager{
		db:           db,
		log:          log.WithComponent(common.ComponentSyncManager),
		node:         nodeClient,
		coordinator:  coordinator,
		startHeight:  startHeight,
		pollInterval: pollInterval,
	}
}

// Start runs the sync loop until the context is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	m.log.Infof("sync manager started: start_height=%d poll_interval=%s", m.startHeight, m.pollInterval)
	metrics.ComponentHealthSet(common.ComponentSyncManager, true)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		if err := m.syncOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			// Consistency violations must not be absorbed, a retry without
			// correcting the history gap cannot succeed
			if internalindexer.IsConsistencyViolation(err) {
				metrics.ComponentHealthSet(common.ComponentSyncManager, false)
				return fmt.Errorf("halting sync: %w", err)
			}

			m.log.Errorf("sync pass failed: %v", err)
			metrics.ErrorsInc(common.ComponentSyncManager, "error")
		}

		select {
		case <-ctx.Done():
			m.log.Info("sync manager stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// syncOnce advances the index to the node's current tip, disconnecting
// stale blocks as parent hash mismatches are found.
func (m *Manager) syncOnce(ctx context.Context) error {
	tip, err := m.node.GetBlockCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain tip: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		last, err := m.LastIndexedBlock()
		if err != nil {
			return err
		}

		next := m.startHeight
		if last != nil {
			next = last.Height + 1
		}

		if next > tip {
			return m.pruneOldBlocks(tip)
		}

		hash, err := m.node.GetBlockHash(ctx, next)
		if err != nil {
			return fmt.Errorf("failed to get hash of block %d: %w", next, err)
		}

		raw, err := m.node.GetBlock(ctx, hash)
		if err != nil {
			return fmt.Errorf("failed to get block %d: %w", next, err)
		}

		// The chain the node serves no longer contains our tip, disconnect
		// it and re-examine its predecessor on the next pass of the loop
		if last != nil && raw.PreviousBlockHash != last.Hash {
			m.log.Warnf("reorg detected: height=%d indexed_hash=%s chain_parent=%s",
				last.Height, last.Hash, raw.PreviousBlockHash)

			if err := m.disconnectBlock(ctx, last); err != nil {
				return err
			}

			continue
		}

		if err := m.indexBlock(ctx, raw); err != nil {
			return err
		}
	}
}

// indexBlock forward-processes one block and records it.
func (m *Manager) indexBlock(ctx context.Context, raw *node.RawBlock) error {
	block, err := mapBlock(raw)
	if err != nil {
		return err
	}

	if err := m.coordinator.IndexBlock(ctx, block); err != nil {
		return fmt.Errorf("failed to index block %d: %w", block.Height, err)
	}

	if err := m.recordBlock(block.Height, block.Hash, block.ParentHash, block.Txs); err != nil {
		return err
	}

	metrics.LastIndexedBlockSet(block.Height)
	m.log.Debugf("indexed block: height=%d hash=%s txs=%d", block.Height, block.Hash, len(block.Txs))

	return nil
}

// disconnectBlock rolls back one stored block using the transactions it was
// indexed with, then forgets it.
func (m *Manager) disconnectBlock(ctx context.Context, stored *IndexedBlock) error {
	block, err := stored.Block()
	if err != nil {
		return err
	}

	if err := m.coordinator.InvalidateBlock(ctx, block); err != nil {
		return fmt.Errorf("failed to invalidate block %d: %w", block.Height, err)
	}

	if _, err := m.db.Exec(`DELETE FROM indexed_blocks WHERE height = ?`, stored.Height); err != nil {
		return fmt.Errorf("failed to delete block record %d: %w", stored.Height, err)
	}

	metrics.LastIndexedBlockSet(stored.Height - 1)
	m.log.Infof("disconnected block: height=%d hash=%s", stored.Height, stored.Hash)

	return nil
}

// LastIndexedBlock returns the highest processed block, or nil if indexing
// has not started yet.
func (m *Manager) LastIndexedBlock() (*IndexedBlock, error) {
	var block IndexedBlock

	err := meddler.QueryRow(m.db, &block, `SELECT * FROM indexed_blocks ORDER BY height DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last indexed block: %w", err)
	}

	return &block, nil
}

// LastIndexedHeight returns the height of the highest processed block, or 0
// if indexing has not started yet.
func (m *Manager) LastIndexedHeight() (uint64, error) {
	block, err := m.LastIndexedBlock()
	if err != nil || block == nil {
		return 0, err
	}

	return block.Height, nil
}

// ChainTip returns the node's current best height.
func (m *Manager) ChainTip(ctx context.Context) (uint64, error) {
	return m.node.GetBlockCount(ctx)
}

func (m *Manager) recordBlock(height uint64, hash, parentHash string, txs any) error {
	txsJSON, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("failed to encode txs of block %d: %w", height, err)
	}

	_, err = m.db.Exec(`
		INSERT INTO indexed_blocks (height, hash, parent_hash, txs_json, indexed_at)
		VALUES (?, ?, ?, ?, ?)
	`, height, hash, parentHash, string(txsJSON), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record block %d: %w", height, err)
	}

	return nil
}

// pruneOldBlocks drops block records that fell out of the rollback window.
func (m *Manager) pruneOldBlocks(tip uint64) error {
	if tip <= keepRecentBlocks {
		return nil
	}

	if _, err := m.db.Exec(`DELETE FROM indexed_blocks WHERE height < ?`, tip-keepRecentBlocks); err != nil {
		return fmt.Errorf("failed to prune old block records: %w", err)
	}

	return nil
}
