package node

import (
	"context"
)

// Client defines the interface for node RPC operations.
// This abstraction allows for easier testing and alternative implementations.
type Client interface {
	// Close closes the RPC client connection.
	Close()

	// GetBlockCount retrieves the height of the node's best chain tip.
	GetBlockCount(ctx context.Context) (uint64, error)

	// GetBlockHash retrieves the hash of the block at the given height.
	GetBlockHash(ctx context.Context, height uint64) (string, error)

	// GetBlock retrieves a block with decoded transactions by its hash.
	GetBlock(ctx context.Context, hash string) (*RawBlock, error)

	// ListVaults retrieves a page of vaults ordered by vault id.
	ListVaults(ctx context.Context, opts VaultListOptions) ([]RawVault, error)

	// GetVault retrieves a single vault by its id.
	GetVault(ctx context.Context, vaultID string) (*RawVault, error)

	// ListAuctions retrieves a page of vaults under liquidation, ordered by
	// vault id and liquidation height.
	ListAuctions(ctx context.Context, opts AuctionListOptions) ([]RawVault, error)

	// ListTokens retrieves all token metadata keyed by numeric token id.
	ListTokens(ctx context.Context) (map[string]RawToken, error)

	// GetActivePrice retrieves the active oracle price for a price feed key,
	// e.g. "TSLA/USD". Tokens without a feed have no active price.
	GetActivePrice(ctx context.Context, key string) (*RawActivePrice, error)
}
