package nodeclient

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/LoanIndexor/pkg/config"
	"github.com/goran-ethernal/LoanIndexor/pkg/node"
)

// Compile-time check to ensure Client implements node.Client interface.
var _ node.Client = (*Client)(nil)

// Client wraps the node's JSON-RPC endpoint with convenience methods for
// indexing and vault queries. It implements the node.Client interface.
type Client struct {
	rpc   *rpc.Client
	retry *config.RetryConfig
}

// NewClient creates a new RPC client connected to the given endpoint.
// A nil retry config disables retries.
func NewClient(ctx context.Context, endpoint string, retry *config.RetryConfig) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpc:   rpcClient,
		retry: retry,
	}, nil
}

// Close closes the RPC client connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// GetBlockCount retrieves the height of the node's best chain tip.
func (c *Client) GetBlockCount(ctx context.Context) (uint64, error) {
	var count uint64
	if err := c.call(ctx, "getblockcount", &count); err != nil {
		return 0, err
	}

	return count, nil
}

// GetBlockHash retrieves the hash of the block at the given height.
func (c *Client) GetBlockHash(ctx context.Context, height uint64) (string, error) {
	var hash string
	if err := c.call(ctx, "getblockhash", &hash, height); err != nil {
		return "", err
	}

	return hash, nil
}

// GetBlock retrieves a block with decoded transactions by its hash.
func (c *Client) GetBlock(ctx context.Context, hash string) (*node.RawBlock, error) {
	var block node.RawBlock
	// Verbosity 2 decodes custom transaction payloads
	if err := c.call(ctx, "getblock", &block, hash, 2); err != nil { //nolint:mnd
		return nil, err
	}

	return &block, nil
}

// ListVaults retrieves a page of vaults ordered by vault id.
func (c *Client) ListVaults(ctx context.Context, opts node.VaultListOptions) ([]node.RawVault, error) {
	pagination := map[string]any{
		"including_start": opts.IncludingStart,
	}
	if opts.Start != "" {
		pagination["start"] = opts.Start
	}
	if opts.Limit > 0 {
		pagination["limit"] = opts.Limit
	}

	options := map[string]any{"verbose": true}
	if opts.OwnerAddress != "" {
		options["ownerAddress"] = opts.OwnerAddress
	}

	var vaults []node.RawVault
	if err := c.call(ctx, "listvaults", &vaults, pagination, options); err != nil {
		return nil, err
	}

	return vaults, nil
}

// GetVault retrieves a single vault by its id.
func (c *Client) GetVault(ctx context.Context, vaultID string) (*node.RawVault, error) {
	var vault node.RawVault
	if err := c.call(ctx, "getvault", &vault, vaultID, true); err != nil {
		return nil, err
	}

	return &vault, nil
}

// ListAuctions retrieves a page of vaults under liquidation.
func (c *Client) ListAuctions(ctx context.Context, opts node.AuctionListOptions) ([]node.RawVault, error) {
	pagination := map[string]any{
		"including_start": opts.IncludingStart,
	}
	if opts.StartVaultID != "" {
		pagination["start"] = map[string]any{
			"vaultId": opts.StartVaultID,
			"height":  opts.StartHeight,
		}
	}
	if opts.Limit > 0 {
		pagination["limit"] = opts.Limit
	}

	var vaults []node.RawVault
	if err := c.call(ctx, "listauctions", &vaults, pagination); err != nil {
		return nil, err
	}

	return vaults, nil
}

// ListTokens retrieves all token metadata keyed by numeric token id.
func (c *Client) ListTokens(ctx context.Context) (map[string]node.RawToken, error) {
	tokens := make(map[string]node.RawToken)
	if err := c.call(ctx, "listtokens", &tokens); err != nil {
		return nil, err
	}

	// The node keys the result object by token id, copy it into the records
	for id, token := range tokens {
		token.ID = id
		tokens[id] = token
	}

	return tokens, nil
}

// GetActivePrice retrieves the active oracle price for a price feed key.
func (c *Client) GetActivePrice(ctx context.Context, key string) (*node.RawActivePrice, error) {
	var price node.RawActivePrice
	if err := c.call(ctx, "getactiveprice", &price, key); err != nil {
		return nil, err
	}

	return &price, nil
}

// call performs one JSON-RPC request with retry and metrics instrumentation.
func (c *Client) call(ctx context.Context, method string, result any, args ...any) error {
	RPCMethodInc(method)
	start := time.Now()

	err := retryWithBackoff(ctx, c.retry, method, func() error {
		return c.rpc.CallContext(ctx, result, method, args...)
	})

	RPCMethodDuration(method, time.Since(start))

	if err != nil {
		errorType := "rpc"
		if IsVaultNotFoundError(err) {
			errorType = "not_found"
		}
		RPCMethodError(method, errorType)
	}

	return err
}
