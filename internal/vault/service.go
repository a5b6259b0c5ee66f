package vault

import (
	"context"
	"errors"
	"strconv"

	"github.com/goran-ethernal/LoanIndexor/internal/logger"
	"github.com/goran-ethernal/LoanIndexor/internal/metrics"
	"github.com/goran-ethernal/LoanIndexor/internal/nodeclient"
	"github.com/goran-ethernal/LoanIndexor/internal/store"
	"github.com/goran-ethernal/LoanIndexor/pkg/node"
)

// vaultIDLength is the length of a hex-encoded vault id.
const vaultIDLength = 64

// Service builds API-ready vault and auction views from raw on-chain vault
// state, enriched with scheme, token metadata and price data. It is fully
// read-only and keeps no state between requests.
type Service struct {
	log     *logger.Logger
	node    node.Client
	schemes *store.SchemeStore

	defaultSchemeID string
	maxPageSize     int
}

// NewService creates a vault read-model service.
func NewService(log *logger.Logger, nodeClient node.Client, schemes *store.SchemeStore,
	defaultSchemeID string, maxPageSize int) *Service {
	return &Service{
		log:             log.WithComponent("vault-service"),
		node:            nodeClient,
		schemes:         schemes,
		defaultSchemeID: defaultSchemeID,
		maxPageSize:     maxPageSize,
	}
}

// ListVaults returns one page of vault views in the node's native vault
// ordering. The cursor is the vault id to continue after, empty for the
// first page. The returned cursor is empty on the last page.
func (s *Service) ListVaults(ctx context.Context, cursor string, size int, owner string) ([]View, string, error) {
	size = s.clampSize(size)

	raws, err := s.node.ListVaults(ctx, node.VaultListOptions{
		Start:        cursor,
		Limit:        size,
		OwnerAddress: owner,
	})
	if err != nil {
		return nil, "", s.outcome("list_vaults", badRequestf("unable to list vaults: %v", err))
	}

	views := make([]View, 0, len(raws))
	for i := range raws {
		view, err := s.mapVault(ctx, &raws[i])
		if err != nil {
			return nil, "", s.outcome("list_vaults", err)
		}

		views = append(views, view)
	}

	next := ""
	if len(views) == size {
		next = views[len(views)-1].vaultID()
	}

	return views, next, s.outcome("list_vaults", nil)
}

// GetVault returns the view of a single vault. Unknown and malformed ids
// yield a not-found error.
func (s *Service) GetVault(ctx context.Context, vaultID string) (View, error) {
	raw, err := s.node.GetVault(ctx, vaultID)
	if err != nil {
		if nodeclient.IsVaultNotFoundError(err) {
			return nil, s.outcome("get_vault", notFoundf("unable to find vault %s", vaultID))
		}

		return nil, s.outcome("get_vault", badRequestf("%v", err))
	}

	view, err := s.mapVault(ctx, raw)

	return view, s.outcome("get_vault", err)
}

// ListAuctions returns one page of vaults under liquidation. The cursor is
// the 64-character vault id of the last seen auction concatenated with its
// decimal liquidation height.
func (s *Service) ListAuctions(ctx context.Context, cursor string, size int) ([]*LoanVaultLiquidated, string, error) {
	size = s.clampSize(size)
	startID, startHeight := parseAuctionCursor(cursor)

	raws, err := s.node.ListAuctions(ctx, node.AuctionListOptions{
		StartVaultID: startID,
		StartHeight:  startHeight,
		Limit:        size,
	})
	if err != nil {
		return nil, "", s.outcome("list_auctions", badRequestf("unable to list auctions: %v", err))
	}

	views := make([]*LoanVaultLiquidated, 0, len(raws))
	for i := range raws {
		view, err := s.mapLiquidated(ctx, &raws[i])
		if err != nil {
			return nil, "", s.outcome("list_auctions", err)
		}

		views = append(views, view)
	}

	next := ""
	if len(views) == size {
		last := views[len(views)-1]
		next = last.VaultID + strconv.FormatUint(last.LiquidationHeight, 10)
	}

	return views, next, s.outcome("list_auctions", nil)
}

// GetScheme returns the view of a single loan scheme from the read model.
func (s *Service) GetScheme(id string) (*LoanSchemeView, error) {
	view, err := s.schemeView(id)

	return view, s.outcome("get_scheme", err)
}

// ListSchemes returns one page of loan scheme views ordered by id.
func (s *Service) ListSchemes(cursor string, size int) ([]*LoanSchemeView, string, error) {
	size = s.clampSize(size)

	schemes, err := s.schemes.ListSchemes(cursor, size)
	if err != nil {
		return nil, "", s.outcome("list_schemes", err)
	}

	def, err := s.schemes.CurrentScheme(s.defaultSchemeID)
	if err != nil {
		return nil, "", s.outcome("list_schemes", err)
	}
	if def == nil {
		return nil, "", s.outcome("list_schemes",
			notFoundf("unable to find default loan scheme %s", s.defaultSchemeID))
	}

	views := make([]*LoanSchemeView, 0, len(schemes))
	for _, scheme := range schemes {
		views = append(views, &LoanSchemeView{
			ID:           scheme.ID,
			MinColRatio:  strconv.FormatInt(scheme.MinCollateralRatio, 10),
			InterestRate: scheme.InterestRate,
			Default:      scheme.ID == def.ID,
		})
	}

	next := ""
	if len(views) == size {
		next = views[len(views)-1].ID
	}

	return views, next, s.outcome("list_schemes", nil)
}

// clampSize silently clamps the requested page size to the configured
// maximum. Non-positive sizes request a full page.
func (s *Service) clampSize(size int) int {
	if size <= 0 || size > s.maxPageSize {
		return s.maxPageSize
	}

	return size
}

// parseAuctionCursor splits a listing cursor into vault id and liquidation
// height. The first 64 characters are the id, the remainder the decimal
// height, defaulting to 0 if unparsable.
func parseAuctionCursor(cursor string) (string, uint64) {
	if cursor == "" {
		return "", 0
	}

	if len(cursor) <= vaultIDLength {
		return cursor, 0
	}

	height, err := strconv.ParseUint(cursor[vaultIDLength:], 10, 64)
	if err != nil {
		height = 0
	}

	return cursor[:vaultIDLength], height
}

// outcome records the query metric for an operation and passes the error
// through unchanged.
func (s *Service) outcome(operation string, err error) error {
	switch {
	case err == nil:
		metrics.VaultQueryInc(operation, "ok")
	case errors.Is(err, ErrNotFound):
		metrics.VaultQueryInc(operation, "not_found")
	case errors.Is(err, ErrConflict):
		metrics.VaultQueryInc(operation, "conflict")
	case errors.Is(err, ErrBadRequest):
		metrics.VaultQueryInc(operation, "bad_request")
	default:
		metrics.VaultQueryInc(operation, "error")
	}

	return err
}
