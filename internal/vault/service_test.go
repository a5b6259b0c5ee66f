package vault

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goran-ethernal/LoanIndexor/internal/db"
	"github.com/goran-ethernal/LoanIndexor/internal/logger"
	"github.com/goran-ethernal/LoanIndexor/internal/migrations"
	"github.com/goran-ethernal/LoanIndexor/internal/store"
	"github.com/goran-ethernal/LoanIndexor/pkg/node"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testMaxPageSize = 30

// fakeNode serves canned vault, token and price data.
type fakeNode struct {
	vaults   map[string]*node.RawVault
	auctions []node.RawVault
	tokens   map[string]node.RawToken
	prices   map[string]decimal.Decimal

	vaultErr error

	lastVaultOpts   node.VaultListOptions
	lastAuctionOpts node.AuctionListOptions
}

func (f *fakeNode) Close() {}

func (f *fakeNode) GetBlockCount(ctx context.Context) (uint64, error) { return 0, nil }

func (f *fakeNode) GetBlockHash(ctx context.Context, height uint64) (string, error) {
	return "", nil
}

func (f *fakeNode) GetBlock(ctx context.Context, hash string) (*node.RawBlock, error) {
	return nil, nil
}

func (f *fakeNode) ListVaults(ctx context.Context, opts node.VaultListOptions) ([]node.RawVault, error) {
	f.lastVaultOpts = opts

	out := make([]node.RawVault, 0, len(f.vaults))
	for _, v := range f.vaults {
		out = append(out, *v)
	}

	return out, nil
}

func (f *fakeNode) GetVault(ctx context.Context, vaultID string) (*node.RawVault, error) {
	if f.vaultErr != nil {
		return nil, f.vaultErr
	}

	v, ok := f.vaults[vaultID]
	if !ok {
		return nil, errors.New("internal node failure")
	}

	return v, nil
}

func (f *fakeNode) ListAuctions(ctx context.Context, opts node.AuctionListOptions) ([]node.RawVault, error) {
	f.lastAuctionOpts = opts

	return f.auctions, nil
}

func (f *fakeNode) ListTokens(ctx context.Context) (map[string]node.RawToken, error) {
	return f.tokens, nil
}

func (f *fakeNode) GetActivePrice(ctx context.Context, key string) (*node.RawActivePrice, error) {
	symbol := strings.TrimSuffix(key, "-USD")
	price, ok := f.prices[symbol]
	if !ok {
		return nil, errors.New("no active price")
	}

	return &node.RawActivePrice{Key: key, Active: price}, nil
}

// rpcNotFoundError mimics a JSON-RPC error response from the node.
type rpcNotFoundError struct{ msg string }

func (e *rpcNotFoundError) Error() string  { return e.msg }
func (e *rpcNotFoundError) ErrorCode() int { return -5 }

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}

	return d
}

func testVaultID(seed string) string {
	return seed + strings.Repeat("0", 64-len(seed))
}

func setupService(t *testing.T, n *fakeNode) *Service {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "vault_test.db")
	require.NoError(t, migrations.RunMigrations(dbPath))

	sqlDB, err := db.NewSQLiteDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	schemes := store.NewSchemeStore(sqlDB, logger.NewNopLogger())
	for _, scheme := range []*store.LoanScheme{
		{ID: "A", InterestRate: "2.5", MinCollateralRatio: 150},
		{ID: "default", InterestRate: "1.0", MinCollateralRatio: 100},
	} {
		require.NoError(t, schemes.PutScheme(schemes.DB(), scheme))
	}

	return NewService(logger.NewNopLogger(), n, schemes, "default", testMaxPageSize)
}

func defaultFakeNode() *fakeNode {
	return &fakeNode{
		vaults: make(map[string]*node.RawVault),
		tokens: map[string]node.RawToken{
			"1":  {ID: "1", Symbol: "DFI", SymbolKey: "DFI", DisplaySymbol: "DFI"},
			"3":  {ID: "3", Symbol: "BTC", SymbolKey: "BTC", DisplaySymbol: "dBTC"},
			"10": {ID: "10", Symbol: "TSLA", SymbolKey: "TSLA", DisplaySymbol: "dTSLA"},
		},
		prices: map[string]decimal.Decimal{
			"BTC":  dec("30000.5"),
			"TSLA": dec("182.25"),
		},
	}
}

func activeVault(id, scheme string) *node.RawVault {
	return &node.RawVault{
		VaultID:           id,
		LoanSchemeID:      scheme,
		OwnerAddress:      "owner-addr",
		State:             node.VaultStateActive,
		CollateralAmounts: []string{"1.5@BTC", "100@DFI"},
		LoanAmounts:       []string{"2@TSLA"},
		InterestAmounts:   []string{"0.001@TSLA"},
		CollateralValue:   dec("45100.75"),
		LoanValue:         dec("364.5"),
		InterestValue:     dec("0.18225"),
		CollateralRatio:   12373,
		InformativeRatio:  dec("12373.45678912"),
	}
}

func TestService_GetVault_DefaultSchemeFlag(t *testing.T) {
	t.Parallel()

	n := defaultFakeNode()
	idA := testVaultID("aa")
	idB := testVaultID("bb")
	n.vaults[idA] = activeVault(idA, "A")
	n.vaults[idB] = activeVault(idB, "default")

	svc := setupService(t, n)

	view, err := svc.GetVault(context.Background(), idA)
	require.NoError(t, err)
	active, ok := view.(*LoanVaultActive)
	require.True(t, ok)
	require.Equal(t, "A", active.LoanScheme.ID)
	require.False(t, active.LoanScheme.Default)

	view, err = svc.GetVault(context.Background(), idB)
	require.NoError(t, err)
	active, ok = view.(*LoanVaultActive)
	require.True(t, ok)
	require.True(t, active.LoanScheme.Default)
}

func TestService_GetVault_DecimalStringsAndOrdering(t *testing.T) {
	t.Parallel()

	n := defaultFakeNode()
	id := testVaultID("aa")
	vault := activeVault(id, "A")
	// Unordered by numeric token id: TSLA=10, DFI=1, BTC=3
	vault.CollateralAmounts = []string{"2@TSLA", "100@DFI", "1.5@BTC"}
	n.vaults[id] = vault

	svc := setupService(t, n)

	view, err := svc.GetVault(context.Background(), id)
	require.NoError(t, err)
	active, ok := view.(*LoanVaultActive)
	require.True(t, ok)

	require.Equal(t, "12373.45678912", active.InformativeRatio)
	require.Equal(t, "12373", active.CollateralRatio)
	require.Equal(t, "45100.75", active.CollateralValue)
	require.Equal(t, "364.5", active.LoanValue)
	require.Equal(t, "0.18225", active.InterestValue)

	ids := make([]string, 0, len(active.CollateralAmounts))
	for _, amount := range active.CollateralAmounts {
		ids = append(ids, amount.ID)
	}
	require.Equal(t, []string{"1", "3", "10"}, ids)

	// Price enrichment keyed by <symbol>-USD; DFI has no feed
	require.Equal(t, "30000.5", active.CollateralAmounts[1].ActivePrice)
	require.Empty(t, active.CollateralAmounts[0].ActivePrice)
}

func TestService_GetVault_LiquidationRouting(t *testing.T) {
	t.Parallel()

	n := defaultFakeNode()
	id := testVaultID("cc")
	n.vaults[id] = &node.RawVault{
		VaultID:            id,
		LoanSchemeID:       "A",
		OwnerAddress:       "owner-addr",
		State:              node.VaultStateInLiquidation,
		BatchCount:         2,
		LiquidationHeight:  5000,
		LiquidationPenalty: dec("5"),
		Batches: []node.RawBatch{
			{Index: 0, Collaterals: []string{"1.5@BTC"}, Loan: "2@TSLA"},
			{Index: 1, Collaterals: []string{"100@DFI"}},
		},
	}

	svc := setupService(t, n)

	view, err := svc.GetVault(context.Background(), id)
	require.NoError(t, err)

	liquidated, ok := view.(*LoanVaultLiquidated)
	require.True(t, ok, "in-liquidation vault must map to the liquidated view")
	require.Equal(t, StateInLiquidation, liquidated.State)
	require.Equal(t, 2, liquidated.BatchCount)
	require.EqualValues(t, 5000, liquidated.LiquidationHeight)
	require.Equal(t, "5", liquidated.LiquidationPenalty)

	require.Len(t, liquidated.Batches, 2)
	require.NotNil(t, liquidated.Batches[0].Loan)
	require.Equal(t, "TSLA", liquidated.Batches[0].Loan.Symbol)
	// A batch without a loan entry surfaces an absent loan, not an error
	require.Nil(t, liquidated.Batches[1].Loan)
}

func TestService_GetVault_NotFoundPropagation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{name: "unknown vault", err: &rpcNotFoundError{msg: "Vault <deadbeef> not found"}},
		{name: "short id", err: &rpcNotFoundError{msg: "vaultId must be of length 64 (not 8, for 'deadbeef')"}},
		{name: "non-hex id", err: &rpcNotFoundError{msg: "vaultId must be hexadecimal string (not 'xyz')"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := defaultFakeNode()
			n.vaultErr = tt.err
			svc := setupService(t, n)

			_, err := svc.GetVault(context.Background(), "deadbeef")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestService_GetVault_OtherNodeErrorsAreBadRequests(t *testing.T) {
	t.Parallel()

	n := defaultFakeNode()
	n.vaultErr = errors.New("work queue depth exceeded")
	svc := setupService(t, n)

	_, err := svc.GetVault(context.Background(), testVaultID("aa"))
	require.ErrorIs(t, err, ErrBadRequest)
	require.Contains(t, err.Error(), "work queue depth exceeded")
}

func TestService_GetVault_UnknownSymbolIsConflict(t *testing.T) {
	t.Parallel()

	n := defaultFakeNode()
	id := testVaultID("aa")
	vault := activeVault(id, "A")
	vault.CollateralAmounts = []string{"5@DOGE"}
	n.vaults[id] = vault

	svc := setupService(t, n)

	_, err := svc.GetVault(context.Background(), id)
	require.ErrorIs(t, err, ErrConflict)
	require.Contains(t, err.Error(), "DOGE")
}

func TestService_GetVault_UnknownSchemeIsNotFound(t *testing.T) {
	t.Parallel()

	n := defaultFakeNode()
	id := testVaultID("aa")
	n.vaults[id] = activeVault(id, "no-such-scheme")

	svc := setupService(t, n)

	_, err := svc.GetVault(context.Background(), id)
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "unable to find loan scheme")
}

func TestService_ListVaults_SizeClamp(t *testing.T) {
	t.Parallel()

	n := defaultFakeNode()
	svc := setupService(t, n)

	_, _, err := svc.ListVaults(context.Background(), "", 500, "")
	require.NoError(t, err)
	require.Equal(t, testMaxPageSize, n.lastVaultOpts.Limit)

	_, _, err = svc.ListVaults(context.Background(), "", 0, "")
	require.NoError(t, err)
	require.Equal(t, testMaxPageSize, n.lastVaultOpts.Limit)

	_, _, err = svc.ListVaults(context.Background(), "", 5, "owner-addr")
	require.NoError(t, err)
	require.Equal(t, 5, n.lastVaultOpts.Limit)
	require.Equal(t, "owner-addr", n.lastVaultOpts.OwnerAddress)
}

func TestService_ListAuctions_Cursor(t *testing.T) {
	t.Parallel()

	n := defaultFakeNode()
	svc := setupService(t, n)

	id := testVaultID("dd")
	_, _, err := svc.ListAuctions(context.Background(), id+"5000", 10)
	require.NoError(t, err)
	require.Equal(t, id, n.lastAuctionOpts.StartVaultID)
	require.EqualValues(t, 5000, n.lastAuctionOpts.StartHeight)
}

func TestParseAuctionCursor(t *testing.T) {
	t.Parallel()

	id := testVaultID("ee")

	tests := []struct {
		name       string
		cursor     string
		wantID     string
		wantHeight uint64
	}{
		{name: "empty", cursor: "", wantID: "", wantHeight: 0},
		{name: "id with height", cursor: id + "12345", wantID: id, wantHeight: 12345},
		{name: "id only", cursor: id, wantID: id, wantHeight: 0},
		{name: "unparsable height defaults to zero", cursor: id + "xyz", wantID: id, wantHeight: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotID, gotHeight := parseAuctionCursor(tt.cursor)
			require.Equal(t, tt.wantID, gotID)
			require.Equal(t, tt.wantHeight, gotHeight)
		})
	}
}

func TestLessTokenID(t *testing.T) {
	t.Parallel()

	require.True(t, lessTokenID("1", "3"))
	require.True(t, lessTokenID("3", "10"))
	require.False(t, lessTokenID("10", "3"))
	require.True(t, lessTokenID("2", "10"), "numeric, not lexicographic")
}
