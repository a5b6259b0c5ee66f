package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/goran-ethernal/LoanIndexor/internal/db"
	"github.com/goran-ethernal/LoanIndexor/internal/logger"
	"github.com/goran-ethernal/LoanIndexor/internal/migrations"
	"github.com/stretchr/testify/require"
)

var errAbort = errors.New("abort")

func setupTestStore(t *testing.T) *SchemeStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "schemes_test.db")
	require.NoError(t, migrations.RunMigrations(dbPath))

	sqlDB, err := db.NewSQLiteDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewSchemeStore(sqlDB, logger.NewNopLogger())
}

func TestSchemeStore_SchemeCRUD(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)

	got, err := s.GetScheme(s.DB(), "default")
	require.NoError(t, err)
	require.Nil(t, got)

	scheme := &LoanScheme{
		ID:                 "default",
		InterestRate:       "2.5",
		MinCollateralRatio: 150,
	}
	require.NoError(t, s.PutScheme(s.DB(), scheme))

	got, err = s.GetScheme(s.DB(), "default")
	require.NoError(t, err)
	require.Equal(t, scheme, got)

	// Put is an upsert
	scheme.InterestRate = "3.0"
	require.NoError(t, s.PutScheme(s.DB(), scheme))

	got, err = s.GetScheme(s.DB(), "default")
	require.NoError(t, err)
	require.Equal(t, "3.0", got.InterestRate)

	require.NoError(t, s.DeleteScheme(s.DB(), "default"))

	got, err = s.GetScheme(s.DB(), "default")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSchemeStore_ListSchemes(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.PutScheme(s.DB(), &LoanScheme{
			ID:                 id,
			InterestRate:       "1.0",
			MinCollateralRatio: 150,
		}))
	}

	page, err := s.ListSchemes("", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "a", page[0].ID)
	require.Equal(t, "b", page[1].ID)

	page, err = s.ListSchemes("b", 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "c", page[0].ID)
}

func TestSchemeStore_History(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)

	activate := uint64(120)
	records := []*LoanSchemeHistory{
		{SchemeID: "s1", Height: 100, Origin: HistoryOriginCreate, InterestRate: "1.0", MinCollateralRatio: 150},
		{SchemeID: "s1", Height: 110, Origin: HistoryOriginUpdate, InterestRate: "1.0", MinCollateralRatio: 150},
		{SchemeID: "s1", Height: 120, Origin: HistoryOriginActivate, InterestRate: "2.0",
			MinCollateralRatio: 175, ActivateAfterBlock: &activate},
	}
	for _, h := range records {
		require.NoError(t, s.PutHistory(s.DB(), h))
	}

	got, err := s.GetHistory(s.DB(), "s1", 110, HistoryOriginUpdate)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "1.0", got.InterestRate)

	got, err = s.GetHistory(s.DB(), "s1", 110, HistoryOriginActivate)
	require.NoError(t, err)
	require.Nil(t, got)

	// Most recent record strictly before the height
	prev, err := s.LatestHistoryBefore(s.DB(), "s1", 120)
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.EqualValues(t, 110, prev.Height)
	require.Equal(t, HistoryOriginUpdate, prev.Origin)

	// An update capture at the same height is included, an activation is not
	prev, err = s.LatestHistoryBefore(s.DB(), "s1", 110)
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.EqualValues(t, 110, prev.Height)

	atHeight, err := s.HistoryAtHeight(s.DB(), 120, HistoryOriginActivate)
	require.NoError(t, err)
	require.Len(t, atHeight, 1)
	require.Equal(t, "s1", atHeight[0].SchemeID)

	all, err := s.ListHistory("s1", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.EqualValues(t, 120, all[0].Height)

	require.NoError(t, s.DeleteHistory(s.DB(), "s1", 120, HistoryOriginActivate))

	all, err = s.ListHistory("s1", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestSchemeStore_Deferred(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)

	entry := &DeferredLoanScheme{
		SchemeID:           "s1",
		InterestRate:       "5.0",
		MinCollateralRatio: 200,
		ActivateAfterBlock: 500,
	}
	require.NoError(t, s.PutDeferred(s.DB(), entry))

	got, err := s.GetDeferred(s.DB(), "s1")
	require.NoError(t, err)
	require.Equal(t, entry, got)

	// Upsert replaces the pending values
	entry.InterestRate = "6.0"
	require.NoError(t, s.PutDeferred(s.DB(), entry))

	got, err = s.GetDeferred(s.DB(), "s1")
	require.NoError(t, err)
	require.Equal(t, "6.0", got.InterestRate)

	require.NoError(t, s.PutDeferred(s.DB(), &DeferredLoanScheme{
		SchemeID:           "s2",
		InterestRate:       "1.0",
		MinCollateralRatio: 150,
		ActivateAfterBlock: 600,
	}))

	entries, err := s.ListDeferred(s.DB(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	entries, err = s.ListDeferred(s.DB(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, s.DeleteDeferred(s.DB(), "s1"))

	got, err = s.GetDeferred(s.DB(), "s1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSchemeStore_WithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	s := setupTestStore(t)

	err := s.WithTx(func(q Querier) error {
		if err := s.PutScheme(q, &LoanScheme{
			ID:                 "doomed",
			InterestRate:       "1.0",
			MinCollateralRatio: 150,
		}); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	got, err := s.GetScheme(s.DB(), "doomed")
	require.NoError(t, err)
	require.Nil(t, got)
}
