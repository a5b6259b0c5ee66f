package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/goran-ethernal/LoanIndexor/internal/logger"
	"github.com/russross/meddler"
)

// Querier is the subset of database handles store operations run against.
// Both *sql.DB and *sql.Tx satisfy it, so a block hook can group all of its
// writes into one transaction.
type Querier = meddler.DB

// SchemeStore persists loan schemes, their history, and the deferred
// activation queue in SQLite.
type SchemeStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewSchemeStore creates a new SchemeStore backed by the given database.
func NewSchemeStore(db *sql.DB, log *logger.Logger) *SchemeStore {
	return &SchemeStore{
		db:  db,
		log: log.WithComponent("scheme-store"),
	}
}

// WithTx runs fn inside a database transaction, committing on success.
func (s *SchemeStore) WithTx(fn func(q Querier) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Errorf("failed to rollback transaction: %v", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetScheme returns the current loan scheme for the identifier, or nil when absent.
func (s *SchemeStore) GetScheme(q Querier, id string) (*LoanScheme, error) {
	var scheme LoanScheme
	err := meddler.QueryRow(q, &scheme, `SELECT * FROM loan_schemes WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query loan scheme %s: %w", id, err)
	}
	return &scheme, nil
}

// PutScheme inserts or overwrites the current loan scheme record.
func (s *SchemeStore) PutScheme(q Querier, scheme *LoanScheme) error {
	const query = `
		INSERT INTO loan_schemes (id, interest_rate, min_col_ratio, activate_after_block)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			interest_rate = excluded.interest_rate,
			min_col_ratio = excluded.min_col_ratio,
			activate_after_block = excluded.activate_after_block
	`
	_, err := q.Exec(query, scheme.ID, scheme.InterestRate, scheme.MinCollateralRatio, scheme.ActivateAfterBlock)
	if err != nil {
		return fmt.Errorf("failed to put loan scheme %s: %w", scheme.ID, err)
	}
	return nil
}

// DeleteScheme removes the current loan scheme record.
func (s *SchemeStore) DeleteScheme(q Querier, id string) error {
	if _, err := q.Exec(`DELETE FROM loan_schemes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete loan scheme %s: %w", id, err)
	}
	return nil
}

// ListSchemes returns current loan schemes ordered by identifier, starting
// after the given identifier (empty for the first page).
func (s *SchemeStore) ListSchemes(startAfter string, limit int) ([]*LoanScheme, error) {
	var schemes []*LoanScheme
	err := meddler.QueryAll(s.db, &schemes,
		`SELECT * FROM loan_schemes WHERE id > ? ORDER BY id ASC LIMIT ?`, startAfter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list loan schemes: %w", err)
	}
	return schemes, nil
}

// PutHistory appends a history snapshot.
func (s *SchemeStore) PutHistory(q Querier, h *LoanSchemeHistory) error {
	if err := meddler.Insert(q, "loan_scheme_history", h); err != nil {
		return fmt.Errorf("failed to insert history for scheme %s at height %d: %w", h.SchemeID, h.Height, err)
	}
	return nil
}

// GetHistory returns the snapshot for (scheme, height, origin), or nil when absent.
func (s *SchemeStore) GetHistory(q Querier, id string, height uint64, origin string) (*LoanSchemeHistory, error) {
	var h LoanSchemeHistory
	err := meddler.QueryRow(q, &h, `
		SELECT * FROM loan_scheme_history
		WHERE scheme_id = ? AND height = ? AND origin = ?
	`, id, height, origin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history for scheme %s at height %d: %w", id, height, err)
	}
	return &h, nil
}

// LatestHistoryBefore returns the most recent snapshot that reflects the
// scheme's current values before the given height, or nil when none exists.
// An update snapshot written at the boundary height qualifies: it captures
// the values that were current when the update transaction ran, before any
// activation in the same block.
func (s *SchemeStore) LatestHistoryBefore(q Querier, id string, height uint64) (*LoanSchemeHistory, error) {
	var h LoanSchemeHistory
	err := meddler.QueryRow(q, &h, `
		SELECT * FROM loan_scheme_history
		WHERE scheme_id = ? AND (height < ? OR (height = ? AND origin = ?))
		ORDER BY height DESC, id DESC
		LIMIT 1
	`, id, height, height, HistoryOriginUpdate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest history for scheme %s before height %d: %w", id, height, err)
	}
	return &h, nil
}

// HistoryAtHeight returns all snapshots with the given height and origin,
// ordered by identifier.
func (s *SchemeStore) HistoryAtHeight(q Querier, height uint64, origin string) ([]*LoanSchemeHistory, error) {
	var hs []*LoanSchemeHistory
	err := meddler.QueryAll(q, &hs, `
		SELECT * FROM loan_scheme_history
		WHERE height = ? AND origin = ?
		ORDER BY scheme_id ASC
	`, height, origin)
	if err != nil {
		return nil, fmt.Errorf("failed to query history at height %d: %w", height, err)
	}
	return hs, nil
}

// ListHistory returns the scheme's history, most recent first.
func (s *SchemeStore) ListHistory(id string, limit int) ([]*LoanSchemeHistory, error) {
	var hs []*LoanSchemeHistory
	err := meddler.QueryAll(s.db, &hs, `
		SELECT * FROM loan_scheme_history
		WHERE scheme_id = ?
		ORDER BY height DESC, id DESC
		LIMIT ?
	`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history for scheme %s: %w", id, err)
	}
	return hs, nil
}

// DeleteHistory removes the snapshot for (scheme, height, origin).
func (s *SchemeStore) DeleteHistory(q Querier, id string, height uint64, origin string) error {
	_, err := q.Exec(`
		DELETE FROM loan_scheme_history
		WHERE scheme_id = ? AND height = ? AND origin = ?
	`, id, height, origin)
	if err != nil {
		return fmt.Errorf("failed to delete history for scheme %s at height %d: %w", id, height, err)
	}
	return nil
}

// GetDeferred returns the pending deferred entry for the identifier, or nil when absent.
func (s *SchemeStore) GetDeferred(q Querier, id string) (*DeferredLoanScheme, error) {
	var d DeferredLoanScheme
	err := meddler.QueryRow(q, &d, `SELECT * FROM deferred_loan_schemes WHERE scheme_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query deferred loan scheme %s: %w", id, err)
	}
	return &d, nil
}

// PutDeferred inserts or overwrites the deferred entry for the identifier.
func (s *SchemeStore) PutDeferred(q Querier, d *DeferredLoanScheme) error {
	const query = `
		INSERT INTO deferred_loan_schemes (scheme_id, interest_rate, min_col_ratio, activate_after_block)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(scheme_id) DO UPDATE SET
			interest_rate = excluded.interest_rate,
			min_col_ratio = excluded.min_col_ratio,
			activate_after_block = excluded.activate_after_block
	`
	_, err := q.Exec(query, d.SchemeID, d.InterestRate, d.MinCollateralRatio, d.ActivateAfterBlock)
	if err != nil {
		return fmt.Errorf("failed to put deferred loan scheme %s: %w", d.SchemeID, err)
	}
	return nil
}

// DeleteDeferred removes the deferred entry for the identifier.
func (s *SchemeStore) DeleteDeferred(q Querier, id string) error {
	if _, err := q.Exec(`DELETE FROM deferred_loan_schemes WHERE scheme_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete deferred loan scheme %s: %w", id, err)
	}
	return nil
}

// ListDeferred returns up to limit deferred entries in a stable order.
func (s *SchemeStore) ListDeferred(q Querier, limit int) ([]*DeferredLoanScheme, error) {
	var ds []*DeferredLoanScheme
	err := meddler.QueryAll(q, &ds, `
		SELECT * FROM deferred_loan_schemes
		ORDER BY scheme_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deferred loan schemes: %w", err)
	}
	return ds, nil
}

// CurrentScheme is a read-only lookup against the store's own connection,
// for query-side callers that do not hold a transaction.
func (s *SchemeStore) CurrentScheme(id string) (*LoanScheme, error) {
	return s.GetScheme(s.db, id)
}

// DB returns the underlying database connection for use by callers that
// operate outside a transaction.
func (s *SchemeStore) DB() Querier {
	return s.db
}
