package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/b0ase/path402/apps/poeminter/internal/ledger"
)

// LedgerStore implements ledger.Store on SQLite for the current run.
type LedgerStore struct {
	db *DB
}

func NewLedgerStore(d *DB) *LedgerStore {
	return &LedgerStore{db: d}
}

func (s *LedgerStore) SaveEntry(ctx context.Context, e ledger.Entry) error {
	_, err := s.db.sql.ExecContext(ctx, `
		INSERT INTO ledger_entries (run_id, id, kind, amount, counter_asset, status, timestamp, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.db.runID, e.ID, string(e.Kind), e.Amount.String(), e.CounterAsset, e.Status,
		e.Timestamp.UnixNano(), e.Description)
	return err
}

func (s *LedgerStore) GetEntries(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := s.db.sql.QueryContext(ctx, `
		SELECT id, kind, amount, counter_asset, status, timestamp, description
		FROM ledger_entries WHERE run_id = ? ORDER BY seq ASC`, s.db.runID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (s *LedgerStore) GetEntriesByKind(ctx context.Context, kind ledger.Kind) ([]ledger.Entry, error) {
	rows, err := s.db.sql.QueryContext(ctx, `
		SELECT id, kind, amount, counter_asset, status, timestamp, description
		FROM ledger_entries WHERE run_id = ? AND kind = ? ORDER BY seq ASC`, s.db.runID, string(kind))
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]ledger.Entry, error) {
	defer rows.Close()

	entries := make([]ledger.Entry, 0)
	for rows.Next() {
		var (
			e    ledger.Entry
			kind string
			ts   int64
		)
		if err := rows.Scan(&e.ID, &kind, &e.Amount, &e.CounterAsset, &e.Status, &ts, &e.Description); err != nil {
			return nil, err
		}
		e.Kind = ledger.Kind(kind)
		e.Timestamp = time.Unix(0, ts).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

var _ ledger.Store = (*LedgerStore)(nil)
