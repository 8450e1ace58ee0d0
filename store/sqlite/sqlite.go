/*
Package sqlite provides a SQLite-backed Store implementation.

PURPOSE:
  An alternative to the JSON flat file for installations that prefer a
  database. Implements the same dtr.Store contract: one row per date,
  recompute-on-mutation, no silent overwrites.

SCHEMA:
  records:
    date TEXT PRIMARY KEY          ISO date, the uniqueness key
    morning_json / afternoon_json  Raw TimeEntry pairs
    computed_json                  ComputedResult, replaced on edit
    created_at / modified_at       Audit timestamps (RFC3339)

  Schema is auto-migrated on New(). The primary key enforces the
  one-record-per-date invariant at the database level as well.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): readers don't block,
  a single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New(":memory:", rule, nil)
  if err != nil { ... }
  defer store.Close()

SEE ALSO:
  - dtr/store.go: Contract this implements
  - store/file: JSON flat-file implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/attendance-engine/dtr"
)

// Store implements dtr.Store on SQLite.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	rule *dtr.ScheduleRule
	log  *slog.Logger
}

// New opens a SQLite store at dbPath. Use ":memory:" for an in-memory
// database.
func New(dbPath string, rule *dtr.ScheduleRule, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, rule: rule, log: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		date TEXT PRIMARY KEY,
		morning_json TEXT NOT NULL,
		afternoon_json TEXT NOT NULL,
		computed_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		modified_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_date ON records(date);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

// =============================================================================
// ROW MAPPING
// =============================================================================

func encodeRecord(rec dtr.DeductionRecord) (morning, afternoon, computed string, err error) {
	m, err := json.Marshal(rec.Morning)
	if err != nil {
		return "", "", "", err
	}
	a, err := json.Marshal(rec.Afternoon)
	if err != nil {
		return "", "", "", err
	}
	c, err := json.Marshal(rec.Computed)
	if err != nil {
		return "", "", "", err
	}
	return string(m), string(a), string(c), nil
}

func scanRecord(scan func(dest ...any) error) (dtr.DeductionRecord, error) {
	var rec dtr.DeductionRecord
	var dateStr, m, a, c, crAt, modAt string
	if err := scan(&dateStr, &m, &a, &c, &crAt, &modAt); err != nil {
		return rec, err
	}

	date, err := dtr.ParseDate(dateStr)
	if err != nil {
		return rec, err
	}
	rec.Date = date
	if err := json.Unmarshal([]byte(m), &rec.Morning); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(a), &rec.Afternoon); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(c), &rec.Computed); err != nil {
		return rec, err
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, crAt); err != nil {
		return rec, err
	}
	if rec.ModifiedAt, err = time.Parse(time.RFC3339Nano, modAt); err != nil {
		return rec, err
	}
	return rec, nil
}

// =============================================================================
// STORE OPERATIONS
// =============================================================================

func (s *Store) Save(ctx context.Context, rec dtr.DeductionRecord, overwrite bool) error {
	computed, err := dtr.Compute(rec.Date, rec.Morning, rec.Afternoon, s.rule)
	if err != nil {
		return err
	}
	rec.Computed = computed

	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.Date.String()
	now := time.Now().UTC()

	existing, err := s.getLocked(ctx, rec.Date)
	switch {
	case err == nil:
		if !overwrite {
			return &dtr.ConflictError{Date: rec.Date, Existing: existing}
		}
		rec.CreatedAt = existing.CreatedAt
	case errors.Is(err, dtr.ErrNotFound):
		rec.CreatedAt = now
	default:
		return err
	}
	rec.ModifiedAt = now

	m, a, c, err := encodeRecord(rec)
	if err != nil {
		return &dtr.PersistenceError{Op: "persist", Err: err}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (date, morning_json, afternoon_json, computed_json, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			morning_json = excluded.morning_json,
			afternoon_json = excluded.afternoon_json,
			computed_json = excluded.computed_json,
			modified_at = excluded.modified_at`,
		key, m, a, c,
		rec.CreatedAt.Format(time.RFC3339Nano), rec.ModifiedAt.Format(time.RFC3339Nano))
	if err != nil {
		s.log.Error("record save failed", "date", key, "error", err)
		return &dtr.PersistenceError{Op: "persist", Err: err}
	}
	s.log.Info("record saved", "date", key, "overwrite", overwrite, "points", rec.Computed.Points)
	return nil
}

func (s *Store) Get(ctx context.Context, date dtr.Date) (dtr.DeductionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(ctx, date)
}

func (s *Store) getLocked(ctx context.Context, date dtr.Date) (dtr.DeductionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT date, morning_json, afternoon_json, computed_json, created_at, modified_at
		FROM records WHERE date = ?`, date.String())

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return dtr.DeductionRecord{}, fmt.Errorf("%w: %s", dtr.ErrNotFound, date)
	}
	if err != nil {
		return dtr.DeductionRecord{}, &dtr.PersistenceError{Op: "load", Err: err}
	}
	return rec, nil
}

func (s *Store) Edit(ctx context.Context, date dtr.Date, morning, afternoon dtr.TimeEntry) (dtr.DeductionRecord, error) {
	computed, err := dtr.Compute(date, morning, afternoon, s.rule)
	if err != nil {
		return dtr.DeductionRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.getLocked(ctx, date)
	if err != nil {
		return dtr.DeductionRecord{}, err
	}

	rec.Morning = morning
	rec.Afternoon = afternoon
	rec.Computed = computed
	rec.ModifiedAt = time.Now().UTC()

	m, a, c, err := encodeRecord(rec)
	if err != nil {
		return dtr.DeductionRecord{}, &dtr.PersistenceError{Op: "persist", Err: err}
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE records SET morning_json = ?, afternoon_json = ?, computed_json = ?, modified_at = ?
		WHERE date = ?`,
		m, a, c, rec.ModifiedAt.Format(time.RFC3339Nano), date.String())
	if err != nil {
		s.log.Error("record edit failed", "date", date.String(), "error", err)
		return dtr.DeductionRecord{}, &dtr.PersistenceError{Op: "persist", Err: err}
	}
	s.log.Info("record edited", "date", date.String(), "points", rec.Computed.Points)
	return rec, nil
}

// Delete removes the given dates in one transaction. Missing dates are
// ignored.
func (s *Store) Delete(ctx context.Context, dates ...dtr.Date) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &dtr.PersistenceError{Op: "persist", Err: err}
	}
	defer tx.Rollback()

	removed := 0
	for _, d := range dates {
		res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE date = ?`, d.String())
		if err != nil {
			return 0, &dtr.PersistenceError{Op: "persist", Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, &dtr.PersistenceError{Op: "persist", Err: err}
		}
		removed += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, &dtr.PersistenceError{Op: "persist", Err: err}
	}
	s.log.Info("records deleted", "count", removed)
	return removed, nil
}

func (s *Store) Query(ctx context.Context, from, to dtr.Date) (iter.Seq[dtr.DeductionRecord], error) {
	return s.loadRange(ctx, `
		SELECT date, morning_json, afternoon_json, computed_json, created_at, modified_at
		FROM records WHERE date >= ? AND date <= ? ORDER BY date ASC`,
		from.String(), to.String())
}

func (s *Store) All(ctx context.Context) (iter.Seq[dtr.DeductionRecord], error) {
	return s.loadRange(ctx, `
		SELECT date, morning_json, afternoon_json, computed_json, created_at, modified_at
		FROM records ORDER BY date ASC`)
}

// loadRange materializes the rows up front so the returned sequence is
// restartable and never observes a half-finished mutation.
func (s *Store) loadRange(ctx context.Context, query string, args ...any) (iter.Seq[dtr.DeductionRecord], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &dtr.PersistenceError{Op: "load", Err: err}
	}
	defer rows.Close()

	var result []dtr.DeductionRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, &dtr.PersistenceError{Op: "load", Err: err}
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &dtr.PersistenceError{Op: "load", Err: err}
	}

	return func(yield func(dtr.DeductionRecord) bool) {
		for _, rec := range result {
			if !yield(rec) {
				return
			}
		}
	}, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, &dtr.PersistenceError{Op: "load", Err: err}
	}
	return n, nil
}
