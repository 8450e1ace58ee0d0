/*
store.go - Record store contract

PURPOSE:
  Defines the interface between the deduction engine and the persisted
  record history. Implementations keep exactly one DeductionRecord per
  date, recompute through the calculator on every mutation, and fully
  persist each mutating operation before returning.

UNIQUENESS CONTRACT:
  Save never overwrites silently. A save against an occupied date
  returns *ConflictError carrying the existing record; the caller
  confirms by retrying with overwrite=true. This keeps the duplicate
  check a two-step interaction instead of an exception.

IMPLEMENTATIONS:
  - store/file:   JSON flat file, human-inspectable, atomic replace
  - store/sqlite: SQLite-backed, same contract
  - store/memory: Non-durable, for tests and throwaway sessions

SEE ALSO:
  - calc.go: Invoked on save and edit
  - store/file/file.go, store/sqlite/sqlite.go
*/
package dtr

import (
	"context"
	"iter"
)

// Store is the persisted history of deduction records, keyed by date.
//
// INVARIANTS:
//   - Exactly one record per date.
//   - Computed fields are always recomputed through the calculator;
//     callers cannot persist hand-edited results.
//   - Every mutating call persists fully before returning; on error the
//     in-memory state and the backing storage stay consistent.
type Store interface {
	// Save validates and recomputes rec, then writes it. If a record
	// already exists for rec.Date and overwrite is false, it returns a
	// *ConflictError and changes nothing.
	Save(ctx context.Context, rec DeductionRecord, overwrite bool) error

	// Get returns the record for date, or ErrNotFound.
	Get(ctx context.Context, date Date) (DeductionRecord, error)

	// Edit replaces the actual times of an existing record, recomputes,
	// bumps the modified timestamp, and persists. Returns ErrNotFound
	// if no record exists for date.
	Edit(ctx context.Context, date Date, morning, afternoon TimeEntry) (DeductionRecord, error)

	// Delete removes the given dates in one persisted operation.
	// Missing dates are ignored. Returns how many records were removed.
	Delete(ctx context.Context, dates ...Date) (int, error)

	// Query returns a restartable ascending sequence of records with
	// from <= date <= to. An empty range yields an empty sequence.
	Query(ctx context.Context, from, to Date) (iter.Seq[DeductionRecord], error)

	// All returns the full ascending sequence, used for export.
	All(ctx context.Context) (iter.Seq[DeductionRecord], error)

	// Len reports the number of stored records.
	Len(ctx context.Context) (int, error)

	Close() error
}
