/*
Package memory provides an in-memory Store implementation.

PURPOSE:
  A Store with no durability, for tests and throwaway sessions. Same
  recompute-on-write and conflict semantics as the file and sqlite
  backends, minus the persistence; everything is lost on Close.

SEE ALSO:
  - dtr/store.go: Contract this implements
  - store/file: Durable flat-file backend
*/
package memory

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/warp/attendance-engine/dtr"
)

// Store implements dtr.Store on a plain map.
type Store struct {
	mu      sync.RWMutex
	rule    *dtr.ScheduleRule
	records map[string]dtr.DeductionRecord // keyed by ISO date
}

func New(rule *dtr.ScheduleRule) *Store {
	return &Store{
		rule:    rule,
		records: make(map[string]dtr.DeductionRecord),
	}
}

// Save recomputes rec against the schedule rule and stores it.
func (s *Store) Save(_ context.Context, rec dtr.DeductionRecord, overwrite bool) error {
	computed, err := dtr.Compute(rec.Date, rec.Morning, rec.Afternoon, s.rule)
	if err != nil {
		return err
	}
	rec.Computed = computed

	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.Date.String()
	now := time.Now().UTC()
	if existing, ok := s.records[key]; ok {
		if !overwrite {
			return &dtr.ConflictError{Date: rec.Date, Existing: existing}
		}
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.ModifiedAt = now

	s.records[key] = rec
	return nil
}

func (s *Store) Get(_ context.Context, date dtr.Date) (dtr.DeductionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[date.String()]
	if !ok {
		return dtr.DeductionRecord{}, fmt.Errorf("%w: %s", dtr.ErrNotFound, date)
	}
	return rec, nil
}

// Edit replaces the actual times of an existing record and recomputes.
func (s *Store) Edit(_ context.Context, date dtr.Date, morning, afternoon dtr.TimeEntry) (dtr.DeductionRecord, error) {
	computed, err := dtr.Compute(date, morning, afternoon, s.rule)
	if err != nil {
		return dtr.DeductionRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := date.String()
	rec, ok := s.records[key]
	if !ok {
		return dtr.DeductionRecord{}, fmt.Errorf("%w: %s", dtr.ErrNotFound, date)
	}

	rec.Morning = morning
	rec.Afternoon = afternoon
	rec.Computed = computed
	rec.ModifiedAt = time.Now().UTC()
	s.records[key] = rec
	return rec, nil
}

// Delete removes the given dates. Missing dates are ignored.
func (s *Store) Delete(_ context.Context, dates ...dtr.Date) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, d := range dates {
		key := d.String()
		if _, ok := s.records[key]; ok {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) Query(_ context.Context, from, to dtr.Date) (iter.Seq[dtr.DeductionRecord], error) {
	return s.snapshot(func(rec dtr.DeductionRecord) bool {
		return !rec.Date.Before(from) && !rec.Date.After(to)
	}), nil
}

func (s *Store) All(_ context.Context) (iter.Seq[dtr.DeductionRecord], error) {
	return s.snapshot(func(dtr.DeductionRecord) bool { return true }), nil
}

// snapshot copies the matching records, sorted ascending by date, and
// returns a restartable sequence over the copy.
func (s *Store) snapshot(match func(dtr.DeductionRecord) bool) iter.Seq[dtr.DeductionRecord] {
	s.mu.RLock()
	result := make([]dtr.DeductionRecord, 0, len(s.records))
	for _, rec := range s.records {
		if match(rec) {
			result = append(result, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })

	return func(yield func(dtr.DeductionRecord) bool) {
		for _, rec := range result {
			if !yield(rec) {
				return
			}
		}
	}
}

func (s *Store) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *Store) Close() error { return nil }
