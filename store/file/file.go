/*
Package file provides the JSON flat-file Store implementation.

PURPOSE:
  The canonical backing store: a single human-inspectable JSON object
  keyed by ISO date, one value per DeductionRecord. The whole
  collection is held in memory and rewritten on every mutating call;
  the file is the sole durable owner and the cache is rebuilt from it
  at startup.

CRASH SAFETY:
  Writes go to a temporary file in the same directory followed by a
  rename, so a crash mid-write cannot leave a half-written,
  unparseable store. The cache is only updated after the file write
  succeeds; a persistence failure leaves memory and disk unchanged.

STARTUP RECOVERY:
  A missing or corrupt backing file initializes an empty store. The
  condition is logged, not fatal.

USAGE:
  store, err := file.New("dtr_records.json", rule, nil)
  if err != nil { ... }
  err = store.Save(ctx, rec, false)
  var conflict *dtr.ConflictError
  if errors.As(err, &conflict) {
      // show conflict.Existing, then retry with overwrite=true
  }

SEE ALSO:
  - dtr/store.go: Contract this implements
  - store/sqlite: SQLite-backed alternative
*/
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/warp/attendance-engine/dtr"
)

// Store implements dtr.Store on a single JSON file.
type Store struct {
	mu      sync.RWMutex
	path    string
	rule    *dtr.ScheduleRule
	log     *slog.Logger
	records map[string]dtr.DeductionRecord // keyed by ISO date
}

// New opens (or initializes) the store backed by the JSON file at
// path. A missing or unreadable file starts an empty store.
func New(path string, rule *dtr.ScheduleRule, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:    path,
		rule:    rule,
		log:     logger,
		records: make(map[string]dtr.DeductionRecord),
	}
	s.load()
	return s, nil
}

// load rebuilds the cache from the backing file. Failures degrade to
// an empty store.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info("record store initialized", "path", s.path, "records", 0)
		} else {
			s.log.Warn("record store unreadable, starting empty", "path", s.path, "error", err)
		}
		return
	}

	var records map[string]dtr.DeductionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Warn("record store corrupt, starting empty", "path", s.path, "error", err)
		return
	}
	s.records = records
	s.log.Info("record store loaded", "path", s.path, "records", len(records))
}

// persist atomically replaces the backing file with next. On success
// next becomes the cache; on failure nothing changes.
func (s *Store) persist(next map[string]dtr.DeductionRecord) error {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return &dtr.PersistenceError{Op: "persist", Err: err}
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".records-*.json")
	if err != nil {
		return &dtr.PersistenceError{Op: "persist", Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &dtr.PersistenceError{Op: "persist", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &dtr.PersistenceError{Op: "persist", Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &dtr.PersistenceError{Op: "persist", Err: err}
	}

	s.records = next
	return nil
}

func (s *Store) clone() map[string]dtr.DeductionRecord {
	next := make(map[string]dtr.DeductionRecord, len(s.records)+1)
	for k, v := range s.records {
		next[k] = v
	}
	return next
}

// Save recomputes rec against the schedule rule and writes it.
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

	next := s.clone()
	next[key] = rec
	if err := s.persist(next); err != nil {
		s.log.Error("record save failed", "date", key, "error", err)
		return err
	}
	s.log.Info("record saved", "date", key, "overwrite", overwrite, "points", rec.Computed.Points)
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

	next := s.clone()
	next[key] = rec
	if err := s.persist(next); err != nil {
		s.log.Error("record edit failed", "date", key, "error", err)
		return dtr.DeductionRecord{}, err
	}
	s.log.Info("record edited", "date", key, "points", rec.Computed.Points)
	return rec, nil
}

// Delete removes the given dates. Missing dates are ignored.
func (s *Store) Delete(_ context.Context, dates ...dtr.Date) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.clone()
	removed := 0
	for _, d := range dates {
		key := d.String()
		if _, ok := next[key]; ok {
			delete(next, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.persist(next); err != nil {
		s.log.Error("record delete failed", "count", removed, "error", err)
		return 0, err
	}
	s.log.Info("records deleted", "count", removed)
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
