package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrPersistence signals that the backing store failed a read or write. The
// in-memory log remains authoritative for the rest of the process; callers
// surface a warning and carry on.
var ErrPersistence = errors.New("history persistence failed")

// StorageKey names the persisted history blob in the key-value store.
const StorageKey = "examHistory"

// KV is the minimal persistence surface the store needs (implemented by
// storage.Store).
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store keeps a capped, newest-last log of exam results backed by a single
// JSON-serialized KV entry.
type Store struct {
	kv      KV
	cap     int
	logger  zerolog.Logger
	entries []Entry
	dirty   bool // in-memory log holds entries the backing store does not
}

// NewStore creates a store retaining at most capN entries.
func NewStore(kv KV, capN int, logger zerolog.Logger) *Store {
	return &Store{kv: kv, cap: capN, logger: logger}
}

// Load refreshes the in-memory log from persistence. When an earlier write
// failed, the in-memory log is ahead of the backing store and stays
// authoritative: instead of re-reading a stale blob over unsaved attempts,
// Load retries the write. A read failure keeps the current log; unparseable
// data fails soft to an empty one.
func (s *Store) Load(ctx context.Context) error {
	if s.dirty {
		return s.persist(ctx)
	}

	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrPersistence, StorageKey, err)
	}
	if !ok {
		s.entries = nil
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn().Err(err).Msg("stored exam history is unparseable, starting empty")
		s.entries = nil
		return fmt.Errorf("%w: decode %s: %v", ErrPersistence, StorageKey, err)
	}
	if len(entries) > s.cap {
		entries = entries[len(entries)-s.cap:]
	}
	s.entries = entries
	return nil
}

// Append adds an entry newest-last, evicting the oldest entries beyond the
// cap, then writes the whole log back. A write failure keeps the in-memory
// log intact and returns ErrPersistence.
func (s *Store) Append(ctx context.Context, entry Entry) error {
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.cap {
		s.entries = s.entries[len(s.entries)-s.cap:]
	}
	return s.persist(ctx)
}

func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		s.dirty = true
		return fmt.Errorf("%w: encode %s: %v", ErrPersistence, StorageKey, err)
	}
	if err := s.kv.Set(ctx, StorageKey, data); err != nil {
		s.dirty = true
		s.logger.Warn().Err(err).Msg("exam history write failed, continuing in memory")
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, StorageKey, err)
	}
	s.dirty = false
	return nil
}

// All returns a copy of the log, oldest first.
func (s *Store) All() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the entry at index (0 = oldest retained).
func (s *Store) Get(index int) (Entry, bool) {
	if index < 0 || index >= len(s.entries) {
		return Entry{}, false
	}
	return s.entries[index], true
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Stats derives pass/fail counts from the in-memory log.
func (s *Store) Stats() Stats {
	st := Stats{Total: len(s.entries)}
	for _, e := range s.entries {
		if e.Passed {
			st.Passed++
		}
	}
	st.Failed = st.Total - st.Passed
	return st
}

// Clear empties both the in-memory log and the persisted form. When the
// delete does not reach storage the log is marked dirty so the next Load
// writes the emptied state instead of resurrecting the old blob.
func (s *Store) Clear(ctx context.Context) error {
	s.entries = nil
	if err := s.kv.Delete(ctx, StorageKey); err != nil {
		s.dirty = true
		return fmt.Errorf("%w: clear %s: %v", ErrPersistence, StorageKey, err)
	}
	s.dirty = false
	return nil
}
