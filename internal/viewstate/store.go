// Package viewstate holds the result sets a user last fetched, so search,
// sort, export snapshots and optimistic toggles work on what is on screen
// without another backend round trip.
//
// Every write carries a sequence number. A write only lands if no write with
// a higher number has landed before it, so a slow response can never replace
// the result of a later fetch.
package viewstate

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrMiss   = errors.New("view state not cached")
	ErrLocked = errors.New("view state locked")
)

// Entry is one stored result set.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Data     []byte    `json:"data"`
	StoredAt time.Time `json:"stored_at"`
}

type Store interface {
	// NextSeq returns a number greater than any returned before for key.
	NextSeq(ctx context.Context, key string) (uint64, error)
	// Put stores data unless an entry with a higher seq is already stored.
	// It reports whether the write landed.
	Put(ctx context.Context, key string, seq uint64, data []byte) (bool, error)
	Get(ctx context.Context, key string) (Entry, error)
	Delete(ctx context.Context, key string) error
	// InvalidatePrefix drops every entry under prefix and fences the keys:
	// a Put with a seq reserved before the call no longer lands.
	InvalidatePrefix(ctx context.Context, prefix string) error
	// Lock takes an exclusive lock on key for at most ttl. ok is false when
	// someone else holds it.
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// Begin reserves a sequence number before a fetch starts.
func Begin(ctx context.Context, s Store, key string) (uint64, error) {
	return s.NextSeq(ctx, key)
}

// Save encodes v and stores it under the seq reserved by Begin.
func Save[T any](ctx context.Context, s Store, key string, seq uint64, v T) (bool, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	return s.Put(ctx, key, seq, b)
}

// Load decodes the entry stored under key. A missing entry is ErrMiss.
func Load[T any](ctx context.Context, s Store, key string) (T, Entry, error) {
	var v T
	e, err := s.Get(ctx, key)
	if err != nil {
		return v, e, err
	}
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return v, e, err
	}
	return v, e, nil
}
