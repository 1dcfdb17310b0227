package viewstate

import (
	"context"
	"encoding/json"
	"errors"
)

// Commit runs an optimistic update against the cached view under key.
//
// apply produces the locally changed view, which is stored before remote is
// called. If remote succeeds, the reconcile function it returns is applied to
// the optimistic view and stored, so the view converges to what the server
// reports. If remote fails, the snapshot taken before apply is restored.
//
// Both follow-up writes reuse the optimistic write's seq, so neither lands if
// a fresh fetch stored a newer view in the meantime.
//
// The returned view is what the key holds afterwards from this caller's
// point of view. When nothing is cached under key, remote still runs and
// Commit returns its error, or ErrMiss when it succeeded.
func Commit[T any](
	ctx context.Context,
	s Store,
	key string,
	apply func(T) (T, error),
	remote func(context.Context) (func(T) T, error),
) (T, error) {
	var before, working T
	e, err := s.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		if _, rerr := remote(ctx); rerr != nil {
			return before, rerr
		}
		return before, ErrMiss
	}
	if err != nil {
		return before, err
	}
	// Two decodes: apply may mutate slices it is handed, the snapshot must not change.
	if err := json.Unmarshal(e.Data, &before); err != nil {
		return before, err
	}
	if err := json.Unmarshal(e.Data, &working); err != nil {
		return before, err
	}

	next, err := apply(working)
	if err != nil {
		return before, err
	}
	seq, err := s.NextSeq(ctx, key)
	if err != nil {
		return before, err
	}
	if _, err := Save(ctx, s, key, seq, next); err != nil {
		return before, err
	}

	reconcile, rerr := remote(ctx)
	if rerr != nil {
		if _, err := Save(ctx, s, key, seq, before); err != nil {
			return before, errors.Join(rerr, err)
		}
		return before, rerr
	}
	if reconcile != nil {
		next = reconcile(next)
		if _, err := Save(ctx, s, key, seq, next); err != nil {
			return next, err
		}
	}
	return next, nil
}
