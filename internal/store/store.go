// Package store store.go contains the composite account store with its
// load-fallback chain and duplicate-name policy.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/keyfob/keyfob/internal/domain"
)

// Sentinel store errors surfaced to callers.
var (
	// ErrDuplicate reports an add whose name already exists; the caller
	// must decide overwrite vs abort, the store never merges silently.
	ErrDuplicate = errors.New("account name already exists")

	// ErrNotFound reports a remove for a name that is not in the store.
	ErrNotFound = errors.New("account not found")
)

// Store composes a primary backend with an optional fallback source.
// Loads degrade gracefully (primary, then fallback, then empty); saves go
// to the primary only and propagate errors, since a failed save is a
// user-actionable condition while a failed load is not.
type Store struct {
	primary  Backend
	fallback Backend
}

// New returns a Store over the given backends. fallback may be nil.
func New(primary, fallback Backend) *Store {
	return &Store{primary: primary, fallback: fallback}
}

// Load returns the persisted accounts, normalized. A primary read or parse
// failure falls back to the secondary resource; if that also fails the
// result is an empty collection. An account-less state is displayable, so
// Load never surfaces I/O errors to the caller.
func (s *Store) Load(ctx context.Context) []domain.Account {
	accounts, err := s.primary.Load(ctx)
	if err != nil && s.fallback != nil {
		accounts, err = s.fallback.Load(ctx)
	}
	if err != nil {
		return nil
	}
	for i := range accounts {
		accounts[i] = accounts[i].Normalize()
	}
	return accounts
}

// Save persists the full collection to the primary backend.
func (s *Store) Save(ctx context.Context, accounts []domain.Account) error {
	if err := s.primary.Save(ctx, accounts); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	return nil
}

// Add inserts account into the persisted collection. An existing account of
// the same name is a conflict: without overwrite the call fails with
// ErrDuplicate, with overwrite the existing entry is replaced in place,
// keeping its display position.
func (s *Store) Add(ctx context.Context, account domain.Account, overwrite bool) error {
	account = account.Normalize()
	accounts := s.Load(ctx)
	for i, existing := range accounts {
		if existing.Name != account.Name {
			continue
		}
		if !overwrite {
			return fmt.Errorf("%w: %q", ErrDuplicate, account.Name)
		}
		accounts[i] = account
		return s.Save(ctx, accounts)
	}
	return s.Save(ctx, append(accounts, account))
}

// Remove deletes the named account, preserving the order of the rest.
func (s *Store) Remove(ctx context.Context, name string) error {
	accounts := s.Load(ctx)
	for i, existing := range accounts {
		if existing.Name == name {
			return s.Save(ctx, append(accounts[:i], accounts[i+1:]...))
		}
	}
	return fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Find returns the named account from the current persisted state.
func (s *Store) Find(ctx context.Context, name string) (domain.Account, error) {
	for _, existing := range s.Load(ctx) {
		if existing.Name == name {
			return existing, nil
		}
	}
	return domain.Account{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}
