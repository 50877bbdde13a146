// Package store defines the persistence ports for the account collection
// and the composite store that layers a primary backend over a bundled
// fallback. Adapter packages (jsonfile, sqlite) provide the concrete
// backends; callers outside this package interact with Store only.
package store

import (
	"context"

	"github.com/keyfob/keyfob/internal/domain"
)

// Backend abstracts whole-collection persistence. Load returns accounts in
// display order; Save replaces the persisted collection atomically from the
// caller's point of view. Implementations do no caching: every Load hits
// the underlying resource so callers never observe stale secrets.
type Backend interface {
	Load(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, accounts []domain.Account) error
}
