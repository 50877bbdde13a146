// Package app defines the application layer "ports" (interfaces) the core
// use-cases depend upon, hexagonal style: this package declares what the
// core needs, adapter packages (JSON/SQLite store backends, the CLI edge)
// provide the implementations. No I/O, logging, or pixel geometry lives
// here.
package app

import (
	"context"
	"time"

	"github.com/keyfob/keyfob/internal/domain"
)

// Clock abstracts time to enable deterministic testing of code windows.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
}

// AccountStore is the persistence port for the credential collection. The
// collection is reloaded from persisted state on every display cycle
// rather than cached in-process, so a Load after a concurrent edit never
// serves stale secrets. Loads degrade to an empty collection; saves and
// mutations surface their errors.
type AccountStore interface {
	Load(ctx context.Context) []domain.Account
	Add(ctx context.Context, account domain.Account, overwrite bool) error
	Remove(ctx context.Context, name string) error
	Find(ctx context.Context, name string) (domain.Account, error)
}
