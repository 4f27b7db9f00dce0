package auth

import (
	"context"
	"time"
)

// Store bundles the persistence surfaces the auth service needs. The service
// never opens connections itself; a Store is injected at construction so
// tests can swap in stubs and the binary can choose Postgres or memory.
type Store interface {
	Accounts() AccountStore
	Sessions() SessionStore
}

// AccountStore is the credential store. Implementations must enforce the
// one-account-per-email invariant at the storage layer, with a unique index
// or equivalent, not by check-then-insert.
type AccountStore interface {
	Create(ctx context.Context, a *Account) error
	Find(ctx context.Context, id string) (*Account, error)

	// FindByEmail resolves a normalized email to exactly one account.
	// Zero matches return ErrAccountNotFound. More than one match is an
	// integrity violation and returns an error wrapping ErrStoreFault;
	// implementations must not silently pick a row.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	List(ctx context.Context) ([]*Account, error)
	Update(ctx context.Context, a *Account) error
	Delete(ctx context.Context, id string) error
}

// SessionStore persists issued sessions keyed by session ID.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Find(ctx context.Context, id string) (*Session, error)

	// Revoke marks a single session invalid. Revoking an already revoked
	// session is a no-op, not an error.
	Revoke(ctx context.Context, id string, at time.Time) error

	// RevokeBySubject invalidates every live session belonging to the
	// subject. Called on role or scope changes, password changes and
	// account deletion.
	RevokeBySubject(ctx context.Context, subjectID string, at time.Time) error

	// PurgeExpired deletes rows whose horizon passed before the cutoff and
	// reports how many were removed.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
