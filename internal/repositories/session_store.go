package repositories

import (
	"context"
	"time"
)

// SessionStore keeps server-side login sessions keyed by an opaque id.
// Get returns database.ErrNotFound for unknown or expired sessions.
type SessionStore interface {
	Create(ctx context.Context, userID uint) (string, error)
	Get(ctx context.Context, sessionID string) (uint, error)
	Delete(ctx context.Context, sessionID string) error
}

// DefaultSessionTTL matches a two week browser session.
const DefaultSessionTTL = 14 * 24 * time.Hour
