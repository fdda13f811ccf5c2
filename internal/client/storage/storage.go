// Package storage persists the client session across process restarts.
package storage

import (
	"context"

	"github.com/spec-kit/storefront-service/internal/domain"
)

// PersistedSession is the durable copy of the client's credentials plus a
// cached account snapshot shown before the first round trip completes.
type PersistedSession struct {
	AccessToken  string
	RefreshToken string
	Account      domain.PublicAccount
}

// Store is the durable key-value persistence behind the session manager.
// Save must be atomic: either the whole session lands or nothing changes.
type Store interface {
	Load(ctx context.Context) (*PersistedSession, error)
	Save(ctx context.Context, session *PersistedSession) error
	Clear(ctx context.Context) error
}
