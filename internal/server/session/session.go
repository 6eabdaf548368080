// Package session stores per-visitor state server side, keyed by an opaque
// identifier carried in a cookie.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// UserIDKey is the attribute holding the authenticated user's surrogate key.
// Its presence is what makes a session authenticated.
const UserIDKey = "user_id"

// Store reads and writes attributes of one visitor's session. Get returns
// shared.ErrNotFound when the attribute is absent.
type Store interface {
	Set(ctx context.Context, sid, key, value string) error
	Get(ctx context.Context, sid, key string) (string, error)
	Unset(ctx context.Context, sid, key string) error
}

// Session is one visitor's view of the store, bound to their identifier.
type Session struct {
	store Store
	sid   string
}

func New(store Store, sid string) *Session {
	return &Session{store: store, sid: sid}
}

func (s *Session) ID() string { return s.sid }

func (s *Session) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.sid, key, value)
}

func (s *Session) Get(ctx context.Context, key string) (string, error) {
	return s.store.Get(ctx, s.sid, key)
}

func (s *Session) Unset(ctx context.Context, key string) error {
	return s.store.Unset(ctx, s.sid, key)
}

// NewSessionID draws an unguessable session identifier.
func NewSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random source unavailable: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
