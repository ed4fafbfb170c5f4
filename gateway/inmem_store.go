// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultSessionTTL is the default lifetime for stored sessions.
const DefaultSessionTTL = 24 * time.Hour

// InmemStore is an in-memory Store suitable for a single-process gateway.
// Entries expire TTL after their last write; expired entries are reaped
// lazily on access.
type InmemStore struct {
	mu       sync.RWMutex
	sessions map[string]*inmemEntry
	ttl      time.Duration
}

type inmemEntry struct {
	session   *Session
	expiresAt time.Time
}

// ensure that InmemStore implements the Store interface
var _ Store = (*InmemStore)(nil)

// NewInmemStore creates an in-memory session store.  A ttl of zero means
// DefaultSessionTTL.
func NewInmemStore(ttl time.Duration) *InmemStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &InmemStore{
		sessions: map[string]*inmemEntry{},
		ttl:      ttl,
	}
}

// Get returns a copy of the session with the given id, or
// ErrSessionNotFound.
func (s *InmemStore) Get(ctx context.Context, id string) (*Session, error) {
	const op = "InmemStore.Get"
	if id == "" {
		return nil, fmt.Errorf("%s: missing session id: %w", op, ErrSessionNotFound)
	}
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, id, ErrSessionNotFound)
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("%s: %q: %w", op, id, ErrSessionNotFound)
	}
	return entry.session.clone(), nil
}

// Set stores a copy of the session under the given id, replacing any
// existing entry and resetting its TTL.
func (s *InmemStore) Set(ctx context.Context, id string, sess *Session) error {
	const op = "InmemStore.Set"
	if id == "" {
		return fmt.Errorf("%s: missing session id", op)
	}
	if sess == nil {
		return fmt.Errorf("%s: missing session", op)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &inmemEntry{
		session:   sess.clone(),
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

// Destroy removes the session with the given id; destroying a missing
// session is a no-op.
func (s *InmemStore) Destroy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions, including any not yet reaped.
func (s *InmemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
