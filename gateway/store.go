// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gateway

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by a Store when no session exists for the
// given id.
var ErrSessionNotFound = errors.New("session not found")

// Store is a server-side session store, one entry per browser session.
//
// Get returns a private copy of the stored session: mutating the returned
// Session has no effect until it's written back with Set, which replaces the
// stored entry in one step.  Reads and writes are not transactional across
// operations: two concurrent requests in the same session can interleave
// Get/Set and the last write wins.
type Store interface {
	// Get returns a copy of the session with the given id, or
	// ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores the session under the given id, replacing any existing
	// entry wholesale.
	Set(ctx context.Context, id string, s *Session) error

	// Destroy removes the session with the given id.  Destroying a session
	// that doesn't exist is not an error.
	Destroy(ctx context.Context, id string) error
}
