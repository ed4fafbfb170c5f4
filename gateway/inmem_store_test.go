// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/authgate/oidc"
)

func TestInmemStore_GetSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s := NewInmemStore(0)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(err, ErrSessionNotFound)

	_, err = s.Get(ctx, "")
	assert.ErrorIs(err, ErrSessionNotFound)

	sess := &Session{
		ID:     "s1",
		Tokens: &oidc.Token{AccessToken: "at", RefreshToken: "rt"},
		UserInfo: &User{
			Sub: "user-42",
		},
	}
	require.NoError(s.Set(ctx, sess.ID, sess))

	got, err := s.Get(ctx, "s1")
	require.NoError(err)
	assert.Equal("s1", got.ID)
	assert.Equal("at", got.Tokens.AccessToken)
	assert.Equal("user-42", got.UserInfo.Sub)
	assert.Equal(1, s.Len())
}

func TestInmemStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s := NewInmemStore(0)

	require.NoError(s.Set(ctx, "s1", &Session{ID: "s1"}))

	first, err := s.Get(ctx, "s1")
	require.NoError(err)
	first.Tokens = &oidc.Token{AccessToken: "injected"}
	first.State = "st_pending"

	// mutations on a Get copy must stay invisible until a Set
	second, err := s.Get(ctx, "s1")
	require.NoError(err)
	assert.Nil(second.Tokens)
	assert.Empty(second.State)

	require.NoError(s.Set(ctx, "s1", first))
	third, err := s.Get(ctx, "s1")
	require.NoError(err)
	assert.Equal("injected", third.Tokens.AccessToken)
}

func TestInmemStore_SetClones(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s := NewInmemStore(0)

	sess := &Session{ID: "s1", Tokens: &oidc.Token{AccessToken: "at"}}
	require.NoError(s.Set(ctx, "s1", sess))
	sess.Tokens.AccessToken = "mutated-after-set"

	got, err := s.Get(ctx, "s1")
	require.NoError(err)
	assert.Equal("at", got.Tokens.AccessToken)
}

func TestInmemStore_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s := NewInmemStore(1 * time.Millisecond)

	require.NoError(s.Set(ctx, "s1", &Session{ID: "s1"}))
	time.Sleep(5 * time.Millisecond)

	_, err := s.Get(ctx, "s1")
	assert.ErrorIs(err, ErrSessionNotFound)
	assert.Equal(0, s.Len())
}

func TestInmemStore_Destroy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	s := NewInmemStore(0)

	require.NoError(s.Set(ctx, "s1", &Session{ID: "s1"}))
	require.NoError(s.Destroy(ctx, "s1"))
	_, err := s.Get(ctx, "s1")
	assert.ErrorIs(err, ErrSessionNotFound)

	// destroying a missing session is a no-op
	assert.NoError(s.Destroy(ctx, "s1"))
	assert.NoError(s.Destroy(ctx, "never-existed"))
}
