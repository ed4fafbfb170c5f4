// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hashicorp/authgate/oidc"
)

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		header    string
		want      string
		wantFound bool
	}{
		{
			name:      "valid",
			header:    "Bearer abc123",
			want:      "abc123",
			wantFound: true,
		},
		{
			name:   "empty-header",
			header: "",
		},
		{
			name:   "missing-token",
			header: "Bearer",
		},
		{
			name:   "missing-token-trailing-space",
			header: "Bearer ",
		},
		{
			name:   "wrong-scheme",
			header: "Basic abc123",
		},
		{
			name:   "lowercase-scheme",
			header: "bearer abc123",
		},
		{
			name:   "extra-parts",
			header: "Bearer abc 123",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)
			got, found := ExtractBearerToken(tt.header)
			assert.Equal(tt.wantFound, found)
			assert.Equal(tt.want, got)
		})
	}
}

func TestInjectBearerToken(t *testing.T) {
	t.Parallel()
	t.Run("injects-when-no-token", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		sess := &Session{ID: "s1"}
		injectBearerToken(sess, "Bearer abc123")
		assert.Equal("abc123", sess.AccessToken())
		assert.Empty(sess.Tokens.RefreshToken)
	})
	t.Run("session-token-wins", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		sess := &Session{ID: "s1", Tokens: &oidc.Token{AccessToken: "session-token"}}
		injectBearerToken(sess, "Bearer abc123")
		assert.Equal("session-token", sess.AccessToken())
	})
	t.Run("malformed-header-ignored", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		sess := &Session{ID: "s1"}
		injectBearerToken(sess, "bearer abc123")
		assert.Empty(sess.AccessToken())
	})
	t.Run("nil-session", func(t *testing.T) {
		t.Parallel()
		injectBearerToken(nil, "Bearer abc123")
	})
}
