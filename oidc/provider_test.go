// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRedirectURL = "https://example.com/callback"

func testProviderAndConfig(t *testing.T, tp *TestProvider, opt ...Option) *Provider {
	t.Helper()
	require := require.New(t)

	tp.SetClientCreds("test-rp", "test-secret")
	tp.SetAllowedRedirectURIs([]string{testRedirectURL})

	opts := append([]Option{
		WithProviderCA(tp.CACert()),
		WithScopes("phone", "openid", "email"),
	}, opt...)
	c, err := NewConfig(tp.Addr(), "test-rp", "test-secret", []Alg{ES256}, testRedirectURL, opts...)
	require.NoError(err)

	p, err := NewProvider(c)
	require.NoError(err)
	t.Cleanup(p.Done)
	return p
}

func TestNewProvider(t *testing.T) {
	t.Parallel()
	t.Run("valid", func(t *testing.T) {
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp)
		require.NotNil(t, p)
	})
	t.Run("nil-config", func(t *testing.T) {
		require := require.New(t)
		_, err := NewProvider(nil)
		require.ErrorIs(err, ErrNilParameter)
	})
	t.Run("discovery-failure", func(t *testing.T) {
		require := require.New(t)
		c, err := NewConfig("http://127.0.0.1:1", "test-rp", "test-secret", []Alg{ES256}, testRedirectURL,
			WithProviderTimeout(1*time.Second))
		require.NoError(err)
		_, err = NewProvider(c)
		require.Error(err)
	})
}

func TestProvider_AuthURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tp := StartTestProvider(t)
	p := testProviderAndConfig(t, tp)

	req, err := NewRequest(1*time.Minute, testRedirectURL)
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		authURL, err := p.AuthURL(ctx, req)
		require.NoError(err)

		u, err := url.Parse(authURL)
		require.NoError(err)
		assert.True(strings.HasPrefix(authURL, tp.Addr()+"/auth"))
		assert.Equal(req.State(), u.Query().Get("state"))
		assert.Equal(req.Nonce(), u.Query().Get("nonce"))
		assert.Equal("phone openid email", u.Query().Get("scope"))
		assert.Equal(testRedirectURL, u.Query().Get("redirect_uri"))
		assert.Equal("code", u.Query().Get("response_type"))
	})
	t.Run("nil-request", func(t *testing.T) {
		require := require.New(t)
		_, err := p.AuthURL(ctx, nil)
		require.ErrorIs(err, ErrNilParameter)
	})
	t.Run("expired-request", func(t *testing.T) {
		require := require.New(t)
		expired, err := NewRequest(1*time.Minute, testRedirectURL,
			WithNow(func() time.Time { return time.Now().Add(2 * time.Minute) }))
		require.NoError(err)
		_, err = p.AuthURL(ctx, expired)
		require.ErrorIs(err, ErrExpiredRequest)
	})
}

func TestProvider_Exchange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp)

		req, err := NewRequest(1*time.Minute, testRedirectURL)
		require.NoError(err)
		tp.SetExpectedAuthCode("code-1234")
		tp.SetExpectedAuthNonce(req.Nonce())
		tp.SetReplyTokens("tok1", "rt1")

		tk, err := p.Exchange(ctx, req, req.State(), "code-1234")
		require.NoError(err)
		assert.Equal("tok1", tk.AccessToken)
		assert.Equal("rt1", tk.RefreshToken)
		assert.NotEmpty(tk.IDToken)
		assert.True(tk.Valid())
	})
	t.Run("state-mismatch", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp)

		req, err := NewRequest(1*time.Minute, testRedirectURL)
		require.NoError(err)
		tp.SetExpectedAuthCode("code-1234")

		_, err = p.Exchange(ctx, req, "st_someone-else", "code-1234")
		require.ErrorIs(err, ErrResponseStateInvalid)
	})
	t.Run("expired-request", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp)

		req, err := NewRequest(1*time.Minute, testRedirectURL,
			WithNow(func() time.Time { return time.Now().Add(2 * time.Minute) }))
		require.NoError(err)

		_, err = p.Exchange(ctx, req, req.State(), "code-1234")
		require.ErrorIs(err, ErrExpiredRequest)
	})
	t.Run("nonce-mismatch", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp)

		req, err := NewRequest(1*time.Minute, testRedirectURL)
		require.NoError(err)
		tp.SetExpectedAuthCode("code-1234")
		tp.SetExpectedAuthNonce("n_someone-else")

		_, err = p.Exchange(ctx, req, req.State(), "code-1234")
		require.ErrorIs(err, ErrInvalidNonce)
	})
	t.Run("missing-id-token", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp)

		req, err := NewRequest(1*time.Minute, testRedirectURL)
		require.NoError(err)
		tp.SetExpectedAuthCode("code-1234")
		tp.SetExpectedAuthNonce(req.Nonce())
		tp.OmitIDTokens()

		_, err = p.Exchange(ctx, req, req.State(), "code-1234")
		require.ErrorIs(err, ErrMissingIDToken)
	})
	t.Run("bad-code", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp)

		req, err := NewRequest(1*time.Minute, testRedirectURL)
		require.NoError(err)
		tp.SetExpectedAuthCode("code-1234")

		_, err = p.Exchange(ctx, req, req.State(), "bad-code")
		require.Error(err)
	})
}

func TestProvider_RefreshToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp)

		tp.SetExpectedRefreshToken("rt1")
		tp.SetReplyTokens("tok2", "rt2")

		tk, err := p.RefreshToken(ctx, "rt1")
		require.NoError(err)
		assert.Equal("tok2", tk.AccessToken)
		assert.Equal("rt2", tk.RefreshToken)
	})
	t.Run("missing-refresh-token", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp)

		_, err := p.RefreshToken(ctx, "")
		require.ErrorIs(err, ErrMissingRefreshToken)
	})
	t.Run("provider-rejects", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp)

		tp.DisableToken()

		_, err := p.RefreshToken(ctx, "rt1")
		require.ErrorIs(err, ErrTokenRefreshFailed)
	})
}

func TestProvider_UserInfo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp)

		var claims map[string]interface{}
		err := p.UserInfo(ctx, "tok1", &claims)
		require.NoError(err)
		assert.Equal("user-42", claims["sub"])
		assert.Equal("tok1", tp.LastUserinfoToken())
	})
	t.Run("missing-access-token", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp)

		var claims map[string]interface{}
		err := p.UserInfo(ctx, "", &claims)
		require.ErrorIs(err, ErrMissingAccessToken)
	})
	t.Run("provider-failure", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		tp.DisableUserInfo()
		p := testProviderAndConfig(t, tp)

		var claims map[string]interface{}
		err := p.UserInfo(ctx, "tok1", &claims)
		require.ErrorIs(err, ErrUserInfoFailed)
	})
}

func TestProvider_LogoutURL(t *testing.T) {
	t.Parallel()

	t.Run("discovery-end-session", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		tp.EnableEndSession()
		p := testProviderAndConfig(t, tp)

		got, err := p.LogoutURL("https://example.com/")
		require.NoError(err)
		u, err := url.Parse(got)
		require.NoError(err)
		assert.True(strings.HasPrefix(got, tp.Addr()+"/logout"))
		assert.Equal("test-rp", u.Query().Get("client_id"))
		assert.Equal("https://example.com/", u.Query().Get("post_logout_redirect_uri"))
	})
	t.Run("configured-hosted-logout", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp, WithLogoutEndpoint("https://auth.example.com/logout"))

		got, err := p.LogoutURL("https://example.com/")
		require.NoError(err)
		u, err := url.Parse(got)
		require.NoError(err)
		assert.True(strings.HasPrefix(got, "https://auth.example.com/logout"))
		assert.Equal("test-rp", u.Query().Get("client_id"))
		assert.Equal("https://example.com/", u.Query().Get("logout_uri"))
	})
	t.Run("no-logout-endpoint", func(t *testing.T) {
		require := require.New(t)
		tp := StartTestProvider(t)
		p := testProviderAndConfig(t, tp)

		_, err := p.LogoutURL("https://example.com/")
		require.ErrorIs(err, ErrNotFound)
	})
}
