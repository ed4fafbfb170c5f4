// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"

	"github.com/hashicorp/authgate/oidc/internal/strutils"
)

// Provider provides integration with a provider using the typical 3-legged
// OIDC authorization code flow.
type Provider struct {
	config   *Config
	provider *oidc.Provider
	client   *http.Client
	logger   hclog.Logger

	mu sync.Mutex

	// backgroundCtx is the context used by the provider for background
	// activities like refreshing JWKs key sets
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities running
	// in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

// NewProvider creates and initializes a Provider for the OIDC authorization
// code flow.  Initializing the provider includes making an http request to
// the provider's issuer for discovery, so a successfully constructed Provider
// is ready to serve requests; callers must not accept traffic before this
// returns.
//
// See Provider.Done() which must be called to release provider resources.
func NewProvider(c *Config) (*Provider, error) {
	const op = "oidc.NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	// initializing the Provider with its background ctx/cancel will allow us
	// to use p.Done() to release any resources when returning errors from
	// this function.
	p := &Provider{
		config:              c,
		logger:              c.logger(),
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}

	client, err := c.HTTPClient()
	if err != nil {
		p.Done() // release the backgroundCtxCancel resources
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	p.client = client

	discoveryCtx, discoveryCancel := context.WithTimeout(p.backgroundCtx, c.Timeout())
	defer discoveryCancel()
	provider, err := oidc.NewProvider(HTTPClientContext(discoveryCtx, client), c.Issuer) // makes http req to issuer for discovery
	if err != nil {
		p.Done() // release the backgroundCtxCancel resources
		return nil, fmt.Errorf("%s: unable to discover provider: %w", op, err)
	}
	p.provider = provider
	p.logger.Info("discovered provider", "issuer", c.Issuer)

	return p, nil
}

// Done with the provider's background resources and must be called for every
// Provider created
func (p *Provider) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backgroundCtxCancel != nil {
		p.backgroundCtxCancel()
		p.backgroundCtxCancel = nil
	}
}

// AuthURL will generate a URL the caller can use to kick off an OIDC
// authorization code flow with the provider, parameterized with the Request's
// state and nonce and the configured scopes.
func (p *Provider) AuthURL(ctx context.Context, req *Request) (string, error) {
	const op = "Provider.AuthURL"
	if req == nil {
		return "", fmt.Errorf("%s: request is nil: %w", op, ErrNilParameter)
	}
	if req.State() == "" || req.Nonce() == "" {
		return "", fmt.Errorf("%s: request state or nonce is empty: %w", op, ErrInvalidParameter)
	}
	if req.State() == req.Nonce() {
		return "", fmt.Errorf("%s: request state and nonce cannot be equal: %w", op, ErrInvalidParameter)
	}
	if req.IsExpired() {
		return "", fmt.Errorf("%s: request is expired: %w", op, ErrExpiredRequest)
	}
	oauth2Config := p.oauth2Config(req.RedirectURL())
	return oauth2Config.AuthCodeURL(req.State(), oidc.Nonce(req.Nonce())), nil
}

// Exchange will request a token from the oidc token endpoint, using the
// authorizationCode and authorizationState it received in an earlier
// successful oidc authentication response.
//
// It will also validate the authorizationState it receives against the
// existing Request for the user's oidc authentication flow, and verify the
// returned id_token (signature, nonce, audiences).
//
// On success, the Token returned will include the access_token and id_token,
// and, depending on the provider, a refresh_token.
func (p *Provider) Exchange(ctx context.Context, req *Request, authorizationState string, authorizationCode string) (*Token, error) {
	const op = "Provider.Exchange"
	if req == nil {
		return nil, fmt.Errorf("%s: request is nil: %w", op, ErrNilParameter)
	}
	if req.State() != authorizationState {
		return nil, fmt.Errorf("%s: authentication state and authorization state are not equal: %w", op, ErrResponseStateInvalid)
	}
	if req.IsExpired() {
		return nil, fmt.Errorf("%s: authentication request is expired: %w", op, ErrExpiredRequest)
	}

	callCtx, cancel := p.callCtx(ctx)
	defer cancel()

	oauth2Config := p.oauth2Config(req.RedirectURL())
	oauth2Token, err := oauth2Config.Exchange(callCtx, authorizationCode)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange auth code with provider: %w", op, err)
	}

	idToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("%s: id_token is missing from auth code exchange: %w", op, ErrMissingIDToken)
	}
	if err := p.VerifyIDToken(callCtx, idToken, req.Nonce()); err != nil {
		return nil, fmt.Errorf("%s: id_token failed verification: %w", op, err)
	}
	return &Token{
		AccessToken:  oauth2Token.AccessToken,
		RefreshToken: oauth2Token.RefreshToken,
		IDToken:      idToken,
		Expiry:       oauth2Token.Expiry,
	}, nil
}

// RefreshToken uses the refresh_token grant to obtain a replacement Token
// from the provider.  The returned Token fully supersedes the one it was
// derived from; no merging of any kind is performed.
func (p *Provider) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	const op = "Provider.RefreshToken"
	if refreshToken == "" {
		return nil, fmt.Errorf("%s: refresh token is empty: %w", op, ErrMissingRefreshToken)
	}

	callCtx, cancel := p.callCtx(ctx)
	defer cancel()

	oauth2Config := p.oauth2Config(p.config.RedirectURL)
	tokenSource := oauth2Config.TokenSource(callCtx, &oauth2.Token{
		RefreshToken: refreshToken,
	})
	oauth2Token, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to refresh token with provider: %v: %w", op, err, ErrTokenRefreshFailed)
	}
	t := &Token{
		AccessToken:  oauth2Token.AccessToken,
		RefreshToken: oauth2Token.RefreshToken,
		Expiry:       oauth2Token.Expiry,
	}
	if idToken, ok := oauth2Token.Extra("id_token").(string); ok {
		t.IDToken = idToken
	}
	return t, nil
}

// UserInfo gets the userinfo claims from the provider using the accessToken
// and decodes them into claims.  Every call is a live round trip; nothing is
// cached.
func (p *Provider) UserInfo(ctx context.Context, accessToken string, claims interface{}) error {
	const op = "Provider.UserInfo"
	if accessToken == "" {
		return fmt.Errorf("%s: access token is empty: %w", op, ErrMissingAccessToken)
	}
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}

	callCtx, cancel := p.callCtx(ctx)
	defer cancel()

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
	})
	userinfo, err := p.provider.UserInfo(callCtx, tokenSource)
	if err != nil {
		return fmt.Errorf("%s: provider UserInfo request failed: %v: %w", op, err, ErrUserInfoFailed)
	}
	if err := userinfo.Claims(claims); err != nil {
		return fmt.Errorf("%s: failed to decode UserInfo claims: %w", op, err)
	}
	return nil
}

// VerifyIDToken will verify the inbound id_token.  It verifies it's been
// signed by the provider, it validates the nonce, and performs any additional
// checks depending on the provider's config (audiences, etc).
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation
func (p *Provider) VerifyIDToken(ctx context.Context, idToken string, nonce string) error {
	const op = "Provider.VerifyIDToken"
	if idToken == "" {
		return fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	if nonce == "" {
		return fmt.Errorf("%s: nonce is empty: %w", op, ErrInvalidParameter)
	}
	algs := make([]string, 0, len(p.config.SupportedSigningAlgs))
	for _, a := range p.config.SupportedSigningAlgs {
		algs = append(algs, string(a))
	}
	verifier := p.provider.Verifier(&oidc.Config{
		SupportedSigningAlgs: algs,
		ClientID:             p.config.ClientID,
	})

	verified, err := verifier.Verify(HTTPClientContext(ctx, p.client), idToken)
	if err != nil {
		return fmt.Errorf("%s: invalid id_token signature: %v: %w", op, err, ErrInvalidSignature)
	}

	if verified.Nonce != nonce {
		return fmt.Errorf("%s: invalid id_token nonce: %w", op, ErrInvalidNonce)
	}

	if len(p.config.Audiences) > 0 {
		found := false
		for _, v := range p.config.Audiences {
			if strutils.StrListContains(verified.Audience, v) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s: invalid id_token audiences: %w", op, ErrInvalidAudience)
		}
	}
	return nil
}

// LogoutURL builds the provider URL to send a user to in order to end their
// provider session, with postLogoutRedirect as the URL the provider should
// send them back to.  It prefers the end_session_endpoint published in the
// provider's discovery document; hosted-UI style providers which don't
// publish one can supply a logout endpoint via WithLogoutEndpoint, which is
// parameterized with client_id and logout_uri.
func (p *Provider) LogoutURL(postLogoutRedirect string) (string, error) {
	const op = "Provider.LogoutURL"
	var discovered struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	// discovery claims were fetched at construction; no round trip here
	_ = p.provider.Claims(&discovered)

	switch {
	case discovered.EndSessionEndpoint != "":
		v := url.Values{}
		v.Set("client_id", p.config.ClientID)
		if postLogoutRedirect != "" {
			v.Set("post_logout_redirect_uri", postLogoutRedirect)
		}
		return fmt.Sprintf("%s?%s", discovered.EndSessionEndpoint, v.Encode()), nil
	case p.config.LogoutEndpoint != "":
		v := url.Values{}
		v.Set("client_id", p.config.ClientID)
		if postLogoutRedirect != "" {
			v.Set("logout_uri", postLogoutRedirect)
		}
		return fmt.Sprintf("%s?%s", p.config.LogoutEndpoint, v.Encode()), nil
	default:
		return "", fmt.Errorf("%s: provider has no logout endpoint: %w", op, ErrNotFound)
	}
}

// oauth2Config assembles the OpenID Connect aware OAuth2 client config, with
// the "openid" scope always included.
func (p *Provider) oauth2Config(redirectURL string) *oauth2.Config {
	scopes := p.config.Scopes
	if !strutils.StrListContains(scopes, oidc.ScopeOpenID) {
		scopes = append([]string{oidc.ScopeOpenID}, scopes...)
	}
	return &oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: string(p.config.ClientSecret),
		RedirectURL:  redirectURL,
		Endpoint:     p.provider.Endpoint(),
		Scopes:       scopes,
	}
}

// callCtx bounds an outbound provider call with the configured timeout and
// attaches the provider's http client.
func (p *Provider) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout())
	return HTTPClientContext(ctx, p.client), cancel
}

// HTTPClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key
// used by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so
// the returned context works for those packages as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}

// logger returns the configured logger or a null logger.
func (c *Config) logger() hclog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return hclog.NewNullLogger()
}
