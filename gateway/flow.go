// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/authgate/oidc"
)

// DefaultAttemptExpiry bounds a login attempt from initiation to callback.
const DefaultAttemptExpiry = 10 * time.Minute

// Flow orchestrates the gateway's session-bound authentication operations
// against an injected provider client and session store.  The provider is
// fully discovered before a Flow can be constructed, so a non-nil Flow is
// always ready to accept requests.
type Flow struct {
	provider      *oidc.Provider
	store         Store
	appURL        string
	redirectURL   string
	attemptExpiry time.Duration
	logger        hclog.Logger
}

// NewFlow creates a Flow.  appURL is the gateway's externally visible base
// URL (used for post-logout redirects); redirectURL is the registered
// provider callback URL.
// Supported options: WithAttemptExpiry, WithFlowLogger
func NewFlow(provider *oidc.Provider, store Store, appURL, redirectURL string, opt ...Option) (*Flow, error) {
	const op = "gateway.NewFlow"
	if provider == nil {
		return nil, fmt.Errorf("%s: provider is nil: %w", op, oidc.ErrNilParameter)
	}
	if store == nil {
		return nil, fmt.Errorf("%s: session store is nil: %w", op, oidc.ErrNilParameter)
	}
	if appURL == "" {
		return nil, fmt.Errorf("%s: app URL is empty: %w", op, oidc.ErrInvalidParameter)
	}
	if redirectURL == "" {
		return nil, fmt.Errorf("%s: redirect URL is empty: %w", op, oidc.ErrInvalidParameter)
	}
	opts := getFlowOpts(opt...)
	return &Flow{
		provider:      provider,
		store:         store,
		appURL:        appURL,
		redirectURL:   redirectURL,
		attemptExpiry: opts.withAttemptExpiry,
		logger:        opts.withLogger,
	}, nil
}

// LoginResult carries the outcome of a completed login or refresh.
type LoginResult struct {
	Tokens   *oidc.Token `json:"tokens"`
	UserInfo *User       `json:"user"`
}

// BeginLogin starts an authentication attempt for the session: it generates
// a fresh single-use state and nonce, persists them, and returns the
// provider authorization URL to redirect the user to.
//
// Any state/nonce from a prior unfinished attempt in the same session is
// overwritten unconditionally; concurrent logins in one session race and the
// last write wins.
func (f *Flow) BeginLogin(ctx context.Context, sess *Session) (string, error) {
	const op = "Flow.BeginLogin"
	if sess == nil {
		return "", fmt.Errorf("%s: session is nil: %w", op, oidc.ErrNilParameter)
	}
	req, err := oidc.NewRequest(f.attemptExpiry, f.redirectURL)
	if err != nil {
		return "", fmt.Errorf("%s: unable to create request: %w", op, err)
	}

	authURL, err := f.provider.AuthURL(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: unable to build authorization URL: %w", op, err)
	}

	sess.State = req.State()
	sess.Nonce = req.Nonce()
	sess.AuthExpiry = req.Expiration()
	if err := f.store.Set(ctx, sess.ID, sess); err != nil {
		return "", fmt.Errorf("%s: unable to persist session: %w", op, err)
	}

	f.logger.Info("initiating login flow", "session", sess.ID)
	return authURL, nil
}

// CompleteLogin finishes an authentication attempt: it exchanges the
// authorization code for a token set (the provider client rejects a state
// mismatch and verifies the id_token's nonce), fetches the user's claims
// with the new access token, and persists tokens and claims together in one
// session write.  On any failure nothing is persisted.
func (f *Flow) CompleteLogin(ctx context.Context, sess *Session, authorizationState, authorizationCode string) (*LoginResult, error) {
	const op = "Flow.CompleteLogin"
	if sess == nil {
		return nil, fmt.Errorf("%s: session is nil: %w", op, oidc.ErrNilParameter)
	}
	req, err := oidc.RestoreRequest(sess.State, sess.Nonce, sess.AuthExpiry, f.redirectURL)
	if err != nil {
		return nil, fmt.Errorf("%s: session has no pending login attempt: %w", op, err)
	}

	tokens, err := f.provider.Exchange(ctx, req, authorizationState, authorizationCode)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange authorization code: %w", op, err)
	}

	var userInfo User
	if err := f.provider.UserInfo(ctx, tokens.AccessToken, &userInfo); err != nil {
		return nil, fmt.Errorf("%s: unable to fetch user info: %w", op, err)
	}

	// state and nonce are single-use; consume them along with storing the
	// attempt's outcome
	sess.State = ""
	sess.Nonce = ""
	sess.AuthExpiry = time.Time{}
	sess.Tokens = tokens
	sess.UserInfo = &userInfo
	if err := f.store.Set(ctx, sess.ID, sess); err != nil {
		return nil, fmt.Errorf("%s: unable to persist session: %w", op, err)
	}

	f.logger.Info("login completed", "session", sess.ID, "sub", userInfo.Sub)
	return &LoginResult{Tokens: tokens, UserInfo: &userInfo}, nil
}

// Refresh replaces the session's token set wholesale using its refresh
// token, refreshes the stored user claims with the new access token, and
// persists both together.  The session's current token view may have been
// injected by the bearer fallback; a refresh still requires a refresh token.
func (f *Flow) Refresh(ctx context.Context, sess *Session) (*LoginResult, error) {
	const op = "Flow.Refresh"
	if sess == nil {
		return nil, fmt.Errorf("%s: session is nil: %w", op, oidc.ErrNilParameter)
	}
	var refreshToken string
	if sess.Tokens != nil {
		refreshToken = sess.Tokens.RefreshToken
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("%s: no refresh token in session: %w", op, oidc.ErrMissingRefreshToken)
	}

	tokens, err := f.provider.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to refresh token: %w", op, err)
	}

	var userInfo User
	if err := f.provider.UserInfo(ctx, tokens.AccessToken, &userInfo); err != nil {
		return nil, fmt.Errorf("%s: unable to fetch user info: %w", op, err)
	}

	sess.Tokens = tokens
	sess.UserInfo = &userInfo
	if err := f.store.Set(ctx, sess.ID, sess); err != nil {
		return nil, fmt.Errorf("%s: unable to persist session: %w", op, err)
	}

	f.logger.Info("token refresh successful", "session", sess.ID)
	return &LoginResult{Tokens: tokens, UserInfo: &userInfo}, nil
}

// UserInfo fetches the provider's claims for the session's effective access
// token (session-stored or bearer-injected).  It never mutates the session
// and performs no caching; every call is a live round trip.
func (f *Flow) UserInfo(ctx context.Context, sess *Session) (map[string]interface{}, error) {
	const op = "Flow.UserInfo"
	if sess == nil {
		return nil, fmt.Errorf("%s: session is nil: %w", op, oidc.ErrNilParameter)
	}
	var claims map[string]interface{}
	if err := f.provider.UserInfo(ctx, sess.AccessToken(), &claims); err != nil {
		return nil, fmt.Errorf("%s: unable to fetch user info: %w", op, err)
	}
	return claims, nil
}

// Logout destroys the session (a no-op when it's already gone) and returns
// the URL to send the user to.  When the provider exposes a logout endpoint
// the user is sent there with the gateway root as the post-logout redirect;
// otherwise they're sent straight back to the gateway root.
func (f *Flow) Logout(ctx context.Context, sessionID string) string {
	const op = "Flow.Logout"
	if err := f.store.Destroy(ctx, sessionID); err != nil {
		f.logger.Error("unable to destroy session", "op", op, "session", sessionID, "err", err)
	}
	logoutURL, err := f.provider.LogoutURL(f.appURL + "/")
	if err != nil {
		f.logger.Warn("provider has no logout endpoint, redirecting to app root", "op", op)
		return f.appURL + "/"
	}
	return logoutURL
}

// Option defines a common functional options type for the gateway package.
type Option func(interface{})

// flowOptions is the set of available options for Flow functions
type flowOptions struct {
	withAttemptExpiry time.Duration
	withLogger        hclog.Logger
}

// flowDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func flowDefaults() flowOptions {
	return flowOptions{
		withAttemptExpiry: DefaultAttemptExpiry,
		withLogger:        hclog.NewNullLogger(),
	}
}

// getFlowOpts gets the flow defaults and applies the opt overrides passed
// in.
func getFlowOpts(opt ...Option) flowOptions {
	opts := flowDefaults()
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// WithAttemptExpiry provides an optional bound for a login attempt from
// initiation to callback.
func WithAttemptExpiry(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*flowOptions); ok {
			o.withAttemptExpiry = d
		}
	}
}

// WithFlowLogger provides an optional logger.
func WithFlowLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*flowOptions); ok {
			o.withLogger = l
		}
	}
}
