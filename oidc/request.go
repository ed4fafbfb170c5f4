// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"time"
)

// Request represents one OIDC authentication attempt for a user.  It holds
// the single-use state and nonce for that attempt, which are used throughout
// the flow to prevent CSRF and replay attacks (see the oidc spec for
// specifics), along with the attempt's expiration.  The State() is passed to
// the provider and must be returned unchanged on the callback; the Nonce() is
// bound into the id_token by the provider.
type Request struct {
	// state is a unique identifier and an opaque value used to maintain
	// state between the authorization request and the callback
	state string

	// nonce is a unique value used to associate the attempt with the
	// id_token the provider issues for it
	nonce string

	// expiration is the expiration time of the attempt
	expiration time.Time

	// redirectURL is the relying party callback URL for this attempt
	redirectURL string

	// nowFunc is an optional function for determining the current time,
	// used when checking expiration
	nowFunc func() time.Time
}

// NewRequest creates a new Request for one authentication attempt.  The state
// and nonce are freshly generated random values and are never reused across
// attempts.  The expireIn bounds how long the attempt may take end to end.
// Supported options: WithNow
func NewRequest(expireIn time.Duration, redirectURL string, opt ...Option) (*Request, error) {
	const op = "oidc.NewRequest"
	opts := getReqOpts(opt...)
	if expireIn <= 0 {
		return nil, fmt.Errorf("%s: expireIn not greater than zero: %w", op, ErrInvalidParameter)
	}
	if redirectURL == "" {
		return nil, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
	}
	nonce, err := NewID(WithPrefix("n"))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a request's nonce: %w", op, err)
	}
	state, err := NewID(WithPrefix("st"))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a request's state: %w", op, err)
	}
	return &Request{
		state:       state,
		nonce:       nonce,
		expiration:  time.Now().Add(expireIn),
		redirectURL: redirectURL,
		nowFunc:     opts.withNowFunc,
	}, nil
}

// RestoreRequest rebuilds a Request from state and nonce values that were
// generated by NewRequest and persisted (a server-side session, typically)
// while the user completed the round trip to the provider.
// Supported options: WithNow
func RestoreRequest(state, nonce string, expiration time.Time, redirectURL string, opt ...Option) (*Request, error) {
	const op = "oidc.RestoreRequest"
	opts := getReqOpts(opt...)
	if state == "" {
		return nil, fmt.Errorf("%s: state is empty: %w", op, ErrInvalidParameter)
	}
	if nonce == "" {
		return nil, fmt.Errorf("%s: nonce is empty: %w", op, ErrInvalidParameter)
	}
	if state == nonce {
		return nil, fmt.Errorf("%s: state and nonce cannot be equal: %w", op, ErrInvalidParameter)
	}
	if redirectURL == "" {
		return nil, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
	}
	return &Request{
		state:       state,
		nonce:       nonce,
		expiration:  expiration,
		redirectURL: redirectURL,
		nowFunc:     opts.withNowFunc,
	}, nil
}

// State returns the request's single-use state.
func (r *Request) State() string { return r.state }

// Nonce returns the request's single-use nonce.
func (r *Request) Nonce() string { return r.nonce }

// RedirectURL returns the request's callback URL.
func (r *Request) RedirectURL() string { return r.redirectURL }

// Expiration returns the request's expiration time, suitable for persisting
// alongside the state and nonce and later passing to RestoreRequest.
func (r *Request) Expiration() time.Time { return r.expiration }

// DefaultRequestExpirySkew defines a default time skew when checking a
// Request's expiration.
const DefaultRequestExpirySkew = 1 * time.Second

// IsExpired returns true if the request has expired. Supports the
// WithExpirySkew option and if none is provided it will use the
// DefaultRequestExpirySkew.
func (r *Request) IsExpired(opt ...Option) bool {
	opts := getReqOpts(opt...)
	return r.expiration.Before(r.now().Add(opts.withExpirySkew))
}

func (r *Request) now() time.Time {
	if r.nowFunc != nil {
		return r.nowFunc()
	}
	return time.Now()
}

// reqOptions is the set of available options for Request functions
type reqOptions struct {
	withExpirySkew time.Duration
	withNowFunc    func() time.Time
}

// reqDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func reqDefaults() reqOptions {
	return reqOptions{
		withExpirySkew: DefaultRequestExpirySkew,
	}
}

// getReqOpts gets the request defaults and applies the opt overrides passed
// in.
func getReqOpts(opt ...Option) reqOptions {
	opts := reqDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
