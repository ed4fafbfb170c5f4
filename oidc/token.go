// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"time"
)

// DefaultTokenExpirySkew is the default time skew used when checking a
// Token's expiration.
const DefaultTokenExpirySkew = 10 * time.Second

// Token is the bundle of tokens issued by a provider from a successful code
// exchange or refresh.  A Token is never mutated; a refresh produces a new
// Token which supersedes the old one wholesale.
type Token struct {
	// AccessToken is the provider-issued access_token
	AccessToken string `json:"access_token"`

	// RefreshToken is an optional refresh_token.  Not all providers issue
	// one for every grant.
	RefreshToken string `json:"refresh_token,omitempty"`

	// IDToken is the raw id_token issued as part of an authorization code
	// exchange.  It's empty for tokens produced by a refresh when the
	// provider omits it.
	IDToken string `json:"id_token,omitempty"`

	// Expiry is the access_token's expiration, when known.
	Expiry time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token's access_token is expired, applying an
// expiry skew.  A token with no known expiry is never considered expired.
// Supported options: WithExpirySkew
func (t *Token) Expired(opt ...Option) bool {
	opts := getTokenOpts(opt...)
	if t == nil {
		return true
	}
	if t.Expiry.IsZero() {
		return false
	}
	return t.Expiry.Round(0).Before(time.Now().Add(opts.withExpirySkew))
}

// Valid reports whether the token has an access_token which hasn't expired.
func (t *Token) Valid() bool {
	if t == nil {
		return false
	}
	if t.AccessToken == "" {
		return false
	}
	return !t.Expired()
}

// tokenOptions is the set of available options for Token functions
type tokenOptions struct {
	withExpirySkew time.Duration
}

// tokenDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func tokenDefaults() tokenOptions {
	return tokenOptions{
		withExpirySkew: DefaultTokenExpirySkew,
	}
}

// getTokenOpts gets the token defaults and applies the opt overrides passed
// in.
func getTokenOpts(opt ...Option) tokenOptions {
	opts := tokenDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
