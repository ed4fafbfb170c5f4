// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gateway

import (
	"time"

	"github.com/hashicorp/authgate/oidc"
)

// User is the set of identity claims the gateway keeps for an authenticated
// session.
type User struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Username      string `json:"username"`
}

// Session is the gateway's server-side state for one browser/client.  It's
// created on first request and destroyed on explicit logout or store expiry.
//
// Nonce and State are valid only for the single login attempt that generated
// them; they're consumed (and cleared) when the attempt's callback completes.
// Tokens and UserInfo are always written together: a session never holds
// claims for a token set that failed to resolve, or vice versa.
type Session struct {
	// ID is the session's identifier, carried by the client in a cookie.
	ID string

	// Nonce is the single-use nonce for an in-flight login attempt.
	Nonce string

	// State is the single-use CSRF state for an in-flight login attempt.
	State string

	// AuthExpiry bounds the in-flight login attempt.
	AuthExpiry time.Time

	// Tokens is the current provider-issued token set, present once
	// authentication succeeds.  A refresh replaces it wholesale.
	Tokens *oidc.Token

	// UserInfo holds the claims fetched from the provider, present once
	// authentication (or refresh) succeeds.
	UserInfo *User
}

// Authenticated reports whether the session completed a login.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserInfo != nil
}

// AccessToken returns the session's current access token, or "" when there
// isn't one.
func (s *Session) AccessToken() string {
	if s == nil || s.Tokens == nil {
		return ""
	}
	return s.Tokens.AccessToken
}

// clone returns a deep copy of the session, so callers can mutate their view
// without the change becoming visible before a Set.
func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Tokens != nil {
		tokens := *s.Tokens
		cp.Tokens = &tokens
	}
	if s.UserInfo != nil {
		userInfo := *s.UserInfo
		cp.UserInfo = &userInfo
	}
	return &cp
}
