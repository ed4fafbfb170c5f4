// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package oidc provides a client for the 3-legged OIDC authorization code
// flow against a single identity provider.  It handles provider discovery,
// building authorization URLs, exchanging authorization codes (including
// id_token signature and nonce verification), refreshing tokens and fetching
// userinfo claims.
//
// Primary types provided by the package:
//
// * Request: represents one in-flight authentication attempt.  It holds the
// single-use state and nonce for that attempt along with its expiration.
//
// * Token: the bundle of access/refresh/id tokens issued by the provider.
// Tokens are never mutated, only replaced wholesale.
//
// * Config: the relying party's configuration (client id/secret, issuer,
// redirect URL, scopes, supported signing algorithms).
//
// * Provider: performs the wire-level operations.  Constructing a Provider
// runs discovery against the issuer, so a non-nil Provider is always ready to
// accept requests.
//
// The package also provides a TestProvider: an in-process TLS identity
// provider supporting discovery, authorization, token (authorization_code and
// refresh_token grants), userinfo and JWKS endpoints, which makes it possible
// to test a complete relying party hermetically.
package oidc
