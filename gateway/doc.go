// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package gateway implements an OIDC relying-party gateway: it authenticates
// end users against a single identity provider using the authorization code
// flow, stores the resulting tokens in a server-side session, and exposes a
// minimal HTTP API for session lifecycle (login, callback, logout) and
// identity claims (userinfo, refresh).
//
// The Flow type orchestrates the operations against an injected
// oidc.Provider and session Store.  The Handler type wires the operations to
// a chi router with cookie-based session identity and a bearer-token
// fallback for stateless API calls.
package gateway
