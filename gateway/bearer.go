// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gateway

import (
	"strings"

	"github.com/hashicorp/authgate/oidc"
)

// ExtractBearerToken returns the token from an Authorization header of the
// exact form "Bearer <token>".  The scheme is case-sensitive and the header
// must be exactly two space-separated parts.
func ExtractBearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// injectBearerToken overlays a bearer token onto the caller's view of the
// session when the session itself holds no access token.  The overlay is
// request scoped: the session store is never written, so the token is
// visible only for the life of this request's session copy.  A session that
// already holds an access token keeps it; the header is ignored.
func injectBearerToken(sess *Session, header string) {
	if sess == nil || sess.AccessToken() != "" {
		return
	}
	token, ok := ExtractBearerToken(header)
	if !ok {
		return
	}
	sess.Tokens = &oidc.Token{AccessToken: token}
}
