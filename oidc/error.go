// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
)

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrNilParameter         = errors.New("nil parameter")
	ErrInvalidCACert        = errors.New("invalid CA certificate")
	ErrInvalidIssuer        = errors.New("invalid issuer")
	ErrIDGeneratorFailed    = errors.New("id generation failed")
	ErrExpiredRequest       = errors.New("request is expired")
	ErrResponseStateInvalid = errors.New("oidc response state is invalid")
	ErrMissingIDToken       = errors.New("id_token is missing")
	ErrMissingAccessToken   = errors.New("access_token is missing")
	ErrMissingRefreshToken  = errors.New("refresh_token is missing")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrInvalidAudience      = errors.New("invalid audience")
	ErrInvalidNonce         = errors.New("invalid nonce")
	ErrNotFound             = errors.New("not found")
	ErrLoginFailed          = errors.New("login failed")
	ErrTokenRefreshFailed   = errors.New("token refresh failed")
	ErrUserInfoFailed       = errors.New("user info failed")
)
