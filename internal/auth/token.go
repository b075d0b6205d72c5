// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package auth verifies the bearer token presented by websocket clients and
// the operator API, mapping it to the campaign owner's user id. The pipeline
// itself has no session, OAuth, or authorization surface: the frontend that
// issues these tokens owns authentication, and this package only checks the
// signature and expiry of what it's handed.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails signature, expiry, or
// claim validation. Callers should not distinguish the underlying cause
// beyond logging it; the client just gets a 401/close.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the subset of the issued JWT's claims the pipeline cares about.
type Claims struct {
	jwt.RegisteredClaims
	UserID     string `json:"user_id"`
	CampaignID string `json:"campaign_id,omitempty"`
}

// Verifier validates opaque bearer tokens against a shared signing secret
// and extracts the caller's user id.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier from the HMAC secret shared with the token
// issuer. An empty secret is rejected since it would make every signature
// check trivially satisfiable.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret must not be empty")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates token, returning its claims.
func (v *Verifier) Verify(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.UserID == "" {
		return Claims{}, fmt.Errorf("%w: missing user_id claim", ErrInvalidToken)
	}
	return claims, nil
}
