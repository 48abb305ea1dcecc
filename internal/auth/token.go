// Copyright 2026 The Fieldbook Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth issues and verifies the bearer tokens that carry an actor's
// identity between requests.
package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/id"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid access token")

// minSecretLength is the shortest HS256 secret accepted.
const minSecretLength = 32

// Claims is the access token payload.
type Claims struct {
	TenantID string     `json:"tid"`
	Role     authz.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and parses HS256 access tokens.
type Issuer struct {
	issuer string
	secret []byte
	kid    string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates a token issuer. The key id is derived from the secret so
// tokens signed with a rotated secret are rejected by kid before signature.
func NewIssuer(issuer string, secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", minSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	sum := sha256.Sum256(secret)
	return &Issuer{
		issuer: issuer,
		secret: secret,
		kid:    base64.RawURLEncoding.EncodeToString(sum[:8]),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token for actor and its expiry.
func (i *Issuer) Issue(actor authz.Actor) (string, time.Time, error) {
	if !actor.Authenticated() {
		return "", time.Time{}, errors.New("cannot issue a token for an anonymous actor")
	}

	now := i.now()
	expires := now.Add(i.ttl)
	claims := Claims{
		TenantID: actor.TenantID,
		Role:     actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.NewUUIDv7(),
			Issuer:    i.issuer,
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = i.kid

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a token and returns the actor it was issued for.
func (i *Issuer) Parse(raw string) (authz.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != i.kid {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return authz.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	actor := authz.Actor{UserID: claims.Subject, TenantID: claims.TenantID, Role: claims.Role}
	if !actor.Authenticated() || !actor.Role.Valid() {
		return authz.Actor{}, ErrInvalidToken
	}
	return actor, nil
}
