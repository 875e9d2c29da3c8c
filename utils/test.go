/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package utils

import (
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// MintToken signs an HS256 token for subject, the way the identity provider
// issues them.
func MintToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// DecodeJWTPart decodes a JWT base64url part
func DecodeJWTPart(part string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(part)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(part)
	}
	return decoded, err
}
