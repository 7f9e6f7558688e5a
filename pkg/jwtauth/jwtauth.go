// Package jwtauth issues and verifies the HS256 bearer tokens identifying
// accounts towards the escrow daemon and the asset registries.
package jwtauth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	// ErrMissingToken is returned when the request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned for malformed, expired or badly signed
	// tokens.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// NewToken returns a token for the given subject signed with secret. A zero
// ttl issues a token that never expires.
func NewToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) <= 0 {
		return "", fmt.Errorf("missing signing secret")
	}
	if len(subject) <= 0 {
		return "", fmt.Errorf("missing token subject")
	}

	now := time.Now()
	claims := jwt.StandardClaims{
		Subject:  subject,
		IssuedAt: now.Unix(),
	}
	if ttl != 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies the token and returns its subject.
func ParseToken(secret []byte, tokenString string) (string, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || len(claims.Subject) <= 0 {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// SetBearer adds the token to the Authorization header of the request.
func SetBearer(req *http.Request, token string) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
}

// SubjectFromRequest verifies the bearer token of the request and returns its
// subject.
func SubjectFromRequest(secret []byte, req *http.Request) (string, error) {
	header := req.Header.Get("Authorization")
	if len(header) <= 0 {
		return "", ErrMissingToken
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header {
		return "", ErrMissingToken
	}
	return ParseToken(secret, tokenString)
}
