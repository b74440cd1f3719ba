// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing) from
// the domain logic. [TokenIssuer] is stateless: every method is a pure function
// of its signing keys, an immutable [Claims] value and the clock.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/pkg/uuid"
)

// TokenKind distinguishes the two token classes.
type TokenKind string

const (
	// KindAccess is a short-lived token proving identity for a request window.
	KindAccess TokenKind = "access"

	// KindRefresh is a long-lived token used solely to mint new token pairs.
	KindRefresh TokenKind = "refresh"
)

// Claims is the immutable public claim set tokens are minted from.
type Claims struct {
	UserID   string
	UserName string
	Email    string
}

// TokenClaims represents the payload embedded inside a signed token.
//
// Access tokens denormalize userName and email so request authorization does
// not need a store lookup. Refresh tokens carry only the subject.
type TokenClaims struct {
	jwt.RegisteredClaims

	UserName string    `json:"userName,omitempty"`
	Email    string    `json:"email,omitempty"`
	Kind     TokenKind `json:"typ"`
}

// UserID returns the token subject.
func (claims *TokenClaims) UserID() string {
	return claims.Subject
}

// IssuedToken is a signed token with its expiry, used for cookie lifetimes.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// IssuerConfig configures a [TokenIssuer].
type IssuerConfig struct {
	Issuer        string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// Now overrides the clock. Defaults to [time.Now].
	Now func() time.Time
}

// TokenIssuer signs and verifies HS256 tokens with one secret per token class,
// so a leaked access secret cannot forge refresh tokens and vice versa.
type TokenIssuer struct {
	config IssuerConfig
}

// NewTokenIssuer validates the configuration and returns a [TokenIssuer].
func NewTokenIssuer(config IssuerConfig) (*TokenIssuer, error) {
	if len(config.AccessSecret) == 0 || len(config.RefreshSecret) == 0 {
		return nil, errors.New("sec: access and refresh secrets are required")
	}
	if string(config.AccessSecret) == string(config.RefreshSecret) {
		return nil, errors.New("sec: access and refresh secrets must differ")
	}
	if config.AccessTTL <= 0 || config.RefreshTTL <= 0 {
		return nil, errors.New("sec: token TTLs must be positive")
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &TokenIssuer{config: config}, nil
}

// AccessTTL returns the configured access token lifetime.
func (issuer *TokenIssuer) AccessTTL() time.Duration { return issuer.config.AccessTTL }

// IssueAccess mints a signed access token for claims.
func (issuer *TokenIssuer) IssueAccess(claims Claims) (IssuedToken, error) {
	return issuer.sign(KindAccess, claims)
}

// IssueRefresh mints a signed refresh token for claims. Only the subject is
// embedded.
func (issuer *TokenIssuer) IssueRefresh(claims Claims) (IssuedToken, error) {
	return issuer.sign(KindRefresh, Claims{UserID: claims.UserID})
}

func (issuer *TokenIssuer) sign(kind TokenKind, claims Claims) (IssuedToken, error) {
	if claims.UserID == "" {
		return IssuedToken{}, errors.New("sec: token subject is required")
	}

	secret, ttl := issuer.keyFor(kind)
	currentTime := issuer.config.Now()
	expiresAt := currentTime.Add(ttl)

	payload := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New(),
			Subject:   claims.UserID,
			Issuer:    issuer.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserName: claims.UserName,
		Email:    claims.Email,
		Kind:     kind,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sec: failed to sign %s token: %w", kind, err)
	}

	return IssuedToken{Value: signed, ExpiresAt: payload.ExpiresAt.Time}, nil
}

// Verify checks signature, algorithm, kind, structure and expiry.
//
// Expiry is enforced with zero leeway. An expired token yields TOKEN_EXPIRED;
// every other failure yields TOKEN_INVALID.
func (issuer *TokenIssuer) Verify(tokenString string, kind TokenKind) (*TokenClaims, error) {
	secret, _ := issuer.keyFor(kind)

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(issuer.config.Issuer),
		jwt.WithTimeFunc(issuer.config.Now),
	)

	claims := &TokenClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.TokenExpired(fmt.Sprintf("The %s token has expired", kind)).WithCause(err)
		}
		return nil, apperr.TokenInvalid(fmt.Sprintf("The %s token is invalid", kind)).WithCause(err)
	}

	if !token.Valid || claims.Kind != kind || claims.Subject == "" {
		return nil, apperr.TokenInvalid(fmt.Sprintf("The %s token is invalid", kind))
	}

	return claims, nil
}

func (issuer *TokenIssuer) keyFor(kind TokenKind) ([]byte, time.Duration) {
	if kind == KindRefresh {
		return issuer.config.RefreshSecret, issuer.config.RefreshTTL
	}
	return issuer.config.AccessSecret, issuer.config.AccessTTL
}
