// Package jwtauth verifies and issues HS256 bearer tokens for API clients.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/ports"
)

var _ ports.TokenVerifier = (*Verifier)(nil)

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims is the bearer token payload.
type Claims struct {
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Role          string `json:"role,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// Options configures a Verifier.
type Options struct {
	Secret []byte
	Issuer string        // optional; checked against "iss" when set
	Leeway time.Duration // clock skew tolerance
}

// NewVerifier returns a Verifier. The secret must be non-empty.
func NewVerifier(opts Options) (*Verifier, error) {
	if len(opts.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	return &Verifier{secret: opts.Secret, issuer: opts.Issuer, leeway: opts.Leeway, now: time.Now}, nil
}

// Verify validates the token and maps its claims onto an Identity.
func (v *Verifier) Verify(_ context.Context, tokenString string) (domainauth.Identity, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domainauth.Identity{}, ErrExpiredToken
		}
		return domainauth.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return domainauth.Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return domainauth.Identity{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	id := domainauth.Identity{
		UserID:        claims.Subject,
		FirstName:     claims.Name,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Role:          domainauth.ParseRole(claims.Role),
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// IssueInput describes a token to mint.
type IssueInput struct {
	UserID        string
	Email         string
	Name          string
	Role          domainauth.Role
	EmailVerified bool
	TTL           time.Duration
}

// Issue mints a signed token. Used by the admin CLI and tests.
func (v *Verifier) Issue(in IssueInput) (string, error) {
	if in.UserID == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	if in.TTL <= 0 {
		return "", errors.New("token TTL must be positive")
	}
	now := v.now()
	claims := Claims{
		Email:         in.Email,
		Name:          in.Name,
		Role:          string(in.Role),
		EmailVerified: in.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   in.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(in.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
