// Package oidc provides the OpenID Connect authorization code flow for storefront sign-in.
package oidc

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/ports"
)

var _ ports.AuthProvider = (*Provider)(nil)

// Provider implements ports.AuthProvider using OIDC/OAuth2.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	HTTPClient   *http.Client // optional
}

// DiscoveryDocument is the subset of the OIDC discovery document we read.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider performs discovery and returns a ready provider.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	switch {
	case config.ClientID == "":
		return nil, errors.New("client ID is required")
	case config.ClientSecret == "":
		return nil, errors.New("client secret is required")
	case config.RedirectURL == "":
		return nil, errors.New("redirect URL is required")
	case config.DiscoveryURL == "":
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = gooidc.ClientContext(ctx, httpClient)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	scopes := strings.Fields(config.Scope)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}

	return &Provider{
		httpClient:   httpClient,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
	}, nil
}

func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}
	state := rand.Text()
	nonce := rand.Text()

	// redirect_uri stays the configured one; the IdP matches it exactly
	authURL := p.config.AuthCodeURL(state, gooidc.Nonce(nonce))
	return authURL, state, nonce, nil
}

func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	switch {
	case in.Code == "":
		return domainauth.Identity{}, errors.New("authorization code is required")
	case in.State == "":
		return domainauth.Identity{}, errors.New("state is required")
	case in.Nonce == "":
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	ctx = gooidc.ClientContext(ctx, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	claims, err := p.extractFromIDToken(ctx, token, in.Nonce)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("extract id_token: %w", err)
	}

	if claims.email() == "" || claims.userID() == "" {
		if fillErr := p.fillFromUserInfo(ctx, token, &claims); fillErr != nil {
			return domainauth.Identity{}, fmt.Errorf("get user info: %w", fillErr)
		}
	}
	if claims.userID() == "" {
		return domainauth.Identity{}, errors.New("identity has no subject")
	}

	expiresAt := time.Now().Add(time.Hour)
	if !token.Expiry.IsZero() {
		expiresAt = token.Expiry
	}

	return domainauth.Identity{
		UserID:        claims.userID(),
		FirstName:     claims.GivenName,
		LastName:      claims.FamilyName,
		Email:         claims.email(),
		EmailVerified: claims.EmailVerified,
		Groups:        claims.Groups,
		Claims:        claims.raw,
		ExpiresAt:     expiresAt,
	}, nil
}

// standardClaims is the subset of OIDC claims mapped onto an Identity.
// raw keeps every claim for role-claim expressions.
type standardClaims struct {
	Subject           string   `json:"sub"`
	Email             string   `json:"email"`
	EmailVerified     bool     `json:"email_verified"`
	GivenName         string   `json:"given_name"`
	FamilyName        string   `json:"family_name"`
	PreferredUsername string   `json:"preferred_username"`
	Groups            []string `json:"groups"`
	Nonce             string   `json:"nonce"`

	raw map[string]any
}

func (c standardClaims) userID() string { return firstNonEmpty(c.Subject, c.PreferredUsername) }

func (c standardClaims) email() string { return c.Email }

// claimsDecoder matches both *gooidc.IDToken and *gooidc.UserInfo.
type claimsDecoder interface {
	Claims(v any) error
}

func decodeClaims(src claimsDecoder) (standardClaims, error) {
	var c standardClaims
	if err := src.Claims(&c); err != nil {
		return c, err
	}
	if err := src.Claims(&c.raw); err != nil {
		return c, err
	}
	return c, nil
}

func (p *Provider) extractFromIDToken(ctx context.Context, tok *oauth2.Token, expectedNonce string) (standardClaims, error) {
	if !p.hasOpenIDScope() {
		return standardClaims{}, nil
	}
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return standardClaims{}, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return standardClaims{}, fmt.Errorf("verify id_token: %w", err)
	}
	c, err := decodeClaims(idTok)
	if err != nil {
		return standardClaims{}, fmt.Errorf("parse id_token claims: %w", err)
	}
	if expectedNonce != "" && c.Nonce != expectedNonce {
		return standardClaims{}, errors.New("invalid nonce")
	}
	return c, nil
}

func (p *Provider) fillFromUserInfo(ctx context.Context, tok *oauth2.Token, c *standardClaims) error {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return fmt.Errorf("fetch user info: %w", err)
	}
	fromUI, err := decodeClaims(ui)
	if err != nil {
		return fmt.Errorf("decode user info: %w", err)
	}
	mergeClaims(c, fromUI)
	return nil
}

// mergeClaims fills empty fields of dst from src. Existing values win.
func mergeClaims(dst *standardClaims, src standardClaims) {
	if dst.Subject == "" {
		dst.Subject = src.Subject
	}
	if dst.PreferredUsername == "" {
		dst.PreferredUsername = src.PreferredUsername
	}
	if dst.Email == "" {
		dst.Email = src.Email
		dst.EmailVerified = src.EmailVerified
	}
	if dst.GivenName == "" {
		dst.GivenName = src.GivenName
	}
	if dst.FamilyName == "" {
		dst.FamilyName = src.FamilyName
	}
	if len(dst.Groups) == 0 {
		dst.Groups = src.Groups
	}
	if dst.raw == nil {
		dst.raw = make(map[string]any, len(src.raw))
	}
	for k, v := range maps.All(src.raw) {
		if _, ok := dst.raw[k]; !ok {
			dst.raw[k] = v
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (p *Provider) hasOpenIDScope() bool {
	return slices.Contains(p.config.Scopes, gooidc.ScopeOpenID)
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
