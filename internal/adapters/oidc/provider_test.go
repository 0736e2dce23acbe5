package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/target/storefront-gate/internal/ports"
)

// fakeIdP serves discovery, token and userinfo endpoints.
func fakeIdP(t *testing.T, userinfo map[string]any) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(DiscoveryDocument{
			Issuer:                srv.URL,
			AuthorizationEndpoint: srv.URL + "/authorize",
			TokenEndpoint:         srv.URL + "/token",
			UserinfoEndpoint:      srv.URL + "/userinfo",
			JwksURI:               srv.URL + "/jwks",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(userinfo)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T, srv *httptest.Server, scope string) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     "storefront",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/auth/callback",
		Scope:        scope,
		DiscoveryURL: srv.URL + "/.well-known/openid-configuration",
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_Discovery(t *testing.T) {
	srv := fakeIdP(t, nil)
	p := newTestProvider(t, srv, "")

	assert.Equal(t, srv.URL+"/authorize", p.config.Endpoint.AuthURL)
	assert.Equal(t, srv.URL+"/token", p.config.Endpoint.TokenURL)
	assert.Equal(t, []string{"openid", "profile", "email"}, p.config.Scopes)
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{"missing client ID", ProviderConfig{ClientSecret: "s", RedirectURL: "r", DiscoveryURL: "d"}, "client ID is required"},
		{"missing client secret", ProviderConfig{ClientID: "c", RedirectURL: "r", DiscoveryURL: "d"}, "client secret is required"},
		{"missing redirect URL", ProviderConfig{ClientID: "c", ClientSecret: "s", DiscoveryURL: "d"}, "redirect URL is required"},
		{"missing discovery URL", ProviderConfig{ClientID: "c", ClientSecret: "s", RedirectURL: "r"}, "discovery URL is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestProvider_Begin(t *testing.T) {
	p := newTestProvider(t, fakeIdP(t, nil), "openid email")

	authURL, state, nonce, err := p.Begin(context.Background(), ports.BeginInput{RedirectURL: "/orders/42"})
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "/authorize", u.Path)
	assert.Equal(t, "storefront", q.Get("client_id"))
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, nonce, q.Get("nonce"))
	assert.Equal(t, "http://localhost:8080/auth/callback", q.Get("redirect_uri"))

	_, _, _, err = p.Begin(context.Background(), ports.BeginInput{})
	require.Error(t, err)
}

func TestProvider_Exchange_ValidationErrors(t *testing.T) {
	p := newTestProvider(t, fakeIdP(t, nil), "openid")

	tests := []struct {
		input  ports.ExchangeInput
		errMsg string
	}{
		{ports.ExchangeInput{State: "s", Nonce: "n"}, "authorization code is required"},
		{ports.ExchangeInput{Code: "c", Nonce: "n"}, "state is required"},
		{ports.ExchangeInput{Code: "c", State: "s"}, "nonce is required"},
	}
	for _, tt := range tests {
		_, err := p.Exchange(context.Background(), tt.input)
		require.Error(t, err)
		assert.Contains(t, err.Error(), tt.errMsg)
	}
}

func TestProvider_Exchange_UserInfo(t *testing.T) {
	srv := fakeIdP(t, map[string]any{
		"sub":            "shopper-7",
		"email":          "shopper@example.com",
		"email_verified": true,
		"given_name":     "Sam",
		"family_name":    "Shopper",
		"groups":         []string{"store-managers"},
		"app_metadata":   map[string]any{"role": "manager"},
	})
	// without openid the identity comes from userinfo alone
	p := newTestProvider(t, srv, "profile email")

	id, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "good-code", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, "shopper-7", id.UserID)
	assert.Equal(t, "shopper@example.com", id.Email)
	assert.True(t, id.EmailVerified)
	assert.Equal(t, "Sam", id.FirstName)
	assert.Equal(t, []string{"store-managers"}, id.Groups)
	assert.Equal(t, map[string]any{"role": "manager"}, id.Claims["app_metadata"])
	assert.False(t, id.ExpiresAt.IsZero())
}

func TestProvider_Exchange_BadCode(t *testing.T) {
	p := newTestProvider(t, fakeIdP(t, nil), "profile")

	_, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "bad", State: "s", Nonce: "n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange code for token")
}

func TestGetIDTokenFromToken(t *testing.T) {
	tok := (&oauth2.Token{}).WithExtra(map[string]any{"id_token": "abc.def.ghi"})
	raw, err := getIDTokenFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", raw)

	_, err = getIDTokenFromToken((&oauth2.Token{}).WithExtra(map[string]any{"x": "y"}))
	assert.ErrorContains(t, err, "missing id_token")

	_, err = getIDTokenFromToken(nil)
	assert.ErrorContains(t, err, "nil token")
}

func TestMergeClaims(t *testing.T) {
	dst := standardClaims{Subject: "keep", raw: map[string]any{"sub": "keep"}}
	src := standardClaims{
		Subject:       "other",
		Email:         "e@example.com",
		EmailVerified: true,
		Groups:        []string{"g"},
		raw:           map[string]any{"sub": "other", "tier": "gold"},
	}
	mergeClaims(&dst, src)

	assert.Equal(t, "keep", dst.Subject)
	assert.Equal(t, "e@example.com", dst.Email)
	assert.True(t, dst.EmailVerified)
	assert.Equal(t, []string{"g"}, dst.Groups)
	assert.Equal(t, map[string]any{"sub": "keep", "tier": "gold"}, dst.raw)
}
