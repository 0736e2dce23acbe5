package httpx

import (
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	storefrontgate "github.com/target/storefront-gate"
	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/service"
)

// RequireTemplateRenderer creates a TemplateRenderer over the embedded templates.
func RequireTemplateRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	sub, err := fs.Sub(storefrontgate.TemplateFS, TemplatePathFromRoot)
	if err != nil {
		t.Fatalf("templates not embedded: %v", err)
	}
	tr, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: sub})
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	return tr
}

// ContainsAll reports whether s contains every substring in subs.
func ContainsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

// fakeStates resolves to a fixed state and replays scripted pushes on Watch.
type fakeStates struct {
	state    domainauth.AuthState
	pushes   []domainauth.AuthState
	watchErr error
	creds    []service.Credentials
}

func (f *fakeStates) Resolve(_ context.Context, creds service.Credentials) domainauth.AuthState {
	f.creds = append(f.creds, creds)
	return f.state
}

func (f *fakeStates) Watch(context.Context, string) (<-chan domainauth.AuthState, error) {
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	ch := make(chan domainauth.AuthState, len(f.pushes)+1)
	ch <- f.state
	for _, st := range f.pushes {
		ch <- st
	}
	close(ch)
	return ch, nil
}

func browserRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	return req
}

func apiRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Accept", "application/json")
	return req
}

func profileWithRole(role domainauth.Role) *domainauth.Profile {
	return &domainauth.Profile{UserID: "u1", Email: "u1@example.com", DisplayName: "Una One", Role: role, EmailVerified: true}
}
