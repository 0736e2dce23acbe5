package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/service"
)

// mockAuthService is a test double for service.AuthService.
type mockAuthService struct {
	beginLoginFunc    func(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	completeLoginFunc func(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	getSessionFunc    func(ctx context.Context, sessionID string) (*domainauth.Session, error)
	logoutFunc        func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) BeginLogin(
	ctx context.Context,
	redirectURL string,
) (*service.BeginLoginResult, error) {
	if m.beginLoginFunc != nil {
		return m.beginLoginFunc(ctx, redirectURL)
	}
	return &service.BeginLoginResult{
		AuthURL: "https://example.com/auth?state=test-state&nonce=test-nonce",
		State:   "test-state",
		Nonce:   "test-nonce",
	}, nil
}

func (m *mockAuthService) CompleteLogin(
	ctx context.Context,
	input service.CompleteLoginInput,
) (*service.CompleteLoginResult, error) {
	if m.completeLoginFunc != nil {
		return m.completeLoginFunc(ctx, input)
	}
	return &service.CompleteLoginResult{
		Session: domainauth.Session{
			ID:            "test-session-id",
			UserID:        "test-user",
			Email:         "test@example.com",
			EmailVerified: true,
			Role:          domainauth.RoleCustomer,
			ExpiresAt:     time.Now().Add(time.Hour),
		},
	}, nil
}

func (m *mockAuthService) GetSession(
	ctx context.Context,
	sessionID string,
) (*domainauth.Session, error) {
	if m.getSessionFunc != nil {
		return m.getSessionFunc(ctx, sessionID)
	}
	return &domainauth.Session{
		ID:            sessionID,
		UserID:        "test-user",
		Email:         "test@example.com",
		EmailVerified: true,
		Role:          domainauth.RoleCustomer,
		ExpiresAt:     time.Now().Add(time.Hour),
	}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, sessionID)
	}
	return nil
}

func TestAuthHandlers_Login_Success(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	w := httptest.NewRecorder()

	handlers.Login(w, req)

	assert.Equal(t, http.StatusFound, w.Code)

	// Check that cookies were set
	resp := w.Result()
	defer resp.Body.Close()
	cookies := resp.Cookies()
	assert.Len(t, cookies, 3) // oauth_state, oauth_nonce, post_login_redirect

	// Check redirect location
	location := w.Header().Get("Location")
	assert.Contains(t, location, "https://example.com/auth")
}

func TestAuthHandlers_Login_WithRedirectURI(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=/orders/42", nil)
	w := httptest.NewRecorder()

	handlers.Login(w, req)

	assert.Equal(t, http.StatusFound, w.Code)

	// Check that redirect URI was stored in cookie
	resp := w.Result()
	defer resp.Body.Close()
	cookies := resp.Cookies()
	var redirectCookie *http.Cookie
	for _, cookie := range cookies {
		if cookie.Name == "post_login_redirect" {
			redirectCookie = cookie
			break
		}
	}
	require.NotNil(t, redirectCookie)
	assert.Equal(t, "/orders/42", redirectCookie.Value)
}

func TestAuthHandlers_Login_RejectsOffsiteRedirect(t *testing.T) {
	for _, target := range []string{"://invalid", "https://evil.example/x", "//evil.example/x", "orders"} {
		t.Run(target, func(t *testing.T) {
			var got string
			mockSvc := &mockAuthService{
				beginLoginFunc: func(_ context.Context, redirectURL string) (*service.BeginLoginResult, error) {
					got = redirectURL
					return &service.BeginLoginResult{AuthURL: "https://idp.example/auth", State: "s", Nonce: "n"}, nil
				},
			}
			handlers := &AuthHandlers{Svc: mockSvc}

			req := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri="+url.QueryEscape(target), nil)
			w := httptest.NewRecorder()
			handlers.Login(w, req)

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/", got)
		})
	}
}

func TestAuthHandlers_Login_ServiceError(t *testing.T) {
	mockSvc := &mockAuthService{
		beginLoginFunc: func(context.Context, string) (*service.BeginLoginResult, error) {
			return nil, errors.New("provider unavailable")
		},
	}
	handlers := &AuthHandlers{Svc: mockSvc}

	w := httptest.NewRecorder()
	handlers.Login(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"login_failed"`)
}

func TestAuthHandlers_Callback_Success(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(
		http.MethodGet,
		"/auth/callback?code=test-code&state=test-state",
		nil,
	)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "test-state"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "test-nonce"})
	req.AddCookie(&http.Cookie{Name: "post_login_redirect", Value: "/account/orders"})

	w := httptest.NewRecorder()

	handlers.Callback(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/account/orders", w.Header().Get("Location"))

	// Check that session cookie was set
	resp := w.Result()
	defer resp.Body.Close()
	cookies := resp.Cookies()
	var sessionCookie *http.Cookie
	for _, cookie := range cookies {
		if cookie.Name == "session_id" {
			sessionCookie = cookie
			break
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Equal(t, "test-session-id", sessionCookie.Value)
}

func TestAuthHandlers_Callback_UnverifiedEmailPrompts(t *testing.T) {
	mockSvc := &mockAuthService{
		completeLoginFunc: func(context.Context, service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
			return &service.CompleteLoginResult{Session: domainauth.Session{
				ID:        "fresh",
				UserID:    "new-user",
				ExpiresAt: time.Now().Add(time.Hour),
			}}, nil
		},
	}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=c&state=s", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "n"})
	req.AddCookie(&http.Cookie{Name: "post_login_redirect", Value: "/account/"})
	w := httptest.NewRecorder()

	handlers.Callback(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/verify-email?redirect_uri=%2Faccount%2F", w.Header().Get("Location"))
}

func TestAuthHandlers_Callback_CompletionFails(t *testing.T) {
	mockSvc := &mockAuthService{
		completeLoginFunc: func(context.Context, service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
			return nil, errors.New("exchange failed")
		},
	}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=c&state=s", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "n"})
	w := httptest.NewRecorder()

	handlers.Callback(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"login_completion_failed"`)
}

func TestAuthHandlers_Callback_MissingCode(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=test-state", nil)
	w := httptest.NewRecorder()

	handlers.Callback(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlers_Callback_InvalidState(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(
		http.MethodGet,
		"/auth/callback?code=test-code&state=wrong-state",
		nil,
	)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "test-state"})

	w := httptest.NewRecorder()

	handlers.Callback(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlers_Logout_Success(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "test-session-id"})

	w := httptest.NewRecorder()

	handlers.Logout(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/signed-out?redirect_uri=%2F", w.Header().Get("Location"))

	// Check that session cookie was cleared
	resp := w.Result()
	defer resp.Body.Close()
	cookies := resp.Cookies()
	var sessionCookie *http.Cookie
	for _, cookie := range cookies {
		if cookie.Name == "session_id" {
			sessionCookie = cookie
			break
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Empty(t, sessionCookie.Value)
	assert.Equal(t, -1, sessionCookie.MaxAge)
}

func TestAuthHandlers_Logout_AJAX(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "test-session-id"})

	w := httptest.NewRecorder()

	handlers.Logout(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)
	assert.Contains(t, w.Body.String(), `"redirect_to":"/auth/signed-out?redirect_uri=%2F"`)
}

func TestAuthHandlers_Status_Authenticated(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "test-session-id"})

	w := httptest.NewRecorder()

	handlers.Status(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
	assert.Contains(t, w.Body.String(), `"test@example.com"`)
	assert.Contains(t, w.Body.String(), `"email_verified":true`)
	assert.Contains(t, w.Body.String(), `"role":"customer"`)
}

func TestAuthHandlers_Status_NotAuthenticated(t *testing.T) {
	mockSvc := &mockAuthService{
		getSessionFunc: func(ctx context.Context, sessionID string) (*domainauth.Session, error) {
			return nil, errors.New("session not found")
		},
	}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "invalid-session"})

	w := httptest.NewRecorder()

	handlers.Status(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestAuthHandlers_Status_NoSession(t *testing.T) {
	mockSvc := &mockAuthService{}
	handlers := &AuthHandlers{Svc: mockSvc}

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	w := httptest.NewRecorder()

	handlers.Status(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestAuthHandlers_SignedOut(t *testing.T) {
	handlers := &AuthHandlers{Svc: &mockAuthService{}, Renderer: RequireTemplateRenderer(t)}

	w := httptest.NewRecorder()
	handlers.SignedOut(w, httptest.NewRequest(http.MethodGet, "/auth/signed-out?redirect_uri=/account/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You are signed out")
	assert.Contains(t, w.Body.String(), `href="/auth/login?redirect_uri=%2Faccount%2F"`)
}

func TestAuthHandlers_VerifyEmail(t *testing.T) {
	handlers := &AuthHandlers{Svc: &mockAuthService{}, Renderer: RequireTemplateRenderer(t)}

	t.Run("with session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/verify-email?redirect_uri=/account/", nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "s-1"})
		w := httptest.NewRecorder()

		handlers.VerifyEmail(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, ContainsAll(w.Body.String(), []string{"Verify your email", "test@example.com", `href="/account/"`}))
	})

	t.Run("without session", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.VerifyEmail(w, httptest.NewRequest(http.MethodGet, "/auth/verify-email", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "your email address")
	})
}
