package httpx

import (
	"errors"
	"net/http"
)

// PageHandlers serves the static informational pages.
type PageHandlers struct {
	Renderer *TemplateRenderer
}

// Unauthorized is the target of role-denied redirects.
// GET /unauthorized.
func (h *PageHandlers) Unauthorized(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "insufficient_permissions",
			Err:     errors.New("insufficient permissions"),
		})
		return
	}
	renderPage(w, r, h.Renderer, http.StatusForbidden, PageData{Title: "Access denied", Page: PageUnauthorized})
}

// NotFound answers any path nothing else claims.
func (h *PageHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("resource not found"),
		})
		return
	}
	renderPage(w, r, h.Renderer, http.StatusNotFound, PageData{Title: "Page not found", Page: PageNotFound})
}

// WhoAmI answers guarded routes when no upstream is configured, showing
// the profile the guard authorized the request with.
func (h *PageHandlers) WhoAmI(w http.ResponseWriter, r *http.Request) {
	st, _ := GetAuthStateFromContext(r.Context())
	if !IsBrowserRequest(r) {
		WriteJSON(w, http.StatusOK, st)
		return
	}
	renderPage(w, r, h.Renderer, http.StatusOK, PageData{Title: "Your account", Page: PageWhoAmI, Profile: st.Profile})
}
