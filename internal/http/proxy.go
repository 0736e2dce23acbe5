package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// Identity headers set on proxied requests. Inbound copies are always
// stripped so clients cannot assert an identity.
const (
	HeaderUserID = "X-Storefront-User"
	HeaderEmail  = "X-Storefront-Email"
	HeaderRole   = "X-Storefront-Role"
)

// NewUpstreamProxy forwards requests to target, passing the authorized
// profile along in identity headers.
func NewUpstreamProxy(target *url.URL, logger *slog.Logger) (*httputil.ReverseProxy, error) {
	if target == nil || target.Scheme == "" || target.Host == "" {
		return nil, errors.New("upstream URL must be absolute")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "upstream_proxy")

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()

			h := pr.Out.Header
			h.Del(HeaderUserID)
			h.Del(HeaderEmail)
			h.Del(HeaderRole)
			if p, ok := GetProfileFromContext(pr.In.Context()); ok {
				h.Set(HeaderUserID, p.UserID)
				h.Set(HeaderEmail, p.Email)
				if p.Role != "" {
					h.Set(HeaderRole, string(p.Role))
				}
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.ErrorContext(r.Context(), "upstream request failed",
				"path", r.URL.Path,
				"error", err)
			WriteError(w, ErrorParams{
				Code:    http.StatusBadGateway,
				ErrCode: "upstream_unavailable",
				Err:     errors.New("upstream unavailable"),
			})
		},
	}, nil
}
