package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	"github.com/target/storefront-gate/internal/domain/guard"
	"github.com/target/storefront-gate/internal/service"
)

// DefaultStreamPing is how often an idle state stream sends an SSE comment.
const DefaultStreamPing = 15 * time.Second

// StateWatcher resolves the current auth state and follows changes to it.
type StateWatcher interface {
	StateResolver
	Watch(ctx context.Context, sessionID string) (<-chan domainauth.AuthState, error)
}

// StateHandlers exposes guard decisions to clients that navigate on their own.
type StateHandlers struct {
	State        StateWatcher
	Metrics      *service.GuardMetrics
	Routes       *RouteTable
	PingInterval time.Duration
	Logger       *slog.Logger
}

func (h *StateHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type stateResponse struct {
	Location string               `json:"location"`
	Guarded  bool                 `json:"guarded"`
	Policy   string               `json:"policy,omitempty"`
	Outcome  string               `json:"outcome,omitempty"`
	Intent   guard.Intent         `json:"intent"`
	State    domainauth.AuthState `json:"state"`
}

// stateTarget is the location and guard a state request asks about.
type stateTarget struct {
	location string
	guard    guard.Guard
	guarded  bool
}

// target reads ?location= and the optional ?policy=. Without a policy the
// route table decides; a location no route protects is unguarded.
func (h *StateHandlers) target(w http.ResponseWriter, r *http.Request) (stateTarget, bool) {
	q := r.URL.Query()
	t := stateTarget{location: safeRedirectPath(q.Get("location"))}

	if policy := q.Get("policy"); policy != "" {
		g, ok := h.Routes.Named(policy)
		if !ok {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "unknown_policy",
				Err:     fmt.Errorf("unknown policy %q", policy),
			})
			return t, false
		}
		t.guard, t.guarded = g, true
		return t, true
	}

	t.guard, t.guarded = h.Routes.Match(t.location)
	return t, true
}

// Current returns the guard decision for a location.
// GET /auth/state?location=<path>&policy=<name>.
func (h *StateHandlers) Current(w http.ResponseWriter, r *http.Request) {
	t, ok := h.target(w, r)
	if !ok {
		return
	}
	st := h.State.Resolve(r.Context(), credentialsFromRequest(r))

	resp := stateResponse{Location: t.location, Intent: guard.RenderChildren(), State: st}
	if t.guarded {
		d := h.Metrics.Decide(r.Context(), t.guard, st, t.location)
		resp.Guarded = true
		resp.Policy = t.guard.Policy.Name
		resp.Outcome = d.Outcome.String()
		resp.Intent = d.Intent
	}

	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, resp)
}

// Stream sends the intent for a location as Server-Sent Events, once now and
// again whenever the session's auth state changes it.
// GET /auth/state/stream?location=<path>&policy=<name>.
func (h *StateHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	t, ok := h.target(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	rc := http.NewResponseController(w)

	if !t.guarded {
		// Nothing can change for an unguarded location.
		startStream(w)
		_ = writeEvent(w, rc, "intent", guard.RenderChildren())
		return
	}

	var sessionID string
	if c, err := r.Cookie(cookieSession); err == nil {
		sessionID = c.Value
	}
	states, err := h.State.Watch(ctx, sessionID)
	if err != nil {
		h.logger().ErrorContext(ctx, "watch auth state failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "watch_failed",
			Err:     errors.New("auth state updates are unavailable"),
		})
		return
	}

	startStream(w)

	ping := h.PingInterval
	if ping <= 0 {
		ping = DefaultStreamPing
	}
	ticker := time.NewTicker(ping)
	defer ticker.Stop()

	intents := guard.Watch(ctx, t.guard, t.location, states)
	for {
		select {
		case in, open := <-intents:
			if !open {
				return
			}
			if err := writeEvent(w, rc, "intent", in); err != nil {
				h.logger().DebugContext(ctx, "state stream closed", "error", err)
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func startStream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return rc.Flush()
}
