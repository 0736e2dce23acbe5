package auth

// AuthState is the read-only snapshot of identity status that access guards evaluate.
// It is owned by the auth state provider; guards never mutate it.
//
// Authenticated is only meaningful when Loading is false. Profile is only
// present when Authenticated is true, and may be nil even then (for example
// when the profile record has not been loaded).
type AuthState struct {
	Loading       bool     `json:"loading"`
	Authenticated bool     `json:"authenticated"`
	Profile       *Profile `json:"profile,omitempty"`
}

// Pending returns the state used while identity is still being resolved.
func Pending() AuthState { return AuthState{Loading: true} }

// SignedOut returns the resolved, unauthenticated state.
func SignedOut() AuthState { return AuthState{} }

// SignedIn returns the resolved, authenticated state. profile may be nil.
func SignedIn(profile *Profile) AuthState {
	return AuthState{Authenticated: true, Profile: profile}
}

// Role returns the profile role and whether one is present.
// An empty role string counts as absent.
func (s AuthState) Role() (Role, bool) {
	if s.Profile == nil || s.Profile.Role == "" {
		return "", false
	}
	return s.Profile.Role, true
}

// Equal reports whether two snapshots carry the same status and profile contents.
func (s AuthState) Equal(o AuthState) bool {
	if s.Loading != o.Loading || s.Authenticated != o.Authenticated {
		return false
	}
	switch {
	case s.Profile == nil && o.Profile == nil:
		return true
	case s.Profile == nil || o.Profile == nil:
		return false
	default:
		a, b := *s.Profile, *o.Profile
		return a.UserID == b.UserID &&
			a.Email == b.Email &&
			a.DisplayName == b.DisplayName &&
			a.Role == b.Role &&
			a.EmailVerified == b.EmailVerified
	}
}
