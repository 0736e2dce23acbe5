package guard

import "github.com/target/storefront-gate/internal/domain/auth"

// Views supplies one value per intent variant. V is whatever the caller
// renders: an http.Handler, a template name, a string in tests.
type Views[V any] struct {
	Loading  func() V
	Redirect func(target, returnTo string) V
	Children func() V
}

// Select maps an intent onto the matching view.
func Select[V any](in Intent, views Views[V]) V {
	switch in.Kind {
	case KindLoading:
		return views.Loading()
	case KindRedirect:
		return views.Redirect(in.Target, in.ReturnTo)
	default:
		return views.Children()
	}
}

// Render evaluates g and selects the matching view. It is the wrapper form
// of the guard: Children is only invoked when the intent is render.
func Render[V any](g Guard, state auth.AuthState, location string, views Views[V]) V {
	return Select(g.Evaluate(state, location), views)
}
