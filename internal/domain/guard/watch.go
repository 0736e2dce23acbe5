package guard

import (
	"context"

	"github.com/target/storefront-gate/internal/domain/auth"
)

// Watch re-evaluates g for location on every state received from states and
// emits the resulting intent. Consecutive identical intents are collapsed so a
// redirect is issued once per change, not once per state push.
//
// The returned channel is closed when ctx is done or states is closed.
func Watch(ctx context.Context, g Guard, location string, states <-chan auth.AuthState) <-chan Intent {
	out := make(chan Intent, 1)
	go func() {
		defer close(out)
		var (
			last Intent
			seen bool
		)
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-states:
				if !ok {
					return
				}
				in := g.Evaluate(s, location)
				if seen && in == last {
					continue
				}
				last, seen = in, true
				select {
				case out <- in:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
