package guard

import (
	"encoding/json"
	"fmt"
)

// Kind tags the variant held by an Intent.
type Kind int

const (
	// KindLoading asks the caller to show a placeholder and wait for the next state.
	KindLoading Kind = iota + 1
	// KindRedirect asks the caller to navigate to Intent.Target.
	KindRedirect
	// KindRender lets the guarded view render.
	KindRender
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindRedirect:
		return "redirect"
	case KindRender:
		return "render"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Intent is the navigation instruction produced by a guard evaluation.
// Exactly one variant is set; callers switch on Kind exhaustively.
//
// ReturnTo is only set on the login redirect and names the location the
// identity flow should resume at after a successful sign-in.
type Intent struct {
	Kind     Kind
	Target   string
	ReturnTo string
}

// ShowLoading is the intent for an unresolved auth state.
func ShowLoading() Intent { return Intent{Kind: KindLoading} }

// RenderChildren is the intent for an authorized request.
func RenderChildren() Intent { return Intent{Kind: KindRender} }

// RedirectTo builds a redirect intent. returnTo may be empty.
func RedirectTo(target, returnTo string) Intent {
	return Intent{Kind: KindRedirect, Target: target, ReturnTo: returnTo}
}

// IsRedirect reports whether the intent is a redirect.
func (i Intent) IsRedirect() bool { return i.Kind == KindRedirect }

func (i Intent) String() string {
	switch i.Kind {
	case KindRedirect:
		if i.ReturnTo != "" {
			return fmt.Sprintf("redirect(%s, return_to=%s)", i.Target, i.ReturnTo)
		}
		return fmt.Sprintf("redirect(%s)", i.Target)
	default:
		return i.Kind.String()
	}
}

type intentJSON struct {
	Kind     Kind   `json:"kind"`
	Target   string `json:"target,omitempty"`
	ReturnTo string `json:"return_to,omitempty"`
}

// MarshalJSON renders the intent as {"kind":...,"target":...,"return_to":...}.
func (i Intent) MarshalJSON() ([]byte, error) {
	return json.Marshal(intentJSON(i))
}

// Outcome names the branch a single evaluation ended in.
// Every outcome is terminal for that evaluation.
type Outcome int

const (
	OutcomeLoading Outcome = iota + 1
	OutcomeUnauthenticated
	OutcomeAuthorizedNoRoleCheck
	OutcomeAuthorizedRoleOK
	OutcomeAuthorizedRoleDenied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "loading"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeAuthorizedNoRoleCheck:
		return "authorized_no_role_check"
	case OutcomeAuthorizedRoleOK:
		return "authorized_role_ok"
	case OutcomeAuthorizedRoleDenied:
		return "authorized_role_denied"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Decision pairs the intent with the branch that produced it.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Intent  Intent  `json:"intent"`
}
