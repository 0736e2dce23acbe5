// Package errors maps errors onto short class names for metric tags.
package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strings"
)

// Classify returns a metric-safe class for err. Context and network failures
// get fixed names; anything else is named after its innermost concrete type,
// e.g. "pgconn_pgerror".
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case goerrors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) {
		if netErr.Timeout() {
			return "net_timeout"
		}
		return "net_error"
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.String() == "" {
		return "unknown"
	}
	return strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
}
