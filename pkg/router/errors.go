package router

import (
	"errors"
	"fmt"
)

// Route table errors.
var (
	ErrNoMatch       = errors.New("router: no route matches path")
	ErrRedirectLoop  = errors.New("router: too many redirects")
	ErrInvalidRoute  = errors.New("router: invalid route declaration")
	ErrUnknownName   = errors.New("router: unknown route name")
	ErrMissingParam  = errors.New("router: missing route parameter")
	ErrAbort         = errors.New("router: navigation aborted")
	ErrHistoryBounds = errors.New("router: no history entry at offset")
)

// FailureKind classifies a navigation failure.
type FailureKind int

const (
	// Duplicated: the destination equals the current location.
	Duplicated FailureKind = iota + 1
	// Aborted: a guard stopped the navigation.
	Aborted
	// Cancelled: the context ended before the navigation committed.
	Cancelled
	// Redirected: guards kept redirecting past the redirect limit.
	Redirected
	// NotFound: the destination matches no route.
	NotFound
	// LoadFailed: a matched view could not be loaded.
	LoadFailed
	// Invalid: the destination is not an acceptable path.
	Invalid
)

func (k FailureKind) String() string {
	switch k {
	case Duplicated:
		return "duplicated"
	case Aborted:
		return "aborted"
	case Cancelled:
		return "cancelled"
	case Redirected:
		return "redirected"
	case NotFound:
		return "not_found"
	case LoadFailed:
		return "load_failed"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// NavigationError reports why a navigation did not commit.
type NavigationError struct {
	Kind FailureKind

	// Target is the path as requested.
	Target string

	// From is the location current when the navigation started, or nil.
	From *Location

	// To is the resolved destination, nil when resolution failed.
	To *Location

	// Err is the underlying cause, if any.
	Err error
}

func (e *NavigationError) Error() string {
	switch e.Kind {
	case Duplicated:
		return fmt.Sprintf("router: avoided redundant navigation to current location %q", e.Target)
	case Aborted:
		return fmt.Sprintf("router: navigation to %q aborted: %v", e.Target, e.Err)
	case Cancelled:
		return fmt.Sprintf("router: navigation to %q cancelled: %v", e.Target, e.Err)
	case Redirected:
		return fmt.Sprintf("router: navigation to %q redirected too many times", e.Target)
	case NotFound:
		return fmt.Sprintf("router: no route matches %q", e.Target)
	case LoadFailed:
		return fmt.Sprintf("router: loading views for %q: %v", e.Target, e.Err)
	default:
		return fmt.Sprintf("router: navigation to %q failed: %v", e.Target, e.Err)
	}
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// IsNavigationFailure reports whether err is a NavigationError of one of
// the given kinds. With no kinds, any NavigationError matches.
func IsNavigationFailure(err error, kinds ...FailureKind) bool {
	var nf *NavigationError
	if !errors.As(err, &nf) {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if nf.Kind == k {
			return true
		}
	}
	return false
}
