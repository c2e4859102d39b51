package router

import (
	"context"
	"errors"
	"fmt"
)

// Guard runs before a navigation commits. Returning nil lets the navigation
// continue, RedirectTo sends it elsewhere and any other error aborts it.
type Guard interface {
	Before(ctx context.Context, to, from *Location) error
}

// GuardFunc is a function adapter for Guard.
type GuardFunc func(ctx context.Context, to, from *Location) error

// Before implements Guard.
func (f GuardFunc) Before(ctx context.Context, to, from *Location) error {
	return f(ctx, to, from)
}

// AfterHook observes committed navigations.
type AfterHook func(to, from *Location)

// RedirectError is returned by a guard to send the navigation to another
// path.
type RedirectError struct {
	Path string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("router: guard redirected to %q", e.Path)
}

// RedirectTo returns a guard result that redirects the navigation.
func RedirectTo(path string) error {
	return &RedirectError{Path: path}
}

// ComposeGuards runs guards in order, stopping at the first non-nil result.
func ComposeGuards(guards ...Guard) Guard {
	return GuardFunc(func(ctx context.Context, to, from *Location) error {
		for _, g := range guards {
			if err := g.Before(ctx, to, from); err != nil {
				return err
			}
		}
		return nil
	})
}

// Skip bypasses a guard when condition holds.
func Skip(condition func(to *Location) bool, g Guard) Guard {
	return GuardFunc(func(ctx context.Context, to, from *Location) error {
		if condition(to) {
			return nil
		}
		return g.Before(ctx, to, from)
	})
}

// Only runs a guard only when condition holds.
func Only(condition func(to *Location) bool, g Guard) Guard {
	return GuardFunc(func(ctx context.Context, to, from *Location) error {
		if !condition(to) {
			return nil
		}
		return g.Before(ctx, to, from)
	})
}

// RequireMeta aborts navigations whose matched routes declare key=value in
// their metadata unless allow reports true.
func RequireMeta(key, value string, allow func(ctx context.Context) bool) Guard {
	return Only(func(to *Location) bool {
		for _, rec := range to.Matched {
			if rec.Meta[key] == value {
				return true
			}
		}
		return false
	}, GuardFunc(func(ctx context.Context, to, from *Location) error {
		if allow(ctx) {
			return nil
		}
		return ErrAbort
	}))
}

// guardRedirect extracts a redirect request from a guard result.
func guardRedirect(err error) (string, bool) {
	var re *RedirectError
	if errors.As(err, &re) {
		return re.Path, true
	}
	return "", false
}
