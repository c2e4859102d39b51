package router

import (
	"context"
	"errors"
)

// Pusher performs a navigation to a path.
type Pusher interface {
	Push(ctx context.Context, to string) (*Location, error)
}

// PushFunc is a function adapter for Pusher.
type PushFunc func(ctx context.Context, to string) (*Location, error)

// Push implements Pusher.
func (f PushFunc) Push(ctx context.Context, to string) (*Location, error) {
	return f(ctx, to)
}

// IgnoreDuplicates wraps a Pusher so that navigating to the location that
// is already current is not reported as an error. The duplicate failure is
// returned as an ordinary result: the current location with Failure set to
// the error value. Every other failure propagates unchanged.
func IgnoreDuplicates(p Pusher) Pusher {
	return PushFunc(func(ctx context.Context, to string) (*Location, error) {
		loc, err := p.Push(ctx, to)
		if err == nil {
			return loc, nil
		}

		var nf *NavigationError
		if !errors.As(err, &nf) || nf.Kind != Duplicated {
			return loc, err
		}

		result := &Location{Path: to, FullPath: to}
		switch {
		case nf.From != nil:
			result = nf.From.clone()
		case nf.To != nil:
			result = nf.To.clone()
		}
		result.Failure = err
		return result, nil
	})
}
