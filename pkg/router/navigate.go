package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/consoleroutes/pkg/routepath"
)

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithGuards appends guards run, in order, before every navigation.
func WithGuards(guards ...Guard) NavigatorOption {
	return func(n *Navigator) {
		n.guards = append(n.guards, guards...)
	}
}

// WithAfterHooks appends hooks run after every committed navigation.
func WithAfterHooks(hooks ...AfterHook) NavigatorOption {
	return func(n *Navigator) {
		n.after = append(n.after, hooks...)
	}
}

// WithNavigatorLogger sets the navigator's logger.
func WithNavigatorLogger(l *slog.Logger) NavigatorOption {
	return func(n *Navigator) {
		n.logger = l
	}
}

type navMode int

const (
	modePush navMode = iota
	modeReplace
	modeGo
)

// Navigator tracks the current location and an in-memory history stack
// over a Table. Navigations on one Navigator are serialized.
type Navigator struct {
	table  *Table
	guards []Guard
	after  []AfterHook
	logger *slog.Logger

	navMu sync.Mutex // serializes navigations

	mu      sync.RWMutex
	history []*Location
	index   int
}

// NewNavigator creates a navigator with no current location.
func NewNavigator(table *Table, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		table: table,
		index: -1,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	return n
}

// Table returns the route table the navigator resolves against.
func (n *Navigator) Table() *Table {
	return n.table
}

// Current returns the current location, or nil before the first navigation.
func (n *Navigator) Current() *Location {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.index < 0 {
		return nil
	}
	return n.history[n.index]
}

// History returns a copy of the history stack and the current index.
func (n *Navigator) History() ([]*Location, int) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Location, len(n.history))
	copy(out, n.history)
	return out, n.index
}

// Push navigates to a path, adding a history entry.
func (n *Navigator) Push(ctx context.Context, to string) (*Location, error) {
	n.navMu.Lock()
	defer n.navMu.Unlock()
	return n.navigate(ctx, to, modePush, 0)
}

// Replace navigates to a path, replacing the current history entry.
func (n *Navigator) Replace(ctx context.Context, to string) (*Location, error) {
	n.navMu.Lock()
	defer n.navMu.Unlock()
	return n.navigate(ctx, to, modeReplace, 0)
}

// Go moves delta entries through history. The destination is resolved
// against the live table again, so entries recorded before a Reset no
// longer match.
func (n *Navigator) Go(ctx context.Context, delta int) (*Location, error) {
	n.navMu.Lock()
	defer n.navMu.Unlock()

	n.mu.RLock()
	target := n.index + delta
	if n.index < 0 || target < 0 || target >= len(n.history) {
		n.mu.RUnlock()
		return nil, fmt.Errorf("%w: %d", ErrHistoryBounds, delta)
	}
	path := n.history[target].FullPath
	n.mu.RUnlock()

	return n.navigate(ctx, path, modeGo, target)
}

// Back is Go(ctx, -1).
func (n *Navigator) Back(ctx context.Context) (*Location, error) {
	return n.Go(ctx, -1)
}

// Forward is Go(ctx, 1).
func (n *Navigator) Forward(ctx context.Context) (*Location, error) {
	return n.Go(ctx, 1)
}

// navigate runs the navigation pipeline. Callers hold navMu.
func (n *Navigator) navigate(ctx context.Context, to string, mode navMode, goIndex int) (*Location, error) {
	from := n.Current()
	loc, err := n.resolve(ctx, to, from, mode)
	if err != nil {
		n.logger.Debug("navigation failed", "to", to, "error", err)
		return nil, err
	}

	views, err := loadViews(ctx, loc)
	if err != nil {
		kind := LoadFailed
		if ctx.Err() != nil {
			kind, err = Cancelled, ctx.Err()
		}
		return nil, &NavigationError{Kind: kind, Target: to, From: from, To: loc, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &NavigationError{Kind: Cancelled, Target: to, From: from, To: loc, Err: err}
	}
	loc.Views = views

	n.mu.Lock()
	switch mode {
	case modePush:
		n.history = append(n.history[:n.index+1], loc)
		n.index++
	case modeReplace:
		if n.index < 0 {
			n.history = append(n.history, loc)
			n.index = 0
		} else {
			n.history[n.index] = loc
		}
	case modeGo:
		n.history[goIndex] = loc
		n.index = goIndex
	}
	n.mu.Unlock()

	n.logger.Debug("navigation committed", "to", loc.FullPath, "name", loc.Name)
	for _, hook := range n.after {
		hook(loc, from)
	}
	return loc, nil
}

// resolve matches the target, rejects duplicates and runs guards, following
// guard redirects up to the table's redirect limit.
func (n *Navigator) resolve(ctx context.Context, to string, from *Location, mode navMode) (*Location, error) {
	target := to
	var redirectedFrom string

	for redirects := 0; ; redirects++ {
		parts, err := routepath.ValidateNavPath(target)
		if err != nil {
			return nil, &NavigationError{Kind: Invalid, Target: target, From: from, Err: err}
		}

		loc, err := n.table.Match(parts.FullPath())
		if err != nil {
			kind := Invalid
			if errors.Is(err, ErrNoMatch) {
				kind = NotFound
			}
			return nil, &NavigationError{Kind: kind, Target: target, From: from, Err: err}
		}
		if loc.RedirectedFrom == "" {
			loc.RedirectedFrom = redirectedFrom
		}

		if mode != modeGo && isSameRoute(from, loc) {
			return nil, &NavigationError{Kind: Duplicated, Target: target, From: from, To: loc}
		}

		err = n.runGuards(ctx, loc, from)
		if err == nil {
			return loc, nil
		}
		path, ok := guardRedirect(err)
		if !ok {
			return nil, &NavigationError{Kind: Aborted, Target: target, From: from, To: loc, Err: err}
		}
		if redirects >= n.table.opts.maxRedirects {
			return nil, &NavigationError{Kind: Redirected, Target: to, From: from, Err: ErrRedirectLoop}
		}
		if redirectedFrom == "" {
			redirectedFrom = loc.FullPath
		}
		target = path
	}
}

func (n *Navigator) runGuards(ctx context.Context, to, from *Location) error {
	for _, g := range n.guards {
		if err := g.Before(ctx, to, from); err != nil {
			return err
		}
	}
	return nil
}

// loadViews loads every matched view concurrently.
func loadViews(ctx context.Context, loc *Location) ([]View, error) {
	views := make([]View, len(loc.Matched))
	g, gctx := errgroup.WithContext(ctx)
	for i, rec := range loc.Matched {
		if !rec.HasComponent() {
			continue
		}
		i, rec := i, rec
		g.Go(func() error {
			v, err := rec.Load(gctx)
			if err != nil {
				return fmt.Errorf("view for %q: %w", rec.Path, err)
			}
			views[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// isSameRoute reports whether loc is the location already current: same
// full path resolved to the same route pattern and name. Records are
// compared by value so a recompiled table still detects duplicates.
func isSameRoute(current, loc *Location) bool {
	if current == nil || loc == nil {
		return false
	}
	cr, lr := current.Record(), loc.Record()
	if cr == nil || lr == nil {
		return false
	}
	return current.FullPath == loc.FullPath && cr.Path == lr.Path && cr.Name == lr.Name
}
