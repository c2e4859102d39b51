package router

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/consoleroutes/pkg/routepath"
)

// DefaultMaxRedirects bounds how many redirect entries a single resolution
// may follow.
const DefaultMaxRedirects = 10

// Option configures a Table.
type Option func(*options)

type options struct {
	caseSensitive bool
	rootRelative  bool
	maxRedirects  int
	logger        *slog.Logger
}

// CaseSensitive makes static segments match case-sensitively.
func CaseSensitive() Option {
	return func(o *options) {
		o.caseSensitive = true
	}
}

// RootRelativeChildren anchors child paths and redirect targets that start
// with "/" at the root instead of joining them under the parent.
func RootRelativeChildren() Option {
	return func(o *options) {
		o.rootRelative = true
	}
}

// MaxRedirects sets the redirect limit (default: DefaultMaxRedirects).
func MaxRedirects(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRedirects = n
		}
	}
}

// WithLogger sets the logger used for table swaps.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Table is a live route table. Lookups are lock-free; Reset, AddRoutes and
// Replace build a new matcher and swap it in atomically.
type Table struct {
	live   atomic.Pointer[matcher]
	mu     sync.Mutex // serializes writers
	opts   options
	logger *slog.Logger
}

// New compiles routes into a table. Every problem in the declaration is
// reported, joined under ErrInvalidRoute.
func New(routes []Route, opts ...Option) (*Table, error) {
	o := options{maxRedirects: DefaultMaxRedirects}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	m, err := compile(routes, o)
	if err != nil {
		return nil, err
	}

	t := &Table{opts: o, logger: o.logger}
	t.live.Store(m)
	return t, nil
}

// Match resolves a path to its route, following redirect entries.
func (t *Table) Match(path string) (*Location, error) {
	return t.live.Load().resolve(path)
}

// ResolveName resolves a named route with the given params and query.
func (t *Table) ResolveName(name string, params map[string]string, query url.Values) (*Location, error) {
	return t.live.Load().resolveName(name, params, query)
}

// Lookup returns the record registered under name.
func (t *Table) Lookup(name string) (*Record, bool) {
	rec, ok := t.live.Load().byName[name]
	return rec, ok
}

// Reset discards every registered route. Until routes are registered again
// no path matches.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	previous := len(t.live.Load().records)
	t.live.Store(emptyMatcher(t.opts))
	t.logger.Info("route table reset", "previous_records", previous)
}

// AddRoutes registers routes after the ones already declared.
// On error the live table is left unchanged.
func (t *Table) AddRoutes(routes ...Route) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.live.Load().routes
	next := make([]Route, 0, len(current)+len(routes))
	next = append(next, current...)
	next = append(next, routes...)

	m, err := compile(next, t.opts)
	if err != nil {
		return err
	}
	t.live.Store(m)
	t.logger.Info("routes added", "added", len(routes), "records", len(m.records))
	return nil
}

// Replace swaps the whole declaration. On error the live table is left
// unchanged.
func (t *Table) Replace(routes []Route) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, err := compile(routes, t.opts)
	if err != nil {
		return err
	}
	t.live.Store(m)
	t.logger.Info("route table replaced", "records", len(m.records))
	return nil
}

// Routes returns the current declaration.
func (t *Table) Routes() []Route {
	routes := t.live.Load().routes
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

// Records returns the compiled records in match order.
func (t *Table) Records() []*Record {
	records := t.live.Load().records
	out := make([]*Record, len(records))
	copy(out, records)
	return out
}

// Len returns the number of compiled records.
func (t *Table) Len() int {
	return len(t.live.Load().records)
}

// matcher is an immutable compiled route table.
type matcher struct {
	routes        []Route
	records       []*Record
	byName        map[string]*Record
	caseSensitive bool
	maxRedirects  int
}

func emptyMatcher(o options) *matcher {
	return &matcher{
		byName:        map[string]*Record{},
		caseSensitive: o.caseSensitive,
		maxRedirects:  o.maxRedirects,
	}
}

// compile flattens a declaration into records. Children are ordered before
// their parent and catch-all records after everything else, so the first
// matching record is the most specific declared one.
func compile(routes []Route, o options) (*matcher, error) {
	m := emptyMatcher(o)
	m.routes = make([]Route, len(routes))
	copy(m.routes, routes)

	var (
		problems  []error
		ordered   []*Record
		catchAlls []*Record
	)

	var add func(r Route, parent *Record)
	add = func(r Route, parent *Record) {
		rec := &Record{
			Path:         joinPattern(r.Path, parent, o.rootRelative),
			Name:         r.Name,
			Meta:         maps.Clone(r.Meta),
			RedirectName: r.RedirectName,
			Parent:       parent,
			component:    r.Component,
		}
		if r.Redirect != "" {
			target, suffix := splitSuffix(r.Redirect)
			rec.Redirect = joinPattern(target, parent, o.rootRelative) + suffix
		}

		problems = append(problems, checkRoute(r, rec)...)

		segs, err := parsePattern(rec.Path)
		if err != nil {
			problems = append(problems, fmt.Errorf("route %q: %w", rec.Path, err))
		}
		rec.segments = segs
		rec.catchAll = len(segs) > 0 && segs[len(segs)-1].catchAll

		for _, child := range r.Children {
			add(child, rec)
		}

		if rec.catchAll {
			catchAlls = append(catchAlls, rec)
		} else {
			ordered = append(ordered, rec)
		}
	}
	for _, r := range routes {
		add(r, nil)
	}

	m.records = append(ordered, catchAlls...)
	problems = append(problems, checkUnique(m.records, o.caseSensitive)...)

	for _, rec := range m.records {
		if rec.Name != "" {
			if _, exists := m.byName[rec.Name]; !exists {
				m.byName[rec.Name] = rec
			}
		}
	}

	// Redirect targets can only be checked against a structurally valid table.
	if len(problems) == 0 {
		problems = append(problems, m.checkRedirects()...)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoute, errors.Join(problems...))
	}
	return m, nil
}

// joinPattern computes a record's absolute pattern.
func joinPattern(path string, parent *Record, rootRelative bool) string {
	if parent == nil || (rootRelative && strings.HasPrefix(path, "/")) {
		return routepath.Join("", path)
	}
	return routepath.Join(parent.Path, path)
}

// splitSuffix separates a redirect target's path from its "?query#hash".
func splitSuffix(target string) (path, suffix string) {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		return target[:i], target[i:]
	}
	return target, ""
}

func (m *matcher) match(path string) (*Record, map[string]string) {
	segs := routepath.Segments(path)
	for _, rec := range m.records {
		if params, ok := matchSegments(rec.segments, segs, m.caseSensitive); ok {
			return rec, params
		}
	}
	return nil, nil
}

func (m *matcher) resolve(target string) (*Location, error) {
	parts, err := routepath.Canonicalize(target)
	if err != nil {
		return nil, err
	}

	var redirectedFrom string
	for hops := 0; ; hops++ {
		rec, params := m.match(parts.Path)
		if rec == nil {
			return nil, fmt.Errorf("%w: %q", ErrNoMatch, parts.Path)
		}
		if !rec.IsRedirect() {
			return newLocation(rec, params, parts, redirectedFrom), nil
		}
		if hops >= m.maxRedirects {
			return nil, fmt.Errorf("%w: %q", ErrRedirectLoop, target)
		}
		if redirectedFrom == "" {
			redirectedFrom = parts.FullPath()
		}
		parts, err = m.redirectTarget(rec, params, parts)
		if err != nil {
			return nil, err
		}
	}
}

// redirectTarget computes where a redirect record sends a request.
// Params captured by the redirect entry fill placeholders in the target;
// the original query and hash carry over when the target declares none.
func (m *matcher) redirectTarget(rec *Record, params map[string]string, from routepath.Parts) (routepath.Parts, error) {
	var (
		path   string
		suffix string
		err    error
	)
	if rec.RedirectName != "" {
		target, ok := m.byName[rec.RedirectName]
		if !ok {
			return routepath.Parts{}, fmt.Errorf("%w: %q", ErrUnknownName, rec.RedirectName)
		}
		path, err = fillPattern(target.segments, params)
	} else {
		var raw string
		raw, suffix = splitSuffix(rec.Redirect)
		var segs []segment
		if segs, err = parsePattern(raw); err == nil {
			path, err = fillPattern(segs, params)
		}
	}
	if err != nil {
		return routepath.Parts{}, fmt.Errorf("redirect from %q: %w", rec.Path, err)
	}

	next, err := routepath.Canonicalize(path + suffix)
	if err != nil {
		return routepath.Parts{}, err
	}
	if next.Query == "" && next.Hash == "" {
		next.Query, next.Hash = from.Query, from.Hash
	}
	return next, nil
}

func (m *matcher) resolveName(name string, params map[string]string, query url.Values) (*Location, error) {
	rec, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	path, err := fillPattern(rec.segments, params)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", name, err)
	}
	parts := routepath.Parts{Path: path, Query: query.Encode()}
	if rec.IsRedirect() {
		return m.resolve(parts.FullPath())
	}

	captured := make(map[string]string)
	for _, seg := range rec.segments {
		if seg.isParam() {
			captured[seg.param] = params[seg.param]
		}
	}
	if len(captured) == 0 {
		captured = nil
	}
	return newLocation(rec, captured, parts, ""), nil
}

func newLocation(rec *Record, params map[string]string, parts routepath.Parts, redirectedFrom string) *Location {
	// Malformed query pairs are dropped.
	query, _ := url.ParseQuery(parts.Query)
	normalized := routepath.Parts{Path: parts.Path, Query: query.Encode(), Hash: parts.Hash}
	return &Location{
		Name:           rec.Name,
		Path:           parts.Path,
		FullPath:       normalized.FullPath(),
		Query:          query,
		Hash:           parts.Hash,
		Params:         params,
		Meta:           maps.Clone(rec.Meta),
		Matched:        rec.chain(),
		RedirectedFrom: redirectedFrom,
	}
}
