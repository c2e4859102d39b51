package router

import (
	"context"
	"maps"
	"net/url"
	"sync"
)

// View is an opaque UI module a route renders.
type View interface {
	ViewName() string
}

// ComponentLoader resolves a route's view. Loaders are invoked when a
// navigation commits, not when the table is built.
type ComponentLoader func(ctx context.Context) (View, error)

// Lazy wraps a loader so a successful load is remembered. A failed load is
// not cached and is retried by the next caller.
func Lazy(load ComponentLoader) ComponentLoader {
	var (
		mu   sync.Mutex
		view View
	)
	return func(ctx context.Context) (View, error) {
		mu.Lock()
		defer mu.Unlock()
		if view != nil {
			return view, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		view = v
		return v, nil
	}
}

// Meta is free-form per-route metadata.
type Meta map[string]string

// MetaTitle is the metadata key holding a route's display title.
const MetaTitle = "title"

// Title returns the display title, or "".
func (m Meta) Title() string {
	return m[MetaTitle]
}

// Route declares one entry of a route table.
type Route struct {
	// Path is the URL pattern, relative to the parent for child routes.
	Path string

	// Name is an optional symbolic identifier, unique across the table.
	Name string

	// Component loads the view rendered for this route.
	Component ComponentLoader

	// Meta holds per-route metadata such as the display title.
	Meta Meta

	// Redirect aliases this entry to another path. Redirect entries carry
	// no component.
	Redirect string

	// RedirectName aliases this entry to a named route.
	RedirectName string

	// Children is the nested route table rendered inside this route.
	Children []Route
}

// IsRedirect reports whether the route aliases another route.
func (r Route) IsRedirect() bool {
	return r.Redirect != "" || r.RedirectName != ""
}

// Record is a compiled route: its absolute pattern, parsed segments and
// link to the enclosing route.
type Record struct {
	// Path is the absolute URL pattern.
	Path string

	// Name is the route name, or "".
	Name string

	// Meta is the route metadata.
	Meta Meta

	// Redirect is the absolute redirect target, or "".
	Redirect string

	// RedirectName is the redirect target's route name, or "".
	RedirectName string

	// Parent is the enclosing record, nil for top-level routes.
	Parent *Record

	component ComponentLoader
	segments  []segment
	catchAll  bool
}

// IsRedirect reports whether the record aliases another route.
func (r *Record) IsRedirect() bool {
	return r.Redirect != "" || r.RedirectName != ""
}

// HasComponent reports whether the record renders a view.
func (r *Record) HasComponent() bool {
	return r.component != nil
}

// Load resolves the record's view. Records without a component return a
// nil view and no error.
func (r *Record) Load(ctx context.Context) (View, error) {
	if r.component == nil {
		return nil, nil
	}
	return r.component(ctx)
}

// chain returns the records from the root down to r.
func (r *Record) chain() []*Record {
	depth := 0
	for p := r; p != nil; p = p.Parent {
		depth++
	}
	out := make([]*Record, depth)
	for p := r; p != nil; p = p.Parent {
		depth--
		out[depth] = p
	}
	return out
}

// Location is a resolved navigation target.
type Location struct {
	// Name is the matched route's name.
	Name string `json:"name,omitempty"`

	// Path is the canonical requested path.
	Path string `json:"path"`

	// FullPath is Path plus the normalized query and hash.
	FullPath string `json:"fullPath"`

	// Query holds the parsed query string.
	Query url.Values `json:"query,omitempty"`

	// Hash is the fragment without "#".
	Hash string `json:"hash,omitempty"`

	// Params are the extracted route parameters.
	Params map[string]string `json:"params,omitempty"`

	// Meta is the matched route's metadata.
	Meta Meta `json:"meta,omitempty"`

	// Matched lists the matched records from the outermost route to the
	// leaf.
	Matched []*Record `json:"-"`

	// Views are the loaded views, aligned with Matched. Only set on
	// locations returned by a Navigator.
	Views []View `json:"-"`

	// RedirectedFrom is the full path originally requested when a redirect
	// was followed.
	RedirectedFrom string `json:"redirectedFrom,omitempty"`

	// Failure carries a suppressed navigation failure. See IgnoreDuplicates.
	Failure error `json:"-"`
}

// Record returns the leaf matched record, or nil.
func (l *Location) Record() *Record {
	if l == nil || len(l.Matched) == 0 {
		return nil
	}
	return l.Matched[len(l.Matched)-1]
}

// Title returns the matched route's display title.
func (l *Location) Title() string {
	if l == nil {
		return ""
	}
	return l.Meta.Title()
}

// Bind populates a struct with the location's params.
// The target must be a pointer to a struct with `param` tags.
func (l *Location) Bind(target any) error {
	return NewParamParser().Parse(l.Params, target)
}

// clone returns a shallow copy safe to annotate.
func (l *Location) clone() *Location {
	c := *l
	c.Meta = maps.Clone(l.Meta)
	c.Params = maps.Clone(l.Params)
	return &c
}
