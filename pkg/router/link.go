package router

import (
	"fmt"
	"net/url"
)

// URL builds the path of a named route. Params fill the route's
// placeholders; query, when non-empty, is appended encoded.
//
// Example:
//
//	table.URL("home", nil, nil)                              // "/Index/Home"
//	table.URL("project", map[string]string{"id": "7"}, nil) // "/projects/7"
func (t *Table) URL(name string, params map[string]string, query url.Values) (string, error) {
	rec, ok := t.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	path, err := fillPattern(rec.segments, params)
	if err != nil {
		return "", fmt.Errorf("route %q: %w", name, err)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path, nil
}

// MustURL is like URL but panics on error. It is meant for links to
// routes declared in code.
func (t *Table) MustURL(name string, params map[string]string) string {
	u, err := t.URL(name, params, nil)
	if err != nil {
		panic(err)
	}
	return u
}

func escapeSegment(s string) string {
	return url.PathEscape(s)
}
