package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vango-dev/consoleroutes/pkg/routepath"
)

// checkRoute validates a single declaration against its compiled record.
func checkRoute(r Route, rec *Record) []error {
	var problems []error

	parts, err := routepath.Canonicalize(rec.Path)
	switch {
	case err != nil:
		problems = append(problems, fmt.Errorf("route %q: %w", rec.Path, err))
	case parts.Query != "" || parts.Hash != "":
		problems = append(problems, fmt.Errorf("route %q: pattern must not contain a query or fragment", rec.Path))
	case parts.Path != rec.Path:
		problems = append(problems, fmt.Errorf("route %q: pattern is not canonical (want %q)", rec.Path, parts.Path))
	}

	if r.Redirect != "" && r.RedirectName != "" {
		problems = append(problems, fmt.Errorf("route %q: set either a redirect path or a redirect name, not both", rec.Path))
	}
	if r.IsRedirect() && r.Component != nil {
		problems = append(problems, fmt.Errorf("route %q: redirect entries carry no component", rec.Path))
	}
	if !r.IsRedirect() && r.Component == nil && len(r.Children) == 0 {
		problems = append(problems, fmt.Errorf("route %q: needs a component, a redirect or children", rec.Path))
	}
	return problems
}

// checkUnique reports duplicate names and duplicate paths. A path shared by
// a route and one of its descendants (an empty child path) is the default
// child, not a duplicate.
func checkUnique(records []*Record, caseSensitive bool) []error {
	var problems []error
	paths := make(map[string]*Record, len(records))
	names := make(map[string]*Record, len(records))

	for _, rec := range records {
		key := patternKey(rec.segments, caseSensitive)
		if prev, ok := paths[key]; ok && !isAncestor(prev, rec) && !isAncestor(rec, prev) {
			problems = append(problems, fmt.Errorf("duplicate path %q", rec.Path))
		} else if !ok {
			paths[key] = rec
		}

		if rec.Name == "" {
			continue
		}
		if prev, ok := names[rec.Name]; ok {
			problems = append(problems, fmt.Errorf("duplicate route name %q (%q and %q)", rec.Name, prev.Path, rec.Path))
			continue
		}
		names[rec.Name] = rec
	}
	return problems
}

// patternKey normalizes a pattern so equivalent patterns collide: param
// names are erased and, without case sensitivity, literals are folded.
func patternKey(segs []segment, caseSensitive bool) string {
	var b strings.Builder
	for _, seg := range segs {
		b.WriteByte('/')
		switch {
		case seg.catchAll:
			b.WriteByte('*')
		case seg.isParam():
			b.WriteString(":" + seg.paramType)
		case caseSensitive:
			b.WriteString(seg.literal)
		default:
			b.WriteString(strings.ToLower(seg.literal))
		}
	}
	return b.String()
}

func isAncestor(a, b *Record) bool {
	for p := b.Parent; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

// checkRedirects verifies that every redirect lands on a renderable route.
// Targets with placeholders depend on the request and are only checked for
// params the redirect entry can supply.
func (m *matcher) checkRedirects() []error {
	var problems []error
	for _, rec := range m.records {
		if !rec.IsRedirect() {
			continue
		}

		var target []segment
		if rec.RedirectName != "" {
			named, ok := m.byName[rec.RedirectName]
			if !ok {
				problems = append(problems, fmt.Errorf("route %q: %w: %q", rec.Path, ErrUnknownName, rec.RedirectName))
				continue
			}
			target = named.segments
		} else {
			raw, _ := splitSuffix(rec.Redirect)
			segs, err := parsePattern(raw)
			if err != nil {
				problems = append(problems, fmt.Errorf("route %q: redirect target: %w", rec.Path, err))
				continue
			}
			target = segs
		}

		if hasParams(target) {
			if missing := missingParams(target, rec.segments); len(missing) > 0 {
				problems = append(problems, fmt.Errorf("route %q: %w: redirect target needs %s", rec.Path, ErrMissingParam, strings.Join(missing, ", ")))
			}
			continue
		}

		path, err := fillPattern(target, nil)
		if err == nil {
			_, err = m.resolve(path)
		}
		switch {
		case errors.Is(err, ErrNoMatch):
			problems = append(problems, fmt.Errorf("route %q: redirect target %q matches no route", rec.Path, path))
		case err != nil:
			problems = append(problems, fmt.Errorf("route %q: %w", rec.Path, err))
		}
	}
	return problems
}

func missingParams(target, source []segment) []string {
	have := make(map[string]bool)
	for _, seg := range source {
		if seg.isParam() {
			have[seg.param] = true
		}
	}
	var missing []string
	for _, seg := range target {
		if seg.isParam() && !have[seg.param] {
			missing = append(missing, seg.param)
		}
	}
	return missing
}
