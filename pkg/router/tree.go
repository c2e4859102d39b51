package router

import (
	"fmt"
	"strings"

	"github.com/vango-dev/consoleroutes/pkg/routepath"
)

// segment is one parsed element of a route pattern.
type segment struct {
	// literal is the static text for non-param segments.
	literal string

	// param is the parameter name (without : or *).
	param string

	// paramType is the expected parameter type (int, uint, uuid, string).
	paramType string

	// catchAll consumes the rest of the path.
	catchAll bool
}

func (s segment) isParam() bool {
	return s.param != ""
}

// parsePattern splits an absolute pattern into segments.
func parsePattern(pattern string) ([]segment, error) {
	raw := routepath.Segments(pattern)
	segs := make([]segment, 0, len(raw))
	for i, seg := range raw {
		switch {
		case strings.HasPrefix(seg, "*"):
			if i != len(raw)-1 {
				return nil, fmt.Errorf("catch-all %q must be the last segment", seg)
			}
			name := seg[1:]
			if name == "" {
				name = "pathMatch"
			}
			segs = append(segs, segment{param: name, paramType: "[]string", catchAll: true})
		case strings.HasPrefix(seg, ":"):
			name, paramType := parseParamSegment(seg)
			if name == "" {
				return nil, fmt.Errorf("parameter segment %q has no name", seg)
			}
			if !knownParamType(paramType) {
				return nil, fmt.Errorf("parameter %q has unknown type %q", name, paramType)
			}
			segs = append(segs, segment{param: name, paramType: paramType})
		default:
			segs = append(segs, segment{literal: seg})
		}
	}
	return segs, nil
}

// parseParamSegment extracts name and type from a parameter segment.
// Input: ":id" or ":id:int" -> name="id", type="string" or "int"
func parseParamSegment(seg string) (name, paramType string) {
	seg = seg[1:]
	if idx := strings.Index(seg, ":"); idx != -1 {
		return seg[:idx], seg[idx+1:]
	}
	return seg, "string"
}

// matchSegments matches request segments against a record's pattern.
// Segments are decoded before comparison. Static segments compare
// case-insensitively unless caseSensitive is set, and param values are
// checked against their declared type.
func matchSegments(pattern []segment, path []string, caseSensitive bool) (map[string]string, bool) {
	var params map[string]string
	setParam := func(name, value string) {
		if params == nil {
			params = make(map[string]string)
		}
		params[name] = value
	}

	for i, seg := range pattern {
		if seg.catchAll {
			rest := make([]string, 0, len(path)-i)
			for _, raw := range path[i:] {
				decoded, err := routepath.DecodeSegment(raw, true)
				if err != nil {
					return nil, false
				}
				rest = append(rest, decoded)
			}
			setParam(seg.param, strings.Join(rest, "/"))
			return params, true
		}

		if i >= len(path) {
			return nil, false
		}

		value, err := routepath.DecodeSegment(path[i], false)
		if err != nil {
			return nil, false
		}

		if !seg.isParam() {
			if caseSensitive {
				if seg.literal != value {
					return nil, false
				}
			} else if !strings.EqualFold(seg.literal, value) {
				return nil, false
			}
			continue
		}

		if ValidateParam(value, seg.paramType) != nil {
			return nil, false
		}
		setParam(seg.param, value)
	}

	if len(pattern) != len(path) {
		return nil, false
	}
	return params, true
}

// fillPattern substitutes params into a pattern, producing a concrete path.
func fillPattern(pattern []segment, params map[string]string) (string, error) {
	parts := make([]string, 0, len(pattern))
	for _, seg := range pattern {
		if !seg.isParam() {
			parts = append(parts, seg.literal)
			continue
		}
		value, ok := params[seg.param]
		if !ok || (value == "" && !seg.catchAll) {
			return "", fmt.Errorf("%w: %q", ErrMissingParam, seg.param)
		}
		if seg.catchAll {
			for _, p := range strings.Split(value, "/") {
				if p != "" {
					parts = append(parts, escapeSegment(p))
				}
			}
			continue
		}
		if err := ValidateParam(value, seg.paramType); err != nil {
			return "", fmt.Errorf("param %q: %w", seg.param, err)
		}
		parts = append(parts, escapeSegment(value))
	}
	return "/" + strings.Join(parts, "/"), nil
}

// hasParams reports whether a pattern contains any parameter segment.
func hasParams(pattern []segment) bool {
	for _, seg := range pattern {
		if seg.isParam() {
			return true
		}
	}
	return false
}
