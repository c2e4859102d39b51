// Package routepath normalizes the URL paths used to declare and navigate
// console routes.
package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Parts is a navigation target split into its components.
type Parts struct {
	// Path is the canonical path, always starting with "/".
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Hash is the fragment without the leading "#".
	Hash string

	// Changed reports whether canonicalization rewrote the path.
	Changed bool
}

// FullPath rebuilds path, query and hash into a single string.
func (p Parts) FullPath() string {
	var b strings.Builder
	b.WriteString(p.Path)
	if p.Query != "" {
		b.WriteByte('?')
		b.WriteString(p.Query)
	}
	if p.Hash != "" {
		b.WriteByte('#')
		b.WriteString(p.Hash)
	}
	return b.String()
}

// Path canonicalization errors.
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
	ErrEncodedSlash         = errors.New("encoded slash (%2F) in path segment")
)

// Canonicalize normalizes a navigation target.
//
// Multiple slashes collapse, "." segments drop, ".." segments pop their
// parent and a trailing slash is removed (except for "/"). Backslashes, NUL
// bytes, malformed percent escapes and ".." above the root are rejected.
// The query and fragment are split off and kept verbatim.
func Canonicalize(input string) (Parts, error) {
	if input == "" {
		return Parts{Path: "/", Changed: true}, nil
	}

	rest, hash, _ := strings.Cut(input, "#")
	path, query, _ := strings.Cut(rest, "?")

	if strings.Contains(path, "\\") {
		return Parts{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Parts{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return Parts{}, err
		}
	}

	kept := make([]string, 0, strings.Count(path, "/")+1)
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(kept) == 0 {
				return Parts{}, ErrPathEscapesRoot
			}
			kept = kept[:len(kept)-1]
		default:
			kept = append(kept, seg)
		}
	}

	clean := "/" + strings.Join(kept, "/")
	return Parts{
		Path:    clean,
		Query:   query,
		Hash:    hash,
		Changed: clean != path,
	}, nil
}

// ValidateNavPath canonicalizes a path supplied by a navigation request.
// Only same-origin relative paths are accepted: absolute URLs and
// protocol-relative "//host" forms are rejected.
func ValidateNavPath(input string) (Parts, error) {
	if strings.HasPrefix(input, "//") || strings.Contains(input, "://") {
		return Parts{}, ErrInvalidPath
	}
	if !strings.HasPrefix(input, "/") {
		return Parts{}, ErrInvalidPath
	}
	return Canonicalize(input)
}

// Join appends a child pattern to a parent pattern. A leading slash on the
// child is treated as a separator, so Join("/Index", "/Home") and
// Join("/Index", "Home") are both "/Index/Home". An empty child yields the
// parent itself.
func Join(parent, child string) string {
	child = strings.Trim(child, "/")
	parent = strings.TrimRight(parent, "/")
	if child == "" {
		if parent == "" {
			return "/"
		}
		return parent
	}
	return parent + "/" + child
}

// Segments splits a canonical path into its raw segments.
func Segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// DecodeSegment unescapes a single segment. Outside catch-all captures a
// decoded "/" indicates path smuggling and is rejected.
func DecodeSegment(segment string, isCatchAll bool) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if !isCatchAll && strings.Contains(decoded, "/") {
		return "", ErrEncodedSlash
	}
	return decoded, nil
}

func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
