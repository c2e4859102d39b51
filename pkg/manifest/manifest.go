package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/consoleroutes/internal/errors"
	"github.com/vango-dev/consoleroutes/pkg/router"
	"github.com/vango-dev/consoleroutes/pkg/views"
)

// Format is a manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// MaxSize bounds how much of a manifest source is read.
const MaxSize = 1 << 20

// Document is the top level of a manifest.
type Document struct {
	Routes []Entry `yaml:"routes" json:"routes"`
}

// Entry declares one route.
type Entry struct {
	Path         string            `yaml:"path" json:"path"`
	Name         string            `yaml:"name,omitempty" json:"name,omitempty"`
	Component    string            `yaml:"component,omitempty" json:"component,omitempty"`
	Title        string            `yaml:"title,omitempty" json:"title,omitempty"`
	Meta         map[string]string `yaml:"meta,omitempty" json:"meta,omitempty"`
	Redirect     string            `yaml:"redirect,omitempty" json:"redirect,omitempty"`
	RedirectName string            `yaml:"redirectName,omitempty" json:"redirectName,omitempty"`
	Children     []Entry           `yaml:"children,omitempty" json:"children,omitempty"`
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New("E204").WithDetail("Cannot tell the format of " + path)
}

// Decode unmarshals a manifest document. Unknown fields are errors.
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if err == io.EOF {
				return nil, errors.New("E201").WithDetail("The manifest is empty")
			}
			return nil, errors.New("E201").Wrap(err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.New("E201").Wrap(err)
		}
	default:
		return nil, errors.New("E204").WithDetail(fmt.Sprintf("Unknown format %q", format))
	}
	if len(doc.Routes) == 0 {
		return nil, errors.New("E201").
			WithDetail("The manifest declares no routes").
			WithSuggestion("Add a top-level routes list")
	}
	return &doc, nil
}

// Parse decodes a manifest and resolves its component ids against reg.
func Parse(data []byte, format Format, reg *views.Registry) ([]router.Route, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return doc.Build(reg)
}

// Build converts the document into route declarations. Every unknown
// component id is reported in one error.
func (d *Document) Build(reg *views.Registry) ([]router.Route, error) {
	var unknown []string
	routes := buildEntries(d.Routes, reg, &unknown)
	if len(unknown) > 0 {
		return nil, errors.New("E202").
			WithDetail("Unknown component ids: " + strings.Join(unknown, ", ")).
			WithSuggestion("Registered ids are: " + strings.Join(reg.IDs(), ", "))
	}
	return routes, nil
}

func buildEntries(entries []Entry, reg *views.Registry, unknown *[]string) []router.Route {
	if len(entries) == 0 {
		return nil
	}
	routes := make([]router.Route, 0, len(entries))
	for _, e := range entries {
		r := router.Route{
			Path:         e.Path,
			Name:         e.Name,
			Redirect:     e.Redirect,
			RedirectName: e.RedirectName,
			Children:     buildEntries(e.Children, reg, unknown),
		}
		if len(e.Meta) > 0 || e.Title != "" {
			r.Meta = make(router.Meta, len(e.Meta)+1)
			for k, v := range e.Meta {
				r.Meta[k] = v
			}
			if e.Title != "" {
				r.Meta[router.MetaTitle] = e.Title
			}
		}
		if e.Component != "" {
			if !reg.Has(e.Component) {
				*unknown = append(*unknown, e.Component)
			}
			r.Component = reg.Load(e.Component)
		}
		routes = append(routes, r)
	}
	return routes
}

// LoadFile reads and parses the manifest at path.
func LoadFile(path string, reg *views.Registry) ([]router.Route, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New("E200").Wrap(err)
	}
	defer f.Close()

	data, err := readLimited(f)
	if err != nil {
		return nil, err
	}
	return Parse(data, format, reg)
}

// Validate compiles routes into a throwaway table.
func Validate(routes []router.Route, opts ...router.Option) error {
	if _, err := router.New(routes, opts...); err != nil {
		return errors.New("E203").Wrap(err)
	}
	return nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, errors.New("E200").Wrap(err)
	}
	if len(data) > MaxSize {
		return nil, errors.New("E200").WithDetailf("The manifest is larger than %d bytes", MaxSize)
	}
	return data, nil
}
