package historyserver

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/consoleroutes/internal/errors"
	"github.com/vango-dev/consoleroutes/pkg/router"
)

// RouteNode is one route in the /api/routes tree.
type RouteNode struct {
	Path         string            `json:"path"`
	Name         string            `json:"name,omitempty"`
	Title        string            `json:"title,omitempty"`
	Meta         map[string]string `json:"meta,omitempty"`
	Redirect     string            `json:"redirect,omitempty"`
	RedirectName string            `json:"redirectName,omitempty"`
	Component    bool              `json:"component"`
	Children     []*RouteNode      `json:"children,omitempty"`
}

// Tree returns the table's records nested under their parents, siblings in
// match order.
func Tree(t *router.Table) []*RouteNode {
	records := t.Records()
	nodes := make(map[*router.Record]*RouteNode, len(records))
	for _, rec := range records {
		nodes[rec] = &RouteNode{
			Path:         rec.Path,
			Name:         rec.Name,
			Title:        rec.Meta.Title(),
			Meta:         rec.Meta,
			Redirect:     rec.Redirect,
			RedirectName: rec.RedirectName,
			Component:    rec.HasComponent(),
		}
	}

	// Every node exists before linking, so a parent recorded after its
	// children is still found.
	var roots []*RouteNode
	for _, rec := range records {
		node := nodes[rec]
		if rec.Parent == nil {
			roots = append(roots, node)
			continue
		}
		parent := nodes[rec.Parent]
		parent.Children = append(parent.Children, node)
	}
	return roots
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err *errors.ConsoleError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(err.FormatJSON()))
}

// codedError maps a table or navigation error to a coded error and status.
func codedError(err error) (*errors.ConsoleError, int) {
	switch {
	case stderrors.Is(err, router.ErrRedirectLoop):
		return errors.New("E302").Wrap(err), http.StatusLoopDetected
	case stderrors.Is(err, router.ErrNoMatch), router.IsNavigationFailure(err, router.NotFound):
		return errors.New("E300").Wrap(err), http.StatusNotFound
	case router.IsNavigationFailure(err, router.Invalid):
		return errors.New("E301").Wrap(err), http.StatusBadRequest
	case router.IsNavigationFailure(err):
		return errors.New("E303").Wrap(err), http.StatusConflict
	default:
		// Path canonicalization errors.
		return errors.New("E301").Wrap(err), http.StatusBadRequest
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"records":     s.table.Len(),
		"connections": s.hub.count(),
	})
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	tree := Tree(s.table)
	if tree == nil {
		tree = []*RouteNode{}
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, errors.New("E301").WithDetail("The path query parameter is required"))
		return
	}
	loc, err := s.table.Match(path)
	if err != nil {
		ce, status := codedError(err)
		writeError(w, status, ce)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

// handleURL builds the URL of a named route; query values other than
// "query" fill its params.
func (s *Server) handleURL(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	params := make(map[string]string)
	for k, v := range r.URL.Query() {
		if k != "query" && len(v) > 0 {
			params[k] = v[0]
		}
	}
	var query url.Values
	if raw := r.URL.Query().Get("query"); raw != "" {
		q, err := url.ParseQuery(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("E301").Wrap(err))
			return
		}
		query = q
	}

	u, err := s.table.URL(name, params, query)
	if err != nil {
		status := http.StatusBadRequest
		if stderrors.Is(err, router.ErrUnknownName) {
			status = http.StatusNotFound
		}
		writeError(w, status, errors.New("E300").Wrap(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": u})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// handleFallback serves the shell for any path the table resolves, so
// deep links work in history mode.
func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	loc, err := s.table.Match(r.URL.RequestURI())
	if err != nil {
		ce, status := codedError(err)
		http.Error(w, ce.FormatCompact(), status)
		return
	}
	if loc.RedirectedFrom != "" {
		http.Redirect(w, r, loc.FullPath, http.StatusFound)
		return
	}
	s.serveShell(w, r)
}

func (s *Server) serveShell(w http.ResponseWriter, r *http.Request) {
	if s.shell == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(defaultShell))
		return
	}
	data, err := os.ReadFile(s.shell)
	if err != nil {
		s.logger.Error("reading shell", "path", s.shell, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

const defaultShell = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>console</title></head>
<body><div id="app"></div></body>
</html>
`
