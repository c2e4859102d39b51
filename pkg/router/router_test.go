package router

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type stubView string

func (v stubView) ViewName() string { return string(v) }

func stub(name string) ComponentLoader {
	return func(context.Context) (View, error) { return stubView(name), nil }
}

// consoleRoutes mirrors the shape of the scheduling console's table.
func consoleRoutes() []Route {
	return []Route{
		{Path: "/", Name: "login", Component: stub("Login")},
		{
			Path:      "/Index",
			Name:      "index",
			Component: stub("Index"),
			Children: []Route{
				{Path: "/Home", Name: "home", Meta: Meta{"title": "系统首页"}, Component: stub("Home")},
				{Path: "/ProcessManage", Name: "processManage", Meta: Meta{"title": "数据采集及处理"}, Component: stub("ProcessManage")},
				{Path: "/ScheduleAlgorithm", Name: "scheduleAlgorithm", Meta: Meta{"title": "流程分析资源调配"}, Component: stub("ScheduleRun")},
				{Path: "/Test", Redirect: "/ScheduleAlgorithm"},
			},
		},
	}
}

func mustTable(t *testing.T, routes []Route, opts ...Option) *Table {
	t.Helper()
	table, err := New(routes, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return table
}

func leafView(t *testing.T, loc *Location) string {
	t.Helper()
	v, err := loc.Record().Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if v == nil {
		return ""
	}
	return v.ViewName()
}

func TestTableMatchDeclaredPaths(t *testing.T) {
	table := mustTable(t, consoleRoutes())

	tests := []struct {
		path      string
		wantName  string
		wantView  string
		wantTitle string
		wantDepth int
	}{
		{"/", "login", "Login", "", 1},
		{"/Index", "index", "Index", "", 1},
		{"/Index/Home", "home", "Home", "系统首页", 2},
		{"/Index/ProcessManage", "processManage", "ProcessManage", "数据采集及处理", 2},
		{"/Index/ScheduleAlgorithm", "scheduleAlgorithm", "ScheduleRun", "流程分析资源调配", 2},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			loc, err := table.Match(tt.path)
			if err != nil {
				t.Fatalf("Match(%q) error: %v", tt.path, err)
			}
			if loc.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", loc.Name, tt.wantName)
			}
			if got := leafView(t, loc); got != tt.wantView {
				t.Errorf("view = %q, want %q", got, tt.wantView)
			}
			if loc.Title() != tt.wantTitle {
				t.Errorf("Title() = %q, want %q", loc.Title(), tt.wantTitle)
			}
			if len(loc.Matched) != tt.wantDepth {
				t.Errorf("len(Matched) = %d, want %d", len(loc.Matched), tt.wantDepth)
			}
		})
	}
}

func TestMatchedChainIsRootToLeaf(t *testing.T) {
	table := mustTable(t, consoleRoutes())
	loc, err := table.Match("/Index/Home")
	if err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, rec := range loc.Matched {
		paths = append(paths, rec.Path)
	}
	if diff := cmp.Diff([]string{"/Index", "/Index/Home"}, paths); diff != "" {
		t.Errorf("Matched paths (-want +got):\n%s", diff)
	}
}

func TestMatchNormalizesPath(t *testing.T) {
	table := mustTable(t, consoleRoutes())
	for _, p := range []string{"/Index//Home", "/Index/Home/", "Index/Home", "/Index/./Home"} {
		loc, err := table.Match(p)
		if err != nil {
			t.Fatalf("Match(%q) error: %v", p, err)
		}
		if loc.Name != "home" || loc.Path != "/Index/Home" {
			t.Errorf("Match(%q) = %q %q", p, loc.Name, loc.Path)
		}
	}
}

func TestMatchDecodesStaticSegments(t *testing.T) {
	table := mustTable(t, consoleRoutes())
	for _, p := range []string{"/Index/%48ome", "/%49ndex/Home", "/index/%68ome"} {
		loc, err := table.Match(p)
		if err != nil {
			t.Fatalf("Match(%q) error: %v", p, err)
		}
		if loc.Name != "home" {
			t.Errorf("Match(%q).Name = %q, want home", p, loc.Name)
		}
	}
	if _, err := table.Match("/Index%2FHome"); err == nil {
		t.Error("expected encoded slash to be rejected")
	}
}

func TestMatchReturnsIsolatedMeta(t *testing.T) {
	routes := consoleRoutes()
	table := mustTable(t, routes)

	loc, err := table.Match("/Index/Home")
	if err != nil {
		t.Fatal(err)
	}
	loc.Meta["title"] = "changed"
	routes[1].Children[0].Meta["title"] = "changed"

	again, err := table.Match("/Index/Home")
	if err != nil {
		t.Fatal(err)
	}
	if got := again.Title(); got != "系统首页" {
		t.Errorf("Title() after mutation = %q, want 系统首页", got)
	}
	if got := again.Record().Meta.Title(); got != "系统首页" {
		t.Errorf("record title after mutation = %q", got)
	}
}

func TestMatchCaseSensitivity(t *testing.T) {
	insensitive := mustTable(t, consoleRoutes())
	loc, err := insensitive.Match("/index/home")
	if err != nil {
		t.Fatalf("case-insensitive match failed: %v", err)
	}
	if loc.Name != "home" {
		t.Errorf("Name = %q, want home", loc.Name)
	}

	sensitive := mustTable(t, consoleRoutes(), CaseSensitive())
	if _, err := sensitive.Match("/index/home"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("case-sensitive Match error = %v, want ErrNoMatch", err)
	}
}

func TestMatchNoRoute(t *testing.T) {
	table := mustTable(t, consoleRoutes())
	for _, p := range []string{"/Home", "/Index/Missing", "/Index/Home/extra"} {
		if _, err := table.Match(p); !errors.Is(err, ErrNoMatch) {
			t.Errorf("Match(%q) error = %v, want ErrNoMatch", p, err)
		}
	}
}

func TestMatchInvalidPath(t *testing.T) {
	table := mustTable(t, consoleRoutes())
	if _, err := table.Match("/../etc"); err == nil {
		t.Error("expected error for path escaping root")
	}
}

func TestRedirectResolvesToTarget(t *testing.T) {
	table := mustTable(t, consoleRoutes())

	loc, err := table.Match("/Index/Test?run=3#chart")
	if err != nil {
		t.Fatalf("Match error: %v", err)
	}
	if loc.Name != "scheduleAlgorithm" {
		t.Errorf("Name = %q, want scheduleAlgorithm", loc.Name)
	}
	if loc.Record().IsRedirect() {
		t.Error("a redirect entry must never be the resolved record")
	}
	if got := leafView(t, loc); got != "ScheduleRun" {
		t.Errorf("view = %q, want ScheduleRun", got)
	}
	if loc.RedirectedFrom != "/Index/Test?run=3#chart" {
		t.Errorf("RedirectedFrom = %q", loc.RedirectedFrom)
	}
	if loc.FullPath != "/Index/ScheduleAlgorithm?run=3#chart" {
		t.Errorf("FullPath = %q", loc.FullPath)
	}
}

func TestRedirectVariants(t *testing.T) {
	routes := []Route{
		{Path: "/projects/:id:int", Name: "project", Component: stub("Project")},
		{Path: "/legacy/:id", Redirect: "/projects/:id"},
		{Path: "/start", RedirectName: "dash"},
		{Path: "/dash", Name: "dash", Component: stub("Dash")},
		{Path: "/hop1", Redirect: "/hop2"},
		{Path: "/hop2", Redirect: "/dash?from=hop"},
	}
	table := mustTable(t, routes)

	loc, err := table.Match("/legacy/42")
	if err != nil {
		t.Fatalf("Match(/legacy/42) error: %v", err)
	}
	if loc.Name != "project" || loc.Params["id"] != "42" {
		t.Errorf("param redirect = %q %v", loc.Name, loc.Params)
	}

	loc, err = table.Match("/start")
	if err != nil || loc.Name != "dash" {
		t.Errorf("named redirect = %v, %v", loc, err)
	}

	loc, err = table.Match("/hop1")
	if err != nil {
		t.Fatalf("chain error: %v", err)
	}
	if loc.Name != "dash" || loc.Query.Get("from") != "hop" || loc.RedirectedFrom != "/hop1" {
		t.Errorf("chain = %+v", loc)
	}

	if _, err := table.Match("/legacy/abc"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("typed param redirect error = %v, want ErrNoMatch", err)
	}
}

func TestRootRelativeChildren(t *testing.T) {
	table := mustTable(t, consoleRoutes(), RootRelativeChildren())

	loc, err := table.Match("/Home")
	if err != nil {
		t.Fatalf("Match(/Home) error: %v", err)
	}
	if loc.Name != "home" || len(loc.Matched) != 2 || loc.Matched[0].Name != "index" {
		t.Errorf("unexpected location %+v", loc)
	}
	if _, err := table.Match("/Index/Home"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Match(/Index/Home) error = %v, want ErrNoMatch", err)
	}

	loc, err = table.Match("/Test")
	if err != nil || loc.Name != "scheduleAlgorithm" {
		t.Errorf("root-relative redirect = %v, %v", loc, err)
	}
}

func TestDefaultChildAndOrdering(t *testing.T) {
	routes := []Route{
		{
			Path:      "/settings",
			Name:      "settings",
			Component: stub("SettingsLayout"),
			Children: []Route{
				{Path: "", Name: "settingsIndex", Component: stub("SettingsIndex")},
				{Path: ":section", Name: "section", Component: stub("Section")},
				{Path: "profile", Name: "profile", Component: stub("Profile")},
			},
		},
		{Path: "*rest", Name: "notFound", Component: stub("NotFound")},
		{Path: "/about", Name: "about", Component: stub("About")},
	}
	table := mustTable(t, routes)

	tests := []struct{ path, want string }{
		{"/settings", "settingsIndex"},
		// Declaration order wins: the param child precedes "profile".
		{"/settings/profile", "section"},
		// Catch-alls are tried last regardless of declaration order.
		{"/about", "about"},
		{"/anything/else", "notFound"},
	}
	for _, tt := range tests {
		loc, err := table.Match(tt.path)
		if err != nil {
			t.Fatalf("Match(%q) error: %v", tt.path, err)
		}
		if loc.Name != tt.want {
			t.Errorf("Match(%q) = %q, want %q", tt.path, loc.Name, tt.want)
		}
	}

	loc, _ := table.Match("/anything/else")
	if loc.Params["rest"] != "anything/else" {
		t.Errorf("catch-all param = %q", loc.Params["rest"])
	}
}

func TestResetEmptiesTable(t *testing.T) {
	table := mustTable(t, consoleRoutes())
	table.Reset()

	if table.Len() != 0 {
		t.Errorf("Len() = %d after Reset", table.Len())
	}
	for _, p := range []string{"/", "/Index", "/Index/Home", "/Index/Test"} {
		if _, err := table.Match(p); !errors.Is(err, ErrNoMatch) {
			t.Errorf("Match(%q) after Reset error = %v, want ErrNoMatch", p, err)
		}
	}
	if len(table.Routes()) != 0 {
		t.Error("Routes() should be empty after Reset")
	}

	if err := table.AddRoutes(consoleRoutes()...); err != nil {
		t.Fatalf("AddRoutes error: %v", err)
	}
	if loc, err := table.Match("/Index/Home"); err != nil || loc.Name != "home" {
		t.Errorf("Match after re-register = %v, %v", loc, err)
	}
}

func TestAddRoutesAppends(t *testing.T) {
	table := mustTable(t, consoleRoutes())
	if err := table.AddRoutes(Route{Path: "/help", Name: "help", Component: stub("Help")}); err != nil {
		t.Fatalf("AddRoutes error: %v", err)
	}
	if _, err := table.Match("/help"); err != nil {
		t.Errorf("Match(/help) error: %v", err)
	}
	if _, err := table.Match("/Index/Home"); err != nil {
		t.Errorf("existing routes lost: %v", err)
	}

	err := table.AddRoutes(Route{Path: "/other", Name: "help", Component: stub("Other")})
	if !errors.Is(err, ErrInvalidRoute) {
		t.Fatalf("duplicate name error = %v, want ErrInvalidRoute", err)
	}
	if _, err := table.Match("/other"); !errors.Is(err, ErrNoMatch) {
		t.Error("failed AddRoutes must leave the table unchanged")
	}
}

func TestReplaceKeepsTableOnError(t *testing.T) {
	table := mustTable(t, consoleRoutes())
	err := table.Replace([]Route{{Path: "/broken"}})
	if !errors.Is(err, ErrInvalidRoute) {
		t.Fatalf("Replace error = %v, want ErrInvalidRoute", err)
	}
	if _, err := table.Match("/Index/Home"); err != nil {
		t.Errorf("table changed after failed Replace: %v", err)
	}

	if err := table.Replace([]Route{{Path: "/only", Component: stub("Only")}}); err != nil {
		t.Fatalf("Replace error: %v", err)
	}
	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
}

func TestConcurrentResetAndMatch(t *testing.T) {
	table := mustTable(t, consoleRoutes())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				loc, err := table.Match("/Index/Home")
				if err == nil && loc.Name != "home" {
					t.Errorf("torn table: %q", loc.Name)
					return
				}
				if err != nil && !errors.Is(err, ErrNoMatch) {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				table.Reset()
				_ = table.Replace(consoleRoutes())
			}
		}()
	}
	wg.Wait()
}

func TestResolveNameAndURL(t *testing.T) {
	routes := append(consoleRoutes(), Route{Path: "/projects/:id:int/files/*path", Name: "file", Component: stub("File")})
	table := mustTable(t, routes)

	u, err := table.URL("home", nil, nil)
	if err != nil || u != "/Index/Home" {
		t.Errorf("URL(home) = %q, %v", u, err)
	}

	u, err = table.URL("file", map[string]string{"id": "7", "path": "docs/a b.txt"}, url.Values{"v": {"2"}})
	if err != nil {
		t.Fatalf("URL(file) error: %v", err)
	}
	if u != "/projects/7/files/docs/a%20b.txt?v=2" {
		t.Errorf("URL(file) = %q", u)
	}

	if _, err := table.URL("file", map[string]string{"path": "x"}, nil); !errors.Is(err, ErrMissingParam) {
		t.Errorf("missing param error = %v", err)
	}
	if _, err := table.URL("file", map[string]string{"id": "x", "path": "y"}, nil); err == nil {
		t.Error("expected type error for non-integer id")
	}
	if _, err := table.URL("nope", nil, nil); !errors.Is(err, ErrUnknownName) {
		t.Errorf("unknown name error = %v", err)
	}

	loc, err := table.ResolveName("file", map[string]string{"id": "7", "path": "a/b"}, nil)
	if err != nil {
		t.Fatalf("ResolveName error: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"id": "7", "path": "a/b"}, loc.Params); diff != "" {
		t.Errorf("params (-want +got):\n%s", diff)
	}
	if loc.Path != "/projects/7/files/a/b" {
		t.Errorf("Path = %q", loc.Path)
	}

	if got := table.MustURL("scheduleAlgorithm", nil); got != "/Index/ScheduleAlgorithm" {
		t.Errorf("MustURL = %q", got)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		routes []Route
		want   error
	}{
		{
			name:   "duplicate path",
			routes: []Route{{Path: "/a", Component: stub("A")}, {Path: "/A", Component: stub("B")}},
		},
		{
			name:   "duplicate name",
			routes: []Route{{Path: "/a", Name: "x", Component: stub("A")}, {Path: "/b", Name: "x", Component: stub("B")}},
		},
		{
			name:   "redirect with component",
			routes: []Route{{Path: "/a", Component: stub("A"), Redirect: "/b"}, {Path: "/b", Component: stub("B")}},
		},
		{
			name:   "redirect and redirect name",
			routes: []Route{{Path: "/a", Redirect: "/b", RedirectName: "b"}, {Path: "/b", Name: "b", Component: stub("B")}},
		},
		{
			name:   "empty entry",
			routes: []Route{{Path: "/a"}},
		},
		{
			name:   "unknown redirect name",
			routes: []Route{{Path: "/a", RedirectName: "missing"}},
			want:   ErrUnknownName,
		},
		{
			name:   "redirect to nowhere",
			routes: []Route{{Path: "/a", Redirect: "/b"}},
		},
		{
			name:   "redirect loop",
			routes: []Route{{Path: "/a", Redirect: "/b"}, {Path: "/b", Redirect: "/a"}},
			want:   ErrRedirectLoop,
		},
		{
			name:   "redirect missing param",
			routes: []Route{{Path: "/a", Redirect: "/p/:id"}, {Path: "/p/:id", Component: stub("P")}},
			want:   ErrMissingParam,
		},
		{
			name:   "unknown param type",
			routes: []Route{{Path: "/p/:id:float", Component: stub("P")}},
		},
		{
			name:   "catch-all not last",
			routes: []Route{{Path: "/p/*rest/x", Component: stub("P")}},
		},
		{
			name:   "non canonical pattern",
			routes: []Route{{Path: "/p/../q", Component: stub("P")}},
		},
		{
			name:   "query in pattern",
			routes: []Route{{Path: "/p?x=1", Component: stub("P")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.routes)
			if !errors.Is(err, ErrInvalidRoute) {
				t.Fatalf("New() error = %v, want ErrInvalidRoute", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want it to wrap %v", err, tt.want)
			}
		})
	}
}

func TestValidationReportsEveryProblem(t *testing.T) {
	_, err := New([]Route{{Path: "/a"}, {Path: "/b"}})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{`"/a"`, `"/b"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestParentWithRedirectAndChildren(t *testing.T) {
	routes := []Route{{
		Path:     "/reports",
		Redirect: "/reports/daily",
		Children: []Route{{Path: "/daily", Name: "daily", Component: stub("Daily")}},
	}}
	table := mustTable(t, routes)
	loc, err := table.Match("/reports")
	if err != nil {
		t.Fatalf("Match error: %v", err)
	}
	if loc.Name != "daily" || loc.Path != "/reports/daily" {
		t.Errorf("got %q %q", loc.Name, loc.Path)
	}
}

func TestLazyCachesSuccessOnly(t *testing.T) {
	calls := 0
	fail := true
	loader := Lazy(func(context.Context) (View, error) {
		calls++
		if fail {
			return nil, errors.New("chunk load failed")
		}
		return stubView("Home"), nil
	})

	if _, err := loader(context.Background()); err == nil {
		t.Fatal("expected first load to fail")
	}
	fail = false
	for i := 0; i < 3; i++ {
		v, err := loader(context.Background())
		if err != nil || v.ViewName() != "Home" {
			t.Fatalf("load %d = %v, %v", i, v, err)
		}
	}
	if calls != 2 {
		t.Errorf("loader called %d times, want 2", calls)
	}
}

func TestRecordsAndLookup(t *testing.T) {
	table := mustTable(t, consoleRoutes())
	records := table.Records()
	if len(records) != table.Len() {
		t.Fatalf("Records() len %d != Len() %d", len(records), table.Len())
	}
	// Children precede their parent.
	var order []string
	for _, r := range records {
		order = append(order, r.Path)
	}
	want := []string{"/", "/Index/Home", "/Index/ProcessManage", "/Index/ScheduleAlgorithm", "/Index/Test", "/Index"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("record order (-want +got):\n%s", diff)
	}

	rec, ok := table.Lookup("home")
	if !ok || rec.Parent == nil || rec.Parent.Name != "index" {
		t.Errorf("Lookup(home) = %+v, %v", rec, ok)
	}
	test := records[4]
	if !test.IsRedirect() || test.HasComponent() || test.Redirect != "/Index/ScheduleAlgorithm" {
		t.Errorf("redirect record = %+v", test)
	}
}
