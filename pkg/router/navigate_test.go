package router

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestNavigator(t *testing.T, opts ...NavigatorOption) *Navigator {
	t.Helper()
	return NewNavigator(mustTable(t, consoleRoutes()), opts...)
}

func historyPaths(n *Navigator) ([]string, int) {
	entries, idx := n.History()
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.FullPath
	}
	return paths, idx
}

func TestNavigatorPushCommits(t *testing.T) {
	nav := newTestNavigator(t)
	if nav.Current() != nil {
		t.Fatal("Current() should be nil before the first navigation")
	}

	loc, err := nav.Push(context.Background(), "/Index/Home")
	if err != nil {
		t.Fatalf("Push error: %v", err)
	}
	if loc.Title() != "系统首页" {
		t.Errorf("Title() = %q", loc.Title())
	}
	if len(loc.Views) != 2 || loc.Views[0].ViewName() != "Index" || loc.Views[1].ViewName() != "Home" {
		t.Errorf("Views = %v", loc.Views)
	}
	if nav.Current() != loc {
		t.Error("Current() should be the pushed location")
	}
}

func TestNavigatorDuplicatePush(t *testing.T) {
	nav := newTestNavigator(t)
	ctx := context.Background()

	if _, err := nav.Push(ctx, "/Index/Home"); err != nil {
		t.Fatal(err)
	}
	_, err := nav.Push(ctx, "/Index/Home")
	if !IsNavigationFailure(err, Duplicated) {
		t.Fatalf("second Push error = %v, want Duplicated", err)
	}

	// Query changes make a different location.
	if _, err := nav.Push(ctx, "/Index/Home?tab=2"); err != nil {
		t.Errorf("Push with new query error: %v", err)
	}

	// A redirect landing on the current route is a duplicate too.
	if _, err := nav.Push(ctx, "/Index/ScheduleAlgorithm"); err != nil {
		t.Fatal(err)
	}
	if _, err := nav.Push(ctx, "/Index/Test"); !IsNavigationFailure(err, Duplicated) {
		t.Errorf("Push via redirect error = %v, want Duplicated", err)
	}

	paths, _ := historyPaths(nav)
	want := []string{"/Index/Home", "/Index/Home?tab=2", "/Index/ScheduleAlgorithm"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}
}

func TestNavigatorNotFound(t *testing.T) {
	nav := newTestNavigator(t)
	_, err := nav.Push(context.Background(), "/Nowhere")
	if !IsNavigationFailure(err, NotFound) {
		t.Fatalf("error = %v, want NotFound", err)
	}
	if !errors.Is(err, ErrNoMatch) {
		t.Error("NotFound failure should wrap ErrNoMatch")
	}
}

func TestNavigatorRejectsExternalTargets(t *testing.T) {
	nav := newTestNavigator(t)
	for _, target := range []string{"https://evil.test/", "//evil.test", "Index/Home"} {
		if _, err := nav.Push(context.Background(), target); !IsNavigationFailure(err, Invalid) {
			t.Errorf("Push(%q) error = %v, want Invalid", target, err)
		}
	}
}

func TestNavigatorLoadFailure(t *testing.T) {
	boom := errors.New("chunk load failed")
	table := mustTable(t, []Route{
		{Path: "/ok", Component: stub("OK")},
		{Path: "/broken", Component: func(context.Context) (View, error) { return nil, boom }},
	})
	nav := NewNavigator(table)

	if _, err := nav.Push(context.Background(), "/ok"); err != nil {
		t.Fatal(err)
	}
	_, err := nav.Push(context.Background(), "/broken")
	if !IsNavigationFailure(err, LoadFailed) || !errors.Is(err, boom) {
		t.Fatalf("error = %v, want LoadFailed wrapping boom", err)
	}
	if nav.Current().Path != "/ok" {
		t.Errorf("failed navigation must not commit, current = %q", nav.Current().Path)
	}
}

func TestNavigatorCancelled(t *testing.T) {
	nav := newTestNavigator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := nav.Push(ctx, "/Index/Home")
	if !IsNavigationFailure(err, Cancelled) {
		t.Fatalf("error = %v, want Cancelled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("Cancelled failure should wrap context.Canceled")
	}
	if nav.Current() != nil {
		t.Error("cancelled navigation must not commit")
	}
}

func TestNavigatorGuards(t *testing.T) {
	loggedIn := false
	auth := GuardFunc(func(ctx context.Context, to, from *Location) error {
		if to.Name != "login" && !loggedIn {
			return RedirectTo("/")
		}
		return nil
	})
	denyGantt := GuardFunc(func(ctx context.Context, to, from *Location) error {
		if to.Name == "processManage" {
			return ErrAbort
		}
		return nil
	})
	nav := newTestNavigator(t, WithGuards(auth, denyGantt))
	ctx := context.Background()

	loc, err := nav.Push(ctx, "/Index/Home")
	if err != nil {
		t.Fatalf("Push error: %v", err)
	}
	if loc.Name != "login" || loc.RedirectedFrom != "/Index/Home" {
		t.Errorf("guard redirect = %q from %q", loc.Name, loc.RedirectedFrom)
	}

	loggedIn = true
	if _, err := nav.Push(ctx, "/Index/Home"); err != nil {
		t.Fatalf("Push after login error: %v", err)
	}

	_, err = nav.Push(ctx, "/Index/ProcessManage")
	if !IsNavigationFailure(err, Aborted) || !errors.Is(err, ErrAbort) {
		t.Errorf("error = %v, want Aborted", err)
	}
}

func TestNavigatorGuardRedirectLoop(t *testing.T) {
	pingPong := GuardFunc(func(ctx context.Context, to, from *Location) error {
		if to.Name == "home" {
			return RedirectTo("/Index/ProcessManage")
		}
		return RedirectTo("/Index/Home")
	})
	table := mustTable(t, consoleRoutes(), MaxRedirects(3))
	nav := NewNavigator(table, WithGuards(pingPong))

	_, err := nav.Push(context.Background(), "/Index/Home")
	if !IsNavigationFailure(err, Redirected) || !errors.Is(err, ErrRedirectLoop) {
		t.Errorf("error = %v, want Redirected", err)
	}
}

func TestNavigatorHistory(t *testing.T) {
	nav := newTestNavigator(t)
	ctx := context.Background()

	for _, p := range []string{"/", "/Index/Home", "/Index/ProcessManage"} {
		if _, err := nav.Push(ctx, p); err != nil {
			t.Fatalf("Push(%q) error: %v", p, err)
		}
	}

	loc, err := nav.Back(ctx)
	if err != nil || loc.Name != "home" {
		t.Fatalf("Back = %v, %v", loc, err)
	}
	loc, err = nav.Forward(ctx)
	if err != nil || loc.Name != "processManage" {
		t.Fatalf("Forward = %v, %v", loc, err)
	}
	if _, err := nav.Forward(ctx); !errors.Is(err, ErrHistoryBounds) {
		t.Errorf("Forward past end error = %v", err)
	}

	if _, err := nav.Go(ctx, -2); err != nil {
		t.Fatal(err)
	}
	// Pushing from the middle drops forward entries.
	if _, err := nav.Push(ctx, "/Index/ScheduleAlgorithm"); err != nil {
		t.Fatal(err)
	}
	paths, idx := historyPaths(nav)
	if diff := cmp.Diff([]string{"/", "/Index/ScheduleAlgorithm"}, paths); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}
	if idx != 1 {
		t.Errorf("index = %d, want 1", idx)
	}

	if _, err := nav.Replace(ctx, "/Index/Home"); err != nil {
		t.Fatal(err)
	}
	paths, _ = historyPaths(nav)
	if diff := cmp.Diff([]string{"/", "/Index/Home"}, paths); diff != "" {
		t.Errorf("history after Replace (-want +got):\n%s", diff)
	}
}

func TestNavigatorReplaceOnEmptyHistory(t *testing.T) {
	nav := newTestNavigator(t)
	if _, err := nav.Replace(context.Background(), "/Index"); err != nil {
		t.Fatal(err)
	}
	paths, idx := historyPaths(nav)
	if len(paths) != 1 || idx != 0 {
		t.Errorf("history = %v at %d", paths, idx)
	}
	if _, err := nav.Back(context.Background()); !errors.Is(err, ErrHistoryBounds) {
		t.Errorf("Back error = %v", err)
	}
}

func TestNavigatorAfterReset(t *testing.T) {
	nav := newTestNavigator(t)
	ctx := context.Background()
	if _, err := nav.Push(ctx, "/Index/Home"); err != nil {
		t.Fatal(err)
	}
	if _, err := nav.Push(ctx, "/Index/ProcessManage"); err != nil {
		t.Fatal(err)
	}

	nav.Table().Reset()

	if _, err := nav.Push(ctx, "/Index/Home"); !IsNavigationFailure(err, NotFound) {
		t.Errorf("Push after Reset error = %v, want NotFound", err)
	}
	if _, err := nav.Back(ctx); !IsNavigationFailure(err, NotFound) {
		t.Errorf("Back after Reset error = %v, want NotFound", err)
	}

	if err := nav.Table().AddRoutes(consoleRoutes()...); err != nil {
		t.Fatal(err)
	}
	// The re-registered route still equals the current location.
	if _, err := nav.Push(ctx, "/Index/ProcessManage"); !IsNavigationFailure(err, Duplicated) {
		t.Errorf("Push after re-register error = %v, want Duplicated", err)
	}
	if _, err := nav.Push(ctx, "/Index/Home"); err != nil {
		t.Errorf("Push after re-register error = %v", err)
	}
}

func TestNavigatorDuplicateAfterReplace(t *testing.T) {
	nav := newTestNavigator(t)
	ctx := context.Background()
	if _, err := nav.Push(ctx, "/Index/Home"); err != nil {
		t.Fatal(err)
	}
	if err := nav.Table().Replace(consoleRoutes()); err != nil {
		t.Fatal(err)
	}

	loc, err := IgnoreDuplicates(nav).Push(ctx, "/Index/Home")
	if err != nil {
		t.Fatalf("Push error = %v", err)
	}
	if !IsNavigationFailure(loc.Failure, Duplicated) {
		t.Errorf("Failure = %v, want Duplicated", loc.Failure)
	}
	paths, idx := historyPaths(nav)
	if diff := cmp.Diff([]string{"/Index/Home"}, paths); diff != "" || idx != 0 {
		t.Errorf("history mismatch at %d (-want +got):\n%s", idx, diff)
	}
}

func TestNavigatorAfterHooks(t *testing.T) {
	var seen []string
	var count atomic.Int32
	nav := newTestNavigator(t, WithAfterHooks(func(to, from *Location) {
		count.Add(1)
		prev := "<start>"
		if from != nil {
			prev = from.Path
		}
		seen = append(seen, prev+"->"+to.Path)
	}))
	ctx := context.Background()
	_, _ = nav.Push(ctx, "/")
	_, _ = nav.Push(ctx, "/Index/Home")
	_, _ = nav.Push(ctx, "/Index/Home") // duplicate, no hook

	if diff := cmp.Diff([]string{"<start>->/", "/->/Index/Home"}, seen); diff != "" {
		t.Errorf("hooks (-want +got):\n%s", diff)
	}
	if count.Load() != 2 {
		t.Errorf("hook count = %d", count.Load())
	}
}

func TestNavigationErrorMessages(t *testing.T) {
	err := &NavigationError{Kind: Duplicated, Target: "/Index/Home"}
	if err.Error() != `router: avoided redundant navigation to current location "/Index/Home"` {
		t.Errorf("Error() = %q", err.Error())
	}
	for k := Duplicated; k <= Invalid; k++ {
		if k.String() == "unknown" {
			t.Errorf("kind %d has no name", k)
		}
	}
	if IsNavigationFailure(errors.New("x")) {
		t.Error("plain errors are not navigation failures")
	}
	if !IsNavigationFailure(err) {
		t.Error("any kind should match when none are given")
	}
	if IsNavigationFailure(err, NotFound, Aborted) {
		t.Error("kind filter ignored")
	}
}
