// Package router implements the console's client-side route table.
//
// The router provides:
//   - Declarative nested route tables with per-route metadata
//   - First-match path resolution with params and catch-alls
//   - Redirect entries by path or by name
//   - Named-route URL building
//   - Atomic Reset / AddRoutes / Replace of the live table
//   - A Navigator with history, guards and lazy view loading
//
// # Declaring Routes
//
//	table, err := router.New([]router.Route{
//	    {Path: "/", Name: "login", Component: views.Load("Login")},
//	    {
//	        Path:      "/Index",
//	        Name:      "index",
//	        Component: views.Load("Index"),
//	        Children: []router.Route{
//	            {Path: "/Home", Name: "home", Meta: router.Meta{"title": "Home"}, Component: views.Load("Home")},
//	            {Path: "/Old", Redirect: "/Home"},
//	        },
//	    },
//	})
//
// Child paths and redirect targets are joined under their parent, so the
// Home entry above answers /Index/Home and /Index/Old redirects to it. Use
// RootRelativeChildren to anchor absolute child paths at the root instead.
//
// # Parameters
//
//	/projects/:id        → params["id"]
//	/projects/:id:int    → only digits match
//	/files/*path         → catch-all, params["path"] = "a/b/c"
//
// # Navigation
//
//	nav := router.NewNavigator(table)
//	push := router.IgnoreDuplicates(nav)
//	loc, err := push.Push(ctx, "/Index/Home")
//
// Navigating to the location that is already current fails with a
// Duplicated NavigationError; IgnoreDuplicates turns that failure into an
// ordinary result carried in Location.Failure.
package router
