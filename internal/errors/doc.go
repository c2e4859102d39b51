// Package errors provides coded, user-facing errors for consoleroutes.
//
// Every error carries a stable code (e.g. "E201") that maps to a short
// message and a longer explanation, so the CLI and the HTTP API can report
// the same problem in the same words.
//
// # Categories
//
//   - config: consoleroutes.json could not be found, read or validated
//   - manifest: a route manifest could not be loaded or compiled
//   - navigation: a navigation request could not be resolved
//
// # Usage
//
//	err := errors.New("E202").
//	    WithDetail(`component "Dashboard" is not registered`).
//	    WithSuggestion("Register the view in the component registry")
//
//	fmt.Println(err.Format())
package errors
