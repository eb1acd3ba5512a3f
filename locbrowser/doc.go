// Package locbrowser implements a urlnav.Location over the browser history
// API for wasm builds.
//
// Mutations stage in memory; Complete commits them with pushState, or
// replaceState after a Replace, and notifies subscribers. Back and forward
// buttons arrive through popstate and notify the same subscribers, so
// urlnav's forced-reload listeners fire for user-driven navigation too.
//
// Example usage:
//
//	loc := locbrowser.New(locbrowser.WithFragment())
//	defer loc.Close()
//
//	nav := urlnav.New(loc, urlnav.WithRouteRegistry(registry))
//	nav.Change("/dashboard/{{id}}", urlnav.Context{"id": id}, nil)
//	loc.Complete()
//
// Off-browser the history calls are skipped and the Location behaves as a
// plain in-memory one, so the same program builds and tests on the server.
package locbrowser
