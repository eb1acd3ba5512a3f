// Package urlnav evaluates parameterized URL templates and drives location
// changes for hash-routed single page applications, deciding after every
// navigation whether the surrounding router has to be forced to reload the
// active view.
//
// Navigations go through a Navigator bound to a Location (browser history,
// a redis-backed session or plain memory). Templates carry {{expression}}
// placeholders resolved against caller-supplied data:
//
//	loc := urlnav.NewMemoryLocation("/", nil)
//	nav := urlnav.New(loc, urlnav.WithRouteRegistry(registry))
//
//	err := nav.Change("/dashboard/{{id}}", urlnav.Context{"id": "sales q3"}, nil)
//	// the location path is now "/dashboard/sales%20q3"
//
// Expressions are dotted or indexed paths into the context, such as
// "user.name", "items[2]" or "query['tab']". The key of a placeholder (the
// part before the first pipe) must resolve to a defined value, or the whole
// navigation fails with UnresolvedExpressionError and the location is left
// untouched. A resolved value is passed through the filter pipeline and then
// percent-encoded so it cannot break the URL apart:
//
//	nav.Change("/users/{{name|lower}}", urlnav.Context{"name": "Ana"}, nil)
//	// "/users/ana"
//
// Built-in filters:
//   - upper, uppercase: uppercase the value
//   - lower, lowercase: lowercase the value
//   - trim: strip surrounding whitespace
//   - default:fallback: substitute fallback when the value renders empty
//   - limitTo:n: keep the first n runes (the last n when negative)
//   - json: render the value as JSON
//
// Custom filters register through WithFilter or Navigator independent
// evaluators built with NewEvaluator.
//
// After a navigation mutates the location, the reload decision runs against
// the active route's policy. When the router would not refresh the view on
// its own (the search did not change under reloadOnSearch, or the route
// ignores search changes entirely) a one-shot completion listener is armed
// and the registry's Reload fires exactly once on the next completed
// location change:
//
//	registry := &urlnav.StaticRegistry{
//		Policy:   &urlnav.RoutePolicy{ReloadOnSearch: true},
//		OnReload: func() { render() },
//	}
//	nav := urlnav.New(loc, urlnav.WithRouteRegistry(registry))
//
//	nav.Change("/dashboard?tab=a", nil, nil) // same path and search: armed
//	loc.Complete()                           // registry.Reload runs here
package urlnav
