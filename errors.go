package urlnav

import "fmt"

// UnresolvedExpressionError means a template placeholder's key does not
// resolve to a defined value in the evaluation context. Evaluation is
// all-or-nothing, so the template output is never partially substituted.
type UnresolvedExpressionError struct {
	Expression string
	Template   string
}

func (e UnresolvedExpressionError) Error() string {
	return fmt.Sprintf("unresolved expression %q in template %q", e.Expression, e.Template)
}

// MalformedTemplateError means a template contains a placeholder that cannot
// be parsed: an empty expression, an invalid path, an unknown filter or a
// filter that rejected its input.
type MalformedTemplateError struct {
	Template string
	Reason   string
}

func (e MalformedTemplateError) Error() string {
	return fmt.Sprintf("malformed template %q: %s", e.Template, e.Reason)
}

// RouteNotDefinedError means a route name has no template under the context
// object's "routes" mapping.
type RouteNotDefinedError struct {
	Route string
}

func (e RouteNotDefinedError) Error() string {
	return fmt.Sprintf("route %q is not defined", e.Route)
}
