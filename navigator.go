package urlnav

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Operation names used in logs and metrics.
const (
	opChange       = "change"
	opChangePath   = "change_path"
	opRedirect     = "redirect"
	opRedirectPath = "redirect_path"
	opRemoveParam  = "remove_param"
)

// Navigator drives navigations through a Location: URL templates are
// evaluated against caller data, the location is mutated, and a forced
// reload is scheduled whenever the surrounding router would not refresh the
// view on its own.
type Navigator struct {
	loc     Location
	routes  RouteRegistry
	eval    *Evaluator
	cfg     Config
	logger  *zap.Logger
	metrics *Metrics
	reload  reloadState
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithRouteRegistry injects the surrounding router. Without one, no reload
// is ever forced.
func WithRouteRegistry(routes RouteRegistry) Option {
	return func(n *Navigator) {
		n.routes = routes
	}
}

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(n *Navigator) {
		n.logger = logger
	}
}

// WithConfig sets the configuration. The default is DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(n *Navigator) {
		n.cfg = cfg
	}
}

// WithEvaluator replaces the template evaluator.
func WithEvaluator(eval *Evaluator) Option {
	return func(n *Navigator) {
		n.eval = eval
	}
}

// WithMetrics attaches metrics.
func WithMetrics(m *Metrics) Option {
	return func(n *Navigator) {
		n.metrics = m
	}
}

// New creates a Navigator over the given location.
func New(loc Location, opts ...Option) *Navigator {
	if loc == nil {
		panic("urlnav: nil Location")
	}
	n := &Navigator{
		loc:    loc,
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.eval == nil {
		if n.cfg.TemplateCache {
			n.eval = NewEvaluator()
		} else {
			n.eval = NewEvaluator(WithoutTemplateCache())
		}
	}
	return n
}

// Evaluate substitutes template placeholders against ctx without touching
// the location.
func (n *Navigator) Evaluate(template string, ctx Context) (string, error) {
	return n.eval.Evaluate(template, ctx)
}

// Change evaluates urlTemplate against params and navigates to the result,
// merging state into the query string when non-nil. Evaluation errors
// propagate unmodified and leave the location untouched.
func (n *Navigator) Change(urlTemplate string, params Context, state AppState) error {
	return n.navigate(opChange, urlTemplate, params, state, false, false)
}

// ChangePath is Change for the path only: query parameters are preserved
// and no application state is merged.
func (n *Navigator) ChangePath(pathTemplate string, params Context) error {
	return n.navigate(opChangePath, pathTemplate, params, nil, false, true)
}

// Redirect is Change without a new history entry.
func (n *Navigator) Redirect(urlTemplate string, params Context, state AppState) error {
	return n.navigate(opRedirect, urlTemplate, params, state, true, false)
}

// RedirectPath is ChangePath without a new history entry.
func (n *Navigator) RedirectPath(pathTemplate string, params Context) error {
	return n.navigate(opRedirectPath, pathTemplate, params, nil, true, true)
}

// RouteURL looks up the route's template under obj["routes"] and evaluates
// it against obj itself.
func (n *Navigator) RouteURL(obj Context, route string) (string, error) {
	template, ok := routeTemplate(obj, route)
	if !ok {
		return "", RouteNotDefinedError{Route: route}
	}
	return n.eval.Evaluate(template, obj)
}

// RouteHref is RouteURL as a hash-based link: "#" plus the configured hash
// prefix plus the URL.
func (n *Navigator) RouteHref(obj Context, route string) (string, error) {
	u, err := n.RouteURL(obj, route)
	if err != nil {
		return "", err
	}
	return "#" + n.cfg.HashPrefix + u, nil
}

// ChangeToRoute navigates to obj's named route.
func (n *Navigator) ChangeToRoute(obj Context, route string, state AppState) error {
	u, err := n.RouteURL(obj, route)
	if err != nil {
		return err
	}
	return n.Change(u, nil, state)
}

// RedirectToRoute is ChangeToRoute without a new history entry.
func (n *Navigator) RedirectToRoute(obj Context, route string, state AppState) error {
	u, err := n.RouteURL(obj, route)
	if err != nil {
		return err
	}
	return n.Redirect(u, nil, state)
}

// RemoveParam deletes one query parameter without creating a history entry.
// Removal is not a navigation, so no reload decision is made.
func (n *Navigator) RemoveParam(name string) {
	n.loc.DeleteParam(name)
	n.loc.Replace()
	n.metrics.recordNavigation(opRemoveParam, "ok")
	n.logger.Debug("removed query parameter", zap.String("param", name))
}

// navigate runs the pipeline shared by Change, ChangePath, Redirect and
// RedirectPath: snapshot, evaluate, mutate, snapshot again, then decide
// whether a forced reload must be armed. Evaluation precedes every
// mutation, so a failed template never moves the location.
func (n *Navigator) navigate(op, template string, params Context, state AppState, replace, pathOnly bool) error {
	prev := snapshotOf(n.loc)

	target, err := n.eval.Evaluate(template, params)
	if err != nil {
		n.metrics.recordNavigation(op, "error")
		n.logger.Debug("navigation aborted",
			zap.String("op", op),
			zap.String("template", template),
			zap.Error(err),
		)
		return err
	}

	if pathOnly {
		n.loc.SetPath(target)
	} else {
		path, query, err := splitPathQuery(target)
		if err != nil {
			n.metrics.recordNavigation(op, "error")
			return err
		}
		n.loc.SetPath(path)
		n.loc.SetQuery(query)
	}
	if replace {
		n.loc.Replace()
	}
	if state != nil {
		n.loc.SetParam(state.QueryParamName(), state.QueryParam())
	}

	next := snapshotOf(n.loc)
	force, reason := n.shouldForceReload(next, prev, n.activePolicy())
	if force {
		n.armForcedReload(reason)
	}

	n.metrics.recordNavigation(op, "ok")
	n.logger.Debug("navigated",
		zap.String("op", op),
		zap.String("path", next.Path),
		zap.Bool("replace", replace),
		zap.Bool("force_reload", force),
		zap.String("decision", reason),
	)
	return nil
}

// activePolicy returns the active route's policy, or nil without a router.
func (n *Navigator) activePolicy() *RoutePolicy {
	if n.routes == nil {
		return nil
	}
	return n.routes.ActivePolicy()
}

// splitPathQuery splits an evaluated URL at the first ? into a path and
// parsed query parameters.
func splitPathQuery(target string) (string, url.Values, error) {
	path, rawQuery, found := strings.Cut(target, "?")
	if !found {
		return path, url.Values{}, nil
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", nil, fmt.Errorf("parse query of %q: %w", target, err)
	}
	return path, q, nil
}

// routeTemplate extracts the route's template from obj["routes"].
func routeTemplate(obj Context, route string) (string, bool) {
	switch m := obj["routes"].(type) {
	case map[string]string:
		template, ok := m[route]
		return template, ok
	case map[string]any:
		template, ok := m[route].(string)
		return template, ok
	}
	return "", false
}
