package locbrowser

import (
	"net/url"
	"strings"
	"sync"

	"github.com/vugu/vugu/js"
	"go.uber.org/zap"

	"github.com/ashikmeerankutty/urlnav"
)

// Location is a urlnav.Location over the browser history API. Mutations are
// staged in memory; Complete commits them to the browser (pushState, or
// replaceState after Replace) and notifies subscribers. Back and forward
// buttons arrive through the popstate event and notify subscribers the same
// way.
//
// Outside a browser every history call is skipped and the Location degrades
// to a plain in-memory one, which keeps wasm and server builds of the same
// program working.
type Location struct {
	useFragment bool
	logger      *zap.Logger

	mu        sync.Mutex
	path      string
	query     url.Values
	replacing bool
	subs      map[int]func(urlnav.Snapshot)
	nextSub   int

	popStateFunc js.Func
}

var _ urlnav.Location = (*Location)(nil)

// Option configures a Location.
type Option func(*Location)

// WithFragment stores the path and query in the URL fragment ("#/path")
// instead of the real path. Fragment navigation needs no server-side
// routing support.
func WithFragment() Option {
	return func(l *Location) {
		l.useFragment = true
	}
}

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Location) {
		l.logger = logger
	}
}

// New creates a Location seeded from the current browser URL, listening for
// popstate events. Off-browser it starts at "/".
func New(opts ...Option) *Location {
	l := &Location{
		path:   "/",
		query:  url.Values{},
		logger: zap.NewNop(),
		subs:   make(map[int]func(urlnav.Snapshot)),
	}
	for _, opt := range opts {
		opt(l)
	}

	if path, query, ok := l.readBrowserURL(); ok {
		l.path = path
		l.query = query
	}
	l.addPopStateListener()
	return l
}

// Close removes the popstate listener. The Location keeps working as a
// plain in-memory one afterwards.
func (l *Location) Close() error {
	g := js.Global()
	if !g.Truthy() || l.popStateFunc.IsUndefined() {
		return nil
	}
	g.Get("window").Call("removeEventListener", "popstate", l.popStateFunc)
	l.popStateFunc.Release()
	l.popStateFunc = js.Func{}
	return nil
}

// Path returns the staged path.
func (l *Location) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// SetPath stages a new path.
func (l *Location) SetPath(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.path = path
}

// Query returns a copy of the staged query parameters.
func (l *Location) Query() url.Values {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneValues(l.query)
}

// SetQuery stages new query parameters.
func (l *Location) SetQuery(q url.Values) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = cloneValues(q)
	if l.query == nil {
		l.query = url.Values{}
	}
}

// SetParam stages one query parameter.
func (l *Location) SetParam(name string, values ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query[name] = append([]string(nil), values...)
}

// DeleteParam removes one staged query parameter.
func (l *Location) DeleteParam(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.query, name)
}

// Replace marks the staged change as history-replacing: Complete will use
// replaceState instead of pushState.
func (l *Location) Replace() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.replacing = true
}

// Replacing reports whether the staged change replaces history.
func (l *Location) Replacing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.replacing
}

// OnChangeDone subscribes fn to committed location changes, both Complete
// calls and popstate events. The returned cancel removes the subscription.
func (l *Location) OnChangeDone(fn func(urlnav.Snapshot)) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

// Complete commits the staged change to browser history and notifies
// subscribers.
func (l *Location) Complete() {
	l.mu.Lock()
	pathAndQuery := l.path
	if enc := l.query.Encode(); enc != "" {
		pathAndQuery += "?" + enc
	}
	replacing := l.replacing
	l.replacing = false
	snap := urlnav.Snapshot{Path: l.path, Query: cloneValues(l.query)}
	fns := make([]func(urlnav.Snapshot), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	l.writeBrowserURL(pathAndQuery, replacing)
	for _, fn := range fns {
		fn(snap)
	}
}

// writeBrowserURL pushes or replaces the browser URL.
func (l *Location) writeBrowserURL(pathAndQuery string, replacing bool) {
	g := js.Global()
	if !g.Truthy() {
		return
	}
	pqv := pathAndQuery
	if l.useFragment {
		pqv = "#" + pathAndQuery
	}
	method := "pushState"
	if replacing {
		method = "replaceState"
	}
	g.Get("window").Get("history").Call(method, nil, "", pqv)
}

// readBrowserURL reads the current path and query from the browser, from
// the fragment in fragment mode.
func (l *Location) readBrowserURL() (string, url.Values, bool) {
	g := js.Global()
	if !g.Truthy() {
		return "", nil, false
	}

	var locstr string
	if l.useFragment {
		locstr = strings.TrimPrefix(g.Get("window").Get("location").Get("hash").String(), "#")
		if locstr == "" {
			locstr = "/"
		}
	} else {
		locstr = g.Get("window").Get("location").Call("toString").String()
	}

	u, err := url.Parse(locstr)
	if err != nil {
		l.logger.Error("failed to parse browser URL", zap.String("url", locstr), zap.Error(err))
		return "", nil, false
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		l.logger.Error("failed to parse browser query", zap.String("query", u.RawQuery), zap.Error(err))
		query = url.Values{}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	return path, query, true
}

// addPopStateListener wires browser back/forward events to subscribers.
func (l *Location) addPopStateListener() {
	g := js.Global()
	if !g.Truthy() {
		return
	}
	if !l.popStateFunc.IsUndefined() {
		return
	}

	jf := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		l.onPopState()
		return nil
	})
	g.Get("window").Call("addEventListener", "popstate", jf)
	l.popStateFunc = jf
}

// onPopState adopts the URL the browser moved to and notifies subscribers.
func (l *Location) onPopState() {
	path, query, ok := l.readBrowserURL()
	if !ok {
		return
	}

	l.mu.Lock()
	l.path = path
	l.query = query
	l.replacing = false
	snap := urlnav.Snapshot{Path: path, Query: cloneValues(query)}
	fns := make([]func(urlnav.Snapshot), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	l.logger.Debug("browser navigation", zap.String("path", path))
	for _, fn := range fns {
		fn(snap)
	}
}

// cloneValues copies query parameters one level deep. Nil stays nil.
func cloneValues(q url.Values) url.Values {
	if q == nil {
		return nil
	}
	out := make(url.Values, len(q))
	for k, vs := range q {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
