package urlnav

import (
	"net/url"
	"sync"
)

// MemoryLocation is an in-process Location and the reference implementation
// of the contract. Nothing completes implicitly: the owner decides when a
// change has succeeded by calling Complete, which notifies subscribers.
type MemoryLocation struct {
	mu        sync.Mutex
	path      string
	query     url.Values
	replacing bool
	subs      map[int]func(Snapshot)
	nextSub   int
}

// NewMemoryLocation creates a MemoryLocation at the given path and query.
func NewMemoryLocation(path string, query url.Values) *MemoryLocation {
	q := cloneValues(query)
	if q == nil {
		q = url.Values{}
	}
	return &MemoryLocation{
		path:  path,
		query: q,
		subs:  make(map[int]func(Snapshot)),
	}
}

// Path returns the current path.
func (l *MemoryLocation) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// SetPath replaces the current path.
func (l *MemoryLocation) SetPath(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.path = path
}

// Query returns a copy of the current query parameters.
func (l *MemoryLocation) Query() url.Values {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneValues(l.query)
}

// SetQuery replaces all query parameters.
func (l *MemoryLocation) SetQuery(q url.Values) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = cloneValues(q)
	if l.query == nil {
		l.query = url.Values{}
	}
}

// SetParam sets a single query parameter.
func (l *MemoryLocation) SetParam(name string, values ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query[name] = append([]string(nil), values...)
}

// DeleteParam removes a single query parameter.
func (l *MemoryLocation) DeleteParam(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.query, name)
}

// Replace marks the in-flight change as history-replacing. The flag resets
// when the change completes.
func (l *MemoryLocation) Replace() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.replacing = true
}

// Replacing reports whether the next completion commits without a new
// history entry.
func (l *MemoryLocation) Replacing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.replacing
}

// OnChangeDone subscribes to completed location changes.
func (l *MemoryLocation) OnChangeDone(fn func(Snapshot)) (cancel func()) {
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

// Complete reports the in-flight change as successfully committed: the
// replacing flag resets and every subscriber observes the current snapshot.
// Subscribers run without the location lock held, in no particular order.
func (l *MemoryLocation) Complete() {
	l.mu.Lock()
	l.replacing = false
	snap := Snapshot{Path: l.path, Query: cloneValues(l.query)}
	fns := make([]func(Snapshot), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
