package urlnav

import "net/url"

// Snapshot is an immutable capture of a location's path and query
// parameters, taken before and after each mutation.
type Snapshot struct {
	Path  string
	Query url.Values
}

// Location is the consumed location contract. Implementations own the real
// address state (browser history, a server-held session, plain memory) and
// report completed changes to subscribers.
//
// Query results must be copies; callers may retain and mutate them freely.
type Location interface {
	// Path returns the current path.
	Path() string

	// SetPath replaces the current path, leaving query parameters alone.
	SetPath(path string)

	// Query returns a copy of the current query parameters.
	Query() url.Values

	// SetQuery replaces all query parameters.
	SetQuery(q url.Values)

	// SetParam sets a single query parameter.
	SetParam(name string, values ...string)

	// DeleteParam removes a single query parameter.
	DeleteParam(name string)

	// Replace marks the in-flight change as history-replacing: committing
	// it must not create a new history entry.
	Replace()

	// OnChangeDone subscribes to completed location changes. The returned
	// cancel removes the subscription and is safe to call more than once.
	OnChangeDone(fn func(Snapshot)) (cancel func())
}

// snapshotOf captures the current state of a location.
func snapshotOf(loc Location) Snapshot {
	return Snapshot{Path: loc.Path(), Query: loc.Query()}
}

// cloneValues deep-copies query parameters. Nil stays nil.
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
