package urlnav

import (
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func snap(path string, query url.Values) Snapshot {
	return Snapshot{Path: path, Query: query}
}

func TestShouldForceReloadMatrix(t *testing.T) {
	nav := New(NewMemoryLocation("/", nil))

	on := &RoutePolicy{ReloadOnSearch: true}
	off := &RoutePolicy{ReloadOnSearch: false}

	q1 := url.Values{"x": {"1"}}
	q1b := url.Values{"x": {"1"}}
	q2 := url.Values{"x": {"2"}}

	tests := []struct {
		name   string
		next   Snapshot
		prev   Snapshot
		policy *RoutePolicy
		want   bool
	}{
		{"no active route", snap("/a", q1), snap("/a", q1b), nil, false},
		{"same path, reloadOnSearch, same query", snap("/a", q1), snap("/a", q1b), on, true},
		{"same path, reloadOnSearch, differing query", snap("/a", q1), snap("/a", q2), on, false},
		{"same path, no reloadOnSearch, same query", snap("/a", q1), snap("/a", q1b), off, true},
		{"same path, no reloadOnSearch, differing query", snap("/a", q1), snap("/a", q2), off, true},
		{"differing paths, reloadOnSearch", snap("/a", q1), snap("/b", q1b), on, false},
		{"differing paths, no reloadOnSearch", snap("/a", q1), snap("/b", q2), off, false},
		{"empty and root path are the same location", snap("", q1), snap("/", q1b), on, true},
		{"nil and empty query are the same search", snap("/a", nil), snap("/a", url.Values{}), on, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nav.ShouldForceReload(tc.next, tc.prev, tc.policy))
		})
	}
}

func TestShouldForceReloadWhileArmed(t *testing.T) {
	loc := NewMemoryLocation("/a", url.Values{"x": {"1"}})
	nav := New(loc, WithRouteRegistry(&StaticRegistry{Policy: &RoutePolicy{ReloadOnSearch: true}}))

	same := snap("/a", url.Values{"x": {"1"}})
	require.True(t, nav.ShouldForceReload(same, same, &RoutePolicy{ReloadOnSearch: true}))

	// Arm through a real navigation; from then on the same inputs decide
	// false because the pending reload already covers them.
	require.NoError(t, nav.Change("/a?x=1", nil, nil))
	require.True(t, nav.Armed())
	assert.False(t, nav.ShouldForceReload(same, same, &RoutePolicy{ReloadOnSearch: true}))
}

func TestQueryEqual(t *testing.T) {
	assert.True(t, queryEqual(nil, nil))
	assert.True(t, queryEqual(nil, url.Values{}))
	assert.True(t, queryEqual(url.Values{"a": {"1", "2"}}, url.Values{"a": {"1", "2"}}))
	assert.True(t, queryEqual(url.Values{"b": {"2"}, "a": {"1"}}, url.Values{"a": {"1"}, "b": {"2"}}))
	assert.False(t, queryEqual(url.Values{"a": {"1", "2"}}, url.Values{"a": {"2", "1"}}))
	assert.False(t, queryEqual(url.Values{"a": {"1"}}, url.Values{"b": {"1"}}))
	assert.False(t, queryEqual(url.Values{"a": {"1"}}, url.Values{"a": {"1"}, "b": {"2"}}))
	assert.False(t, queryEqual(url.Values{"a": {"1", "2"}}, url.Values{"a": {"1"}}))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", normalizePath(""))
	assert.Equal(t, "/", normalizePath("/"))
	assert.Equal(t, "/a", normalizePath("/a"))
}

func TestForcedReloadEndToEnd(t *testing.T) {
	loc := NewMemoryLocation("/a", url.Values{"x": {"1"}})
	var reloads int32
	registry := &StaticRegistry{
		Policy:   &RoutePolicy{ReloadOnSearch: true},
		OnReload: func() { atomic.AddInt32(&reloads, 1) },
	}
	nav := New(loc, WithRouteRegistry(registry))

	// Same path, same search: the router sees nothing to do, so a forced
	// reload is armed.
	require.NoError(t, nav.Change("/a?x=1", nil, nil))
	require.True(t, nav.Armed())
	assert.Equal(t, int32(0), atomic.LoadInt32(&reloads))

	// Completing the location change fires the reload exactly once.
	loc.Complete()
	assert.Equal(t, int32(1), atomic.LoadInt32(&reloads))
	assert.False(t, nav.Armed())

	// The listener is one-shot: further completions do nothing.
	loc.Complete()
	loc.Complete()
	assert.Equal(t, int32(1), atomic.LoadInt32(&reloads))

	// Idle again: the same navigation arms a fresh listener.
	require.NoError(t, nav.Change("/a?x=1", nil, nil))
	require.True(t, nav.Armed())
	loc.Complete()
	assert.Equal(t, int32(2), atomic.LoadInt32(&reloads))
}

func TestArmWhileArmedCollapses(t *testing.T) {
	loc := NewMemoryLocation("/a", url.Values{"x": {"1"}})
	var reloads int
	registry := &StaticRegistry{
		Policy:   &RoutePolicy{ReloadOnSearch: true},
		OnReload: func() { reloads++ },
	}
	nav := New(loc, WithRouteRegistry(registry))

	require.NoError(t, nav.Change("/a?x=1", nil, nil))
	require.NoError(t, nav.Change("/a?x=1", nil, nil))
	require.True(t, nav.Armed())

	loc.Complete()
	assert.Equal(t, 1, reloads)
	assert.False(t, nav.Armed())
}

func TestReloadCannotRetriggerListener(t *testing.T) {
	loc := NewMemoryLocation("/a", url.Values{"x": {"1"}})
	registry := &StaticRegistry{Policy: &RoutePolicy{ReloadOnSearch: true}}
	nav := New(loc, WithRouteRegistry(registry))

	var reloads int
	registry.OnReload = func() {
		reloads++
		// A reload may complete a location change of its own. The listener
		// must already be unregistered, otherwise this would recurse.
		loc.Complete()
	}

	require.NoError(t, nav.Change("/a?x=1", nil, nil))
	loc.Complete()
	assert.Equal(t, 1, reloads)
	assert.False(t, nav.Armed())
}

func TestArmedPersistsWithoutCompletion(t *testing.T) {
	loc := NewMemoryLocation("/a", url.Values{"x": {"1"}})
	nav := New(loc, WithRouteRegistry(&StaticRegistry{Policy: &RoutePolicy{ReloadOnSearch: true}}))

	require.NoError(t, nav.Change("/a?x=1", nil, nil))
	require.True(t, nav.Armed())

	// No completion ever fires; the armed state does not time out and later
	// navigations leave it pending.
	require.NoError(t, nav.Change("/b", nil, nil))
	assert.True(t, nav.Armed())
}

func TestArmedAgeWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := DefaultConfig()
	cfg.ArmedWarnAfter = time.Nanosecond

	loc := NewMemoryLocation("/a", url.Values{"x": {"1"}})
	nav := New(loc,
		WithRouteRegistry(&StaticRegistry{Policy: &RoutePolicy{ReloadOnSearch: true}}),
		WithLogger(zap.New(core)),
		WithConfig(cfg),
	)

	require.NoError(t, nav.Change("/a?x=1", nil, nil))
	require.True(t, nav.Armed())

	time.Sleep(time.Millisecond)
	nav.ShouldForceReload(snap("/a", nil), snap("/a", nil), &RoutePolicy{ReloadOnSearch: true})
	assert.Equal(t, 1, logs.FilterMessage("forced reload still armed, completion event never fired").Len())
}
