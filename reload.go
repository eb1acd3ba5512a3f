package urlnav

import (
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// reloadState is the one-shot forced-reload listener state owned by a
// Navigator. At most one listener is armed at any time; the first pending
// reload wins and redundant arm requests collapse into it.
type reloadState struct {
	mu         sync.Mutex
	armed      bool
	armedSince time.Time
	reason     string
	cancel     func()
}

// ShouldForceReload reports whether a manual reload must be scheduled for a
// navigation from prev to next under the given route policy.
//
// The decision rules, in order:
//  1. A listener is already armed: false, the pending reload wins.
//  2. policy is nil (no active route): false.
//  3. Empty and "/" paths are equivalent; when the normalized paths differ:
//     false, because the router reloads on its own after a path change.
//  4. Paths equal, ReloadOnSearch set and query parameters unchanged: true.
//     The router saw no search change, yet application state did change.
//  5. Paths equal and ReloadOnSearch unset: true. The router never reloads
//     this route on search changes, so any change must be force-applied.
//  6. Otherwise false: the search change already triggers the router.
func (n *Navigator) ShouldForceReload(next, prev Snapshot, policy *RoutePolicy) bool {
	force, _ := n.shouldForceReload(next, prev, policy)
	return force
}

// shouldForceReload is ShouldForceReload carrying the decision reason.
func (n *Navigator) shouldForceReload(next, prev Snapshot, policy *RoutePolicy) (bool, string) {
	n.reload.mu.Lock()
	armed := n.reload.armed
	armedSince := n.reload.armedSince
	armedReason := n.reload.reason
	n.reload.mu.Unlock()

	if armed {
		age := time.Since(armedSince)
		n.metrics.recordArmedAge(age)
		if n.cfg.ArmedWarnAfter > 0 && age >= n.cfg.ArmedWarnAfter {
			n.logger.Warn("forced reload still armed, completion event never fired",
				zap.Duration("armed_for", age),
				zap.String("armed_reason", armedReason),
			)
		}
		return false, "reload already armed"
	}

	if policy == nil {
		return false, "no active route"
	}

	if normalizePath(next.Path) != normalizePath(prev.Path) {
		return false, "path changed, router reloads on its own"
	}

	if policy.ReloadOnSearch {
		if queryEqual(next.Query, prev.Query) {
			return true, "app state changed without a search change"
		}
		return false, "search changed, router reloads on its own"
	}
	return true, "route never reloads on search changes"
}

// armForcedReload registers the one-shot listener that performs the manual
// reload on the next completed location change. Arming while armed is a
// no-op.
func (n *Navigator) armForcedReload(reason string) {
	n.reload.mu.Lock()
	if n.reload.armed {
		n.reload.mu.Unlock()
		n.logger.Debug("forced reload already armed", zap.String("reason", reason))
		return
	}
	n.reload.armed = true
	n.reload.armedSince = time.Now()
	n.reload.reason = reason
	n.reload.cancel = n.loc.OnChangeDone(n.completeForcedReload)
	n.reload.mu.Unlock()

	n.metrics.recordArmed()
	n.logger.Info("forced reload armed", zap.String("reason", reason))
}

// completeForcedReload is the one-shot listener body. The first invocation
// unregisters the listener, clears the armed flag and only then calls the
// router's reload, so the reload itself cannot re-trigger the listener.
func (n *Navigator) completeForcedReload(next Snapshot) {
	n.reload.mu.Lock()
	if !n.reload.armed {
		n.reload.mu.Unlock()
		return
	}
	if n.reload.cancel != nil {
		n.reload.cancel()
		n.reload.cancel = nil
	}
	n.reload.armed = false
	reason := n.reload.reason
	armedFor := time.Since(n.reload.armedSince)
	n.reload.mu.Unlock()

	n.metrics.recordReload()
	n.logger.Info("forced reload",
		zap.String("path", next.Path),
		zap.String("reason", reason),
		zap.Duration("armed_for", armedFor),
	)
	if n.routes != nil {
		n.routes.Reload()
	}
}

// Armed reports whether a forced-reload listener is currently pending.
func (n *Navigator) Armed() bool {
	n.reload.mu.Lock()
	defer n.reload.mu.Unlock()
	return n.reload.armed
}

// normalizePath canonicalizes the root path: empty and "/" are the same
// location.
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// queryEqual compares query parameter mappings deeply. Key order is
// irrelevant, value order within a key is significant, and nil equals
// empty.
func queryEqual(a, b url.Values) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
	}
	return true
}
