package urlnav

// RoutePolicy is the reload policy of the currently matched route.
// ReloadOnSearch mirrors the surrounding router's own behavior: when true
// the router reloads the view on any search change, when false it never
// reloads for search changes.
type RoutePolicy struct {
	ReloadOnSearch bool
}

// RouteRegistry is the consumed router contract: the active route's policy
// and an explicit reload of the current view. ActivePolicy returning nil
// means no route is matched.
type RouteRegistry interface {
	ActivePolicy() *RoutePolicy
	Reload()
}

// StaticRegistry is a RouteRegistry with a fixed policy and an optional
// reload callback.
type StaticRegistry struct {
	Policy   *RoutePolicy
	OnReload func()
}

// ActivePolicy returns the configured policy.
func (r *StaticRegistry) ActivePolicy() *RoutePolicy { return r.Policy }

// Reload invokes the reload callback when one is set.
func (r *StaticRegistry) Reload() {
	if r.OnReload != nil {
		r.OnReload()
	}
}
