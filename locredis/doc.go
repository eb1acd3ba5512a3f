// Package locredis implements a redis-backed urlnav.Location.
//
// The path, query parameters and replacing flag of a session live under a
// single redis key, and completed location changes are broadcast over a
// pub/sub channel, so every process attached to the same session shares one
// logical location and observes its completions.
//
// Example usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//
//	loc, err := locredis.New(client, locredis.WithSession(sessionID))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer loc.Close()
//
//	nav := urlnav.New(loc, urlnav.WithRouteRegistry(registry))
//	nav.Change("/dashboard/{{id}}", urlnav.Context{"id": id}, nil)
//	loc.Complete()
//
// The package handles:
//   - Session state persistence and initial load
//   - Completion broadcast and subscription across processes
//   - Local subscriber dispatch for urlnav's forced-reload listeners
//   - Graceful shutdown of the completion listener
package locredis
