// Package catalog resolves application ids into install metadata.
//
// # Overview
//
// The build pipeline only ever reads the catalog, through the Lookup interface:
//
//	items, err := lookup.GetItemsByIDs(ctx, []string{"vlc", "chrome"})
//	missing := catalog.Missing(ids, items)
//
// Unknown ids are simply absent from the result; Missing reports them in
// request order.
//
// # Backends
//
//   - SQLLookup: the apps table in PostgreSQL (lib/pq) or SQLite (go-sqlite3)
//   - FileCatalog: a YAML document, reloaded on change via fsnotify
//
// # Caching
//
// Backends can be wrapped in read-through caches:
//
//	lookup = catalog.NewCachedLookup(backend, 1024, 5*time.Minute, metrics)
//	lookup = catalog.NewRedisLookup(lookup, redisClient, 15*time.Minute, logger, metrics)
//
// Only found items are cached, so a newly added app is visible on the next
// request. Redis failures fall through to the wrapped lookup.
package catalog
