// Package cache provides a generic, size-bounded LRU map.
//
// It bounds per-key state that would otherwise grow with the number of
// tenants, such as the OAuth token sources the platform factory keeps per
// (platform, scope):
//
//	sources := cache.NewLRU[sourceKey, *cachedSource](1024)
//	src = sources.PutIfAbsent(key, src)
package cache
