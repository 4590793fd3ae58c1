package common

import "time"

// CacheInterface is satisfied by the in-process cache and by Redis. The chart
// generator caches base64 strings through it, so both backends round-trip
// strings unchanged.
type CacheInterface interface {
	Set(key string, value interface{}, duration time.Duration)
	// Get reports false for missing, expired or undecodable entries.
	Get(key string) (interface{}, bool)
	Delete(key string)
	GetOrSet(key string, duration time.Duration, loader func() (any, error)) (interface{}, error)
	Close() error
}
