package localstore

// Store is the durable key/value cache that survives restarts. It holds the
// pending-operation queues and the last good copy of every mirror.
type Store interface {
	// Save replaces the value under key.
	Save(key string, value any) error
	// Load decodes the value under key into dst. It reports false when the key
	// is missing or the stored value cannot be decoded; dst is left untouched.
	Load(key string, dst any) bool
	Delete(key string) error
	Close() error
}

// LoadOr returns the value stored under key or def when it is missing or
// corrupt.
func LoadOr[T any](s Store, key string, def T) T {
	var v T
	if !s.Load(key, &v) {
		return def
	}
	return v
}
