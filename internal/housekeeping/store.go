// Package housekeeping keeps the small amount of persistent state that
// decides, at start-up, whether the library needs a full crawl.
package housekeeping

import "context"

// Keys stored by the policy.
const (
	KeyVersion     = "version"
	KeyLastIndexTS = "last_index_ts"
	KeyReindex     = "reindex"
)

// Store is a string key-value store.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	// Clear removes every key.
	Clear(ctx context.Context) error
	Close() error
}
