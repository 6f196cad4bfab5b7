package port

import "context"

// OptionStore is a key-value store for JSON option blobs. Get returns
// (nil, nil) for a missing key; Set is an upsert.
type OptionStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
