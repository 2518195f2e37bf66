package credstore

import (
	"context"
	"errors"
)

// Store is the durable key/value storage behind credential records.
// Values are plain strings; structured fields (the permission set) are
// serialized to JSON by the layer above, one key per field.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes key to value, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteAll removes every key starting with prefix.
	DeleteAll(ctx context.Context, prefix string) error
}

var (
	// ErrStoreUnavailable wraps backend connectivity failures.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)
