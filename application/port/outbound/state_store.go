package outbound

import (
	"context"
	"errors"
)

var ErrStateNotFound = errors.New("state key not found")

// StateStore is the key-value persistence space the session lives in. Clear
// wipes every key of the space, not only the session keys.
type StateStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
