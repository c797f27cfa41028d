package cart

import (
	"context"
	"errors"
)

// ErrSnapshotNotFound is returned by a Repository when nothing is stored
// under the requested key.
var ErrSnapshotNotFound = errors.New("cart snapshot not found")

// Repository is a key-value store holding serialized cart snapshots.
type Repository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}
