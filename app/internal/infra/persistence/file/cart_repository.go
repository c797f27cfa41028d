// Package file stores cart snapshots in a single JSON document on disk,
// mapping each key to its serialized cart.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	domcart "example.com/storefront-cart/app/internal/domain/cart"
)

type CartRepository struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

func NewCartRepository(path string, logger *slog.Logger) *CartRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartRepository{path: path, logger: logger}
}

func (r *CartRepository) Load(ctx context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if err != nil {
		return nil, err
	}
	val, ok := entries[key]
	if !ok {
		return nil, domcart.ErrSnapshotNotFound
	}
	return []byte(val), nil
}

// Save rewrites the whole document through a temp file and rename, so a
// crash never leaves a half-written file behind.
func (r *CartRepository) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read()
	if err != nil {
		return err
	}
	entries[key] = string(data)

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".cart-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}

func (r *CartRepository) read() (map[string]string, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, err
	}

	entries := make(map[string]string)
	if len(raw) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return r.quarantine(err)
	}
	return entries, nil
}

// quarantine moves an unparseable document aside so the store starts over
// empty instead of failing every request. The old bytes are kept for
// inspection next to the original path.
func (r *CartRepository) quarantine(cause error) (map[string]string, error) {
	aside := fmt.Sprintf("%s.corrupt-%s", r.path, time.Now().UTC().Format("20060102T150405.000000000"))
	if err := os.Rename(r.path, aside); err != nil {
		return nil, fmt.Errorf("move corrupt %s aside: %w", r.path, err)
	}
	r.logger.Warn("cart_file_quarantined", "path", r.path, "moved_to", aside, "error", cause)
	return make(map[string]string), nil
}
