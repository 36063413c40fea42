package store

import (
	"context"
	"log/slog"
)

// Describer fetches a crackme's description from somewhere slower than the cache.
type Describer interface {
	Description(ctx context.Context, id string) (string, error)
}

// CachedDescriber answers from the local cache and falls back to Next,
// storing whatever Next returns. Cache errors are logged and never fatal.
type CachedDescriber struct {
	DB   *DB
	Next Describer
}

// Description implements Describer.
func (c *CachedDescriber) Description(ctx context.Context, id string) (string, error) {
	desc, ok, err := c.DB.Description(id)
	switch {
	case err != nil:
		slog.WarnContext(ctx, "cache lookup failed", "id", id, "err", err)
	case ok:
		slog.DebugContext(ctx, "description cache hit", "id", id)
		return desc, nil
	}

	desc, err = c.Next.Description(ctx, id)
	if err != nil {
		return "", err
	}
	if err := c.DB.SaveDescription(id, desc); err != nil {
		slog.WarnContext(ctx, "caching description failed", "id", id, "err", err)
	}
	return desc, nil
}
