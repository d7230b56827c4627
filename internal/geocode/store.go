package geocode

import (
	"context"

	"github.com/couchcryptid/polling-place-etl/internal/domain"
)

// Entry is a cached lookup outcome.
type Entry struct {
	Coordinates domain.Coordinates
	Failed      bool // lookup failed; callers get the fallback
}

// Store persists lookup outcomes across runs. Get reports ok=false for an
// unknown key.
type Store interface {
	Get(ctx context.Context, key string) (entry Entry, ok bool, err error)
	Put(ctx context.Context, key string, entry Entry) error
}
