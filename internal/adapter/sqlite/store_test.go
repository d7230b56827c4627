package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/polling-place-etl/internal/domain"
	"github.com/couchcryptid/polling-place-etl/internal/geocode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geocode.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := openTemp(t)

	_, ok, err := s.Get(context.Background(), "1 Market St, Leesburg, VA")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PutGet(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	hit := geocode.Entry{Coordinates: domain.Coordinates{Lat: 38.8462, Lon: -77.3064}}
	miss := geocode.Entry{Coordinates: domain.Coordinates{Lat: 37.5, Lon: -78.5}, Failed: true}
	require.NoError(t, s.Put(ctx, "100 Main St, Fairfax, VA, 22030", hit))
	require.NoError(t, s.Put(ctx, "9 Gone Rd, Richmond, VA", miss))

	got, ok, err := s.Get(ctx, "100 Main St, Fairfax, VA, 22030")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hit, got)

	got, ok, err = s.Get(ctx, "9 Gone Rd, Richmond, VA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Failed)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_PutReplaces(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	key := "1 Market St, Leesburg, VA"

	require.NoError(t, s.Put(ctx, key, geocode.Entry{Failed: true}))
	require.NoError(t, s.Put(ctx, key, geocode.Entry{Coordinates: domain.Coordinates{Lat: 39.1157, Lon: -77.5636}}))

	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Failed)
	assert.Equal(t, 39.1157, got.Coordinates.Lat)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k", geocode.Entry{Coordinates: domain.Coordinates{Lat: 1, Lon: 2}}))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Coordinates{Lat: 1, Lon: 2}, got.Coordinates)
}
