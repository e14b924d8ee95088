package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingLookup records every id it is asked for
type countingLookup struct {
	mu    sync.Mutex
	items map[string]Item
	asked [][]string
	err   error
}

func newCountingLookup(items ...Item) *countingLookup {
	m := make(map[string]Item, len(items))
	for _, item := range items {
		m[item.ID] = item
	}
	return &countingLookup{items: m}
}

func (c *countingLookup) GetItemsByIDs(ctx context.Context, ids []string) ([]Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asked = append(c.asked, append([]string(nil), ids...))
	if c.err != nil {
		return nil, c.err
	}
	var out []Item
	for _, id := range ids {
		if item, ok := c.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func TestCachedLookup(t *testing.T) {
	backend := newCountingLookup(Item{ID: "vlc", Name: "VLC"}, Item{ID: "obs", Name: "OBS"})
	cached := NewCachedLookup(backend, 100, time.Minute, nil)
	ctx := context.Background()

	items, err := cached.GetItemsByIDs(ctx, []string{"vlc", "nope"})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = cached.GetItemsByIDs(ctx, []string{"vlc", "obs", "nope"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.Len(t, backend.asked, 2)
	assert.Equal(t, []string{"vlc", "nope"}, backend.asked[0])
	assert.Equal(t, []string{"obs", "nope"}, backend.asked[1], "cached hits are not re-fetched and misses are not cached")

	_, err = cached.GetItemsByIDs(ctx, []string{"vlc", "obs"})
	require.NoError(t, err)
	assert.Len(t, backend.asked, 2, "fully cached request skips the backend")

	cached.Purge()
	_, err = cached.GetItemsByIDs(ctx, []string{"vlc"})
	require.NoError(t, err)
	assert.Len(t, backend.asked, 3)
}

func TestCachedLookup_BackendError(t *testing.T) {
	backend := newCountingLookup()
	backend.err = ErrBackendUnavailable
	cached := NewCachedLookup(backend, 100, time.Minute, nil)

	_, err := cached.GetItemsByIDs(context.Background(), []string{"vlc"})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLookup(t *testing.T) {
	mr, client := setupRedis(t)
	backend := newCountingLookup(Item{ID: "vlc", Name: "VLC", PackageManagerID: "VideoLAN.VLC"})
	lookup := NewRedisLookup(backend, client, 10*time.Minute, nil, nil)
	ctx := context.Background()

	items, err := lookup.GetItemsByIDs(ctx, []string{"vlc", "nope"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.True(t, mr.Exists("kll:catalog:app:vlc"))
	assert.False(t, mr.Exists("kll:catalog:app:nope"))
	assert.Equal(t, 10*time.Minute, mr.TTL("kll:catalog:app:vlc"))

	items, err = lookup.GetItemsByIDs(ctx, []string{"vlc"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "VideoLAN.VLC", items[0].PackageManagerID)
	assert.Len(t, backend.asked, 1, "second lookup is served from redis")

	require.NoError(t, lookup.Invalidate(ctx, "vlc"))
	assert.False(t, mr.Exists("kll:catalog:app:vlc"))
}

func TestRedisLookup_CorruptEntryIsRefetched(t *testing.T) {
	mr, client := setupRedis(t)
	require.NoError(t, mr.Set("kll:catalog:app:vlc", "{not json"))

	backend := newCountingLookup(Item{ID: "vlc", Name: "VLC"})
	lookup := NewRedisLookup(backend, client, time.Minute, nil, nil)

	items, err := lookup.GetItemsByIDs(context.Background(), []string{"vlc"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Len(t, backend.asked, 1)
}

func TestRedisLookup_FallsThroughWhenRedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	mr.Close()

	backend := newCountingLookup(Item{ID: "vlc", Name: "VLC"})
	lookup := NewRedisLookup(backend, client, time.Minute, nil, nil)

	items, err := lookup.GetItemsByIDs(context.Background(), []string{"vlc"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRedisLookup_BackendErrorPropagates(t *testing.T) {
	_, client := setupRedis(t)
	backend := newCountingLookup()
	backend.err = errors.New("db down")
	lookup := NewRedisLookup(backend, client, time.Minute, nil, nil)

	_, err := lookup.GetItemsByIDs(context.Background(), []string{"vlc"})
	assert.EqualError(t, err, "db down")
}

const vlcCatalog = `apps:
  - id: vlc
    name: VLC
    packageManagerId: VideoLAN.VLC
  - id: notion
    name: Notion
    officialWebsiteUrl: https://www.notion.so
`

const notionOnlyCatalog = `apps:
  - id: notion
    name: Notion
    officialWebsiteUrl: https://notion.example.com
`

func TestCachedLookup_PurgedOnFileReload(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), vlcCatalog)
	fc, err := NewFileCatalog(path, nil)
	require.NoError(t, err)

	cached := NewCachedLookup(fc, 1024, 5*time.Minute, nil)
	fc.OnReload(func([]string) { cached.Purge() })
	ctx := context.Background()

	items, err := cached.GetItemsByIDs(ctx, []string{"vlc", "notion"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	writeCatalog(t, filepath.Dir(path), notionOnlyCatalog)
	require.NoError(t, fc.Reload())

	items, err = cached.GetItemsByIDs(ctx, []string{"vlc"})
	require.NoError(t, err)
	assert.Empty(t, items, "removed app must not be served from the cache")

	items, err = cached.GetItemsByIDs(ctx, []string{"notion"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://notion.example.com", items[0].OfficialWebsiteURL)
}

func TestRedisLookup_InvalidatedOnFileReload(t *testing.T) {
	mr, client := setupRedis(t)
	path := writeCatalog(t, t.TempDir(), vlcCatalog)
	fc, err := NewFileCatalog(path, nil)
	require.NoError(t, err)

	lookup := NewRedisLookup(fc, client, 15*time.Minute, nil, nil)
	var touched []string
	fc.OnReload(func(ids []string) {
		touched = ids
		require.NoError(t, lookup.Invalidate(context.Background(), ids...))
	})
	ctx := context.Background()

	_, err = lookup.GetItemsByIDs(ctx, []string{"vlc"})
	require.NoError(t, err)
	require.True(t, mr.Exists("kll:catalog:app:vlc"))

	writeCatalog(t, filepath.Dir(path), notionOnlyCatalog)
	require.NoError(t, fc.Reload())

	assert.ElementsMatch(t, []string{"vlc", "notion"}, touched)
	assert.False(t, mr.Exists("kll:catalog:app:vlc"))

	items, err := lookup.GetItemsByIDs(ctx, []string{"vlc"})
	require.NoError(t, err)
	assert.Empty(t, items)
}
