package builds

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/catalog"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/plan"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/validation"
)

type fakePackager struct {
	kind  ArtifactKind
	err   error
	calls int
}

func (f *fakePackager) Compile(ctx context.Context, scriptPath, outputDir string) (ArtifactKind, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.kind == KindNativeExecutable {
		if err := os.WriteFile(filepath.Join(outputDir, ExecutableName), []byte("MZ"), 0644); err != nil {
			return "", err
		}
		return KindNativeExecutable, os.Remove(scriptPath)
	}
	return KindScriptPlusLauncher, WriteLauncher(outputDir)
}

func testPlan() plan.InstallPlan {
	return plan.Build([]catalog.Item{
		{ID: "a", Name: "A", PackageManagerID: "A.A"},
		{ID: "b", Name: "B"},
	})
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "builds"), nil)
	require.NoError(t, err)
	return store
}

func TestNewStore_Idempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "builds")
	_, err := NewStore(root, nil)
	require.NoError(t, err)
	_, err = NewStore(root, nil)
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_CreateNative(t *testing.T) {
	store := newTestStore(t)
	packager := &fakePackager{kind: KindNativeExecutable}

	build, err := store.Create(context.Background(), testPlan(), "Write-Host 'hi'", packager)
	require.NoError(t, err)

	assert.True(t, validation.IsValidBuildID(build.ID))
	assert.Equal(t, filepath.Join(store.Root(), build.ID), build.Dir)
	assert.Equal(t, KindNativeExecutable, build.ArtifactKind)
	assert.Equal(t, 2, build.ItemCount)
	assert.False(t, build.CreatedAt.IsZero())
	assert.Equal(t, 1, packager.calls)

	entries, err := os.ReadDir(build.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ExecutableName, entries[0].Name())

	kind, err := DetectArtifactKind(build.Dir)
	require.NoError(t, err)
	assert.Equal(t, KindNativeExecutable, kind)
}

func TestStore_CreateWithoutPackager(t *testing.T) {
	store := newTestStore(t)

	build, err := store.Create(context.Background(), testPlan(), "Write-Host 'สวัสดี'", nil)
	require.NoError(t, err)
	assert.Equal(t, KindScriptPlusLauncher, build.ArtifactKind)

	data, err := os.ReadFile(filepath.Join(build.Dir, ScriptName))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, utf8BOM))
	assert.Equal(t, "Write-Host 'สวัสดี'", string(data[len(utf8BOM):]))

	launcher, err := os.ReadFile(filepath.Join(build.Dir, LauncherName))
	require.NoError(t, err)
	assert.Contains(t, string(launcher), `"%~dp0install.ps1"`)

	kind, err := DetectArtifactKind(build.Dir)
	require.NoError(t, err)
	assert.Equal(t, KindScriptPlusLauncher, kind)

	entries, err := os.ReadDir(build.Dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{ScriptName, LauncherName}, names)
}

func TestStore_CreateFreshIDs(t *testing.T) {
	store := newTestStore(t)
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		build, err := store.Create(context.Background(), testPlan(), "x", nil)
		require.NoError(t, err)
		assert.False(t, seen[build.ID], "build id reused")
		seen[build.ID] = true
	}
}

func TestStore_CreatePackagerFailureRemovesDir(t *testing.T) {
	store := newTestStore(t)
	packager := &fakePackager{err: errors.New("disk full")}

	_, err := store.Create(context.Background(), testPlan(), "x", packager)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPackagingFailed)

	entries, err := os.ReadDir(store.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_Resolve(t *testing.T) {
	store := newTestStore(t)
	build, err := store.Create(context.Background(), testPlan(), "x", nil)
	require.NoError(t, err)

	dir, err := store.Resolve(build.ID)
	require.NoError(t, err)
	assert.Equal(t, build.Dir, dir)

	_, err = store.Resolve("7f3c2a9e-4b1d-4c8e-9a2f-1d3e5b7c9f01")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "0b6f3a52-8d4e-4f6a-b1c2-3d4e5f6a7b8c"), []byte("x"), 0644))
	_, err = store.Resolve("0b6f3a52-8d4e-4f6a-b1c2-3d4e5f6a7b8c")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ResolveRejectsBadTokens(t *testing.T) {
	store := newTestStore(t)

	// A directory that would be reachable if the token were joined unchecked
	require.NoError(t, os.Mkdir(filepath.Join(store.Root(), "not-a-uuid"), 0755))

	for _, id := range []string{
		"",
		"not-a-uuid",
		"../etc/passwd",
		"..",
		"7F3C2A9E-4B1D-4C8E-9A2F-1D3E5B7C9F01",
		"7f3c2a9e-4b1d-1c8e-9a2f-1d3e5b7c9f01",
		"7f3c2a9e4b1d4c8e9a2f1d3e5b7c9f01",
	} {
		_, err := store.Resolve(id)
		assert.ErrorIs(t, err, ErrInvalidID, id)
	}
}

func TestStore_Walk(t *testing.T) {
	store := newTestStore(t)
	var ids []string
	for i := 0; i < 3; i++ {
		build, err := store.Create(context.Background(), testPlan(), "script", nil)
		require.NoError(t, err)
		ids = append(ids, build.ID)
	}
	require.NoError(t, os.Mkdir(filepath.Join(store.Root(), "scratch"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "README"), []byte("x"), 0644))

	var walked []string
	err := store.Walk(func(e Entry) error {
		walked = append(walked, e.ID)
		assert.Greater(t, e.Bytes, int64(0))
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, walked)

	stop := errors.New("stop")
	count := 0
	err = store.Walk(func(Entry) error {
		count++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, count)
}

func TestUsageCollector_Collect(t *testing.T) {
	store := newTestStore(t)
	old, err := store.Create(context.Background(), testPlan(), "old", nil)
	require.NoError(t, err)
	_, err = store.Create(context.Background(), testPlan(), "new", nil)
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old.Dir, past, past))

	collector := NewUsageCollector(store, 24*time.Hour, nil, nil)
	usage, err := collector.Collect()
	require.NoError(t, err)
	assert.Equal(t, 2, usage.Builds)
	assert.Equal(t, 1, usage.PastRetention)
	assert.Greater(t, usage.Bytes, int64(0))

	collector = NewUsageCollector(store, 0, nil, nil)
	usage, err = collector.Collect()
	require.NoError(t, err)
	assert.Equal(t, 0, usage.PastRetention)

	collector.Run()
}
