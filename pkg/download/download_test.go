package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/builds"
	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/plan"
)

type nativePackager struct{}

func (nativePackager) Compile(_ context.Context, scriptPath, outputDir string) (builds.ArtifactKind, error) {
	if err := os.WriteFile(filepath.Join(outputDir, builds.ExecutableName), []byte("MZ native"), 0755); err != nil {
		return "", err
	}
	return builds.KindNativeExecutable, os.Remove(scriptPath)
}

// recordingResolver fails the test if Resolve is reached
type recordingResolver struct {
	calls int
}

func (r *recordingResolver) Resolve(string) (string, error) {
	r.calls++
	return "", errors.New("unexpected resolve")
}

func newStore(t *testing.T) *builds.Store {
	t.Helper()
	store, err := builds.NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	return store
}

func TestServer_OpenExecutable(t *testing.T) {
	store := newStore(t)
	build, err := store.Create(context.Background(), plan.InstallPlan{}, "script", nativePackager{})
	require.NoError(t, err)

	art, err := NewServer(store).Open(build.ID)
	require.NoError(t, err)
	assert.Equal(t, builds.KindNativeExecutable, art.Kind)
	assert.Equal(t, "KodLaewLong-Installer.exe", art.FileName)
	assert.Equal(t, ContentTypeExecutable, art.ContentType)
	assert.Equal(t, int64(len("MZ native")), art.Size)

	var buf bytes.Buffer
	n, err := art.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, "MZ native", buf.String())
}

func TestServer_OpenArchive(t *testing.T) {
	store := newStore(t)
	build, err := store.Create(context.Background(), plan.InstallPlan{}, "Write-Host 'hi'", nil)
	require.NoError(t, err)

	art, err := NewServer(store).Open(build.ID)
	require.NoError(t, err)
	assert.Equal(t, builds.KindScriptPlusLauncher, art.Kind)
	assert.Equal(t, "KodLaewLong-Installer-"+build.ID[:8]+".zip", art.FileName)
	assert.Equal(t, ContentTypeArchive, art.ContentType)

	var buf bytes.Buffer
	n, err := art.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	contents := make(map[string]string)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Deflate, f.Method)
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = string(data)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"KodLaewLong-Installer/Install.bat", "KodLaewLong-Installer/install.ps1"}, names)
	assert.Equal(t, "\ufeffWrite-Host 'hi'", contents["KodLaewLong-Installer/install.ps1"])
	assert.Contains(t, contents["KodLaewLong-Installer/Install.bat"], "\r\n")
}

func TestServer_OpenBadIDNeverResolves(t *testing.T) {
	store := newStore(t)
	srv := NewServer(store)

	for _, id := range []string{"not-a-uuid", "../etc/passwd", "..%2F..%2Fetc", ""} {
		_, err := srv.Open(id)
		assert.ErrorIs(t, err, ErrBadBuildID, id)
	}
}

func TestServer_OpenNotFound(t *testing.T) {
	_, err := NewServer(newStore(t)).Open("3fa85f64-5717-4562-b3fc-2c963f66afa6")
	assert.ErrorIs(t, err, ErrBuildNotFound)
}

func TestServer_OpenResolverFailure(t *testing.T) {
	resolver := &recordingResolver{}
	_, err := NewServer(resolver).Open("3fa85f64-5717-4562-b3fc-2c963f66afa6")
	assert.ErrorIs(t, err, ErrArchive)
	assert.Equal(t, 1, resolver.calls)
}

type failingWriter struct {
	after int
	n     int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.n+len(p) > f.after {
		return 0, errors.New("connection reset")
	}
	f.n += len(p)
	return len(p), nil
}

func TestArtifact_WriteToReportsPartialBytes(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 2<<20)
	rand.New(rand.NewSource(1)).Read(big)
	require.NoError(t, os.WriteFile(filepath.Join(dir, builds.ScriptName), big, 0644))

	art := &Artifact{BuildID: "x", Dir: dir, Kind: builds.KindScriptPlusLauncher}
	n, err := art.WriteTo(&failingWriter{after: 1 << 20})
	assert.ErrorIs(t, err, ErrArchive)
	assert.LessOrEqual(t, n, int64(1<<20))
}

func TestArchiveFileName(t *testing.T) {
	assert.Equal(t, "KodLaewLong-Installer-3fa85f64.zip", ArchiveFileName("3fa85f64-5717-4562-b3fc-2c963f66afa6"))
	assert.Equal(t, "KodLaewLong-Installer-abc.zip", ArchiveFileName("abc"))
}
