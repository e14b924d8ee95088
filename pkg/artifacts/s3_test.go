package artifacts

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/builds"
)

type putCall struct {
	key         string
	body        string
	length      int64
	contentType string
	metadata    map[string]string
}

type fakeS3 struct {
	mu    sync.Mutex
	calls []putCall
	fail  map[string]bool
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	if f.fail[key] {
		return nil, errors.New("access denied")
	}
	f.calls = append(f.calls, putCall{
		key:         key,
		body:        string(body),
		length:      aws.ToInt64(in.ContentLength),
		contentType: aws.ToString(in.ContentType),
		metadata:    in.Metadata,
	})
	return &s3.PutObjectOutput{}, nil
}

func testBuild(t *testing.T) *builds.Build {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, builds.ScriptName), []byte("Write-Host 'hi'"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, builds.LauncherName), []byte("@echo off\r\n"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	return &builds.Build{
		ID:           "3fa85f64-5717-4562-b3fc-2c963f66afa6",
		Dir:          dir,
		ArtifactKind: builds.KindScriptPlusLauncher,
		ItemCount:    4,
	}
}

func TestS3Publisher_Publish(t *testing.T) {
	client := &fakeS3{}
	pub := NewS3PublisherWithClient(client, Config{Bucket: "kll-builds", Prefix: "builds"}, nil, nil)
	build := testBuild(t)

	require.NoError(t, pub.Publish(context.Background(), build))

	require.Len(t, client.calls, 2)
	sort.Slice(client.calls, func(i, j int) bool { return client.calls[i].key < client.calls[j].key })

	bat := client.calls[0]
	assert.Equal(t, "builds/3fa85f64-5717-4562-b3fc-2c963f66afa6/Install.bat", bat.key)
	assert.Equal(t, "@echo off\r\n", bat.body)
	assert.Equal(t, int64(len("@echo off\r\n")), bat.length)

	ps1 := client.calls[1]
	assert.Equal(t, "builds/3fa85f64-5717-4562-b3fc-2c963f66afa6/install.ps1", ps1.key)
	assert.Equal(t, "text/plain; charset=utf-8", ps1.contentType)
	assert.Equal(t, build.ID, ps1.metadata["build-id"])
	assert.Equal(t, "script_plus_launcher", ps1.metadata["artifact-kind"])
	assert.Equal(t, "4", ps1.metadata["item-count"])
	assert.Len(t, ps1.metadata["sha256"], 64)
}

func TestS3Publisher_PublishAggregatesErrors(t *testing.T) {
	build := testBuild(t)
	client := &fakeS3{fail: map[string]bool{
		build.ID + "/install.ps1": true,
		build.ID + "/Install.bat": true,
	}}
	pub := NewS3PublisherWithClient(client, Config{Bucket: "kll-builds"}, nil, nil)

	err := pub.Publish(context.Background(), build)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Equal(t, 2, strings.Count(err.Error(), "access denied"))
}

func TestS3Publisher_MissingDir(t *testing.T) {
	pub := NewS3PublisherWithClient(&fakeS3{}, Config{Bucket: "b"}, nil, nil)
	err := pub.Publish(context.Background(), &builds.Build{ID: "x", Dir: filepath.Join(t.TempDir(), "gone")})
	assert.Error(t, err)
}

func TestNewS3Publisher_RequiresBucket(t *testing.T) {
	_, err := NewS3Publisher(context.Background(), Config{}, nil, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/vnd.microsoft.portable-executable", contentType(builds.ExecutableName))
	assert.Equal(t, "text/plain; charset=utf-8", contentType(builds.LauncherName))
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}
