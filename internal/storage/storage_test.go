package storage

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"

	"github.com/ligustah/fetchd/pkg/fetch"
)

func writeAll(t *testing.T, sink fetch.Sink, data string) {
	t.Helper()
	_, err := io.WriteString(sink, data)
	require.NoError(t, err)
	require.NoError(t, sink.Close())
}

func TestBucketNewWriter(t *testing.T) {
	ctx := context.Background()
	b := memblob.OpenBucket(nil)
	defer b.Close()
	s := NewBucket(b)

	sink, err := s.NewWriter(ctx, fetch.Target{Path: "/downloads/report.pdf"}, "application/pdf")
	require.NoError(t, err)
	writeAll(t, sink, "pdf")

	got, err := b.ReadAll(ctx, "downloads/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(got))

	attrs, err := b.Attributes(ctx, "downloads/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", attrs.ContentType)
}

func TestBucketRejectsBackend(t *testing.T) {
	b := memblob.OpenBucket(nil)
	defer b.Close()

	_, err := NewBucket(b).NewWriter(context.Background(), fetch.Target{Backend: "s3://other/", Path: "x"}, "")
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestBucketEmptyKey(t *testing.T) {
	b := memblob.OpenBucket(nil)
	defer b.Close()

	_, err := NewBucket(b).NewWriter(context.Background(), fetch.Target{Path: "/"}, "")
	assert.Error(t, err)
}

func TestBucketAbortOnCancel(t *testing.T) {
	b := memblob.OpenBucket(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sink, err := NewBucket(b).NewWriter(ctx, fetch.Target{Path: "partial.bin"}, "")
	require.NoError(t, err)
	_, err = sink.Write([]byte("half"))
	require.NoError(t, err)

	cancel()
	assert.Error(t, sink.Close())

	exists, err := b.Exists(context.Background(), "partial.bin")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), nil, "file://"+filepath.ToSlash(dir))
	require.NoError(t, err)
	defer s.Close()

	sink, err := s.NewWriter(context.Background(), fetch.Target{Path: "a/b.txt"}, "")
	require.NoError(t, err)
	writeAll(t, sink, "hello")

	got, err := os.ReadFile(filepath.Join(dir, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	_, err = Open(context.Background(), nil, "nosuchscheme://bucket")
	assert.Error(t, err)
}

// dirOpener maps a bucket host to a directory below root and records every
// opened URL.
type dirOpener struct {
	root string

	mu     sync.Mutex
	opened []string
}

func (o *dirOpener) OpenBucketURL(ctx context.Context, u *url.URL) (*blob.Bucket, error) {
	o.mu.Lock()
	o.opened = append(o.opened, u.String())
	o.mu.Unlock()

	dir := filepath.Join(o.root, u.Host)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return fileblob.OpenBucket(dir, nil)
}

func TestURLOpenerPrefix(t *testing.T) {
	ctx := context.Background()
	opener := &dirOpener{root: t.TempDir()}
	mux := new(blob.URLMux)
	mux.RegisterBucket("test", opener)

	s := NewURLOpener(mux)
	sink, err := s.NewWriter(ctx, fetch.Target{Backend: "test://bucket/prefix/?region=x", Path: "name.bin"}, "")
	require.NoError(t, err)
	writeAll(t, sink, "binary")

	assert.Equal(t, []string{"test://bucket?region=x"}, opener.opened)

	got, err := os.ReadFile(filepath.Join(opener.root, "bucket", "prefix", "name.bin"))
	require.NoError(t, err)
	assert.Equal(t, "binary", string(got))
}

func TestURLOpenerFile(t *testing.T) {
	dir := t.TempDir()
	s := NewURLOpener(nil)

	sink, err := s.NewWriter(context.Background(), fetch.Target{Backend: "file://" + filepath.ToSlash(dir) + "/", Path: "out.txt"}, "text/plain")
	require.NoError(t, err)
	writeAll(t, sink, "text")

	got, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "text", string(got))
}

func TestURLOpenerInvalidBackend(t *testing.T) {
	s := NewURLOpener(new(blob.URLMux))

	for _, backend := range []string{"", "relative/dir/", "unknown://bucket/"} {
		t.Run(backend, func(t *testing.T) {
			_, err := s.NewWriter(context.Background(), fetch.Target{Backend: backend, Path: "x"}, "")
			assert.Error(t, err)
		})
	}
}

func TestURLOpenerClosesBucketOnCancel(t *testing.T) {
	opener := &dirOpener{root: t.TempDir()}
	mux := new(blob.URLMux)
	mux.RegisterBucket("test", opener)

	ctx, cancel := context.WithCancel(context.Background())
	sink, err := NewURLOpener(mux).NewWriter(ctx, fetch.Target{Backend: "test://bucket/", Path: "p.bin"}, "")
	require.NoError(t, err)
	_, err = sink.Write([]byte("part"))
	require.NoError(t, err)

	cancel()
	assert.Error(t, sink.Close())

	_, err = os.Stat(filepath.Join(opener.root, "bucket", "p.bin"))
	assert.True(t, os.IsNotExist(err))
}
