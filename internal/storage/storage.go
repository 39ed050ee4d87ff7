package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/ligustah/fetchd/pkg/fetch"
)

// ErrNoBackend is returned by Bucket when a target names its own backend.
var ErrNoBackend = errors.New("storage: target backend does not match the configured bucket")

// Bucket writes into one bucket fixed at startup. It serves downloads whose
// destination is a path.
type Bucket struct {
	bucket *blob.Bucket
}

var _ fetch.Storage = (*Bucket)(nil)

// NewBucket wraps an open bucket. The caller keeps ownership of b.
func NewBucket(b *blob.Bucket) *Bucket {
	return &Bucket{bucket: b}
}

// Open opens the bucket at rawURL through mux. A nil mux uses
// blob.DefaultURLMux. The returned Bucket must be closed.
func Open(ctx context.Context, mux *blob.URLMux, rawURL string) (*Bucket, error) {
	if mux == nil {
		mux = blob.DefaultURLMux()
	}
	b, err := mux.OpenBucket(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("storage: open bucket %s: %w", redact(rawURL), describe(err))
	}
	return &Bucket{bucket: b}, nil
}

// Close closes the underlying bucket.
func (b *Bucket) Close() error {
	return b.bucket.Close()
}

// NewWriter implements fetch.Storage. Leading slashes are dropped from the
// object key; object stores have no root directory.
func (b *Bucket) NewWriter(ctx context.Context, target fetch.Target, contentType string) (fetch.Sink, error) {
	if target.Backend != "" {
		return nil, ErrNoBackend
	}
	w, err := newWriter(ctx, b.bucket, objectKey(target.Path), contentType)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// URLOpener opens a bucket for every target from the target's backend URI.
// It serves downloads whose destination is a URI.
type URLOpener struct {
	mux *blob.URLMux
}

var _ fetch.Storage = (*URLOpener)(nil)

// NewURLOpener creates a URLOpener resolving schemes through mux. A nil mux
// uses blob.DefaultURLMux.
func NewURLOpener(mux *blob.URLMux) *URLOpener {
	if mux == nil {
		mux = blob.DefaultURLMux()
	}
	return &URLOpener{mux: mux}
}

// NewWriter implements fetch.Storage. The bucket stays open until the sink is
// closed or ctx is done, whichever comes first.
func (o *URLOpener) NewWriter(ctx context.Context, target fetch.Target, contentType string) (fetch.Sink, error) {
	b, err := o.open(ctx, target.Backend)
	if err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() { b.Close() })
	w, err := newWriter(ctx, b, objectKey(target.Path), contentType)
	if err != nil {
		if stop() {
			b.Close()
		}
		return nil, err
	}
	w.release = func() error {
		if stop() {
			return b.Close()
		}
		return nil
	}
	return w, nil
}

// open opens the bucket named by backend. For file URLs the path is the
// bucket's root directory. For every other scheme the host names the bucket
// and the path becomes a key prefix.
func (o *URLOpener) open(ctx context.Context, backend string) (*blob.Bucket, error) {
	u, err := url.Parse(backend)
	if err != nil {
		return nil, fmt.Errorf("storage: parse backend: %w", err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("storage: backend %s has no scheme", redact(backend))
	}

	if u.Scheme == "file" {
		b, err := o.mux.OpenBucketURL(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("storage: open bucket %s: %w", redact(backend), describe(err))
		}
		return b, nil
	}

	prefix := strings.TrimPrefix(u.Path, "/")
	root := *u
	root.Path = ""
	root.RawPath = ""
	b, err := o.mux.OpenBucketURL(ctx, &root)
	if err != nil {
		return nil, fmt.Errorf("storage: open bucket %s: %w", redact(backend), describe(err))
	}
	if prefix != "" {
		b = blob.PrefixedBucket(b, prefix)
	}
	return b, nil
}

// writer adapts *blob.Writer to fetch.Sink.
type writer struct {
	w       *blob.Writer
	key     string
	release func() error
}

func newWriter(ctx context.Context, b *blob.Bucket, key, contentType string) (*writer, error) {
	if key == "" {
		return nil, errors.New("storage: empty object key")
	}
	w, err := b.NewWriter(ctx, key, &blob.WriterOptions{
		ContentType:                 contentType,
		DisableContentTypeDetection: contentType == "",
	})
	if err != nil {
		return nil, fmt.Errorf("storage: new writer %s: %w", key, describe(err))
	}
	return &writer{w: w, key: key}, nil
}

func (w *writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("storage: write %s: %w", w.key, describe(err))
	}
	return n, nil
}

// Close commits the object.
func (w *writer) Close() error {
	err := w.w.Close()
	if w.release != nil {
		if rerr := w.release(); rerr != nil && err == nil {
			err = rerr
		}
	}
	if err != nil {
		return fmt.Errorf("storage: commit %s: %w", w.key, describe(err))
	}
	return nil
}

func objectKey(p string) string {
	return strings.TrimLeft(p, "/")
}

// describe prefixes err with its portable error code when one is known.
func describe(err error) error {
	if code := gcerrors.Code(err); code != gcerrors.Unknown && code != gcerrors.OK {
		return fmt.Errorf("%s: %w", code, err)
	}
	return err
}

// redact strips the query string, which may carry credentials.
func redact(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
