package fetch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Sender issues a request described by a RequestSpec. The returned body stays
// readable after Send returns; closing it releases the connection.
type Sender interface {
	Send(ctx context.Context, spec RequestSpec) (*http.Response, error)
}

// Storage opens sinks for resolved targets. contentType is empty when the
// object's type should be left unset.
type Storage interface {
	NewWriter(ctx context.Context, target Target, contentType string) (Sink, error)
}

// Request is one download: where to read from and where to write to.
type Request struct {
	Spec        RequestSpec
	Destination Destination
}

// Result describes a successful download.
type Result struct {
	Size   uint64
	Target Target
}

// Options configures a Fetcher.
type Options struct {
	// BufferSize is the size of each body read. Default: 32KiB.
	BufferSize int

	// Logger receives phase transitions. Default: slog.Default().
	Logger *slog.Logger

	// Observer is notified of resolution and written chunks. Optional.
	Observer Observer
}

// Fetcher runs downloads. It holds only shared, read-only collaborators and is
// safe for concurrent use.
type Fetcher struct {
	sender  Sender
	storage Storage
	opts    Options
}

// New creates a Fetcher.
func New(sender Sender, storage Storage, opts Options) *Fetcher {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Fetcher{sender: sender, storage: storage, opts: opts}
}

// Fetch downloads req.Spec into req.Destination. It is one retry unit: every
// returned error is an *Error whose Kind says whether re-running Fetch may
// help. No Result is returned alongside an error.
//
// A retry after a failure in the streaming phase may rewrite an object that
// was partially written by the failed attempt.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if req.Spec.URL == nil {
		return nil, &Error{Kind: KindValidation, Phase: PhaseBuilt, Msg: "request has no url"}
	}
	log := f.logger(ctx).With("url", req.Spec.URL.String())

	res, phase, err := f.fetch(ctx, log, req)
	if err != nil {
		err = withPhase(err, phase)
		level := slog.LevelError
		if IsRetryable(err) {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, "download failed",
			"phase", string(phase),
			"kind", KindOf(err).String(),
			"retryable", IsRetryable(err),
			"error", err)
		return nil, err
	}

	log.Info("download complete",
		"path", res.Target.Path,
		"backend", res.Target.Backend,
		"size", res.Size,
		"duration", time.Since(start))
	return res, nil
}

func (f *Fetcher) fetch(ctx context.Context, log *slog.Logger, req Request) (*Result, Phase, error) {
	if req.Destination == nil {
		return nil, PhaseBuilt, newError(KindValidation, "request has no destination", nil)
	}

	log.Debug("sending request")
	resp, err := f.sender.Send(ctx, req.Spec)
	if err != nil {
		// Request construction errors are already tagged; anything else
		// means no response was obtained.
		if KindOf(err) == KindValidation {
			return nil, PhaseBuilt, err
		}
		return nil, PhaseSent, Classify(nil, err)
	}
	if err := Classify(resp, nil); err != nil {
		resp.Body.Close()
		return nil, PhaseClassified, err
	}
	defer resp.Body.Close()
	log.Debug("response classified", "status", resp.StatusCode)

	target, err := req.Destination.Resolve(MetadataFromResponse(resp))
	if err != nil {
		return nil, PhasePathResolved, err
	}
	log.Debug("target resolved", "path", target.Path, "backend", target.Backend)
	if f.opts.Observer != nil {
		f.opts.Observer.Resolved(target, resp.ContentLength)
	}

	contentType := req.Destination.ContentType().Resolve(resp.Header)

	// Cancelling sinkCtx after the operation releases an unfinalized sink.
	// It is not a rollback: chunks already accepted by the backend stay
	// wherever the backend put them.
	sinkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink, err := f.storage.NewWriter(sinkCtx, target, contentType)
	if err != nil {
		return nil, PhaseSinkOpened, newError(KindStorage, "failed to create storage writer", err)
	}
	log.Debug("sink opened", "content_type", contentType)

	size, err := Copy(sink, resp.Body, make([]byte, f.opts.BufferSize), f.opts.Observer)
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) && fe.Phase == PhaseFinalized {
			return nil, PhaseFinalized, err
		}
		return nil, PhaseStreaming, err
	}

	return &Result{Size: size, Target: target}, PhaseFinalized, nil
}

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying l. Downloads run with that ctx log
// through l instead of the Fetcher's logger.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func (f *Fetcher) logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return f.opts.Logger
}

// withPhase records phase on err if it has none yet.
func withPhase(err error, phase Phase) error {
	var fe *Error
	if !errors.As(err, &fe) {
		return &Error{Kind: KindUnknown, Phase: phase, Err: err}
	}
	if fe.Phase == "" {
		fe.Phase = phase
	}
	return err
}
