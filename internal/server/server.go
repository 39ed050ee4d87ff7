package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ligustah/fetchd/internal/metrics"
	"github.com/ligustah/fetchd/pkg/fetch"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-Id"

// DefaultMaxBodyBytes limits the size of a download payload.
const DefaultMaxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	// Service is the first path segment of the download endpoint.
	// Default: "Downloader"
	Service string

	// Bound selects the payload shape. When true, requests carry an optional
	// path inside the configured store; otherwise they carry a destination URI.
	Bound bool

	// Logger receives request logs. Default: slog.Default().
	Logger *slog.Logger

	// Metrics records download outcomes. Optional.
	Metrics *metrics.Metrics

	// Gatherer is exposed on /metrics when set.
	Gatherer prometheus.Gatherer

	// MaxBodyBytes limits the request payload. Default: DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Server exposes the download operation over HTTP.
type Server struct {
	fetcher *fetch.Fetcher
	opts    Options
	handler http.Handler
}

// New creates a Server running downloads with f.
func New(f *fetch.Fetcher, opts Options) *Server {
	if opts.Service == "" {
		opts.Service = "Downloader"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{fetcher: f, opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /"+opts.Service+"/download", s.handleDownload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	s.handler = s.withRequestID(mux)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on l until ctx is done, then shuts down
// gracefully, giving running downloads up to shutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, l net.Listener, shutdownTimeout time.Duration) error {
	// Handlers outlive ctx until shutdown gives up on them.
	handlerCtx, cancelHandlers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelHandlers()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return handlerCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("listening", "addr", l.Addr().String(), "service", s.opts.Service, "bound", s.opts.Bound)
		errCh <- srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.opts.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.opts.Logger.Warn("shutdown timed out, cancelling running downloads", "error", err)
		cancelHandlers()
		srv.Close()
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, l, shutdownTimeout)
}

type ctxKey struct{}

// RequestID returns the ID assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok\n")
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.opts.Logger.With("request_id", RequestID(ctx))

	req, err := s.decode(w, r)
	if err != nil {
		// Undecodable payloads carry no kind; invalid field values do.
		status := http.StatusBadRequest
		if fetch.KindOf(err) != fetch.KindUnknown {
			status = statusFor(err)
		}
		log.Info("bad request", "error", err)
		s.sendError(w, log, status, err, fetch.KindValidation)
		return
	}

	var done func(*fetch.Result, error)
	if s.opts.Metrics != nil {
		done = s.opts.Metrics.Begin()
	}
	res, err := s.fetcher.Fetch(fetch.WithLogger(ctx, log), req)
	if done != nil {
		done(res, err)
	}
	if err != nil {
		kind := fetch.KindOf(err)
		s.sendError(w, log, statusFor(err), err, kind)
		return
	}

	s.sendJSON(w, log, http.StatusOK, fetch.NewResponse(res, !s.opts.Bound))
}

// decode reads the payload for the configured shape and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (fetch.Request, error) {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	if s.opts.Bound {
		var payload fetch.PathDownloadRequest
		if err := dec.Decode(&payload); err != nil {
			return fetch.Request{}, fmt.Errorf("invalid JSON payload: %w", err)
		}
		return payload.ToRequest()
	}

	var payload fetch.URIDownloadRequest
	if err := dec.Decode(&payload); err != nil {
		return fetch.Request{}, fmt.Errorf("invalid JSON payload: %w", err)
	}
	return payload.ToRequest()
}

// statusFor maps a download error to a response status.
func statusFor(err error) int {
	kind := fetch.KindOf(err)
	switch {
	case kind.Retryable():
		return http.StatusServiceUnavailable
	case kind == fetch.KindValidation, kind == fetch.KindResolution, kind == fetch.KindHTTPClient:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Message   string `json:"message"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

func (s *Server) sendError(w http.ResponseWriter, log *slog.Logger, status int, err error, kind fetch.Kind) {
	if kind.Retryable() {
		w.Header().Set("Retry-After", "1")
	}
	s.sendJSON(w, log, status, ErrorBody{
		Message:   err.Error(),
		Kind:      kind.String(),
		Retryable: kind.Retryable(),
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", "error", err)
	}
}
