package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ligustah/fetchd/internal/config"
	fetchhttp "github.com/ligustah/fetchd/internal/http"
	"github.com/ligustah/fetchd/internal/metrics"
	"github.com/ligustah/fetchd/internal/server"
	"github.com/ligustah/fetchd/internal/storage"
	"github.com/ligustah/fetchd/pkg/fetch"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		override        config.Config
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the download service",
		Long: `Run the download service.

With a configured store (--store or FETCHD_STORE) requests name an optional
path inside that bucket. Without one every request names its destination URI.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, override)
			if err != nil {
				return err
			}
			return serve(cmd, cfg, shutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&override.Listen, "listen", "", "listen address (default :9080 or $PORT)")
	cmd.Flags().StringVar(&override.Service, "service", "", "first path segment of the download endpoint")
	cmd.Flags().StringVar(&override.Store, "store", "", "bucket URL downloads are written into")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "time running downloads get to finish on shutdown")

	return cmd
}

func serve(cmd *cobra.Command, cfg config.Config, shutdownTimeout time.Duration) error {
	ctx := cmd.Context()
	log := cfg.Log.NewLogger(cmd.ErrOrStderr())

	client := fetchhttp.NewClient(fetchhttp.Options{
		MaxIdleConnsPerHost: cfg.HTTP.MaxIdleConnsPerHost,
		Timeout:             cfg.HTTP.Timeout,
		UserAgent:           cfg.HTTP.UserAgent,
	})

	bound := cfg.Store != ""
	var st fetch.Storage
	if bound {
		b, err := storage.Open(ctx, nil, cfg.Store)
		if err != nil {
			return &fetch.Error{Kind: fetch.KindStorage, Msg: "failed to open store", Err: err}
		}
		defer b.Close()
		st = b
	} else {
		st = storage.NewURLOpener(nil)
	}

	fetchOpts := fetch.Options{
		BufferSize: int(cfg.HTTP.BufferSize),
		Logger:     log,
	}
	srvOpts := server.Options{
		Service: cfg.Service,
		Bound:   bound,
		Logger:  log,
	}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.New(reg)
		fetchOpts.Observer = m
		srvOpts.Metrics = m
		srvOpts.Gatherer = reg
	}

	srv := server.New(fetch.New(client, st, fetchOpts), srvOpts)
	return srv.ListenAndServe(ctx, cfg.Listen, shutdownTimeout)
}
