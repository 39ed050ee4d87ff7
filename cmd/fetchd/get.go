package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ligustah/fetchd/internal/config"
	fetchhttp "github.com/ligustah/fetchd/internal/http"
	"github.com/ligustah/fetchd/internal/progress"
	"github.com/ligustah/fetchd/internal/storage"
	"github.com/ligustah/fetchd/pkg/fetch"
)

type getFlags struct {
	url            string
	store          string
	path           string
	uri            string
	headers        []string
	timeout        string
	setContentType bool
	contentType    string
	progress       bool
}

func newGetCmd(g *globalFlags) *cobra.Command {
	var f getFlags

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Download one resource",
		Long: `Download one resource into object storage.

Write into a bucket with --store and an optional --path, or name the
destination directly with --uri. A path or URI ending in "/" is a directory;
the file name then comes from Content-Disposition or the URL.

The result is printed to stdout as JSON.`,
		Example: `  fetchd get --url https://example.com/report.pdf --uri s3://bucket/reports/
  fetchd get --url https://example.com/a.csv --store file:///data --path in/ -H "Authorization: Bearer x"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, g, f)
		},
	}

	cmd.Flags().StringVar(&f.url, "url", "", "source URL (required)")
	cmd.Flags().StringVar(&f.store, "store", "", "bucket URL to write into")
	cmd.Flags().StringVar(&f.path, "path", "", "object path inside --store")
	cmd.Flags().StringVar(&f.uri, "uri", "", "destination URI")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, `request header as "Name: value" (repeatable)`)
	cmd.Flags().StringVar(&f.timeout, "timeout", "", `time to wait for response headers, e.g. "30s" or "1h 30m"`)
	cmd.Flags().BoolVar(&f.setContentType, "set-content-type", false, "set the stored object's content type")
	cmd.Flags().StringVar(&f.contentType, "content-type", "", "content type to set instead of the response's")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "print progress to stderr")

	return cmd
}

func runGet(cmd *cobra.Command, g *globalFlags, f getFlags) error {
	if f.url == "" {
		return usagef("--url is required")
	}
	if f.uri != "" && (f.store != "" || f.path != "") {
		return usagef("--uri cannot be combined with --store or --path")
	}

	cfg, err := loadConfig(g, config.Config{Store: f.store})
	if err != nil {
		return err
	}
	if f.uri == "" && cfg.Store == "" {
		return usagef("either --store or --uri is required")
	}

	reqOpts, err := requestOptions(f)
	if err != nil {
		return err
	}
	outOpts := fetch.OutputOptions{SetContentType: f.setContentType}
	if cmd.Flags().Changed("content-type") {
		outOpts.ContentType = &f.contentType
	}

	ctx := cmd.Context()
	bound := f.uri == ""

	var (
		req fetch.Request
		st  fetch.Storage
	)
	if bound {
		payload := fetch.PathDownloadRequest{
			URL:     f.url,
			Request: reqOpts,
			Output:  &fetch.PathOutput{OutputOptions: outOpts},
		}
		if cmd.Flags().Changed("path") {
			payload.Output.Path = &f.path
		}
		if req, err = payload.ToRequest(); err != nil {
			return err
		}

		b, err := storage.Open(ctx, nil, cfg.Store)
		if err != nil {
			return &fetch.Error{Kind: fetch.KindStorage, Phase: fetch.PhaseBuilt, Msg: "failed to open store", Err: err}
		}
		defer b.Close()
		st = b
	} else {
		payload := fetch.URIDownloadRequest{
			URL:     f.url,
			Request: reqOpts,
			Output:  fetch.URIOutput{URI: f.uri, OutputOptions: outOpts},
		}
		if req, err = payload.ToRequest(); err != nil {
			return err
		}
		st = storage.NewURLOpener(nil)
	}

	stderr := cmd.ErrOrStderr()
	opts := fetch.Options{
		BufferSize: int(cfg.HTTP.BufferSize),
		Logger:     cfg.Log.NewLogger(stderr),
	}
	var reporter *progress.Reporter
	if f.progress {
		reporter = progress.NewReporter(progress.Options{Output: stderr, SourceURL: f.url})
		opts.Observer = reporter
		reporter.Start()
	}

	client := fetchhttp.NewClient(fetchhttp.Options{
		MaxIdleConnsPerHost: cfg.HTTP.MaxIdleConnsPerHost,
		Timeout:             cfg.HTTP.Timeout,
		UserAgent:           cfg.HTTP.UserAgent,
	})
	res, err := fetch.New(client, st, opts).Fetch(ctx, req)
	if reporter != nil {
		reporter.Stop()
	}
	if err != nil {
		if fetch.IsRetryable(err) {
			fmt.Fprintln(stderr, "[fetchd] The error is retryable; run again to retry")
		}
		return err
	}

	fmt.Fprintf(stderr, "[fetchd] Downloaded %d bytes to %s\n", res.Size, res.Target.Location())
	enc := json.NewEncoder(cmd.OutOrStdout())
	return enc.Encode(fetch.NewResponse(res, !bound))
}

// requestOptions converts the header and timeout flags.
func requestOptions(f getFlags) (*fetch.RequestOptions, error) {
	opts := &fetch.RequestOptions{}
	if len(f.headers) > 0 {
		opts.Headers = make(map[string]string, len(f.headers))
		for _, h := range f.headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok {
				return nil, usagef("invalid header %q: expected \"Name: value\"", h)
			}
			opts.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
	}
	if f.timeout != "" {
		d, err := fetch.ParseDuration(f.timeout)
		if err != nil {
			return nil, usagef("invalid --timeout: %v", err)
		}
		td := fetch.Duration(d)
		opts.Timeout = &td
	}
	return opts, nil
}
