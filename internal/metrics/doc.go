// Package metrics exports Prometheus metrics for downloads.
//
// Collectors, all prefixed with "fetchd_":
//   - downloads_total{outcome,kind}: finished downloads
//   - bytes_written_total: bytes accepted by sinks
//   - download_duration_seconds{outcome}: time per download
//   - download_size_bytes: size of stored objects
//   - downloads_in_progress: running downloads
//
// # Usage
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	f := fetch.New(sender, storage, fetch.Options{Observer: m})
//
//	done := m.Begin()
//	res, err := f.Fetch(ctx, req)
//	done(res, err)
package metrics
