// Package server exposes downloads as a JSON HTTP service.
//
// Endpoints:
//
//	POST /{service}/download   run one download
//	GET  /healthz              liveness
//	GET  /metrics              Prometheus metrics (when enabled)
//
// A download with a configured store takes
//
//	{"url": "https://example.com/file.pdf", "output": {"path": "downloads/"}}
//
// and answers {"size": 1234}. Without a configured store the output names a
// URI and the answer also carries the object path and its full location:
//
//	{"url": "https://example.com/file.pdf", "output": {"uri": "s3://bucket/prefix/"}}
//	{"path": "file.pdf", "location": "s3://bucket/prefix/file.pdf", "size": 1234}
//
// Failures answer {"message", "kind", "retryable"}: 400 for an undecodable
// payload, 422 for terminal input or source errors, 500 for storage errors and
// 503 for retryable errors. Callers decide whether to retry.
package server
