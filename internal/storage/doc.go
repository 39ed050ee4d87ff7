// Package storage implements fetch.Storage on top of gocloud.dev/blob.
//
// [Bucket] writes into a bucket opened once at startup, for downloads that
// name only a path. [URLOpener] opens a bucket per download from the target's
// backend URI:
//
//	s3://bucket/prefix/   -> bucket "bucket", keys under "prefix/"
//	gs://bucket/          -> bucket "bucket"
//	file:///srv/data/     -> directory /srv/data
//
// Drivers are registered by importing them, e.g.
//
//	import _ "gocloud.dev/blob/s3blob"
//
// Credentials come from the driver's usual environment; query parameters of
// the URI are passed to the driver unchanged.
package storage
