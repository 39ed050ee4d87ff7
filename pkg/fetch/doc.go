// Package fetch downloads a resource over HTTP(S) and streams it into object
// storage.
//
// A download runs through fixed phases:
//
//	built -> sent -> classified -> path_resolved -> sink_opened -> streaming -> finalized
//
// and stops at the first failure with an [*Error] whose [Kind] tells the
// caller whether re-running the whole download may succeed. This package never
// retries on its own.
//
// # Destinations
//
// Two [Destination] shapes are supported:
//   - [PathDestination]: an optional path inside a store fixed by configuration.
//   - [URIDestination]: a URI that names both the store and the object.
//
// When the destination does not name a file, the name comes from the
// response's Content-Disposition header, or else from the last segment of the
// response URL.
//
// # Usage
//
//	f := fetch.New(sender, storage, fetch.Options{Logger: logger})
//
//	spec, err := fetch.NewRequestSpec("https://example.com/file.pdf", nil, 0)
//	if err != nil {
//	    return err
//	}
//	dir := "downloads/"
//	res, err := f.Fetch(ctx, fetch.Request{
//	    Spec:        spec,
//	    Destination: fetch.PathDestination{Path: &dir},
//	})
//	// res.Target.Path == "downloads/file.pdf"
//
// # Partial writes
//
// Bytes accepted by a sink are not rolled back when a later read or write
// fails, and the sink is not committed. Whether the backend exposes the
// partial object is up to the backend.
package fetch
