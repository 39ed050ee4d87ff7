// Package progress provides progress reporting for downloads.
//
// This package outputs human-readable progress information to stderr,
// including completion percentage, transfer speed, and ETA when the source
// declares its size.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    SourceURL: url,
//	    Output:    os.Stderr,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	// Pass the reporter as the fetcher's observer.
//	f := fetch.New(sender, storage, fetch.Options{Observer: reporter})
//
// # Output Format
//
//	[fetchd] Downloading: https://example.com/file.tar.gz
//	[fetchd] Destination: s3://bucket/prefix/file.tar.gz | Size: 2.5 GiB
//	[fetchd] Progress: 45.2% | 1.1 GiB / 2.5 GiB | Speed: 120 MiB/s | ETA: 12s
package progress
