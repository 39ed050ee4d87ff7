// Package http provides the shared HTTP client used to fetch download sources.
//
// This package handles:
//   - Connection pooling across concurrent downloads
//   - A timeout that covers request issuance and header receipt only
//   - A default User-Agent
//
// Responses are not retried or classified here; see package fetch.
//
// # Usage
//
//	client := http.NewClient(http.Options{
//	    MaxIdleConnsPerHost: 100,
//	    Timeout:             30 * time.Second,
//	})
//
//	resp, err := client.Send(ctx, spec)
//	defer resp.Body.Close()
package http
