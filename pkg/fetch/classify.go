package fetch

import (
	"fmt"
	"net/http"
)

// Classify maps the outcome of sending a request to nil (2xx) or a tagged
// *Error. Only the status class is consulted; the body is never read.
func Classify(resp *http.Response, err error) error {
	if err != nil {
		return newError(KindTransport, "send request", err)
	}
	if resp == nil {
		return newError(KindTransport, "send request: no response", nil)
	}

	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 400 && code < 500:
		return &Error{
			Kind:       KindHTTPClient,
			StatusCode: code,
			Msg:        fmt.Sprintf("HTTP request failed with status: %s", statusText(resp)),
		}
	default:
		return &Error{
			Kind:       KindHTTPServer,
			StatusCode: code,
			Msg:        fmt.Sprintf("HTTP request failed with status: %s", statusText(resp)),
		}
	}
}

func statusText(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
