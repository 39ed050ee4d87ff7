package fetch

import (
	"encoding/json"
	"time"
)

// RequestOptions are the optional request settings of a download payload.
type RequestOptions struct {
	// Headers to send with the request.
	Headers map[string]string `json:"headers,omitempty"`
	// Timeout for issuing the request and receiving response headers.
	Timeout *Duration `json:"timeout,omitempty"`
}

// OutputOptions are shared by both output shapes.
type OutputOptions struct {
	// SetContentType sets the stored object's content type.
	SetContentType bool `json:"setContentType,omitempty"`
	// ContentType overrides the response's Content-Type when SetContentType is set.
	ContentType *string `json:"contentType,omitempty"`
}

func (o OutputOptions) policy() ContentTypePolicy {
	p := ContentTypePolicy{Apply: o.SetContentType}
	if o.ContentType != nil {
		p.Explicit = *o.ContentType
	}
	return p
}

// PathOutput is the output of a download into the configured store.
type PathOutput struct {
	// Path to save the file to. A trailing "/" marks a directory.
	Path *string `json:"path,omitempty"`
	OutputOptions
}

// URIOutput is the output of a download into a store named by URI.
type URIOutput struct {
	// URI of the destination, e.g. s3://bucket/prefix/ or s3://bucket/name.bin.
	URI string `json:"uri"`
	OutputOptions
}

// UnmarshalJSON accepts "url" as an alias of "uri".
func (o *URIOutput) UnmarshalJSON(data []byte) error {
	var raw struct {
		URI string `json:"uri"`
		URL string `json:"url"`
		OutputOptions
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.URI = raw.URI
	if o.URI == "" {
		o.URI = raw.URL
	}
	o.OutputOptions = raw.OutputOptions
	return nil
}

// PathDownloadRequest is the payload for downloads into the configured store.
type PathDownloadRequest struct {
	URL     string          `json:"url"`
	Request *RequestOptions `json:"request,omitempty"`
	Output  *PathOutput     `json:"output,omitempty"`
}

// URIDownloadRequest is the payload for downloads into a store named by URI.
type URIDownloadRequest struct {
	URL     string          `json:"url"`
	Request *RequestOptions `json:"request,omitempty"`
	Output  URIOutput       `json:"output"`
}

// DownloadResponse is the payload returned after a successful download. Path
// and Location are only set when the backend was derived from the request.
type DownloadResponse struct {
	Path     string `json:"path,omitempty"`
	Location string `json:"location,omitempty"`
	Size     uint64 `json:"size"`
}

// ToRequest validates r and converts it into a Request.
func (r PathDownloadRequest) ToRequest() (Request, error) {
	spec, err := specFromOptions(r.URL, r.Request)
	if err != nil {
		return Request{}, err
	}
	var dest PathDestination
	if r.Output != nil {
		dest.Path = r.Output.Path
		dest.Policy = r.Output.policy()
	}
	return Request{Spec: spec, Destination: dest}, nil
}

// ToRequest validates r and converts it into a Request.
func (r URIDownloadRequest) ToRequest() (Request, error) {
	spec, err := specFromOptions(r.URL, r.Request)
	if err != nil {
		return Request{}, err
	}
	if r.Output.URI == "" {
		return Request{}, newError(KindValidation, "output uri is required", nil)
	}
	return Request{
		Spec:        spec,
		Destination: URIDestination{URI: r.Output.URI, Policy: r.Output.policy()},
	}, nil
}

func specFromOptions(rawURL string, opts *RequestOptions) (RequestSpec, error) {
	var (
		headers map[string]string
		timeout time.Duration
	)
	if opts != nil {
		headers = opts.Headers
		if opts.Timeout != nil {
			timeout = time.Duration(*opts.Timeout)
		}
	}
	return NewRequestSpec(rawURL, headers, timeout)
}

// NewResponse builds the payload for res. withPath is set for downloads whose
// backend was derived from the request.
func NewResponse(res *Result, withPath bool) DownloadResponse {
	resp := DownloadResponse{Size: res.Size}
	if withPath {
		resp.Path = res.Target.Path
		resp.Location = res.Target.Location()
	}
	return resp
}
