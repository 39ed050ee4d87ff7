package fetch

import (
	"net/http"
	"net/url"
	"strings"
)

// defaultFilename is used when a destination URI names an empty last segment.
const defaultFilename = "download"

// Metadata is the part of a response consulted while resolving a destination.
type Metadata struct {
	StatusCode int
	Header     http.Header
	URL        *url.URL // effective URL after redirects
}

// MetadataFromResponse extracts Metadata from resp.
func MetadataFromResponse(resp *http.Response) Metadata {
	m := Metadata{StatusCode: resp.StatusCode, Header: resp.Header}
	if resp.Request != nil {
		m.URL = resp.Request.URL
	}
	return m
}

// Target is where the body is written. Backend is empty when the storage
// connection is fixed by configuration.
type Target struct {
	Backend string
	Path    string
}

// Location returns Backend and Path joined, or Path alone for bound targets.
// A query string on Backend is kept at the end.
func (t Target) Location() string {
	if t.Backend == "" {
		return t.Path
	}
	base, query, ok := strings.Cut(t.Backend, "?")
	loc := joinPath(base, t.Path)
	if ok {
		loc += "?" + query
	}
	return loc
}

// ContentTypePolicy controls the Content-Type given to the stored object.
type ContentTypePolicy struct {
	Apply    bool
	Explicit string
}

// Resolve returns the content type for the sink. The explicit type wins over
// the response's Content-Type; an empty result leaves the type unset.
func (p ContentTypePolicy) Resolve(header http.Header) string {
	if !p.Apply {
		return ""
	}
	if p.Explicit != "" {
		return p.Explicit
	}
	return header.Get("Content-Type")
}

// Destination computes a Target once response headers are available.
type Destination interface {
	Resolve(meta Metadata) (Target, error)
	ContentType() ContentTypePolicy
}

// PathDestination writes into the configured bucket. A nil Path means "use
// the name the response suggests".
type PathDestination struct {
	Path   *string
	Policy ContentTypePolicy
}

func (d PathDestination) ContentType() ContentTypePolicy {
	return d.Policy
}

// Resolve implements Destination. A path ending in "/" (checked before
// normalization) or normalizing to "" or "/" is a directory that receives the
// resolved filename; any other path is used as-is after normalization.
func (d PathDestination) Resolve(meta Metadata) (Target, error) {
	if d.Path == nil {
		name, err := ResolveFilename(meta.Header, meta.URL)
		if err != nil {
			return Target{}, err
		}
		return Target{Path: name}, nil
	}

	raw := *d.Path
	isDir := strings.HasSuffix(raw, "/")
	normalized := NormalizePath(raw)

	if isDir || normalized == "" || normalized == "/" {
		name, err := ResolveFilename(meta.Header, meta.URL)
		if err != nil {
			return Target{}, err
		}
		return Target{Path: joinPath(normalized, name)}, nil
	}
	return Target{Path: normalized}, nil
}

// URIDestination names both the backend and the object with one URI, for
// example s3://bucket/prefix/name.bin.
type URIDestination struct {
	URI    string
	Policy ContentTypePolicy
}

func (d URIDestination) ContentType() ContentTypePolicy {
	return d.Policy
}

// Resolve implements Destination. A URI whose path is empty or ends in "/" is
// a directory: the backend is the URI unchanged and the filename comes from the
// response. Otherwise the last segment is split off as the filename.
func (d URIDestination) Resolve(meta Metadata) (Target, error) {
	u, err := url.Parse(d.URI)
	if err != nil {
		return Target{}, newError(KindValidation, "parse destination uri", err)
	}
	if u.Scheme == "" {
		return Target{}, newError(KindValidation, "destination uri "+d.URI+" has no scheme", nil)
	}
	if u.Opaque != "" {
		return Target{}, newError(KindValidation, "destination uri "+d.URI, ErrUnmodifiablePath)
	}

	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		name, err := ResolveFilename(meta.Header, meta.URL)
		if err != nil {
			return Target{}, err
		}
		return Target{Backend: u.String(), Path: name}, nil
	}

	i := strings.LastIndex(u.Path, "/")
	name := u.Path[i+1:]
	if name == "" {
		name = defaultFilename
	}

	backend := *u
	backend.Path = u.Path[:i+1]
	backend.RawPath = ""
	return Target{Backend: backend.String(), Path: name}, nil
}
