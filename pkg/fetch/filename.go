package fetch

import (
	"mime"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
)

// ResolveFilename derives an object name from response metadata. A name from
// the Content-Disposition header always wins over the URL's last path segment.
func ResolveFilename(header http.Header, u *url.URL) (string, error) {
	if name := filenameFromHeader(header); name != "" {
		return name, nil
	}
	if name := filenameFromURL(u); name != "" {
		return name, nil
	}
	return "", newError(KindResolution, "failed to determine filename from the response", ErrNoFilename)
}

// filenameFromHeader parses Content-Disposition per RFC 6266. filename*
// (RFC 8187 ext-value) takes precedence over filename.
func filenameFromHeader(header http.Header) string {
	cd := header.Get("Content-Disposition")
	if cd == "" {
		return ""
	}

	// mime would keep an undecodable filename* as raw bytes.
	if ext := scanParam(cd, "filename*"); ext != "" {
		if name := baseName(decodeExtValue(ext)); name != "" {
			return name
		}
		return baseName(scanParam(cd, "filename"))
	}

	var name string
	if _, params, err := mime.ParseMediaType(cd); err == nil {
		name = params["filename"]
	} else {
		name = scanParam(cd, "filename")
	}
	return baseName(name)
}

// scanParam returns the raw value of the named parameter. It is lenient
// enough for headers mime rejects, such as unquoted values containing spaces.
func scanParam(cd, key string) string {
	for _, part := range strings.Split(cd, ";") {
		k, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), key) {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}
		return value
	}
	return ""
}

// decodeExtValue decodes charset'language'percent-encoded. Charsets other
// than UTF-8 are looked up in the IANA registry. Undecodable values yield "".
func decodeExtValue(v string) string {
	charset, rest, ok := strings.Cut(v, "'")
	if !ok {
		return ""
	}
	_, encoded, ok := strings.Cut(rest, "'")
	if !ok {
		return ""
	}
	raw, err := url.PathUnescape(encoded)
	if err != nil {
		return ""
	}

	switch strings.ToLower(charset) {
	case "utf-8", "us-ascii", "":
		if !utf8.ValidString(raw) {
			return ""
		}
		return raw
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return ""
	}
	decoded, err := enc.NewDecoder().String(raw)
	if err != nil {
		return ""
	}
	return decoded
}

// baseName keeps only the last element of a header-supplied name so the
// caller's directory cannot be escaped.
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

func filenameFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}
