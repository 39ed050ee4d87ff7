package fetch

import "strings"

// NormalizePath lexically normalizes a POSIX path. Empty and "." segments are
// dropped, ".." removes the preceding segment or is discarded when there is
// none, and a leading "/" is kept. Unlike path.Clean, the empty path stays
// empty and a leading ".." is never produced.
func NormalizePath(p string) string {
	absolute := strings.HasPrefix(p, "/")

	var out []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}

	joined := strings.Join(out, "/")
	if absolute {
		return "/" + joined
	}
	return joined
}

// joinPath appends name to an already normalized directory.
func joinPath(dir, name string) string {
	switch {
	case dir == "":
		return name
	case strings.HasSuffix(dir, "/"):
		return dir + name
	default:
		return dir + "/" + name
	}
}
