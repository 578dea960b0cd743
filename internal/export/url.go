package export

import (
	"net/url"
	"strings"
)

// relativeURL strips the site base URL from an absolute link. Scheme and
// host compare case-insensitively, the base path must match on a segment
// boundary, and the remainder of the link is kept byte for byte. Links on
// another origin, or already relative, are returned unchanged.
func relativeURL(base *url.URL, link string) string {
	if base == nil || link == "" {
		return link
	}
	u, err := url.Parse(link)
	if err != nil || !u.IsAbs() || u.Host == "" || u.User != nil {
		return link
	}
	if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return link
	}

	rest := link[len(u.Scheme)+len("://")+len(u.Host):]
	basePath := strings.TrimSuffix(base.EscapedPath(), "/")
	if basePath != "" {
		if !strings.HasPrefix(rest, basePath) {
			return link
		}
		tail := rest[len(basePath):]
		if tail != "" && !strings.ContainsAny(tail[:1], "/?#") {
			return link
		}
		rest = tail
	}

	if rest == "" || rest[0] == '?' || rest[0] == '#' {
		rest = "/" + rest
	}
	return rest
}
