package urlclass

import (
	"net/url"
	"strings"
)

// Normalize cleans a URL into the form used for classification and
// de-duplication: query and fragment are dropped, a missing scheme becomes
// the site scheme, a missing host becomes the site host, and an empty path
// becomes the root "/". The second return value is false when the input
// cannot be resolved to an http(s) URL; such inputs must not be sent to a
// provider.
func (pc PathConfig) Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Opaque != "" {
		// "mailto:x@y", "javascript:void(0)"
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)

	if scheme == "" && host == "" && !strings.HasPrefix(u.Path, "/") {
		// "example.com/products/x" parses as a relative path; treat the first
		// segment as the host when it looks like one.
		first, rest, _ := strings.Cut(u.Path, "/")
		if strings.Contains(first, ".") {
			host = strings.ToLower(first)
			u.Path = "/" + rest
		}
	}

	switch scheme {
	case "":
		scheme = pc.schemeOrDefault()
	case "http", "https":
	default:
		return "", false
	}
	if host == "" {
		host = pc.host
	}
	if host == "" {
		return "", false
	}

	path := u.EscapedPath()
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return scheme + "://" + host + path, true
}

func (pc PathConfig) schemeOrDefault() string {
	if pc.scheme == "" {
		return "https"
	}
	return pc.scheme
}
