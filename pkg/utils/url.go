package utils

import (
	"fmt"
	"net/url"
)

// NormalizeURL removes the fragment from a URL so that two references to the
// same document compare equal. Strings that do not parse are returned as-is.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// ResolveURL resolves ref against base and returns the absolute URL.
func ResolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse ref %q: %w", ref, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// IsHTTPURL reports whether rawURL is an absolute http or https URL with a host.
func IsHTTPURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
