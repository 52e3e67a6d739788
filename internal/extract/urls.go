package extract

import "net/url"

// resolveURL resolves href against base and returns the absolute form.
// Returns nil when either URL is malformed or the result is not an
// http(s) URL.
func resolveURL(base, href string) *string {
	b, err := url.Parse(base)
	if err != nil {
		return nil
	}
	h, err := url.Parse(href)
	if err != nil {
		return nil
	}
	resolved := b.ResolveReference(h)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil
	}
	resolved.Fragment = ""
	s := resolved.String()
	return &s
}
