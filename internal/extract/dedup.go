package extract

import (
	"net/url"
	"sort"
	"strings"
	"sync"
)

// SeenSet tracks the detail-page URLs already emitted during one crawl run.
// It is the only mutable state shared between concurrently processed pages,
// so check-and-insert happens under a single lock.
type SeenSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSeenSet creates an empty SeenSet.
func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[string]struct{}, 1024)}
}

// Add canonicalizes rawURL and inserts it into the set. It returns true when
// the URL was not present before, meaning the caller may emit a record for
// it, and false for a duplicate.
func (s *SeenSet) Add(rawURL string) bool {
	key := CanonicalizeURL(rawURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Has reports whether the URL (after canonicalization) has been seen.
func (s *SeenSet) Has(rawURL string) bool {
	key := CanonicalizeURL(rawURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

// Count returns the number of unique URLs seen.
func (s *SeenSet) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Reset clears the set for a new run.
func (s *SeenSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]struct{}, 1024)
}

// CanonicalizeURL normalizes a URL for deduplication:
// - lowercases scheme and host
// - removes fragment
// - sorts query parameters
// - removes trailing slash (except root)
// - removes default ports (80 for http, 443 for https)
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	host := u.Hostname()
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
