package types

import (
	"fmt"
	"net/url"
	"time"
)

// Role tags a request with the kind of page it fetches.
type Role string

const (
	// RoleList is a shelf listing page enumerating many books.
	RoleList Role = "list"

	// RoleDetail is a single book's own page.
	RoleDetail Role = "detail"
)

// Priority levels for request scheduling (lower = higher priority).
// Detail fetches drain before further listing pages so the results budget
// fills from pages already discovered.
const (
	PriorityDetail = 0
	PriorityList   = 1
	PriorityRetry  = 2
)

// Request represents one page fetch to be performed by the crawler.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Role says whether this is a listing or a detail page.
	Role Role

	// PageNo is the 1-based listing page number. Zero for detail pages.
	PageNo int

	// Priority controls scheduling order (lower = higher priority).
	Priority int

	// MaxRetries is the maximum number of retries for this request.
	MaxRetries int

	// RetryCount tracks the current retry attempt.
	RetryCount int

	// CreatedAt is when this request was created.
	CreatedAt time.Time
}

// NewRequest creates a Request for the given URL and page role.
func NewRequest(rawURL string, role Role) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, ErrInvalidURL)
	}

	priority := PriorityList
	if role == RoleDetail {
		priority = PriorityDetail
	}

	return &Request{
		URL:        u,
		Role:       role,
		Priority:   priority,
		MaxRetries: 4,
		CreatedAt:  time.Now(),
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the request URL.
func (r *Request) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
