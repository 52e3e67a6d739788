package extract

import (
	"fmt"
	"sync"
	"testing"
)

func TestCanonicalizeURL(t *testing.T) {
	cases := []struct {
		name string
		a, b string
	}{
		{"case insensitive host", "https://WWW.Goodreads.COM/book/show/1", "https://www.goodreads.com/book/show/1"},
		{"fragment stripped", "https://example.com/page#section", "https://example.com/page"},
		{"default https port", "https://example.com:443/page", "https://example.com/page"},
		{"default http port", "http://example.com:80/page", "http://example.com/page"},
		{"trailing slash", "https://example.com/page/", "https://example.com/page"},
		{"query order", "https://example.com/?b=2&a=1", "https://example.com/?a=1&b=2"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got, want := CanonicalizeURL(c.a), CanonicalizeURL(c.b); got != want {
				t.Errorf("CanonicalizeURL(%q) = %q, want same as %q (%q)", c.a, got, c.b, want)
			}
		})
	}
}

func TestCanonicalizeURLDistinct(t *testing.T) {
	a := CanonicalizeURL("https://example.com/book/show/1")
	b := CanonicalizeURL("https://example.com/book/show/2")
	if a == b {
		t.Errorf("distinct URLs canonicalized to the same key: %q", a)
	}
}

func TestSeenSetAdd(t *testing.T) {
	s := NewSeenSet()

	if !s.Add("https://example.com/book/show/1") {
		t.Error("first Add should return true")
	}
	if s.Add("https://example.com/book/show/1") {
		t.Error("second Add of same URL should return false")
	}
	if s.Add("https://EXAMPLE.com/book/show/1#cover") {
		t.Error("canonical duplicate should return false")
	}
	if !s.Has("https://example.com/book/show/1") {
		t.Error("Has should report the URL as seen")
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1", s.Count())
	}

	s.Reset()
	if s.Count() != 0 {
		t.Errorf("Count after Reset = %d, want 0", s.Count())
	}
}

func TestSeenSetConcurrent(t *testing.T) {
	s := NewSeenSet()

	const workers = 8
	const urls = 100

	var wg sync.WaitGroup
	wins := make([]int, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < urls; i++ {
				if s.Add(fmt.Sprintf("https://example.com/book/show/%d", i)) {
					wins[w]++
				}
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, n := range wins {
		total += n
	}
	if total != urls {
		t.Errorf("each URL should be won exactly once: wins = %d, want %d", total, urls)
	}
	if s.Count() != urls {
		t.Errorf("Count = %d, want %d", s.Count(), urls)
	}
}
