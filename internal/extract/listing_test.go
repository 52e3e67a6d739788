package extract

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const shelfHTML = `<!DOCTYPE html>
<html>
<body>
  <div class="elementList">
    <img src="https://images.example.com/one.jpg" alt="">
    <a class="bookTitle" href="/book/show/1-the-hobbit">The Hobbit</a>
    <a class="authorName" href="/author/show/10">J.R.R. Tolkien</a>
    <span class="minirating">4.28 avg rating — 3,456,789 ratings · 12,345 reviews</span>
  </div>
  <div class="elementList">
    <img data-src="/images/two.jpg" alt="">
    <a class="bookTitle" href="/book/show/2-dune" title="Dune (Dune, #1)"></a>
    <a class="authorName" href="/author/show/20">Frank Herbert</a>
    <span class="minirating">4.25 avg rating — 1,234 ratings</span>
  </div>
  <div class="elementList">
    <span>no link in this row</span>
  </div>
  <div class="elementList">
    <a class="bookTitle" href="/book/show/1-the-hobbit">The Hobbit again</a>
  </div>
  <a class="next_page" href="/shelf/show/fantasy?page=2">next »</a>
</body>
</html>`

func makeDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse test HTML: %v", err)
	}
	return doc
}

func TestListerExtract(t *testing.T) {
	l := NewLister(NewSeenSet(), testLogger)
	doc := makeDoc(t, shelfHTML)

	books := l.Extract(doc, "https://www.goodreads.com/shelf/show/fantasy")
	if len(books) != 2 {
		t.Fatalf("expected 2 books (1 linkless, 1 duplicate skipped), got %d", len(books))
	}

	first := books[0]
	if first.URL != "https://www.goodreads.com/book/show/1-the-hobbit" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Title == nil || *first.Title != "The Hobbit" {
		t.Errorf("Title = %v", sv(first.Title))
	}
	if first.Author == nil || *first.Author != "J.R.R. Tolkien" {
		t.Errorf("Author = %v", sv(first.Author))
	}
	if first.Rating == nil || *first.Rating != 4.28 {
		t.Errorf("Rating = %v", fv(first.Rating))
	}
	if first.RatingCount == nil || *first.RatingCount != 3456789 {
		t.Errorf("RatingCount = %v", iv(first.RatingCount))
	}
	if first.ReviewCount == nil || *first.ReviewCount != 12345 {
		t.Errorf("ReviewCount = %v", iv(first.ReviewCount))
	}
	if first.Image == nil || *first.Image != "https://images.example.com/one.jpg" {
		t.Errorf("Image = %v", sv(first.Image))
	}
}

func TestListerExtractTitleAttrFallback(t *testing.T) {
	l := NewLister(NewSeenSet(), testLogger)
	doc := makeDoc(t, shelfHTML)

	books := l.Extract(doc, "https://www.goodreads.com/shelf/show/fantasy")
	if len(books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(books))
	}

	second := books[1]
	if second.Title == nil || *second.Title != "Dune (Dune, #1)" {
		t.Errorf("Title = %v, want title attribute fallback", sv(second.Title))
	}
	// data-src image, relative, resolved against the page
	if second.Image == nil || *second.Image != "https://www.goodreads.com/images/two.jpg" {
		t.Errorf("Image = %v", sv(second.Image))
	}
	// review count absent in the minirating blob
	if second.ReviewCount != nil {
		t.Errorf("ReviewCount = %v, want nil", iv(second.ReviewCount))
	}
}

func TestListerExtractDedupAcrossPages(t *testing.T) {
	l := NewLister(NewSeenSet(), testLogger)

	pageOne := makeDoc(t, shelfHTML)
	if got := len(l.Extract(pageOne, "https://www.goodreads.com/shelf/show/fantasy")); got != 2 {
		t.Fatalf("page 1: expected 2 books, got %d", got)
	}

	// Same entries on the second page are all suppressed.
	pageTwo := makeDoc(t, shelfHTML)
	if got := len(l.Extract(pageTwo, "https://www.goodreads.com/shelf/show/fantasy?page=2")); got != 0 {
		t.Errorf("page 2: expected 0 new books, got %d", got)
	}
}

func TestListerNextPageExplicitLink(t *testing.T) {
	l := NewLister(NewSeenSet(), testLogger)
	doc := makeDoc(t, shelfHTML)

	next := l.NextPage(doc, "https://www.goodreads.com/shelf/show/fantasy", 1)
	if next == nil {
		t.Fatal("expected next page URL")
	}
	if *next != "https://www.goodreads.com/shelf/show/fantasy?page=2" {
		t.Errorf("next = %q", *next)
	}
}

func TestListerNextPageDisabledLink(t *testing.T) {
	l := NewLister(NewSeenSet(), testLogger)
	doc := makeDoc(t, `<html><body><a class="next_page disabled" href="#">next</a></body></html>`)

	// Disabled nav falls back to bumping the page parameter.
	next := l.NextPage(doc, "https://www.goodreads.com/shelf/show/fantasy?page=3&utf8=1", 3)
	if next == nil {
		t.Fatal("expected fallback next page URL")
	}
	if !strings.Contains(*next, "page=4") {
		t.Errorf("next = %q, want page=4", *next)
	}
	if !strings.Contains(*next, "utf8=1") {
		t.Errorf("next = %q, other query params should survive", *next)
	}
}

func TestListerNextPageNoParam(t *testing.T) {
	l := NewLister(NewSeenSet(), testLogger)
	doc := makeDoc(t, `<html><body></body></html>`)

	// No nav, no page param: the current page counts as page 1.
	next := l.NextPage(doc, "https://www.goodreads.com/shelf/show/fantasy", 1)
	if next == nil {
		t.Fatal("expected fallback next page URL")
	}
	if !strings.Contains(*next, "page=2") {
		t.Errorf("next = %q, want page=2", *next)
	}
}

func TestListerNextPageParamOverridesCounter(t *testing.T) {
	l := NewLister(NewSeenSet(), testLogger)
	doc := makeDoc(t, `<html><body></body></html>`)

	// The URL's own page parameter wins over the caller's counter.
	next := l.NextPage(doc, "https://www.goodreads.com/shelf/show/fantasy?page=7", 2)
	if next == nil {
		t.Fatal("expected fallback next page URL")
	}
	if !strings.Contains(*next, "page=8") {
		t.Errorf("next = %q, want page=8", *next)
	}
}

func BenchmarkListerExtract(b *testing.B) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(shelfHTML))
	if err != nil {
		b.Fatal(err)
	}

	for i := 0; i < b.N; i++ {
		l := NewLister(NewSeenSet(), testLogger)
		l.Extract(doc, "https://www.goodreads.com/shelf/show/fantasy")
	}
}
