package extract

import (
	"testing"
)

const jsonLDDetailHTML = `<!DOCTYPE html>
<html>
<head>
  <script type="application/ld+json">
  {
    "@context": "https://schema.org",
    "@type": "Book",
    "name": "Dune",
    "author": {"@type": "Person", "name": "Frank Herbert"},
    "aggregateRating": {"ratingValue": 4.27, "ratingCount": 500000, "reviewCount": 20000},
    "description": "Set on the desert planet Arrakis.",
    "image": "https://images.example.com/dune.jpg",
    "isbn": "9780441172719",
    "publisher": {"@type": "Organization", "name": "Ace Books"},
    "datePublished": "1965-08-01",
    "genre": ["Science Fiction", "Classics"]
  }
  </script>
</head>
<body>
  <h1 data-testid="bookTitle">Wrong Title From HTML</h1>
</body>
</html>`

const legacyDetailHTML = `<!DOCTYPE html>
<html>
<head>
  <script type="application/ld+json">{not valid json</script>
</head>
<body>
  <h1 id="bookTitle">The Name of the Wind</h1>
  <a class="authorName" href="/author/show/1"><span>Patrick Rothfuss</span></a>
  <span itemprop="ratingValue">4.52</span>
  <span itemprop="ratingCount">900,123</span>
  <span itemprop="reviewCount">45,678</span>
  <div id="description">
    <span>Told in Kvothe's own voice...</span>
    <span>Told in Kvothe's own voice, this is the tale of the magically gifted young man.</span>
  </div>
  <img id="coverImage" src="/images/notw.jpg">
  <div data-testid="publicationInfo">First published March 27, 2007 by DAW Books, 662 pages</div>
  <div class="infoBoxRowTitle">ISBN13</div>
  <div class="infoBoxRowItem">9780756404741</div>
  <a class="actionLinkLite bookPageGenreLink" href="/genres/fantasy">Fantasy</a>
  <a class="actionLinkLite bookPageGenreLink" href="/genres/fiction">Fiction</a>
</body>
</html>`

func TestResolveFromJSONLD(t *testing.T) {
	r := NewResolver(testLogger)
	doc := makeDoc(t, jsonLDDetailHTML)

	book := r.Resolve(doc, "https://www.goodreads.com/book/show/2-dune")

	if book.URL != "https://www.goodreads.com/book/show/2-dune" {
		t.Errorf("URL = %q", book.URL)
	}
	// JSON-LD wins over the HTML title.
	if book.Title == nil || *book.Title != "Dune" {
		t.Errorf("Title = %v, want Dune", sv(book.Title))
	}
	if book.Author == nil || *book.Author != "Frank Herbert" {
		t.Errorf("Author = %v", sv(book.Author))
	}
	if book.Rating == nil || *book.Rating != 4.27 {
		t.Errorf("Rating = %v", fv(book.Rating))
	}
	if book.RatingCount == nil || *book.RatingCount != 500000 {
		t.Errorf("RatingCount = %v", iv(book.RatingCount))
	}
	if book.ReviewCount == nil || *book.ReviewCount != 20000 {
		t.Errorf("ReviewCount = %v", iv(book.ReviewCount))
	}
	if book.Description == nil || *book.Description != "Set on the desert planet Arrakis." {
		t.Errorf("Description = %v", sv(book.Description))
	}
	if book.Image == nil || *book.Image != "https://images.example.com/dune.jpg" {
		t.Errorf("Image = %v", sv(book.Image))
	}
	if book.ISBN == nil || *book.ISBN != "9780441172719" {
		t.Errorf("ISBN = %v", sv(book.ISBN))
	}
	if book.Publisher == nil || *book.Publisher != "Ace Books" {
		t.Errorf("Publisher = %v", sv(book.Publisher))
	}
	if book.PublishDate == nil || *book.PublishDate != "1965-08-01" {
		t.Errorf("PublishDate = %v", sv(book.PublishDate))
	}
	if len(book.Genres) != 2 || book.Genres[0] != "Science Fiction" || book.Genres[1] != "Classics" {
		t.Errorf("Genres = %v", book.Genres)
	}
}

func TestResolveFallbackToSelectors(t *testing.T) {
	r := NewResolver(testLogger)
	doc := makeDoc(t, legacyDetailHTML)

	// The malformed JSON-LD block is skipped; every field comes from HTML.
	book := r.Resolve(doc, "https://www.goodreads.com/book/show/186074")

	if book.Title == nil || *book.Title != "The Name of the Wind" {
		t.Errorf("Title = %v", sv(book.Title))
	}
	if book.Author == nil || *book.Author != "Patrick Rothfuss" {
		t.Errorf("Author = %v", sv(book.Author))
	}
	if book.Rating == nil || *book.Rating != 4.52 {
		t.Errorf("Rating = %v", fv(book.Rating))
	}
	if book.RatingCount == nil || *book.RatingCount != 900123 {
		t.Errorf("RatingCount = %v", iv(book.RatingCount))
	}
	if book.ReviewCount == nil || *book.ReviewCount != 45678 {
		t.Errorf("ReviewCount = %v", iv(book.ReviewCount))
	}
	// The last description span holds the full text.
	want := "Told in Kvothe's own voice, this is the tale of the magically gifted young man."
	if book.Description == nil || *book.Description != want {
		t.Errorf("Description = %v", sv(book.Description))
	}
	// Relative cover resolved against the page URL.
	if book.Image == nil || *book.Image != "https://www.goodreads.com/images/notw.jpg" {
		t.Errorf("Image = %v", sv(book.Image))
	}
	if book.Publisher == nil || *book.Publisher != "DAW Books" {
		t.Errorf("Publisher = %v", sv(book.Publisher))
	}
	if book.PublishDate == nil || *book.PublishDate != "March 27, 2007" {
		t.Errorf("PublishDate = %v", sv(book.PublishDate))
	}
	// ISBN13 label still matches the isbn row scan.
	if book.ISBN == nil || *book.ISBN != "9780756404741" {
		t.Errorf("ISBN = %v", sv(book.ISBN))
	}
	if len(book.Genres) != 2 || book.Genres[0] != "Fantasy" || book.Genres[1] != "Fiction" {
		t.Errorf("Genres = %v", book.Genres)
	}
}

func TestResolveEmptyPage(t *testing.T) {
	r := NewResolver(testLogger)
	doc := makeDoc(t, `<html><body><p>nothing useful</p></body></html>`)

	// A page with no recognizable fields still yields a record with the URL.
	book := r.Resolve(doc, "https://www.goodreads.com/book/show/404")

	if book == nil {
		t.Fatal("expected a record")
	}
	if book.URL != "https://www.goodreads.com/book/show/404" {
		t.Errorf("URL = %q", book.URL)
	}
	if book.Title != nil || book.Author != nil || book.Rating != nil {
		t.Errorf("expected nil fields, got title=%v author=%v rating=%v",
			sv(book.Title), sv(book.Author), fv(book.Rating))
	}
	if book.Genres != nil {
		t.Errorf("Genres = %v, want nil", book.Genres)
	}
}

func TestResolvePartialJSONLD(t *testing.T) {
	// JSON-LD carries only the title; the rating falls through to microdata.
	html := `<html><head>
	<script type="application/ld+json">{"@type":"Book","name":"Partial"}</script>
	</head><body>
	<span itemprop="ratingValue">3.80</span>
	</body></html>`

	r := NewResolver(testLogger)
	book := r.Resolve(makeDoc(t, html), "https://www.goodreads.com/book/show/1")

	if book.Title == nil || *book.Title != "Partial" {
		t.Errorf("Title = %v", sv(book.Title))
	}
	if book.Rating == nil || *book.Rating != 3.8 {
		t.Errorf("Rating = %v", fv(book.Rating))
	}
}

func TestResolveTypeArray(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">{"@type":["Product","Book"],"name":"Array Typed"}</script>
	</head><body></body></html>`

	r := NewResolver(testLogger)
	book := r.Resolve(makeDoc(t, html), "https://www.goodreads.com/book/show/1")

	if book.Title == nil || *book.Title != "Array Typed" {
		t.Errorf("Title = %v", sv(book.Title))
	}
}

func TestResolveAuthorArray(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	{"@type":"Book","name":"Good Omens","author":[{"name":"Terry Pratchett"},{"name":"Neil Gaiman"}]}
	</script>
	</head><body></body></html>`

	r := NewResolver(testLogger)
	book := r.Resolve(makeDoc(t, html), "https://www.goodreads.com/book/show/1")

	if book.Author == nil || *book.Author != "Terry Pratchett, Neil Gaiman" {
		t.Errorf("Author = %v", sv(book.Author))
	}
}

func TestResolveOutOfRangeJSONLDRating(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">
	{"@type":"Book","name":"Bad Rating","aggregateRating":{"ratingValue":87.5}}
	</script>
	</head><body></body></html>`

	r := NewResolver(testLogger)
	book := r.Resolve(makeDoc(t, html), "https://www.goodreads.com/book/show/1")

	if book.Rating != nil {
		t.Errorf("Rating = %v, want nil for out-of-scale value", fv(book.Rating))
	}
}

func TestResolveGenresAcrossLayouts(t *testing.T) {
	// Pages mid-redesign carry both the React genre list and legacy genre
	// links; genres from every layout are kept, in document order.
	html := `<html><body>
	<div data-testid="genresList">
		<a href="/genres/fantasy">Fantasy</a>
		<a href="/genres/fiction">Fiction</a>
	</div>
	<div class="rightContainer">
		<a class="actionLinkLite bookPageGenreLink" href="/genres/classics">Classics</a>
	</div>
	</body></html>`

	r := NewResolver(testLogger)
	book := r.Resolve(makeDoc(t, html), "https://www.goodreads.com/book/show/1")

	want := []string{"Fantasy", "Fiction", "Classics"}
	if len(book.Genres) != len(want) {
		t.Fatalf("Genres = %v, want %v", book.Genres, want)
	}
	for i, g := range want {
		if book.Genres[i] != g {
			t.Errorf("Genres[%d] = %q, want %q", i, book.Genres[i], g)
		}
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := NewResolver(testLogger)

	first := r.Resolve(makeDoc(t, legacyDetailHTML), "https://www.goodreads.com/book/show/186074")
	second := r.Resolve(makeDoc(t, legacyDetailHTML), "https://www.goodreads.com/book/show/186074")

	a, err := first.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	b, err := second.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("resolving the same page twice differed:\n%s\n%s", a, b)
	}
}
