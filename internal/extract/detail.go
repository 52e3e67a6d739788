package extract

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shelfstalk/internal/types"
)

// Selector candidates per field, tried in order. The first candidate that
// yields non-empty content wins. Goodreads has shipped several page designs;
// the lists cover the React app (data-testid), the legacy layout, and
// microdata attributes.
var (
	titleSelectors  = []string{`h1[data-testid="bookTitle"]`, `h1.gr-h1`, `#bookTitle`}
	authorSelectors = []string{`span[data-testid="name"]`, `.authorName__container a`, `a.authorName`}
	ratingSelectors = []string{
		`[class*="RatingStatistics"] [class*="average"]`,
		`.RatingStatistics__rating`,
		`[itemprop="ratingValue"]`,
	}
	ratingCountSelectors = []string{`[data-testid="ratingsCount"]`, `[itemprop="ratingCount"]`}
	reviewCountSelectors = []string{`[data-testid="reviewsCount"]`, `[itemprop="reviewCount"]`}
	descriptionSelectors = []string{
		`[data-testid="description"]`,
		`.BookPageMetadataSection__description [role="heading"] + div`,
		`#description span`,
	}
	coverSelectors = []string{`[class*="BookCover"] img`, `.BookPage__bookCover img`, `#coverImage`}
	genreSelectors = []string{
		`[data-testid="genresList"] a`,
		`.bookPageGenreLink`,
		`.actionLinkLite.bookPageGenreLink`,
	}
	publicationInfoSelector = `[data-testid="publicationInfo"]`
	infoRowValueSelector    = `.infoBoxRowItem`
)

// Resolver produces one BookDetail record from a parsed detail page.
//
// Resolution per field tries the page's JSON-LD Book entity first, then the
// field's selector candidates. Every field resolves independently: a miss
// leaves the field nil and never aborts the rest, so Resolve always returns
// a record, possibly one with only the URL set.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger.With("component", "resolver")}
}

// Resolve extracts a BookDetail from doc. pageURL is the detail page's own
// URL; relative image links are resolved against it.
func (r *Resolver) Resolve(doc *goquery.Document, pageURL string) *types.BookDetail {
	book := bookFromJSONLD(doc)
	if book == nil {
		book = &types.BookDetail{}
	}
	book.URL = pageURL

	if book.Title == nil {
		book.Title = firstText(doc, titleSelectors)
	}
	if book.Author == nil {
		book.Author = firstText(doc, authorSelectors)
	}
	if book.Rating == nil {
		if t := firstText(doc, ratingSelectors); t != nil {
			book.Rating = ParseRating(*t)
		}
	}
	if book.RatingCount == nil {
		if t := firstText(doc, ratingCountSelectors); t != nil {
			book.RatingCount = ParseCount(*t)
		}
	}
	if book.ReviewCount == nil {
		if t := firstText(doc, reviewCountSelectors); t != nil {
			book.ReviewCount = ParseCount(*t)
		}
	}
	if book.Description == nil {
		book.Description = lastText(doc, descriptionSelectors)
	}
	if book.Image == nil {
		book.Image = firstImage(doc, coverSelectors)
	}
	if book.Image != nil {
		// Resolving an already-absolute URL is a no-op; a malformed one
		// drops the field rather than erroring.
		book.Image = resolveURL(pageURL, *book.Image)
	}

	if book.Publisher == nil || book.PublishDate == nil {
		if info := firstText(doc, []string{publicationInfoSelector}); info != nil {
			publisher, date := ParsePublicationInfo(*info)
			if book.Publisher == nil {
				book.Publisher = publisher
			}
			if book.PublishDate == nil {
				book.PublishDate = date
			}
		}
	}
	if book.ISBN == nil {
		book.ISBN = isbnFromInfoRows(doc)
	}
	if len(book.Genres) == 0 {
		book.Genres = genreTexts(doc)
	}

	return book
}

// firstText returns the normalized text of the first element matched by the
// first candidate selector that yields non-empty text.
func firstText(doc *goquery.Document, selectors []string) *string {
	for _, sel := range selectors {
		if t := nonEmpty(CleanText(doc.Find(sel).First().Text())); t != nil {
			return t
		}
	}
	return nil
}

// lastText is firstText's counterpart for fields where the last match holds
// the full content (Goodreads renders the truncated description first and
// the expanded one last).
func lastText(doc *goquery.Document, selectors []string) *string {
	for _, sel := range selectors {
		if t := nonEmpty(CleanText(doc.Find(sel).Last().Text())); t != nil {
			return t
		}
	}
	return nil
}

// firstImage returns the first matched image's src, falling back to its
// lazy-load data-src attribute.
func firstImage(doc *goquery.Document, selectors []string) *string {
	for _, sel := range selectors {
		img := doc.Find(sel).First()
		if img.Length() == 0 {
			continue
		}
		if src, ok := img.Attr("src"); ok && src != "" {
			return &src
		}
		if src, ok := img.Attr("data-src"); ok && src != "" {
			return &src
		}
	}
	return nil
}

// isbnFromInfoRows scans the legacy layout's label/value rows for one whose
// label mentions ISBN (case-insensitively, so "ISBN13" rows match too) and
// returns that row's value text.
func isbnFromInfoRows(doc *goquery.Document) *string {
	var isbn *string
	doc.Find(infoRowValueSelector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		label := CleanText(row.Prev().Text())
		if !strings.Contains(strings.ToLower(label), "isbn") {
			return true
		}
		if v := nonEmpty(CleanText(row.Text())); v != nil {
			isbn = v
			return false
		}
		return true
	})
	return isbn
}

// genreTexts collects all genre link texts in document order, across every
// candidate selector in one combined pass so pages mixing layouts keep all
// their genres. Duplicate names are retained; an empty result is nil, not an
// empty slice.
func genreTexts(doc *goquery.Document) []string {
	var genres []string
	doc.Find(strings.Join(genreSelectors, ", ")).Each(func(_ int, link *goquery.Selection) {
		if t := nonEmpty(CleanText(link.Text())); t != nil {
			genres = append(genres, *t)
		}
	})
	return genres
}
