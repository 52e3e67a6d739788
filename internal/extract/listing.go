package extract

import (
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shelfstalk/internal/types"
)

// Shelf listing page selectors. Goodreads renders shelf entries either as
// .elementList rows or bare .leftAlignedImage blocks depending on the view.
const (
	containerSelector  = ".leftAlignedImage, .elementList"
	bookLinkSelector   = "a.bookTitle"
	authorLinkSelector = "a.authorName"
	miniRatingSelector = ".minirating"
	nextPageSelector   = "a.next_page"
)

// Lister extracts book summaries and the next-page cursor from shelf listing
// pages. The SeenSet is shared across all pages of a run so each book URL is
// emitted at most once regardless of how many listing pages reference it.
type Lister struct {
	seen   *SeenSet
	logger *slog.Logger
}

// NewLister creates a Lister backed by the given de-duplication set.
func NewLister(seen *SeenSet, logger *slog.Logger) *Lister {
	return &Lister{
		seen:   seen,
		logger: logger.With("component", "lister"),
	}
}

// Extract walks the page's book containers in document order and returns a
// summary for each container with a resolvable, not-yet-seen detail link.
// Containers without a link, with an unresolvable link, or pointing at an
// already-seen URL are skipped without affecting the rest of the page.
func (l *Lister) Extract(doc *goquery.Document, pageURL string) []*types.BookSummary {
	var books []*types.BookSummary

	doc.Find(containerSelector).Each(func(_ int, container *goquery.Selection) {
		link := container.Find(bookLinkSelector).First()
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		abs := resolveURL(pageURL, href)
		if abs == nil {
			l.logger.Debug("container skipped, unresolvable link", "href", href, "page", pageURL)
			return
		}
		if !l.seen.Add(*abs) {
			return
		}

		s := &types.BookSummary{URL: *abs}

		s.Title = nonEmpty(CleanText(link.Text()))
		if s.Title == nil {
			if attr, ok := link.Attr("title"); ok {
				s.Title = nonEmpty(CleanText(attr))
			}
		}

		s.Author = nonEmpty(CleanText(container.Find(authorLinkSelector).First().Text()))

		mini := CleanText(container.Find(miniRatingSelector).First().Text())
		s.Rating, s.RatingCount, s.ReviewCount = ParseMiniRating(mini)

		img := container.Find("img").First()
		if src, ok := img.Attr("src"); ok && src != "" {
			s.Image = resolveURL(pageURL, src)
		} else if src, ok := img.Attr("data-src"); ok && src != "" {
			s.Image = resolveURL(pageURL, src)
		}

		books = append(books, s)
	})

	return books
}

// NextPage returns the absolute URL of the next listing page, or nil when no
// cursor can be derived.
//
// An explicit next-page link wins when present and not marked disabled.
// Otherwise the cursor is built from the current URL by bumping its "page"
// query parameter, a best-effort fallback for responses that omit the
// pagination nav. currentPage seeds the computation when the URL itself
// carries no page parameter.
func (l *Lister) NextPage(doc *goquery.Document, pageURL string, currentPage int) *string {
	next := doc.Find(nextPageSelector).First()
	if next.Length() > 0 && !next.HasClass("disabled") {
		if href, ok := next.Attr("href"); ok && strings.TrimSpace(href) != "" {
			if abs := resolveURL(pageURL, href); abs != nil {
				return abs
			}
		}
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	page := currentPage
	if page < 1 {
		page = 1
	}
	if raw := u.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}

	q := u.Query()
	q.Set("page", strconv.Itoa(page+1))
	u.RawQuery = q.Encode()

	s := u.String()
	return &s
}
