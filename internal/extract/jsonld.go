package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shelfstalk/internal/types"
)

// bookFromJSONLD scans the page's <script type="application/ld+json"> blocks
// for the first entity whose declared @type is "Book" and maps it onto a
// partially-filled record. Blocks that fail to parse are skipped silently so
// extraction can fall through to the HTML selectors. Returns nil when no
// Book entity exists on the page.
func bookFromJSONLD(doc *goquery.Document) *types.BookDetail {
	var book *types.BookDetail

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return true
		}

		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return true
		}

		// A block may hold a single entity or an array of them.
		entities, ok := parsed.([]any)
		if !ok {
			entities = []any{parsed}
		}
		for _, e := range entities {
			obj, ok := e.(map[string]any)
			if !ok || !isBookType(obj["@type"]) {
				continue
			}
			book = mapBookEntity(obj)
			return false
		}
		return true
	})

	return book
}

// isBookType matches `"@type": "Book"` and `"@type": ["Book", ...]`.
func isBookType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "Book"
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && s == "Book" {
				return true
			}
		}
	}
	return false
}

func mapBookEntity(obj map[string]any) *types.BookDetail {
	b := &types.BookDetail{}

	b.Title = jsonText(obj["name"])
	if b.Title == nil {
		b.Title = jsonText(obj["title"])
	}
	b.Author = jsonAuthor(obj["author"])

	if agg, ok := obj["aggregateRating"].(map[string]any); ok {
		if v := jsonNumber(agg["ratingValue"]); v != nil {
			b.Rating = ratingInRange(*v)
		}
		b.RatingCount = jsonCount(agg["ratingCount"])
		b.ReviewCount = jsonCount(agg["reviewCount"])
	}

	b.Description = jsonText(obj["description"])
	b.Image = jsonImage(obj["image"])
	b.ISBN = jsonText(obj["isbn"])
	b.Publisher = jsonName(obj["publisher"])
	b.PublishDate = jsonText(obj["datePublished"])
	b.Genres = jsonGenres(obj["genre"])

	return b
}

// jsonText returns a whitespace-normalized string value, nil when v is not a
// non-empty string.
func jsonText(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return nonEmpty(CleanText(s))
}

// jsonName accepts either a plain string or an entity object with a "name".
func jsonName(v any) *string {
	if s := jsonText(v); s != nil {
		return s
	}
	if obj, ok := v.(map[string]any); ok {
		return jsonText(obj["name"])
	}
	return nil
}

// jsonAuthor handles the three author encodings seen in the wild: a single
// entity, an array of entities (names joined with ", "), or a bare string.
func jsonAuthor(v any) *string {
	switch a := v.(type) {
	case map[string]any, string:
		return jsonName(a)
	case []any:
		var names []string
		for _, e := range a {
			if n := jsonName(e); n != nil {
				names = append(names, *n)
			}
		}
		if len(names) == 0 {
			return nil
		}
		return nonEmpty(strings.Join(names, ", "))
	}
	return nil
}

// jsonNumber accepts JSON numbers and numeric strings.
func jsonNumber(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

func jsonCount(v any) *int {
	f := jsonNumber(v)
	if f == nil || *f < 0 {
		return nil
	}
	n := int(*f)
	return &n
}

// jsonImage accepts a URL string, an array of URLs (first wins), or an
// ImageObject with a "url" property.
func jsonImage(v any) *string {
	switch img := v.(type) {
	case string:
		return nonEmpty(strings.TrimSpace(img))
	case []any:
		for _, e := range img {
			if s := jsonImage(e); s != nil {
				return s
			}
		}
	case map[string]any:
		return jsonImage(img["url"])
	}
	return nil
}

// jsonGenres accepts a single genre string or an array, preserving order.
func jsonGenres(v any) []string {
	switch g := v.(type) {
	case string:
		if t := nonEmpty(CleanText(g)); t != nil {
			return []string{*t}
		}
	case []any:
		var genres []string
		for _, e := range g {
			if s, ok := e.(string); ok {
				if t := nonEmpty(CleanText(s)); t != nil {
					genres = append(genres, *t)
				}
			}
		}
		return genres
	}
	return nil
}
