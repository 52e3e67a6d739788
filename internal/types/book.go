package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// BookSummary holds the fields extractable from a shelf list entry.
// Pointer fields distinguish "not found" from an empty value, so absent
// fields are omitted from output instead of serialized as zero values.
type BookSummary struct {
	URL         string   `json:"url"`
	Title       *string  `json:"title,omitempty"`
	Author      *string  `json:"author,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	RatingCount *int     `json:"ratingCount,omitempty"`
	ReviewCount *int     `json:"reviewCount,omitempty"`
	Image       *string  `json:"image,omitempty"`
}

// BookDetail extends BookSummary with the fields only present on a
// book's own page.
type BookDetail struct {
	BookSummary

	Description *string  `json:"description,omitempty"`
	ISBN        *string  `json:"isbn,omitempty"`
	Publisher   *string  `json:"publisher,omitempty"`
	PublishDate *string  `json:"publishDate,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// FromSummary wraps a list entry as a detail record with no detail
// fields set. Used when detail collection is disabled.
func FromSummary(s *BookSummary) *BookDetail {
	return &BookDetail{BookSummary: *s}
}

// ToJSON serializes the record.
func (b *BookDetail) ToJSON() ([]byte, error) {
	return json.Marshal(b)
}

// FlatHeaders returns the column order used by FlatFields.
func FlatHeaders() []string {
	return []string{
		"url", "title", "author", "rating", "rating_count", "review_count",
		"image", "description", "isbn", "publisher", "publish_date", "genres",
	}
}

// FlatFields flattens the record into string columns for CSV output.
// Absent fields become empty cells and genres are joined with "; ".
func (b *BookDetail) FlatFields() map[string]string {
	fields := map[string]string{
		"url":          b.URL,
		"title":        strOrEmpty(b.Title),
		"author":       strOrEmpty(b.Author),
		"image":        strOrEmpty(b.Image),
		"description":  strOrEmpty(b.Description),
		"isbn":         strOrEmpty(b.ISBN),
		"publisher":    strOrEmpty(b.Publisher),
		"publish_date": strOrEmpty(b.PublishDate),
		"rating_count": intOrEmpty(b.RatingCount),
		"review_count": intOrEmpty(b.ReviewCount),
		"genres":       strings.Join(b.Genres, "; "),
	}
	if b.Rating != nil {
		fields["rating"] = strconv.FormatFloat(*b.Rating, 'f', -1, 64)
	} else {
		fields["rating"] = ""
	}
	return fields
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
