package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ratingRe      = regexp.MustCompile(`\d+\.\d+`)
	countRe       = regexp.MustCompile(`[\d,]+`)
	ratingCountRe = regexp.MustCompile(`(?i)avg rating.*?([\d,]+)\s+rating`)
	reviewCountRe = regexp.MustCompile(`(?i)([\d,]+)\s+review`)
	publisherRe   = regexp.MustCompile(`(?i)by\s+([^,]+)`)
	publishDateRe = regexp.MustCompile(`\w+\s+\d+,?\s+\d{4}`)
)

// CleanText collapses all whitespace runs (spaces, tabs, newlines) into
// single spaces and trims the result.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseRating returns the first decimal number found in s, or nil when none
// occurs or the value falls outside the 0-5 star scale. A missing rating is
// always nil, never zero.
func ParseRating(s string) *float64 {
	m := ratingRe.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return ratingInRange(v)
}

// ParseCount returns the first integer found in s, tolerating thousands
// separators ("1,234"). Returns nil when no digits occur.
func ParseCount(s string) *int {
	m := countRe.FindString(s)
	if m == "" {
		return nil
	}
	return parseGroupedInt(m)
}

// ParseMiniRating pulls the three numbers out of a listing page's combined
// rating blob, e.g. "4.25 avg rating — 1,234 ratings · 56 reviews".
// Each value is independently nil when its pattern is missing.
func ParseMiniRating(s string) (rating *float64, ratingCount, reviewCount *int) {
	rating = ParseRating(s)
	if m := ratingCountRe.FindStringSubmatch(s); m != nil {
		ratingCount = parseGroupedInt(m[1])
	}
	if m := reviewCountRe.FindStringSubmatch(s); m != nil {
		reviewCount = parseGroupedInt(m[1])
	}
	return rating, ratingCount, reviewCount
}

// ParsePublicationInfo splits a publication-info blob such as
// "Published January 1, 2020 by Tor Books, first edition" into the
// publish date and publisher name.
func ParsePublicationInfo(s string) (publisher, publishDate *string) {
	if m := publisherRe.FindStringSubmatch(s); m != nil {
		publisher = nonEmpty(strings.TrimSpace(m[1]))
	}
	if m := publishDateRe.FindString(s); m != "" {
		publishDate = nonEmpty(m)
	}
	return publisher, publishDate
}

// parseGroupedInt parses an integer that may contain comma separators.
func parseGroupedInt(s string) *int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// ratingInRange rejects values outside the 0-5 star scale.
func ratingInRange(v float64) *float64 {
	if v < 0 || v > 5 {
		return nil
	}
	return &v
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
