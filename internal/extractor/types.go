package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/pricewatcher/internal/model"
)

// ElementHandler pulls one candidate value out of a page. An empty result means "no match,
// try the next handler".
type ElementHandler func(*goquery.Selection) string

// Strategy holds the ordered candidate locators for one marketplace
type Strategy struct {
	Platform      model.Platform
	TitleHandlers []ElementHandler
	PriceHandlers []ElementHandler
	ImageHandlers []ElementHandler
}

// Candidates are the raw field values found on a page. Empty strings are absent fields.
type Candidates struct {
	Title     string
	PriceText string
	ImageURL  string
}

// Text returns a handler reading the trimmed text of the first element matching selector
func Text(selector string) ElementHandler {
	return func(s *goquery.Selection) string {
		return strings.TrimSpace(s.Find(selector).First().Text())
	}
}

// AllText returns a handler reading the combined text of every element matching selector
func AllText(selector string) ElementHandler {
	return func(s *goquery.Selection) string {
		return strings.TrimSpace(s.Find(selector).Text())
	}
}

// Attr returns a handler reading an attribute of the first element matching selector
func Attr(selector, attr string) ElementHandler {
	return func(s *goquery.Selection) string {
		value, _ := s.Find(selector).First().Attr(attr)
		return strings.TrimSpace(value)
	}
}

// Meta returns a handler reading a <meta property=...> content value
func Meta(property string) ElementHandler {
	return Attr(`meta[property="`+property+`"]`, "content")
}
