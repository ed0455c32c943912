// Package extractor maps raw page content to candidate title, price text and image URL values.
// Extraction is pure: no network, no clock, same input gives the same output.
package extractor

import (
	"io"

	"github.com/PuerkitoBio/goquery"
	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/pkg/errors"
)

// Extract parses content and runs the platform's locator chains. Missing fields are
// returned empty; only an unknown platform or unparseable document is an error.
func Extract(p model.Platform, content io.Reader) (Candidates, error) {
	strategy, ok := Lookup(p)
	if !ok {
		return Candidates{}, errors.NewUnsupportedPlatform(string(p))
	}

	doc, err := goquery.NewDocumentFromReader(content)
	if err != nil {
		return Candidates{}, errors.NewExtraction(string(p), "HTML parsing failed", err)
	}

	return strategy.Apply(doc.Selection), nil
}

// Apply runs each field group independently against the page root
func (s Strategy) Apply(root *goquery.Selection) Candidates {
	return Candidates{
		Title:     applyHandlers(root, s.TitleHandlers),
		PriceText: applyHandlers(root, s.PriceHandlers),
		ImageURL:  applyHandlers(root, s.ImageHandlers),
	}
}

// applyHandlers returns the first non-empty handler result
func applyHandlers(s *goquery.Selection, handlers []ElementHandler) string {
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if result := handler(s); result != "" {
			return result
		}
	}
	return ""
}

// Missing lists the absent fields, for logging partial extractions
func (c Candidates) Missing() []string {
	var missing []string
	if c.Title == "" {
		missing = append(missing, "title")
	}
	if c.PriceText == "" {
		missing = append(missing, "price")
	}
	if c.ImageURL == "" {
		missing = append(missing, "image")
	}
	return missing
}
