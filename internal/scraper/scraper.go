// Package scraper turns a target into a ScrapeResult: platform lookup, fetch path, extraction, normalization.
package scraper

import (
	"context"
	"io"
	"net/url"
	"strings"

	"sjsage522/pricewatcher/internal/extractor"
	"sjsage522/pricewatcher/internal/fetcher"
	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/internal/platform"
	"sjsage522/pricewatcher/internal/price"
	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/pkg/errors"
)

// Scraper dispatches each target to its platform's fetch path and extractor strategy
type Scraper struct {
	fetcher fetcher.Fetcher
}

// New creates a Scraper on top of f
func New(f fetcher.Fetcher) *Scraper {
	return &Scraper{fetcher: f}
}

// Scrape fetches and extracts the current state of target. An unsupported platform
// fails before any I/O. Absent fields come back empty (or nil for the price).
func (s *Scraper) Scrape(ctx context.Context, target model.Target) (model.ScrapeResult, error) {
	spec, err := platform.Lookup(target.Platform)
	if err != nil {
		return model.ScrapeResult{}, err
	}

	pageURL, err := spec.Resolve(target.Reference)
	if err != nil {
		return model.ScrapeResult{}, errors.WithPlatform(err, string(target.Platform))
	}

	var content io.Reader
	if spec.Rendered {
		content, err = s.fetcher.FetchRendered(ctx, pageURL, fetcher.ReadyWait{
			Selector: spec.ReadySelector,
			Timeout:  spec.ReadyTimeout,
		})
	} else {
		content, err = s.fetcher.FetchStatic(ctx, pageURL)
	}
	if err != nil {
		return model.ScrapeResult{}, errors.WithPlatform(err, string(target.Platform))
	}

	candidates, err := extractor.Extract(target.Platform, content)
	if err != nil {
		return model.ScrapeResult{}, err
	}

	// The ready marker only proves the page painted; a rendered page without a title never finished loading
	if spec.Rendered && candidates.Title == "" {
		return model.ScrapeResult{}, errors.NewRenderTimeout(string(target.Platform), spec.ReadySelector, nil)
	}

	log := logger.ForPlatform(string(target.Platform))
	if missing := candidates.Missing(); len(missing) > 0 {
		log.Debug().Str("target_id", target.ID).Strs("missing", missing).Msg("partial extraction")
	}

	normalized := price.Normalize(candidates.PriceText, spec.DefaultCurrency)

	return model.ScrapeResult{
		Title:    candidates.Title,
		Price:    normalized.Price,
		Currency: normalized.Currency,
		ImageURL: absoluteURL(pageURL, candidates.ImageURL),
		URL:      pageURL,
	}, nil
}

// absoluteURL resolves protocol-relative and relative image paths against the page
func absoluteURL(pageURL, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
