// Package fetcher retrieves page content over the static HTTP path or through a headless browser.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sjsage522/pricewatcher/helpers"
	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/services/cache"

	perrors "sjsage522/pricewatcher/pkg/errors"
)

// ReadyWait names the marker the rendered path waits for before serializing the page
type ReadyWait struct {
	Selector string
	Timeout  time.Duration
}

// Fetcher is the retrieval capability the scraper depends on
type Fetcher interface {
	FetchStatic(ctx context.Context, url string) (io.Reader, error)
	FetchRendered(ctx context.Context, url string, wait ReadyWait) (io.Reader, error)
}

// Renderer loads a page in a browser and returns the serialized DOM
type Renderer interface {
	Render(ctx context.Context, url string, wait ReadyWait) (string, error)
}

// RateLimitScoper is implemented by renderers whose own service can rate limit us.
// Their 429s cool down the returned scope instead of the marketplace host.
type RateLimitScoper interface {
	RateLimitScope() string
}

// Config holds the fetch knobs
type Config struct {
	Timeout    time.Duration
	Cooldown   time.Duration
	RenderWait time.Duration
}

// HTTPFetcher implements Fetcher with a plain HTTP client and a pluggable Renderer.
// A host that answers 429/430 is put on cooldown in the cache and skipped until it expires.
type HTTPFetcher struct {
	client     *http.Client
	renderer   Renderer
	cacheSvc   cache.CacheService
	cooldown   time.Duration
	renderWait time.Duration
	log        *logger.Logger
}

// New creates an HTTPFetcher. renderer and cacheSvc may be nil.
func New(cfg Config, renderer Renderer, cacheSvc cache.CacheService) *HTTPFetcher {
	if renderer == nil {
		renderer = NoRenderer{}
	}
	renderWait := cfg.RenderWait
	if renderWait <= 0 {
		renderWait = 15 * time.Second
	}
	return &HTTPFetcher{
		client:     helpers.NewClient(cfg.Timeout),
		renderer:   renderer,
		cacheSvc:   cacheSvc,
		cooldown:   cfg.Cooldown,
		renderWait: renderWait,
		log:        logger.ForFetcher(),
	}
}

// FetchStatic performs a single GET. There is no retry.
func (f *HTTPFetcher) FetchStatic(ctx context.Context, rawURL string) (io.Reader, error) {
	host, err := hostOf(rawURL)
	if err != nil {
		return nil, err
	}
	if err := f.checkCooldown(host); err != nil {
		return nil, err
	}

	f.log.Debug().Str("url", rawURL).Msg("static fetch")

	reader, err := helpers.Fetch(ctx, f.client, rawURL)
	if err != nil {
		var rateErr *helpers.RateLimitError
		if errors.As(err, &rateErr) {
			f.startCooldown(host)
			return nil, perrors.New(perrors.ErrorTypeRateLimit, "", fmt.Sprintf("%s answered %d", host, rateErr.StatusCode), err)
		}
		return nil, perrors.NewFetch("", "static fetch failed", err)
	}
	return reader, nil
}

// FetchRendered loads rawURL in the configured renderer and waits for the ready marker
func (f *HTTPFetcher) FetchRendered(ctx context.Context, rawURL string, wait ReadyWait) (io.Reader, error) {
	host, err := hostOf(rawURL)
	if err != nil {
		return nil, err
	}
	if err := f.checkCooldown(host); err != nil {
		return nil, err
	}
	scope := host
	if scoper, ok := f.renderer.(RateLimitScoper); ok {
		scope = scoper.RateLimitScope()
		if err := f.checkCooldown(scope); err != nil {
			return nil, err
		}
	}
	if wait.Timeout <= 0 {
		wait.Timeout = f.renderWait
	}

	f.log.Debug().Str("url", rawURL).Str("selector", wait.Selector).Msg("rendered fetch")

	html, err := f.renderer.Render(ctx, rawURL, wait)
	if err != nil {
		if perrors.IsType(err, perrors.ErrorTypeRateLimit) {
			f.startCooldown(scope)
		}
		return nil, err
	}
	return strings.NewReader(html), nil
}

func (f *HTTPFetcher) checkCooldown(host string) error {
	if f.cacheSvc == nil || f.cooldown <= 0 {
		return nil
	}
	if _, err := f.cacheSvc.Get(cooldownKey(host)); err == nil {
		return perrors.NewRateLimit("", f.cooldown)
	}
	return nil
}

func (f *HTTPFetcher) startCooldown(host string) {
	if f.cacheSvc == nil || f.cooldown <= 0 {
		return
	}
	value := []byte(fmt.Sprintf("%d", int(f.cooldown/time.Second)))
	if err := f.cacheSvc.Set(cooldownKey(host), value, f.cooldown); err != nil {
		f.log.Warn().Err(err).Str("host", host).Msg("failed to record cooldown")
		return
	}
	f.log.Warn().Str("host", host).Dur("cooldown", f.cooldown).Msg("host rate limited, pausing requests")
}

func cooldownKey(host string) string {
	return host + "_rate_limited"
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", perrors.NewFetch("", fmt.Sprintf("invalid url %q", rawURL), err)
	}
	return strings.ToLower(u.Hostname()), nil
}

// NoRenderer is used when rendering is disabled; every rendered fetch fails
type NoRenderer struct{}

func (NoRenderer) Render(context.Context, string, ReadyWait) (string, error) {
	return "", perrors.NewFetch("", "rendering is disabled (RENDER_BACKEND=none)", nil)
}
