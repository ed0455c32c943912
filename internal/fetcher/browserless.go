package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"sjsage522/pricewatcher/helpers"
	"sjsage522/pricewatcher/logger"

	perrors "sjsage522/pricewatcher/pkg/errors"
)

// BrowserlessRenderer renders pages through a remote browserless /content endpoint
type BrowserlessRenderer struct {
	addr       string
	scope      string
	token      string
	navTimeout time.Duration
	client     *http.Client
	log        *logger.Logger
}

type browserlessWait struct {
	Selector string `json:"selector"`
	Timeout  int64  `json:"timeout"`
}

type browserlessGoto struct {
	WaitUntil string `json:"waitUntil"`
	Timeout   int64  `json:"timeout"`
}

type browserlessRequest struct {
	URL                 string            `json:"url"`
	GotoOptions         browserlessGoto   `json:"gotoOptions"`
	WaitForSelector     *browserlessWait  `json:"waitForSelector,omitempty"`
	SetExtraHTTPHeaders map[string]string `json:"setExtraHTTPHeaders"`
}

// NewBrowserlessRenderer creates a renderer for the browserless instance at addr
func NewBrowserlessRenderer(addr, token string, timeout time.Duration) *BrowserlessRenderer {
	if timeout <= 0 {
		timeout = helpers.DefaultTimeout
	}
	return &BrowserlessRenderer{
		addr:       strings.TrimRight(addr, "/"),
		scope:      "renderer:" + rendererHost(addr),
		token:      token,
		navTimeout: timeout,
		client:     &http.Client{Timeout: timeout + 30*time.Second},
		log:        logger.ForFetcher().WithStr("renderer", "browserless"),
	}
}

// Render posts the page request and returns the rendered HTML
func (b *BrowserlessRenderer) Render(ctx context.Context, pageURL string, wait ReadyWait) (string, error) {
	payload := browserlessRequest{
		URL: pageURL,
		GotoOptions: browserlessGoto{
			WaitUntil: "domcontentloaded",
			Timeout:   b.navTimeout.Milliseconds(),
		},
		SetExtraHTTPHeaders: map[string]string{
			"User-Agent":      helpers.UserAgent,
			"Accept-Language": helpers.AcceptLanguage,
		},
	}
	if wait.Selector != "" {
		payload.WaitForSelector = &browserlessWait{
			Selector: wait.Selector,
			Timeout:  wait.Timeout.Milliseconds(),
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", perrors.NewFetch("", "failed to encode render request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint(), bytes.NewReader(data))
	if err != nil {
		return "", perrors.NewFetch("", "failed to create render request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", perrors.NewFetch("", "render request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", perrors.NewFetch("", "failed to read rendered page", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusRequestTimeout && wait.Selector != "":
		return "", perrors.NewRenderTimeout("", wait.Selector, fmt.Errorf("browserless: %s", snippet(body)))
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", perrors.New(perrors.ErrorTypeRateLimit, "", "browserless answered 429", nil)
	default:
		return "", perrors.NewFetch("", fmt.Sprintf("browserless status %d: %s", resp.StatusCode, snippet(body)), nil)
	}

	reader, err := helpers.ToUTF8(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", perrors.NewFetch("", "failed to decode rendered page", err)
	}
	html, err := io.ReadAll(reader)
	if err != nil {
		return "", perrors.NewFetch("", "failed to decode rendered page", err)
	}

	b.log.Debug().Str("url", pageURL).Int("bytes", len(html)).Msg("page rendered")
	return string(html), nil
}

// RateLimitScope names the cooldown bucket for the browserless service itself.
// A 429 from it pauses rendering, not the marketplace.
func (b *BrowserlessRenderer) RateLimitScope() string {
	return b.scope
}

func rendererHost(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.Host != "" {
		return strings.ToLower(u.Host)
	}
	return strings.ToLower(strings.TrimRight(addr, "/"))
}

func (b *BrowserlessRenderer) endpoint() string {
	endpoint := b.addr + "/content"
	if b.token != "" {
		endpoint += "?token=" + url.QueryEscape(b.token)
	}
	return endpoint
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= 200 {
		return s
	}
	cut := 200
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
