package fetcher

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"sjsage522/pricewatcher/helpers"
	"sjsage522/pricewatcher/logger"

	perrors "sjsage522/pricewatcher/pkg/errors"
)

// RodRenderer drives a local headless Chromium. One browser is shared by the process;
// every render gets its own incognito context which is disposed on every exit path.
type RodRenderer struct {
	bin        string
	controlURL string
	navTimeout time.Duration
	mu         sync.Mutex
	browser    *rod.Browser
	log        *logger.Logger
}

// NewRodRenderer creates a renderer. With controlURL set it connects to an existing
// browser, otherwise it launches bin (or an auto-detected Chromium) on first use.
func NewRodRenderer(bin, controlURL string, navTimeout time.Duration) *RodRenderer {
	if navTimeout <= 0 {
		navTimeout = helpers.DefaultTimeout
	}
	return &RodRenderer{
		bin:        bin,
		controlURL: controlURL,
		navTimeout: navTimeout,
		log:        logger.ForFetcher().WithStr("renderer", "rod"),
	}
}

func (r *RodRenderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	controlURL := r.controlURL
	if controlURL == "" {
		l := launcher.New().
			Headless(true).
			NoSandbox(true).
			Leakless(false)

		// Use system Chromium in containers, auto-detect locally
		if r.bin != "" {
			l = l.Bin(r.bin)
		} else if _, err := os.Stat("/usr/bin/chromium-browser"); err == nil {
			l = l.Bin("/usr/bin/chromium-browser")
		}

		u, err := l.Launch()
		if err != nil {
			return nil, perrors.NewFetch("", "failed to launch browser", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, perrors.NewFetch("", "failed to connect to browser", err)
	}

	r.log.Info().Str("control_url", controlURL).Msg("browser connected")
	r.browser = browser
	return browser, nil
}

// Render navigates to url and returns the serialized DOM once wait.Selector is present
func (r *RodRenderer) Render(ctx context.Context, url string, wait ReadyWait) (string, error) {
	browser, err := r.connect()
	if err != nil {
		return "", err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return "", perrors.NewFetch("", "failed to open browser context", err)
	}
	defer func() {
		if err := incognito.Close(); err != nil {
			r.log.Debug().Err(err).Msg("failed to dispose browser context")
		}
	}()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", perrors.NewFetch("", "failed to open page", err)
	}
	defer page.Close()

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      helpers.UserAgent,
		AcceptLanguage: helpers.AcceptLanguage,
	}); err != nil {
		return "", perrors.NewFetch("", "failed to set client identity", err)
	}

	navCtx, cancelNav := context.WithTimeout(ctx, r.navTimeout)
	defer cancelNav()
	if err := page.Context(navCtx).Navigate(url); err != nil {
		return "", perrors.NewFetch("", "navigation failed", err)
	}

	if wait.Selector != "" {
		waitCtx, cancelWait := context.WithTimeout(ctx, wait.Timeout)
		defer cancelWait()
		if _, err := page.Context(waitCtx).Element(wait.Selector); err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return "", perrors.NewRenderTimeout("", wait.Selector, err)
			}
			return "", perrors.NewFetch("", "waiting for ready marker failed", err)
		}
	}

	html, err := page.Context(ctx).HTML()
	if err != nil {
		return "", perrors.NewFetch("", "failed to serialize page", err)
	}
	return html, nil
}

// Close shuts the shared browser down
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}
