package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "sjsage522/pricewatcher/pkg/errors"
)

// newTestRodRenderer skips when no local Chromium is installed
func newTestRodRenderer(t *testing.T) *RodRenderer {
	t.Helper()
	if os.Getenv("CI") != "" {
		t.Skip("Skipping browser test in CI environment")
	}

	bin, found := launcher.LookPath()
	if !found {
		t.Skip("Chromium is not available, skipping browser test")
	}

	r := NewRodRenderer(bin, "", 10*time.Second)
	if _, err := r.connect(); err != nil {
		t.Skipf("Chromium failed to start, skipping browser test: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func openPages(t *testing.T, r *RodRenderer) int {
	t.Helper()
	browser, err := r.connect()
	require.NoError(t, err)
	pages, err := browser.Pages()
	require.NoError(t, err)
	return len(pages)
}

func newShop(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/ready":
			w.Write([]byte(`<html><body><h1 class="pd-title">Sony Bravia 55</h1><span class="amount">₹57,990</span></body></html>`))
		default:
			w.Write([]byte(`<html><body><div class="skeleton"></div></body></html>`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRodRenderReturnsSerializedPage(t *testing.T) {
	r := newTestRodRenderer(t)
	server := newShop(t)
	before := openPages(t, r)

	html, err := r.Render(context.Background(), server.URL+"/ready", ReadyWait{Selector: "h1.pd-title", Timeout: 5 * time.Second})
	require.NoError(t, err)

	assert.Contains(t, html, "Sony Bravia 55")
	assert.Contains(t, html, "57,990")
	assert.Equal(t, before, openPages(t, r), "page must be closed after a render")
}

func TestRodRenderMissingMarkerIsRenderTimeout(t *testing.T) {
	r := newTestRodRenderer(t)
	server := newShop(t)
	before := openPages(t, r)

	_, err := r.Render(context.Background(), server.URL+"/loading", ReadyWait{Selector: "h1.pd-title", Timeout: 500 * time.Millisecond})
	require.Error(t, err)

	assert.True(t, perrors.IsType(err, perrors.ErrorTypeRenderTimeout), "got %v", err)
	assert.Equal(t, before, openPages(t, r), "page must be closed after a selector timeout")
}

func TestRodRenderNavigationFailureReleasesPage(t *testing.T) {
	r := newTestRodRenderer(t)
	server := newShop(t)
	deadURL := server.URL + "/ready"
	server.Close()
	before := openPages(t, r)

	_, err := r.Render(context.Background(), deadURL, ReadyWait{Selector: "h1", Timeout: time.Second})
	require.Error(t, err)

	assert.True(t, perrors.IsType(err, perrors.ErrorTypeFetch), "got %v", err)
	assert.Equal(t, before, openPages(t, r), "page must be closed after a failed navigation")
}

func TestRodRenderCancelledContextIsNotRenderTimeout(t *testing.T) {
	r := newTestRodRenderer(t)
	server := newShop(t)
	before := openPages(t, r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, server.URL+"/loading", ReadyWait{Selector: "h1.pd-title", Timeout: time.Second})
	require.Error(t, err)

	assert.False(t, perrors.IsType(err, perrors.ErrorTypeRenderTimeout))
	assert.Equal(t, before, openPages(t, r))
}
