// Package platform holds the static dispatch table: how each marketplace is addressed and fetched.
// Adding a marketplace means one entry here, one extractor strategy, and nothing else.
package platform

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/pkg/errors"
)

// Spec describes how a marketplace is fetched
type Spec struct {
	Platform        model.Platform
	URLTemplate     string // %s is replaced by an opaque product id
	Rendered        bool   // true when prices are painted by JavaScript
	ReadySelector   string // marker the rendered path waits for
	ReadyTimeout    time.Duration
	DefaultCurrency string
}

// Table version, bumped whenever an entry changes
const Version = 2

var table = map[model.Platform]Spec{
	model.Amazon: {
		Platform:        model.Amazon,
		URLTemplate:     "https://www.amazon.in/dp/%s",
		DefaultCurrency: "₹",
	},
	model.Flipkart: {
		Platform:        model.Flipkart,
		URLTemplate:     "https://www.flipkart.com/product/p/itme?pid=%s",
		DefaultCurrency: "₹",
	},
	model.Croma: {
		Platform:        model.Croma,
		URLTemplate:     "https://www.croma.com/p/%s",
		Rendered:        true,
		ReadySelector:   "h1.pd-title, h1",
		ReadyTimeout:    15 * time.Second,
		DefaultCurrency: "₹",
	},
	model.VijaySales: {
		Platform:        model.VijaySales,
		URLTemplate:     "https://www.vijaysales.com/p/%s",
		Rendered:        true,
		ReadySelector:   "h1.productFullDetail__productName, h1",
		ReadyTimeout:    15 * time.Second,
		DefaultCurrency: "₹",
	},
}

// Lookup returns the spec for p, or an unsupported platform error
func Lookup(p model.Platform) (Spec, error) {
	spec, ok := table[p]
	if !ok {
		return Spec{}, errors.NewUnsupportedPlatform(string(p))
	}
	return spec, nil
}

// Supported lists every platform in the table
func Supported() []model.Platform {
	return []model.Platform{model.Amazon, model.Flipkart, model.Croma, model.VijaySales}
}

// Resolve turns a target reference into a fetchable address. URLs are canonicalized,
// anything else is treated as an opaque product id.
func (s Spec) Resolve(reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", errors.NewFetch(string(s.Platform), "empty reference", nil)
	}

	lower := strings.ToLower(reference)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return canonicalize(reference)
	}

	return fmt.Sprintf(s.URLTemplate, url.PathEscape(reference)), nil
}

// Resolve looks up p and resolves reference in one step
func Resolve(p model.Platform, reference string) (string, error) {
	spec, err := Lookup(p)
	if err != nil {
		return "", err
	}
	return spec.Resolve(reference)
}

func canonicalize(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.NewFetch("", "invalid reference url", err)
	}
	if u.Host == "" {
		return "", errors.NewFetch("", fmt.Sprintf("reference %q has no host", raw), nil)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return u.String(), nil
}
