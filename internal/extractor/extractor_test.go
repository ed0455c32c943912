package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/pkg/errors"
)

const amazonPage = `<html><body>
<span id="productTitle">  Apple iPhone 15 (128 GB) - Black  </span>
<div id="corePriceDisplay_desktop_feature_div">
  <span class="a-price"><span class="a-offscreen">₹69,900.00</span></span>
</div>
<span class="a-price"><span class="a-offscreen">₹1.00</span></span>
<div id="imgTagWrapperId"><img src="https://m.media-amazon.com/images/I/iphone.jpg"></div>
</body></html>`

func TestExtractAmazon(t *testing.T) {
	got, err := Extract(model.Amazon, strings.NewReader(amazonPage))
	require.NoError(t, err)

	assert.Equal(t, "Apple iPhone 15 (128 GB) - Black", got.Title)
	assert.Equal(t, "₹69,900.00", got.PriceText)
	assert.Equal(t, "https://m.media-amazon.com/images/I/iphone.jpg", got.ImageURL)
	assert.Empty(t, got.Missing())
}

func TestExtractFallsBackInOrder(t *testing.T) {
	page := `<html><head><meta property="og:image" content="https://cdn.example/og.jpg"></head><body>
<h1>Fallback Title</h1>
<span id="priceblock_dealprice">₹499.00</span>
</body></html>`

	got, err := Extract(model.Amazon, strings.NewReader(page))
	require.NoError(t, err)

	assert.Equal(t, "Fallback Title", got.Title)
	assert.Equal(t, "₹499.00", got.PriceText)
	assert.Equal(t, "https://cdn.example/og.jpg", got.ImageURL)
}

func TestExtractFieldsAreIndependent(t *testing.T) {
	page := `<html><body><span class="B_NuCI">Redmi Note 13</span></body></html>`

	got, err := Extract(model.Flipkart, strings.NewReader(page))
	require.NoError(t, err)

	assert.Equal(t, "Redmi Note 13", got.Title)
	assert.Empty(t, got.PriceText)
	assert.Empty(t, got.ImageURL)
	assert.Equal(t, []string{"price", "image"}, got.Missing())
}

func TestExtractEmptyPage(t *testing.T) {
	for _, p := range []model.Platform{model.Amazon, model.Flipkart, model.Croma, model.VijaySales} {
		got, err := Extract(p, strings.NewReader(""))
		require.NoError(t, err, p)
		assert.Equal(t, Candidates{}, got, p)
	}
}

func TestExtractUnsupportedPlatform(t *testing.T) {
	_, err := Extract(model.Platform("ebay"), strings.NewReader(amazonPage))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedPlatform))
}

func TestExtractIsDeterministic(t *testing.T) {
	first, err := Extract(model.Amazon, strings.NewReader(amazonPage))
	require.NoError(t, err)
	second, err := Extract(model.Amazon, strings.NewReader(amazonPage))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestApplyHandlersSkipsNilAndEmpty(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<p class="x">hit</p>`))
	require.NoError(t, err)

	handlers := []ElementHandler{nil, Text(".missing"), Text(".x"), func(*goquery.Selection) string { return "late" }}
	assert.Equal(t, "hit", applyHandlers(doc.Selection, handlers))
	assert.Empty(t, applyHandlers(doc.Selection, nil))
}

func TestEveryPlatformHasStrategy(t *testing.T) {
	for _, p := range []model.Platform{model.Amazon, model.Flipkart, model.Croma, model.VijaySales} {
		s, ok := Lookup(p)
		require.True(t, ok, p)
		assert.NotEmpty(t, s.TitleHandlers)
		assert.NotEmpty(t, s.PriceHandlers)
		assert.NotEmpty(t, s.ImageHandlers)
	}
}
