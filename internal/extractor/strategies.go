package extractor

import "sjsage522/pricewatcher/internal/model"

// Markup drifts often. Keep the most specific locator first and the broad ones last.
var strategies = map[model.Platform]Strategy{
	model.Amazon: {
		Platform: model.Amazon,
		TitleHandlers: []ElementHandler{
			AllText("#productTitle"),
			AllText("span#title"),
			Text("h1"),
		},
		PriceHandlers: []ElementHandler{
			Text("#corePriceDisplay_desktop_feature_div .a-price .a-offscreen"),
			Text("#corePrice_feature_div .a-price .a-offscreen"),
			AllText("#tp_price_block_total_price_ww"),
			AllText("#priceblock_ourprice"),
			AllText("#priceblock_dealprice"),
			Text(`[data-a-color="price"] .a-offscreen`),
			Text("span.a-price .a-offscreen"),
		},
		ImageHandlers: []ElementHandler{
			Attr("#imgTagWrapperId img", "src"),
			Attr("#imgBlkFront", "src"),
			Attr("img#landingImage", "src"),
			Meta("og:image"),
			Attr("img", "src"),
		},
	},
	model.Flipkart: {
		Platform: model.Flipkart,
		TitleHandlers: []ElementHandler{
			Text("span.B_NuCI"),
			Text("h1 span.VU-ZEz"),
			Text("h1"),
			Meta("og:title"),
		},
		PriceHandlers: []ElementHandler{
			Text("div._30jeq3._16Jk6d"),
			Text("div._25b18c ._30jeq3"),
			Text("div.Nx9bqj.CxhGGd"),
		},
		ImageHandlers: []ElementHandler{
			Attr("img._396cs4", "src"),
			Attr("img._2r_T1I", "src"),
			Attr("img.DByuf4", "src"),
			Meta("og:image"),
			Attr("img", "src"),
		},
	},
	model.Croma: {
		Platform: model.Croma,
		TitleHandlers: []ElementHandler{
			Text("h1.pd-title"),
			Text("h1"),
			Meta("og:title"),
		},
		PriceHandlers: []ElementHandler{
			Text("span#pdp-product-price"),
			Text("span.amount"),
			Text("div.cp-price span.new-price"),
		},
		ImageHandlers: []ElementHandler{
			Attr("div.product-img img", "src"),
			Attr("img#0prod_img", "src"),
			Meta("og:image"),
		},
	},
	model.VijaySales: {
		Platform: model.VijaySales,
		TitleHandlers: []ElementHandler{
			Text("h1.productFullDetail__productName"),
			Text("h1"),
			Meta("og:title"),
		},
		PriceHandlers: []ElementHandler{
			Text("span.productFullDetail__price"),
			Text("div.product__price--price"),
			Text("span.price"),
		},
		ImageHandlers: []ElementHandler{
			Attr("img.productFullDetail__image", "src"),
			Attr("div.product-gallery img", "src"),
			Meta("og:image"),
		},
	},
}

// Lookup returns the strategy for p
func Lookup(p model.Platform) (Strategy, bool) {
	s, ok := strategies[p]
	return s, ok
}
