package extractor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"pricescout/internal/pricing"
)

// SiteGmarket identifies the Gmarket storefront strategy.
const SiteGmarket = "gmarket"

// Gmarket renders a discounted sale price alongside the list price when a
// promotion is active. The sale price is what a buyer pays, so it wins over
// the list price whenever both are present.
const (
	gmarketSalePriceSelector = ".item_price .price_innerwrap .sale_price"
	gmarketListPriceSelector = ".item_price .price_innerwrap .best_price"
)

// Gmarket extracts prices from Gmarket item pages. The storefront bundles
// shipping into the displayed price, so every record reports free shipping
// and the total equals the product price.
type Gmarket struct {
	fetcher pricing.Fetcher
	clock   pricing.Clock
	logger  *zap.Logger
}

// NewGmarket builds the Gmarket strategy.
func NewGmarket(deps Deps) *Gmarket {
	return &Gmarket{fetcher: deps.Fetcher, clock: deps.Clock, logger: deps.Logger}
}

// Extract fetches the item page at url and parses the effective selling
// price. Like every strategy it never returns an error; failures come back
// inside the record.
func (g *Gmarket) Extract(ctx context.Context, url string) pricing.PriceRecord {
	body, err := g.fetcher.Fetch(ctx, url)
	if err != nil {
		return pricing.ErrorRecord(url, err, g.clock.Now())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pricing.ErrorRecord(url, fmt.Errorf("parse page: %w", err), g.clock.Now())
	}

	rec := pricing.PriceRecord{
		URL:            url,
		ShippingFee:    0,
		ShippingStatus: pricing.ShippingFree,
		ExtractedAt:    g.clock.Now(),
	}

	rec.ProductPrice = parsePrice(doc.Find(gmarketSalePriceSelector).First().Text())
	if rec.ProductPrice == nil {
		rec.ProductPrice = parsePrice(doc.Find(gmarketListPriceSelector).First().Text())
	}
	if rec.ProductPrice == nil {
		g.logger.Debug("price node missing or unparseable", zap.String("url", url))
	}

	if rec.ProductPrice != nil {
		total := *rec.ProductPrice
		rec.TotalPrice = &total
	}
	return rec
}
