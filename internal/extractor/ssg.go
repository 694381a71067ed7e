package extractor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"pricescout/internal/pricing"
)

// SiteSSG identifies the SSG storefront strategy.
const SiteSSG = "ssg"

// SSG selector constants. The storefront renders the selling price inside a
// dedicated price block and the delivery policy as a definition list whose
// first item holds the fee, when one applies.
const (
	ssgPriceSelector    = ".cdtl_new_price.notranslate .ssg_price"
	ssgDeliverySelector = ".cdtl_dl.cdtl_delivery_fee"
	ssgDeliveryFeeNode  = "em.ssg_price"
)

// SSG extracts prices from SSG product detail pages.
type SSG struct {
	fetcher pricing.Fetcher
	clock   pricing.Clock
	logger  *zap.Logger
}

// NewSSG builds the SSG strategy.
func NewSSG(deps Deps) *SSG {
	return &SSG{fetcher: deps.Fetcher, clock: deps.Clock, logger: deps.Logger}
}

// Extract fetches the product page at url and parses the selling price and
// delivery fee out of it. It never returns an error: fetch or parse failures
// come back as an error-bearing record so one bad seller page cannot sink
// the product's task.
func (s *SSG) Extract(ctx context.Context, url string) pricing.PriceRecord {
	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return pricing.ErrorRecord(url, err, s.clock.Now())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pricing.ErrorRecord(url, fmt.Errorf("parse page: %w", err), s.clock.Now())
	}

	rec := pricing.PriceRecord{
		URL:         url,
		ExtractedAt: s.clock.Now(),
	}

	rec.ProductPrice = parsePrice(doc.Find(ssgPriceSelector).First().Text())
	if rec.ProductPrice == nil {
		s.logger.Debug("price node missing or unparseable", zap.String("url", url))
	}

	rec.ShippingFee, rec.ShippingStatus = s.shipping(doc)

	if rec.ProductPrice != nil {
		total := *rec.ProductPrice + rec.ShippingFee
		rec.TotalPrice = &total
	}
	return rec
}

// shipping reads the delivery policy block. A fee amount inside the first
// list item means paid shipping; a present block without one means the
// seller ships free. Only a block entirely absent leaves the policy
// unknown. Unknown and free both contribute a zero fee to the total.
func (s *SSG) shipping(doc *goquery.Document) (int64, pricing.ShippingStatus) {
	block := doc.Find(ssgDeliverySelector).First()
	if block.Length() == 0 {
		return 0, pricing.ShippingUnknown
	}
	feeText := block.Find("li").First().Find(ssgDeliveryFeeNode).First().Text()
	if hasDigits(feeText) {
		if fee := parsePrice(feeText); fee != nil {
			return *fee, pricing.ShippingPaid
		}
	}
	return 0, pricing.ShippingFree
}
