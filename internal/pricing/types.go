// Package pricing defines core types shared across subsystems.
package pricing

import "time"

// ReferenceSeller is the reserved seller tag for the company's own channel.
// It is a stable value persisted in result records; the report layer maps it
// to a human-readable label.
const ReferenceSeller = "reference"

// ShippingStatus classifies how shipping cost was determined for a record.
type ShippingStatus string

// Shipping status values persisted in price records.
const (
	ShippingPaid    ShippingStatus = "paid"
	ShippingFree    ShippingStatus = "free"
	ShippingUnknown ShippingStatus = "unknown"
)

// ChannelRef points at one seller's listing page for a product.
type ChannelRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Product is one input descriptor from the product list. Immutable once
// loaded; Competitors keep their input order.
type Product struct {
	ID          string       `json:"product_id"`
	Name        string       `json:"product_name"`
	Reference   *ChannelRef  `json:"reference,omitempty"`
	Competitors []ChannelRef `json:"competitors,omitempty"`
}

// PriceRecord is one seller's observation for one product. Prices are in
// currency minor units. ProductPrice and TotalPrice are nil when the page
// did not yield a parseable price; TotalPrice is set iff ProductPrice is.
// An extraction error nulls every price field.
//
// The JSON field names are a stable contract consumed by the report builder.
type PriceRecord struct {
	Seller         string         `json:"seller"`
	URL            string         `json:"url"`
	ProductPrice   *int64         `json:"product_price"`
	ShippingFee    int64          `json:"shipping_fee"`
	ShippingStatus ShippingStatus `json:"shipping_status,omitempty"`
	TotalPrice     *int64         `json:"total_price"`
	ExtractedAt    time.Time      `json:"extracted_at"`
	Error          string         `json:"error,omitempty"`
}

// ErrorRecord builds a PriceRecord for a failed extraction. All price fields
// stay absent.
func ErrorRecord(url string, err error, at time.Time) PriceRecord {
	return PriceRecord{
		URL:         url,
		ExtractedAt: at,
		Error:       err.Error(),
	}
}

// HasPrice reports whether the record carries a usable total price.
func (r PriceRecord) HasPrice() bool {
	return r.Error == "" && r.TotalPrice != nil
}

// ProductResult is one product's outcome. Prices hold the reference channel
// first (when configured), then competitors in input order. Never mutated
// after being handed to the dispatcher.
type ProductResult struct {
	ProductID   string        `json:"product_id"`
	ProductName string        `json:"product_name"`
	Timestamp   time.Time     `json:"timestamp"`
	Prices      []PriceRecord `json:"prices"`
	TaskError   string        `json:"task_error,omitempty"`
}

// ReferenceRecord returns the reference-channel record, if present.
func (r ProductResult) ReferenceRecord() (PriceRecord, bool) {
	for _, p := range r.Prices {
		if p.Seller == ReferenceSeller {
			return p, true
		}
	}
	return PriceRecord{}, false
}

// AllFailed reports whether every seller record carries an error. A result
// with no records at all does not count as failed.
func (r ProductResult) AllFailed() bool {
	if len(r.Prices) == 0 {
		return false
	}
	for _, p := range r.Prices {
		if p.Error == "" {
			return false
		}
	}
	return true
}

// RunOutcome is returned by the dispatcher for one run.
type RunOutcome struct {
	Completed bool
	Cancelled bool
}
