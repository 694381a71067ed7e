// Package analyzer finds price inversions: competitor listings whose total
// price undercuts the company's own channel.
package analyzer

import "pricescout/internal/pricing"

// Undercut is one competitor listing selling below the reference channel.
type Undercut struct {
	Record pricing.PriceRecord
	// PriceDifference is reference total minus competitor total, always
	// positive.
	PriceDifference int64
}

// InversionGroup collects every undercut found for one product.
type InversionGroup struct {
	ProductID   string
	ProductName string
	Reference   pricing.PriceRecord
	Undercuts   []Undercut
}

// Analysis is the outcome of one inversion pass over a run's results.
type Analysis struct {
	Groups []InversionGroup
}

// AnyFound reports whether at least one undercut was detected.
func (a Analysis) AnyFound() bool {
	return len(a.Groups) > 0
}

// Analyze compares every competitor total against the product's reference
// total. Products whose reference channel produced no numeric total are
// skipped outright: without a baseline there is nothing to compare, no
// matter how cheap a competitor looks. Competitor records without a numeric
// total are likewise ignored. Group order follows the input results;
// undercuts keep their record order within a product.
func Analyze(results []pricing.ProductResult) Analysis {
	var analysis Analysis
	for _, res := range results {
		ref, ok := res.ReferenceRecord()
		if !ok || !ref.HasPrice() {
			continue
		}
		refTotal := *ref.TotalPrice

		var undercuts []Undercut
		for _, rec := range res.Prices {
			if rec.Seller == pricing.ReferenceSeller || !rec.HasPrice() {
				continue
			}
			if *rec.TotalPrice < refTotal {
				undercuts = append(undercuts, Undercut{
					Record:          rec,
					PriceDifference: refTotal - *rec.TotalPrice,
				})
			}
		}
		if len(undercuts) > 0 {
			analysis.Groups = append(analysis.Groups, InversionGroup{
				ProductID:   res.ProductID,
				ProductName: res.ProductName,
				Reference:   ref,
				Undercuts:   undercuts,
			})
		}
	}
	return analysis
}
