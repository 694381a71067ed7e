// Package report turns a run's results and inversion analysis into a
// spreadsheet-shaped report.
package report

import (
	"fmt"
	"strconv"
	"time"

	"pricescout/internal/analyzer"
	"pricescout/internal/pricing"
)

// Absent values render as a literal so a reviewer scanning the sheet can
// tell "no price found" apart from a zero price.
const notAvailable = "N/A"

// referenceLabel is how the company's own channel appears in report rows.
const referenceLabel = "Own Channel"

// Price sheet column headers, in order.
var priceHeaders = []string{"Seller", "URL", "Product Price", "Shipping Fee", "Shipping Status", "Total Price"}

// Inversion sheet column headers. The extra column quantifies how far the
// competitor undercuts the reference channel.
var inversionHeaders = []string{"Product", "Seller", "URL", "Total Price", "Price Difference"}

// ProductSection is one product's block on the price sheet.
type ProductSection struct {
	Title     string
	Timestamp time.Time
	Rows      [][]string
}

// Summary aggregates run health for the report footer.
type Summary struct {
	Total         int
	WithTaskError int
	AllError      int
}

// SuccessRatio is the share of products that produced at least one usable
// record, in percent. An empty run reports 100.
func (s Summary) SuccessRatio() int {
	if s.Total == 0 {
		return 100
	}
	return (s.Total - s.WithTaskError - s.AllError) * 100 / s.Total
}

// Data is the fully rendered report, ready for a writer.
type Data struct {
	GeneratedAt   time.Time
	Sections      []ProductSection
	InversionRows [][]string
	Summary       Summary
}

// Build renders results and their inversion analysis into report rows.
// Section order follows the result order; within a section the reference
// channel row comes first when present.
func Build(results []pricing.ProductResult, analysis analyzer.Analysis, generatedAt time.Time) Data {
	data := Data{GeneratedAt: generatedAt}

	for _, res := range results {
		section := ProductSection{
			Title:     fmt.Sprintf("%s (%s)", res.ProductName, res.ProductID),
			Timestamp: res.Timestamp,
		}
		for _, rec := range res.Prices {
			section.Rows = append(section.Rows, priceRow(rec))
		}
		data.Sections = append(data.Sections, section)

		data.Summary.Total++
		switch {
		case res.TaskError != "":
			data.Summary.WithTaskError++
		case res.AllFailed():
			data.Summary.AllError++
		}
	}

	data.InversionRows = inversionRows(analysis)
	return data
}

func priceRow(rec pricing.PriceRecord) []string {
	return []string{
		sellerLabel(rec.Seller),
		rec.URL,
		formatPrice(rec.ProductPrice),
		strconv.FormatInt(rec.ShippingFee, 10),
		formatShippingStatus(rec.ShippingStatus),
		formatPrice(rec.TotalPrice),
	}
}

// formatShippingStatus renders the status, or the absent-value literal for
// error records that never determined one.
func formatShippingStatus(s pricing.ShippingStatus) string {
	if s == "" {
		return notAvailable
	}
	return string(s)
}

// inversionRows renders the inversion listing. Each group contributes a
// reference row (difference shown as "-") followed by its undercuts. When no
// inversion was found a single informational row keeps the sheet from
// looking like a rendering failure.
func inversionRows(analysis analyzer.Analysis) [][]string {
	if !analysis.AnyFound() {
		return [][]string{{"No price inversions found", "", "", "", ""}}
	}

	var rows [][]string
	for _, g := range analysis.Groups {
		product := fmt.Sprintf("%s (%s)", g.ProductName, g.ProductID)
		rows = append(rows, []string{
			product,
			sellerLabel(g.Reference.Seller),
			g.Reference.URL,
			formatPrice(g.Reference.TotalPrice),
			"-",
		})
		for _, u := range g.Undercuts {
			rows = append(rows, []string{
				product,
				sellerLabel(u.Record.Seller),
				u.Record.URL,
				formatPrice(u.Record.TotalPrice),
				strconv.FormatInt(u.PriceDifference, 10),
			})
		}
	}
	return rows
}

func sellerLabel(seller string) string {
	if seller == pricing.ReferenceSeller {
		return referenceLabel
	}
	return seller
}

func formatPrice(v *int64) string {
	if v == nil {
		return notAvailable
	}
	return strconv.FormatInt(*v, 10)
}
