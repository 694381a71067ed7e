package report

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pricescout/internal/analyzer"
	"pricescout/internal/pricing"
)

func priced(seller string, total int64) pricing.PriceRecord {
	product := total - 2500
	return pricing.PriceRecord{
		Seller:         seller,
		URL:            "https://" + seller + ".example/item",
		ProductPrice:   &product,
		ShippingFee:    2500,
		ShippingStatus: pricing.ShippingPaid,
		TotalPrice:     &total,
	}
}

func failed(seller string) pricing.PriceRecord {
	rec := pricing.ErrorRecord("https://"+seller+".example/item", errors.New("timeout"), time.Time{})
	rec.Seller = seller
	return rec
}

func testResults() []pricing.ProductResult {
	return []pricing.ProductResult{
		{
			ProductID:   "P-001",
			ProductName: "coffee grinder",
			Timestamp:   time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
			Prices: []pricing.PriceRecord{
				priced(pricing.ReferenceSeller, 10000),
				priced("storeA", 9500),
				failed("storeB"),
			},
		},
		{
			ProductID:   "P-002",
			ProductName: "kettle",
			Timestamp:   time.Date(2026, 8, 30, 9, 5, 0, 0, time.UTC),
			Prices: []pricing.PriceRecord{
				failed(pricing.ReferenceSeller),
				failed("storeA"),
			},
		},
	}
}

func TestBuild_Sections(t *testing.T) {
	results := testResults()
	data := Build(results, analyzer.Analyze(results), time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))

	require.Len(t, data.Sections, 2)
	first := data.Sections[0]
	assert.Equal(t, "coffee grinder (P-001)", first.Title)
	require.Len(t, first.Rows, 3)

	// The reference channel renders with its display label.
	assert.Equal(t, "Own Channel", first.Rows[0][0])
	assert.Equal(t, "10000", first.Rows[0][5])

	// A failed record renders every absent column as N/A, shipping status
	// included.
	assert.Equal(t, "N/A", first.Rows[2][2])
	assert.Equal(t, "N/A", first.Rows[2][4])
	assert.Equal(t, "N/A", first.Rows[2][5])
}

func TestBuild_InversionRows(t *testing.T) {
	results := testResults()
	data := Build(results, analyzer.Analyze(results), time.Now())

	require.Len(t, data.InversionRows, 2)
	ref, under := data.InversionRows[0], data.InversionRows[1]
	assert.Equal(t, "Own Channel", ref[1])
	assert.Equal(t, "-", ref[4])
	assert.Equal(t, "storeA", under[1])
	assert.Equal(t, "500", under[4])
}

func TestBuild_NoInversionsInfoRow(t *testing.T) {
	results := []pricing.ProductResult{{
		ProductID:   "P-001",
		ProductName: "kettle",
		Prices: []pricing.PriceRecord{
			priced(pricing.ReferenceSeller, 9000),
			priced("storeA", 9500),
		},
	}}
	data := Build(results, analyzer.Analyze(results), time.Now())

	require.Len(t, data.InversionRows, 1)
	assert.Equal(t, "No price inversions found", data.InversionRows[0][0])
}

func TestBuild_Summary(t *testing.T) {
	results := testResults()
	results = append(results, pricing.ProductResult{
		ProductID: "P-003", ProductName: "toaster", TaskError: "task panic: boom",
	})
	data := Build(results, analyzer.Analyze(results), time.Now())

	assert.Equal(t, 3, data.Summary.Total)
	assert.Equal(t, 1, data.Summary.WithTaskError)
	assert.Equal(t, 1, data.Summary.AllError)
	assert.Equal(t, 33, data.Summary.SuccessRatio())
}

func TestSummary_SuccessRatioEmptyRun(t *testing.T) {
	assert.Equal(t, 100, Summary{}.SuccessRatio())
}

func TestWriteExcel(t *testing.T) {
	results := testResults()
	data := Build(results, analyzer.Analyze(results), time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteExcel(data, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{sheetPrices, sheetInversions, sheetSummary}, f.GetSheetList())

	title, err := f.GetCellValue(sheetPrices, "A1")
	require.NoError(t, err)
	assert.Equal(t, "coffee grinder (P-001)", title)

	header, err := f.GetCellValue(sheetInversions, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Product", header)

	under, err := f.GetCellValue(sheetInversions, "E3")
	require.NoError(t, err)
	assert.Equal(t, "500", under)

	ratio, err := f.GetCellValue(sheetSummary, "B5")
	require.NoError(t, err)
	assert.Equal(t, "50%", ratio)
}
