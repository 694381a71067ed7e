package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet names in the generated workbook.
const (
	sheetPrices     = "Prices"
	sheetInversions = "Inversions"
	sheetSummary    = "Summary"
)

const timestampLayout = "2006-01-02 15:04:05"

// WriteExcel writes the report workbook to path.
func WriteExcel(data Data, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetPrices); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetInversions); err != nil {
		return fmt.Errorf("create inversion sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	if err := writePrices(f, data); err != nil {
		return err
	}
	if err := writeInversions(f, data); err != nil {
		return err
	}
	if err := writeSummary(f, data); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report workbook: %w", err)
	}
	return nil
}

func writePrices(f *excelize.File, data Data) error {
	row := 1
	for _, section := range data.Sections {
		if err := setRow(f, sheetPrices, row, []string{section.Title, section.Timestamp.Format(timestampLayout)}); err != nil {
			return err
		}
		row++
		if err := setRow(f, sheetPrices, row, priceHeaders); err != nil {
			return err
		}
		row++
		for _, r := range section.Rows {
			if err := setRow(f, sheetPrices, row, r); err != nil {
				return err
			}
			row++
		}
		// Blank separator between products.
		row++
	}
	return nil
}

func writeInversions(f *excelize.File, data Data) error {
	if err := setRow(f, sheetInversions, 1, inversionHeaders); err != nil {
		return err
	}
	for i, r := range data.InversionRows {
		if err := setRow(f, sheetInversions, i+2, r); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, data Data) error {
	rows := [][]string{
		{"Generated At", data.GeneratedAt.Format(timestampLayout)},
		{"Products", fmt.Sprintf("%d", data.Summary.Total)},
		{"Task Errors", fmt.Sprintf("%d", data.Summary.WithTaskError)},
		{"All Sellers Failed", fmt.Sprintf("%d", data.Summary.AllError)},
		{"Success Ratio", fmt.Sprintf("%d%%", data.Summary.SuccessRatio())},
	}
	for i, r := range rows {
		if err := setRow(f, sheetSummary, i+1, r); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", row, err)
	}
	anyValues := make([]any, len(values))
	for i, v := range values {
		anyValues[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &anyValues); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
