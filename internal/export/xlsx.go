package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"ai-job-scraper-go/internal/models"
)

const SheetName = "Jobs"

// FileName is the spreadsheet name for a region, e.g. ai_jobs_united_states.xlsx.
func FileName(region models.RegionInfo) string {
	return "ai_jobs_" + region.Slug + ".xlsx"
}

// WriteXLSX writes records to path with one header row in models.Columns
// order. Salary amounts are written as plain numbers.
func WriteXLSX(path string, records []models.JobRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	if err := sw.SetColWidth(1, 2, 30); err != nil {
		return err
	}
	if err := sw.SetColWidth(3, len(models.Columns), 20); err != nil {
		return err
	}

	header := make([]any, len(models.Columns))
	for i, col := range models.Columns {
		header[i] = col.Header
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, rowValues(rec)); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func rowValues(rec models.JobRecord) []any {
	values := rec.Row().Values()
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	// numeric cells so the sheet can sort and sum them
	if rec.EstimatedAnnual != nil {
		out[5] = *rec.EstimatedAnnual
	}
	if rec.EstimatedAnnualUSD != nil {
		out[6] = *rec.EstimatedAnnualUSD
	}
	return out
}
