package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ai-job-scraper-go/internal/models"
)

func TestWriteXLSX(t *testing.T) {
	est, usd := 165000.0, 165000.0
	posted := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []models.JobRecord{
		{
			Title:              "ML Engineer",
			Company:            "Acme",
			Location:           "Remote",
			JobURL:             "https://example.com/1",
			SourcePlatform:     models.PlatformAdzuna,
			Region:             models.RegionUS,
			SalaryText:         "$150,000 - $180,000",
			EstimatedAnnual:    &est,
			EstimatedAnnualUSD: &usd,
			PostedDate:         &posted,
		},
		{Title: "Data Scientist", Company: "Beta", SourcePlatform: models.PlatformLinkedIn},
	}

	region, ok := models.LookupRegion(models.RegionUS)
	require.True(t, ok)
	path := filepath.Join(t.TempDir(), "us", FileName(region))
	require.NoError(t, WriteXLSX(path, records))
	assert.Equal(t, "ai_jobs_united_states.xlsx", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Job Title", rows[0][0])
	assert.Equal(t, "Job Link", rows[0][len(models.Columns)-1])
	assert.Len(t, rows[0], len(models.Columns))

	assert.Equal(t, "ML Engineer", rows[1][0])
	assert.Equal(t, "$150,000 - $180,000", rows[1][4])
	assert.Equal(t, "165000", rows[1][5])
	assert.Equal(t, "2024-03-01", rows[1][10])
	assert.Equal(t, "Active", rows[1][11])
	assert.Equal(t, "Adzuna", rows[1][12])

	assert.Equal(t, "Data Scientist", rows[2][0])
	assert.Equal(t, "LinkedIn", rows[2][12])
}

func TestWriteXLSXEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteXLSX(path, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
