package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

func sampleLeads() []model.Lead {
	return []model.Lead{
		{
			Name:      "Müller Dachdeckerei",
			Category:  "Dachdecker",
			Email:     "info@mueller-dach.de",
			Website:   "https://www.mueller-dach.de",
			Phone:     "089 123456",
			Address:   "Musterstraße 1, 80331 München",
			Source:    model.SourcePlaces,
			ScrapedAt: time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC),
		},
		{
			Name:     "Zimmerei Nord",
			Category: "Zimmereien",
			Source:   model.SourceDirectory,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, WriteCSV(path, sampleLeads()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "\xef\xbb\xbf"), "missing UTF-8 BOM")

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(raw), "\xef\xbb\xbf"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{
		"Müller Dachdeckerei", "Dachdecker", "info@mueller-dach.de",
		"https://www.mueller-dach.de", "089 123456", "Musterstraße 1, 80331 München",
		"places_api", "2026-08-28T10:30:00Z",
	}, records[1])
	// Missing fields stay empty, including the timestamp.
	assert.Equal(t, "", records[2][7])
}

func TestWriteCSVEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, WriteCSV(path, nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "name,category,email")
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, WriteXLSX(path, sampleLeads()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Leads", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "name", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "Müller Dachdeckerei", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "directory_html", sheet.Rows[2].Cells[6].String())
}

func TestFilename(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 10, 30, 5, 0, time.UTC)
	assert.Equal(t,
		filepath.Join("output", "handwerk_leads_20260828_103005.csv"),
		Filename("output", "csv", now),
	)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	leads := []model.Lead{
		{Name: "A", Category: "Zimmereien", Source: model.SourcePlaces, Phone: "1"},
		{Name: "B", Category: "Ästhetikbau", Source: model.SourcePlaces},
		{Name: "C", Category: "Dachdecker", Source: model.SourceDirectory, Email: "x@y.de"},
		{Name: "D", Category: "Dachdecker", Source: model.SourcePlaces, Phone: "2", Website: "https://d.de"},
	}

	s := Summarize(leads)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.WithContact)
	assert.Equal(t, 1, s.WithWebsite)
	assert.Equal(t, 1, s.WithEmail)
	assert.Equal(t, map[string]int{"places_api": 3, "directory_html": 1}, s.BySource)

	// German collation: Ä sorts with A, ahead of D and Z.
	require.Len(t, s.ByCategory, 3)
	assert.Equal(t, "Ästhetikbau", s.ByCategory[0].Category)
	assert.Equal(t, "Dachdecker", s.ByCategory[1].Category)
	assert.Equal(t, "Zimmereien", s.ByCategory[2].Category)
	assert.Equal(t, 2, s.ByCategory[1].Count)
}
