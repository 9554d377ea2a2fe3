// Package export writes collected leads to CSV and XLSX files and
// produces the end-of-run summary.
package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

// Columns is the fixed output column order, shared by both formats.
var Columns = []string{
	"name", "category", "email", "website", "phone", "address", "source", "scraped_at",
}

// leadRow flattens a lead into the Columns order.
func leadRow(l model.Lead) []string {
	scrapedAt := ""
	if !l.ScrapedAt.IsZero() {
		scrapedAt = l.ScrapedAt.Format(time.RFC3339)
	}
	return []string{
		l.Name, l.Category, l.Email, l.Website, l.Phone, l.Address, string(l.Source), scrapedAt,
	}
}

// Filename builds a timestamped output path inside dir.
func Filename(dir, format string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("handwerk_leads_%s.%s", now.Format("20060102_150405"), format))
}
