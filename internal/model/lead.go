package model

import "time"

// Source identifies where a lead was collected from.
type Source string

const (
	SourcePlaces    Source = "places_api"
	SourceDirectory Source = "directory_html"
	SourceOther     Source = "other"
)

// Candidate is a freshly extracted business record before enrichment.
// ID is the external identifier used for resume bookkeeping: a Google
// place ID for API results, a page-scoped key for directory listings.
type Candidate struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Website  string `json:"website,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Lead is one business's contact information after enrichment.
type Lead struct {
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Website   string    `json:"website,omitempty"`
	Email     string    `json:"email,omitempty"`
	Source    Source    `json:"source,omitempty"`
	ScrapedAt time.Time `json:"scraped_at,omitzero"`
}

// HasContact reports whether the lead carries at least one way to reach
// the business beyond its name.
func (l Lead) HasContact() bool {
	return l.Email != "" || l.Phone != "" || l.Website != "" || l.Address != ""
}
