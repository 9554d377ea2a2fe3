// Package enrich fills derivable fields on freshly extracted candidate
// records without ever overwriting values a source already provided.
package enrich

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/model"
	"github.com/handwerk-leads/leads-cli/internal/normalize"
)

// DefaultSkipDomains lists directory portals and social platforms whose
// domains must never be turned into contact emails: an info@ address on
// one of these belongs to the platform, not the business.
var DefaultSkipDomains = []string{
	"11880.com",
	"gelbeseiten.de",
	"dasoertliche.de",
	"goyellow.de",
	"facebook.com",
	"instagram.com",
	"google.com",
	"youtube.com",
	"linkedin.com",
	"xing.com",
}

// Enricher converts candidates into leads, synthesizing an info@ email
// from the website domain when no email is known.
type Enricher struct {
	skipDomains []string
	now         func() time.Time
}

// Option configures the Enricher.
type Option func(*Enricher)

// WithSkipDomains replaces the default skip-domain list.
func WithSkipDomains(domains []string) Option {
	return func(e *Enricher) {
		e.skipDomains = domains
	}
}

// WithClock overrides the timestamp source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) {
		e.now = now
	}
}

// New creates an Enricher.
func New(opts ...Option) *Enricher {
	e := &Enricher{
		skipDomains: DefaultSkipDomains,
		now:         time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Enrich builds a Lead from a candidate. Source and ScrapedAt are set
// unconditionally; category falls back to fallbackCategory only when
// the candidate has none; an email is synthesized only when the
// candidate has a website but no email. The candidate is not modified.
// Enrich cannot fail.
func (e *Enricher) Enrich(c model.Candidate, source model.Source, fallbackCategory string) model.Lead {
	lead := model.Lead{
		Name:      c.Name,
		Category:  c.Category,
		Address:   c.Address,
		Phone:     c.Phone,
		Website:   c.Website,
		Email:     c.Email,
		Source:    source,
		ScrapedAt: e.now().UTC(),
	}

	if lead.Category == "" {
		lead.Category = fallbackCategory
	}

	if lead.Email == "" && lead.Website != "" {
		if email := e.emailFromWebsite(lead.Website); email != "" {
			lead.Email = email
			zap.L().Debug("enrich: synthesized email",
				zap.String("name", lead.Name),
				zap.String("email", email),
			)
		}
	}

	return lead
}

// emailFromWebsite derives "info@<domain>" from a website URL. Returns
// "" when the domain cannot be parsed or belongs to the skip-list.
func (e *Enricher) emailFromWebsite(website string) string {
	domain := normalize.Domain(website)
	if domain == "" {
		return ""
	}
	if e.isSkipped(domain) {
		return ""
	}
	return "info@" + domain
}

// isSkipped matches a domain against the skip-list, including
// subdomains ("m.facebook.com" matches "facebook.com").
func (e *Enricher) isSkipped(domain string) bool {
	for _, d := range e.skipDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}
