package export

import (
	"sort"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

// CategoryCount is one line of the per-category breakdown.
type CategoryCount struct {
	Category string
	Count    int
}

// Summary is the end-of-run breakdown of collected leads.
type Summary struct {
	Total       int
	WithContact int
	WithWebsite int
	WithEmail   int
	ByCategory  []CategoryCount
	BySource    map[string]int
}

// Summarize tallies leads per category and source. Categories are
// ordered with German collation so umlauts sort where a German reader
// expects them.
func Summarize(leads []model.Lead) Summary {
	s := Summary{
		Total:    len(leads),
		BySource: make(map[string]int),
	}

	byCategory := make(map[string]int)
	for _, l := range leads {
		byCategory[l.Category]++
		s.BySource[string(l.Source)]++
		if l.HasContact() {
			s.WithContact++
		}
		if l.Website != "" {
			s.WithWebsite++
		}
		if l.Email != "" {
			s.WithEmail++
		}
	}

	for cat, n := range byCategory {
		s.ByCategory = append(s.ByCategory, CategoryCount{Category: cat, Count: n})
	}
	c := collate.New(language.German)
	sort.Slice(s.ByCategory, func(i, j int) bool {
		return c.CompareString(s.ByCategory[i].Category, s.ByCategory[j].Category) < 0
	})

	return s
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}

// Log writes the summary through the global logger.
func (s Summary) Log() {
	log := zap.L().With(zap.String("component", "export"))
	log.Info("run summary",
		zap.Int("total_leads", s.Total),
		zap.Int("with_contact", s.WithContact),
		zap.Float64("with_website_pct", pct(s.WithWebsite, s.Total)),
		zap.Float64("with_email_pct", pct(s.WithEmail, s.Total)),
	)
	for _, cc := range s.ByCategory {
		log.Info("category summary",
			zap.String("category", cc.Category),
			zap.Int("leads", cc.Count),
		)
	}
	for src, n := range s.BySource {
		log.Info("source summary",
			zap.String("source", src),
			zap.Int("leads", n),
		)
	}
}
