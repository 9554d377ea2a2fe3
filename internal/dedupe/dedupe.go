// Package dedupe removes duplicate leads from a materialized result
// list using a priority-ordered comparison key.
package dedupe

import (
	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/model"
	"github.com/handwerk-leads/leads-cli/internal/normalize"
)

// Key is the derived comparison key for a lead. Field records which
// lead field produced the value, so a phone-keyed record can never
// collide with a name that happens to contain the same characters.
type Key struct {
	Field string
	Value string
}

// KeyFor builds the dedup key for a lead by trying, in priority order,
// the website domain, the normalized phone, then the normalized name.
// The first field with a usable value wins: two records sharing a
// domain are duplicates even when their phone numbers differ. The
// second return is false when no field yields a key.
func KeyFor(lead model.Lead) (Key, bool) {
	if d := normalize.Domain(lead.Website); d != "" {
		return Key{Field: "website", Value: d}, true
	}
	if p := normalize.Phone(lead.Phone); p != "" {
		return Key{Field: "phone", Value: p}, true
	}
	if n := normalize.Name(lead.Name); n != "" {
		return Key{Field: "name", Value: n}, true
	}
	return Key{}, false
}

// Leads returns the input with duplicates removed. Input order is
// preserved for kept records and the first occurrence of a key wins.
// Records yielding no key are kept unconditionally: without a usable
// field duplication cannot be proven, and false negatives are preferred
// over dropped leads.
func Leads(leads []model.Lead) []model.Lead {
	log := zap.L().With(zap.String("component", "dedupe"))

	seen := make(map[Key]struct{}, len(leads))
	unique := make([]model.Lead, 0, len(leads))

	for _, lead := range leads {
		key, ok := KeyFor(lead)
		if !ok {
			unique = append(unique, lead)
			continue
		}

		if _, dup := seen[key]; dup {
			log.Debug("duplicate dropped",
				zap.String("name", lead.Name),
				zap.String("key_field", key.Field),
				zap.String("key_value", key.Value),
			)
			continue
		}

		seen[key] = struct{}{}
		unique = append(unique, lead)
	}

	if removed := len(leads) - len(unique); removed > 0 {
		log.Info("deduplication complete",
			zap.Int("input", len(leads)),
			zap.Int("unique", len(unique)),
			zap.Int("removed", removed),
		)
	}

	return unique
}
