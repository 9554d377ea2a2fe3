package sink

import (
	"context"
	"os"
	"strings"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/handwerk-leads/leads-cli/internal/config"
	"github.com/handwerk-leads/leads-cli/internal/model"
)

// sfBatchSize is the Salesforce collection API maximum.
const sfBatchSize = 200

// sfAPI is the slice of the go-salesforce client the sink needs.
type sfAPI interface {
	InsertCollection(sObjectName string, records any, batchSize int) (salesforce.SalesforceResults, error)
}

// SalesforceSink inserts leads as Salesforce Lead records.
type SalesforceSink struct {
	api     sfAPI
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewSalesforceSink authenticates with JWT and returns a sink.
func NewSalesforceSink(cfg config.SalesforceConfig) (*SalesforceSink, error) {
	if cfg.ClientID == "" {
		return nil, eris.New("sink: salesforce client ID is required")
	}

	pemData, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "sink: read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.LoginURL,
		Username:       cfg.Username,
		ConsumerKey:    cfg.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "sink: init salesforce")
	}

	return &SalesforceSink{
		api:     sf,
		limiter: rate.NewLimiter(5, 1),
		log:     zap.L().With(zap.String("component", "salesforce_sink")),
	}, nil
}

func (s *SalesforceSink) Name() string { return "salesforce" }

// Push inserts leads in collection batches. Per-record rejections are
// logged and skipped; the accepted count is returned.
func (s *SalesforceSink) Push(ctx context.Context, leads []model.Lead) (int, error) {
	pushed := 0
	for start := 0; start < len(leads); start += sfBatchSize {
		end := min(start+sfBatchSize, len(leads))
		batch := leads[start:end]

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return pushed, eris.Wrap(err, "sink: salesforce rate limit")
			}
		}

		records := make([]map[string]any, len(batch))
		for i, l := range batch {
			records[i] = leadRecord(l)
		}

		results, err := s.api.InsertCollection("Lead", records, sfBatchSize)
		if err != nil {
			return pushed, eris.Wrap(err, "sink: insert lead collection")
		}
		for i, r := range results.Results {
			if !r.Success {
				s.log.Warn("lead rejected",
					zap.String("lead", batch[i].Name),
					zap.Any("errors", r.Errors),
				)
				continue
			}
			pushed++
		}
	}

	s.log.Info("leads pushed to salesforce",
		zap.Int("pushed", pushed),
		zap.Int("total", len(leads)),
	)
	return pushed, nil
}

// leadRecord maps a lead onto the standard Lead sobject. Salesforce
// requires LastName and Company; the business name serves as both.
func leadRecord(l model.Lead) map[string]any {
	record := map[string]any{
		"LastName":   l.Name,
		"Company":    l.Name,
		"LeadSource": string(l.Source),
	}
	if l.Email != "" {
		record["Email"] = l.Email
	}
	if l.Phone != "" {
		record["Phone"] = l.Phone
	}
	if l.Website != "" {
		record["Website"] = l.Website
	}
	if l.Category != "" {
		record["Industry"] = l.Category
	}
	if l.Address != "" {
		record["Street"] = l.Address
	}
	if desc := leadDescription(l); desc != "" {
		record["Description"] = desc
	}
	return record
}

func leadDescription(l model.Lead) string {
	var parts []string
	if !l.ScrapedAt.IsZero() {
		parts = append(parts, "Scraped at "+l.ScrapedAt.UTC().Format("2006-01-02 15:04"))
	}
	return strings.Join(parts, "; ")
}
