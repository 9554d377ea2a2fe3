package sink

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

// notionAPI is the slice of the Notion client the sink needs.
type notionAPI interface {
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// NotionSink writes leads as pages into a Notion database.
type NotionSink struct {
	api     notionAPI
	dbID    string
	limiter *rate.Limiter
	log     *zap.Logger
}

// NotionOption configures the sink.
type NotionOption func(*NotionSink)

// WithNotionRateLimit overrides the default rate (3 req/s, Notion's
// documented limit).
func WithNotionRateLimit(rps float64) NotionOption {
	return func(s *NotionSink) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			s.limiter = nil
		}
	}
}

// NewNotionSink creates a sink for the given integration token and
// lead database.
func NewNotionSink(token, dbID string, opts ...NotionOption) *NotionSink {
	s := &NotionSink{
		api:     notionapi.NewClient(notionapi.Token(token)).Page,
		dbID:    dbID,
		limiter: rate.NewLimiter(3, 1),
		log:     zap.L().With(zap.String("component", "notion_sink")),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *NotionSink) Name() string { return "notion" }

// Push creates one page per lead. Individual failures are logged and
// skipped; the count of created pages is returned.
func (s *NotionSink) Push(ctx context.Context, leads []model.Lead) (int, error) {
	pushed := 0
	for _, l := range leads {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return pushed, eris.Wrap(err, "sink: notion rate limit")
			}
		}

		if _, err := s.api.Create(ctx, s.pageRequest(l)); err != nil {
			s.log.Warn("page create failed",
				zap.String("lead", l.Name),
				zap.Error(err),
			)
			continue
		}
		pushed++
	}

	s.log.Info("leads pushed to notion",
		zap.Int("pushed", pushed),
		zap.Int("total", len(leads)),
	)
	return pushed, nil
}

// pageRequest maps a lead onto the Notion database schema.
func (s *NotionSink) pageRequest(l model.Lead) *notionapi.PageCreateRequest {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{{Text: &notionapi.Text{Content: l.Name}}},
		},
	}
	if l.Category != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: l.Category},
		}
	}
	if l.Email != "" {
		props["Email"] = notionapi.EmailProperty{Email: l.Email}
	}
	if l.Phone != "" {
		props["Phone"] = notionapi.PhoneNumberProperty{PhoneNumber: l.Phone}
	}
	if l.Website != "" {
		props["Website"] = notionapi.URLProperty{URL: l.Website}
	}
	if l.Address != "" {
		props["Address"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: l.Address}}},
		}
	}
	if l.Source != "" {
		props["Source"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(l.Source)},
		}
	}
	if !l.ScrapedAt.IsZero() {
		date := notionapi.Date(l.ScrapedAt.UTC().Truncate(time.Second))
		props["Scraped At"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		}
	}

	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(s.dbID),
		},
		Properties: props,
	}
}
