// Package aifilter screens collected leads with a language model,
// dropping listings that are not actual trade businesses (portals,
// marketplaces, job boards that surface in nearby search). Filtering
// is best-effort: any failure keeps the full lead set.
package aifilter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

const systemPrompt = `Du prüfst Firmeneinträge für eine Handwerker-Lead-Liste.
Behalte nur echte Handwerksbetriebe der genannten Kategorie.
Entferne Portale, Verzeichnisse, Vermittlungsplattformen, Jobbörsen und branchenfremde Firmen.
Antworte ausschließlich mit einem JSON-Array der zu behaltenden Indizes, z.B. [0,2,5].`

// completer is the single model call the filter needs.
type completer interface {
	complete(ctx context.Context, system, prompt string) (string, error)
}

// Filter screens lead batches through a model.
type Filter struct {
	llm   completer
	model string
	log   *zap.Logger
}

// New creates a Filter backed by the Anthropic API.
func New(apiKey, model string) *Filter {
	return &Filter{
		llm:   &sdkCompleter{client: sdk.NewClient(option.WithAPIKey(apiKey)), model: model},
		model: model,
		log:   zap.L().With(zap.String("component", "aifilter")),
	}
}

// Leads returns the subset of leads the model considers genuine trade
// businesses. On any model or parse failure the input is returned
// unchanged.
func (f *Filter) Leads(ctx context.Context, category string, leads []model.Lead) []model.Lead {
	if len(leads) == 0 {
		return leads
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Kategorie: %s\n\n", category)
	for i, l := range leads {
		fmt.Fprintf(&b, "%d: %s | %s | %s\n", i, l.Name, l.Website, l.Address)
	}

	raw, err := f.llm.complete(ctx, systemPrompt, b.String())
	if err != nil {
		f.log.Warn("filter call failed, keeping all leads", zap.Error(err))
		return leads
	}

	keep, err := parseIndices(raw, len(leads))
	if err != nil {
		f.log.Warn("filter response unparseable, keeping all leads",
			zap.String("response", raw),
			zap.Error(err),
		)
		return leads
	}

	out := make([]model.Lead, 0, len(keep))
	for _, i := range keep {
		out = append(out, leads[i])
	}
	f.log.Info("leads filtered",
		zap.String("category", category),
		zap.Int("before", len(leads)),
		zap.Int("after", len(out)),
	)
	return out
}

// parseIndices extracts the kept indices from a model response,
// tolerating markdown code fences around the JSON.
func parseIndices(raw string, n int) ([]int, error) {
	var indices []int
	if err := json.Unmarshal([]byte(stripFences(raw)), &indices); err != nil {
		return nil, eris.Wrap(err, "aifilter: parse indices")
	}

	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= n {
			return nil, eris.Errorf("aifilter: index %d out of range", i)
		}
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out, nil
}

// stripFences removes a surrounding markdown code fence, with or
// without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.HasPrefix(s, "[") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

type sdkCompleter struct {
	client sdk.Client
	model  string
}

func (c *sdkCompleter) complete(ctx context.Context, system, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: 1024,
		System: []sdk.TextBlockParam{
			{Text: system},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "aifilter: create message")
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return out.String(), nil
}
