package aifilter

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

type fakeCompleter struct {
	response string
	err      error
	prompt   string
}

func (f *fakeCompleter) complete(_ context.Context, _, prompt string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func testLeads() []model.Lead {
	return []model.Lead{
		{Name: "Müller Dachdeckerei", Website: "https://mueller-dach.de"},
		{Name: "Handwerker-Portal24", Website: "https://portal24.de"},
		{Name: "Zimmerei Nord", Website: "https://zimmerei-nord.de"},
	}
}

func newTestFilter(c completer) *Filter {
	return &Filter{llm: c, model: "test", log: zap.NewNop()}
}

func TestLeadsKeepsSelected(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{response: "[0, 2]"}
	got := newTestFilter(c).Leads(context.Background(), "Dachdecker", testLeads())

	require.Len(t, got, 2)
	assert.Equal(t, "Müller Dachdeckerei", got[0].Name)
	assert.Equal(t, "Zimmerei Nord", got[1].Name)
	assert.Contains(t, c.prompt, "Kategorie: Dachdecker")
	assert.Contains(t, c.prompt, "1: Handwerker-Portal24")
}

func TestLeadsFencedResponse(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{response: "```json\n[1]\n```"}
	got := newTestFilter(c).Leads(context.Background(), "Dachdecker", testLeads())

	require.Len(t, got, 1)
	assert.Equal(t, "Handwerker-Portal24", got[0].Name)
}

func TestLeadsPassThroughOnError(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{err: eris.New("api down")}
	got := newTestFilter(c).Leads(context.Background(), "Dachdecker", testLeads())
	assert.Len(t, got, 3)
}

func TestLeadsPassThroughOnGarbage(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{response: "I think all of them look fine!"}
	got := newTestFilter(c).Leads(context.Background(), "Dachdecker", testLeads())
	assert.Len(t, got, 3)
}

func TestLeadsPassThroughOnOutOfRangeIndex(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{response: "[0, 7]"}
	got := newTestFilter(c).Leads(context.Background(), "Dachdecker", testLeads())
	assert.Len(t, got, 3)
}

func TestLeadsEmptyInput(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{response: "[]"}
	got := newTestFilter(c).Leads(context.Background(), "Dachdecker", nil)
	assert.Empty(t, got)
	assert.Empty(t, c.prompt)
}

func TestParseIndicesDedupes(t *testing.T) {
	t.Parallel()

	got, err := parseIndices("[2, 0, 2]", 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, got)
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", "[0,1]", "[0,1]"},
		{"fence", "```\n[0,1]\n```", "[0,1]"},
		{"fence with lang", "```json\n[0,1]\n```", "[0,1]"},
		{"inline fence", "```[0,1]```", "[0,1]"},
		{"surrounding space", "  [0,1]\n", "[0,1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}
