package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

func TestKeyForPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		lead      model.Lead
		wantField string
		wantValue string
		wantOK    bool
	}{
		{
			name:      "website wins over phone and name",
			lead:      model.Lead{Name: "Müller", Phone: "030 1234567", Website: "https://www.mueller-dach.de"},
			wantField: "website", wantValue: "mueller-dach.de", wantOK: true,
		},
		{
			name:      "phone when no website",
			lead:      model.Lead{Name: "Müller", Phone: "030 1234567"},
			wantField: "phone", wantValue: "0301234567", wantOK: true,
		},
		{
			name:      "name as last resort",
			lead:      model.Lead{Name: "  Müller Dachdeckerei "},
			wantField: "name", wantValue: "müller dachdeckerei", wantOK: true,
		},
		{
			name:   "no usable field",
			lead:   model.Lead{Category: "Dachdecker"},
			wantOK: false,
		},
		{
			name:      "malformed website falls through to phone",
			lead:      model.Lead{Name: "x", Phone: "089 111", Website: "https://%zz^"},
			wantField: "phone", wantValue: "089111", wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			key, ok := KeyFor(tt.lead)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantField, key.Field)
				assert.Equal(t, tt.wantValue, key.Value)
			}
		})
	}
}

func TestLeadsDropsLaterDuplicates(t *testing.T) {
	t.Parallel()

	leads := []model.Lead{
		{Name: "Müller Dachdeckerei", Website: "https://mueller-dach.de", Phone: "030 111"},
		{Name: "müller dachdeckerei", Website: "https://www.mueller-dach.de", Phone: "030 999"}, // same domain, different phone
		{Name: "Schmidt Elektro", Phone: "030 1234567"},
		{Name: "Schmidt Elektrotechnik", Phone: "0301234567"}, // same phone post-normalization
		{Name: "Weber Sanitär"},
	}

	got := Leads(leads)

	require.Len(t, got, 3)
	assert.Equal(t, "Müller Dachdeckerei", got[0].Name)
	assert.Equal(t, "030 111", got[0].Phone)
	assert.Equal(t, "Schmidt Elektro", got[1].Name)
	assert.Equal(t, "Weber Sanitär", got[2].Name)
}

func TestLeadsKeepsUnkeyableRecords(t *testing.T) {
	t.Parallel()

	leads := []model.Lead{
		{Category: "Dachdecker"},
		{Category: "Zimmerei"},
	}

	got := Leads(leads)
	assert.Len(t, got, 2)
}

func TestLeadsIdempotent(t *testing.T) {
	t.Parallel()

	leads := []model.Lead{
		{Name: "A", Website: "https://a.de"},
		{Name: "B", Website: "https://www.a.de"},
		{Name: "C", Phone: "030 1"},
		{Name: "D"},
	}

	once := Leads(leads)
	twice := Leads(once)
	assert.Equal(t, once, twice)
}

func TestLeadsOutputSubsetOfInput(t *testing.T) {
	t.Parallel()

	leads := []model.Lead{
		{Name: "A", Website: "https://a.de"},
		{Name: "B", Website: "http://a.de"},
		{Name: "C"},
		{Name: "c "},
	}

	got := Leads(leads)
	assert.LessOrEqual(t, len(got), len(leads))
	for _, g := range got {
		assert.Contains(t, leads, g)
	}
}

func TestLeadsEmptyInput(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Leads(nil))
	assert.Empty(t, Leads([]model.Lead{}))
}
