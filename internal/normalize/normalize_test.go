package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"https with www", "https://www.beispiel.de", "beispiel.de"},
		{"http without www", "http://beispiel.de", "beispiel.de"},
		{"no scheme", "beispiel.de", "beispiel.de"},
		{"no scheme with www", "www.beispiel.de", "beispiel.de"},
		{"with path", "https://www.beispiel.de/kontakt", "beispiel.de"},
		{"uppercase host", "https://WWW.Beispiel.DE", "beispiel.de"},
		{"subdomain kept", "https://shop.beispiel.de", "shop.beispiel.de"},
		{"port kept", "https://beispiel.de:8080", "beispiel.de:8080"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"malformed", "https://%zz^", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Domain(tt.url))
		})
	}
}

func TestDomainSchemeVariantsCollide(t *testing.T) {
	t.Parallel()

	variants := []string{
		"http://mueller-dach.de",
		"https://mueller-dach.de",
		"https://www.mueller-dach.de",
		"mueller-dach.de",
	}
	for _, v := range variants {
		assert.Equal(t, "mueller-dach.de", Domain(v), v)
	}
}

func TestPhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{"spaces", "030 1234567", "0301234567"},
		{"hyphens", "030-123-4567", "0301234567"},
		{"parens", "(030) 1234567", "0301234567"},
		{"plus kept", "+49 30 1234567", "+49301234567"},
		{"mixed", " +49 (0)30-12 34 567 ", "+490301234567"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Phone(tt.phone))
		})
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "müller dachdeckerei", Name("  Müller Dachdeckerei "))
	assert.Equal(t, "müller dachdeckerei", Name("MÜLLER DACHDECKEREI"))
	// No transliteration: umlaut and digraph spellings stay distinct.
	assert.NotEqual(t, Name("Müller"), Name("Mueller"))
	assert.Equal(t, "", Name("   "))
}
