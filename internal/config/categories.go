package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Category describes one trade to collect. Keywords are the German
// search terms used against both sources; GoogleType is the Places API
// place type used for nearby searches.
type Category struct {
	Slug       string   `yaml:"slug"`
	Name       string   `yaml:"name"`
	Keywords   []string `yaml:"keywords"`
	GoogleType string   `yaml:"google_type"`
}

// DefaultCategories are the trades the collector was built for. A
// custom set can be loaded from YAML with LoadCategories.
var DefaultCategories = []Category{
	{Slug: "dachdecker", Name: "Dachdecker", Keywords: []string{"Dachdecker", "Dachdeckerei", "Dachsanierung", "Dachbau"}, GoogleType: "roofing_contractor"},
	{Slug: "heizungsbauer", Name: "Heizungsbauer", Keywords: []string{"Heizungsbauer", "Heizungsbau", "Heizungstechnik"}, GoogleType: "plumber"},
	{Slug: "sanitärinstallateure", Name: "Sanitärinstallateure", Keywords: []string{"Sanitärinstallateur", "Sanitärtechnik", "Badezimmerbau"}, GoogleType: "plumber"},
	{Slug: "elektrotechnik", Name: "Elektrotechnik", Keywords: []string{"Elektrotechnik", "Elektroinstallation", "Elektriker"}, GoogleType: "electrician"},
	{Slug: "malerbetriebe", Name: "Malerbetriebe", Keywords: []string{"Malerbetrieb", "Malerarbeiten", "Fassadenanstrich"}, GoogleType: "painter"},
	{Slug: "fliesenleger", Name: "Fliesenleger", Keywords: []string{"Fliesenleger", "Fliesenverlegung", "Badfliesen"}, GoogleType: "general_contractor"},
	{Slug: "bauunternehmen", Name: "Bauunternehmen", Keywords: []string{"Bauunternehmen", "Baufirma", "Hochbauunternehmen"}, GoogleType: "general_contractor"},
	{Slug: "trockenbaufirmen", Name: "Trockenbaufirmen", Keywords: []string{"Trockenbau", "Gipskartonbau", "Innenausbau"}, GoogleType: "general_contractor"},
	{Slug: "zimmereien", Name: "Zimmereien", Keywords: []string{"Zimmerei", "Holzbau", "Dachstuhlbau"}, GoogleType: "carpenter"},
	{Slug: "abrissunternehmen", Name: "Abrissunternehmen", Keywords: []string{"Abrissunternehmen", "Abbruchfirma", "Abbrucharbeiten"}, GoogleType: "general_contractor"},
}

// DefaultCities are the major German cities covered when no explicit
// city list is given.
var DefaultCities = []string{
	"Berlin", "Hamburg", "München", "Köln", "Frankfurt",
	"Stuttgart", "Düsseldorf", "Dortmund", "Essen", "Leipzig",
	"Dresden", "Hannover", "Nürnberg", "Bochum", "Augsburg",
	"Bonn", "Wiesbaden", "Darmstadt", "Heilbronn", "Hildesheim",
	"Chemnitz", "Fürth", "Erlangen",
}

// LoadCategories reads a category list from a YAML file. An empty path
// returns the built-in defaults.
func LoadCategories(path string) ([]Category, error) {
	if path == "" {
		return DefaultCategories, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "config: read categories file")
	}

	var cats []Category
	if err := yaml.Unmarshal(data, &cats); err != nil {
		return nil, eris.Wrap(err, "config: parse categories file")
	}
	if len(cats) == 0 {
		return nil, eris.New("config: categories file is empty")
	}
	for i, c := range cats {
		if c.Slug == "" || c.Name == "" {
			return nil, eris.Errorf("config: category %d missing slug or name", i)
		}
	}
	return cats, nil
}

// SelectCategories filters cats down to the named slugs, preserving the
// order of cats. Unknown slugs are an error so a typo never silently
// shrinks a run.
func SelectCategories(cats []Category, slugs []string) ([]Category, error) {
	if len(slugs) == 0 {
		return cats, nil
	}

	want := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		want[strings.ToLower(strings.TrimSpace(s))] = true
	}

	var out []Category
	for _, c := range cats {
		if want[c.Slug] {
			out = append(out, c)
			delete(want, c.Slug)
		}
	}
	if len(want) > 0 {
		unknown := make([]string, 0, len(want))
		for s := range want {
			unknown = append(unknown, s)
		}
		return nil, eris.Errorf("config: unknown categories: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}
