package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 25, cfg.Scrape.Workers)
	assert.Equal(t, 25, cfg.Scrape.CheckpointInterval)
	assert.Equal(t, 5000, cfg.Google.SearchRadius)
	assert.Equal(t, "de", cfg.Google.Language)
	assert.Equal(t, "https://www.11880.com", cfg.Directory.BaseURL)
	assert.InDelta(t, 0.017, cfg.Pricing.PlaceDetails, 1e-9)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LEADS_GOOGLE_KEY", "env-key")
	t.Setenv("LEADS_SCRAPE_WORKERS", "5")
	t.Setenv("LEADS_ANTHROPIC_KEY", "env-anthropic")
	t.Setenv("LEADS_NOTION_TOKEN", "env-token")
	t.Setenv("LEADS_EXPORT_FTP_PASS", "env-pass")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Google.Key)
	assert.Equal(t, 5, cfg.Scrape.Workers)
	assert.Equal(t, "env-anthropic", cfg.Anthropic.Key)
	assert.Equal(t, "env-token", cfg.Notion.Token)
	assert.Equal(t, "env-pass", cfg.Export.FTPPass)
}

func TestLoadCategoriesDefault(t *testing.T) {
	t.Parallel()

	cats, err := LoadCategories("")
	require.NoError(t, err)
	assert.Len(t, cats, 10)
	assert.Equal(t, "dachdecker", cats[0].Slug)
	assert.Contains(t, cats[0].Keywords, "Dachdeckerei")
}

func TestLoadCategoriesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- slug: geruestbau
  name: Gerüstbau
  keywords: [Gerüstbau, Gerüstbauer]
  google_type: general_contractor
`), 0o644))

	cats, err := LoadCategories(path)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Gerüstbau", cats[0].Name)
	assert.Equal(t, []string{"Gerüstbau", "Gerüstbauer"}, cats[0].Keywords)
}

func TestLoadCategoriesInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- name: NoSlug\n"), 0o644))

	_, err := LoadCategories(path)
	assert.Error(t, err)
}

func TestSelectCategories(t *testing.T) {
	t.Parallel()

	got, err := SelectCategories(DefaultCategories, []string{"zimmereien", "dachdecker"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Input order is preserved, not the order of the slugs.
	assert.Equal(t, "dachdecker", got[0].Slug)
	assert.Equal(t, "zimmereien", got[1].Slug)
}

func TestSelectCategoriesUnknown(t *testing.T) {
	t.Parallel()

	_, err := SelectCategories(DefaultCategories, []string{"dachdecker", "florist"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "florist")
}

func TestSelectCategoriesEmptyReturnsAll(t *testing.T) {
	t.Parallel()

	got, err := SelectCategories(DefaultCategories, nil)
	require.NoError(t, err)
	assert.Len(t, got, len(DefaultCategories))
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope"}))
}
