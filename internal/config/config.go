package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/handwerk-leads/leads-cli/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Directory  DirectoryConfig  `yaml:"directory" mapstructure:"directory"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GoogleConfig holds Maps Platform settings. Key is required for
// Places runs and checked at startup: a run without it would silently
// collect nothing.
type GoogleConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	SearchRadius int     `yaml:"search_radius" mapstructure:"search_radius"` // meters
	Language     string  `yaml:"language" mapstructure:"language"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // req/s
}

// DirectoryConfig configures the 11880.com directory source.
type DirectoryConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	MaxPages     int     `yaml:"max_pages" mapstructure:"max_pages"`
	PageDelayMin float64 `yaml:"page_delay_min" mapstructure:"page_delay_min"` // seconds
	PageDelayMax float64 `yaml:"page_delay_max" mapstructure:"page_delay_max"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// AnthropicConfig holds settings for the optional AI lead filter.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// NotionConfig holds the Notion integration token and lead database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// ScrapeConfig configures the collection workflow.
type ScrapeConfig struct {
	Workers            int     `yaml:"workers" mapstructure:"workers"`
	CheckpointFile     string  `yaml:"checkpoint_file" mapstructure:"checkpoint_file"`
	CheckpointInterval int     `yaml:"checkpoint_interval" mapstructure:"checkpoint_interval"`
	RequestDelay       float64 `yaml:"request_delay" mapstructure:"request_delay"` // seconds between city searches
	MicroTestMaxLeads  int     `yaml:"micro_test_max_leads" mapstructure:"micro_test_max_leads"`
	SkipDomains        []string `yaml:"skip_domains" mapstructure:"skip_domains"`
	CategoriesFile     string  `yaml:"categories_file" mapstructure:"categories_file"`
}

// ExportConfig configures the export step.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	Format    string `yaml:"format" mapstructure:"format"` // "csv" or "xlsx"
	FTPURL    string `yaml:"ftp_url" mapstructure:"ftp_url"`
	FTPUser   string `yaml:"ftp_user" mapstructure:"ftp_user"`
	FTPPass   string `yaml:"ftp_pass" mapstructure:"ftp_pass"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credential keys get an explicit empty default: viper's
	// AutomaticEnv only surfaces a key through Unmarshal when viper
	// already knows it, so env-only values would otherwise be dropped.
	v.SetDefault("google.key", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.lead_db", "")
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("export.ftp_url", "")
	v.SetDefault("export.ftp_user", "")
	v.SetDefault("export.ftp_pass", "")
	v.SetDefault("scrape.categories_file", "")
	v.SetDefault("scrape.skip_domains", []string(nil))
	v.SetDefault("directory.user_agent", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("google.search_radius", 5000)
	v.SetDefault("google.language", "de")
	v.SetDefault("google.rate_limit", 10.0)
	v.SetDefault("directory.base_url", "https://www.11880.com")
	v.SetDefault("directory.max_pages", 50)
	v.SetDefault("directory.page_delay_min", 2.0)
	v.SetDefault("directory.page_delay_max", 5.0)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("scrape.workers", 25)
	v.SetDefault("scrape.checkpoint_file", "progress.json")
	v.SetDefault("scrape.checkpoint_interval", 25)
	v.SetDefault("scrape.request_delay", 2.0)
	v.SetDefault("scrape.micro_test_max_leads", 20)
	v.SetDefault("export.output_dir", "output")
	v.SetDefault("export.format", "csv")
	v.SetDefault("pricing.geocoding", 0.005)
	v.SetDefault("pricing.nearby_search", 0.032)
	v.SetDefault("pricing.place_details", 0.017)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
