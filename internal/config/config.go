// Package config loads application configuration from config.yaml and
// CODEX_-prefixed environment variables, and installs the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Wiki      WikiConfig      `yaml:"wiki" mapstructure:"wiki"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Seeds     SeedsConfig     `yaml:"seeds" mapstructure:"seeds"`
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Merge     MergeConfig     `yaml:"merge" mapstructure:"merge"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// WikiConfig configures the MediaWiki API client.
type WikiConfig struct {
	APIURL            string  `yaml:"api_url" mapstructure:"api_url"`
	Host              string  `yaml:"host" mapstructure:"host"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// CrawlConfig bounds the link-graph walk.
type CrawlConfig struct {
	MaxDepth      int    `yaml:"max_depth" mapstructure:"max_depth"`
	MaxPages      int    `yaml:"max_pages" mapstructure:"max_pages"`
	SleepMS       int    `yaml:"sleep_ms" mapstructure:"sleep_ms"`
	CachePath     string `yaml:"cache_path" mapstructure:"cache_path"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// SeedsConfig configures seed catalog expansion.
type SeedsConfig struct {
	MembersPerCategory int `yaml:"members_per_category" mapstructure:"members_per_category"`
	Concurrency        int `yaml:"concurrency" mapstructure:"concurrency"`
}

// NormalizeConfig configures candidate extraction.
type NormalizeConfig struct {
	SourceAttribution string `yaml:"source_attribution" mapstructure:"source_attribution"`
}

// MergeConfig holds merge run defaults, overridable per run by flags.
type MergeConfig struct {
	Conflict            string  `yaml:"conflict" mapstructure:"conflict"`
	Canon               string  `yaml:"canon" mapstructure:"canon"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
}

// LogConfig configures the global zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads config.yaml from the working directory (optional) and applies
// CODEX_* environment overrides.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CODEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("wiki.api_url", "https://fallout.fandom.com/api.php")
	v.SetDefault("wiki.host", "fallout.fandom.com")
	v.SetDefault("wiki.user_agent", "omnidatabase-codex/1.0 (data-pipeline)")
	v.SetDefault("wiki.timeout_secs", 20)
	v.SetDefault("wiki.requests_per_second", 4.0)
	v.SetDefault("wiki.max_retries", 3)
	v.SetDefault("crawl.max_depth", 2)
	v.SetDefault("crawl.max_pages", 500)
	v.SetDefault("crawl.sleep_ms", 75)
	v.SetDefault("crawl.cache_ttl_hours", 24)
	v.SetDefault("seeds.members_per_category", 200)
	v.SetDefault("seeds.concurrency", 4)
	v.SetDefault("normalize.source_attribution", "Fallout Wiki")
	v.SetDefault("merge.conflict", "prefer_newer")
	v.SetDefault("merge.canon", "mainline,tv")
	v.SetDefault("merge.similarity_threshold", 0.92)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// InitLogger builds the global zap logger. Output goes to stderr so stdout
// stays reserved for run summaries.
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
