// Package config loads runtime configuration from an optional YAML
// file plus environment variables, with env taking precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProviderConfig is one configured LLM backend.
type ProviderConfig struct {
	Name    string `mapstructure:"name"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// Config is the full runtime configuration.
type Config struct {
	// Providers in declaration order; Preferred is moved to the front
	// by ProviderOrder.
	Providers []ProviderConfig `mapstructure:"providers"`
	Preferred string           `mapstructure:"preferred_provider"`

	CustomDir string `mapstructure:"custom_dir"`
	BackupDir string `mapstructure:"backup_dir"`
	OutputDir string `mapstructure:"output_dir"`
	CacheDir  string `mapstructure:"cache_dir"`

	PersonalizationFile string `mapstructure:"personalization_file"`

	EntriesPerCategory    int `mapstructure:"entries_per_category"`
	PersonalizationChance int `mapstructure:"personalization_chance"`
	RSSChance             int `mapstructure:"rss_chance"`
	ConditionalsChance    int `mapstructure:"conditionals_chance"`

	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	RSSCacheTTL time.Duration `mapstructure:"rss_cache_ttl"`

	Concurrency int    `mapstructure:"concurrency"`
	LogLevel    string `mapstructure:"log_level"`
	ServerAddr  string `mapstructure:"server_addr"`
}

// envBindings maps the environment variable names users already have
// exported to viper keys.
var envBindings = map[string]string{
	"custom_dir":             "DIR_CUSTOM",
	"preferred_provider":     "PROVIDER_PREFERRED",
	"max_retries":            "MAX_RETRIES",
	"entries_per_category":   "CONVERSATIONS_COUNT",
	"personalization_chance": "CONVERSATIONS_CHANCE_PERSONALIZATION",
	"rss_chance":             "CONVERSATIONS_CHANCE_RSS",
	"conditionals_chance":    "CONVERSATIONS_CHANCE_CONDITIONALS",
	"log_level":              "LOG_LEVEL",
	"server_addr":            "SERVER_ADDR",
}

// providerEnv maps provider names to their key/model env variables.
var providerEnv = map[string][2]string{
	"openai":    {"KEY_OPENAI", "MODEL_OPENAI"},
	"anthropic": {"KEY_ANTHROPIC", "MODEL_ANTHROPIC"},
	"deepseek":  {"KEY_DEEPSEEK", "MODEL_DEEPSEEK"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backup_dir", "backups")
	v.SetDefault("output_dir", "output")
	v.SetDefault("cache_dir", "cache")
	v.SetDefault("personalization_file", "personalization.md")
	v.SetDefault("entries_per_category", 25)
	v.SetDefault("personalization_chance", 30)
	v.SetDefault("rss_chance", 30)
	v.SetDefault("conditionals_chance", 25)
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_base_delay", time.Second)
	v.SetDefault("retry_max_delay", 30*time.Second)
	v.SetDefault("request_timeout", 2*time.Minute)
	v.SetDefault("rss_cache_ttl", 8*time.Hour)
	v.SetDefault("concurrency", 2)
	v.SetDefault("log_level", "info")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("preferred_provider", "openai")
}

// DefaultPath is where Load looks when no config flag is given.
const DefaultPath = "config.yaml"

// Load reads the config file at path, overlays environment variables,
// and validates the result. Only the default path may be absent; an
// explicitly given path that does not exist is an error, so a typoed
// --config is caught instead of silently running on env and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if path != DefaultPath {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyProviderEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyProviderEnv fills credentials for file-declared providers from
// the environment and appends providers declared by env alone.
func (c *Config) applyProviderEnv(getenv func(string) string) {
	declared := map[string]bool{}
	for i := range c.Providers {
		name := strings.ToLower(c.Providers[i].Name)
		c.Providers[i].Name = name
		declared[name] = true
		env, ok := providerEnv[name]
		if !ok {
			continue
		}
		if c.Providers[i].APIKey == "" {
			c.Providers[i].APIKey = getenv(env[0])
		}
		if m := getenv(env[1]); m != "" && c.Providers[i].Model == "" {
			c.Providers[i].Model = m
		}
	}
	for _, name := range []string{"openai", "anthropic", "deepseek"} {
		if declared[name] {
			continue
		}
		env := providerEnv[name]
		key := getenv(env[0])
		if key == "" {
			continue
		}
		c.Providers = append(c.Providers, ProviderConfig{
			Name:   name,
			APIKey: key,
			Model:  getenv(env[1]),
		})
	}
}

// Validate rejects configurations the run could not survive.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 && c.Preferred != "mock" {
		return errors.New("no providers configured: set KEY_OPENAI or KEY_ANTHROPIC, or declare providers in the config file")
	}
	for _, p := range c.Providers {
		if p.Name == "" {
			return errors.New("provider with empty name")
		}
		if p.APIKey == "" && p.Name != "mock" {
			return fmt.Errorf("provider %s has no api key", p.Name)
		}
	}
	for _, chance := range []struct {
		name  string
		value int
	}{
		{"personalization_chance", c.PersonalizationChance},
		{"rss_chance", c.RSSChance},
		{"conditionals_chance", c.ConditionalsChance},
	} {
		if chance.value < 0 || chance.value > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %d", chance.name, chance.value)
		}
	}
	if c.EntriesPerCategory <= 0 {
		return fmt.Errorf("entries_per_category must be positive, got %d", c.EntriesPerCategory)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive, got %d", c.MaxRetries)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	return nil
}

// ProviderOrder returns providers with the preferred one first,
// keeping declaration order otherwise.
func (c *Config) ProviderOrder() []ProviderConfig {
	if c.Preferred == "" {
		return c.Providers
	}
	ordered := make([]ProviderConfig, 0, len(c.Providers))
	var rest []ProviderConfig
	for _, p := range c.Providers {
		if p.Name == strings.ToLower(c.Preferred) {
			ordered = append(ordered, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(ordered, rest...)
}
