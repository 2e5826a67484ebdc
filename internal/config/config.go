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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	HubSpot    HubSpotConfig    `yaml:"hubspot" mapstructure:"hubspot"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Mapping    MappingConfig    `yaml:"mapping" mapstructure:"mapping"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the mapping store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SourceConfig selects the CRM that supplies lifecycle stages and contacts.
type SourceConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// HubSpotConfig holds HubSpot CRM API settings.
type HubSpotConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Property    string  `yaml:"property" mapstructure:"property"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AuthConfig configures how per-tenant CRM access tokens are obtained.
// StaticToken (a private-app token) wins over TokenURL when both are set.
type AuthConfig struct {
	TokenURL    string `yaml:"token_url" mapstructure:"token_url"`
	StaticToken string `yaml:"static_token" mapstructure:"static_token"`
}

// SalesforceConfig holds Salesforce JWT auth settings and the Contact field
// that carries the lifecycle stage.
type SalesforceConfig struct {
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	Username  string  `yaml:"username" mapstructure:"username"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	Object    string  `yaml:"object" mapstructure:"object"`
	Field     string  `yaml:"field" mapstructure:"field"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ClassifierConfig selects and tunes the stage classifier backend.
type ClassifierConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// MappingConfig configures the stage mapping engine.
type MappingConfig struct {
	// CachePolicy is "subset" (a stored mapping is reused while its keys are
	// still in the catalog) or "full" (it must also cover every stage).
	CachePolicy string `yaml:"cache_policy" mapstructure:"cache_policy"`
}

// RetryConfig configures retries of external calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the classifier circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	SessionTTLMins int      `yaml:"session_ttl_mins" mapstructure:"session_ttl_mins"`
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
	v.SetEnvPrefix("JOURNEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "journey.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("source.provider", "hubspot")
	v.SetDefault("hubspot.base_url", "https://api.hubapi.com")
	v.SetDefault("hubspot.property", "lifecyclestage")
	v.SetDefault("hubspot.rate_limit", 10)
	v.SetDefault("hubspot.timeout_secs", 30)
	v.SetDefault("auth.token_url", "")
	v.SetDefault("auth.static_token", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.object", "Contact")
	v.SetDefault("salesforce.field", "Lifecycle_Stage__c")
	v.SetDefault("salesforce.rate_limit", 5)
	v.SetDefault("classifier.provider", "anthropic")
	v.SetDefault("classifier.timeout_secs", 60)
	v.SetDefault("classifier.temperature", 0.3)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("mapping.cache_policy", "subset")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"https://app.hubspot.com"})
	v.SetDefault("server.session_ttl_mins", 30)
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

// Validate checks enum fields. Credentials are checked by ValidateProviders
// because read-only commands do not need them.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}
	switch c.Source.Provider {
	case "hubspot", "salesforce":
	default:
		return eris.Errorf("config: unsupported source provider %q", c.Source.Provider)
	}
	switch c.Classifier.Provider {
	case "anthropic", "openai":
	default:
		return eris.Errorf("config: unsupported classifier provider %q", c.Classifier.Provider)
	}
	switch c.Mapping.CachePolicy {
	case "subset", "full":
	default:
		return eris.Errorf("config: unsupported mapping cache policy %q", c.Mapping.CachePolicy)
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required for postgres")
	}
	return nil
}

// ValidateProviders checks that the selected source and classifier have
// the credentials they need.
func (c *Config) ValidateProviders() error {
	switch c.Source.Provider {
	case "hubspot":
		if c.Auth.StaticToken == "" && c.Auth.TokenURL == "" {
			return eris.New("config: hubspot requires auth.static_token or auth.token_url (JOURNEY_AUTH_STATIC_TOKEN)")
		}
	case "salesforce":
		if c.Salesforce.ClientID == "" || c.Salesforce.KeyPath == "" {
			return eris.New("config: salesforce requires salesforce.client_id and salesforce.key_path")
		}
	}
	switch c.Classifier.Provider {
	case "anthropic":
		if c.Anthropic.Key == "" {
			return eris.New("config: anthropic.key is required (JOURNEY_ANTHROPIC_KEY)")
		}
	case "openai":
		if c.OpenAI.Key == "" {
			return eris.New("config: openai.key is required (JOURNEY_OPENAI_KEY)")
		}
	}
	return nil
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
