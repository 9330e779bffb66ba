package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Extractor names accepted by receipt.extractor.
const (
	ExtractorBackend = "backend"
	ExtractorGemini  = "gemini"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	API struct {
		BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	} `mapstructure:"api" yaml:"api"`

	Session struct {
		Token  string `mapstructure:"token" yaml:"-"`
		UserID string `mapstructure:"user_id" yaml:"user_id"`
	} `mapstructure:"session" yaml:"session"`

	Receipt struct {
		Extractor       string `mapstructure:"extractor" yaml:"extractor"`
		DefaultMIMEType string `mapstructure:"default_mime_type" yaml:"default_mime_type"`
	} `mapstructure:"receipt" yaml:"receipt"`

	AI struct {
		Model          string `mapstructure:"model" yaml:"model"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		APIKey         string `mapstructure:"api_key" yaml:"-"`
	} `mapstructure:"ai" yaml:"ai"`

	Report struct {
		Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	} `mapstructure:"report" yaml:"report"`
}

// InitializeConfig loads configuration from the standard locations.
func InitializeConfig() (*Config, error) {
	return InitializeConfigFrom("")
}

// InitializeConfigFrom loads configuration, reading configFile when it is not empty
// instead of searching the standard locations. An explicit file that cannot be read
// is an error; a missing file in the standard locations is not.
func InitializeConfigFrom(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.mattax")
		v.AddConfigPath(".mattax")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MATTAX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Short aliases for the values people export most.
	if err := v.BindEnv("session.token", "MATTAX_SESSION_TOKEN", "MATTAX_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind token environment variable: %w", err)
	}
	if err := v.BindEnv("session.user_id", "MATTAX_SESSION_USER_ID", "MATTAX_USER_ID"); err != nil {
		return nil, fmt.Errorf("failed to bind user id environment variable: %w", err)
	}
	if err := v.BindEnv("ai.api_key", "MATTAX_AI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind GEMINI_API_KEY environment variable: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout_seconds", 30)

	v.SetDefault("session.token", "")
	v.SetDefault("session.user_id", "")

	v.SetDefault("receipt.extractor", ExtractorBackend)
	v.SetDefault("receipt.default_mime_type", "image/jpeg")

	v.SetDefault("ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.timeout_seconds", 60)
	v.SetDefault("ai.api_key", "")

	v.SetDefault("report.delimiter", ",")
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	u, err := url.Parse(config.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got: %q", config.API.BaseURL)
	}

	if config.API.TimeoutSeconds < 1 || config.API.TimeoutSeconds > 300 {
		return fmt.Errorf("api.timeout_seconds must be between 1 and 300, got: %d", config.API.TimeoutSeconds)
	}

	switch config.Receipt.Extractor {
	case ExtractorBackend:
	case ExtractorGemini:
		if config.AI.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY required when receipt.extractor is %q", ExtractorGemini)
		}
		if config.AI.TimeoutSeconds < 1 || config.AI.TimeoutSeconds > 300 {
			return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", config.AI.TimeoutSeconds)
		}
	default:
		return fmt.Errorf("receipt.extractor must be %q or %q, got: %q", ExtractorBackend, ExtractorGemini, config.Receipt.Extractor)
	}

	if len([]rune(config.Report.Delimiter)) != 1 {
		return fmt.Errorf("report delimiter must be a single character, got: %s", config.Report.Delimiter)
	}

	return nil
}
