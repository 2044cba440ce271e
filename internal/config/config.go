package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	OutputDir  string                    `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`
	DBPath     string                    `mapstructure:"db_path" yaml:"db_path" validate:"required"`
	Scan       ScanConfig                `mapstructure:"scan" yaml:"scan"`
	Probe      ProbeConfig               `mapstructure:"probe" yaml:"probe"`
	Registries map[string]RegistryConfig `mapstructure:"registries" yaml:"registries,omitempty" validate:"dive"`
	Notify     NotifyConfig              `mapstructure:"notify" yaml:"notify"`
	Log        LogConfig                 `mapstructure:"log" yaml:"log"`
	Telemetry  TelemetryConfig           `mapstructure:"telemetry" yaml:"telemetry"`
}

// ScanConfig holds the defaults for `snipe` scans; flags override them
type ScanConfig struct {
	TLDs           []string      `mapstructure:"tlds" yaml:"tlds" validate:"min=1,dive,required"`
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency" validate:"min=1,max=500"`
	RateMs         int           `mapstructure:"rate_ms" yaml:"rate_ms" validate:"min=0"`
	BatchSize      int           `mapstructure:"batch_size" yaml:"batch_size" validate:"min=1"`
	ExpiringDays   int           `mapstructure:"expiring_days" yaml:"expiring_days" validate:"min=0"`
	KeepRegistered bool          `mapstructure:"keep_registered" yaml:"keep_registered"`
	RequeueLimit   int           `mapstructure:"requeue_limit" yaml:"requeue_limit" validate:"min=0,max=10"`
	MaxBatchDelay  time.Duration `mapstructure:"max_batch_delay" yaml:"max_batch_delay" validate:"min=0"`
}

// ProbeConfig controls the RDAP and WHOIS lookups
type ProbeConfig struct {
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	RetryAttempts    int           `mapstructure:"retry_attempts" yaml:"retry_attempts" validate:"min=1,max=10"`
	RetryDelay       time.Duration `mapstructure:"retry_delay" yaml:"retry_delay" validate:"min=0"`
	PreferWhois      bool          `mapstructure:"prefer_whois" yaml:"prefer_whois"`
	EnableRDAP       bool          `mapstructure:"enable_rdap" yaml:"enable_rdap"`
	EnableWHOIS      bool          `mapstructure:"enable_whois" yaml:"enable_whois"`
	RegistryRPS      float64       `mapstructure:"registry_rps" yaml:"registry_rps" validate:"min=0"`
	UserAgent        string        `mapstructure:"user_agent" yaml:"user_agent"`
	IANADiscovery    bool          `mapstructure:"iana_discovery" yaml:"iana_discovery"`
	IANAWhois        string        `mapstructure:"iana_whois" yaml:"iana_whois" validate:"required_if=IANADiscovery true"`
	RDAPBootstrapURL string        `mapstructure:"rdap_bootstrap_url" yaml:"rdap_bootstrap_url" validate:"omitempty,url"`
}

// RegistryConfig overrides or adds the endpoint of one TLD
type RegistryConfig struct {
	RDAP     string   `mapstructure:"rdap" yaml:"rdap,omitempty" validate:"omitempty,url"`
	Whois    string   `mapstructure:"whois" yaml:"whois,omitempty"`
	NotFound []string `mapstructure:"not_found" yaml:"not_found,omitempty"`
}

// NotifyConfig configures the completion webhook
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url" validate:"omitempty,url"`
}

// LogConfig configures diagnostics on stderr
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`
}

// TelemetryConfig configures OTLP export; an empty endpoint disables it
type TelemetryConfig struct {
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	Insecure    bool   `mapstructure:"insecure" yaml:"insecure"`
}

// Load reads configuration from a YAML file, the environment and defaults.
// If path is empty, searches for snipe.yaml in the current directory, ./configs
// and ~/.config/snipe/; finding none is not an error. A .env file is loaded first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("SNIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		// Use explicit path
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		// Search for config in default locations
		v.SetConfigName("snipe")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "snipe"))
		}

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints first, then the cross-field rules
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if !c.Probe.EnableRDAP && !c.Probe.EnableWHOIS {
		errs = append(errs, errors.New("probe: at least one of enable_rdap and enable_whois must be set"))
	}

	if c.Scan.MaxBatchDelay > 0 && c.Scan.MaxBatchDelay < time.Duration(c.Scan.RateMs)*time.Millisecond {
		errs = append(errs, errors.New("scan.max_batch_delay cannot be shorter than scan.rate_ms"))
	}

	if c.Telemetry.Endpoint != "" && c.Telemetry.ServiceName == "" {
		errs = append(errs, errors.New("telemetry.service_name is required when telemetry.endpoint is set"))
	}

	for tld, r := range c.Registries {
		if r.RDAP == "" && r.Whois == "" && len(r.NotFound) == 0 {
			errs = append(errs, fmt.Errorf("registries.%s: needs rdap, whois or not_found", tld))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
