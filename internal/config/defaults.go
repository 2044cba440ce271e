package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		OutputDir: "scans",
		DBPath:    "snipe.db",
		Scan: ScanConfig{
			TLDs:          []string{"com"},
			Concurrency:   20,
			RateMs:        500,
			BatchSize:     100,
			ExpiringDays:  7,
			RequeueLimit:  2,
			MaxBatchDelay: 10 * time.Second,
		},
		Probe: ProbeConfig{
			Timeout:          10 * time.Second,
			RetryAttempts:    3,
			RetryDelay:       time.Second,
			EnableRDAP:       true,
			EnableWHOIS:      true,
			UserAgent:        "snipe/1.0 (+https://github.com/hakim/snipe)",
			IANADiscovery:    true,
			IANAWhois:        "whois.iana.org:43",
			RDAPBootstrapURL: "https://data.iana.org/rdap/dns.json",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "snipe",
		},
	}
}

// setDefaults registers every key so env overrides work without a config file
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("db_path", d.DBPath)

	v.SetDefault("scan.tlds", d.Scan.TLDs)
	v.SetDefault("scan.concurrency", d.Scan.Concurrency)
	v.SetDefault("scan.rate_ms", d.Scan.RateMs)
	v.SetDefault("scan.batch_size", d.Scan.BatchSize)
	v.SetDefault("scan.expiring_days", d.Scan.ExpiringDays)
	v.SetDefault("scan.keep_registered", d.Scan.KeepRegistered)
	v.SetDefault("scan.requeue_limit", d.Scan.RequeueLimit)
	v.SetDefault("scan.max_batch_delay", d.Scan.MaxBatchDelay)

	v.SetDefault("probe.timeout", d.Probe.Timeout)
	v.SetDefault("probe.retry_attempts", d.Probe.RetryAttempts)
	v.SetDefault("probe.retry_delay", d.Probe.RetryDelay)
	v.SetDefault("probe.prefer_whois", d.Probe.PreferWhois)
	v.SetDefault("probe.enable_rdap", d.Probe.EnableRDAP)
	v.SetDefault("probe.enable_whois", d.Probe.EnableWHOIS)
	v.SetDefault("probe.registry_rps", d.Probe.RegistryRPS)
	v.SetDefault("probe.user_agent", d.Probe.UserAgent)
	v.SetDefault("probe.iana_discovery", d.Probe.IANADiscovery)
	v.SetDefault("probe.iana_whois", d.Probe.IANAWhois)
	v.SetDefault("probe.rdap_bootstrap_url", d.Probe.RDAPBootstrapURL)

	v.SetDefault("notify.webhook_url", d.Notify.WebhookURL)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("telemetry.insecure", d.Telemetry.Insecure)
}

// WriteDefault writes a default configuration to the specified path
func WriteDefault(path string) error {
	cfg := DefaultConfig()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
