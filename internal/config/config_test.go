package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so no stray snipe.yaml or
// .env is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "scans", cfg.OutputDir)
	assert.Equal(t, []string{"com"}, cfg.Scan.TLDs)
	assert.Equal(t, 20, cfg.Scan.Concurrency)
	assert.Equal(t, 500, cfg.Scan.RateMs)
	assert.Equal(t, 100, cfg.Scan.BatchSize)
	assert.Equal(t, 7, cfg.Scan.ExpiringDays)
	assert.Equal(t, 10*time.Second, cfg.Probe.Timeout)
	assert.True(t, cfg.Probe.EnableRDAP)
	assert.True(t, cfg.Probe.EnableWHOIS)
}

func TestLoadFileAndEnvOverlay(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	body := `
output_dir: out
scan:
  tlds: [io, ai]
  concurrency: 5
probe:
  timeout: 3s
registries:
  sh:
    whois: whois.nic.sh
    not_found: ["No match"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	t.Setenv("SNIPE_SCAN_RATE_MS", "750")
	t.Setenv("SNIPE_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, []string{"io", "ai"}, cfg.Scan.TLDs)
	assert.Equal(t, 5, cfg.Scan.Concurrency)
	assert.Equal(t, 750, cfg.Scan.RateMs)
	assert.Equal(t, 3*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.Contains(t, cfg.Registries, "sh")
	assert.Equal(t, "whois.nic.sh", cfg.Registries["sh"].Whois)
	assert.Equal(t, []string{"No match"}, cfg.Registries["sh"].NotFound)
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snipe.yaml"), []byte("db_path: found.db\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "found.db", cfg.DBPath)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	dir := chdirTemp(t)
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"zero concurrency", func(c *Config) { c.Scan.Concurrency = 0 }, "Concurrency"},
		{"no tlds", func(c *Config) { c.Scan.TLDs = nil }, "TLDs"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "Level"},
		{"bad webhook", func(c *Config) { c.Notify.WebhookURL = "not a url" }, "WebhookURL"},
		{"both protocols off", func(c *Config) {
			c.Probe.EnableRDAP = false
			c.Probe.EnableWHOIS = false
		}, "enable_rdap"},
		{"max delay below rate", func(c *Config) { c.Scan.MaxBatchDelay = 100 * time.Millisecond }, "max_batch_delay"},
		{"empty registry override", func(c *Config) {
			c.Registries = map[string]RegistryConfig{"sh": {}}
		}, "registries.sh"},
		{"telemetry without service", func(c *Config) {
			c.Telemetry.Endpoint = "localhost:4317"
			c.Telemetry.ServiceName = ""
		}, "service_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.Concurrency = 0
	cfg.Log.Format = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Concurrency")
	assert.Contains(t, err.Error(), "Format")
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "snipe.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Scan, cfg.Scan)
	assert.Equal(t, DefaultConfig().Probe, cfg.Probe)
}

func TestEndpoints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Registries = map[string]RegistryConfig{
		"uk": {RDAP: "https://rdap.nominet.uk/uk/", Whois: "whois.nic.uk"},
		"de": {Whois: "whois.denic.de:4343", NotFound: []string{"Status: free"}},
	}

	eps, err := cfg.Endpoints()
	require.NoError(t, err)
	assert.Equal(t, "whois.nic.uk", eps["uk"].WhoisHost)
	assert.Equal(t, 43, eps["uk"].WhoisPort)
	assert.Equal(t, 4343, eps["de"].WhoisPort)
	assert.Equal(t, []string{"Status: free"}, eps["de"].NotFound)

	cfg.Registries["bad"] = RegistryConfig{Whois: "host:notaport"}
	_, err = cfg.Endpoints()
	assert.ErrorContains(t, err, "registries.bad")
}
