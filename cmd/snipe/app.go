package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hakim/snipe/internal/config"
	"github.com/hakim/snipe/internal/models"
	"github.com/hakim/snipe/internal/pipeline"
	"github.com/hakim/snipe/internal/probe"
	"github.com/hakim/snipe/internal/registry"
	"github.com/hakim/snipe/internal/storage"
	"github.com/hakim/snipe/internal/telemetry"
	"github.com/hakim/snipe/internal/transport"
)

// app bundles the collaborators every network command needs.
type app struct {
	directory   *registry.Directory
	prober      *probe.Prober
	checkpoints *storage.CheckpointStore
	shutdown    telemetry.ShutdownFunc
}

// newApp wires telemetry, the registry directory and the prober from cfg.
func newApp(ctx context.Context, cfg *config.Config, preferWhois bool) (*app, error) {
	shutdown, err := telemetry.Init(ctx, log, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return nil, err
	}

	overrides, err := cfg.Endpoints()
	if err != nil {
		shutdown(ctx)
		return nil, err
	}

	whois := &transport.WhoisClient{Timeout: cfg.Probe.Timeout}
	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.Probe.Timeout,
	}

	var resolver registry.Resolver
	if cfg.Probe.IANADiscovery {
		r := registry.NewIANAResolver(whois, httpClient)
		r.WhoisAddr = cfg.Probe.IANAWhois
		// One WHOIS referral plus one bootstrap fetch
		r.Timeout = 2 * cfg.Probe.Timeout
		if cfg.Probe.RDAPBootstrapURL != "" {
			r.BootstrapURL = cfg.Probe.RDAPBootstrapURL
		}
		resolver = r
	}
	dir := registry.NewDirectory(overrides, resolver)

	opts := probe.Options{
		Timeout:       cfg.Probe.Timeout,
		RetryAttempts: cfg.Probe.RetryAttempts,
		RetryDelay:    cfg.Probe.RetryDelay,
		PreferWhois:   cfg.Probe.PreferWhois || preferWhois,
		DisableRDAP:   !cfg.Probe.EnableRDAP,
		DisableWHOIS:  !cfg.Probe.EnableWHOIS,
		RegistryRPS:   cfg.Probe.RegistryRPS,
		UserAgent:     cfg.Probe.UserAgent,
		Whois:         whois,
	}

	return &app{
		directory:   dir,
		prober:      probe.New(dir, opts, log),
		checkpoints: storage.NewCheckpointStore(afero.NewOsFs()),
		shutdown:    shutdown,
	}, nil
}

// deps returns the pipeline collaborators; store may be nil.
func (a *app) deps(store pipeline.StoreInterface) pipeline.Deps {
	return pipeline.Deps{
		Checkpoints: a.checkpoints,
		Checker:     a.prober,
		Store:       store,
		Log:         log,
	}
}

// close flushes telemetry with a fresh deadline so an interrupted run still exports.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.shutdown(ctx)
}

// ── Shared flag helpers ────────────────────────────────────────────────────────

// addRateFlags registers the pacing flags shared by scan, recheck and check.
func addRateFlags(fs *pflag.FlagSet) {
	fs.IntP("concurrency", "c", 20, "Probes per batch")
	fs.IntP("rate", "r", 500, "Delay between batches in milliseconds")
}

// rateFromFlags returns the pacing config, preferring explicit flags over cfg.
func rateFromFlags(fs *pflag.FlagSet, cfg *config.Config) models.RateLimitConfig {
	return models.RateLimitConfig{
		Concurrency:  intFlag(fs, "concurrency", cfg.Scan.Concurrency),
		BatchDelayMs: intFlag(fs, "rate", cfg.Scan.RateMs),
	}
}

// intFlag returns the flag value when it was set on the command line, else fallback.
func intFlag(fs *pflag.FlagSet, name string, fallback int) int {
	if !fs.Changed(name) {
		return fallback
	}
	v, _ := fs.GetInt(name)
	return v
}

// expiringWindow converts the --expiring flag (days) into a duration.
func expiringWindow(fs *pflag.FlagSet, cfg *config.Config) time.Duration {
	days := intFlag(fs, "expiring", cfg.Scan.ExpiringDays)
	return time.Duration(days) * 24 * time.Hour
}

// openIndex opens the scan index, warning instead of failing when it cannot.
func openIndex(path string) pipeline.StoreInterface {
	store, err := storage.NewStore(path)
	if err != nil {
		fmt.Printf("[!] Warning: scan history disabled: %v\n", err)
		return nil
	}
	return store
}

// splitCSV splits a comma-separated string into a trimmed, non-empty slice.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
