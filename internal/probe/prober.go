package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/hakim/snipe/internal/logger"
	"github.com/hakim/snipe/internal/models"
	"github.com/hakim/snipe/internal/registry"
	"github.com/hakim/snipe/internal/transport"
)

// EndpointResolver finds the registry endpoint for a TLD
type EndpointResolver interface {
	Resolve(ctx context.Context, tld string) (registry.Endpoint, error)
}

// Options configures a Prober
type Options struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	PreferWhois   bool
	DisableRDAP   bool
	DisableWHOIS  bool
	RegistryRPS   float64
	UserAgent     string

	// HTTPClient and Whois replace the default transports when set.
	HTTPClient *http.Client
	Whois      WhoisQuerier
}

// DefaultOptions returns the defaults used when no config is loaded
func DefaultOptions() Options {
	return Options{
		Timeout:       10 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		UserAgent:     "snipe/1.0",
	}
}

// Prober checks single domains. It is safe for concurrent use.
type Prober struct {
	endpoints EndpointResolver
	rdap      *RDAPClient
	whois     *WHOISClient
	throttle  *Throttle
	opts      Options
	log       *logger.Logger
	tracer    trace.Tracer
	metrics   *probeMetrics
	now       func() time.Time
}

// New builds a Prober over the given endpoint resolver
func New(endpoints EndpointResolver, opts Options, log *logger.Logger) *Prober {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}

	rdap := NewRDAPClient(opts.UserAgent)
	if opts.HTTPClient != nil {
		rdap.HTTP = opts.HTTPClient
	}

	querier := opts.Whois
	if querier == nil {
		querier = &transport.WhoisClient{Timeout: opts.Timeout}
	}

	m, err := newProbeMetrics(otel.GetMeterProvider())
	if err != nil {
		log.Warn(context.Background(), "probe metrics unavailable", "error", err)
		m, _ = newProbeMetrics(noop.NewMeterProvider())
	}

	return &Prober{
		endpoints: endpoints,
		rdap:      rdap,
		whois:     &WHOISClient{Querier: querier},
		throttle:  NewThrottle(opts.RegistryRPS),
		opts:      opts,
		log:       log,
		tracer:    otel.Tracer(instrumentationName),
		metrics:   m,
		now:       time.Now,
	}
}

// Throttle exposes the per-registry limiter
func (p *Prober) Throttle() *Throttle { return p.throttle }

// Check decides the availability of one domain. It never returns an error:
// failures become Unknown verdicts carrying the reason.
func (p *Prober) Check(ctx context.Context, c models.DomainCandidate) models.ScanResult {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "probe.check",
		trace.WithAttributes(attribute.String("domain", c.Name())))
	defer span.End()

	res := p.check(ctx, c)
	res.CheckedAt = p.now().UTC()

	span.SetAttributes(
		attribute.String("verdict", string(res.Status)),
		attribute.String("protocol", string(res.Protocol)),
	)
	if res.Status == models.VerdictUnknown {
		span.SetStatus(codes.Error, res.Reason)
	}
	p.metrics.record(ctx, res, p.now().Sub(start))
	return res
}

func (p *Prober) check(ctx context.Context, c models.DomainCandidate) models.ScanResult {
	res := models.ScanResult{Domain: c.Name()}

	ep, err := p.endpoints.Resolve(ctx, c.TLD)
	if err != nil {
		res.Verdict = models.Unknown(err.Error())
		return res
	}

	order := p.protocols(ep)
	if len(order) == 0 {
		res.Verdict = models.Unknown(fmt.Sprintf("no enabled protocol for .%s", c.TLD))
		return res
	}

	var reasons []string
	throttled := false
	for _, proto := range order {
		ans, attempts, err := p.lookup(ctx, proto, ep, c.Name())
		res.Protocol = proto
		if err == nil {
			res.Verdict = ans.Verdict
			res.Registrar = ans.Registrar
			return res
		}

		var rl *RateLimitedError
		if errors.As(err, &rl) {
			throttled = true
			p.throttle.Penalize(ep.RegistryHost(), rl.RetryAfter)
		}
		p.log.Debug(ctx, "probe protocol failed",
			"domain", c.Name(), "protocol", proto, "attempts", attempts, "error", err)
		reasons = append(reasons, err.Error())
	}

	res.Verdict = models.Unknown(strings.Join(reasons, "; "))
	res.Throttled = throttled
	return res
}

// protocols returns the lookup order for ep: RDAP first when available,
// WHOIS first when preferred, skipping disabled or missing protocols.
func (p *Prober) protocols(ep registry.Endpoint) []models.Protocol {
	var order []models.Protocol
	rdap := ep.HasRDAP() && !p.opts.DisableRDAP
	whois := ep.HasWHOIS() && !p.opts.DisableWHOIS

	if rdap && !p.opts.PreferWhois {
		order = append(order, models.ProtocolRDAP)
	}
	if whois {
		order = append(order, models.ProtocolWHOIS)
	}
	if rdap && p.opts.PreferWhois {
		order = append(order, models.ProtocolRDAP)
	}
	return order
}

func (p *Prober) lookup(ctx context.Context, proto models.Protocol, ep registry.Endpoint, name string) (Answer, int, error) {
	sched := retrySchedule(p.opts.RetryAttempts, p.opts.RetryDelay)
	return runAttempts(ctx, sched, func(ctx context.Context, n int) (Answer, error) {
		return p.attempt(ctx, proto, ep, name, n)
	})
}

// attempt runs one protocol exchange under its own timeout
func (p *Prober) attempt(ctx context.Context, proto models.Protocol, ep registry.Endpoint, name string, n int) (Answer, error) {
	ctx, span := p.tracer.Start(ctx, "probe.attempt", trace.WithAttributes(
		attribute.String("protocol", string(proto)),
		attribute.Int("attempt", n),
	))
	defer span.End()

	// Pacing waits are not part of the attempt timeout
	if err := p.throttle.Wait(ctx, ep.RegistryHost()); err != nil {
		return Answer{}, &TransportError{Protocol: proto, Err: fmt.Errorf("waiting for registry pacing: %w", err)}
	}

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	var (
		ans Answer
		err error
	)
	switch proto {
	case models.ProtocolRDAP:
		ans, err = p.rdap.Lookup(ctx, ep, name)
	case models.ProtocolWHOIS:
		ans, err = p.whois.Lookup(ctx, ep, name)
	default:
		err = &ProtocolError{Protocol: proto, Msg: "unsupported protocol"}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, classify(err).String())
	}
	return ans, err
}
