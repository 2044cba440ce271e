package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	regexp "github.com/wasilibs/go-re2"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultIANAWhois is the root WHOIS server that refers TLD queries
	DefaultIANAWhois = "whois.iana.org:43"
	// DefaultBootstrapURL is the IANA RDAP bootstrap registry for DNS
	DefaultBootstrapURL = "https://data.iana.org/rdap/dns.json"
)

// ErrDiscoveryFailed marks a lookup that could not reach IANA. Unlike
// ErrNoEndpoint it says nothing about the TLD and may succeed on retry.
var ErrDiscoveryFailed = errors.New("registry: discovery failed")

var referralRe = regexp.MustCompile(`(?mi)^\s*(?:whois|refer):\s*(\S+)\s*$`)

// WhoisQuerier sends a raw WHOIS query to addr
type WhoisQuerier interface {
	Query(ctx context.Context, addr, query string) (string, error)
}

// IANAResolver discovers endpoints from the IANA root WHOIS referral and the
// RDAP bootstrap file.
type IANAResolver struct {
	Whois        WhoisQuerier
	WhoisAddr    string
	BootstrapURL string
	HTTPClient   *http.Client
	// Timeout bounds one Discover call; zero means no bound beyond ctx.
	Timeout time.Duration

	mu        sync.RWMutex
	bootstrap map[string]string
	fetch     singleflight.Group
}

// NewIANAResolver returns a resolver using the default IANA servers
func NewIANAResolver(q WhoisQuerier, client *http.Client) *IANAResolver {
	return &IANAResolver{
		Whois:        q,
		WhoisAddr:    DefaultIANAWhois,
		BootstrapURL: DefaultBootstrapURL,
		HTTPClient:   client,
	}
}

// Discover looks up both protocols for tld. It fails only when neither
// lookup produced an endpoint: with ErrNoEndpoint when IANA answered and
// knows nothing, with ErrDiscoveryFailed when a lookup itself failed.
func (r *IANAResolver) Discover(ctx context.Context, tld string) (Endpoint, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	e := Endpoint{TLD: tld}
	var errs []error

	if r.Whois != nil && r.WhoisAddr != "" {
		text, err := r.Whois.Query(ctx, r.WhoisAddr, tld)
		if err != nil {
			errs = append(errs, err)
		} else if host := ParseReferral(text); host != "" {
			e.WhoisHost = host
		}
	}

	if r.BootstrapURL != "" {
		base, err := r.rdapBase(ctx, tld)
		if err != nil {
			errs = append(errs, err)
		}
		e.RDAPBaseURL = base
	}

	if !e.HasRDAP() && !e.HasWHOIS() {
		if len(errs) > 0 {
			return Endpoint{}, fmt.Errorf("%w: %s: %w", ErrDiscoveryFailed, tld, errors.Join(errs...))
		}
		return Endpoint{}, fmt.Errorf("%w: %s", ErrNoEndpoint, tld)
	}
	return e, nil
}

// ParseReferral extracts the WHOIS host from an IANA TLD record
func ParseReferral(text string) string {
	m := referralRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSuffix(m[1], "."))
}

type bootstrapFile struct {
	Services [][][]string `json:"services"`
}

func (r *IANAResolver) rdapBase(ctx context.Context, tld string) (string, error) {
	r.mu.RLock()
	m := r.bootstrap
	r.mu.RUnlock()
	if m != nil {
		return m[tld], nil
	}

	v, err, _ := r.fetch.Do("bootstrap", func() (any, error) {
		m, err := r.fetchBootstrap(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.bootstrap = m
		r.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return "", err
	}
	return v.(map[string]string)[tld], nil
}

func (r *IANAResolver) fetchBootstrap(ctx context.Context) (map[string]string, error) {
	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BootstrapURL, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: building bootstrap request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: fetching rdap bootstrap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry: rdap bootstrap returned %d", resp.StatusCode)
	}

	var file bootstrapFile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&file); err != nil {
		return nil, fmt.Errorf("registry: decoding rdap bootstrap: %w", err)
	}

	out := make(map[string]string)
	for _, svc := range file.Services {
		if len(svc) < 2 || len(svc[1]) == 0 {
			continue
		}
		base := pickBase(svc[1])
		for _, t := range svc[0] {
			out[strings.ToLower(t)] = base
		}
	}
	return out, nil
}

// pickBase prefers an https base URL
func pickBase(urls []string) string {
	for _, u := range urls {
		if strings.HasPrefix(u, "https://") {
			return u
		}
	}
	return urls[0]
}
