// Package registry maps TLDs to the RDAP and WHOIS endpoints that answer for
// them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultWhoisPort is the well-known WHOIS port.
const DefaultWhoisPort = 43

// ErrNoEndpoint is returned when a TLD has neither an RDAP base nor a WHOIS host.
var ErrNoEndpoint = errors.New("registry: no endpoint for tld")

// Endpoint describes how to reach the registry of one TLD
type Endpoint struct {
	TLD         string   `json:"tld" yaml:"tld"`
	RDAPBaseURL string   `json:"rdap,omitempty" yaml:"rdap,omitempty"`
	WhoisHost   string   `json:"whois,omitempty" yaml:"whois,omitempty"`
	WhoisPort   int      `json:"whois_port,omitempty" yaml:"whois_port,omitempty"`
	NotFound    []string `json:"not_found,omitempty" yaml:"not_found,omitempty"`
}

// HasRDAP reports whether the endpoint has an RDAP base URL
func (e Endpoint) HasRDAP() bool { return e.RDAPBaseURL != "" }

// HasWHOIS reports whether the endpoint has a WHOIS server
func (e Endpoint) HasWHOIS() bool { return e.WhoisHost != "" }

// WhoisAddr returns host:port for the WHOIS server, defaulting the port to 43
func (e Endpoint) WhoisAddr() string {
	port := e.WhoisPort
	if port == 0 {
		port = DefaultWhoisPort
	}
	return net.JoinHostPort(e.WhoisHost, strconv.Itoa(port))
}

// RDAPURL returns the domain lookup URL for name under this endpoint
func (e Endpoint) RDAPURL(name string) string {
	base := e.RDAPBaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "domain/" + name
}

// RegistryHost names the registry for per-host pacing, preferring the WHOIS host
func (e Endpoint) RegistryHost() string {
	if e.WhoisHost != "" {
		return e.WhoisHost
	}
	if i := strings.Index(e.RDAPBaseURL, "://"); i >= 0 {
		rest := e.RDAPBaseURL[i+3:]
		if j := strings.IndexAny(rest, "/:"); j >= 0 {
			rest = rest[:j]
		}
		return rest
	}
	return e.TLD
}

// merge overlays the non-empty fields of o onto e
func (e Endpoint) merge(o Endpoint) Endpoint {
	if o.RDAPBaseURL != "" {
		e.RDAPBaseURL = o.RDAPBaseURL
	}
	if o.WhoisHost != "" {
		e.WhoisHost = o.WhoisHost
	}
	if o.WhoisPort != 0 {
		e.WhoisPort = o.WhoisPort
	}
	if len(o.NotFound) > 0 {
		e.NotFound = append(append([]string(nil), e.NotFound...), o.NotFound...)
	}
	return e
}

// ParseWhoisAddr splits "host" or "host:port" into its parts
func ParseWhoisAddr(s string) (string, int, error) {
	if s == "" {
		return "", 0, nil
	}
	if !strings.Contains(s, ":") {
		return s, DefaultWhoisPort, nil
	}
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, fmt.Errorf("registry: bad whois address %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("registry: bad whois port in %q", s)
	}
	return host, port, nil
}

var builtin = []Endpoint{
	{TLD: "com", RDAPBaseURL: "https://rdap.verisign.com/com/v1/", WhoisHost: "whois.verisign-grs.com"},
	{TLD: "net", RDAPBaseURL: "https://rdap.verisign.com/net/v1/", WhoisHost: "whois.verisign-grs.com"},
	{TLD: "org", RDAPBaseURL: "https://rdap.org.org/", WhoisHost: "whois.pir.org"},
	{TLD: "io", RDAPBaseURL: "https://rdap.nic.io/", WhoisHost: "whois.nic.io"},
	{TLD: "ai", RDAPBaseURL: "https://rdap.nic.ai/", WhoisHost: "whois.nic.ai"},
	{TLD: "tech", RDAPBaseURL: "https://rdap.nic.tech/"},
	{TLD: "app", RDAPBaseURL: "https://rdap.nic.google/"},
	{TLD: "dev", RDAPBaseURL: "https://rdap.nic.google/"},
	{TLD: "xyz", RDAPBaseURL: "https://rdap.nic.xyz/", WhoisHost: "whois.nic.xyz"},
	{TLD: "co", RDAPBaseURL: "https://rdap.nic.co/", WhoisHost: "whois.nic.co"},
	{TLD: "me", RDAPBaseURL: "https://rdap.nic.me/", WhoisHost: "whois.nic.me"},
}

// Resolver discovers endpoints for TLDs missing from the table
type Resolver interface {
	Discover(ctx context.Context, tld string) (Endpoint, error)
}

// Directory is the TLD endpoint table. It is safe for concurrent use.
type Directory struct {
	mu       sync.RWMutex
	entries  map[string]Endpoint
	misses   map[string]error
	resolver Resolver
	group    singleflight.Group
}

// NewDirectory builds the table from the built-in entries with overrides
// applied on top. resolver may be nil, in which case unknown TLDs fail.
func NewDirectory(overrides map[string]Endpoint, resolver Resolver) *Directory {
	d := &Directory{
		entries:  make(map[string]Endpoint, len(builtin)+len(overrides)),
		misses:   make(map[string]error),
		resolver: resolver,
	}
	for _, e := range builtin {
		d.entries[e.TLD] = e
	}
	for tld, o := range overrides {
		tld = strings.ToLower(strings.Trim(tld, ". "))
		base, ok := d.entries[tld]
		if !ok {
			base = Endpoint{TLD: tld}
		}
		d.entries[tld] = base.merge(o)
	}
	return d
}

// Lookup returns the known endpoint for tld without any network access
func (d *Directory) Lookup(tld string) (Endpoint, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[tld]
	return e, ok
}

// Resolve returns the endpoint for tld, discovering and caching it when the
// table has no entry. Concurrent callers for the same TLD share one lookup.
// A TLD the resolver reports as unknown stays unknown for the run.
func (d *Directory) Resolve(ctx context.Context, tld string) (Endpoint, error) {
	if e, ok := d.Lookup(tld); ok {
		return e, nil
	}

	d.mu.RLock()
	missErr, missed := d.misses[tld]
	d.mu.RUnlock()
	if missed {
		return Endpoint{}, missErr
	}

	if d.resolver == nil {
		return Endpoint{}, fmt.Errorf("%w: %s", ErrNoEndpoint, tld)
	}

	v, err, _ := d.group.Do(tld, func() (any, error) {
		if e, ok := d.Lookup(tld); ok {
			return e, nil
		}
		e, err := d.resolver.Discover(ctx, tld)
		d.mu.Lock()
		defer d.mu.Unlock()
		if err != nil {
			// Only a definitive answer is remembered; failed lookups are retried
			if errors.Is(err, ErrNoEndpoint) {
				d.misses[tld] = err
			}
			return Endpoint{}, err
		}
		e.TLD = tld
		d.entries[tld] = e
		return e, nil
	})
	if err != nil {
		return Endpoint{}, err
	}
	return v.(Endpoint), nil
}

// Entries returns every known endpoint sorted by TLD
func (d *Directory) Entries() []Endpoint {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Endpoint, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TLD < out[j].TLD })
	return out
}
