package config

import (
	"errors"
	"fmt"

	"github.com/hakim/snipe/internal/registry"
)

// Endpoints converts the registries section into directory overrides
func (c *Config) Endpoints() (map[string]registry.Endpoint, error) {
	out := make(map[string]registry.Endpoint, len(c.Registries))
	var errs []error
	for tld, r := range c.Registries {
		host, port, err := registry.ParseWhoisAddr(r.Whois)
		if err != nil {
			errs = append(errs, fmt.Errorf("registries.%s: %w", tld, err))
			continue
		}
		out[tld] = registry.Endpoint{
			TLD:         tld,
			RDAPBaseURL: r.RDAP,
			WhoisHost:   host,
			WhoisPort:   port,
			NotFound:    r.NotFound,
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
