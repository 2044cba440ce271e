// Package transport holds the raw WHOIS wire client shared by the probe and
// registry discovery.
package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/likexian/whois"
	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds one WHOIS exchange when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// WhoisClient sends one query line to a port-43 server and reads the
// response until the server closes the connection.
type WhoisClient struct {
	Timeout time.Duration
}

// Query sends query to addr (host:port). The context deadline, when
// shorter, caps the configured timeout. When the server answers and then
// breaks the connection, the partial text is returned with the error.
func (c *WhoisClient) Query(ctx context.Context, addr, query string) (string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("whois: bad server address %q: %w", addr, err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < timeout {
			timeout = rem
		}
	}
	if timeout <= 0 {
		return "", fmt.Errorf("whois: query %s: %w", query, context.DeadlineExceeded)
	}

	client := whois.NewClient().
		SetTimeout(timeout).
		SetDialer(&redirectDialer{ctx: ctx, target: addr, timeout: timeout}).
		SetDisableReferral(true)

	// On a dropped connection the library still returns what the server sent
	text, err := client.Whois(query, host)
	if err != nil {
		return text, fmt.Errorf("whois: query %s via %s: %w", query, addr, err)
	}
	return text, nil
}

// redirectDialer pins every connection to target so non-default ports work
// and the caller's context governs the dial.
type redirectDialer struct {
	ctx     context.Context
	target  string
	timeout time.Duration
}

var _ proxy.Dialer = (*redirectDialer)(nil)

func (d *redirectDialer) Dial(network, _ string) (net.Conn, error) {
	nd := net.Dialer{Timeout: d.timeout}
	return nd.DialContext(d.ctx, network, d.target)
}
