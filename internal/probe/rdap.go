package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hakim/snipe/internal/models"
	"github.com/hakim/snipe/internal/registry"
)

const maxRDAPBody = 1 << 20

// Answer is a conclusive lookup result
type Answer struct {
	Verdict   models.Verdict
	Registrar string
}

// RDAPClient performs RDAP domain lookups over HTTP
type RDAPClient struct {
	HTTP      *http.Client
	UserAgent string
}

// NewRDAPClient returns a client whose transport is traced with otelhttp
func NewRDAPClient(userAgent string) *RDAPClient {
	return &RDAPClient{
		HTTP:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		UserAgent: userAgent,
	}
}

type rdapEvent struct {
	Action string `json:"eventAction"`
	Date   string `json:"eventDate"`
}

type rdapEntity struct {
	Roles      []string          `json:"roles"`
	VCardArray []json.RawMessage `json:"vcardArray"`
	Entities   []rdapEntity      `json:"entities"`
}

type rdapDomain struct {
	ObjectClassName string       `json:"objectClassName"`
	LDHName         string       `json:"ldhName"`
	Events          []rdapEvent  `json:"events"`
	Entities        []rdapEntity `json:"entities"`
}

// Lookup queries the endpoint's RDAP base for name
func (c *RDAPClient) Lookup(ctx context.Context, ep registry.Endpoint, name string) (Answer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.RDAPURL(name), nil)
	if err != nil {
		return Answer{}, &ProtocolError{Protocol: models.ProtocolRDAP, Msg: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("Accept", "application/rdap+json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Answer{}, &TransportError{Protocol: models.ProtocolRDAP, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Answer{Verdict: models.Available()}, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return Answer{}, &RateLimitedError{
			Protocol:   models.ProtocolRDAP,
			Host:       ep.RegistryHost(),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	case resp.StatusCode >= 500:
		return Answer{}, &TransportError{Protocol: models.ProtocolRDAP, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return Answer{}, &ProtocolError{Protocol: models.ProtocolRDAP, Msg: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRDAPBody))
	if err != nil {
		return Answer{}, &TransportError{Protocol: models.ProtocolRDAP, Err: err}
	}
	return parseRDAPDomain(body)
}

func parseRDAPDomain(body []byte) (Answer, error) {
	var d rdapDomain
	if err := json.Unmarshal(body, &d); err != nil {
		return Answer{}, &ProtocolError{Protocol: models.ProtocolRDAP, Msg: fmt.Sprintf("malformed json: %v", err)}
	}
	if d.ObjectClassName != "domain" && d.LDHName == "" {
		return Answer{}, &ProtocolError{Protocol: models.ProtocolRDAP, Msg: "response is not a domain object"}
	}

	var expiry *time.Time
	for _, ev := range d.Events {
		if ev.Action != "expiration" {
			continue
		}
		if t, ok := parseDate(ev.Date); ok {
			expiry = &t
		}
		break
	}

	return Answer{
		Verdict:   models.Registered(expiry),
		Registrar: registrarName(d.Entities),
	}, nil
}

// registrarName returns the vCard fn of the first entity with the registrar role
func registrarName(entities []rdapEntity) string {
	for _, e := range entities {
		for _, role := range e.Roles {
			if role == "registrar" {
				if fn := vcardFN(e.VCardArray); fn != "" {
					return fn
				}
			}
		}
		if name := registrarName(e.Entities); name != "" {
			return name
		}
	}
	return ""
}

// vcardFN reads ["vcard", [["fn", {}, "text", "Name"], ...]]
func vcardFN(card []json.RawMessage) string {
	if len(card) < 2 {
		return ""
	}
	var props [][]json.RawMessage
	if err := json.Unmarshal(card[1], &props); err != nil {
		return ""
	}
	for _, p := range props {
		if len(p) < 4 {
			continue
		}
		var key, value string
		if json.Unmarshal(p[0], &key) != nil || key != "fn" {
			continue
		}
		if json.Unmarshal(p[3], &value) == nil {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
