package probe

import (
	"context"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/hakim/snipe/internal/models"
	"github.com/hakim/snipe/internal/registry"
)

// Phrases are matched against the lowercased response.
var (
	throttlePhrases = []string{
		"limit exceeded",
		"rate limit",
		"too many requests",
		"query rate",
		"quota exceeded",
		"exceeded the maximum",
		"try again later",
		"please wait",
		"allowed queries exceeded",
	}

	notFoundPhrases = []string{
		"no match for",
		"no match!!",
		"not found",
		"no entries found",
		"no data found",
		"status: free",
		"status: available",
		"no object found",
		"object does not exist",
		"the queried object does not exist",
		"nothing found",
		"no information available",
		"is available for registration",
		"domain is available",
		"no such domain",
		"domain name has not been registered",
		"no matching record",
		"not registered",
	}

	reservedPhrases = []string{
		"this name is reserved",
		"reserved by the registry",
		"reserved domain",
	}

	takenPhrases = []string{
		"registrar:",
		"registrant:",
		"creation date:",
		"created:",
		"registered:",
		"name server:",
		"nameserver:",
		"nserver:",
		"registrar iana id:",
		"domain status:",
		"dnssec:",
	}

	expiryRe = regexp.MustCompile(`(?mi)^\s*(?:registry expiry date|registrar registration expiration date|expiration date|expiry date|expire date|expires on|expires|expiration time|paid-till|renewal date|valid until)\s*:\s*(.+?)\s*$`)

	registrarRe = regexp.MustCompile(`(?mi)^\s*registrar(?: name)?\s*:\s*(\S.*?)\s*$`)
)

// WhoisQuerier is the raw port-43 transport
type WhoisQuerier = registry.WhoisQuerier

// WHOISClient performs WHOIS lookups and classifies the free-text reply
type WHOISClient struct {
	Querier WhoisQuerier
}

// Lookup queries the endpoint's WHOIS server for name
func (c *WHOISClient) Lookup(ctx context.Context, ep registry.Endpoint, name string) (Answer, error) {
	text, err := c.Querier.Query(ctx, ep.WhoisAddr(), name)
	if err != nil {
		// Some servers refuse with a reason and drop the connection; only a
		// throttle reply is trusted from such a partial read.
		if _, cerr := ClassifyWhois(text, nil); cerr != nil {
			if rl, ok := cerr.(*RateLimitedError); ok {
				rl.Host = ep.RegistryHost()
				return Answer{}, rl
			}
		}
		return Answer{}, &TransportError{Protocol: models.ProtocolWHOIS, Err: err}
	}
	ans, err := ClassifyWhois(text, ep.NotFound)
	if rl, ok := err.(*RateLimitedError); ok {
		rl.Host = ep.RegistryHost()
	}
	return ans, err
}

// ClassifyWhois turns a WHOIS reply into a verdict. extraNotFound adds
// registry-specific phrases that mean the name is unregistered.
func ClassifyWhois(text string, extraNotFound []string) (Answer, error) {
	if strings.TrimSpace(text) == "" {
		return Answer{}, &ProtocolError{Protocol: models.ProtocolWHOIS, Msg: "empty response"}
	}
	lower := strings.ToLower(text)

	if containsAny(lower, throttlePhrases) {
		return Answer{}, &RateLimitedError{Protocol: models.ProtocolWHOIS}
	}

	if containsAny(lower, reservedPhrases) {
		return Answer{Verdict: models.Registered(nil)}, nil
	}

	if containsAny(lower, notFoundPhrases) || containsAny(lower, lowerAll(extraNotFound)) {
		return Answer{Verdict: models.Available()}, nil
	}

	registrar := ""
	if m := registrarRe.FindStringSubmatch(text); m != nil {
		registrar = m[1]
	}

	if m := expiryRe.FindStringSubmatch(text); m != nil {
		if t, ok := parseDate(m[1]); ok {
			return Answer{Verdict: models.Registered(&t), Registrar: registrar}, nil
		}
		return Answer{Verdict: models.Registered(nil), Registrar: registrar}, nil
	}

	if containsAny(lower, takenPhrases) {
		return Answer{Verdict: models.Registered(nil), Registrar: registrar}, nil
	}

	return Answer{}, &ProtocolError{Protocol: models.ProtocolWHOIS, Msg: "unrecognized format"}
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
