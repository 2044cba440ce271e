// Package validate checks domain label and TLD syntax before any network
// call is made.
package validate

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

const (
	MaxLabelLength  = 63
	MaxDomainLength = 253
)

// ValidationError describes why a label or TLD was rejected.
type ValidationError struct {
	Label  string
	TLD    string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("invalid tld %q: %s", e.TLD, e.Reason)
	}
	return fmt.Sprintf("invalid domain %s.%s: %s", e.Label, e.TLD, e.Reason)
}

// Validator checks candidate labels. Digits are only accepted when
// AllowDigits is set, which mirrors the alphanumeric scan modifier.
type Validator struct {
	AllowDigits bool
}

// Validate returns a *ValidationError when label.tld is not a registrable
// name for this validator.
func (v Validator) Validate(label, tld string) error {
	fail := func(reason string) error {
		return &ValidationError{Label: label, TLD: tld, Reason: reason}
	}

	if len(label) == 0 || len(label) > MaxLabelLength {
		return fail(fmt.Sprintf("label length %d outside 1-%d", len(label), MaxLabelLength))
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z', c == '-':
		case c >= '0' && c <= '9':
			if !v.AllowDigits {
				return fail("digits require alphanumeric mode")
			}
		default:
			return fail(fmt.Sprintf("character %q not allowed", c))
		}
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return fail("label must not start or end with a hyphen")
	}
	if err := ValidateTLD(tld); err != nil {
		return err
	}
	if n := len(label) + 1 + len(tld); n > MaxDomainLength {
		return fail(fmt.Sprintf("domain length %d exceeds %d", n, MaxDomainLength))
	}
	return nil
}

// ValidateTLD accepts lowercase ASCII suffixes made of 2-63 letter parts,
// e.g. "com" or "co.uk". Punycode (xn--) parts are allowed.
func ValidateTLD(tld string) error {
	if len(tld) < 2 || len(tld) > MaxDomainLength {
		return &ValidationError{TLD: tld, Reason: "length outside 2-253"}
	}
	for _, part := range strings.Split(tld, ".") {
		if reason := checkSuffixPart(part); reason != "" {
			return &ValidationError{TLD: tld, Reason: reason}
		}
	}
	return nil
}

func checkSuffixPart(part string) string {
	if len(part) < 2 || len(part) > MaxLabelLength {
		return fmt.Sprintf("part %q length outside 2-63", part)
	}
	if strings.HasPrefix(part, "xn--") {
		for i := 4; i < len(part); i++ {
			c := part[i]
			if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
				return fmt.Sprintf("character %q not allowed", c)
			}
		}
		if part[len(part)-1] == '-' {
			return "must not end with a hyphen"
		}
		return ""
	}
	for i := 0; i < len(part); i++ {
		if c := part[i]; c < 'a' || c > 'z' {
			return fmt.Sprintf("character %q not allowed", c)
		}
	}
	return ""
}

// NormalizeTLD lowercases raw, strips surrounding dots and converts
// internationalized TLDs to their punycode form.
func NormalizeTLD(raw string) (string, error) {
	tld := strings.Trim(strings.ToLower(strings.TrimSpace(raw)), ".")
	if tld == "" {
		return "", &ValidationError{TLD: raw, Reason: "empty"}
	}
	ascii, err := idna.Lookup.ToASCII(tld)
	if err != nil {
		return "", &ValidationError{TLD: raw, Reason: err.Error()}
	}
	if err := ValidateTLD(ascii); err != nil {
		return "", err
	}
	return ascii, nil
}

// NormalizeTLDs normalizes a list, dropping duplicates while keeping the
// first occurrence order.
func NormalizeTLDs(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		tld, err := NormalizeTLD(r)
		if err != nil {
			return nil, err
		}
		if seen[tld] {
			continue
		}
		seen[tld] = true
		out = append(out, tld)
	}
	if len(out) == 0 {
		return nil, &ValidationError{Reason: "no tlds given"}
	}
	return out, nil
}
