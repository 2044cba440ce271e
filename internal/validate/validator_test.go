package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorValidate(t *testing.T) {
	tests := []struct {
		name        string
		allowDigits bool
		label       string
		tld         string
		wantErr     bool
	}{
		{name: "simple label", label: "abcd", tld: "com"},
		{name: "hyphen inside", label: "ab-cd", tld: "io"},
		{name: "single char", label: "a", tld: "ai"},
		{name: "max length label", label: strings.Repeat("a", 63), tld: "com"},
		{name: "empty label", label: "", tld: "com", wantErr: true},
		{name: "label too long", label: strings.Repeat("a", 64), tld: "com", wantErr: true},
		{name: "leading hyphen", label: "-abc", tld: "com", wantErr: true},
		{name: "trailing hyphen", label: "abc-", tld: "com", wantErr: true},
		{name: "uppercase", label: "Abc", tld: "com", wantErr: true},
		{name: "underscore", label: "a_b", tld: "com", wantErr: true},
		{name: "digits without alphanumeric", label: "ab12", tld: "com", wantErr: true},
		{name: "digits with alphanumeric", allowDigits: true, label: "ab12", tld: "com"},
		{name: "all digits with alphanumeric", allowDigits: true, label: "0000", tld: "com"},
		{name: "bad tld", label: "abc", tld: "c", wantErr: true},
		{name: "punycode tld", label: "abc", tld: "xn--p1ai"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validator{AllowDigits: tt.allowDigits}.Validate(tt.label, tt.tld)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.Error(t, err)
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestValidatorDomainLengthLimit(t *testing.T) {
	label := strings.Repeat("a", 63)
	part := strings.Repeat("b", 60)

	// 63 + 1 + 186 = 250
	fits := strings.Repeat(part+".", 3) + "com"
	require.NoError(t, Validator{}.Validate(label, fits))

	// 63 + 1 + 247 = 311
	tooLong := strings.Repeat(part+".", 4) + "com"
	err := Validator{}.Validate(label, tooLong)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Reason, "exceeds 253")
}

func TestNormalizeTLDs(t *testing.T) {
	got, err := NormalizeTLDs([]string{" COM", ".io.", "com", "рф", "co.uk"})
	require.NoError(t, err)
	assert.Equal(t, []string{"com", "io", "xn--p1ai", "co.uk"}, got)

	_, err = NormalizeTLDs([]string{"c0m"})
	require.Error(t, err)

	_, err = NormalizeTLDs(nil)
	require.Error(t, err)
}
