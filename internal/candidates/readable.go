package candidates

import (
	"fmt"
	"slices"
	"strings"
)

var (
	readableConsonants = chars("bcdfghklmnprstvz")
	readableVowels     = chars("aeiou")
	clusters           = slot{"br", "bl", "cr", "cl", "dr", "fr", "gr", "pr", "pl", "tr", "st", "sl"}
	weakVowel          = slot{"y"}
	designChars        = slot{"x", "z"}

	bannedSequences = []string{"vv", "rr", "xx", "qq", "yy", "vx", "xv", "xr", "rx", "rq", "qr"}
)

// NewReadable returns brandable labels (CVCVC and friends) that pass the
// readability filter, sorted. Supported lengths are 4 through 6.
func NewReadable(length int, alphanumeric bool) (Source, error) {
	base, err := readable(length)
	if err != nil || !alphanumeric {
		return base, err
	}
	if length-1 < 4 {
		return nil, fmt.Errorf("candidates: alphanumeric readable scans need length >= 5")
	}
	return withDigits(base, func() (Source, error) { return readable(length - 1) })
}

func readable(length int) (Source, error) {
	if length < 4 || length > 6 {
		return nil, fmt.Errorf("candidates: readable labels support lengths 4-6, got %d", length)
	}
	c, v := readableConsonants, readableVowels
	templates := alternating(length, c, v)
	for _, t := range alternating(length-2, c, v)[1:] {
		templates = append(templates, append(template{clusters}, t...))
	}
	if length == 5 {
		templates = append(templates,
			template{c, v, c, weakVowel, c},
			template{c, v, designChars, v, c},
		)
	}
	names, err := materialize(templates, IsReadable)
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

// IsReadable applies the readability rules: at least two vowels (y counts
// half), no awkward digraphs, no doubled letters, no trailing y, an n/r/s/l
// ending, and no x or z in front of a consonant.
func IsReadable(name string) bool {
	score := 0.0
	for i := 0; i < len(name); i++ {
		switch {
		case strings.IndexByte("aeiou", name[i]) >= 0:
			score++
		case name[i] == 'y':
			score += 0.5
		}
	}
	if score < 2 {
		return false
	}
	for _, seq := range bannedSequences {
		if strings.Contains(name, seq) {
			return false
		}
	}
	if strings.IndexByte("nrsl", name[len(name)-1]) < 0 {
		return false
	}
	for i := 0; i+1 < len(name); i++ {
		if name[i] == name[i+1] {
			return false
		}
		if (name[i] == 'x' || name[i] == 'z') && strings.IndexByte("bcdfghklmnprstvz", name[i+1]) >= 0 {
			return false
		}
	}
	return true
}
