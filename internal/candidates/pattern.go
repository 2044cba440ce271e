package candidates

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// slot lists the strings one template position can take; all choices of a
// slot have the same width.
type slot []string

type template []slot

func chars(s string) slot {
	out := make(slot, len(s))
	for i := range s {
		out[i] = s[i : i+1]
	}
	return out
}

// size saturates at math.MaxInt64 so callers summing sizes can detect overflow.
func (t template) size() int64 {
	n := int64(1)
	for _, s := range t {
		next, err := mulLen(n, int64(len(s)))
		if err != nil {
			return math.MaxInt64
		}
		n = next
	}
	return n
}

// at expands the i-th combination, first slot slowest.
func (t template) at(i int64) string {
	parts := make([]string, len(t))
	for k := len(t) - 1; k >= 0; k-- {
		n := int64(len(t[k]))
		parts[k] = t[k][i%n]
		i /= n
	}
	return strings.Join(parts, "")
}

// alternating returns the consonant-first and vowel-first templates.
func alternating(length int, c, v slot) []template {
	a, b := make(template, length), make(template, length)
	for i := range length {
		if i%2 == 0 {
			a[i], b[i] = c, v
		} else {
			a[i], b[i] = v, c
		}
	}
	return []template{a, b}
}

// templateSource indexes lazily across disjoint templates.
type templateSource struct {
	templates []template
	offsets   []int64
	total     int64
}

func newTemplateSource(templates []template) (*templateSource, error) {
	s := &templateSource{templates: templates, offsets: make([]int64, len(templates))}
	for i, t := range templates {
		s.offsets[i] = s.total
		total, err := addLen(s.total, t.size())
		if err != nil {
			return nil, err
		}
		s.total = total
	}
	return s, nil
}

func (s *templateSource) Len() int64 { return s.total }

func (s *templateSource) At(i int64) string {
	k := sort.Search(len(s.offsets), func(j int) bool { return s.offsets[j] > i }) - 1
	return s.templates[k].at(i - s.offsets[k])
}

// maxMaterialized bounds sources that must be expanded up front.
const maxMaterialized = 4_000_000

// materialize expands templates in order, keeping the first occurrence of
// each label and dropping those keep rejects.
func materialize(templates []template, keep func(string) bool) (List, error) {
	var total int64
	for _, t := range templates {
		sum, err := addLen(total, t.size())
		if err != nil {
			return nil, err
		}
		total = sum
	}
	if total > maxMaterialized {
		return nil, fmt.Errorf("candidates: %d combinations exceed the %d limit", total, maxMaterialized)
	}
	seen := make(map[string]struct{}, total)
	out := make(List, 0, total)
	for _, t := range templates {
		for i := range t.size() {
			label := t.at(i)
			if _, dup := seen[label]; dup {
				continue
			}
			seen[label] = struct{}{}
			if keep == nil || keep(label) {
				out = append(out, label)
			}
		}
	}
	return out, nil
}

var (
	vowels         = chars("aeiou")
	consonants     = chars("bcdfghjklmnprstvwxyz")
	coreVowels     = chars("aeio")
	coreConsonants = chars("bcdfghlmnprstw")
	anyLetter      = chars(letters)

	valuablePrefixes = slot{
		"go", "my", "ai", "be", "we", "up", "on", "in", "to", "do",
		"no", "so", "hi", "ok", "io", "ex", "re", "co", "un", "de",
	}
	valuableSuffixes = slot{
		"ly", "io", "ai", "go", "up", "it", "me", "us", "fy", "oo",
		"er", "ed", "en", "ey", "ie", "ty", "by", "ry", "ny", "xy",
	}
)

// NewPronounceable returns labels built from consonant/vowel templates.
// Four-letter scans add valuable prefix and suffix combinations, so that
// length is deduplicated up front; lengths of five or more switch to a
// smaller core alphabet.
func NewPronounceable(length int, alphanumeric bool) (Source, error) {
	base, err := pronounceable(length)
	if err != nil || !alphanumeric || length < 2 {
		return base, err
	}
	return withDigits(base, func() (Source, error) { return pronounceable(length - 1) })
}

func pronounceable(length int) (Source, error) {
	if length < 1 {
		return nil, fmt.Errorf("candidates: length must be positive, got %d", length)
	}
	c, v := consonants, vowels
	if length >= 5 {
		c, v = coreConsonants, coreVowels
	}
	if length != 4 {
		src, err := newTemplateSource(alternating(length, c, v))
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	templates := []template{
		{c, v, c, v},
		{c, v, c, c},
		{c, c, v, c},
		{c, v, v, c},
		{v, c, v, c},
		{valuablePrefixes, anyLetter, anyLetter},
		{anyLetter, anyLetter, valuableSuffixes},
	}
	return materialize(templates, nil)
}
