package candidates

import (
	"fmt"
	"math"
)

const (
	letters  = "abcdefghijklmnopqrstuvwxyz"
	digits   = "0123456789"
	alphaNum = letters + digits
)

// Enumeration walks every string of a fixed length over the alphabet in
// lexicographic order, the last character varying fastest.
type Enumeration struct {
	alphabet string
	length   int
	total    int64
}

// NewEnumeration returns the full enumeration for length. Lengths whose
// combination count does not fit an int64 are rejected.
func NewEnumeration(length int, alphanumeric bool) (*Enumeration, error) {
	if length < 1 {
		return nil, fmt.Errorf("candidates: length must be positive, got %d", length)
	}
	alphabet := letters
	if alphanumeric {
		alphabet = alphaNum
	}
	base := int64(len(alphabet))
	total := int64(1)
	for range length {
		if total > math.MaxInt64/base {
			return nil, fmt.Errorf("candidates: %d^%d combinations overflow", base, length)
		}
		total *= base
	}
	return &Enumeration{alphabet: alphabet, length: length, total: total}, nil
}

func (e *Enumeration) Len() int64 { return e.total }

// At maps i to its base-N representation over the alphabet.
func (e *Enumeration) At(i int64) string {
	base := int64(len(e.alphabet))
	buf := make([]byte, e.length)
	for pos := e.length - 1; pos >= 0; pos-- {
		buf[pos] = e.alphabet[i%base]
		i /= base
	}
	return string(buf)
}
