// Package candidates generates the ordered label sequences a scan walks.
//
// Every Source maps an index to a label deterministically, so a numeric
// cursor is enough to resume a scan at the exact next candidate.
package candidates

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/hakim/snipe/internal/models"
)

// ErrTooLarge is returned when a sequence length does not fit an int64.
var ErrTooLarge = errors.New("candidates: sequence too large")

// mulLen multiplies two non-negative lengths, failing on overflow.
func mulLen(a, b int64) (int64, error) {
	if b != 0 && a > math.MaxInt64/b {
		return 0, fmt.Errorf("%w: %d x %d", ErrTooLarge, a, b)
	}
	return a * b, nil
}

// addLen adds two non-negative lengths, failing on overflow.
func addLen(a, b int64) (int64, error) {
	if a > math.MaxInt64-b {
		return 0, fmt.Errorf("%w: %d + %d", ErrTooLarge, a, b)
	}
	return a + b, nil
}

// Source is a finite, indexable sequence of candidate labels.
type Source interface {
	Len() int64
	At(i int64) string
}

// All yields (index, label) pairs starting at from.
func All(src Source, from int64) iter.Seq2[int64, string] {
	return func(yield func(int64, string) bool) {
		for i := max(from, 0); i < src.Len(); i++ {
			if !yield(i, src.At(i)) {
				return
			}
		}
	}
}

// List is a Source over a fixed slice of labels.
type List []string

func NewList(labels []string) List { return List(labels) }

func (l List) Len() int64 { return int64(len(l)) }

func (l List) At(i int64) string { return l[i] }

// Pair is one candidate together with its position in the pair sequence.
type Pair struct {
	Index     int64
	Candidate models.DomainCandidate
}

// Pairs is the candidate-major cross product of a Source with a TLD list:
// every TLD of label n is visited before label n+1.
type Pairs struct {
	src  Source
	tlds []string
}

// NewPairs crosses src with tlds. It fails when the pair count would not
// fit an int64 cursor.
func NewPairs(src Source, tlds []string) (*Pairs, error) {
	if len(tlds) == 0 {
		return nil, fmt.Errorf("candidates: at least one tld is required")
	}
	if _, err := mulLen(src.Len(), int64(len(tlds))); err != nil {
		return nil, fmt.Errorf("candidates: %d labels across %d tlds: %w", src.Len(), len(tlds), err)
	}
	return &Pairs{src: src, tlds: append([]string(nil), tlds...)}, nil
}

// Len returns the number of label/TLD pairs.
func (p *Pairs) Len() int64 {
	return p.src.Len() * int64(len(p.tlds))
}

// At returns the pair at index i.
func (p *Pairs) At(i int64) models.DomainCandidate {
	n := int64(len(p.tlds))
	return models.DomainCandidate{Label: p.src.At(i / n), TLD: p.tlds[i%n]}
}

// Slice returns pairs [from, to) clamped to the sequence length.
func (p *Pairs) Slice(from, to int64) []Pair {
	to = min(to, p.Len())
	if from >= to {
		return nil
	}
	out := make([]Pair, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, Pair{Index: i, Candidate: p.At(i)})
	}
	return out
}

// concat chains sources end to end.
type concat struct {
	parts []Source
}

func (c concat) Len() int64 {
	var n int64
	for _, p := range c.parts {
		n += p.Len()
	}
	return n
}

func (c concat) At(i int64) string {
	for _, p := range c.parts {
		if i < p.Len() {
			return p.At(i)
		}
		i -= p.Len()
	}
	panic(fmt.Sprintf("candidates: index %d out of range", i))
}

// digitSuffixed appends every digit to each label of src, digits varying
// fastest.
type digitSuffixed struct {
	src Source
}

func (d digitSuffixed) Len() int64 { return d.src.Len() * int64(len(digits)) }

func (d digitSuffixed) At(i int64) string {
	n := int64(len(digits))
	return d.src.At(i/n) + digits[i%n:i%n+1]
}

// withDigits implements the alphanumeric modifier for pattern modes: the
// base sequence followed by the length-1 sequence with a trailing digit.
func withDigits(base Source, shorter func() (Source, error)) (Source, error) {
	tail, err := shorter()
	if err != nil {
		return nil, err
	}
	n, err := mulLen(tail.Len(), int64(len(digits)))
	if err != nil {
		return nil, err
	}
	if _, err := addLen(base.Len(), n); err != nil {
		return nil, err
	}
	return concat{parts: []Source{base, digitSuffixed{src: tail}}}, nil
}
