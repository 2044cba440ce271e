package candidates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakim/snipe/internal/models"
)

func TestEnumerationFourLetters(t *testing.T) {
	e, err := NewEnumeration(4, false)
	require.NoError(t, err)
	require.Equal(t, int64(456_976), e.Len())

	seen := make(map[string]struct{}, e.Len())
	prev := ""
	for _, label := range All(e, 0) {
		if len(label) != 4 || label <= prev {
			t.Fatalf("label %q after %q breaks the ordering", label, prev)
		}
		seen[label] = struct{}{}
		prev = label
	}
	assert.Len(t, seen, 456_976)
}

func TestEnumerationIndexMapping(t *testing.T) {
	e, err := NewEnumeration(4, false)
	require.NoError(t, err)

	assert.Equal(t, "aaaa", e.At(0))
	assert.Equal(t, "aaab", e.At(1))
	assert.Equal(t, "aaaz", e.At(25))
	assert.Equal(t, "aaba", e.At(26))
	assert.Equal(t, "zzzz", e.At(e.Len()-1))

	again, err := NewEnumeration(4, false)
	require.NoError(t, err)
	for _, i := range []int64{0, 17, 4242, 300_000} {
		assert.Equal(t, e.At(i), again.At(i))
	}
}

func TestEnumerationAlphanumeric(t *testing.T) {
	e, err := NewEnumeration(4, true)
	require.NoError(t, err)
	assert.Equal(t, int64(36*36*36*36), e.Len())
	assert.Equal(t, "aaa9", e.At(35))
	assert.Equal(t, "aaba", e.At(36))
}

func TestEnumerationOverflow(t *testing.T) {
	_, err := NewEnumeration(14, true)
	require.Error(t, err)
	_, err = NewEnumeration(0, false)
	require.Error(t, err)
}

func TestAllResumesAtOffset(t *testing.T) {
	e, err := NewEnumeration(2, false)
	require.NoError(t, err)

	var got []string
	for i, label := range All(e, 674) {
		require.Equal(t, e.At(i), label)
		got = append(got, label)
	}
	assert.Equal(t, []string{"zy", "zz"}, got)
}

func TestWordListHasNoDuplicates(t *testing.T) {
	for _, length := range []int{3, 4, 5, 6} {
		dict := Dictionary(length)
		require.NotEmpty(t, dict, "length %d", length)

		src, err := NewWordList(length, false)
		require.NoError(t, err)
		require.Equal(t, int64(len(dict)), src.Len())

		seen := map[string]bool{}
		for _, w := range All(src, 0) {
			require.Len(t, w, length)
			require.False(t, seen[w], "duplicate %q", w)
			seen[w] = true
		}
	}
	assert.Contains(t, Dictionary(5), "cloud")
	assert.Contains(t, Dictionary(5), "gohub")
}

func TestWordsFromReader(t *testing.T) {
	src, digest, err := WordsFromReader(strings.NewReader("Alpha\nbeta\n# skip\nalpha\ngamma\nx-ray\n"), 5, false)
	require.NoError(t, err)
	assert.Len(t, digest, 12)
	assert.Equal(t, int64(2), src.Len())
	assert.Equal(t, "alpha", src.At(0))
	assert.Equal(t, "gamma", src.At(1))

	_, other, err := WordsFromReader(strings.NewReader("omega\n"), 5, false)
	require.NoError(t, err)
	assert.NotEqual(t, digest, other)
}

func TestPronounceableFourLetters(t *testing.T) {
	src, err := NewPronounceable(4, false)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, label := range All(src, 0) {
		require.Len(t, label, 4)
		require.False(t, seen[label], "duplicate %q", label)
		seen[label] = true
	}
	// CVCV comes first with the consonant slot slowest.
	assert.Equal(t, "baba", src.At(0))
	assert.Equal(t, "babe", src.At(1))
	assert.True(t, seen["upxx"], "prefix combinations are included")
}

func TestPronounceableSixLetters(t *testing.T) {
	src, err := NewPronounceable(6, false)
	require.NoError(t, err)

	perTemplate := int64(14 * 14 * 14 * 4 * 4 * 4)
	require.Equal(t, 2*perTemplate, src.Len())
	assert.Equal(t, "bababa", src.At(0))
	assert.Equal(t, "ababac", src.At(perTemplate+1))
}

func TestPronounceableAlphanumericAppendsDigits(t *testing.T) {
	plain, err := NewPronounceable(5, false)
	require.NoError(t, err)
	src, err := NewPronounceable(5, true)
	require.NoError(t, err)

	shorter, err := NewPronounceable(4, false)
	require.NoError(t, err)
	require.Equal(t, plain.Len()+shorter.Len()*10, src.Len())

	assert.Equal(t, plain.At(plain.Len()-1), src.At(plain.Len()-1))
	assert.Equal(t, "baba0", src.At(plain.Len()))
	assert.Equal(t, "baba9", src.At(plain.Len()+9))
}

func TestReadableFilter(t *testing.T) {
	src, err := NewReadable(5, false)
	require.NoError(t, err)
	require.Greater(t, src.Len(), int64(1000))

	prev := ""
	for _, name := range All(src, 0) {
		require.True(t, IsReadable(name), name)
		require.Len(t, name, 5)
		require.Greater(t, name, prev)
		prev = name
	}

	tests := []struct {
		name string
		want bool
	}{
		{"lumen", true},
		{"coder", true},
		{"babab", false},
		{"bravo", false},
		{"kazen", true},
		{"vaxen", true},
		{"dozbe", false},
		{"tarrn", false},
		{"bcdfn", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsReadable(tt.name), tt.name)
	}

	_, err = NewReadable(9, false)
	require.Error(t, err)
}

func TestPairsAreCandidateMajor(t *testing.T) {
	pairs, err := NewPairs(NewList([]string{"abc", "xyz"}), []string{"com", "io"})
	require.NoError(t, err)
	require.Equal(t, int64(4), pairs.Len())

	want := []models.DomainCandidate{
		{Label: "abc", TLD: "com"},
		{Label: "abc", TLD: "io"},
		{Label: "xyz", TLD: "com"},
		{Label: "xyz", TLD: "io"},
	}
	for i, c := range want {
		assert.Equal(t, c, pairs.At(int64(i)))
	}

	slice := pairs.Slice(3, 10)
	require.Len(t, slice, 1)
	assert.Equal(t, int64(3), slice[0].Index)
	assert.Nil(t, pairs.Slice(4, 8))

	_, err = NewPairs(NewList(nil), nil)
	require.Error(t, err)
}

func TestPairsRejectOverflow(t *testing.T) {
	e, err := NewEnumeration(13, false)
	require.NoError(t, err)
	require.Positive(t, e.Len())

	tests := []struct {
		name    string
		tlds    []string
		wantErr bool
	}{
		{"single tld fits", []string{"com"}, false},
		{"three tlds fit", []string{"com", "io", "ai"}, false},
		{"four tlds overflow", []string{"com", "io", "ai", "dev"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, err := NewPairs(e, tt.tlds)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrTooLarge)
				return
			}
			require.NoError(t, err)
			assert.Positive(t, pairs.Len())
		})
	}
}

func TestPronounceableOverflow(t *testing.T) {
	_, err := NewPronounceable(200, false)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestForMode(t *testing.T) {
	src, err := ForMode(models.ScanMode{Kind: models.ModeFull, Length: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(26*26*26), src.Len())

	_, err = ForMode(models.ScanMode{Kind: models.ModeWords, Length: 5, Source: "abc"})
	require.Error(t, err)

	_, err = ForMode(models.ScanMode{Kind: "bogus", Length: 3})
	require.Error(t, err)
}
