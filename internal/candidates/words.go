package candidates

import (
	"bufio"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strings"
)

//go:embed words.txt
var curatedWords string

var (
	wordPrefixes = []string{
		"go", "my", "we", "be", "do", "up", "on", "in", "to", "so",
		"ai", "io", "ex", "re", "co", "un", "de", "bi", "hi", "ok",
	}
	singlePrefixes = []string{"i", "e", "u", "x", "z", "o", "a", "n", "v", "k"}
	wordSuffixes   = []string{"ly", "fy", "io", "ai", "go", "up", "it", "er", "en", "oo"}

	roots3 = []string{
		"app", "bot", "box", "buy", "car", "dev", "doc", "fit", "fly", "get",
		"hub", "job", "key", "lab", "map", "net", "pay", "pet", "pod", "run",
		"set", "sky", "tag", "tap", "top", "van", "web", "win", "zen", "zip",
		"ace", "aim", "air", "art", "bay", "bit", "biz", "cab", "cap", "day",
		"dot", "eco", "fan", "fin", "fix", "fun", "gem", "geo", "gym", "hex",
		"ice", "ink", "jet", "joy", "kit", "lux", "max", "mix", "neo", "now",
		"orb", "owl", "pad", "pen", "pix", "pop", "pro", "ray", "sol", "spa",
		"sun", "tab", "tea", "ton", "toy", "via", "vox", "way", "wiz", "zap",
	}
	roots4 = []string{
		"fish", "bird", "wolf", "bear", "lion", "hawk", "leaf", "tree", "rain", "wave",
		"moon", "star", "code", "data", "byte", "link", "node", "sync", "ping", "scan",
		"mail", "chat", "call", "text", "send", "load", "save", "file", "chip", "wire",
		"shop", "mart", "bank", "cash", "coin", "deal", "work", "task", "desk", "book",
		"note", "plan", "team", "crew", "life", "mind", "care", "ride", "trip", "path",
		"zone", "land", "city", "jump", "dash", "bolt", "zoom", "spin", "flip", "snap",
	}
)

// Dictionary returns the word-list labels of the given length: the curated
// words plus prefix/root/suffix combinations, sorted and without duplicates.
func Dictionary(length int) []string {
	words := parseWords(strings.NewReader(curatedWords))
	for _, p := range wordPrefixes {
		for _, r := range roots3 {
			words = append(words, p+r)
		}
	}
	for _, r := range roots3 {
		for _, s := range wordSuffixes {
			words = append(words, r+s)
		}
	}
	for _, p := range singlePrefixes {
		for _, r := range roots4 {
			words = append(words, p+r)
		}
	}
	return finalizeWords(words, length)
}

// NewWordList returns the built-in dictionary source for length.
func NewWordList(length int, alphanumeric bool) (Source, error) {
	return wordSource(Dictionary, length, alphanumeric)
}

// WordsFromReader builds a word-list source from one word per line. The
// returned digest identifies the list content so checkpoints can tell two
// files apart.
func WordsFromReader(r io.Reader, length int, alphanumeric bool) (Source, string, error) {
	words := parseWords(r)
	if len(words) == 0 {
		return nil, "", fmt.Errorf("candidates: word list is empty")
	}
	sorted := finalizeWords(words, 0)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	digest := hex.EncodeToString(sum[:])[:12]

	dict := func(n int) []string { return finalizeWords(sorted, n) }
	src, err := wordSource(dict, length, alphanumeric)
	return src, digest, err
}

func wordSource(dict func(int) []string, length int, alphanumeric bool) (Source, error) {
	base := List(dict(length))
	if len(base) == 0 {
		return nil, fmt.Errorf("candidates: no words of length %d", length)
	}
	if !alphanumeric || length < 2 {
		return base, nil
	}
	return withDigits(base, func() (Source, error) {
		shorter := List(dict(length - 1))
		if len(shorter) == 0 {
			return nil, fmt.Errorf("candidates: no words of length %d for digit suffixes", length-1)
		}
		return shorter, nil
	})
}

func parseWords(r io.Reader) []string {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words
}

// finalizeWords keeps lowercase ASCII words of the given length (any length
// when 0), sorted and deduplicated.
func finalizeWords(words []string, length int) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if length > 0 && len(w) != length {
			continue
		}
		if strings.Trim(w, letters) != "" {
			continue
		}
		out = append(out, w)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
