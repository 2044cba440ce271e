package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/hakim/snipe/internal/candidates"
	"github.com/hakim/snipe/internal/models"
)

// Preset is a named scan mode selected by a single CLI flag.
type Preset struct {
	Name        string
	Flag        string // CLI flag that selects it; empty for the default
	Description string
	Mode        models.ScanMode
}

// builtinPresets is the registry of all known presets.
var builtinPresets = map[string]Preset{
	"full4": {
		Name:        "full4",
		Description: "Every 4-letter label, aaaa through zzzz",
		Mode:        models.ScanMode{Kind: models.ModeFull, Length: 4},
	},
	"words5": {
		Name:        "words5",
		Flag:        "words",
		Description: "5-letter dictionary words",
		Mode:        models.ScanMode{Kind: models.ModeWords, Length: 5},
	},
	"readable5": {
		Name:        "readable5",
		Flag:        "readable",
		Description: "5-letter labels that read like real words",
		Mode:        models.ScanMode{Kind: models.ModeReadable, Length: 5},
	},
	"pronounceable4": {
		Name:        "pronounceable4",
		Flag:        "pronounceable",
		Description: "4-letter consonant/vowel patterns plus valuable prefixes and suffixes",
		Mode:        models.ScanMode{Kind: models.ModePronounceable, Length: 4},
	},
	"pronounceable6": {
		Name:        "pronounceable6",
		Flag:        "six",
		Description: "6-letter alternating consonant/vowel patterns",
		Mode:        models.ScanMode{Kind: models.ModePronounceable, Length: 6},
	},
}

// BuiltinPresets returns the available presets sorted by name.
func BuiltinPresets() []Preset {
	out := make([]Preset, 0, len(builtinPresets))
	for _, p := range builtinPresets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetPreset returns a preset by name, or an error if not found.
func GetPreset(name string) (*Preset, error) {
	p, ok := builtinPresets[name]
	if !ok {
		names := make([]string, 0, len(builtinPresets))
		for _, b := range BuiltinPresets() {
			names = append(names, b.Name)
		}
		return nil, fmt.Errorf("unknown preset %q, available: %s", name, strings.Join(names, ", "))
	}
	cp := p
	return &cp, nil
}

// ModeFlags are the raw mode-selection flags of the scan command.
type ModeFlags struct {
	Length    int
	LengthSet bool // --length was given explicitly

	Words         bool
	Readable      bool
	Pronounceable bool
	Six           bool
	Alphanumeric  bool

	// WordsFile implies words mode.
	WordsFile string
}

// ResolveMode turns the mode flags into a ScanMode. At most one mode flag
// may be set; an explicit --length overrides the preset's length.
func ResolveMode(f ModeFlags) (models.ScanMode, error) {
	var picked []string
	if f.Words {
		picked = append(picked, "words5")
	}
	if f.Readable {
		picked = append(picked, "readable5")
	}
	if f.Pronounceable {
		picked = append(picked, "pronounceable4")
	}
	if f.Six {
		picked = append(picked, "pronounceable6")
	}
	if f.WordsFile != "" && !f.Words {
		if len(picked) > 0 {
			return models.ScanMode{}, fmt.Errorf("pipeline: --words-file cannot be combined with %s", picked[0])
		}
		picked = append(picked, "words5")
	}
	if len(picked) > 1 {
		return models.ScanMode{}, fmt.Errorf("pipeline: mode flags are mutually exclusive, got %s", strings.Join(picked, " and "))
	}

	name := "full4"
	if len(picked) == 1 {
		name = picked[0]
	}
	mode := builtinPresets[name].Mode
	if f.LengthSet {
		if f.Length < 1 || f.Length > 63 {
			return models.ScanMode{}, fmt.Errorf("pipeline: length must be between 1 and 63, got %d", f.Length)
		}
		mode.Length = f.Length
	}
	mode.Alphanumeric = f.Alphanumeric
	return mode, nil
}

// LoadWordList reads a one-word-per-line file and returns its source with
// mode.Source set to the list digest.
func LoadWordList(fs afero.Fs, path string, mode models.ScanMode) (candidates.Source, models.ScanMode, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, mode, fmt.Errorf("pipeline: opening word list: %w", err)
	}
	defer f.Close()

	src, digest, err := candidates.WordsFromReader(f, mode.Length, mode.Alphanumeric)
	if err != nil {
		return nil, mode, fmt.Errorf("pipeline: loading %s: %w", path, err)
	}
	mode.Kind = models.ModeWords
	mode.Source = digest
	return src, mode, nil
}
