package candidates

import (
	"fmt"

	"github.com/hakim/snipe/internal/models"
)

// ForMode builds the built-in Source for a scan mode. Word lists loaded from
// a file go through WordsFromReader instead.
func ForMode(mode models.ScanMode) (Source, error) {
	switch mode.Kind {
	case models.ModeFull:
		return NewEnumeration(mode.Length, mode.Alphanumeric)
	case models.ModePronounceable:
		return NewPronounceable(mode.Length, mode.Alphanumeric)
	case models.ModeWords:
		if mode.Source != "" {
			return nil, fmt.Errorf("candidates: mode %s needs its word list file", mode)
		}
		return NewWordList(mode.Length, mode.Alphanumeric)
	case models.ModeReadable:
		return NewReadable(mode.Length, mode.Alphanumeric)
	default:
		return nil, fmt.Errorf("candidates: unsupported mode %q", mode.Kind)
	}
}
