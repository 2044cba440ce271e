package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	regexp "github.com/wasilibs/go-re2"

	"github.com/hakim/snipe/internal/models"
)

const maxKeyLen = 96

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-]+`)

// SanitizeName replaces characters unsafe for filesystem paths
// Allows alphanumeric, dots, and hyphens. Replaces everything else with underscore.
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// CheckpointKey derives the deterministic checkpoint name for a scan
// Format: {mode}_{tld-tld}_c{concurrency}_r{delayMs}
// Keys that would be unwieldy are shortened with a digest of the full form.
func CheckpointKey(mode models.ScanMode, tlds []string, rate models.RateLimitConfig) string {
	full := fmt.Sprintf("%s_%s_c%d_r%d", mode, strings.Join(tlds, "-"), rate.Concurrency, rate.BatchDelayMs)
	key := SanitizeName(full)
	if len(key) <= maxKeyLen {
		return key
	}
	sum := sha256.Sum256([]byte(full))
	return SanitizeName(mode.String()) + "_" + hex.EncodeToString(sum[:8])
}

// CheckpointPath returns the checkpoint file for a key
func CheckpointPath(dir, key string) string {
	return filepath.Join(dir, key+".json")
}

// ResultsPath generates a timestamped results file path
// Format: {dir}/{prefix}_{YYYYMMDD}_{HHMMSS}.json
func ResultsPath(dir, prefix string, t time.Time) string {
	name := fmt.Sprintf("%s_%s.json", SanitizeName(prefix), t.Format("20060102_150405"))
	return filepath.Join(dir, name)
}

// ReportPath returns the markdown report path next to a checkpoint
func ReportPath(checkpointPath string) string {
	return strings.TrimSuffix(checkpointPath, filepath.Ext(checkpointPath)) + ".md"
}

// EnsureDir creates a directory and all parent directories if they don't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
