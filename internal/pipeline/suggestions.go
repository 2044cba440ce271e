package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hakim/snipe/internal/models"
	"github.com/hakim/snipe/internal/scheduler"
	"github.com/hakim/snipe/internal/validate"
)

// Suggestion is one externally proposed domain. In JSON it is either a bare
// string or an object with a score and rationale.
type Suggestion struct {
	Domain    string   `json:"domain"`
	Score     *float64 `json:"score,omitempty"`
	Rationale string   `json:"rationale,omitempty"`
}

// UnmarshalJSON accepts "name.tld" as well as the object form.
func (s *Suggestion) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*s = Suggestion{Domain: name}
		return nil
	}
	type plain Suggestion
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Suggestion(p)
	return nil
}

// DecodeSuggestions reads a JSON array of suggestions, or an object whose
// "domains" field holds that array.
func DecodeSuggestions(r io.Reader) ([]Suggestion, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pipeline: reading suggestions: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("pipeline: suggestions input is empty")
	}

	var out []Suggestion
	if data[0] == '{' {
		var wrapped struct {
			Domains []Suggestion `json:"domains"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("pipeline: decoding suggestions: %w", err)
		}
		out = wrapped.Domains
	} else if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("pipeline: decoding suggestions: %w", err)
	}
	return out, nil
}

// SuggestionConfig controls CheckSuggestions.
type SuggestionConfig struct {
	Rate          models.RateLimitConfig
	RequeueLimit  int
	MaxBatchDelay time.Duration

	// OutputPath, when set, receives the results as a suggestions-mode checkpoint.
	OutputPath string
}

// InvalidSuggestion is an input that failed validation and was not probed.
type InvalidSuggestion struct {
	Domain string
	Err    error
}

// SuggestionReport is the outcome of CheckSuggestions.
type SuggestionReport struct {
	Results    []models.ScanResult
	Invalid    []InvalidSuggestion
	Checkpoint *models.Checkpoint
	Path       string
}

// CheckSuggestions probes the given domains through the scheduler and
// returns their results in input order with score and rationale attached.
// Duplicates are checked once; the first occurrence wins.
func CheckSuggestions(ctx context.Context, sugs []Suggestion, cfg SuggestionConfig, d Deps) (*SuggestionReport, error) {
	if d.Checker == nil {
		return nil, fmt.Errorf("pipeline: checker is required")
	}
	if cfg.Rate.Concurrency < 1 {
		return nil, fmt.Errorf("pipeline: concurrency must be at least 1, got %d", cfg.Rate.Concurrency)
	}

	report := &SuggestionReport{}
	v := validate.Validator{AllowDigits: true}

	var (
		batch []models.DomainCandidate
		meta  []Suggestion
		tlds  []string
	)
	seen := make(map[string]bool, len(sugs))
	seenTLD := make(map[string]bool)
	for _, s := range sugs {
		c := splitDomain(s.Domain)
		tld, err := validate.NormalizeTLD(c.TLD)
		if err == nil {
			c.TLD = tld
			err = v.Validate(c.Label, c.TLD)
		}
		if err != nil {
			report.Invalid = append(report.Invalid, InvalidSuggestion{Domain: s.Domain, Err: err})
			continue
		}
		if seen[c.Name()] {
			continue
		}
		seen[c.Name()] = true
		if !seenTLD[c.TLD] {
			seenTLD[c.TLD] = true
			tlds = append(tlds, c.TLD)
		}
		batch = append(batch, c)
		meta = append(meta, s)
	}

	sched := scheduler.New(scheduler.Options{
		Concurrency:   cfg.Rate.Concurrency,
		BatchDelay:    cfg.Rate.BatchDelay(),
		MaxBatchDelay: cfg.MaxBatchDelay,
		RequeueLimit:  cfg.RequeueLimit,
	}, d.Log)

	outcomes, runErr := sched.Run(ctx, batch, d.Checker.Check)
	report.Results = make([]models.ScanResult, len(outcomes))
	for i, o := range outcomes {
		r := o.Result
		r.Score = meta[i].Score
		r.Rationale = meta[i].Rationale
		report.Results[i] = r
	}

	if cfg.OutputPath != "" && len(report.Results) > 0 {
		if d.Checkpoints == nil {
			return report, fmt.Errorf("pipeline: checkpoint store is required to save suggestions")
		}
		mode := models.ScanMode{Kind: models.ModeSuggestions}
		cp := models.NewCheckpoint(mode, tlds, cfg.Rate, int64(len(batch)))
		cp.Results = append(cp.Results, report.Results...)
		for _, r := range report.Results {
			cp.Counts.Add(r)
		}
		cp.Counts.Skipped = int64(len(report.Invalid))
		cp.Cursor = int64(len(report.Results))
		cp.Complete = runErr == nil
		if err := d.Checkpoints.Save(cfg.OutputPath, cp); err != nil {
			return report, fmt.Errorf("pipeline: saving suggestions: %w", err)
		}
		report.Checkpoint = cp
		report.Path = cfg.OutputPath
	}

	return report, runErr
}
