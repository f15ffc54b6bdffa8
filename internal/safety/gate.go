// Package safety classifies free text as safe or unsafe using regex blocklists
// followed by an optional toxicity scoring model, and redacts profanity.
package safety

import (
	"context"
	"log/slog"
	"strings"
)

// Config toggles the moderation rules.
type Config struct {
	// Enabled turns model scoring on; regex blocklists apply regardless
	Enabled           bool
	ToxicityThreshold float64
	BlockAdult        bool
	BlockHate         bool
	BlockViolence     bool
}

// DefaultConfig returns the default moderation settings.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		ToxicityThreshold: 0.75,
		BlockAdult:        true,
		BlockHate:         true,
		BlockViolence:     true,
	}
}

// Result is the outcome of moderating one text.
type Result struct {
	Safe   bool               `json:"safe"`
	Scores map[string]float64 `json:"scores"`
	Flags  map[string]bool    `json:"flags"`
}

// Gate applies the moderation rules. It is safe for concurrent use.
type Gate struct {
	config Config
	scorer *LazyScorer
}

// NewGate creates a gate. scorer may be nil, in which case only the blocklists apply.
func NewGate(config Config, scorer *LazyScorer) *Gate {
	return &Gate{config: config, scorer: scorer}
}

// Moderate classifies text. Blocklist hits short-circuit before the scoring model is consulted.
func (g *Gate) Moderate(ctx context.Context, text string) Result {
	flags := g.blocklistFlags(text)
	if strings.TrimSpace(text) == "" {
		return Result{Safe: true, Scores: map[string]float64{}, Flags: flags}
	}

	for _, hit := range flags {
		if hit {
			return Result{Safe: false, Scores: map[string]float64{}, Flags: flags}
		}
	}

	if g.config.Enabled && g.scorer != nil {
		if scorer, err := g.scorer.Get(); err == nil {
			scores, err := scorer.Score(ctx, text)
			if err != nil {
				slog.Warn("safety scoring failed, using blocklists only", "err", err)
			} else {
				return Result{Safe: g.scoresSafe(scores), Scores: scores, Flags: flags}
			}
		}
	}

	return Result{Safe: true, Scores: map[string]float64{}, Flags: flags}
}

// CheckQuery returns an *UnsafeContentError when query fails moderation.
func (g *Gate) CheckQuery(ctx context.Context, query string) error {
	res := g.Moderate(ctx, query)
	if res.Safe {
		return nil
	}
	return &UnsafeContentError{Flags: res.Flags, Scores: res.Scores}
}

func (g *Gate) blocklistFlags(text string) map[string]bool {
	flags := map[string]bool{
		CategoryAdult:    false,
		CategoryHate:     false,
		CategoryViolence: false,
	}
	if strings.TrimSpace(text) == "" {
		return flags
	}

	lower := strings.ToLower(text)
	if g.config.BlockAdult {
		flags[CategoryAdult] = matchAny(adultPatterns, lower)
	}
	if g.config.BlockHate {
		flags[CategoryHate] = matchAny(hatePatterns, lower)
	}
	if g.config.BlockViolence {
		flags[CategoryViolence] = matchAny(violencePatterns, lower)
	}
	return flags
}

func (g *Gate) scoresSafe(scores map[string]float64) bool {
	if scores[LabelToxicity] >= g.config.ToxicityThreshold || scores[LabelSevereToxicity] >= g.config.ToxicityThreshold {
		return false
	}
	if g.config.BlockAdult && scores[LabelSexualExplicit] >= categoryThreshold {
		return false
	}
	if g.config.BlockViolence && scores[LabelThreat] >= categoryThreshold {
		return false
	}
	return true
}
