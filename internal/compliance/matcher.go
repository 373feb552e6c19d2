// Package compliance decides whether a scenario satisfies a set of extracted
// sections. Each section is scored as a weighted blend of keyword overlap and
// a semantic judgment; sections scoring strictly above Threshold are matched.
package compliance

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/thywilljoshua/legal-agent/internal/legal"
)

const (
	DefaultThreshold      = 0.5
	DefaultKeywordWeight  = 0.4
	DefaultSemanticWeight = 0.6
	DefaultConcurrency    = 4

	// StemLength is the shared prefix, in runes, at which two words are
	// treated as the same stem ("reside"/"residence").
	StemLength = 5
)

// Judge scores how well a scenario satisfies one section, in [0,1].
type Judge interface {
	Judge(ctx context.Context, scenario string, s legal.Section) (float64, error)
}

type JudgeFunc func(ctx context.Context, scenario string, s legal.Section) (float64, error)

func (f JudgeFunc) Judge(ctx context.Context, scenario string, s legal.Section) (float64, error) {
	return f(ctx, scenario, s)
}

type Config struct {
	Threshold      float64 `yaml:"threshold"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	Concurrency    int     `yaml:"concurrency"`
}

func DefaultConfig() Config {
	return Config{
		Threshold:      DefaultThreshold,
		KeywordWeight:  DefaultKeywordWeight,
		SemanticWeight: DefaultSemanticWeight,
		Concurrency:    DefaultConcurrency,
	}
}

// Validate rejects weights and thresholds the scoring formula cannot use.
func (c Config) Validate() error {
	const op = "compliance.config"
	switch {
	case math.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold >= 1:
		return legal.Errorf(legal.KindConfig, op, "threshold %v outside [0,1)", c.Threshold)
	case math.IsNaN(c.KeywordWeight) || c.KeywordWeight < 0:
		return legal.Errorf(legal.KindConfig, op, "keyword weight %v is negative", c.KeywordWeight)
	case math.IsNaN(c.SemanticWeight) || c.SemanticWeight < 0:
		return legal.Errorf(legal.KindConfig, op, "semantic weight %v is negative", c.SemanticWeight)
	case c.KeywordWeight+c.SemanticWeight == 0:
		return legal.Errorf(legal.KindConfig, op, "keyword and semantic weights are both zero")
	case c.Concurrency < 0:
		return legal.Errorf(legal.KindConfig, op, "concurrency %d is negative", c.Concurrency)
	}
	return nil
}

type Matcher struct {
	judge Judge
	cfg   Config
	log   *slog.Logger
}

// NewMatcher normalises the weights in cfg to sum to one. cfg must already
// be valid.
func NewMatcher(judge Judge, cfg Config, logger *slog.Logger) *Matcher {
	if sum := cfg.KeywordWeight + cfg.SemanticWeight; sum > 0 {
		cfg.KeywordWeight /= sum
		cfg.SemanticWeight /= sum
	} else {
		cfg.KeywordWeight, cfg.SemanticWeight = DefaultKeywordWeight, DefaultSemanticWeight
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{judge: judge, cfg: cfg, log: logger}
}

func (m *Matcher) Config() Config { return m.cfg }

// Check scores every section against scenario. The outcome is pass iff at
// least one section is matched; confidence is the highest matched score, or
// 0 when nothing matched. Matched ids follow the order of sections.
func (m *Matcher) Check(ctx context.Context, scenario string, sections legal.SectionList) (legal.ComplianceResult, error) {
	start := time.Now()
	result := legal.ComplianceResult{Outcome: legal.OutcomeFail, Matched: []string{}}
	if len(sections) == 0 {
		m.log.Info("compliance.check.empty")
		return result, nil
	}

	scores, err := m.Scores(ctx, scenario, sections)
	if err != nil {
		return legal.ComplianceResult{}, err
	}
	for i, score := range scores {
		if score <= m.cfg.Threshold {
			continue
		}
		result.Matched = append(result.Matched, sections[i].ID)
		if score > result.Confidence {
			result.Confidence = score
		}
	}
	if len(result.Matched) > 0 {
		result.Outcome = legal.OutcomePass
	}

	m.log.Info("compliance.check.done",
		"sections", len(sections),
		"matched", len(result.Matched),
		"outcome", string(result.Outcome),
		"confidence", result.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// Scores returns the score of each section, index-aligned with sections.
// Sections are judged concurrently; the first judge error cancels the rest
// and is returned as is.
func (m *Matcher) Scores(ctx context.Context, scenario string, sections legal.SectionList) ([]float64, error) {
	scores := make([]float64, len(sections))
	words := tokenize(scenario)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for i, s := range sections {
		g.Go(func() error {
			var semantic float64
			if m.cfg.SemanticWeight > 0 {
				v, err := m.judge.Judge(gctx, scenario, s)
				if err != nil {
					return err
				}
				semantic = clamp01(v)
			}
			overlap := KeywordOverlap(words, s.Keywords)
			scores[i] = m.cfg.KeywordWeight*overlap + m.cfg.SemanticWeight*semantic
			m.log.Debug("compliance.section.scored",
				"section", s.ID,
				"overlap", overlap,
				"semantic", semantic,
				"score", scores[i],
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// KeywordOverlap is the fraction of keywords found among scenarioWords. A
// multi-word keyword is found when each of its words is.
func KeywordOverlap(scenarioWords []string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	found := 0
	for _, k := range keywords {
		parts := tokenize(k)
		if len(parts) == 0 {
			continue
		}
		all := true
		for _, p := range parts {
			if !containsWord(scenarioWords, p) {
				all = false
				break
			}
		}
		if all {
			found++
		}
	}
	return float64(found) / float64(len(keywords))
}

func containsWord(words []string, w string) bool {
	for _, x := range words {
		if x == w || sameStem(x, w) {
			return true
		}
	}
	return false
}

func sameStem(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < StemLength || len(rb) < StemLength {
		return false
	}
	for i := 0; i < StemLength; i++ {
		if ra[i] != rb[i] {
			return false
		}
	}
	return true
}

// tokenize lowercases s and splits it on anything that is not a letter or
// digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
