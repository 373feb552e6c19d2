// Package prompt renders analysis tasks into model requests.
package prompt

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/thywilljoshua/legal-agent/internal/legal"
)

// DefaultMaxInputChars bounds the document text sent in one request.
const DefaultMaxInputChars = 30000

const preamble = "You are a legal AI agent analyzing an Act of Parliament."

// Builder is stateless apart from its truncation limit; Build is pure.
type Builder struct {
	MaxInputChars int
}

func NewBuilder(maxInputChars int) *Builder {
	if maxInputChars <= 0 {
		maxInputChars = DefaultMaxInputChars
	}
	return &Builder{MaxInputChars: maxInputChars}
}

// ValidateOptions rejects option sets the backend cannot honour.
func ValidateOptions(opts legal.Options) error {
	if opts.MaxOutputTokens <= 0 {
		return legal.Errorf(legal.KindConfig, "prompt.options", "max output tokens must be > 0, got %d", opts.MaxOutputTokens)
	}
	if math.IsNaN(opts.Temperature) || opts.Temperature < 0 || opts.Temperature > 1 {
		return legal.Errorf(legal.KindConfig, "prompt.options", "temperature must be within [0,1], got %v", opts.Temperature)
	}
	if opts.Format != legal.FormatJSON && opts.Format != legal.FormatFreeText {
		return legal.Errorf(legal.KindConfig, "prompt.options", "unknown response format %d", opts.Format)
	}
	return nil
}

// Build renders task into a request. Identical inputs always produce a
// byte-identical prompt.
func (b *Builder) Build(task legal.Task, opts legal.Options) (legal.ModelRequest, error) {
	if err := ValidateOptions(opts); err != nil {
		return legal.ModelRequest{}, err
	}

	text := truncate(strings.TrimSpace(task.Text), b.limit())
	var body string
	switch task.Kind {
	case legal.TaskSummarize:
		body = summarizePrompt(text)
	case legal.TaskExtractSections:
		body = sectionsPrompt(text)
	case legal.TaskCheckCompliance:
		scenario := strings.TrimSpace(task.Scenario)
		if scenario == "" {
			return legal.ModelRequest{}, legal.Errorf(legal.KindConfig, "prompt.build", "compliance check requires a scenario")
		}
		body = compliancePrompt(text, scenario)
	default:
		return legal.ModelRequest{}, legal.Errorf(legal.KindConfig, "prompt.build", "unknown task kind %d", task.Kind)
	}

	return legal.ModelRequest{
		Task:    task.Kind,
		Prompt:  body + formatFooter(opts.Format),
		Options: opts,
	}, nil
}

func (b *Builder) limit() int {
	if b == nil || b.MaxInputChars <= 0 {
		return DefaultMaxInputChars
	}
	return b.MaxInputChars
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func formatFooter(f legal.ResponseFormat) string {
	if f == legal.FormatFreeText {
		return "\n\nInclude the JSON object described above in your answer. Any commentary must come after it."
	}
	return "\n\nReturn ONLY raw JSON. No markdown code fences, no explanations."
}
