// Package legal holds the data model shared by the analysis pipeline:
// documents, tasks, model requests/responses, and the structured results
// produced from model output.
package legal

import "strings"

// Document is the ordered page text of one PDF. Empty pages are kept as ""
// so page indices stay stable.
type Document struct {
	Pages []string `json:"pages"`
}

func (d Document) PageCount() int { return len(d.Pages) }

// Text joins all pages in order, separated by a blank line.
func (d Document) Text() string {
	return strings.Join(d.Pages, "\n\n")
}

type TaskKind int

const (
	TaskSummarize TaskKind = iota + 1
	TaskExtractSections
	TaskCheckCompliance
)

func (k TaskKind) String() string {
	switch k {
	case TaskSummarize:
		return "summarize"
	case TaskExtractSections:
		return "extract_sections"
	case TaskCheckCompliance:
		return "check_compliance"
	}
	return "unknown"
}

func (k TaskKind) Valid() bool {
	return k >= TaskSummarize && k <= TaskCheckCompliance
}

// Task is one analysis operation together with its inputs. Scenario is only
// read for TaskCheckCompliance.
type Task struct {
	Kind     TaskKind
	Text     string
	Scenario string
}

type ResponseFormat int

const (
	FormatJSON ResponseFormat = iota
	FormatFreeText
)

func (f ResponseFormat) String() string {
	if f == FormatFreeText {
		return "free_text"
	}
	return "json"
}

// ParseResponseFormat accepts "json" and "free_text"/"text"; anything else is
// reported as not ok.
func ParseResponseFormat(s string) (ResponseFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, true
	case "free_text", "freetext", "text":
		return FormatFreeText, true
	}
	return FormatJSON, false
}

// Options are the generation settings passed to the backend.
type Options struct {
	Temperature     float64        `json:"temperature"`
	MaxOutputTokens int            `json:"max_output_tokens"`
	Format          ResponseFormat `json:"-"`
}

// ModelRequest is a fully rendered request for one task.
type ModelRequest struct {
	Task    TaskKind
	Prompt  string
	Options Options
}

// ModelResponse is the raw backend text for one request. Attempts counts the
// calls made by the client, including the successful one.
type ModelResponse struct {
	Task     TaskKind
	Format   ResponseFormat
	Text     string
	Attempts int
}

// Result is one of Summary, SectionList or ComplianceResult.
type Result interface {
	Shape() TaskKind
}

type Summary struct {
	Purpose     string   `json:"purpose"`
	Obligations []string `json:"obligations"`
	Exceptions  []string `json:"exceptions"`
}

func (Summary) Shape() TaskKind { return TaskSummarize }

type Section struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// Text renders the section as plain text for a follow-up prompt.
func (s Section) Text() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(s.ID)
	b.WriteString("] ")
	b.WriteString(s.Title)
	if s.Summary != "" {
		b.WriteString("\n")
		b.WriteString(s.Summary)
	}
	if len(s.Keywords) > 0 {
		b.WriteString("\nKeywords: ")
		b.WriteString(strings.Join(s.Keywords, ", "))
	}
	return b.String()
}

// SectionList keeps sections in order of appearance in the source text.
type SectionList []Section

func (SectionList) Shape() TaskKind { return TaskExtractSections }

// IDs returns the section identifiers in list order.
func (l SectionList) IDs() []string {
	out := make([]string, len(l))
	for i, s := range l {
		out[i] = s.ID
	}
	return out
}

type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
)

type ComplianceResult struct {
	Outcome    Outcome  `json:"outcome"`
	Matched    []string `json:"matched_sections"`
	Confidence float64  `json:"confidence"`
}

func (ComplianceResult) Shape() TaskKind { return TaskCheckCompliance }

// NoEvidence is the Evidence of a rule no section supports.
const NoEvidence = "No specific evidence found in text."

// RuleCheck is the compliance result for one predefined rule. Evidence quotes
// the matched sections.
type RuleCheck struct {
	Rule string `json:"rule"`
	ComplianceResult
	Evidence string `json:"evidence"`
}

// RuleScore tallies rule checks, e.g. 4 of 6 passed.
type RuleScore struct {
	Passed int `json:"passed"`
	Total  int `json:"total"`
}

// ScoreRules counts the passing checks.
func ScoreRules(checks []RuleCheck) RuleScore {
	score := RuleScore{Total: len(checks)}
	for _, c := range checks {
		if c.Outcome == OutcomePass {
			score.Passed++
		}
	}
	return score
}

// Report is the JSON document returned to callers of the CLI and HTTP surface.
type Report struct {
	Summary    Summary           `json:"summary"`
	Sections   SectionList       `json:"sections"`
	Compliance *ComplianceResult `json:"compliance"`
	Rules      []RuleCheck       `json:"rules,omitempty"`
	RuleScore  *RuleScore        `json:"rule_score,omitempty"`
}
