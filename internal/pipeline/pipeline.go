// Package pipeline wires prompt building, model calls, response parsing and
// compliance matching into the analysis operations exposed to callers.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thywilljoshua/legal-agent/internal/compliance"
	"github.com/thywilljoshua/legal-agent/internal/legal"
	"github.com/thywilljoshua/legal-agent/internal/parse"
	"github.com/thywilljoshua/legal-agent/internal/prompt"
)

// DefaultRules are the legislative completeness checks run when rule
// checking is requested without an explicit rule list.
var DefaultRules = []string{
	"Act must define key terms",
	"Act must specify eligibility criteria",
	"Act must specify responsibilities of the administering authority",
	"Act must include enforcement or penalties",
	"Act must include payment calculation or entitlement structure",
	"Act must include record-keeping or reporting requirements",
}

type Sender interface {
	Send(ctx context.Context, req legal.ModelRequest) (legal.ModelResponse, error)
}

// Pipeline holds no per-request state and may serve concurrent analyses.
type Pipeline struct {
	builder *prompt.Builder
	client  Sender
	matcher *compliance.Matcher
	opts    legal.Options
	log     *slog.Logger
}

func New(builder *prompt.Builder, client Sender, matcher *compliance.Matcher, opts legal.Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{builder: builder, client: client, matcher: matcher, opts: opts, log: logger}
}

type AnalyzeInput struct {
	Scenario string
	Rules    []string
}

func (p *Pipeline) Summarize(ctx context.Context, doc legal.Document) (legal.Summary, error) {
	resp, err := p.run(ctx, legal.Task{Kind: legal.TaskSummarize, Text: doc.Text()})
	if err != nil {
		return legal.Summary{}, err
	}
	return parse.Summary(resp)
}

func (p *Pipeline) ExtractSections(ctx context.Context, doc legal.Document) (legal.SectionList, error) {
	resp, err := p.run(ctx, legal.Task{Kind: legal.TaskExtractSections, Text: doc.Text()})
	if err != nil {
		return nil, err
	}
	return parse.Sections(resp)
}

// CheckCompliance extracts the document's sections and matches scenario
// against them.
func (p *Pipeline) CheckCompliance(ctx context.Context, doc legal.Document, scenario string) (legal.ComplianceResult, error) {
	if err := requireScenario(scenario); err != nil {
		return legal.ComplianceResult{}, err
	}
	sections, err := p.ExtractSections(ctx, doc)
	if err != nil {
		return legal.ComplianceResult{}, err
	}
	return p.matcher.Check(ctx, scenario, sections)
}

// CheckRules matches each rule against sections, in rule order. A nil rules
// slice means DefaultRules.
func (p *Pipeline) CheckRules(ctx context.Context, sections legal.SectionList, rules []string) ([]legal.RuleCheck, error) {
	if rules == nil {
		rules = DefaultRules
	}
	out := make([]legal.RuleCheck, 0, len(rules))
	for _, rule := range rules {
		if err := requireScenario(rule); err != nil {
			return nil, err
		}
		res, err := p.matcher.Check(ctx, rule, sections)
		if err != nil {
			return nil, err
		}
		out = append(out, legal.RuleCheck{Rule: rule, ComplianceResult: res, Evidence: evidence(sections, res.Matched)})
	}
	return out, nil
}

// evidence quotes the matched sections as "[id] title: summary", in section
// order.
func evidence(sections legal.SectionList, matched []string) string {
	if len(matched) == 0 {
		return legal.NoEvidence
	}
	ids := make(map[string]bool, len(matched))
	for _, id := range matched {
		ids[id] = true
	}
	var quotes []string
	for _, s := range sections {
		if !ids[s.ID] {
			continue
		}
		q := "[" + s.ID + "] " + s.Title
		if s.Summary != "" {
			q += ": " + s.Summary
		}
		quotes = append(quotes, q)
	}
	return strings.Join(quotes, "; ")
}

// Analyze builds the full report. Summary and section extraction run
// concurrently; the one SectionList feeds both the scenario check and the
// rule checks.
func (p *Pipeline) Analyze(ctx context.Context, doc legal.Document, in AnalyzeInput) (legal.Report, error) {
	start := time.Now()
	p.log.Info("pipeline.analyze.start",
		"pages", doc.PageCount(),
		"scenario", in.Scenario != "",
		"rules", len(in.Rules),
	)
	if strings.TrimSpace(doc.Text()) == "" {
		return legal.Report{}, legal.Errorf(legal.KindExtraction, "pipeline.analyze", "document has no extractable text")
	}
	// An absent scenario skips the check; a blank one is a caller error.
	if in.Scenario != "" {
		if err := requireScenario(in.Scenario); err != nil {
			return legal.Report{}, err
		}
	}
	for _, rule := range in.Rules {
		if err := requireScenario(rule); err != nil {
			return legal.Report{}, err
		}
	}

	var report legal.Report
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := p.Summarize(gctx, doc)
		report.Summary = s
		return err
	})
	g.Go(func() error {
		s, err := p.ExtractSections(gctx, doc)
		report.Sections = s
		return err
	})
	if err := g.Wait(); err != nil {
		p.log.Error("pipeline.analyze.failed", "stage", "extract", "kind", string(legal.KindOf(err)), "error", err)
		return legal.Report{}, err
	}

	if in.Scenario != "" {
		res, err := p.matcher.Check(ctx, in.Scenario, report.Sections)
		if err != nil {
			p.log.Error("pipeline.analyze.failed", "stage", "compliance", "kind", string(legal.KindOf(err)), "error", err)
			return legal.Report{}, err
		}
		report.Compliance = &res
	}
	if len(in.Rules) > 0 {
		checks, err := p.CheckRules(ctx, report.Sections, in.Rules)
		if err != nil {
			p.log.Error("pipeline.analyze.failed", "stage", "rules", "kind", string(legal.KindOf(err)), "error", err)
			return legal.Report{}, err
		}
		report.Rules = checks
		score := legal.ScoreRules(checks)
		report.RuleScore = &score
	}

	p.log.Info("pipeline.analyze.done",
		"sections", len(report.Sections),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, task legal.Task) (legal.ModelResponse, error) {
	req, err := p.builder.Build(task, p.opts)
	if err != nil {
		return legal.ModelResponse{}, err
	}
	p.log.Debug("pipeline.task.start", "task", task.Kind.String(), "prompt_len", len(req.Prompt))
	return p.client.Send(ctx, req)
}

func requireScenario(s string) error {
	if strings.TrimSpace(s) == "" {
		return legal.Errorf(legal.KindConfig, "pipeline", "scenario text is empty")
	}
	return nil
}
