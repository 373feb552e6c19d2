package compliance

import (
	"context"

	"github.com/thywilljoshua/legal-agent/internal/legal"
	"github.com/thywilljoshua/legal-agent/internal/parse"
	"github.com/thywilljoshua/legal-agent/internal/prompt"
)

// Sender is the part of ai.Client the judge needs.
type Sender interface {
	Send(ctx context.Context, req legal.ModelRequest) (legal.ModelResponse, error)
}

// ModelJudge asks the model whether the scenario satisfies a single section.
// Confidence is the model's certainty in its own verdict, so a pass scores
// confidence and a fail scores 1-confidence.
type ModelJudge struct {
	Builder *prompt.Builder
	Client  Sender
	Options legal.Options
}

func (j ModelJudge) Judge(ctx context.Context, scenario string, s legal.Section) (float64, error) {
	req, err := j.Builder.Build(legal.Task{
		Kind:     legal.TaskCheckCompliance,
		Text:     s.Text(),
		Scenario: scenario,
	}, j.Options)
	if err != nil {
		return 0, err
	}
	resp, err := j.Client.Send(ctx, req)
	if err != nil {
		return 0, err
	}
	verdict, err := parse.Compliance(resp)
	if err != nil {
		return 0, err
	}
	if verdict.Outcome == legal.OutcomePass {
		return verdict.Confidence, nil
	}
	return 1 - verdict.Confidence, nil
}
