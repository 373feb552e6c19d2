package parse

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/thywilljoshua/legal-agent/internal/legal"
)

func jsonResp(task legal.TaskKind, text string) legal.ModelResponse {
	return legal.ModelResponse{Task: task, Format: legal.FormatJSON, Text: text, Attempts: 1}
}

func TestSummary(t *testing.T) {
	resp := jsonResp(legal.TaskSummarize, `{
		"purpose": " Provides for universal credit. ",
		"obligations": ["Claimants must accept a claimant commitment.", " "],
		"exceptions": [],
		"notes": "ignored"
	}`)
	got, err := Summary(resp)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := legal.Summary{
		Purpose:     "Provides for universal credit.",
		Obligations: []string{"Claimants must accept a claimant commitment."},
		Exceptions:  []string{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSummary_MissingField(t *testing.T) {
	_, err := Summary(jsonResp(legal.TaskSummarize, `{"purpose":"x","obligations":[]}`))
	if !errors.Is(err, legal.ErrParse) {
		t.Fatalf("want ParseError, got %v", err)
	}
	var le *legal.Error
	if errors.As(err, &le) && le.Task != legal.TaskSummarize {
		t.Errorf("error task = %s", le.Task)
	}
}

func TestSections(t *testing.T) {
	resp := jsonResp(legal.TaskExtractSections, "```json\n"+`{"sections":[
		{"id":"s1","title":"Universal credit","summary":"Creates the benefit.","keywords":["Benefit","benefit"," ","entitlement"]},
		{"id":"s4","title":"Basic conditions","summary":"Who may claim.","keywords":["eligibility","residence","Residence"]}
	]}`+"\n```")
	got, err := Sections(resp)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := legal.SectionList{
		{ID: "s1", Title: "Universal credit", Summary: "Creates the benefit.", Keywords: []string{"Benefit", "entitlement"}},
		{ID: "s4", Title: "Basic conditions", Summary: "Who may claim.", Keywords: []string{"eligibility", "residence"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sections mismatch (-want +got):\n%s", diff)
	}
}

func TestSections_BareArray(t *testing.T) {
	got, err := Sections(jsonResp(legal.TaskExtractSections,
		`[{"id":"1","title":"Interpretation","summary":"","keywords":["definitions"]}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("got %+v", got)
	}
}

// A report's own JSON must parse back; nil lists marshal as null.
func TestSections_RoundTrip(t *testing.T) {
	want := legal.SectionList{
		{ID: "s1", Title: "Interpretation", Summary: "Defines terms.", Keywords: []string{"definitions"}},
		{ID: "s2", Title: "Commencement", Summary: "When the Act applies."},
	}
	b, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Sections(jsonResp(legal.TaskExtractSections, string(b)))
	if err != nil {
		t.Fatalf("parse %s: %v", b, err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
	if got[1].Keywords == nil {
		t.Errorf("null keywords must decode to an empty list")
	}
}

func TestSummaryAndCompliance_RoundTrip(t *testing.T) {
	summary := legal.Summary{Purpose: "Provides for universal credit."}
	b, err := json.Marshal(summary)
	if err != nil {
		t.Fatal(err)
	}
	gotSummary, err := Summary(jsonResp(legal.TaskSummarize, string(b)))
	if err != nil {
		t.Fatalf("parse %s: %v", b, err)
	}
	if diff := cmp.Diff(summary, gotSummary, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("summary round trip (-want +got):\n%s", diff)
	}

	verdict := legal.ComplianceResult{Outcome: legal.OutcomeFail}
	if b, err = json.Marshal(verdict); err != nil {
		t.Fatal(err)
	}
	gotVerdict, err := Compliance(jsonResp(legal.TaskCheckCompliance, string(b)))
	if err != nil {
		t.Fatalf("parse %s: %v", b, err)
	}
	if diff := cmp.Diff(verdict, gotVerdict, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("compliance round trip (-want +got):\n%s", diff)
	}
}

func TestSections_FreeTextBareArray(t *testing.T) {
	resp := legal.ModelResponse{
		Task:   legal.TaskExtractSections,
		Format: legal.FormatFreeText,
		Text: `Here are the sections I found:
[{"id":"s1","title":"Interpretation","summary":"Defines {terms}.","keywords":["definitions"]},
 {"id":"s2","title":"Penalties","summary":"Fines for [late] returns.","keywords":["penalty"]}]
Let me know if you need more.`,
	}
	got, err := Sections(resp)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := legal.SectionList{
		{ID: "s1", Title: "Interpretation", Summary: "Defines {terms}.", Keywords: []string{"definitions"}},
		{ID: "s2", Title: "Penalties", Summary: "Fines for [late] returns.", Keywords: []string{"penalty"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sections (-want +got):\n%s", diff)
	}

	// A wrapped object still wins when it opens first.
	resp.Text = `Result: {"sections":[{"id":"s3","title":"Records","summary":"","keywords":[]}]} [end]`
	if got, err = Sections(resp); err != nil || len(got) != 1 || got[0].ID != "s3" {
		t.Errorf("got %+v, %v", got, err)
	}
}

func TestSections_Invalid(t *testing.T) {
	tests := map[string]string{
		"duplicate id": `{"sections":[{"id":"s1","title":"a","summary":"","keywords":[]},{"id":"s1","title":"b","summary":"","keywords":[]}]}`,
		"empty id":     `{"sections":[{"id":"  ","title":"a","summary":"","keywords":[]}]}`,
		"missing keys": `{"sections":[{"id":"s1","title":"a"}]}`,
		"wrong type":   `{"sections":{"id":"s1"}}`,
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Sections(jsonResp(legal.TaskExtractSections, text))
			if !errors.Is(err, legal.ErrParse) {
				t.Fatalf("want ParseError, got %v", err)
			}
			if got != nil {
				t.Errorf("partial result returned: %+v", got)
			}
		})
	}
}

func TestCompliance(t *testing.T) {
	got, err := Compliance(jsonResp(legal.TaskCheckCompliance,
		`{"outcome":"PASS","matched_sections":["s4"],"confidence":0.82}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := legal.ComplianceResult{Outcome: legal.OutcomePass, Matched: []string{"s4"}, Confidence: 0.82}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("compliance mismatch (-want +got):\n%s", diff)
	}
}

func TestCompliance_Invalid(t *testing.T) {
	tests := map[string]string{
		"confidence above one": `{"outcome":"pass","matched_sections":[],"confidence":1.5}`,
		"negative confidence":  `{"outcome":"fail","matched_sections":[],"confidence":-0.1}`,
		"unknown outcome":      `{"outcome":"maybe","matched_sections":[],"confidence":0.5}`,
		"missing confidence":   `{"outcome":"pass","matched_sections":[]}`,
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Compliance(jsonResp(legal.TaskCheckCompliance, text)); !errors.Is(err, legal.ErrParse) {
				t.Fatalf("want ParseError, got %v", err)
			}
		})
	}
}

func TestParse_JSONModeRejectsProse(t *testing.T) {
	resp := jsonResp(legal.TaskCheckCompliance,
		`Sure! Here is the result: {"outcome":"pass","matched_sections":[],"confidence":0.9}`)
	if _, err := Parse(resp, legal.TaskCheckCompliance); !errors.Is(err, legal.ErrParse) {
		t.Fatalf("want ParseError, got %v", err)
	}
}

func TestParse_FreeTextRecoversObject(t *testing.T) {
	resp := legal.ModelResponse{
		Task:   legal.TaskCheckCompliance,
		Format: legal.FormatFreeText,
		Text:   `The scenario meets section s4 {see below}. {"outcome":"pass","matched_sections":["s4"],"confidence":0.7,"why":"lived in the UK {12 months}"} Thanks.`,
	}
	// The first balanced object is "{see below}", which is not JSON; the
	// parser must not accept prose just because braces balance.
	if _, err := Parse(resp, legal.TaskCheckCompliance); !errors.Is(err, legal.ErrParse) {
		t.Fatalf("want ParseError, got %v", err)
	}

	resp.Text = `Result follows. {"outcome":"pass","matched_sections":["s4"],"confidence":0.7,"why":"lived in the UK {12 months}"} Thanks.`
	res, err := Parse(resp, legal.TaskCheckCompliance)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cr, ok := res.(legal.ComplianceResult)
	if !ok {
		t.Fatalf("result type %T", res)
	}
	if cr.Outcome != legal.OutcomePass || cr.Confidence != 0.7 {
		t.Errorf("got %+v", cr)
	}
}

func TestParse_ShapeMismatch(t *testing.T) {
	resp := jsonResp(legal.TaskSummarize, `{"purpose":"x","obligations":[],"exceptions":[]}`)
	res, err := Parse(resp, legal.TaskCheckCompliance)
	if !errors.Is(err, legal.ErrParse) {
		t.Fatalf("want ParseError, got %v", err)
	}
	if res != nil {
		t.Errorf("partial result returned: %+v", res)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse(jsonResp(legal.TaskSummarize, "  "), legal.TaskSummarize); !errors.Is(err, legal.ErrParse) {
		t.Fatalf("want ParseError, got %v", err)
	}
}

func TestFindFirstJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`noise {"a":1} more {"b":2}`, `{"a":1}`},
		{`{"s":"}"}`, `{"s":"}"}`},
		{`{"s":"\"}"}`, `{"s":"\"}"}`},
		{`{"a":{"b":{}}}`, `{"a":{"b":{}}}`},
		{`no object`, ``},
		{`{unterminated`, ``},
	}
	for _, tt := range tests {
		if got := findFirstJSON(tt.in); got != tt.want {
			t.Errorf("findFirstJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecoverJSON(t *testing.T) {
	tests := []struct {
		in    string
		shape legal.TaskKind
		want  string
	}{
		{`see [{"id":"s1"}] ok`, legal.TaskExtractSections, `[{"id":"s1"}]`},
		{`see {"sections":[]} [x]`, legal.TaskExtractSections, `{"sections":[]}`},
		{`["s1"] then {"outcome":"pass"}`, legal.TaskCheckCompliance, `{"outcome":"pass"}`},
		{`[unterminated`, legal.TaskExtractSections, ``},
	}
	for _, tt := range tests {
		if got := recoverJSON(tt.in, tt.shape); got != tt.want {
			t.Errorf("recoverJSON(%q, %s) = %q, want %q", tt.in, tt.shape, got, tt.want)
		}
	}
}
