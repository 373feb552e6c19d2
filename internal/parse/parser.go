// Package parse turns raw model text into validated Summary, SectionList and
// ComplianceResult values. It never returns a partially filled result.
package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thywilljoshua/legal-agent/internal/legal"
)

const op = "parse"

// Parse validates resp against the schema of shape and decodes it.
func Parse(resp legal.ModelResponse, shape legal.TaskKind) (legal.Result, error) {
	var (
		res legal.Result
		err error
	)
	switch shape {
	case legal.TaskSummarize:
		res, err = Summary(resp)
	case legal.TaskExtractSections:
		res, err = Sections(resp)
	case legal.TaskCheckCompliance:
		res, err = Compliance(resp)
	default:
		return nil, parseErr(shape, "unknown result shape %d", int(shape))
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func Summary(resp legal.ModelResponse) (legal.Summary, error) {
	var out legal.Summary
	if err := decode(resp, legal.TaskSummarize, &out); err != nil {
		return legal.Summary{}, err
	}
	out.Purpose = strings.TrimSpace(out.Purpose)
	out.Obligations = cleanList(out.Obligations)
	out.Exceptions = cleanList(out.Exceptions)
	return out, nil
}

func Sections(resp legal.ModelResponse) (legal.SectionList, error) {
	var out struct {
		Sections []legal.Section `json:"sections"`
	}
	if err := decode(resp, legal.TaskExtractSections, &out); err != nil {
		return nil, err
	}

	list := make(legal.SectionList, 0, len(out.Sections))
	seen := make(map[string]int, len(out.Sections))
	for i, s := range out.Sections {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return nil, parseErr(legal.TaskExtractSections, "section %d has an empty id", i)
		}
		if j, dup := seen[s.ID]; dup {
			return nil, parseErr(legal.TaskExtractSections, "duplicate section id %q at positions %d and %d", s.ID, j, i)
		}
		seen[s.ID] = i
		s.Title = strings.TrimSpace(s.Title)
		s.Summary = strings.TrimSpace(s.Summary)
		s.Keywords = dedupeKeywords(s.Keywords)
		list = append(list, s)
	}
	return list, nil
}

func Compliance(resp legal.ModelResponse) (legal.ComplianceResult, error) {
	var out legal.ComplianceResult
	if err := decode(resp, legal.TaskCheckCompliance, &out); err != nil {
		return legal.ComplianceResult{}, err
	}
	out.Outcome = legal.Outcome(strings.ToLower(strings.TrimSpace(string(out.Outcome))))
	out.Matched = cleanList(out.Matched)
	return out, nil
}

// decode extracts the JSON payload from resp, validates it and unmarshals it
// into dst.
func decode(resp legal.ModelResponse, shape legal.TaskKind, dst any) error {
	if resp.Task.Valid() && resp.Task != shape {
		return parseErr(shape, "response was produced for task %s", resp.Task)
	}

	payload := stripCodeFences(resp.Text)
	if resp.Format == legal.FormatFreeText && !json.Valid([]byte(payload)) {
		payload = recoverJSON(payload, shape)
	}
	if payload == "" {
		return parseErr(shape, "no JSON object in model output")
	}
	if shape == legal.TaskExtractSections && strings.HasPrefix(payload, "[") {
		payload = `{"sections":` + payload + `}`
	}

	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return wrapErr(shape, fmt.Errorf("invalid JSON: %w", err))
	}
	if err := schemas[shape].Validate(doc); err != nil {
		return wrapErr(shape, fmt.Errorf("json does not match schema: %w", err))
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return wrapErr(shape, err)
	}
	return nil
}

// stripCodeFences removes a surrounding ```json ... ``` block.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// recoverJSON pulls the JSON payload out of free text. Section lists may come
// back as a bare array, so for that shape whichever of [ or { opens first wins.
func recoverJSON(s string, shape legal.TaskKind) string {
	if shape == legal.TaskExtractSections {
		arr, obj := strings.IndexByte(s, '['), strings.IndexByte(s, '{')
		if arr != -1 && (obj == -1 || arr < obj) {
			return findBalanced(s, '[', ']')
		}
	}
	return findFirstJSON(s)
}

// findFirstJSON returns the first balanced {...} object in s, skipping braces
// inside string literals, or "" when there is none.
func findFirstJSON(s string) string {
	return findBalanced(s, '{', '}')
}

func findBalanced(s string, opening, closing rune) string {
	start, depth := -1, 0
	inString, escaped := false, false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if start != -1 {
				inString = true
			}
		case opening:
			if start == -1 {
				start = i
			}
			depth++
		case closing:
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// dedupeKeywords drops blanks and case-insensitive repeats, keeping the first
// spelling of each keyword.
func dedupeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		key := strings.ToLower(k)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
	}
	return out
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseErr(shape legal.TaskKind, format string, args ...any) error {
	e := legal.Errorf(legal.KindParse, op, format, args...)
	e.Task = shape
	return e
}

func wrapErr(shape legal.TaskKind, err error) error {
	e := legal.Wrap(legal.KindParse, op, err)
	e.Task = shape
	return e
}
