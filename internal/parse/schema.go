package parse

import (
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/thywilljoshua/legal-agent/internal/legal"
)

// Additional properties are allowed everywhere; models often add commentary
// fields and those are ignored on decode. List fields accept null, which is
// how a nil slice marshals, and decode to an empty list.

const summarySchema = `{
  "type": "object",
  "required": ["purpose", "obligations", "exceptions"],
  "properties": {
    "purpose":     {"type": "string", "minLength": 1},
    "obligations": {"type": ["array", "null"], "items": {"type": "string"}},
    "exceptions":  {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

const sectionsSchema = `{
  "type": "object",
  "required": ["sections"],
  "properties": {
    "sections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "title", "summary", "keywords"],
        "properties": {
          "id":       {"type": "string"},
          "title":    {"type": "string"},
          "summary":  {"type": "string"},
          "keywords": {"type": ["array", "null"], "items": {"type": "string"}}
        }
      }
    }
  }
}`

const complianceSchema = `{
  "type": "object",
  "required": ["outcome", "matched_sections", "confidence"],
  "properties": {
    "outcome":          {"type": "string", "pattern": "(?i)^\\s*(pass|fail)\\s*$"},
    "matched_sections": {"type": ["array", "null"], "items": {"type": "string"}},
    "confidence":       {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

var schemas = map[legal.TaskKind]*jsonschema.Schema{
	legal.TaskSummarize:       jsonschema.MustCompileString("summary.json", summarySchema),
	legal.TaskExtractSections: jsonschema.MustCompileString("sections.json", sectionsSchema),
	legal.TaskCheckCompliance: jsonschema.MustCompileString("compliance.json", complianceSchema),
}
