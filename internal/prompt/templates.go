package prompt

import "strings"

func documentBlock(text string) string {
	return "DOCUMENT TEXT:\n" + text + "\n\n---\n"
}

func summarizePrompt(text string) string {
	parts := []string{
		preamble,
		"",
		documentBlock(text),
		"TASK: SUMMARIZE",
		"Summarize the entire Act. State its purpose in one or two sentences,",
		"then list the obligations it imposes and the exceptions or exemptions it grants.",
		"Each obligation and exception is one short sentence. Use empty lists when there are none.",
		"",
		"REQUIRED JSON OUTPUT FORMAT:",
		`{`,
		`  "purpose": "...",`,
		`  "obligations": ["...", "..."],`,
		`  "exceptions": ["...", "..."]`,
		`}`,
	}
	return strings.Join(parts, "\n")
}

func sectionsPrompt(text string) string {
	parts := []string{
		preamble,
		"",
		documentBlock(text),
		"TASK: EXTRACT SECTIONS",
		"Split the Act into its provisions in order of appearance.",
		"For each provision give a unique identifier (use the section number when present, e.g. \"s1\", \"s2\"),",
		"its title, a short summary, and 3 to 8 lowercase keywords naming its subject matter",
		"(for example: definitions, eligibility, residence, payments, penalties, record_keeping).",
		"",
		"REQUIRED JSON OUTPUT FORMAT:",
		`{`,
		`  "sections": [`,
		`    {"id": "s1", "title": "...", "summary": "...", "keywords": ["...", "..."]}`,
		`  ]`,
		`}`,
	}
	return strings.Join(parts, "\n")
}

func compliancePrompt(text, scenario string) string {
	parts := []string{
		preamble,
		"",
		documentBlock(text),
		"SCENARIO:",
		scenario,
		"",
		"---",
		"TASK: CHECK COMPLIANCE",
		"Decide whether the scenario satisfies the provisions above.",
		"List the identifiers of the provisions that the scenario meets. Use outcome \"fail\" when it does not",
		"satisfy them. Give your confidence in that outcome as a number between 0.0 and 1.0.",
		"",
		"REQUIRED JSON OUTPUT FORMAT:",
		`{`,
		`  "outcome": "pass" | "fail",`,
		`  "matched_sections": ["s1"],`,
		`  "confidence": 0.0`,
		`}`,
	}
	return strings.Join(parts, "\n")
}
