package extract

import (
	"regexp"
	"strings"
)

var (
	// Running header of UK legislation, e.g. "Universal Credit Act 2025 (c. 22)".
	actHeaderRe = regexp.MustCompile(`.*Act \d{4}\s+\(c\.\s*\d+\)`)
	pageNumRe   = regexp.MustCompile(`^\d+$`)
	footerHints = []string{"Crown copyright", "Stationery Office"}
)

// CleanPage strips running headers, bare page numbers and publisher footers
// from one page of text. A page that is entirely boilerplate becomes "".
func CleanPage(text string) string {
	text = actHeaderRe.ReplaceAllString(text, "")

	var out []string
	for _, ln := range strings.Split(text, "\n") {
		s := strings.TrimSpace(ln)
		if s == "" || pageNumRe.MatchString(s) || isFooter(s) {
			continue
		}
		out = append(out, normalizeSpaces(s))
	}
	return strings.Join(out, "\n")
}

func isFooter(s string) bool {
	for _, h := range footerHints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

func normalizeSpaces(s string) string {
	s = strings.ReplaceAll(s, "•", " ")
	s = strings.ReplaceAll(s, "·", " ")
	s = strings.ReplaceAll(s, "…", " ... ")
	return strings.Join(strings.Fields(s), " ")
}
