package ingestion

import (
	"html"
	"regexp"
	"strings"
)

var (
	multiSpace   = regexp.MustCompile(`[ \t\f\v\x{00A0}\x{2000}-\x{200A}\x{202F}\x{3000}]+`)
	invisible    = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "", "\u00ad", "")
	blankLineRun = regexp.MustCompile(`\n{3,}`)

	// scriptResidue matches lines left over from inline scripts and styles.
	scriptResidue = regexp.MustCompile(`^(?:var |let |const |function\s*\(|window\.|document\.|\(function|googletag\.|dataLayer|[.#@][\w-]+\s*\{)|(?:[{}]|\}\)?;)\s*$`)
)

// boilerplate lists whole lines that carry page chrome rather than article text.
var boilerplate = map[string]struct{}{
	"advertisement":                       {},
	"skip to content":                     {},
	"skip to main content":                {},
	"share this article":                  {},
	"share":                               {},
	"subscribe":                           {},
	"sign in":                             {},
	"log in":                              {},
	"menu":                                {},
	"search":                              {},
	"read more":                           {},
	"related articles":                    {},
	"most read":                           {},
	"accept cookies":                      {},
	"we use cookies":                      {},
	"story continues below advertisement": {},
}

// CleanText normalizes extracted article text: entities are decoded, page chrome
// and script residue lines are dropped, whitespace is collapsed per line and
// paragraphs are separated by at most one blank line.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = invisible.Replace(html.UnescapeString(content))

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, cleanLine(line))
	}

	result := strings.Join(cleaned, "\n")
	result = blankLineRun.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	line = strings.TrimSpace(multiSpace.ReplaceAllString(line, " "))
	if line == "" || isBoilerplate(line) || scriptResidue.MatchString(line) {
		return ""
	}
	return line
}

func isBoilerplate(line string) bool {
	key := strings.ToLower(strings.TrimRight(line, " .:|›»"))
	_, ok := boilerplate[key]
	return ok
}
