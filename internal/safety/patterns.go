package safety

import "regexp"

// Category names used in moderation flags.
const (
	CategoryAdult    = "adult"
	CategoryHate     = "hate"
	CategoryViolence = "violence"
)

// Score labels read from the scoring model.
const (
	LabelToxicity       = "toxicity"
	LabelSevereToxicity = "severe_toxicity"
	LabelSexualExplicit = "sexual_explicit"
	LabelThreat         = "threat"
)

// categoryThreshold applies to sexual_explicit and threat scores.
const categoryThreshold = 0.5

var (
	adultPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(ns?fw|porn|pornhub|xvideos|xxx)\b`),
		regexp.MustCompile(`\bsex(ual|ually)?\b`),
		regexp.MustCompile(`\berot(ic|ica)\b`),
		regexp.MustCompile(`\bfetish\b`),
	}
	hatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(hate\s*speech|ethnic\s*cleansing|genocide)\b`),
	}
	violencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(gore|beheading|dismemberment|graphic\s+violence)\b`),
	}
	profanityPattern = regexp.MustCompile(`(?i)\b(fuck|shit|asshole|bitch)\b`)
)

func matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
