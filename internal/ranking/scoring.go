package ranking

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/jonathan/newsbrief/internal/normalize"
)

// undatedRecency is the recency score for articles without a usable publish date.
const undatedRecency = 0.8

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// cosine returns the cosine similarity of u and v, or 0 when either is empty,
// their lengths differ, or either has zero norm.
func cosine(u, v []float32) float64 {
	if len(u) == 0 || len(v) == 0 || len(u) != len(v) {
		return 0
	}
	var dot, su, sv float64
	for i := range u {
		x, y := float64(u[i]), float64(v[i])
		dot += x * y
		su += x * x
		sv += y * y
	}
	if su <= 0 || sv <= 0 {
		return 0
	}
	return dot / math.Sqrt(su*sv)
}

// tokens returns the set of lower-cased alphanumeric runs longer than two characters.
func tokens(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if len(tok) > 2 {
			set[tok] = struct{}{}
		}
	}
	return set
}

// keywordOverlap is |q ∩ t| / sqrt(|q| * |t|) over token sets.
func keywordOverlap(query, text string) float64 {
	qs, ts := tokens(query), tokens(text)
	if len(qs) == 0 || len(ts) == 0 {
		return 0
	}
	inter := 0
	for tok := range qs {
		if _, ok := ts[tok]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qs))*float64(len(ts)))
}

// recency decays exponentially with the article's age: 0.5^(age/halfLife).
func recency(publishedAt *string, now time.Time, halfLife time.Duration) float64 {
	if publishedAt == nil || halfLife <= 0 {
		return undatedRecency
	}
	t, ok := normalize.ParseISO(*publishedAt)
	if !ok {
		return undatedRecency
	}
	ageHours := math.Max(0, now.Sub(t).Hours())
	return math.Pow(0.5, ageHours/halfLife.Hours())
}

func round6(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}
