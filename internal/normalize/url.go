// Package normalize canonicalizes article URLs, removes cross-provider duplicates
// and parses the free-form dates returned by news providers.
package normalize

import (
	"net/url"
	"strings"

	"github.com/jonathan/newsbrief/internal/types"
)

// trackingPrefixes are query keys (matched by prefix, case-insensitive) stripped during canonicalization.
var trackingPrefixes = []string{"utm_", "fbclid", "gclid", "mc_cid", "mc_eid"}

// Canonicalize lower-cases the host, strips tracking and blank query parameters and drops the fragment.
// Remaining parameters keep their original order. If the URL cannot be parsed it is returned unchanged.
func Canonicalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "" && u.Host == "" && u.Opaque == "" {
		// "Example.com/path" parses as a path; the leading segment is still the host
		u.Path = lowerLeadingSegment(u.Path)
	}

	query, err := filterQuery(u.RawQuery)
	if err != nil {
		return rawURL
	}
	u.RawQuery = query
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	return u.String()
}

// Key returns the dedup identity of a link. Empty links have no key.
func Key(link string) string {
	if strings.TrimSpace(link) == "" {
		return ""
	}
	return Canonicalize(link)
}

// Dedupe keeps the first occurrence of each canonical link, dropping articles with an empty link.
// Output order is first-seen order and the input slice is not modified.
func Dedupe(articles []types.Article) []types.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]types.Article, 0, len(articles))
	for _, a := range articles {
		key := Key(a.Link)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

func filterQuery(rawQuery string) (string, error) {
	if rawQuery == "" {
		return "", nil
	}

	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return "", err
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return "", err
		}
		if value == "" || isTracking(key) {
			continue
		}
		kept = append(kept, url.QueryEscape(key)+"="+url.QueryEscape(value))
	}
	return strings.Join(kept, "&"), nil
}

func isTracking(key string) bool {
	lower := strings.ToLower(key)
	for _, prefix := range trackingPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func lowerLeadingSegment(path string) string {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasPrefix(path, ".") {
		return path
	}
	host, rest, found := strings.Cut(path, "/")
	if !strings.Contains(host, ".") {
		return path
	}
	if !found {
		return strings.ToLower(host)
	}
	return strings.ToLower(host) + "/" + rest
}
