// Package fetch - publisher.go provides publisher detection and publisher-specific selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Publisher identifies a news site with a known page layout.
type Publisher string

const (
	// PublisherReuters is reuters.com
	PublisherReuters Publisher = "reuters"
	// PublisherAP is apnews.com
	PublisherAP Publisher = "ap"
	// PublisherBBC is bbc.com / bbc.co.uk
	PublisherBBC Publisher = "bbc"
	// PublisherGuardian is theguardian.com
	PublisherGuardian Publisher = "guardian"
	// PublisherUnknown is any other site
	PublisherUnknown Publisher = "unknown"
)

// DetectPublisher identifies the publisher from an article URL.
func DetectPublisher(urlStr string) Publisher {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PublisherUnknown
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	switch {
	case host == "reuters.com" || strings.HasSuffix(host, ".reuters.com"):
		return PublisherReuters
	case host == "apnews.com":
		return PublisherAP
	case host == "bbc.com" || host == "bbc.co.uk" || strings.HasSuffix(host, ".bbc.com") || strings.HasSuffix(host, ".bbc.co.uk"):
		return PublisherBBC
	case host == "theguardian.com":
		return PublisherGuardian
	default:
		return PublisherUnknown
	}
}

// PublisherContentSelectors returns content selectors for a publisher.
func PublisherContentSelectors(p Publisher) []string {
	var specific []string
	switch p {
	case PublisherReuters:
		specific = []string{"[data-testid='ArticleBody']", ".article-body__content"}
	case PublisherAP:
		specific = []string{".RichTextStoryBody", "[data-key='article']"}
	case PublisherBBC:
		specific = []string{"[data-component='text-block']", "#main-content article"}
	case PublisherGuardian:
		specific = []string{"#maincontent", ".article-body-commercial-selector"}
	}
	return append(specific, ArticleSelectors()...)
}

// PublisherNoiseSelectors returns elements to strip before extraction.
func PublisherNoiseSelectors(p Publisher) []string {
	common := []string{
		// Share and social widgets
		".social-share",
		".share-buttons",
		".social-links",

		// Related content rails
		".related-content",
		".related-articles",
		".recommended",

		// Consent and subscription prompts
		".cookie-consent",
		".gdpr-notice",
		".paywall",
		".subscribe-prompt",

		// Captions and credits
		"figcaption",
	}

	switch p {
	case PublisherReuters:
		return append(common, "[data-testid='Toolbar']", "[class*='author-bio']")
	case PublisherAP:
		return append(common, ".Page-actions", ".Enhancement")
	case PublisherBBC:
		return append(common, "[data-component='links-block']", "[data-component='byline-block']")
	case PublisherGuardian:
		return append(common, "[data-component='rich-link']", "#sign-in-gate")
	default:
		return common
	}
}
