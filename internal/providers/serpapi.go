package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/newsbrief/internal/normalize"
	"github.com/jonathan/newsbrief/internal/types"
)

// Defaults for SerpAPIProvider.
const (
	DefaultSerpAPIURL     = "https://serpapi.com/search.json"
	DefaultSerpAPITimeout = 60 * time.Second
	serpAPIResultCount    = 20
)

// SerpAPIError is returned for a non-200 response.
type SerpAPIError struct {
	StatusCode int
	Body       string
}

func (e *SerpAPIError) Error() string {
	return fmt.Sprintf("serpapi returned status %d: %s", e.StatusCode, e.Body)
}

// SerpAPIProvider queries Google News through SerpAPI.
type SerpAPIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewSerpAPIProvider creates a provider. An empty apiKey disables it: Fetch returns no articles.
func NewSerpAPIProvider(apiKey string, timeout time.Duration) *SerpAPIProvider {
	if timeout <= 0 {
		timeout = DefaultSerpAPITimeout
	}
	return &SerpAPIProvider{
		apiKey:  apiKey,
		baseURL: DefaultSerpAPIURL,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// WithBaseURL points the provider at another endpoint.
func (p *SerpAPIProvider) WithBaseURL(u string) *SerpAPIProvider {
	p.baseURL = u
	return p
}

// Name implements Provider.
func (p *SerpAPIProvider) Name() string { return "serpapi" }

// Fetch implements Provider.
func (p *SerpAPIProvider) Fetch(ctx context.Context, q Query) ([]types.Article, error) {
	if p.apiKey == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+p.params(q).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create serpapi request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &SerpAPIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var data serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode serpapi response: %w", err)
	}

	return normalize.Dedupe(keepComplete(p.articles(data))), nil
}

func (p *SerpAPIProvider) params(q Query) url.Values {
	region := strings.ToLower(q.Region)
	if region == "" {
		region = DefaultRegion
	}
	meta := LookupRegion(region)
	lang := strings.ToLower(q.Lang)
	if lang == "" {
		lang = meta.Lang
	}

	v := url.Values{}
	v.Set("engine", "google")
	v.Set("tbm", "nws")
	v.Set("q", q.Text)
	v.Set("api_key", p.apiKey)
	v.Set("google_domain", meta.GoogleDomain)
	v.Set("location", meta.Location)
	v.Set("hl", lang)
	v.Set("gl", region)
	v.Set("tbs", BuildTBS(lang, q.Timeframe, q.Sort))
	v.Set("num", fmt.Sprint(serpAPIResultCount))
	v.Set("no_cache", "true")
	return v
}

// BuildTBS encodes language restriction, recency window and date sorting.
func BuildTBS(lang, timeframe, sort string) string {
	parts := []string{"lr:lang_1" + strings.ToLower(lang)}
	if n := len(timeframe); n > 1 {
		unit := strings.ToLower(timeframe[n-1:])
		if strings.Contains("hdwmy", unit) && isDigits(timeframe[:n-1]) {
			parts = append(parts, "qdr:"+unit)
		}
	}
	if sort == "date" {
		parts = append(parts, "sbd:1")
	}
	return strings.Join(parts, ",")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type serpResponse struct {
	NewsResults    []serpItem `json:"news_results"`
	TopStories     []serpItem `json:"top_stories"`
	OrganicResults []serpItem `json:"organic_results"`
}

type serpItem struct {
	Title     string          `json:"title"`
	Link      string          `json:"link"`
	Snippet   string          `json:"snippet"`
	Summary   string          `json:"summary"`
	Date      string          `json:"date"`
	Source    json.RawMessage `json:"source"`
	Publisher string          `json:"publisher"`
}

type serpSource struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// source decodes the "source" field, which is either a name or an object.
func (it serpItem) source() serpSource {
	if len(it.Source) == 0 {
		return serpSource{}
	}
	var name string
	if err := json.Unmarshal(it.Source, &name); err == nil {
		return serpSource{Name: name}
	}
	var obj serpSource
	_ = json.Unmarshal(it.Source, &obj)
	return obj
}

func (p *SerpAPIProvider) articles(data serpResponse) []types.Article {
	now := p.now()
	var out []types.Article

	for _, it := range data.NewsResults {
		src := it.source()
		link := it.Link
		if link == "" {
			link = src.Link
		}
		snippet := it.Snippet
		if snippet == "" {
			snippet = it.Summary
		}
		name := src.Name
		if name == "" {
			name = it.Publisher
		}
		out = append(out, types.Article{
			Title:       it.Title,
			Link:        link,
			Snippet:     snippet,
			Source:      name,
			PublishedAt: normalize.ParseProviderDate(it.Date, now),
		})
	}

	for _, it := range data.TopStories {
		out = append(out, types.Article{
			Title:       it.Title,
			Link:        it.Link,
			Snippet:     it.Snippet,
			Source:      it.source().Name,
			PublishedAt: normalize.ParseProviderDate(it.Date, now),
		})
	}

	for _, it := range data.OrganicResults {
		if it.Title == "" || it.Link == "" {
			continue
		}
		out = append(out, types.Article{
			Title:   it.Title,
			Link:    it.Link,
			Snippet: it.Snippet,
			Source:  it.source().Name,
		})
	}

	return out
}
