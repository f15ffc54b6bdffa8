package summarize

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jonathan/newsbrief/internal/llm"
	"github.com/jonathan/newsbrief/internal/types"
)

type fakeClient struct {
	mu       sync.Mutex
	content  func(prompt string) (string, error)
	json     func(prompt string) (string, error)
	prompts  []string
	jsonSeen []string
}

func (c *fakeClient) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()
	if c.content == nil {
		return "- bullet", nil
	}
	return c.content(prompt)
}

func (c *fakeClient) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	c.mu.Lock()
	c.jsonSeen = append(c.jsonSeen, prompt)
	c.mu.Unlock()
	if c.json == nil {
		return `{"summary":"ok","highlights":["h"],"top":[]}`, nil
	}
	return c.json(prompt)
}

func (c *fakeClient) GetModel(llm.ModelTier) string { return "fake" }
func (c *fakeClient) Close() error                  { return nil }

type fakeIndex struct {
	mu       sync.Mutex
	added    map[string][]string
	hits     []types.RetrievalHit
	queryErr error
	queries  int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{added: make(map[string][]string)}
}

func (f *fakeIndex) AddChunks(_ context.Context, _ int64, _, link string, chunks []string, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added[link] = append(f.added[link], chunks...)
	return len(chunks), nil
}

func (f *fakeIndex) Query(context.Context, int64, string, int) ([]types.RetrievalHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	return f.hits, f.queryErr
}

type mapExtractor map[string]string

func (m mapExtractor) ExtractFullText(_ context.Context, url string) string {
	return m[url]
}

type prefixDetector struct{}

// DetectLanguage reports "fr" for text starting with "FR:", "en" otherwise.
func (prefixDetector) DetectLanguage(text string) (string, error) {
	if text == "" {
		return "", errors.New("no features")
	}
	if strings.HasPrefix(text, "FR:") {
		return "fr", nil
	}
	return "en", nil
}
