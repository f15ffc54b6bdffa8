package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/newsbrief/internal/types"
	"github.com/jonathan/newsbrief/internal/vectorstore"
)

func TestGenerate_EmptyRetrieval(t *testing.T) {
	client := &fakeClient{}
	s := New(client, newFakeIndex(), mapExtractor{}, nil, DefaultOptions())

	b := s.Generate(context.Background(), nil, "", "anything", 1)

	assert.Equal(t, types.EmptyBriefing(), b)
	assert.Empty(t, client.prompts)
	assert.Empty(t, client.jsonSeen)
}

func TestGenerate_RetrievalError(t *testing.T) {
	index := newFakeIndex()
	index.queryErr = errors.New("index down")
	s := New(&fakeClient{}, index, mapExtractor{}, nil, DefaultOptions())

	b := s.Generate(context.Background(), nil, "", "q", 1)
	assert.Equal(t, types.NoContentSummary, b.Summary)
	assert.NotNil(t, b.Highlights)
	assert.NotNil(t, b.Top)
}

func TestGenerate_HappyPath(t *testing.T) {
	index := newFakeIndex()
	index.hits = []types.RetrievalHit{
		{Text: "a1", Title: "A", Link: "https://a.com"},
		{Text: "b1", Title: "B", Link: "https://b.com"},
		{Text: "a2", Title: "A", Link: "https://a.com"},
		{Text: "a3", Title: "A", Link: "https://a.com"},
	}
	client := &fakeClient{
		content: func(prompt string) (string, error) {
			if strings.Contains(prompt, "TITLE: A") {
				return "- bullet about A", nil
			}
			return "- bullet about B", nil
		},
		json: func(string) (string, error) {
			return "```json\n{\"summary\":\"Brief\",\"highlights\":[\"x\"],\"top\":[{\"title\":\"A\",\"link\":\"https://a.com\"}]}\n```", nil
		},
	}
	s := New(client, index, mapExtractor{}, nil, DefaultOptions())

	b := s.Generate(context.Background(), nil, "tech", "q", 1)

	assert.Equal(t, "Brief", b.Summary)
	assert.Equal(t, []string{"x"}, b.Highlights)
	assert.Equal(t, []types.TopItem{{Title: "A", Link: "https://a.com"}}, b.Top)

	require.Len(t, client.prompts, 2)
	for _, p := range client.prompts {
		if strings.Contains(p, "TITLE: A") {
			assert.Contains(t, p, "a1\n\na2")
			assert.NotContains(t, p, "a3")
		}
	}

	require.Len(t, client.jsonSeen, 1)
	reduce := client.jsonSeen[0]
	assert.Contains(t, reduce, "User preferences: tech")
	assert.Contains(t, reduce, "Query: q")
	assert.Less(t, strings.Index(reduce, "TITLE: A\nURL: https://a.com\nBULLETS:\n- bullet about A"),
		strings.Index(reduce, "TITLE: B\nURL: https://b.com\nBULLETS:\n- bullet about B"))
}

func TestGenerate_ReduceFallbacks(t *testing.T) {
	var hits []types.RetrievalHit
	for i := range 7 {
		hits = append(hits, types.RetrievalHit{
			Text:  "t",
			Title: fmt.Sprintf("T%d", i),
			Link:  fmt.Sprintf("https://x.com/%d", i),
		})
	}

	tests := []struct {
		name        string
		json        func(string) (string, error)
		wantSummary string
	}{
		{
			name:        "non JSON output",
			json:        func(string) (string, error) { return "Just prose.", nil },
			wantSummary: "Just prose.",
		},
		{
			name:        "schema violation",
			json:        func(string) (string, error) { return `{"highlights":["x"]}`, nil },
			wantSummary: `{"highlights":["x"]}`,
		},
		{
			name:        "generation failure",
			json:        func(string) (string, error) { return "", errors.New("llm down") },
			wantSummary: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := newFakeIndex()
			index.hits = hits
			s := New(&fakeClient{json: tt.json}, index, mapExtractor{}, nil, DefaultOptions())

			b := s.Generate(context.Background(), nil, "", "q", 1)

			assert.Equal(t, tt.wantSummary, b.Summary)
			assert.Equal(t, []string{}, b.Highlights)
			require.Len(t, b.Top, 5)
			assert.Equal(t, types.TopItem{Title: "T0", Link: "https://x.com/0"}, b.Top[0])
			assert.Equal(t, types.TopItem{Title: "T4", Link: "https://x.com/4"}, b.Top[4])
		})
	}
}

func TestGenerate_MapFailureKeepsArticle(t *testing.T) {
	index := newFakeIndex()
	index.hits = []types.RetrievalHit{
		{Text: "a", Title: "A", Link: "https://a.com"},
		{Text: "b", Title: "B", Link: "https://b.com"},
	}
	client := &fakeClient{
		content: func(prompt string) (string, error) {
			if strings.Contains(prompt, "TITLE: A") {
				return "", errors.New("timeout")
			}
			return "- b", nil
		},
		json: func(string) (string, error) { return "not json", nil },
	}
	s := New(client, index, mapExtractor{}, nil, DefaultOptions())

	b := s.Generate(context.Background(), nil, "", "q", 1)
	require.Len(t, b.Top, 2)
	assert.Equal(t, "A", b.Top[0].Title)
	assert.Contains(t, client.jsonSeen[0], "TITLE: A\nURL: https://a.com\nBULLETS:\n\n")
}

func TestIngest(t *testing.T) {
	index := newFakeIndex()
	extractor := mapExtractor{
		"https://a.com/full": strings.Repeat("x", 1000),
		"https://a.com/fr":   "FR: Le texte complet",
	}
	s := New(&fakeClient{}, index, extractor, prefixDetector{}, DefaultOptions())

	articles := []types.Article{
		{Title: "Full", Link: "https://a.com/full"},
		{Title: "Snippet only", Link: "https://a.com/snippet", Snippet: "short snippet"},
		{Title: "French", Link: "https://a.com/fr"},
		{Title: "", Link: "https://a.com/untitled"},
		{Title: "No link"},
		{Title: "Empty", Link: "https://a.com/empty"},
	}

	n := s.Ingest(context.Background(), 1, articles)

	assert.Equal(t, 3, n)
	assert.Len(t, index.added["https://a.com/full"], 2)
	assert.Equal(t, []string{"short snippet"}, index.added["https://a.com/snippet"])
	assert.NotContains(t, index.added, "https://a.com/fr")
	assert.NotContains(t, index.added, "https://a.com/untitled")
	assert.Empty(t, index.added["https://a.com/empty"])
}

func TestGenerate_WithVectorStore(t *testing.T) {
	store, err := vectorstore.New(letterEmbedder{}, nil, vectorstore.DefaultOptions())
	require.NoError(t, err)

	extractor := mapExtractor{
		"https://a.com/1": "Layoffs spread across technology startups this week.",
		"https://b.com/2": "Layoffs spread across technology startups this week.",
	}
	client := &fakeClient{}
	s := New(client, store, extractor, nil, DefaultOptions())

	articles := []types.Article{{Title: "Layoffs", Link: "https://a.com/1"}}
	b := s.Generate(context.Background(), articles, "", "layoffs", 1)
	assert.Equal(t, "ok", b.Summary)

	// Another user's query sees none of user 1's chunks.
	b = s.Generate(context.Background(), nil, "", "layoffs", 2)
	assert.Equal(t, types.EmptyBriefing(), b)
}

type letterEmbedder struct{}

func (letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 27)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	vec[26] = 1
	return vec, nil
}

func TestParseBriefing(t *testing.T) {
	b, err := ParseBriefing(`{"summary":"s"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{}, b.Highlights)
	assert.Equal(t, []types.TopItem{}, b.Top)

	_, err = ParseBriefing("nope")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "nope", pe.Raw)
}
