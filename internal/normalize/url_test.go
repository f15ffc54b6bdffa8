package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/newsbrief/internal/types"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host", "https://News.Example.COM/World", "https://news.example.com/World"},
		{"strips utm params", "https://a.com/1?utm_source=x&utm_medium=y", "https://a.com/1"},
		{"keeps other params in order", "https://a.com/1?b=2&utm_campaign=z&a=1", "https://a.com/1?b=2&a=1"},
		{"strips click ids", "https://a.com/1?fbclid=abc&gclid=def&mc_cid=1&mc_eid=2&id=7", "https://a.com/1?id=7"},
		{"tracking match is case-insensitive", "https://a.com/1?UTM_Source=x", "https://a.com/1"},
		{"drops blank values", "https://a.com/1?empty=&id=7", "https://a.com/1?id=7"},
		{"drops fragment", "https://a.com/1#section", "https://a.com/1"},
		{"schemeless host", "A.com/1", "a.com/1"},
		{"schemeless with tracking", "a.com/1?utm_source=x", "a.com/1"},
		{"unparseable returned unchanged", "http://[::1", "http://[::1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.in))
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://Example.com/a b?q=go+lang&utm_source=x#frag",
		"https://example.com/path?x=%2F&y=1",
		"A.com/1?utm_source=x",
		"http://[::1",
		"mailto:someone@example.com",
	}
	for _, in := range inputs {
		once := Canonicalize(in)
		assert.Equal(t, once, Canonicalize(once), "input %q", in)
	}
}

func TestDedupe_KeepsFirstOccurrence(t *testing.T) {
	articles := []types.Article{
		{Title: "first", Link: "a.com/1?utm_source=x"},
		{Title: "second", Link: "A.com/1"},
		{Title: "third", Link: "b.com/2"},
	}

	out := Dedupe(articles)

	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Title)
	assert.Equal(t, "third", out[1].Title)
	assert.Equal(t, "a.com/1", Key(articles[0].Link))
	assert.Equal(t, Key(articles[0].Link), Key(articles[1].Link))
}

func TestDedupe_DropsEmptyLinks(t *testing.T) {
	out := Dedupe([]types.Article{
		{Title: "no link"},
		{Title: "blank", Link: "   "},
		{Title: "ok", Link: "https://c.com/3"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].Title)
}

func TestDedupe_Idempotent(t *testing.T) {
	articles := []types.Article{
		{Title: "1", Link: "https://x.com/a?utm_source=feed"},
		{Title: "2", Link: "https://X.com/a#top"},
		{Title: "3", Link: "https://x.com/b"},
		{Title: "4", Link: ""},
		{Title: "5", Link: "https://x.com/b?fbclid=1"},
	}

	once := Dedupe(articles)
	assert.Equal(t, once, Dedupe(once))
	assert.Len(t, articles, 5, "input must not be modified")
}
