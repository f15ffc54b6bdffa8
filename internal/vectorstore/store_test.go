package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/newsbrief/internal/llm"
)

// wordEmbedder maps text onto a small bag-of-letters vector. The last
// dimension is constant so no vector is ever zero.
type wordEmbedder struct {
	calls atomic.Int32
	fail  func(text string) bool
}

func (e *wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.fail != nil && e.fail(text) {
		return nil, errors.New("embedding backend down")
	}
	vec := make([]float32, 27)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	vec[26] = 1
	return vec, nil
}

func newTestStore(t *testing.T, emb llm.Embedder, opts Options) *Store {
	t.Helper()
	s, err := New(emb, nil, opts)
	require.NoError(t, err)
	return s
}

func TestAddChunks_Empty(t *testing.T) {
	emb := &wordEmbedder{}
	s := newTestStore(t, emb, DefaultOptions())

	n, err := s.AddChunks(t.Context(), 1, "t", "https://a.com/1", nil, "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int32(0), emb.calls.Load())
	assert.Equal(t, 0, s.Count(1))
}

func TestAddChunks_AndQuery(t *testing.T) {
	s := newTestStore(t, &wordEmbedder{}, DefaultOptions())
	ctx := t.Context()

	n, err := s.AddChunks(ctx, 7, "Layoffs", "https://a.com/1", []string{"tech layoffs at startups", "zzz zzz"}, "snip")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, s.Count(7))

	hits, err := s.Query(ctx, 7, "tech layoffs", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "tech layoffs at startups", hits[0].Text)
	assert.Equal(t, "Layoffs", hits[0].Title)
	assert.Equal(t, "https://a.com/1", hits[0].Link)
	assert.Equal(t, "snip", hits[0].Snippet)
}

func TestQuery_EmptyCollectionSkipsEmbedding(t *testing.T) {
	emb := &wordEmbedder{}
	s := newTestStore(t, emb, DefaultOptions())

	hits, err := s.Query(t.Context(), 99, "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NotNil(t, hits)
	assert.Equal(t, int32(0), emb.calls.Load())
}

func TestQuery_ClampsK(t *testing.T) {
	s := newTestStore(t, &wordEmbedder{}, DefaultOptions())
	ctx := t.Context()

	_, err := s.AddChunks(ctx, 1, "t", "https://a.com/1", []string{"one"}, "")
	require.NoError(t, err)

	hits, err := s.Query(ctx, 1, "one", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = s.Query(ctx, 1, "one", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestQuery_PerUserIsolation(t *testing.T) {
	s := newTestStore(t, &wordEmbedder{}, DefaultOptions())
	ctx := t.Context()

	_, err := s.AddChunks(ctx, 1, "A", "https://a.com/1", []string{"alpha news"}, "")
	require.NoError(t, err)
	_, err = s.AddChunks(ctx, 2, "B", "https://b.com/2", []string{"beta news"}, "")
	require.NoError(t, err)

	hits, err := s.Query(ctx, 2, "alpha news", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "https://b.com/2", hits[0].Link)

	assert.Equal(t, "news_1", s.CollectionName(1))
}

func TestAddChunks_EmbeddingFailureWritesNothing(t *testing.T) {
	emb := &wordEmbedder{fail: func(text string) bool { return text == "bad" }}
	opts := DefaultOptions()
	opts.BatchSize = 2
	s := newTestStore(t, emb, opts)

	n, err := s.AddChunks(t.Context(), 1, "t", "https://a.com/1", []string{"ok", "fine", "bad"}, "")
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, llm.ErrDependencyUnavailable)

	var embErr *llm.EmbeddingUnavailableError
	assert.True(t, errors.As(err, &embErr))
	assert.Equal(t, 0, s.Count(1))
}

func TestAddChunks_Batches(t *testing.T) {
	opts := DefaultOptions()
	opts.BatchSize = 3
	s := newTestStore(t, &wordEmbedder{}, opts)

	chunks := make([]string, 10)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("chunk number %d", i)
	}
	n, err := s.AddChunks(t.Context(), 1, "t", "https://a.com/1", chunks, "")
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, 10, s.Count(1))
}

func TestStore_ConcurrentWritersAndReaders(t *testing.T) {
	s := newTestStore(t, &wordEmbedder{}, DefaultOptions())
	ctx := t.Context()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			link := fmt.Sprintf("https://a.com/%d", i)
			_, err := s.AddChunks(ctx, 1, "t", link, []string{"a", "b", "c"}, "")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			hits, err := s.Query(ctx, 1, "a", 100)
			assert.NoError(t, err)
			// Each article publishes its chunks atomically.
			assert.Zero(t, len(hits)%3)
		}()
	}
	wg.Wait()
	assert.Equal(t, 24, s.Count(1))
}

func TestPrune(t *testing.T) {
	s := newTestStore(t, &wordEmbedder{}, DefaultOptions())
	ctx := t.Context()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	_, err := s.AddChunks(ctx, 1, "old", "https://a.com/old", []string{"old one", "old two"}, "")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(48 * time.Hour) }
	_, err = s.AddChunks(ctx, 1, "new", "https://a.com/new", []string{"new one"}, "")
	require.NoError(t, err)

	removed, err := s.Prune(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, s.Count(1))

	hits, err := s.Query(ctx, 1, "old", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "https://a.com/new", hits[0].Link)
}

func TestApplyRetention(t *testing.T) {
	t.Run("zero max age keeps everything", func(t *testing.T) {
		s := newTestStore(t, &wordEmbedder{}, DefaultOptions())
		_, err := s.AddChunks(t.Context(), 1, "t", "https://a.com/1", []string{"x"}, "")
		require.NoError(t, err)

		removed, err := s.ApplyRetention(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 0, removed)
		assert.Equal(t, 1, s.Count(1))
	})

	t.Run("max age prunes old chunks", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Retention.MaxAge = time.Hour
		s := newTestStore(t, &wordEmbedder{}, opts)
		base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

		s.now = func() time.Time { return base }
		_, err := s.AddChunks(t.Context(), 1, "t", "https://a.com/1", []string{"x"}, "")
		require.NoError(t, err)

		s.now = func() time.Time { return base.Add(2 * time.Hour) }
		removed, err := s.ApplyRetention(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		assert.Equal(t, 0, s.Count(1))
	})
}

func TestApplyRetention_TrimsUsersToMaxChunks(t *testing.T) {
	s := newTestStore(t, &wordEmbedder{}, DefaultOptions())
	ctx := t.Context()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := range 3 {
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		link := fmt.Sprintf("https://a.com/%d", i)
		_, err := s.AddChunks(ctx, 1, "t", link, []string{"alpha", "beta"}, "")
		require.NoError(t, err)
	}
	_, err := s.AddChunks(ctx, 2, "t", "https://b.com/1", []string{"gamma"}, "")
	require.NoError(t, err)
	require.Equal(t, 6, s.Count(1))

	s.opts.Retention.MaxChunksPerUser = 2
	removed, err := s.ApplyRetention(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, removed)
	assert.Equal(t, 2, s.Count(1))
	assert.Equal(t, 1, s.Count(2))

	hits, err := s.Query(ctx, 1, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "https://a.com/2", h.Link)
	}

	users, err := s.ledger.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, users)
}

func TestMaxChunksPerUser(t *testing.T) {
	opts := DefaultOptions()
	opts.Retention.MaxChunksPerUser = 2
	s := newTestStore(t, &wordEmbedder{}, opts)
	ctx := t.Context()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	_, err := s.AddChunks(ctx, 1, "old", "https://a.com/old", []string{"old one", "old two"}, "")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(time.Hour) }
	_, err = s.AddChunks(ctx, 1, "new", "https://a.com/new", []string{"new one", "new two"}, "")
	require.NoError(t, err)

	assert.Equal(t, 2, s.Count(1))
	hits, err := s.Query(ctx, 1, "old one", 10)
	require.NoError(t, err)
	for _, h := range hits {
		assert.Equal(t, "https://a.com/new", h.Link)
	}
}

func TestDeleteUser(t *testing.T) {
	ledger := NewMemoryLedger()
	s, err := New(&wordEmbedder{}, ledger, DefaultOptions())
	require.NoError(t, err)
	ctx := t.Context()

	_, err = s.AddChunks(ctx, 1, "t", "https://a.com/1", []string{"x", "y"}, "")
	require.NoError(t, err)
	_, err = s.AddChunks(ctx, 2, "t", "https://a.com/1", []string{"x"}, "")
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, 1))
	assert.Equal(t, 0, s.Count(1))
	assert.Equal(t, 1, s.Count(2))
	assert.Equal(t, 1, ledger.Len())
}

func TestNew_Persistent(t *testing.T) {
	opts := DefaultOptions()
	opts.Dir = t.TempDir()
	s := newTestStore(t, &wordEmbedder{}, opts)

	_, err := s.AddChunks(t.Context(), 3, "t", "https://a.com/1", []string{"persisted"}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count(3))
}
