// Package vectorstore provides a per-user chunk index backed by chromem-go.
// Every user gets an isolated collection; queries are additionally filtered on user_id.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/newsbrief/internal/llm"
	"github.com/jonathan/newsbrief/internal/types"
)

// Metadata keys stored with every chunk.
const (
	MetaUserID     = "user_id"
	MetaTitle      = "title"
	MetaLink       = "link"
	MetaSnippet    = "snippet"
	MetaChunkIndex = "chunk_index"
)

// Defaults for Options.
const (
	DefaultPrefix           = "news_"
	DefaultBatchSize        = 64
	DefaultEmbedConcurrency = 4
)

// Retention bounds how long and how many chunks are kept. Zero values keep everything.
type Retention struct {
	MaxAge           time.Duration
	MaxChunksPerUser int
}

// Options configures the store.
type Options struct {
	// Dir enables on-disk persistence; empty keeps the index in memory
	Dir              string
	Prefix           string
	BatchSize        int
	EmbedConcurrency int
	Retention        Retention
}

// DefaultOptions returns an in-memory configuration.
func DefaultOptions() Options {
	return Options{
		Prefix:           DefaultPrefix,
		BatchSize:        DefaultBatchSize,
		EmbedConcurrency: DefaultEmbedConcurrency,
	}
}

// Store is the per-user vector index. It is safe for concurrent use.
type Store struct {
	db       *chromem.DB
	embedder llm.Embedder
	ledger   Ledger
	opts     Options
	now      func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.RWMutex
}

// New opens the index. A nil ledger uses a MemoryLedger.
func New(embedder llm.Embedder, ledger Ledger, opts Options) (*Store, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.EmbedConcurrency <= 0 {
		opts.EmbedConcurrency = DefaultEmbedConcurrency
	}
	if ledger == nil {
		ledger = NewMemoryLedger()
	}

	var db *chromem.DB
	if opts.Dir != "" {
		var err error
		db, err = chromem.NewPersistentDB(opts.Dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector db at %s: %w", opts.Dir, err)
		}
	} else {
		db = chromem.NewDB()
	}

	return &Store{
		db:       db,
		embedder: embedder,
		ledger:   ledger,
		opts:     opts,
		now:      time.Now,
		locks:    make(map[int64]*sync.RWMutex),
	}, nil
}

// CollectionName returns the collection used for a user.
func (s *Store) CollectionName(userID int64) string {
	return s.opts.Prefix + strconv.FormatInt(userID, 10)
}

// AddChunks embeds and stores chunks for one article. All embeddings are computed
// before anything is written, so an embedding failure leaves the index unchanged.
// Readers observe either none or all of the article's chunks.
func (s *Store) AddChunks(ctx context.Context, userID int64, title, link string, chunks []string, snippet string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	embeddings, err := s.embedAll(ctx, chunks)
	if err != nil {
		return 0, err
	}

	records := make([]types.Chunk, len(chunks))
	for i, text := range chunks {
		records[i] = types.Chunk{
			ID:         uuid.NewString(),
			UserID:     userID,
			Title:      title,
			Link:       link,
			Snippet:    snippet,
			ChunkIndex: i,
			Text:       text,
			Embedding:  embeddings[i],
		}
	}
	ids, metadatas := columns(records)

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	col, err := s.collection(userID)
	if err != nil {
		return 0, err
	}

	for start := 0; start < len(chunks); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(chunks))
		if err := col.Add(ctx, ids[start:end], embeddings[start:end], metadatas[start:end], chunks[start:end]); err != nil {
			s.rollback(ctx, col, ids[:start])
			return 0, &Error{Op: "add", UserID: userID, Message: "failed to write batch", Cause: err}
		}
	}

	indexedAt := s.now().UTC()
	entries := make([]LedgerEntry, len(ids))
	for i, id := range ids {
		entries[i] = LedgerEntry{UserID: userID, ChunkID: id, Link: link, IndexedAt: indexedAt}
	}
	if err := s.ledger.Record(ctx, entries); err != nil {
		slog.Warn("failed to record indexed chunks", "user_id", userID, "link", link, "err", err)
	}

	if keep := s.opts.Retention.MaxChunksPerUser; keep > 0 {
		if _, err := s.evictOverflow(ctx, col, userID, keep); err != nil {
			slog.Warn("failed to evict chunks", "user_id", userID, "err", err)
		}
	}

	return len(chunks), nil
}

// columns splits chunks into the id and metadata slices chromem-go expects.
func columns(chunks []types.Chunk) ([]string, []map[string]string) {
	ids := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		metadatas[i] = map[string]string{
			MetaUserID:     strconv.FormatInt(c.UserID, 10),
			MetaTitle:      c.Title,
			MetaLink:       c.Link,
			MetaSnippet:    c.Snippet,
			MetaChunkIndex: strconv.Itoa(c.ChunkIndex),
		}
	}
	return ids, metadatas
}

// Query returns up to k chunks of userID most similar to text, in similarity order.
func (s *Store) Query(ctx context.Context, userID int64, text string, k int) ([]types.RetrievalHit, error) {
	if k <= 0 {
		return []types.RetrievalHit{}, nil
	}

	lock := s.userLock(userID)
	lock.RLock()
	defer lock.RUnlock()

	col := s.db.GetCollection(s.CollectionName(userID), s.embeddingFunc())
	if col == nil || col.Count() == 0 {
		return []types.RetrievalHit{}, nil
	}

	qvec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, asEmbeddingError(err)
	}

	n := min(k, col.Count())
	where := map[string]string{MetaUserID: strconv.FormatInt(userID, 10)}
	results, err := col.QueryEmbedding(ctx, qvec, n, where, nil)
	if err != nil {
		return nil, &Error{Op: "query", UserID: userID, Message: "similarity query failed", Cause: err}
	}

	hits := make([]types.RetrievalHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, types.RetrievalHit{
			Text:    r.Content,
			Title:   r.Metadata[MetaTitle],
			Link:    r.Metadata[MetaLink],
			Snippet: r.Metadata[MetaSnippet],
		})
	}
	return hits, nil
}

// Count returns the number of chunks stored for userID.
func (s *Store) Count(userID int64) int {
	lock := s.userLock(userID)
	lock.RLock()
	defer lock.RUnlock()

	col := s.db.GetCollection(s.CollectionName(userID), s.embeddingFunc())
	if col == nil {
		return 0
	}
	return col.Count()
}

// Prune deletes every chunk indexed before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	expired, err := s.ledger.Expired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired chunks: %w", err)
	}

	byUser := make(map[int64][]string)
	for _, e := range expired {
		byUser[e.UserID] = append(byUser[e.UserID], e.ChunkID)
	}

	removed := 0
	for userID, ids := range byUser {
		n, err := s.deleteChunks(ctx, userID, ids)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// ApplyRetention prunes chunks older than Retention.MaxAge, then trims every user
// to their newest Retention.MaxChunksPerUser chunks. Zero limits are skipped.
func (s *Store) ApplyRetention(ctx context.Context) (int, error) {
	removed := 0
	if s.opts.Retention.MaxAge > 0 {
		n, err := s.Prune(ctx, s.now().Add(-s.opts.Retention.MaxAge))
		removed += n
		if err != nil {
			return removed, err
		}
	}

	keep := s.opts.Retention.MaxChunksPerUser
	if keep <= 0 {
		return removed, nil
	}
	users, err := s.ledger.Users(ctx)
	if err != nil {
		return removed, fmt.Errorf("failed to list users: %w", err)
	}
	for _, userID := range users {
		n, err := s.trimUser(ctx, userID, keep)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (s *Store) trimUser(ctx context.Context, userID int64, keep int) (int, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	col := s.db.GetCollection(s.CollectionName(userID), s.embeddingFunc())
	return s.evictOverflow(ctx, col, userID, keep)
}

// DeleteUser removes a user's collection and ledger entries.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	err := s.db.DeleteCollection(s.CollectionName(userID))
	s.mu.Unlock()
	if err != nil {
		return &Error{Op: "delete", UserID: userID, Message: "failed to delete collection", Cause: err}
	}
	return s.ledger.RemoveUser(ctx, userID)
}

func (s *Store) deleteChunks(ctx context.Context, userID int64, ids []string) (int, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	col := s.db.GetCollection(s.CollectionName(userID), s.embeddingFunc())
	if col != nil {
		if err := col.Delete(ctx, nil, nil, ids...); err != nil {
			return 0, &Error{Op: "prune", UserID: userID, Message: "failed to delete chunks", Cause: err}
		}
	}
	if err := s.ledger.Remove(ctx, ids); err != nil {
		return len(ids), fmt.Errorf("failed to update ledger: %w", err)
	}
	return len(ids), nil
}

// evictOverflow drops a user's oldest chunks beyond keep and returns how many
// were removed. Caller holds the user's write lock. A nil col only updates the ledger.
func (s *Store) evictOverflow(ctx context.Context, col *chromem.Collection, userID int64, keep int) (int, error) {
	overflow, err := s.ledger.Overflow(ctx, userID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to list overflow chunks: %w", err)
	}
	if len(overflow) == 0 {
		return 0, nil
	}
	ids := make([]string, len(overflow))
	for i, e := range overflow {
		ids[i] = e.ChunkID
	}
	if col != nil {
		if err := col.Delete(ctx, nil, nil, ids...); err != nil {
			return 0, &Error{Op: "evict", UserID: userID, Message: "failed to evict chunks", Cause: err}
		}
	}
	if err := s.ledger.Remove(ctx, ids); err != nil {
		return len(ids), fmt.Errorf("failed to update ledger: %w", err)
	}
	return len(ids), nil
}

func (s *Store) rollback(ctx context.Context, col *chromem.Collection, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		slog.Error("failed to roll back partial batch", "count", len(ids), "err", err)
	}
}

// embedAll embeds chunks batch by batch with bounded concurrency inside each batch.
func (s *Store) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	embeddings := make([][]float32, len(chunks))
	for start := 0; start < len(chunks); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(chunks))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.EmbedConcurrency)
		for i := start; i < end; i++ {
			g.Go(func() error {
				vec, err := s.embedder.Embed(gctx, chunks[i])
				if err != nil {
					return err
				}
				embeddings[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, asEmbeddingError(err)
		}
	}
	return embeddings, nil
}

// collection returns the user's collection, creating it on first use.
func (s *Store) collection(userID int64) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadata := map[string]string{"hnsw:space": "cosine"}
	col, err := s.db.GetOrCreateCollection(s.CollectionName(userID), metadata, s.embeddingFunc())
	if err != nil {
		return nil, &Error{Op: "collection", UserID: userID, Message: "failed to get or create collection", Cause: err}
	}
	return col, nil
}

func (s *Store) userLock(userID int64) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.RWMutex{}
		s.locks[userID] = lock
	}
	return lock
}

func asEmbeddingError(err error) error {
	var embErr *llm.EmbeddingUnavailableError
	if errors.As(err, &embErr) {
		return err
	}
	return &llm.EmbeddingUnavailableError{Cause: err}
}

func (s *Store) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	}
}
