package types

// Chunk is a fixed-size slice of an article body stored in a user's vector index.
type Chunk struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	Title      string    `json:"title"`
	Link       string    `json:"link"`
	Snippet    string    `json:"snippet"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
}

// RetrievalHit is the read projection of a Chunk returned by a similarity query.
type RetrievalHit struct {
	Text    string `json:"text"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}
