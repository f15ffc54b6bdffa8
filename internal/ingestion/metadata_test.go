package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeHash(t *testing.T) {
	hash1 := computeHash("test content")
	hash2 := computeHash("different content")

	// Hash should be 64 hex characters (SHA256)
	assert.Len(t, hash1, 64)
	assert.NotEqual(t, hash1, hash2)
	assert.Equal(t, hash1, computeHash("test content"))
}

func TestNewMetadata(t *testing.T) {
	metadata := NewMetadata("héllo", "https://example.com/story")

	assert.Equal(t, "https://example.com/story", metadata.URL)
	assert.Equal(t, 5, metadata.Length)
	assert.Equal(t, computeHash("héllo"), metadata.Hash)

	_, err := time.Parse(time.RFC3339, metadata.Timestamp)
	assert.NoError(t, err)
}
