package ai

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
)

// MockEmbeddingService is a deterministic in-memory EmbeddingService
// for tests. Vectors are derived from the text hash, so equal texts
// always embed to equal vectors.
type MockEmbeddingService struct {
	Dim int
	Err error

	// Calls counts EmbedBatch invocations.
	Calls int
}

// NewMockEmbeddingService creates a mock with the given dimension.
func NewMockEmbeddingService(dim int) *MockEmbeddingService {
	return &MockEmbeddingService{Dim: dim}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *MockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = deterministicVector(text, m.Dim)
	}
	return vecs, nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.Dim
}

// MockChatService returns a canned response for every call.
type MockChatService struct {
	Response string
	Err      error
	Calls    int
}

func (m *MockChatService) Chat(ctx context.Context, messages []Message) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func deterministicVector(text string, dim int) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		seed := binary.LittleEndian.Uint32(sum[(i*4)%28:])
		v := float32(seed%1000)/500.0 - 1.0 + float32(i)*1e-4
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
