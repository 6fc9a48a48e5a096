package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newEmbeddingTestServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type datum struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Data []datum `json:"data"`
		}{}
		for i := range req.Input {
			vec := make([]float32, dim)
			vec[0] = float32(i + 1)
			resp.Data = append(resp.Data, datum{Embedding: vec, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestEmbedBatch(t *testing.T) {
	srv := newEmbeddingTestServer(t, 4)
	defer srv.Close()

	svc, err := NewEmbeddingService(&EmbeddingConfig{
		Model:      "text-embedding-3-small",
		Dimensions: 4,
		APIKey:     "test-key",
		BaseURL:    srv.URL,
	})
	require.NoError(t, err)
	require.Equal(t, 4, svc.Dimensions())

	vecs, err := svc.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	require.Equal(t, float32(1), vecs[0][0])
	require.Equal(t, float32(2), vecs[1][0])
}

func TestEmbedSingle(t *testing.T) {
	srv := newEmbeddingTestServer(t, 4)
	defer srv.Close()

	svc, err := NewEmbeddingService(&EmbeddingConfig{
		Model:      "text-embedding-3-small",
		Dimensions: 4,
		APIKey:     "test-key",
		BaseURL:    srv.URL,
	})
	require.NoError(t, err)

	vec, err := svc.Embed(context.Background(), "alpha")
	require.NoError(t, err)
	require.Len(t, vec, 4)
}

func TestEmbedBatchDimensionMismatch(t *testing.T) {
	srv := newEmbeddingTestServer(t, 3)
	defer srv.Close()

	svc, err := NewEmbeddingService(&EmbeddingConfig{
		Model:      "text-embedding-3-small",
		Dimensions: 4,
		APIKey:     "test-key",
		BaseURL:    srv.URL,
	})
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"alpha"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "dimension mismatch")
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	svc, err := NewEmbeddingService(&EmbeddingConfig{
		Model:      "text-embedding-3-small",
		Dimensions: 4,
		APIKey:     "test-key",
	})
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), nil)
	require.Error(t, err)
}

func TestNewEmbeddingServiceRequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(&EmbeddingConfig{Model: "m", Dimensions: 4})
	require.Error(t, err)
}
