package v1

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/doclave/doclave/internal/profile"
	"github.com/doclave/doclave/plugin/ai"
	"github.com/doclave/doclave/server/finops"
	"github.com/doclave/doclave/server/service/ingest"
	"github.com/doclave/doclave/server/service/linter"
	"github.com/doclave/doclave/server/service/retrieval"
	"github.com/doclave/doclave/store"
	"github.com/doclave/doclave/store/db/sqlite"
)

func newTestAPI(t *testing.T) *echo.Echo {
	t.Helper()
	p := &profile.Profile{
		Mode:         "dev",
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "doclave_test.db"),
		Collection:   "compliance_kb",
		Version:      "0.1.0",
		ChunkSize:    500,
		ChunkOverlap: 100,
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	s := store.New(driver, p)
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	embedder := ai.NewMockEmbeddingService(8)
	ingestor := ingest.NewIngestor(s, embedder, p, logger)
	retriever := retrieval.NewRetriever(s, embedder, p, logger)
	lint := linter.NewLinter(retriever, nil, nil, nil, logger)

	e := echo.New()
	NewAPIV1Service(p, s, ingestor, retriever, lint, finops.NewUsageMonitor(), logger).Register(e)
	return e
}

func uploadRequest(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	e := newTestAPI(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "healthy", resp.Status)
	require.Equal(t, "sqlite", resp.Driver)
}

func TestIngestAndSearch(t *testing.T) {
	e := newTestAPI(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "/api/v1/documents/ingest", "sop_cleaning.txt",
		"Document ID: SOP-001\n\nPurpose\nEquipment must be cleaned after each batch."))
	require.Equal(t, http.StatusOK, rec.Code)

	var result ingest.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, ingest.StatusStored, result.Status)
	require.NotZero(t, result.ChunkCount)

	searchBody := strings.NewReader(`{"query": "cleaned after each batch", "limit": 3}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/search", searchBody)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var search struct {
		Results []*searchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &search))
	require.NotEmpty(t, search.Results)
	require.Contains(t, search.Results[0].Text, "cleaned")
	require.NotEmpty(t, search.Results[0].Snippet)
}

func TestSearchRequiresQuery(t *testing.T) {
	e := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/search", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeDocument(t *testing.T) {
	e := newTestAPI(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "/api/v1/documents/analyze", "incomplete_sop.txt",
		"Purpose\nA procedure missing nearly everything."))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Less(t, resp.Score, 100)
	require.NotEmpty(t, resp.Findings)
	require.Equal(t, "incomplete_sop.txt", resp.DocumentInfo.Filename)
	require.NotNil(t, resp.Ingestion)
}

func TestIngestUnsupportedFormat(t *testing.T) {
	e := newTestAPI(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "/api/v1/documents/ingest", "report.xlsx", "binary"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentChunksAndDelete(t *testing.T) {
	e := newTestAPI(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "/api/v1/documents/ingest", "sop_cleaning.txt",
		"Document ID: SOP-001\n\nPurpose\nEquipment must be cleaned after each batch."))
	require.Equal(t, http.StatusOK, rec.Code)

	var result ingest.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+result.DocumentID+"/chunks", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var chunks chunksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chunks))
	require.Equal(t, result.ChunkCount, chunks.TotalChunks)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+result.DocumentID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+result.DocumentID, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStats(t *testing.T) {
	e := newTestAPI(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats store.KnowledgeStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Zero(t, stats.DocumentCount)
}

func TestGetConfig(t *testing.T) {
	e := newTestAPI(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp configResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "0.1.0", resp.APIVersion)
	require.Contains(t, resp.SupportedFormats, ".pdf")
	// The test profile carries no API key.
	require.False(t, resp.ChatModelConfigured)
	require.False(t, resp.EmbeddingModelConfigured)
}

func TestGetUsage(t *testing.T) {
	e := newTestAPI(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/usage", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report finops.UsageReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Zero(t, report.TotalCost)
}
