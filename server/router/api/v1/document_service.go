package v1

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	goerrors "github.com/pkg/errors"

	"github.com/doclave/doclave/plugin/decoder"
	"github.com/doclave/doclave/plugin/parser"
	"github.com/doclave/doclave/server/internal/errors"
	"github.com/doclave/doclave/server/service/ingest"
	"github.com/doclave/doclave/server/service/linter"
	"github.com/doclave/doclave/server/service/retrieval"
	"github.com/doclave/doclave/store"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Driver  string `json:"driver"`
}

// Health reports liveness.
func (s *APIV1Service) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, &healthResponse{
		Status:  "healthy",
		Version: s.Profile.Version,
		Driver:  s.Profile.Driver,
	})
}

type configResponse struct {
	ChatModelConfigured      bool     `json:"chatModelConfigured"`
	EmbeddingModelConfigured bool     `json:"embeddingModelConfigured"`
	SupportedFormats         []string `json:"supportedFormats"`
	APIVersion               string   `json:"apiVersion"`
}

// GetConfig reports configuration status without sensitive values.
func (s *APIV1Service) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, &configResponse{
		ChatModelConfigured:      s.Profile.AIAPIKey != "" && s.Profile.AIChatModel != "",
		EmbeddingModelConfigured: s.Profile.AIAPIKey != "" && s.Profile.AIEmbedModel != "",
		SupportedFormats:         decoder.SupportedExtensions,
		APIVersion:               s.Profile.Version,
	})
}

type analyzeResponse struct {
	Score        int               `json:"score"`
	Findings     []*linter.Finding `json:"findings"`
	DocumentInfo *documentInfo     `json:"documentInfo"`
	Ingestion    *ingest.Result    `json:"ingestion"`
}

type documentInfo struct {
	Filename      string           `json:"filename"`
	SectionsFound int              `json:"sectionsFound"`
	Metadata      *parser.Metadata `json:"metadata"`
}

// AnalyzeDocument ingests the uploaded document and runs compliance
// analysis over it. Ingestion failure does not block analysis.
func (s *APIV1Service) AnalyzeDocument(c echo.Context) error {
	filename, content, err := readUpload(c)
	if err != nil {
		return err
	}

	decoded, err := decoder.Decode(filename, content)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.DecodeUnavailable("unsupported document", err).Error())
	}
	doc := parser.Segment(decoded.Blocks, decoded.Styled)
	doc.Metadata.PageCount = decoded.PageCount

	ctx := c.Request().Context()
	ingestion, err := s.Ingestor.IngestDocument(ctx, filename, doc)
	if err != nil {
		// Analysis still runs; the response carries the failed status.
		s.logger.Warn("ingestion failed during analysis",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
	}

	report := s.Linter.Analyze(ctx, filename, doc)

	return c.JSON(http.StatusOK, &analyzeResponse{
		Score:    report.Score,
		Findings: report.Findings,
		DocumentInfo: &documentInfo{
			Filename:      filename,
			SectionsFound: len(doc.Sections),
			Metadata:      &doc.Metadata,
		},
		Ingestion: ingestion,
	})
}

// IngestDocument ingests the uploaded document without analyzing it.
func (s *APIV1Service) IngestDocument(c echo.Context) error {
	filename, content, err := readUpload(c)
	if err != nil {
		return err
	}

	result, err := s.Ingestor.IngestFile(c.Request().Context(), filename, content)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeDecodeUnavailable) || errors.IsCode(err, errors.ErrCodeInvalidArgument) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

type searchRequest struct {
	Query      string `json:"query"`
	Limit      int    `json:"limit"`
	DocumentID string `json:"documentId"`
	ChunkType  string `json:"chunkType"`
}

type searchResult struct {
	ID         string                `json:"id"`
	DocumentID string                `json:"documentId"`
	Filename   string                `json:"filename"`
	Section    string                `json:"section,omitempty"`
	ChunkType  string                `json:"chunkType"`
	Text       string                `json:"text"`
	Snippet    string                `json:"snippet"`
	Highlights []retrieval.Highlight `json:"highlights,omitempty"`
	Score      float32               `json:"score"`
}

// SearchDocuments answers a similarity query.
func (s *APIV1Service) SearchDocuments(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed search request")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "search query is required")
	}

	results, err := s.Retriever.Query(c.Request().Context(), req.Query, retrieval.QueryOptions{
		Limit:      req.Limit,
		DocumentID: req.DocumentID,
		Type:       store.ChunkType(req.ChunkType),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	extractor := retrieval.NewSnippetExtractor()
	out := make([]*searchResult, 0, len(results))
	for _, sc := range results {
		snippet, highlights := extractor.Snippet(sc.Chunk.Text, req.Query)
		out = append(out, &searchResult{
			ID:         sc.Chunk.ID,
			DocumentID: sc.Chunk.DocumentID,
			Filename:   sc.Chunk.Filename,
			Section:    sc.Chunk.Section,
			ChunkType:  string(sc.Chunk.Type),
			Text:       sc.Chunk.Text,
			Snippet:    snippet,
			Highlights: highlights,
			Score:      sc.Score,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"results": out})
}

// GetStats summarizes the collection.
func (s *APIV1Service) GetStats(c echo.Context) error {
	stats, err := s.Store.Stats(c.Request().Context(), s.Profile.Collection)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

// GetUsage reports AI provider token usage and estimated spend.
func (s *APIV1Service) GetUsage(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Usage.Report())
}

type chunksResponse struct {
	DocumentID  string       `json:"documentId"`
	TotalChunks int          `json:"totalChunks"`
	Chunks      []*chunkView `json:"chunks"`
}

type chunkView struct {
	ID        string `json:"id"`
	ChunkType string `json:"chunkType"`
	Section   string `json:"section,omitempty"`
	Position  int    `json:"position"`
	Text      string `json:"text"`
}

// GetDocumentChunks lists a document's chunks without embeddings.
func (s *APIV1Service) GetDocumentChunks(c echo.Context) error {
	documentID := c.Param("id")
	chunks, err := s.Store.ListChunks(c.Request().Context(), &store.FindChunk{
		Collection: s.Profile.Collection,
		DocumentID: &documentID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	views := make([]*chunkView, 0, len(chunks))
	for _, chunk := range chunks {
		views = append(views, &chunkView{
			ID:        chunk.ID,
			ChunkType: string(chunk.Type),
			Section:   chunk.Section,
			Position:  chunk.Position,
			Text:      chunk.Text,
		})
	}
	return c.JSON(http.StatusOK, &chunksResponse{
		DocumentID:  documentID,
		TotalChunks: len(views),
		Chunks:      views,
	})
}

// DeleteDocument removes a document's chunks.
func (s *APIV1Service) DeleteDocument(c echo.Context) error {
	documentID := c.Param("id")
	n, err := s.Store.DeleteChunks(c.Request().Context(), &store.DeleteChunk{
		Collection: s.Profile.Collection,
		DocumentID: documentID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if n == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"documentId":    documentID,
		"deletedChunks": n,
	})
}

func readUpload(c echo.Context) (string, []byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "multipart field 'file' is required")
	}
	if !decoder.Supported(fileHeader.Filename) {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, goerrors.Wrapf(decoder.ErrUnsupportedFormat, "file %q", fileHeader.Filename).Error())
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "cannot open upload")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "cannot read upload")
	}
	return fileHeader.Filename, content, nil
}
