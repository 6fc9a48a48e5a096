// Package linter runs GxP compliance checks over parsed documents and
// enriches findings with context retrieved from the knowledge base.
package linter

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lithammer/shortuuid/v4"

	"github.com/doclave/doclave/plugin/ai"
	"github.com/doclave/doclave/plugin/parser"
	"github.com/doclave/doclave/server/internal/observability"
)

// Severity grades a finding.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityMajor    Severity = "Major"
	SeverityMinor    Severity = "Minor"
)

// severityWeights are the score penalties per severity.
var severityWeights = map[Severity]int{
	SeverityCritical: 3,
	SeverityMajor:    2,
	SeverityMinor:    1,
}

// enrichmentSnippets is how many knowledge base chunks back one finding.
const enrichmentSnippets = 3

// Finding is one compliance issue.
type Finding struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Category    string   `json:"category,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// Report is the outcome of analyzing one document.
type Report struct {
	Filename      string           `json:"filename"`
	Score         int              `json:"score"`
	Findings      []*Finding       `json:"findings"`
	Metadata      *parser.Metadata `json:"metadata,omitempty"`
	SectionTitles []string         `json:"sectionTitles"`
}

// ContextRetriever supplies knowledge base snippets for findings.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, limit int) []string
}

// Linter runs all compliance checks.
type Linter struct {
	retriever ContextRetriever
	chat      ai.ChatService
	embedder  ai.EmbeddingService
	golden    map[string][]float32
	logger    *slog.Logger
}

// NewLinter creates a Linter. chat, embedder, and golden are optional:
// without chat the staleness check is skipped, without embedder and
// golden the conformance check is skipped, and without retriever
// findings carry no knowledge base context.
func NewLinter(retriever ContextRetriever, chat ai.ChatService, embedder ai.EmbeddingService, golden map[string][]float32, logger *slog.Logger) *Linter {
	return &Linter{
		retriever: retriever,
		chat:      chat,
		embedder:  embedder,
		golden:    golden,
		logger:    logger,
	}
}

// Analyze runs every check against the document and returns the scored
// report.
func (l *Linter) Analyze(ctx context.Context, filename string, doc *parser.ParsedDocument) *Report {
	reqCtx := observability.NewRequestContext(ctx, l.logger, "analyze", "")
	observability.GlobalMetrics().RecordRequest("analyze")

	var findings []*Finding
	findings = append(findings, checkMissingSections(doc.Sections)...)
	findings = append(findings, checkMetadataIssues(&doc.Metadata)...)
	findings = append(findings, checkRevisionHistory(doc.Sections)...)
	findings = append(findings, checkPlaceholders(doc.FullText)...)
	findings = append(findings, checkProcedureClarity(doc.Sections)...)
	findings = append(findings, checkApprovalSignatures(doc.FullText)...)

	if l.chat != nil {
		findings = append(findings, l.checkReferenceStaleness(ctx, referencesText(doc.Sections))...)
	}
	if l.embedder != nil && len(l.golden) > 0 {
		findings = append(findings, l.checkSemanticConformance(ctx, doc.Sections)...)
	}

	l.enrich(ctx, findings)

	report := &Report{
		Filename:      filename,
		Score:         CalculateScore(findings),
		Findings:      findings,
		Metadata:      &doc.Metadata,
		SectionTitles: doc.SectionTitles(),
	}

	observability.GlobalMetrics().RecordDuration("analyze", reqCtx.Duration())
	reqCtx.Info("analysis finished",
		slog.String(observability.LogFieldFilename, filename),
		slog.Int("findings", len(findings)),
		slog.Int("score", report.Score),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	)
	return report
}

// CalculateScore maps findings to a 0-100 compliance score. Unknown
// severities count as Minor.
func CalculateScore(findings []*Finding) int {
	penalty := 0
	for _, f := range findings {
		weight, ok := severityWeights[f.Severity]
		if !ok {
			weight = severityWeights[SeverityMinor]
		}
		penalty += weight
	}
	if penalty > 100 {
		return 0
	}
	return 100 - penalty
}

// enrich attaches knowledge base context to each finding.
func (l *Linter) enrich(ctx context.Context, findings []*Finding) {
	if l.retriever == nil {
		return
	}
	for _, finding := range findings {
		snippets := l.retriever.Retrieve(ctx, finding.Description, enrichmentSnippets)
		if len(snippets) == 0 {
			finding.Explanation = "No relevant context found in knowledge base."
			continue
		}
		finding.Explanation = "Relevant Context from Knowledge Base:\n\n" + strings.Join(snippets, "\n\n")
	}
}

func referencesText(sections []parser.Section) string {
	for _, s := range sections {
		if strings.Contains(strings.ToLower(s.Title), "references") {
			return s.Body
		}
	}
	return ""
}

func newFinding(description string, severity Severity, category string) *Finding {
	return &Finding{
		ID:          shortuuid.New(),
		Description: description,
		Severity:    severity,
		Category:    category,
	}
}
