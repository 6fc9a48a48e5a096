package linter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/doclave/doclave/plugin/ai"
	"github.com/doclave/doclave/plugin/parser"
)

// conformanceThreshold is the minimum cosine similarity a section must
// reach against its golden template counterpart.
const conformanceThreshold = 0.9

const stalenessPrompt = `You are an automated compliance checking API. You only respond in valid JSON.
Analyze the following list of regulatory standards. For each standard, determine if it is outdated.

Respond with a single JSON array of objects. Each object must have two keys:
1. "reference": The original standard text.
2. "is_outdated": A boolean value, true if the standard is outdated, false otherwise.

Do not add any other text, notes, or explanations. Your entire response must be only the JSON array.

Example response:
[
    {"reference": "ISO 9001:1994", "is_outdated": true},
    {"reference": "21 CFR Part 11", "is_outdated": false}
]

List of standards to analyze:
%s`

type stalenessVerdict struct {
	Reference  string `json:"reference"`
	IsOutdated bool   `json:"is_outdated"`
}

// checkReferenceStaleness asks the chat model which listed standards
// are outdated. A failed call or unparseable response yields no
// findings rather than failing the analysis.
func (l *Linter) checkReferenceStaleness(ctx context.Context, referencesText string) []*Finding {
	if strings.TrimSpace(referencesText) == "" {
		return nil
	}

	response, err := l.chat.Chat(ctx, []ai.Message{
		ai.UserMessage(fmt.Sprintf(stalenessPrompt, referencesText)),
	})
	if err != nil {
		l.logger.Warn("reference staleness check skipped", slog.String("error", err.Error()))
		return nil
	}

	var verdicts []stalenessVerdict
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &verdicts); err != nil {
		l.logger.Warn("reference staleness response unparseable", slog.String("error", err.Error()))
		return nil
	}

	var findings []*Finding
	for _, v := range verdicts {
		if !v.IsOutdated {
			continue
		}
		reference := v.Reference
		if reference == "" {
			reference = "Unknown"
		}
		findings = append(findings, newFinding(
			fmt.Sprintf("Outdated Reference: %s", reference),
			SeverityMajor,
			"References",
		))
	}
	return findings
}

// checkSemanticConformance embeds each section and compares it against
// the golden template embedding for the same title. Sections without a
// golden counterpart are skipped.
func (l *Linter) checkSemanticConformance(ctx context.Context, sections []parser.Section) []*Finding {
	var findings []*Finding
	for _, section := range sections {
		if strings.TrimSpace(section.Body) == "" {
			continue
		}

		golden, ok := l.goldenFor(section.Title)
		if !ok {
			continue
		}

		embedding, err := l.embedder.Embed(ctx, section.Body)
		if err != nil {
			l.logger.Warn("semantic conformance check skipped for section",
				slog.String("section", section.Title),
				slog.String("error", err.Error()),
			)
			continue
		}

		similarity := cosineSimilarity(embedding, golden)
		if similarity < conformanceThreshold {
			findings = append(findings, newFinding(
				fmt.Sprintf("Section '%s' deviates from template (similarity: %.2f).", section.Title, similarity),
				SeverityMajor,
				"Template Conformance",
			))
		}
	}
	return findings
}

func (l *Linter) goldenFor(title string) ([]float32, bool) {
	for key, embedding := range l.golden {
		if strings.EqualFold(key, title) {
			return embedding, true
		}
	}
	return nil, false
}

// stripCodeFence unwraps a fenced markdown response so a model that
// wraps its JSON in a code block still parses.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
