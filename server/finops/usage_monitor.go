// Package finops tracks AI provider spend: token counts and estimated
// cost per model for embedding and chat calls.
package finops

import (
	"sort"
	"sync"
	"time"
)

// Prices in USD per million tokens. Unknown models are still counted,
// with zero cost.
var modelPricing = map[string]struct {
	Input  float64
	Output float64
}{
	"text-embedding-3-small": {Input: 0.02},
	"text-embedding-3-large": {Input: 0.13},
	"gpt-4o-mini":            {Input: 0.15, Output: 0.60},
	"gpt-4o":                 {Input: 2.50, Output: 10.00},
}

// ModelUsage accumulates per-model counters.
type ModelUsage struct {
	Model         string  `json:"model"`
	Requests      int64   `json:"requests"`
	InputTokens   int64   `json:"inputTokens"`
	OutputTokens  int64   `json:"outputTokens"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// UsageReport is a point-in-time snapshot of spend, most expensive
// model first.
type UsageReport struct {
	Since         time.Time     `json:"since"`
	TotalRequests int64         `json:"totalRequests"`
	TotalCost     float64       `json:"totalCost"`
	Models        []*ModelUsage `json:"models"`
}

// UsageMonitor is a concurrency-safe in-memory spend tracker. It
// implements ai.UsageRecorder.
type UsageMonitor struct {
	mu    sync.Mutex
	since time.Time
	usage map[string]*ModelUsage
}

func NewUsageMonitor() *UsageMonitor {
	return &UsageMonitor{
		since: time.Now(),
		usage: make(map[string]*ModelUsage),
	}
}

// RecordEmbedding accounts one embedding request.
func (m *UsageMonitor) RecordEmbedding(model string, tokens int) {
	m.record(model, tokens, 0)
}

// RecordChat accounts one chat completion request.
func (m *UsageMonitor) RecordChat(model string, promptTokens, completionTokens int) {
	m.record(model, promptTokens, completionTokens)
}

func (m *UsageMonitor) record(model string, inputTokens, outputTokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.usage[model]
	if !ok {
		u = &ModelUsage{Model: model}
		m.usage[model] = u
	}
	u.Requests++
	u.InputTokens += int64(inputTokens)
	u.OutputTokens += int64(outputTokens)

	pricing := modelPricing[model]
	u.EstimatedCost += pricing.Input*float64(inputTokens)/1e6 +
		pricing.Output*float64(outputTokens)/1e6
}

// Report snapshots the counters.
func (m *UsageMonitor) Report() *UsageReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := &UsageReport{
		Since:  m.since,
		Models: make([]*ModelUsage, 0, len(m.usage)),
	}
	for _, u := range m.usage {
		copied := *u
		report.Models = append(report.Models, &copied)
		report.TotalRequests += u.Requests
		report.TotalCost += u.EstimatedCost
	}
	sort.Slice(report.Models, func(i, j int) bool {
		if report.Models[i].EstimatedCost != report.Models[j].EstimatedCost {
			return report.Models[i].EstimatedCost > report.Models[j].EstimatedCost
		}
		return report.Models[i].Model < report.Models[j].Model
	})
	return report
}

// Reset clears the counters and restarts the reporting period.
func (m *UsageMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.since = time.Now()
	m.usage = make(map[string]*ModelUsage)
}
