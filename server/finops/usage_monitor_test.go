package finops

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordEmbeddingCost(t *testing.T) {
	m := NewUsageMonitor()
	m.RecordEmbedding("text-embedding-3-small", 1_000_000)
	m.RecordEmbedding("text-embedding-3-small", 500_000)

	report := m.Report()
	require.Len(t, report.Models, 1)
	require.Equal(t, int64(2), report.Models[0].Requests)
	require.Equal(t, int64(1_500_000), report.Models[0].InputTokens)
	require.InDelta(t, 0.03, report.Models[0].EstimatedCost, 1e-9)
}

func TestRecordChatCost(t *testing.T) {
	m := NewUsageMonitor()
	m.RecordChat("gpt-4o-mini", 1_000_000, 1_000_000)

	report := m.Report()
	require.Len(t, report.Models, 1)
	require.InDelta(t, 0.75, report.TotalCost, 1e-9)
}

func TestUnknownModelCountedWithoutCost(t *testing.T) {
	m := NewUsageMonitor()
	m.RecordEmbedding("some-local-model", 10_000)

	report := m.Report()
	require.Equal(t, int64(1), report.TotalRequests)
	require.Zero(t, report.TotalCost)
	require.Equal(t, int64(10_000), report.Models[0].InputTokens)
}

func TestReportSortsByCost(t *testing.T) {
	m := NewUsageMonitor()
	m.RecordEmbedding("text-embedding-3-small", 1000)
	m.RecordChat("gpt-4o", 1000, 1000)

	report := m.Report()
	require.Equal(t, "gpt-4o", report.Models[0].Model)
	require.Equal(t, "text-embedding-3-small", report.Models[1].Model)
}

func TestReset(t *testing.T) {
	m := NewUsageMonitor()
	m.RecordChat("gpt-4o-mini", 100, 100)
	m.Reset()

	report := m.Report()
	require.Zero(t, report.TotalRequests)
	require.Empty(t, report.Models)
}

func TestConcurrentRecording(t *testing.T) {
	m := NewUsageMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordEmbedding("text-embedding-3-small", 10)
			}
		}()
	}
	wg.Wait()

	report := m.Report()
	require.Equal(t, int64(1600), report.TotalRequests)
	require.Equal(t, int64(16000), report.Models[0].InputTokens)
}
