package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"adscension/internal/analysis"
	"adscension/internal/ingest"
)

func TestResolvePullDate(t *testing.T) {
	pull, err := resolvePullDate("2024-03-11")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), pull)

	// Week window derived from the pull date: the seven days ending the
	// day before the pull.
	weekEnd := pull.AddDate(0, 0, -1)
	weekStart := pull.AddDate(0, 0, -7)
	assert.Equal(t, "2024-03-10", weekEnd.Format("2006-01-02"))
	assert.Equal(t, "2024-03-04", weekStart.Format("2006-01-02"))

	_, err = resolvePullDate("11/03/2024")
	assert.Error(t, err)

	today, err := resolvePullDate("")
	require.NoError(t, err)
	assert.Equal(t, 0, today.Hour())
}

func TestIsExportFile(t *testing.T) {
	assert.True(t, isExportFile("/tmp/Sponsored Products Search term report.csv"))
	assert.True(t, isExportFile("/tmp/KDP_Royalties_Estimator.XLSX"))
	assert.False(t, isExportFile("/tmp/notes.txt"))
	assert.False(t, isExportFile("/tmp/report.pdf"))
}

func TestClassifyExport(t *testing.T) {
	assert.Equal(t, "search-terms", classifyExport("/tmp/Sponsored Products Search term report.csv"))
	assert.Equal(t, "kdp", classifyExport("/tmp/KDP_Royalties_Estimator.xlsx"))
	assert.Equal(t, "kdp", classifyExport("/tmp/royalties-2024.csv"))
	assert.Equal(t, "", classifyExport("/tmp/orders.csv"))
}

func TestCrossCheckCampaigns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	prev := logger
	logger = zap.New(core)
	defer func() { logger = prev }()

	summary := analysis.CampaignSummary{Table: []analysis.CampaignAggregate{
		{CampaignName: "Book 2 ASIN", Clicks: 10, Orders: 2, Spend: 5.00, Sales: 19.99},
		{CampaignName: "Book 2 Keywords", Clicks: 4, Orders: 1, Spend: 1.20, Sales: 9.99},
		{CampaignName: "Orphan", Clicks: 1},
	}}
	rows := []ingest.CampaignRow{
		// Matches within a cent.
		{CampaignName: "Book 2 ASIN", Clicks: 10, Orders: 2, Spend: 5.004, Sales: 19.99},
		// Click count diverges.
		{CampaignName: "Book 2 Keywords", Clicks: 6, Orders: 1, Spend: 1.20, Sales: 9.99},
	}
	crossCheckCampaigns(summary, rows)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "campaign totals diverge from campaign report", entries[0].Message)
	assert.Equal(t, "campaign missing from campaign report", entries[1].Message)
}

func TestMismatchCents(t *testing.T) {
	assert.False(t, mismatchCents(1.00, 1.009))
	assert.False(t, mismatchCents(1.009, 1.00))
	assert.True(t, mismatchCents(1.00, 1.02))
}

func TestFormatMetric(t *testing.T) {
	assert.Equal(t, "$12.50", formatMetric("spend", 12.5))
	assert.Equal(t, "42.00%", formatMetric("acos", 0.42))
	assert.Equal(t, "2.38x", formatMetric("roas", 2.38))
	assert.Equal(t, "1234", formatMetric("impressions", 1234))
}
