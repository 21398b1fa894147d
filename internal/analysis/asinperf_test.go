package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adscension/internal/config"
)

// testConfig builds the configuration shape shared by the analysis tests:
// one product-targeting and one keyword-targeting campaign plus two books.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Campaigns = map[string]config.Campaign{
		"book_2_asin": {
			Name: "Book 2 ASIN",
			Type: config.CampaignTypeProduct,
			Targets: []config.Target{
				{ASIN: "B0TARGET001", Title: "Comp Title One", Bid: fptr(0.45)},
				{ASIN: "B0TARGET002", Title: "Comp Title Two", Bid: fptr(0.35)},
				{ASIN: "B0TARGET003", Title: "Comp Title Three"},
			},
		},
		"book_2_kw": {
			Name: "Book 2 Keywords",
			Type: config.CampaignTypeKeyword,
			Targets: []config.Target{
				{ASIN: "space opera", Bid: fptr(0.55)},
				{ASIN: "military scifi", Bid: fptr(0.40)},
			},
		},
	}
	cfg.Books = map[string]config.Book{
		"book_1": {ShortTitle: "Book 1", ASINKindle: "B0BOOK1KIND", ASINPaperback: "B0BOOK1PAPR"},
		"book_2": {ShortTitle: "Book 2", ASINKindle: "B0BOOK2KIND", ASINPaperback: "B0BOOK2PAPR"},
	}
	cfg.Timeline.AmazonAdsStart = "2024-02-01"
	return cfg
}

func TestAnalyzeASINTargetsFiltersAndSorts(t *testing.T) {
	cfg := testConfig()
	targets := []TargetAggregate{
		{CampaignName: "Book 2 Keywords", Targeting: "space opera", Spend: 99.0},
		{CampaignName: "Book 2 ASIN", Targeting: "B0TARGET002", Impressions: 500, Clicks: 5, Spend: 2.00, Orders: 1},
		{CampaignName: "Book 2 ASIN", Targeting: "B0TARGET001", Impressions: 900, Clicks: 9, Spend: 6.00},
	}

	perf := AnalyzeASINTargets(targets, cfg)
	require.Len(t, perf.Table, 2, "keyword campaign rows must be excluded")

	// Spend descending.
	assert.Equal(t, "B0TARGET001", perf.Table[0].Targeting)
	assert.Equal(t, "Comp Title One", perf.Table[0].TargetTitle)
	require.NotNil(t, perf.Table[0].ConfigBid)
	assert.InDelta(t, 0.45, *perf.Table[0].ConfigBid, 1e-9)
	assert.Equal(t, "B0TARGET002", perf.Table[1].Targeting)
}

func TestAnalyzeASINTargetsFlags(t *testing.T) {
	cfg := testConfig()
	targets := []TargetAggregate{
		// Above the $5 threshold with zero orders.
		{CampaignName: "Book 2 ASIN", Targeting: "B0TARGET001", Impressions: 900, Clicks: 9, Spend: 6.00},
		// Below the 10-impression threshold.
		{CampaignName: "Book 2 ASIN", Targeting: "B0TARGET002", Impressions: 3, Spend: 0.10},
	}

	perf := AnalyzeASINTargets(targets, cfg)

	kinds := map[FlagKind]int{}
	for _, f := range perf.Flags {
		kinds[f.Kind]++
	}
	assert.Equal(t, 1, kinds[FlagHighSpendNoOrders])
	assert.Equal(t, 1, kinds[FlagUnderserving])
	// B0TARGET003 is configured but absent from the data.
	assert.Equal(t, 1, kinds[FlagZeroActivity])

	require.Len(t, perf.ZeroActivityTargets, 1)
	assert.Equal(t, "B0TARGET003", perf.ZeroActivityTargets[0].ASIN)
	assert.Equal(t, "Comp Title Three", perf.ZeroActivityTargets[0].Title)
}

func TestAnalyzeASINTargetsSpendAtThresholdNotFlagged(t *testing.T) {
	cfg := testConfig()
	targets := []TargetAggregate{
		{CampaignName: "Book 2 ASIN", Targeting: "B0TARGET001", Impressions: 100, Spend: 5.00},
	}

	perf := AnalyzeASINTargets(targets, cfg)
	for _, f := range perf.Flags {
		if f.Kind == FlagHighSpendNoOrders {
			t.Fatalf("spend exactly at threshold must not flag: %+v", f)
		}
	}
}

func TestAnalyzeKeywordsSortsByImpressions(t *testing.T) {
	cfg := testConfig()
	targets := []TargetAggregate{
		{CampaignName: "Book 2 Keywords", Targeting: "military scifi", Impressions: 100, Clicks: 1, Spend: 0.40},
		{CampaignName: "Book 2 Keywords", Targeting: "space opera", Impressions: 5000, Clicks: 10, Spend: 4.00, Orders: 1},
		{CampaignName: "Book 2 ASIN", Targeting: "B0TARGET001", Impressions: 9999},
	}

	perf := AnalyzeKeywords(targets, cfg)
	require.Len(t, perf.Table, 2, "product campaign rows must be excluded")
	assert.Equal(t, "space opera", perf.Table[0].Targeting)
	assert.Equal(t, "military scifi", perf.Table[1].Targeting)
	assert.InDelta(t, 0.1, perf.Table[0].ConversionRate, 1e-9)
}

func TestAnalyzeKeywordsZeroImpressionsFlag(t *testing.T) {
	cfg := testConfig()
	targets := []TargetAggregate{
		{CampaignName: "Book 2 Keywords", Targeting: "space opera", Impressions: 0, Bid: fptr(0.55)},
	}

	perf := AnalyzeKeywords(targets, cfg)
	require.Len(t, perf.Flags, 1)
	assert.Equal(t, FlagZeroImpressions, perf.Flags[0].Kind)
	assert.Contains(t, perf.Flags[0].Message, "$0.55")
}
