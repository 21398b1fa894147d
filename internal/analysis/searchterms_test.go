package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adscension/internal/ingest"
)

func TestAnalyzeSearchTermsExactDrift(t *testing.T) {
	cfg := testConfig()
	rows := []ingest.SearchTermRow{
		// Exact match serving the exact target: never flagged.
		{CampaignName: "Book 2 ASIN", Targeting: "B0TARGET001", MatchType: ingest.MatchExact,
			SearchTerm: "B0TARGET001", Impressions: 500, Spend: 2.00},
		// Exact match serving something else: always flagged, whatever the spend.
		{CampaignName: "Book 2 ASIN", Targeting: "B0TARGET001", MatchType: ingest.MatchExact,
			SearchTerm: "B0DRIFTED99", Impressions: 40, Spend: 0.02},
	}

	result := AnalyzeSearchTerms(rows, cfg)
	require.Len(t, result.DriftFlags, 1)

	flag := result.DriftFlags[0]
	assert.Equal(t, FlagExactMatchDrift, flag.Kind)
	assert.Equal(t, SeverityWarning, flag.Severity)
	assert.Equal(t, "B0TARGET001", flag.Target)
	assert.Equal(t, "B0DRIFTED99", flag.SearchTerm)
	assert.Contains(t, flag.Message, "targeted 'B0TARGET001'")
}

func TestAnalyzeSearchTermsBroadExpansionThreshold(t *testing.T) {
	cfg := testConfig()
	rows := []ingest.SearchTermRow{
		// Expanded, but below the spend threshold: noise, not a flag.
		{CampaignName: "Book 2 Keywords", Targeting: "space opera", MatchType: ingest.MatchBroad,
			SearchTerm: "alien invasion books", Spend: 0.30},
		// Expanded above the threshold.
		{CampaignName: "Book 2 Keywords", Targeting: "space opera", MatchType: ingest.MatchBroad,
			SearchTerm: "military scifi series", Spend: 1.20},
		// Search term contains the targeting: expansion in the harmless sense.
		{CampaignName: "Book 2 Keywords", Targeting: "space opera", MatchType: ingest.MatchBroad,
			SearchTerm: "best Space Opera books", Spend: 3.00},
	}

	result := AnalyzeSearchTerms(rows, cfg)
	require.Len(t, result.DriftFlags, 1)
	assert.Equal(t, FlagBroadMatchExpansion, result.DriftFlags[0].Kind)
	assert.Equal(t, SeverityInfo, result.DriftFlags[0].Severity)
	assert.Equal(t, "military scifi series", result.DriftFlags[0].SearchTerm)
}

func TestAnalyzeSearchTermsPhraseNeverFlagged(t *testing.T) {
	cfg := testConfig()
	rows := []ingest.SearchTermRow{
		{CampaignName: "C", Targeting: "space opera", MatchType: ingest.MatchPhrase,
			SearchTerm: "completely unrelated", Spend: 50.0},
		{CampaignName: "C", Targeting: "space opera", MatchType: ingest.MatchUnknown,
			SearchTerm: "also unrelated", Spend: 50.0},
	}

	result := AnalyzeSearchTerms(rows, cfg)
	assert.Empty(t, result.DriftFlags)
}

func TestAnalyzeSearchTermsGroupingAndSummary(t *testing.T) {
	cfg := testConfig()
	rows := []ingest.SearchTermRow{
		{CampaignName: "A", Targeting: "t2", SearchTerm: "shared term", Impressions: 10, Spend: 0.50, Orders: 1},
		{CampaignName: "A", Targeting: "t1", SearchTerm: "big term", Impressions: 500, Spend: 3.00},
		{CampaignName: "A", Targeting: "t1", SearchTerm: "shared term", Impressions: 900, Spend: 1.00},
	}

	result := AnalyzeSearchTerms(rows, cfg)

	assert.Equal(t, []string{"t1", "t2"}, result.GroupOrder)
	// Within a group, impressions descending.
	require.Len(t, result.Grouped["t1"], 2)
	assert.Equal(t, "shared term", result.Grouped["t1"][0].SearchTerm)

	// Summary sums across targets and sorts by spend descending.
	require.Len(t, result.Summary, 2)
	assert.Equal(t, "big term", result.Summary[0].SearchTerm)
	assert.Equal(t, "shared term", result.Summary[1].SearchTerm)
	assert.Equal(t, 910, result.Summary[1].Impressions)
	assert.InDelta(t, 1.50, result.Summary[1].Spend, 1e-9)
	assert.Equal(t, 1, result.Summary[1].Orders)
}

func TestAnalyzeSearchTermsTransitionNote(t *testing.T) {
	cfg := testConfig()
	cfg.Settings.ExactMatchTransitionDate = "2024-03-15"

	result := AnalyzeSearchTerms([]ingest.SearchTermRow{{Targeting: "t"}}, cfg)
	assert.Contains(t, result.TransitionNote, "2024-03-15")

	cfg.Settings.ExactMatchTransitionDate = ""
	result = AnalyzeSearchTerms([]ingest.SearchTermRow{{Targeting: "t"}}, cfg)
	assert.Empty(t, result.TransitionNote)
}

func TestApplyASINResolutionRewritesWithoutReaggregating(t *testing.T) {
	cfg := testConfig()
	rows := []ingest.SearchTermRow{
		{CampaignName: "Book 2 ASIN", Targeting: "B0TARGET001", MatchType: ingest.MatchExact,
			SearchTerm: "B0DRIFTED99", Impressions: 40, Spend: 0.75},
		{CampaignName: "Book 2 ASIN", Targeting: "B0TARGET001", MatchType: ingest.MatchExact,
			SearchTerm: "B0TARGET001", Impressions: 500, Spend: 2.00, Orders: 1},
	}
	result := AnalyzeSearchTerms(rows, cfg)
	require.Len(t, result.DriftFlags, 1)

	names := map[string]string{
		"B0TARGET001": "Comp Title One (B0TARGET001)",
		"B0DRIFTED99": "Drifted Title (B0DRIFTED99)",
	}
	ApplyASINResolution(&result, names)

	// Summary rows keep their numbers, only the label changes.
	for _, row := range result.Summary {
		if strings.HasPrefix(row.SearchTerm, "Comp Title One") {
			assert.Equal(t, 500, row.Impressions)
			assert.Equal(t, 1, row.Orders)
		}
	}

	flag := result.DriftFlags[0]
	assert.Equal(t, FlagExactMatchDrift, flag.Kind, "kind is preserved")
	assert.Equal(t, SeverityWarning, flag.Severity, "severity is preserved")
	assert.Equal(t, "Comp Title One (B0TARGET001)", flag.Target)
	assert.Equal(t, "Drifted Title (B0DRIFTED99)", flag.SearchTerm)
	assert.Equal(t, 40, flag.Impressions)
	assert.Contains(t, flag.Message, "Drifted Title")
	assert.Contains(t, flag.Message, "$0.75")
}

func TestApplyASINResolutionNoMatchesLeavesFlagsUntouched(t *testing.T) {
	cfg := testConfig()
	rows := []ingest.SearchTermRow{
		{CampaignName: "C", Targeting: "B0AAAAAAAA1", MatchType: ingest.MatchExact,
			SearchTerm: "B0BBBBBBBB2", Impressions: 10, Spend: 0.10},
	}
	result := AnalyzeSearchTerms(rows, cfg)
	require.Len(t, result.DriftFlags, 1)
	before := result.DriftFlags[0].Message

	ApplyASINResolution(&result, map[string]string{"B0UNRELATED": "Other"})
	assert.Equal(t, before, result.DriftFlags[0].Message)
}
