package analysis

import (
	"fmt"
	"sort"
	"strings"

	"adscension/internal/config"
	"adscension/internal/ingest"
)

// broadMatchSpendThreshold is the minimum spend before a broad-match
// expansion is worth surfacing. Expansion is expected behavior; only
// non-trivial spend makes it informative.
const broadMatchSpendThreshold = 0.50

// SearchTermSummaryRow is one actual search term summed across all campaigns
// and targets — the "what are people actually typing" view.
type SearchTermSummaryRow struct {
	SearchTerm  string
	Impressions int
	Clicks      int
	Spend       float64
	Orders      int
}

// SearchTermAnalysis is the drift detector's result.
type SearchTermAnalysis struct {
	// Grouped maps each targeting expression to its search-term rows,
	// sorted by impressions descending.
	Grouped map[string][]ingest.SearchTermRow
	// GroupOrder lists Grouped's keys in deterministic render order.
	GroupOrder []string
	DriftFlags []Flag
	// Summary is sorted by spend descending.
	Summary []SearchTermSummaryRow
	// TransitionNote annotates the exact-match transition date from
	// configuration; it is never a computation input.
	TransitionNote string
}

// AnalyzeSearchTerms compares each row's intended targeting expression
// against the search term that actually triggered the ad.
//
// Exact match is a guarantee Amazon can violate in practice — any divergence
// is the signal worth surfacing. Broad match divergence is expected, flagged
// only above the spend threshold. Phrase and unknown match types carry
// insufficient signal to judge, so they are never flagged.
func AnalyzeSearchTerms(rows []ingest.SearchTermRow, cfg *config.Config) SearchTermAnalysis {
	result := SearchTermAnalysis{Grouped: map[string][]ingest.SearchTermRow{}}
	if len(rows) == 0 {
		return result
	}

	for _, row := range rows {
		targeting := strings.TrimSpace(row.Targeting)
		searchTerm := strings.TrimSpace(row.SearchTerm)

		switch row.MatchType {
		case ingest.MatchExact:
			if targeting != searchTerm {
				result.DriftFlags = append(result.DriftFlags, Flag{
					Kind:        FlagExactMatchDrift,
					Severity:    SeverityWarning,
					Campaign:    row.CampaignName,
					Target:      targeting,
					SearchTerm:  searchTerm,
					Impressions: row.Impressions,
					Spend:       row.Spend,
					Message: fmt.Sprintf(
						"Exact match drift: targeted '%s' but appeared on '%s' (%d impressions, $%.2f spend)",
						targeting, searchTerm, row.Impressions, row.Spend),
				})
			}
		case ingest.MatchBroad:
			if !strings.Contains(strings.ToLower(searchTerm), strings.ToLower(targeting)) &&
				row.Spend > broadMatchSpendThreshold {
				result.DriftFlags = append(result.DriftFlags, Flag{
					Kind:        FlagBroadMatchExpansion,
					Severity:    SeverityInfo,
					Campaign:    row.CampaignName,
					Target:      targeting,
					SearchTerm:  searchTerm,
					Impressions: row.Impressions,
					Spend:       row.Spend,
					Message: fmt.Sprintf(
						"Broad match expanded: '%s' → '%s' ($%.2f spend)",
						targeting, searchTerm, row.Spend),
				})
			}
		}

		result.Grouped[targeting] = append(result.Grouped[targeting], row)
	}

	for targeting, group := range result.Grouped {
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Impressions != group[j].Impressions {
				return group[i].Impressions > group[j].Impressions
			}
			return group[i].SearchTerm < group[j].SearchTerm
		})
		result.Grouped[targeting] = group
		result.GroupOrder = append(result.GroupOrder, targeting)
	}
	sort.Strings(result.GroupOrder)

	sums := make(map[string]*SearchTermSummaryRow)
	var terms []string
	for _, row := range rows {
		s, ok := sums[row.SearchTerm]
		if !ok {
			s = &SearchTermSummaryRow{SearchTerm: row.SearchTerm}
			sums[row.SearchTerm] = s
			terms = append(terms, row.SearchTerm)
		}
		s.Impressions += row.Impressions
		s.Clicks += row.Clicks
		s.Spend += row.Spend
		s.Orders += row.Orders
	}
	for _, term := range terms {
		result.Summary = append(result.Summary, *sums[term])
	}
	sort.SliceStable(result.Summary, func(i, j int) bool {
		if result.Summary[i].Spend != result.Summary[j].Spend {
			return result.Summary[i].Spend > result.Summary[j].Spend
		}
		return result.Summary[i].SearchTerm < result.Summary[j].SearchTerm
	})

	if d := cfg.Settings.ExactMatchTransitionDate; d != "" {
		result.TransitionNote = fmt.Sprintf(
			"Note: Switched from expanded to exact ASIN matching on %s. "+
				"Drift before this date may reflect expanded match behavior.", d)
	}

	return result
}

// ApplyASINResolution rewrites raw ASIN identifiers in the summary and the
// drift-flag messages into display names ("Title (ASIN)"). The rewrite is a
// post-processing pass: no aggregation re-runs, and a flag's kind, severity,
// and numeric context are preserved — only the human-readable text and the
// identifier fields change.
func ApplyASINResolution(result *SearchTermAnalysis, names map[string]string) {
	if len(names) == 0 {
		return
	}

	for i, row := range result.Summary {
		if display, ok := names[row.SearchTerm]; ok {
			result.Summary[i].SearchTerm = display
		}
	}

	for i := range result.DriftFlags {
		flag := &result.DriftFlags[i]
		target := flag.Target
		searchTerm := flag.SearchTerm
		if display, ok := names[target]; ok {
			target = display
		}
		if display, ok := names[searchTerm]; ok {
			searchTerm = display
		}
		if target == flag.Target && searchTerm == flag.SearchTerm {
			continue
		}
		flag.Target = target
		flag.SearchTerm = searchTerm
		flag.Message = fmt.Sprintf(
			"%s: targeted '%s' but appeared on '%s' (%d impressions, $%.2f spend)",
			titleCase(string(flag.Kind)), target, searchTerm, flag.Impressions, flag.Spend)
	}
}

// titleCase turns "exact_match_drift" into "Exact Match Drift".
func titleCase(kind string) string {
	words := strings.Split(kind, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
