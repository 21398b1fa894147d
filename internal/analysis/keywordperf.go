package analysis

import (
	"fmt"
	"sort"

	"adscension/internal/config"
)

// KeywordRow is a keyword target aggregate with its derived conversion rate.
type KeywordRow struct {
	TargetAggregate
	ConversionRate float64
}

// KeywordPerformance is the keyword-targeting analysis result.
type KeywordPerformance struct {
	Table []KeywordRow
	Flags []Flag
}

// AnalyzeKeywords mirrors AnalyzeASINTargets for keyword_targeting campaigns.
// The sort is impressions descending, not spend: keyword prospecting cares
// about reach first.
func AnalyzeKeywords(targets []TargetAggregate, cfg *config.Config) KeywordPerformance {
	highSpend := cfg.Settings.HighSpendFlag
	campaignNames := toSet(cfg.CampaignNames(config.CampaignTypeKeyword))

	var table []KeywordRow
	for _, t := range targets {
		if !campaignNames[t.CampaignName] {
			continue
		}
		table = append(table, KeywordRow{TargetAggregate: t, ConversionRate: t.ConversionRate()})
	}

	sort.SliceStable(table, func(i, j int) bool {
		if table[i].Impressions != table[j].Impressions {
			return table[i].Impressions > table[j].Impressions
		}
		return table[i].Targeting < table[j].Targeting
	})

	var flags []Flag
	for _, row := range table {
		if row.Impressions == 0 {
			bid := 0.0
			if row.Bid != nil {
				bid = *row.Bid
			}
			flags = append(flags, Flag{
				Kind:     FlagZeroImpressions,
				Severity: SeverityInfo,
				Campaign: row.CampaignName,
				Target:   row.Targeting,
				Message:  fmt.Sprintf("Zero impressions — bid ($%.2f) may be too low", bid),
			})
		}
		if row.Spend > highSpend && row.Orders == 0 {
			flags = append(flags, Flag{
				Kind:        FlagHighSpendNoOrders,
				Severity:    SeverityWarning,
				Campaign:    row.CampaignName,
				Target:      row.Targeting,
				Impressions: row.Impressions,
				Spend:       row.Spend,
				Message:     fmt.Sprintf("$%.2f spent with 0 orders", row.Spend),
			})
		}
	}

	return KeywordPerformance{Table: table, Flags: flags}
}
