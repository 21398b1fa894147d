package analysis

import (
	"fmt"
	"sort"

	"adscension/internal/config"
)

// ASINTargetRow is a target aggregate enriched with configured display data.
type ASINTargetRow struct {
	TargetAggregate
	TargetTitle    string
	ConfigBid      *float64
	ConversionRate float64
}

// ZeroActivityTarget is an ASIN present in configuration but entirely absent
// from the week's targeting data — Amazon silently stopped serving it.
type ZeroActivityTarget struct {
	ASIN  string
	Title string
	Bid   *float64
}

// ASINPerformance is the product-targeting analysis result.
type ASINPerformance struct {
	Table               []ASINTargetRow
	Flags               []Flag
	ZeroActivityTargets []ZeroActivityTarget
}

// AnalyzeASINTargets filters target aggregates to product_targeting
// campaigns, enriches each row from configuration, sorts by spend descending,
// and flags underperformers plus configured targets that produced no
// activity at all.
func AnalyzeASINTargets(targets []TargetAggregate, cfg *config.Config) ASINPerformance {
	highSpend := cfg.Settings.HighSpendFlag
	lowImpressions := cfg.Settings.LowImpressionsFlag

	campaignNames := toSet(cfg.CampaignNames(config.CampaignTypeProduct))
	lookup := cfg.TargetLookup(config.CampaignTypeProduct)

	var table []ASINTargetRow
	active := make(map[string]bool)
	for _, t := range targets {
		if !campaignNames[t.CampaignName] {
			continue
		}
		row := ASINTargetRow{TargetAggregate: t, ConversionRate: t.ConversionRate()}
		if info, ok := lookup[t.Targeting]; ok {
			row.TargetTitle = info.Title
			row.ConfigBid = info.Bid
		}
		active[t.Targeting] = true
		table = append(table, row)
	}

	sort.SliceStable(table, func(i, j int) bool {
		if table[i].Spend != table[j].Spend {
			return table[i].Spend > table[j].Spend
		}
		return table[i].Targeting < table[j].Targeting
	})

	var flags []Flag
	for _, row := range table {
		title := row.TargetTitle
		if title == "" {
			title = row.Targeting
		}

		if row.Spend > highSpend && row.Orders == 0 {
			flags = append(flags, Flag{
				Kind:        FlagHighSpendNoOrders,
				Severity:    SeverityWarning,
				Campaign:    row.CampaignName,
				Target:      row.Targeting,
				Title:       title,
				Impressions: row.Impressions,
				Spend:       row.Spend,
				Message:     fmt.Sprintf("$%.2f spent with 0 orders", row.Spend),
			})
		}
		if row.Impressions < lowImpressions {
			flags = append(flags, Flag{
				Kind:        FlagUnderserving,
				Severity:    SeverityInfo,
				Campaign:    row.CampaignName,
				Target:      row.Targeting,
				Title:       title,
				Impressions: row.Impressions,
				Spend:       row.Spend,
				Message:     fmt.Sprintf("Only %d impressions (bid may be too low)", row.Impressions),
			})
		}
	}

	// Configured targets with no search-term presence at all. Lookup keys
	// are sorted so flag order is stable run to run.
	var zeroActivity []ZeroActivityTarget
	asins := make([]string, 0, len(lookup))
	for a := range lookup {
		asins = append(asins, a)
	}
	sort.Strings(asins)
	for _, a := range asins {
		if active[a] {
			continue
		}
		info := lookup[a]
		title := info.Title
		if title == "" {
			title = a
		}
		zeroActivity = append(zeroActivity, ZeroActivityTarget{ASIN: a, Title: info.Title, Bid: info.Bid})
		flags = append(flags, Flag{
			Kind:     FlagZeroActivity,
			Severity: SeverityInfo,
			Target:   a,
			Title:    title,
			Message:  fmt.Sprintf("%s (%s): No activity this week — not appearing in search term data", title, a),
		})
	}

	return ASINPerformance{Table: table, Flags: flags, ZeroActivityTargets: zeroActivity}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
