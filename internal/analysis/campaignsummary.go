package analysis

import "sort"

// CampaignAggregate is one row per campaign, summed from target aggregates
// with ratios re-derived at the campaign level.
type CampaignAggregate struct {
	CampaignName string

	Impressions int
	Clicks      int
	Spend       float64
	Sales       float64
	Orders      int

	CTR    float64
	AvgCPC float64
	ACOS   *float64 // nil when sales are 0
	ROAS   *float64 // nil when spend is 0

	// Delta against the prior period; nil when the campaign was absent
	// from the prior period (comparison unavailable, not zero).
	Delta *CampaignDelta
}

// CampaignDelta holds signed week-over-week changes per tracked metric.
type CampaignDelta struct {
	Impressions int
	Clicks      int
	Spend       float64
	Orders      int
	CTR         float64
	// ACOS delta only exists when both periods had a defined ACoS.
	ACOS *float64
}

// CampaignSummary is the campaign summary stage's result.
type CampaignSummary struct {
	Table []CampaignAggregate
	// WoWAvailable reports whether a prior period was supplied at all.
	WoWAvailable bool
}

// Totals sums ad-attributed orders, sales, and spend across all campaigns.
func (s CampaignSummary) Totals() (orders int, sales, spend float64) {
	for _, c := range s.Table {
		orders += c.Orders
		sales += c.Sales
		spend += c.Spend
	}
	return orders, sales, spend
}

// SummarizeCampaigns aggregates target rows to campaign level. Ratios are
// recomputed from summed counts — averaging the per-target ratios would be
// wrong whenever target sizes are unequal. When a prior-period table is
// supplied, signed deltas are computed per campaign present in both periods.
func SummarizeCampaigns(targets []TargetAggregate, prior []CampaignAggregate) CampaignSummary {
	sums := make(map[string]*CampaignAggregate)
	var names []string
	for _, t := range targets {
		agg, ok := sums[t.CampaignName]
		if !ok {
			agg = &CampaignAggregate{CampaignName: t.CampaignName}
			sums[t.CampaignName] = agg
			names = append(names, t.CampaignName)
		}
		agg.Impressions += t.Impressions
		agg.Clicks += t.Clicks
		agg.Spend += t.Spend
		agg.Sales += t.Sales
		agg.Orders += t.Orders
	}
	sort.Strings(names)

	priorByName := make(map[string]CampaignAggregate, len(prior))
	for _, p := range prior {
		priorByName[p.CampaignName] = p
	}

	table := make([]CampaignAggregate, 0, len(names))
	for _, name := range names {
		agg := *sums[name]
		if agg.Impressions > 0 {
			agg.CTR = float64(agg.Clicks) / float64(agg.Impressions)
		}
		if agg.Clicks > 0 {
			agg.AvgCPC = agg.Spend / float64(agg.Clicks)
		}
		if agg.Sales > 0 {
			acos := agg.Spend / agg.Sales
			agg.ACOS = &acos
		}
		if agg.Spend > 0 {
			roas := agg.Sales / agg.Spend
			agg.ROAS = &roas
		}

		if p, ok := priorByName[name]; ok {
			delta := &CampaignDelta{
				Impressions: agg.Impressions - p.Impressions,
				Clicks:      agg.Clicks - p.Clicks,
				Spend:       agg.Spend - p.Spend,
				Orders:      agg.Orders - p.Orders,
				CTR:         agg.CTR - p.CTR,
			}
			if agg.ACOS != nil && p.ACOS != nil {
				d := *agg.ACOS - *p.ACOS
				delta.ACOS = &d
			}
			agg.Delta = delta
		}
		table = append(table, agg)
	}

	return CampaignSummary{Table: table, WoWAvailable: len(prior) > 0}
}
