package analysis

import (
	"sort"

	"adscension/internal/ingest"
)

// TargetAggregate is one row per (campaign, targeting): search-term rows
// summed to target level. Amazon no longer ships a reliable per-target
// report, so this derived table is the pipeline's per-target ground truth.
type TargetAggregate struct {
	CampaignName string
	Targeting    string
	TargetingRaw string

	Impressions int
	Clicks      int
	Spend       float64
	Sales       float64
	Orders      int

	// Ratios are recomputed from the sums, never averaged.
	CTR float64 // clicks/impressions, 0 when no impressions
	CPC float64 // spend/clicks, 0 when no clicks
	// ACOS is undefined (nil) when there are no sales: spend with zero
	// sales is "infinite" ACoS and must not render as 0.
	ACOS *float64

	// Bid joined from configuration; nil when the target is unconfigured
	// or configured without a bid.
	Bid *float64
}

// ConversionRate returns orders/clicks, 0 when there are no clicks.
func (t TargetAggregate) ConversionRate() float64 {
	if t.Clicks == 0 {
		return 0
	}
	return float64(t.Orders) / float64(t.Clicks)
}

// BuildTargeting aggregates search-term rows by (campaign, targeting) and
// joins configured bids by target identifier. An empty input produces an
// empty (but well-typed) output; callers rely on that, not on panics.
func BuildTargeting(rows []ingest.SearchTermRow, bids map[string]*float64) []TargetAggregate {
	type key struct{ campaign, targeting string }

	sums := make(map[key]*TargetAggregate)
	order := make([]key, 0)
	for _, row := range rows {
		k := key{row.CampaignName, row.Targeting}
		agg, ok := sums[k]
		if !ok {
			agg = &TargetAggregate{
				CampaignName: row.CampaignName,
				Targeting:    row.Targeting,
				TargetingRaw: row.Targeting, // already normalized at this level
			}
			sums[k] = agg
			order = append(order, k)
		}
		agg.Impressions += row.Impressions
		agg.Clicks += row.Clicks
		agg.Spend += row.Spend
		agg.Sales += row.Sales
		agg.Orders += row.Orders
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].campaign != order[j].campaign {
			return order[i].campaign < order[j].campaign
		}
		return order[i].targeting < order[j].targeting
	})

	out := make([]TargetAggregate, 0, len(order))
	for _, k := range order {
		agg := *sums[k]
		if agg.Impressions > 0 {
			agg.CTR = float64(agg.Clicks) / float64(agg.Impressions)
		}
		if agg.Clicks > 0 {
			agg.CPC = agg.Spend / float64(agg.Clicks)
		}
		if agg.Sales > 0 {
			acos := agg.Spend / agg.Sales
			agg.ACOS = &acos
		}
		if bid, ok := bids[agg.Targeting]; ok && bid != nil {
			v := *bid
			agg.Bid = &v
		}
		out = append(out, agg)
	}
	return out
}
