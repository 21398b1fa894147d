package analysis

import (
	"fmt"
	"sort"

	"adscension/internal/config"
)

// BidRow is one target's bid economics.
type BidRow struct {
	CampaignName   string
	Targeting      string
	Impressions    int
	Clicks         int
	Orders         int
	Spend          float64
	ConversionRate float64
	CurrentBid     *float64
	// MaxProfitableBid = blended royalty × conversion rate ÷ target ACoS.
	// Nil when the conversion rate is 0: no signal to size a bid on.
	MaxProfitableBid *float64
}

// BidRecommendations is the bid recommender's result.
type BidRecommendations struct {
	Table []BidRow
	Flags []Flag
}

// RecommendBids computes the maximum profitable bid per target and flags each
// row with exactly one of four mutually exclusive conditions, checked in
// priority order: no_data, no_conversions, bid_above_profitable,
// bid_below_range. The first two short-circuit — without conversions there is
// no max bid to compare against.
func RecommendBids(targets []TargetAggregate, cfg *config.Config) BidRecommendations {
	targetACOS := cfg.Settings.TargetACOS
	blendedRoyalty := cfg.Settings.BlendedRoyalty

	table := make([]BidRow, 0, len(targets))
	var flags []Flag
	for _, t := range targets {
		row := BidRow{
			CampaignName:   t.CampaignName,
			Targeting:      t.Targeting,
			Impressions:    t.Impressions,
			Clicks:         t.Clicks,
			Orders:         t.Orders,
			Spend:          t.Spend,
			ConversionRate: t.ConversionRate(),
			CurrentBid:     t.Bid,
		}
		if row.ConversionRate > 0 {
			maxBid := blendedRoyalty * row.ConversionRate / targetACOS
			row.MaxProfitableBid = &maxBid
		}
		table = append(table, row)

		switch {
		case t.Clicks == 0 && t.Impressions == 0:
			flags = append(flags, Flag{
				Kind:       FlagNoData,
				Severity:   SeverityInfo,
				Campaign:   t.CampaignName,
				Target:     t.Targeting,
				CurrentBid: t.Bid,
				Message:    "No impressions or clicks — insufficient data for bid recommendation",
			})
		case t.Clicks > 0 && t.Orders == 0:
			flags = append(flags, Flag{
				Kind:       FlagNoConversions,
				Severity:   SeverityInfo,
				Campaign:   t.CampaignName,
				Target:     t.Targeting,
				CurrentBid: t.Bid,
				Message: fmt.Sprintf(
					"%d clicks but 0 orders — no conversion data yet. "+
						"Consider lowering bid or pausing if trend continues.", t.Clicks),
			})
		case t.Bid != nil && row.MaxProfitableBid != nil && *t.Bid > *row.MaxProfitableBid:
			flags = append(flags, Flag{
				Kind:           FlagBidAboveProfitable,
				Severity:       SeverityWarning,
				Campaign:       t.CampaignName,
				Target:         t.Targeting,
				CurrentBid:     t.Bid,
				RecommendedBid: row.MaxProfitableBid,
				Message: fmt.Sprintf(
					"Current bid $%.2f exceeds max profitable bid $%.2f at %.0f%% ACoS target",
					*t.Bid, *row.MaxProfitableBid, targetACOS*100),
			})
		case t.Bid != nil && row.MaxProfitableBid != nil && *t.Bid < *row.MaxProfitableBid*0.5:
			flags = append(flags, Flag{
				Kind:           FlagBidBelowRange,
				Severity:       SeverityInfo,
				Campaign:       t.CampaignName,
				Target:         t.Targeting,
				CurrentBid:     t.Bid,
				RecommendedBid: row.MaxProfitableBid,
				Message: fmt.Sprintf(
					"Current bid $%.2f is well below max profitable bid $%.2f — room to increase for more impressions",
					*t.Bid, *row.MaxProfitableBid),
			})
		}
	}

	sort.SliceStable(table, func(i, j int) bool {
		if table[i].Spend != table[j].Spend {
			return table[i].Spend > table[j].Spend
		}
		return table[i].Targeting < table[j].Targeting
	})

	return BidRecommendations{Table: table, Flags: flags}
}
