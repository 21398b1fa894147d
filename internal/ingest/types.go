// Package ingest parses Amazon Ads and KDP spreadsheet exports into canonical
// typed row collections. Exports drift across vintages (7-day vs 14-day
// attribution columns, banner rows before headers, localized labels), so every
// loader normalizes through an explicit column alias table and tolerant cell
// coercion. Optional columns stay optional (pointer fields) until an
// aggregation explicitly needs a numeric default.
package ingest

import "time"

// MatchType is the Amazon match type of a targeting expression.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchPhrase  MatchType = "phrase"
	MatchBroad   MatchType = "broad"
	MatchUnknown MatchType = "unknown"
)

// ParseMatchType normalizes an export's match-type cell.
func ParseMatchType(s string) MatchType {
	switch normalizeLower(s) {
	case "exact":
		return MatchExact
	case "phrase":
		return MatchPhrase
	case "broad":
		return MatchBroad
	default:
		return MatchUnknown
	}
}

// BookFormat is the publication format of a KDP row. It is assigned from the
// sheet the row came from, never inferred from content when the sheet already
// declares it.
type BookFormat string

const (
	FormatEbook     BookFormat = "ebook"
	FormatPaperback BookFormat = "paperback"
	FormatHardcover BookFormat = "hardcover"
)

// Granularity classifies a whole KDP dataset as daily or monthly. It is a
// dataset-wide property: if every non-null date falls on the first of its
// month the data is monthly, otherwise daily. Mixed granularity within one
// export is not a supported input.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

// DetectGranularity classifies a set of dates. An empty set is daily.
func DetectGranularity(dates []time.Time) Granularity {
	any := false
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		any = true
		if d.Day() != 1 {
			return GranularityDaily
		}
	}
	if !any {
		return GranularityDaily
	}
	return GranularityMonthly
}

// SearchTermRow is one normalized row of an Amazon Ads Search Term Report:
// a (campaign, targeting, search term, date range) impression rollup.
type SearchTermRow struct {
	CampaignName string
	// Targeting is the normalized target expression with ASIN wrapper
	// syntax stripped; TargetingRaw preserves the original cell.
	Targeting    string
	TargetingRaw string
	MatchType    MatchType
	// SearchTerm is the actual query or ASIN that triggered the ad.
	SearchTerm  string
	Impressions int
	Clicks      int
	Spend       float64
	Sales       float64
	Orders      int

	// Optional columns, present only in some export vintages.
	Units         *int
	CTR           *float64
	CPC           *float64
	ACOS          *float64
	KENPRead      *int
	KENPRoyalties *float64
	StartDate     *time.Time
	EndDate       *time.Time
}

// dedupeKey defines row identity for collapsing overlapping multi-file
// exports covering the same period.
func (r SearchTermRow) dedupeKey() string {
	key := r.CampaignName + "\x1f" + r.Targeting + "\x1f" + r.SearchTerm
	if r.StartDate != nil {
		key += "\x1f" + r.StartDate.Format("2006-01-02")
	}
	if r.EndDate != nil {
		key += "\x1f" + r.EndDate.Format("2006-01-02")
	}
	return key
}

// CampaignRow is one row of the campaign-level report (one row per campaign).
// It is used only for cross-validation against derived aggregates.
type CampaignRow struct {
	CampaignName string
	Clicks       int
	Orders       int
	Spend        float64
	Sales        float64

	DailyBudget    *float64
	CTR            *float64
	CPC            *float64
	ACOS           *float64
	Status         string
	CampaignType   string
	TargetingMode  string
	TopSearchShare *float64
}

// KdpSaleRow is one normalized KDP royalty row. Date granularity (daily vs
// monthly) is a property of the whole dataset, detected downstream.
type KdpSaleRow struct {
	Date   *time.Time
	Title  string
	Author string
	ASIN   string
	Format BookFormat

	UnitsSold     int
	UnitsRefunded int
	// NetUnitsSold is nil when the export vintage lacks the column;
	// consumers fall back to gross UnitsSold.
	NetUnitsSold *int
	Royalty      float64
	Marketplace  string
}

// Units returns net units when available, falling back to gross units sold.
func (r KdpSaleRow) Units() int {
	if r.NetUnitsSold != nil {
		return *r.NetUnitsSold
	}
	return r.UnitsSold
}

// KdpOrderRow is one row of KDP order-placement data. Order dates reflect the
// purchase event, not royalty recognition, which makes them the right input
// for paired-purchase detection.
type KdpOrderRow struct {
	Date        *time.Time
	Title       string
	Author      string
	ASIN        string
	Format      BookFormat
	PaidUnits   int
	FreeUnits   int
	Marketplace string
}

// SaleDates collects the non-null dates of a royalty table, for granularity
// detection.
func SaleDates(rows []KdpSaleRow) []time.Time {
	dates := make([]time.Time, 0, len(rows))
	for _, r := range rows {
		if r.Date != nil {
			dates = append(dates, *r.Date)
		}
	}
	return dates
}

// OrderDates collects the non-null dates of an order table.
func OrderDates(rows []KdpOrderRow) []time.Time {
	dates := make([]time.Time, 0, len(rows))
	for _, r := range rows {
		if r.Date != nil {
			dates = append(dates, *r.Date)
		}
	}
	return dates
}
