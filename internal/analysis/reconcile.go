package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"adscension/internal/config"
	"adscension/internal/ingest"
)

// TitleFormatRow is units and royalty summed for one (title, format) pair.
type TitleFormatRow struct {
	Title   string
	Format  ingest.BookFormat
	Units   int
	Royalty float64
}

// TitleRow is units and royalty summed per title.
type TitleRow struct {
	Title   string
	Units   int
	Royalty float64
}

// FormatRow is units and royalty summed per format.
type FormatRow struct {
	Format  ingest.BookFormat
	Units   int
	Royalty float64
}

// DailyRow is units and royalty per (date, title, format); only produced for
// daily-granularity royalty data.
type DailyRow struct {
	Date    time.Time
	Title   string
	Format  ingest.BookFormat
	Units   int
	Royalty float64
}

// ReconTotals bridges the two datasets' totals.
type ReconTotals struct {
	KDPUnits   int
	KDPRoyalty float64

	AdAttributedOrders int
	AdAttributedSales  float64
	AdAttributedSpend  float64

	// AttributionGap = KDP units − ad-attributed orders: sales the ad
	// platform did not credit to itself. Expected positive and large —
	// platforms attribute narrowly while royalty statements capture
	// everything.
	AttributionGap    int
	AttributionGapPct float64
}

// PairedPurchase is a calendar date on which orders exist for both configured
// book groups — strong behavioral evidence of ad-driven cross-sell.
type PairedPurchase struct {
	Date    time.Time
	Details string
}

// AdInfluenced estimates the catalog-wide halo of advertising a single title,
// by partitioning all royalty rows around the configured ads-start date.
type AdInfluenced struct {
	AdsStart string

	PostAdUnits     int
	PostAdRoyalty   float64
	PreAdUnits      int
	PreAdRoyalty    float64
	PostAdBreakdown []TitleFormatRow
	// Paid ebook units from daily order data on or after the start date.
	PostAdEbookDailyUnits int

	AdSpend            float64
	AdAttributedOrders int
	AdAttributedSales  float64

	// AttributedROAS uses only platform-credited sales; InfluencedROAS uses
	// all post-ad royalty. The gap between them is the uncredited halo.
	AttributedROAS *float64
	InfluencedROAS *float64

	Note string
}

// Reconciliation is the KDP reconciliation engine's result.
type Reconciliation struct {
	Granularity ingest.Granularity

	DailyBreakdown       []DailyRow
	TitleFormatBreakdown []TitleFormatRow
	TitleTotals          []TitleRow
	FormatTotals         []FormatRow

	Totals ReconTotals
	// GapNote explains the comparison's construction (monthly vs weekly
	// approximation, narrow platform attribution). Read by presentation,
	// never thrown.
	GapNote string

	PairedPurchases []PairedPurchase
	AdInfluenced    *AdInfluenced
}

// ReconcileKDP reconciles KDP royalty ground truth against ad-attributed
// orders for one reporting week. All inputs are immutable; royalty rows are
// filtered to the week (or, for monthly data, to the calendar months the week
// touches — approximate by construction, surfaced in GapNote).
func ReconcileKDP(
	sales []ingest.KdpSaleRow,
	orders []ingest.KdpOrderRow,
	summary CampaignSummary,
	weekStart, weekEnd time.Time,
	cfg *config.Config,
) Reconciliation {
	result := Reconciliation{Granularity: ingest.GranularityDaily}
	if len(sales) == 0 {
		return result
	}

	granularity := ingest.DetectGranularity(ingest.SaleDates(sales))
	result.Granularity = granularity

	var window []ingest.KdpSaleRow
	if granularity == ingest.GranularityMonthly {
		// A week can straddle a month boundary; both months are included.
		months := map[string]bool{
			weekStart.Format("2006-01"): true,
			weekEnd.Format("2006-01"):   true,
		}
		for _, row := range sales {
			if row.Date != nil && months[row.Date.Format("2006-01")] {
				window = append(window, row)
			}
		}
	} else {
		for _, row := range sales {
			if row.Date == nil {
				continue
			}
			if !row.Date.Before(weekStart) && !row.Date.After(weekEnd) {
				window = append(window, row)
			}
		}
	}

	result.TitleFormatBreakdown = sumTitleFormat(window)
	result.TitleTotals = sumTitles(window)
	result.FormatTotals = sumFormats(window)
	if granularity == ingest.GranularityDaily {
		result.DailyBreakdown = sumDaily(window)
	}

	totals := ReconTotals{}
	for _, row := range window {
		totals.KDPUnits += row.Units()
		totals.KDPRoyalty += row.Royalty
	}
	totals.AdAttributedOrders, totals.AdAttributedSales, totals.AdAttributedSpend = summary.Totals()
	totals.AttributionGap = totals.KDPUnits - totals.AdAttributedOrders
	if totals.KDPUnits > 0 {
		totals.AttributionGapPct = float64(totals.AttributionGap) / float64(totals.KDPUnits) * 100
	}
	result.Totals = totals

	result.GapNote = gapNote(granularity, window)
	result.PairedPurchases = detectPairedPurchases(orders, cfg)
	result.AdInfluenced = estimateAdInfluenced(sales, orders, cfg, totals)

	return result
}

func gapNote(granularity ingest.Granularity, window []ingest.KdpSaleRow) string {
	const attribution = "Amazon only attributes sales of the exact advertised ASIN. " +
		"Series read-through, paired purchases, and format switches driven by ads " +
		"are not attributed. KDP report is ground truth."

	if granularity != ingest.GranularityMonthly {
		return attribution
	}

	monthSet := map[string]time.Time{}
	for _, row := range window {
		if row.Date != nil {
			monthSet[row.Date.Format("2006-01")] = *row.Date
		}
	}
	keys := make([]string, 0, len(monthSet))
	for k := range monthSet {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, monthSet[k].Format("January 2006"))
	}
	period := strings.Join(names, ", ")
	if period == "" {
		period = "the matching month"
	}
	return fmt.Sprintf("KDP data is monthly granularity (%s). "+
		"Weekly ad-attributed orders compared against full-month KDP sales — "+
		"gap may be larger than actual weekly difference. ", period) + attribution
}

// detectPairedPurchases finds calendar dates with orders for both book
// groups. Only daily order rows qualify: rows dated the 1st of a month are
// excluded because the monthly order sheet collapses a whole month onto the
// 1st, and a table left with nothing else is non-daily — detection is skipped
// entirely rather than risking false positives.
func detectPairedPurchases(orders []ingest.KdpOrderRow, cfg *config.Config) []PairedPurchase {
	if len(orders) == 0 {
		return nil
	}

	book1 := cfg.BookASINs("book_1", "Book 1")
	book2 := cfg.BookASINs("book_2", "Book 2")
	if len(book1) == 0 || len(book2) == 0 {
		return nil
	}

	var daily []ingest.KdpOrderRow
	for _, row := range orders {
		if row.Date == nil || row.Date.Day() == 1 {
			continue
		}
		daily = append(daily, row)
	}
	if len(daily) == 0 {
		return nil
	}

	type dayGroup struct {
		date time.Time
		rows []ingest.KdpOrderRow
	}
	byDay := map[string]*dayGroup{}
	var dayKeys []string
	for _, row := range daily {
		key := row.Date.Format("2006-01-02")
		g, ok := byDay[key]
		if !ok {
			g = &dayGroup{date: *row.Date}
			byDay[key] = g
			dayKeys = append(dayKeys, key)
		}
		g.rows = append(g.rows, row)
	}
	sort.Strings(dayKeys)

	var paired []PairedPurchase
	for _, key := range dayKeys {
		g := byDay[key]
		hasBook1, hasBook2 := false, false
		details := map[string]bool{}
		for _, row := range g.rows {
			switch {
			case book1[row.ASIN]:
				hasBook1 = true
				details["Book 1: "+displayTitle(row)] = true
			case book2[row.ASIN]:
				hasBook2 = true
				details["Book 2: "+displayTitle(row)] = true
			}
		}
		if !hasBook1 || !hasBook2 {
			continue
		}
		parts := make([]string, 0, len(details))
		for d := range details {
			parts = append(parts, d)
		}
		sort.Strings(parts)
		paired = append(paired, PairedPurchase{Date: g.date, Details: strings.Join(parts, " + ")})
	}
	return paired
}

func displayTitle(row ingest.KdpOrderRow) string {
	if row.Title != "" {
		return row.Title
	}
	return row.ASIN
}

// estimateAdInfluenced partitions all royalty rows (not just the advertised
// ASIN) around the configured ads-start date. For monthly data a month counts
// as post-ad when it is on or after the month containing the start date —
// coarser than daily, but the only available resolution.
func estimateAdInfluenced(
	sales []ingest.KdpSaleRow,
	orders []ingest.KdpOrderRow,
	cfg *config.Config,
	totals ReconTotals,
) *AdInfluenced {
	startStr := cfg.Timeline.AmazonAdsStart
	if startStr == "" {
		return nil
	}
	adsStart, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return nil
	}

	est := &AdInfluenced{
		AdsStart:           startStr,
		AdSpend:            totals.AdAttributedSpend,
		AdAttributedOrders: totals.AdAttributedOrders,
		AdAttributedSales:  totals.AdAttributedSales,
	}

	granularity := ingest.DetectGranularity(ingest.SaleDates(sales))
	startMonth := adsStart.Format("2006-01")

	var post []ingest.KdpSaleRow
	for _, row := range sales {
		if row.Date == nil {
			continue
		}
		postAd := false
		if granularity == ingest.GranularityMonthly {
			postAd = row.Date.Format("2006-01") >= startMonth
		} else {
			postAd = !row.Date.Before(adsStart)
		}
		if postAd {
			est.PostAdUnits += row.Units()
			est.PostAdRoyalty += row.Royalty
			post = append(post, row)
		} else {
			est.PreAdUnits += row.Units()
			est.PreAdRoyalty += row.Royalty
		}
	}
	est.PostAdBreakdown = sumTitleFormat(post)

	for _, row := range orders {
		if row.Date != nil && !row.Date.Before(adsStart) {
			est.PostAdEbookDailyUnits += row.PaidUnits
		}
	}

	if est.AdSpend > 0 && est.AdAttributedSales > 0 {
		roas := est.AdAttributedSales / est.AdSpend
		est.AttributedROAS = &roas
	}
	if est.AdSpend > 0 && est.PostAdRoyalty > 0 {
		roas := est.PostAdRoyalty / est.AdSpend
		est.InfluencedROAS = &roas
	}

	var parts []string
	if granularity == ingest.GranularityMonthly {
		parts = append(parts, "KDP royalty data is monthly. Post-ad totals include the full month "+
			"of the ad start date — some pre-ad sales may be included.")
	}
	parts = append(parts, fmt.Sprintf(
		"Ad-influenced includes all KDP sales (every book and format) since ads started (%s). "+
			"Amazon only attributes sales of the advertised ASIN.", startStr))
	est.Note = strings.Join(parts, " ")

	return est
}

// --- grouped sums ---

func sumTitleFormat(rows []ingest.KdpSaleRow) []TitleFormatRow {
	type key struct {
		title  string
		format ingest.BookFormat
	}
	sums := map[key]*TitleFormatRow{}
	var keys []key
	for _, row := range rows {
		k := key{row.Title, row.Format}
		s, ok := sums[k]
		if !ok {
			s = &TitleFormatRow{Title: row.Title, Format: row.Format}
			sums[k] = s
			keys = append(keys, k)
		}
		s.Units += row.Units()
		s.Royalty += row.Royalty
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].title != keys[j].title {
			return keys[i].title < keys[j].title
		}
		return keys[i].format < keys[j].format
	})
	out := make([]TitleFormatRow, 0, len(keys))
	for _, k := range keys {
		out = append(out, *sums[k])
	}
	return out
}

func sumTitles(rows []ingest.KdpSaleRow) []TitleRow {
	sums := map[string]*TitleRow{}
	var titles []string
	for _, row := range rows {
		s, ok := sums[row.Title]
		if !ok {
			s = &TitleRow{Title: row.Title}
			sums[row.Title] = s
			titles = append(titles, row.Title)
		}
		s.Units += row.Units()
		s.Royalty += row.Royalty
	}
	sort.Strings(titles)
	out := make([]TitleRow, 0, len(titles))
	for _, t := range titles {
		out = append(out, *sums[t])
	}
	return out
}

func sumFormats(rows []ingest.KdpSaleRow) []FormatRow {
	sums := map[ingest.BookFormat]*FormatRow{}
	var formats []string
	for _, row := range rows {
		s, ok := sums[row.Format]
		if !ok {
			s = &FormatRow{Format: row.Format}
			sums[row.Format] = s
			formats = append(formats, string(row.Format))
		}
		s.Units += row.Units()
		s.Royalty += row.Royalty
	}
	sort.Strings(formats)
	out := make([]FormatRow, 0, len(formats))
	for _, f := range formats {
		out = append(out, *sums[ingest.BookFormat(f)])
	}
	return out
}

func sumDaily(rows []ingest.KdpSaleRow) []DailyRow {
	type key struct {
		date   string
		title  string
		format ingest.BookFormat
	}
	sums := map[key]*DailyRow{}
	var keys []key
	for _, row := range rows {
		if row.Date == nil {
			continue
		}
		k := key{row.Date.Format("2006-01-02"), row.Title, row.Format}
		s, ok := sums[k]
		if !ok {
			s = &DailyRow{Date: *row.Date, Title: row.Title, Format: row.Format}
			sums[k] = s
			keys = append(keys, k)
		}
		s.Units += row.Units()
		s.Royalty += row.Royalty
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		if keys[i].title != keys[j].title {
			return keys[i].title < keys[j].title
		}
		return keys[i].format < keys[j].format
	})
	out := make([]DailyRow, 0, len(keys))
	for _, k := range keys {
		out = append(out, *sums[k])
	}
	return out
}
