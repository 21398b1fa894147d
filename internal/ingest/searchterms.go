package ingest

import (
	"go.uber.org/zap"
)

// searchTermAliases maps every known external column name of the Search Term
// Report to exactly one canonical name. Amazon has shipped both 7-day and
// 14-day attribution windows and labels with and without trailing spaces;
// unknown columns pass through unrenamed and unused.
var searchTermAliases = map[string]string{
	"Campaign Name":        "campaign_name",
	"Targeting":            "targeting",
	"Match Type":           "match_type",
	"Customer Search Term": "search_term",
	"Impressions":          "impressions",
	"Clicks":               "clicks",
	"Click-Thru Rate (CTR)": "ctr",
	"Cost Per Click (CPC)":  "cpc",
	"Spend":                 "spend",
	"Start Date":            "start_date",
	"End Date":              "end_date",
	// 14-day attribution columns (current Amazon export format)
	"14 Day Total Sales":                          "sales",
	"Total Advertising Cost of Sales (ACOS)":      "acos",
	"Total Return on Advertising Spend (ROAS)":    "roas",
	"14 Day Total Orders (#)":                     "orders",
	"14 Day Total Units (#)":                      "units",
	"14 Day Conversion Rate":                      "conversion_rate",
	"14 Day Total KENP Read (#)":                  "kenp_read",
	"Estimated KENP Royalties":                    "kenp_royalties",
	// 7-day attribution columns (older export format)
	"7 Day Total Sales":                      "sales",
	"7 Day Total Orders (#)":                 "orders",
	"Total Advertising Cost of Sales (ACoS)": "acos",
}

var searchTermMarkers = []string{"Campaign Name"}

// LoadSearchTermReport parses an Amazon Ads Search Term Report (CSV or XLSX)
// into normalized rows. Returns an explicit error only when no recognizable
// header is found; malformed cells coerce tolerantly.
func LoadSearchTermReport(path string, logger *zap.Logger) ([]SearchTermRow, error) {
	t, err := loadTable(path, searchTermMarkers, searchTermAliases)
	if err != nil {
		return nil, err
	}

	rows := make([]SearchTermRow, 0, len(t.rows))
	for _, rec := range t.rows {
		raw := t.cell(rec, "targeting")
		if t.cell(rec, "campaign_name") == "" && raw == "" {
			continue // trailing blank lines in manual exports
		}

		row := SearchTermRow{
			CampaignName: t.cell(rec, "campaign_name"),
			Targeting:    unwrapTargeting(raw),
			TargetingRaw: raw,
			MatchType:    ParseMatchType(t.cell(rec, "match_type")),
			SearchTerm:   t.cell(rec, "search_term"),
			Impressions:  parseIntCell(t.cell(rec, "impressions")),
			Clicks:       parseIntCell(t.cell(rec, "clicks")),
			Spend:        parseCurrencyCell(t.cell(rec, "spend")),
			Sales:        parseCurrencyCell(t.cell(rec, "sales")),
			Orders:       parseIntCell(t.cell(rec, "orders")),
			StartDate:    parseDateCell(t.cell(rec, "start_date")),
			EndDate:      parseDateCell(t.cell(rec, "end_date")),
		}

		// Optional per-vintage columns stay absent when the export lacks them.
		if t.has("units") {
			row.Units = intPtr(parseIntCell(t.cell(rec, "units")))
		}
		if t.has("ctr") {
			row.CTR = floatPtr(parsePercentCell(t.cell(rec, "ctr")))
		}
		if t.has("cpc") {
			row.CPC = floatPtr(parseCurrencyCell(t.cell(rec, "cpc")))
		}
		if t.has("acos") {
			row.ACOS = floatPtr(parsePercentCell(t.cell(rec, "acos")))
		}
		if t.has("kenp_read") {
			row.KENPRead = intPtr(parseIntCell(t.cell(rec, "kenp_read")))
		}
		if t.has("kenp_royalties") {
			row.KENPRoyalties = floatPtr(parseCurrencyCell(t.cell(rec, "kenp_royalties")))
		}

		rows = append(rows, row)
	}

	if logger != nil {
		logger.Debug("loaded search term report",
			zap.String("path", path),
			zap.Int("rows", len(rows)))
	}
	return rows, nil
}

// DedupeSearchTerms collapses rows that share (campaign, targeting, search
// term) and, when present, (start date, end date), keeping the first
// occurrence in file-then-row order. Overlapping manual exports covering the
// same period would otherwise double-count; this must run before any
// aggregation.
func DedupeSearchTerms(rows []SearchTermRow) []SearchTermRow {
	seen := make(map[string]bool, len(rows))
	out := make([]SearchTermRow, 0, len(rows))
	for _, row := range rows {
		key := row.dedupeKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}
