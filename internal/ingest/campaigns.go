package ingest

import (
	"go.uber.org/zap"
)

// campaignAliases covers the campaign-level CSV (one row per campaign).
// "(converted)" variants appear when the account currency differs from the
// marketplace currency.
var campaignAliases = map[string]string{
	"Campaign name":          "campaign_name",
	"Campaign Name":          "campaign_name",
	"Campaign budget amount": "daily_budget",
	"Clicks":                 "clicks",
	"CTR":                    "ctr",
	"Total cost":             "spend",
	"Total cost (converted)": "spend",
	"CPC":                    "cpc",
	"CPC (converted)":        "cpc",
	"Purchases":              "orders",
	"Sales":                  "sales",
	"Sales (converted)":      "sales",
	"ACOS":                   "acos",
	"Status":                 "status",
	"Type":                   "campaign_type",
	"Targeting":              "targeting_mode",
	"Top-of-search impression share": "top_search_share",
}

var campaignMarkers = []string{"Campaign name", "Campaign Name"}

// LoadCampaignReport parses a campaign-level report (CSV or XLSX). The result
// is used only for cross-validation of derived aggregates; no downstream
// computation requires it.
func LoadCampaignReport(path string, logger *zap.Logger) ([]CampaignRow, error) {
	t, err := loadTable(path, campaignMarkers, campaignAliases)
	if err != nil {
		return nil, err
	}

	rows := make([]CampaignRow, 0, len(t.rows))
	for _, rec := range t.rows {
		name := t.cell(rec, "campaign_name")
		if name == "" {
			continue
		}

		row := CampaignRow{
			CampaignName:  name,
			Clicks:        parseIntCell(t.cell(rec, "clicks")),
			Orders:        parseIntCell(t.cell(rec, "orders")),
			Spend:         parseCurrencyCell(t.cell(rec, "spend")),
			Sales:         parseCurrencyCell(t.cell(rec, "sales")),
			Status:        t.cell(rec, "status"),
			CampaignType:  t.cell(rec, "campaign_type"),
			TargetingMode: t.cell(rec, "targeting_mode"),
		}
		if t.has("daily_budget") {
			row.DailyBudget = floatPtr(parseCurrencyCell(t.cell(rec, "daily_budget")))
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
		if t.has("top_search_share") {
			row.TopSearchShare = floatPtr(parsePercentCell(t.cell(rec, "top_search_share")))
		}
		rows = append(rows, row)
	}

	if logger != nil {
		logger.Debug("loaded campaign report",
			zap.String("path", path),
			zap.Int("rows", len(rows)))
	}
	return rows, nil
}
