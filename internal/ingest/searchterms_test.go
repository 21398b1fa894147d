package ingest

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const searchTermCSV = `"Sponsored Products Search term report"
"Report period: Mar 1 2024 - Mar 7 2024"
Start Date,End Date,Campaign Name,Targeting,Match Type,Customer Search Term,Impressions,Clicks,Click-Thru Rate (CTR),Cost Per Click (CPC),Spend,14 Day Total Sales ,Total Advertising Cost of Sales (ACOS) ,14 Day Total Orders (#)
2024-03-01,2024-03-07,Book 2 - ASIN Targeting,"asin=""B0COMP00001""",exact,B0COMP00001,1200,15,1.25%,$0.42,$6.30,$9.98,63.13%,2
2024-03-01,2024-03-07,Book 2 - Keywords,litrpg ascension,broad,litrpg series complete,800,9,1.13%,$0.38,$3.42,$4.99,68.54%,1
2024-03-01,2024-03-07,Book 2 - Keywords,litrpg ascension,broad,,0,0,0.00%,$0.00,$0.00,$0.00,0.00%,0
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestLoadSearchTermReport(t *testing.T) {
	rows, err := LoadSearchTermReport(writeFile(t, "st.csv", searchTermCSV), nil)
	if err != nil {
		t.Fatalf("LoadSearchTermReport failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	r := rows[0]
	if r.CampaignName != "Book 2 - ASIN Targeting" {
		t.Errorf("campaign = %q", r.CampaignName)
	}
	if r.Targeting != "B0COMP00001" {
		t.Errorf("targeting = %q, want unwrapped ASIN", r.Targeting)
	}
	if r.TargetingRaw != `asin="B0COMP00001"` {
		t.Errorf("targeting raw = %q, want original wrapper preserved", r.TargetingRaw)
	}
	if r.MatchType != MatchExact {
		t.Errorf("match type = %q", r.MatchType)
	}
	if r.Impressions != 1200 || r.Clicks != 15 || r.Orders != 2 {
		t.Errorf("counts = %d/%d/%d", r.Impressions, r.Clicks, r.Orders)
	}
	if math.Abs(r.Spend-6.30) > 1e-9 {
		t.Errorf("spend = %v, want 6.30", r.Spend)
	}
	if math.Abs(r.Sales-9.98) > 1e-9 {
		t.Errorf("sales = %v, want 9.98 (14-day alias with trailing space)", r.Sales)
	}
	if r.CTR == nil || math.Abs(*r.CTR-0.0125) > 1e-9 {
		t.Errorf("ctr = %v, want 0.0125 from percent string", r.CTR)
	}
	if r.ACOS == nil || math.Abs(*r.ACOS-0.6313) > 1e-9 {
		t.Errorf("acos = %v, want 0.6313", r.ACOS)
	}
	if r.StartDate == nil || r.StartDate.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("start date = %v", r.StartDate)
	}
	if r.EndDate == nil || r.EndDate.Format("2006-01-02") != "2024-03-07" {
		t.Errorf("end date = %v", r.EndDate)
	}

	// Keyword row keeps its expression verbatim.
	if rows[1].Targeting != "litrpg ascension" || rows[1].TargetingRaw != "litrpg ascension" {
		t.Errorf("keyword targeting = %q / %q", rows[1].Targeting, rows[1].TargetingRaw)
	}
	if rows[1].MatchType != MatchBroad {
		t.Errorf("match type = %q", rows[1].MatchType)
	}
}

func TestLoadSearchTermReportFractionPercent(t *testing.T) {
	// Percent columns that arrive already converted must not be divided again.
	csvData := "Campaign Name,Targeting,Match Type,Customer Search Term,Impressions,Clicks,Click-Thru Rate (CTR),Spend,14 Day Total Sales,14 Day Total Orders (#)\n" +
		"C,kw,broad,term,100,2,0.02,1.00,0.00,0\n"
	rows, err := LoadSearchTermReport(writeFile(t, "st.csv", csvData), nil)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if rows[0].CTR == nil || math.Abs(*rows[0].CTR-0.02) > 1e-9 {
		t.Errorf("ctr = %v, want 0.02 passed through", rows[0].CTR)
	}
}

func TestLoadSearchTermReportNoHeader(t *testing.T) {
	junk := strings.Repeat("not,a,header\n", 12)
	_, err := LoadSearchTermReport(writeFile(t, "junk.csv", junk), nil)
	if err == nil {
		t.Fatal("expected hard error when no header marker is found in lookahead")
	}
	if !strings.Contains(err.Error(), "Campaign Name") {
		t.Errorf("error should name the expected marker, got: %v", err)
	}
}

func TestLoadSearchTermReportMalformedCells(t *testing.T) {
	csvData := "Campaign Name,Targeting,Match Type,Customer Search Term,Impressions,Clicks,Spend,14 Day Total Sales,14 Day Total Orders (#)\n" +
		"C,kw,broad,term,garbage,,$--,,not-a-number\n"
	rows, err := LoadSearchTermReport(writeFile(t, "bad.csv", csvData), nil)
	if err != nil {
		t.Fatalf("malformed cells must coerce, not fail: %v", err)
	}
	r := rows[0]
	if r.Impressions != 0 || r.Clicks != 0 || r.Spend != 0 || r.Orders != 0 {
		t.Errorf("malformed numerics should coerce to zero: %+v", r)
	}
}

func TestDedupeSearchTerms(t *testing.T) {
	path := writeFile(t, "st.csv", searchTermCSV)
	once, err := LoadSearchTermReport(path, nil)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// Concatenating a file with itself then deduplicating yields the same
	// row count as deduplicating the single file.
	doubled := append(append([]SearchTermRow{}, once...), once...)
	if got, want := len(DedupeSearchTerms(doubled)), len(DedupeSearchTerms(once)); got != want {
		t.Errorf("dedupe not idempotent: %d vs %d", got, want)
	}

	// First occurrence wins.
	a := SearchTermRow{CampaignName: "C", Targeting: "kw", SearchTerm: "s", Spend: 1.0}
	b := SearchTermRow{CampaignName: "C", Targeting: "kw", SearchTerm: "s", Spend: 9.0}
	out := DedupeSearchTerms([]SearchTermRow{a, b})
	if len(out) != 1 || out[0].Spend != 1.0 {
		t.Errorf("expected first occurrence kept, got %+v", out)
	}

	// Distinct date ranges are distinct rows.
	d1 := parseDateCell("2024-03-01")
	d2 := parseDateCell("2024-03-08")
	c := SearchTermRow{CampaignName: "C", Targeting: "kw", SearchTerm: "s", StartDate: d1}
	d := SearchTermRow{CampaignName: "C", Targeting: "kw", SearchTerm: "s", StartDate: d2}
	if got := len(DedupeSearchTerms([]SearchTermRow{c, d})); got != 2 {
		t.Errorf("rows with different periods collapsed: got %d", got)
	}
}
