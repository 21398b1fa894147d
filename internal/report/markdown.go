// Package report renders analysis results: a markdown weekly report written
// to disk (and piped through glamour for the terminal), plus lipgloss tables
// for the trend views.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"adscension/internal/analysis"
)

// Weekly bundles everything one weekly report renders.
type Weekly struct {
	// Week labels the report and its filename, the week-end date as
	// YYYY-MM-DD.
	Week        string
	WeekStart   time.Time
	WeekEnd     time.Time
	GeneratedAt time.Time

	Campaigns   analysis.CampaignSummary
	ASIN        analysis.ASINPerformance
	Keywords    analysis.KeywordPerformance
	SearchTerms analysis.SearchTermAnalysis
	Recon       analysis.Reconciliation
	Bids        analysis.BidRecommendations
}

// topSearchTerms caps the search-term summary table in the report.
const topSearchTerms = 20

// RenderWeekly renders the full weekly report as markdown.
func RenderWeekly(w Weekly) string {
	var sections []string

	header := fmt.Sprintf("# Weekly Ad Report — Week of %s\nGenerated: %s\n",
		w.Week, w.GeneratedAt.Format("2006-01-02 15:04"))
	if len(w.Campaigns.Table) > 0 {
		orders, _, spend := w.Campaigns.Totals()
		header += fmt.Sprintf("\n**Total Spend**: %s | **Total Orders**: %s\n",
			fmtDollar(spend), fmtInt(orders))
	}
	sections = append(sections, header)

	sections = append(sections,
		campaignSection(w.Campaigns),
		asinSection(w.ASIN),
		keywordSection(w.Keywords),
		searchTermSection(w.SearchTerms),
		kdpSection(w.Recon),
		bidSection(w.Bids),
		actionItemsSection(w),
	)

	return strings.Join(sections, "\n---\n\n")
}

// WriteWeekly writes the rendered report to dir/week-<week>.md and returns
// the written path.
func WriteWeekly(dir string, w Weekly) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("week-%s.md", w.Week))
	if err := os.WriteFile(path, []byte(RenderWeekly(w)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

func campaignSection(s analysis.CampaignSummary) string {
	var b strings.Builder
	b.WriteString("## 1. Campaign Summary\n\n")
	if len(s.Table) == 0 {
		b.WriteString("No campaign data.")
		return b.String()
	}

	headers := []string{"Campaign", "Spend", "Impr", "Clicks", "CTR", "Avg CPC", "Orders", "Sales", "ACoS", "ROAS"}
	rows := make([][]string, 0, len(s.Table))
	for _, c := range s.Table {
		rows = append(rows, []string{
			c.CampaignName,
			fmtDollar(c.Spend),
			fmtInt(c.Impressions),
			fmtInt(c.Clicks),
			fmtPct(c.CTR),
			fmtDollar(c.AvgCPC),
			fmtInt(c.Orders),
			fmtDollar(c.Sales),
			fmtPctPtr(c.ACOS),
			fmtRatio(c.ROAS),
		})
	}
	b.WriteString(mdTable(headers, rows))

	if s.WoWAvailable {
		b.WriteString("\n\n**Week over week:**\n")
		for _, c := range s.Table {
			if c.Delta == nil {
				b.WriteString(fmt.Sprintf("- %s: new this week (no prior data)\n", c.CampaignName))
				continue
			}
			d := c.Delta
			line := fmt.Sprintf("- %s: spend %s, clicks %s, orders %s, CTR %s",
				c.CampaignName, fmtDollarSigned(d.Spend), fmtIntSigned(d.Clicks),
				fmtIntSigned(d.Orders), fmtPctSigned(d.CTR))
			if d.ACOS != nil {
				line += fmt.Sprintf(", ACoS %s", fmtPctSigned(*d.ACOS))
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func asinSection(p analysis.ASINPerformance) string {
	var b strings.Builder
	b.WriteString("## 2. ASIN Target Performance\n\n")
	if len(p.Table) == 0 && len(p.ZeroActivityTargets) == 0 {
		b.WriteString("No ASIN targeting data.")
		return b.String()
	}

	if len(p.Table) > 0 {
		headers := []string{"Target", "Impr", "Clicks", "CTR", "CPC", "Spend", "Orders", "Conv Rate"}
		rows := make([][]string, 0, len(p.Table))
		for _, r := range p.Table {
			display := r.Targeting
			if r.TargetTitle != "" {
				display = fmt.Sprintf("%s (%s)", r.TargetTitle, r.Targeting)
			}
			rows = append(rows, []string{
				display,
				fmtInt(r.Impressions),
				fmtInt(r.Clicks),
				fmtPct(r.CTR),
				fmtDollar(r.CPC),
				fmtDollar(r.Spend),
				fmtInt(r.Orders),
				fmtPct(r.ConversionRate),
			})
		}
		b.WriteString(mdTable(headers, rows))
	}

	writeFlags(&b, p.Flags)
	return b.String()
}

func keywordSection(p analysis.KeywordPerformance) string {
	var b strings.Builder
	b.WriteString("## 3. Keyword Performance\n\n")
	if len(p.Table) == 0 {
		b.WriteString("No keyword targeting data.")
		return b.String()
	}

	headers := []string{"Keyword", "Impr", "Clicks", "CTR", "CPC", "Spend", "Orders"}
	rows := make([][]string, 0, len(p.Table))
	for _, r := range p.Table {
		rows = append(rows, []string{
			r.Targeting,
			fmtInt(r.Impressions),
			fmtInt(r.Clicks),
			fmtPct(r.CTR),
			fmtDollar(r.CPC),
			fmtDollar(r.Spend),
			fmtInt(r.Orders),
		})
	}
	b.WriteString(mdTable(headers, rows))
	writeFlags(&b, p.Flags)
	return b.String()
}

func searchTermSection(s analysis.SearchTermAnalysis) string {
	var b strings.Builder
	b.WriteString("## 4. Search Term Analysis\n\n")

	if s.TransitionNote != "" {
		b.WriteString("> " + s.TransitionNote + "\n\n")
	}

	if len(s.DriftFlags) > 0 {
		b.WriteString("### Drift Detected\n\n")
		for _, f := range s.DriftFlags {
			b.WriteString("- " + flagIcon(f.Severity) + " " + f.Message + "\n")
		}
		b.WriteString("\n")
	}

	if len(s.Summary) > 0 {
		b.WriteString("### Top Search Terms (by spend)\n\n")
		headers := []string{"Search Term", "Impr", "Clicks", "Spend", "Orders"}
		limit := len(s.Summary)
		if limit > topSearchTerms {
			limit = topSearchTerms
		}
		rows := make([][]string, 0, limit)
		for _, r := range s.Summary[:limit] {
			rows = append(rows, []string{
				r.SearchTerm,
				fmtInt(r.Impressions),
				fmtInt(r.Clicks),
				fmtDollar(r.Spend),
				fmtInt(r.Orders),
			})
		}
		b.WriteString(mdTable(headers, rows))
	}
	return b.String()
}

func kdpSection(r analysis.Reconciliation) string {
	var b strings.Builder
	b.WriteString("## 5. KDP Sales Reconciliation\n\n")

	if len(r.TitleTotals) > 0 {
		headers := []string{"Title", "Units", "Royalty"}
		rows := make([][]string, 0, len(r.TitleTotals))
		for _, t := range r.TitleTotals {
			rows = append(rows, []string{t.Title, fmtInt(t.Units), fmtDollar(t.Royalty)})
		}
		b.WriteString(mdTable(headers, rows) + "\n\n")
	}

	b.WriteString("### Attribution Gap\n\n")
	b.WriteString(fmt.Sprintf("- **KDP Total Units**: %d\n", r.Totals.KDPUnits))
	b.WriteString(fmt.Sprintf("- **Ad-Attributed Orders**: %d\n", r.Totals.AdAttributedOrders))
	b.WriteString(fmt.Sprintf("- **Unattributed Sales**: %d (%.1f%%)\n",
		r.Totals.AttributionGap, r.Totals.AttributionGapPct))
	b.WriteString(fmt.Sprintf("- **KDP Royalty**: %s\n", fmtDollar(r.Totals.KDPRoyalty)))

	if r.GapNote != "" {
		b.WriteString("\n> " + r.GapNote + "\n")
	}

	if len(r.PairedPurchases) > 0 {
		b.WriteString("\n### Paired Purchases\n\n")
		b.WriteString("Days where both books were ordered — likely ad-driven cross-sell:\n\n")
		for _, p := range r.PairedPurchases {
			b.WriteString(fmt.Sprintf("- %s: %s\n", p.Date.Format("2006-01-02"), p.Details))
		}
	}

	if est := r.AdInfluenced; est != nil {
		b.WriteString("\n### Ad-Influenced Sales Estimate\n\n")
		b.WriteString(fmt.Sprintf("- **Since ads started (%s)**: %s units, %s royalty\n",
			est.AdsStart, fmtInt(est.PostAdUnits), fmtDollar(est.PostAdRoyalty)))
		b.WriteString(fmt.Sprintf("- **Before ads**: %s units, %s royalty\n",
			fmtInt(est.PreAdUnits), fmtDollar(est.PreAdRoyalty)))
		b.WriteString(fmt.Sprintf("- **Ad spend**: %s\n", fmtDollar(est.AdSpend)))
		b.WriteString(fmt.Sprintf("- **Attributed ROAS**: %s | **Ad-influenced ROAS**: %s\n",
			fmtRatio(est.AttributedROAS), fmtRatio(est.InfluencedROAS)))
		if est.Note != "" {
			b.WriteString("\n> " + est.Note + "\n")
		}
	}
	return b.String()
}

func bidSection(r analysis.BidRecommendations) string {
	var b strings.Builder
	b.WriteString("## 6. Bid Recommendations\n\n")
	if len(r.Table) == 0 {
		b.WriteString("No bid recommendation data.")
		return b.String()
	}

	headers := []string{"Target", "Campaign", "Clicks", "Orders", "Conv Rate", "Current Bid", "Max Bid"}
	rows := make([][]string, 0, len(r.Table))
	for _, row := range r.Table {
		rows = append(rows, []string{
			row.Targeting,
			row.CampaignName,
			fmtInt(row.Clicks),
			fmtInt(row.Orders),
			fmtPct(row.ConversionRate),
			fmtDollarPtr(row.CurrentBid),
			fmtDollarPtr(row.MaxProfitableBid),
		})
	}
	b.WriteString(mdTable(headers, rows))
	writeFlags(&b, r.Flags)
	return b.String()
}

func actionItemsSection(w Weekly) string {
	var all []analysis.Flag
	all = append(all, w.ASIN.Flags...)
	all = append(all, w.Keywords.Flags...)
	all = append(all, w.SearchTerms.DriftFlags...)
	all = append(all, w.Bids.Flags...)

	if len(all) == 0 {
		return "## Action Items\n\nNo action items — all targets performing within thresholds."
	}

	var warnings, infos []analysis.Flag
	for _, f := range all {
		if f.Severity == analysis.SeverityWarning {
			warnings = append(warnings, f)
		} else {
			infos = append(infos, f)
		}
	}

	var b strings.Builder
	b.WriteString("## Action Items\n\n")
	if len(warnings) > 0 {
		b.WriteString("### Warnings\n\n")
		for _, f := range warnings {
			b.WriteString("- " + f.Message + "\n")
		}
		b.WriteString("\n")
	}
	if len(infos) > 0 {
		b.WriteString("### Info\n\n")
		for _, f := range infos {
			b.WriteString("- " + f.Message + "\n")
		}
	}
	return b.String()
}

// --- formatting helpers ---

func mdTable(headers []string, rows [][]string) string {
	var lines []string
	lines = append(lines, "| "+strings.Join(headers, " | ")+" |")
	seps := make([]string, len(headers))
	for i := range seps {
		seps[i] = "---"
	}
	lines = append(lines, "| "+strings.Join(seps, " | ")+" |")
	for _, row := range rows {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	return strings.Join(lines, "\n")
}

func writeFlags(b *strings.Builder, flags []analysis.Flag) {
	if len(flags) == 0 {
		return
	}
	b.WriteString("\n\n**Flags:**\n")
	for _, f := range flags {
		b.WriteString("- " + flagIcon(f.Severity) + " " + f.Message + "\n")
	}
}

func flagIcon(s analysis.Severity) string {
	if s == analysis.SeverityWarning {
		return "!!!"
	}
	return ">"
}

func fmtPct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func fmtPctPtr(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmtPct(*v)
}

func fmtPctSigned(v float64) string {
	return fmt.Sprintf("%+.2fpp", v*100)
}

func fmtDollar(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func fmtDollarPtr(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmtDollar(*v)
}

func fmtDollarSigned(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("+$%.2f", v)
}

func fmtRatio(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.2fx", *v)
}

func fmtIntSigned(v int) string {
	return fmt.Sprintf("%+d", v)
}

// fmtInt renders an int with thousands separators.
func fmtInt(v int) string {
	s := strconv.Itoa(v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
