package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adscension/internal/analysis"
	"adscension/internal/config"
	"adscension/internal/ingest"
	"adscension/internal/report"
	"adscension/internal/resolver"
	"adscension/internal/store"
)

var (
	reportSearchTerms []string
	reportCampaigns   string
	reportKDP         string
	reportPullDate    string
	reportOutputDir   string
	reportLookupPath  string
	reportNotes       string
	reportSave        bool
	reportResolve     bool
	reportNoRender    bool
)

// reportCmd generates the weekly report
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the weekly performance report",
	Long: `Loads one or more search-term exports (plus an optional KDP royalty
report), runs the full analysis pipeline, and writes reports/week-<date>.md.

The reporting week is derived from the pull date: exports pulled on a Monday
cover the seven days ending the previous Sunday.

Example:
  adscension report --search-terms exports/st-2024-03-11.csv --kdp exports/kdp.xlsx --save`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringSliceVar(&reportSearchTerms, "search-terms", nil, "Search term report file(s), CSV or XLSX (required)")
	reportCmd.Flags().StringVar(&reportCampaigns, "campaigns", "", "Campaign report export, used to cross-check derived campaign totals")
	reportCmd.Flags().StringVar(&reportKDP, "kdp", "", "KDP royalty report (XLSX workbook or CSV)")
	reportCmd.Flags().StringVar(&reportPullDate, "pull-date", "", "Date the exports were pulled, YYYY-MM-DD (default: today)")
	reportCmd.Flags().StringVarP(&reportOutputDir, "output", "o", "reports", "Directory for the markdown report")
	reportCmd.Flags().StringVar(&reportLookupPath, "asin-lookup", "data/asin_lookup.json", "ASIN title lookup cache")
	reportCmd.Flags().StringVar(&reportNotes, "notes", "", "Free-form note stored with the snapshot")
	reportCmd.Flags().BoolVar(&reportSave, "save", false, "Persist this week's snapshot to the database")
	reportCmd.Flags().BoolVar(&reportResolve, "resolve-asins", false, "Resolve ASIN search terms to titles (scrapes Amazon for unknowns)")
	reportCmd.Flags().BoolVar(&reportNoRender, "no-render", false, "Skip terminal rendering, only write the file")
	reportCmd.MarkFlagRequired("search-terms")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	pull, err := resolvePullDate(reportPullDate)
	if err != nil {
		return err
	}
	weekEnd := pull.AddDate(0, 0, -1)
	weekStart := pull.AddDate(0, 0, -7)
	weekLabel := weekEnd.Format("2006-01-02")
	logger.Info("generating weekly report",
		zap.String("week_start", weekStart.Format("2006-01-02")),
		zap.String("week_end", weekLabel))

	var rows []ingest.SearchTermRow
	for _, path := range reportSearchTerms {
		fileRows, err := ingest.LoadSearchTermReport(path, logger)
		if err != nil {
			return err
		}
		rows = append(rows, fileRows...)
	}
	rows = ingest.DedupeSearchTerms(rows)
	logger.Info("loaded search term rows", zap.Int("rows", len(rows)))

	targeting := analysis.BuildTargeting(rows, cfg.TargetBids())

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	prior, err := st.PriorWeekSummary(weekStart.Format("2006-01-02"))
	if err != nil {
		logger.Warn("prior week lookup failed, skipping WoW deltas", zap.Error(err))
		prior = nil
	}

	summary := analysis.SummarizeCampaigns(targeting, prior)
	if reportCampaigns != "" {
		campaignRows, err := ingest.LoadCampaignReport(reportCampaigns, logger)
		if err != nil {
			return err
		}
		crossCheckCampaigns(summary, campaignRows)
	}
	asinPerf := analysis.AnalyzeASINTargets(targeting, cfg)
	keywords := analysis.AnalyzeKeywords(targeting, cfg)
	terms := analysis.AnalyzeSearchTerms(rows, cfg)
	bids := analysis.RecommendBids(targeting, cfg)

	var sales []ingest.KdpSaleRow
	var orders []ingest.KdpOrderRow
	if reportKDP != "" {
		sales, err = ingest.LoadKDPReport(reportKDP, cfg.Settings.Marketplace, logger)
		if err != nil {
			return err
		}
		orders, err = ingest.LoadKDPOrders(reportKDP, cfg.Settings.Marketplace, logger)
		if err != nil {
			return err
		}
	}
	recon := analysis.ReconcileKDP(sales, orders, summary, weekStart, weekEnd, cfg)

	if reportResolve {
		if err := resolveSearchTerms(ctx, &terms); err != nil {
			logger.Warn("asin resolution failed, report keeps raw identifiers", zap.Error(err))
		}
	}

	weekly := report.Weekly{
		Week:        weekLabel,
		WeekStart:   weekStart,
		WeekEnd:     weekEnd,
		GeneratedAt: time.Now(),
		Campaigns:   summary,
		ASIN:        asinPerf,
		Keywords:    keywords,
		SearchTerms: terms,
		Recon:       recon,
		Bids:        bids,
	}

	path, err := report.WriteWeekly(reportOutputDir, weekly)
	if err != nil {
		return err
	}
	logger.Info("report written", zap.String("path", path))

	if !reportNoRender {
		renderToTerminal(report.RenderWeekly(weekly))
	}

	if reportSave {
		id, err := st.SaveWeeklySnapshot(store.SnapshotInput{
			WeekStart:   weekStart.Format("2006-01-02"),
			WeekEnd:     weekLabel,
			Notes:       reportNotes,
			Campaigns:   summary.Table,
			Targets:     targeting,
			SearchTerms: rows,
			KDPSales:    sales,
			Bids:        bids,
			DriftFlags:  terms.DriftFlags,
		})
		if err != nil {
			return err
		}
		logger.Info("snapshot saved", zap.String("snapshot_id", id))
	}
	return nil
}

// crossCheckCampaigns compares campaign totals derived from the search-term
// export against Amazon's own campaign report. The two exports are pulled
// separately and can straddle an attribution update, so small drift is normal;
// anything beyond a cent (or any count mismatch) is logged for investigation.
// Campaigns present only in the campaign report had no search-term activity
// this week and are skipped.
func crossCheckCampaigns(summary analysis.CampaignSummary, rows []ingest.CampaignRow) {
	reported := make(map[string]ingest.CampaignRow, len(rows))
	for _, r := range rows {
		reported[r.CampaignName] = r
	}
	for _, derived := range summary.Table {
		row, ok := reported[derived.CampaignName]
		if !ok {
			logger.Warn("campaign missing from campaign report",
				zap.String("campaign", derived.CampaignName))
			continue
		}
		if row.Clicks != derived.Clicks || row.Orders != derived.Orders ||
			mismatchCents(row.Spend, derived.Spend) || mismatchCents(row.Sales, derived.Sales) {
			logger.Warn("campaign totals diverge from campaign report",
				zap.String("campaign", derived.CampaignName),
				zap.Int("derived_clicks", derived.Clicks),
				zap.Int("reported_clicks", row.Clicks),
				zap.Int("derived_orders", derived.Orders),
				zap.Int("reported_orders", row.Orders),
				zap.Float64("derived_spend", derived.Spend),
				zap.Float64("reported_spend", row.Spend),
				zap.Float64("derived_sales", derived.Sales),
				zap.Float64("reported_sales", row.Sales))
		}
	}
}

func mismatchCents(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d > 0.01
}

// resolvePullDate parses the flag or defaults to today's date in UTC.
func resolvePullDate(flag string) (time.Time, error) {
	if flag == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	pull, err := time.Parse("2006-01-02", flag)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --pull-date %q (want YYYY-MM-DD): %w", flag, err)
	}
	return pull, nil
}

// resolveSearchTerms rewrites ASIN identifiers in the search-term analysis to
// display titles, scraping Amazon for ASINs missing from the lookup cache.
func resolveSearchTerms(ctx context.Context, terms *analysis.SearchTermAnalysis) error {
	var candidates []string
	seen := map[string]bool{}
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			candidates = append(candidates, t)
		}
	}
	for _, row := range terms.Summary {
		add(row.SearchTerm)
	}
	for _, f := range terms.DriftFlags {
		add(f.Target)
		add(f.SearchTerm)
	}
	if len(candidates) == 0 {
		return nil
	}

	browser, err := resolver.NewBrowser(logger)
	if err != nil {
		return err
	}
	defer browser.Close()

	r := resolver.New(reportLookupPath, logger, resolver.WithFetcher(browser.Fetch))
	names, err := r.Resolve(ctx, candidates)
	if err != nil {
		return err
	}
	analysis.ApplyASINResolution(terms, names)
	return nil
}

// renderToTerminal pretty-prints markdown via glamour, falling back to the
// raw markdown when the renderer is unavailable (dumb terminals, pipes).
func renderToTerminal(md string) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(110),
	)
	if err != nil {
		fmt.Println(md)
		return
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}
