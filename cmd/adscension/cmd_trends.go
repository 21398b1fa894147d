package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"adscension/internal/report"
	"adscension/internal/store"
)

var (
	trendsMetric   string
	trendsCampaign string
	trendsWeeks    int
)

// trendsCmd shows a metric across stored weekly snapshots
var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show a metric's week-over-week trend from stored snapshots",
	Long: `Renders one metric per campaign across the most recent stored weeks.

Metrics: spend, sales, impressions, clicks, orders, ctr, acos, roas, avg_cpc

Example:
  adscension trends --metric acos --weeks 12`,
	RunE: runTrends,
}

func init() {
	trendsCmd.Flags().StringVarP(&trendsMetric, "metric", "m", "spend", "Metric to trend")
	trendsCmd.Flags().StringVar(&trendsCampaign, "campaign", "", "Restrict to one campaign")
	trendsCmd.Flags().IntVarP(&trendsWeeks, "weeks", "w", 8, "Number of recent weeks")
}

func runTrends(cmd *cobra.Command, args []string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	points, err := st.TrendData(trendsMetric, trendsCampaign, trendsWeeks)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Println("No snapshots stored yet. Run `adscension report --save` first.")
		return nil
	}

	// Pivot: one row per week, one column per campaign.
	campaignSet := map[string]bool{}
	valueByWeek := map[string]map[string]float64{}
	var weeks []string
	for _, p := range points {
		campaignSet[p.CampaignName] = true
		if valueByWeek[p.WeekStart] == nil {
			valueByWeek[p.WeekStart] = map[string]float64{}
			weeks = append(weeks, p.WeekStart)
		}
		valueByWeek[p.WeekStart][p.CampaignName] = p.Value
	}
	campaigns := make([]string, 0, len(campaignSet))
	for c := range campaignSet {
		campaigns = append(campaigns, c)
	}
	sort.Strings(campaigns)

	tbl := report.NewTable(
		fmt.Sprintf("%s by week", trendsMetric),
		append([]string{"Week"}, campaigns...)...,
	)
	for _, week := range weeks {
		row := []string{week}
		for _, campaign := range campaigns {
			if v, ok := valueByWeek[week][campaign]; ok {
				row = append(row, formatMetric(trendsMetric, v))
			} else {
				row = append(row, "—")
			}
		}
		tbl.AddRow(row...)
	}

	fmt.Print(tbl.View(report.DefaultStyles()))
	return nil
}

func formatMetric(metric string, v float64) string {
	switch metric {
	case "spend", "sales", "avg_cpc":
		return fmt.Sprintf("$%.2f", v)
	case "ctr", "acos":
		return fmt.Sprintf("%.2f%%", v*100)
	case "roas":
		return fmt.Sprintf("%.2fx", v)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
