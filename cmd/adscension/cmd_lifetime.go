package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"adscension/internal/report"
	"adscension/internal/store"
)

// lifetimeCmd shows lifetime totals across all stored snapshots
var lifetimeCmd = &cobra.Command{
	Use:   "lifetime",
	Short: "Show lifetime ad performance across all stored weeks",
	RunE:  runLifetime,
}

func runLifetime(cmd *cobra.Command, args []string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	lt, err := st.LifetimeSummary()
	if err != nil {
		return err
	}
	if lt == nil {
		fmt.Println("No snapshots stored yet. Run `adscension report --save` first.")
		return nil
	}

	tbl := report.NewTable("Lifetime Performance", "Metric", "Value")
	tbl.AddRow("Weeks tracked", fmt.Sprintf("%d", lt.WeeksTracked))
	tbl.AddRow("Total spend", fmt.Sprintf("$%.2f", lt.TotalSpend))
	tbl.AddRow("Total orders", fmt.Sprintf("%d", lt.TotalOrders))
	tbl.AddRow("Total sales", fmt.Sprintf("$%.2f", lt.TotalSales))
	tbl.AddRow("Overall ACoS", fmt.Sprintf("%.2f%%", lt.OverallACOS*100))
	tbl.AddRow("Overall ROAS", fmt.Sprintf("%.2fx", lt.OverallROAS))
	tbl.AddRow("Avg weekly spend", fmt.Sprintf("$%.2f", lt.AvgWeeklySpend))

	fmt.Print(tbl.View(report.DefaultStyles()))
	return nil
}
