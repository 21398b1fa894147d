package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchDir  string
	watchSave bool

	// Most recent export of each kind seen this session. The report re-runs
	// whenever a search-term export is available; the KDP file is optional.
	watchSearchTerms string
	watchKDP         string
)

// debounceWindow coalesces the write bursts browsers produce while a
// download is in flight.
const debounceWindow = 2 * time.Second

// watchCmd watches a directory for newly downloaded exports
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory for new Amazon Ads / KDP exports",
	Long: `Watches a downloads directory and regenerates the weekly report as export
files (.csv and .xlsx) land. A search-term export triggers a run on its own;
a KDP royalty export is folded into the next run.

Example:
  adscension watch --dir ~/Downloads --save`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "exports", "Directory to watch for export files")
	watchCmd.Flags().BoolVar(&watchSave, "save", false, "Persist each regenerated report's snapshot")
}

func runWatch(cmd *cobra.Command, args []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(watchDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", watchDir, err)
	}
	logger.Info("watching for exports", zap.String("dir", watchDir))
	fmt.Printf("Watching %s for new exports (Ctrl-C to stop)...\n", watchDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	lastSeen := map[string]time.Time{}
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isExportFile(event.Name) {
				continue
			}
			now := time.Now()
			if last, ok := lastSeen[event.Name]; ok && now.Sub(last) < debounceWindow {
				continue
			}
			lastSeen[event.Name] = now
			handleExport(cmd, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))

		case <-sigCh:
			logger.Info("stopping watch")
			return nil
		}
	}
}

func isExportFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// classifyExport identifies an export by its filename. Amazon names these
// downloads "Sponsored Products Search term report" and "KDP_Royalties_
// Estimator"; anything else is left alone.
func classifyExport(path string) string {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "search") || strings.Contains(name, "term"):
		return "search-terms"
	case strings.Contains(name, "kdp") || strings.Contains(name, "royalt"):
		return "kdp"
	}
	return ""
}

func handleExport(cmd *cobra.Command, path string) {
	switch classifyExport(path) {
	case "search-terms":
		fmt.Printf("\nNew search term export: %s\n", path)
		watchSearchTerms = path
	case "kdp":
		fmt.Printf("\nNew KDP export: %s\n", path)
		watchKDP = path
	default:
		fmt.Printf("\nUnrecognized export file, ignoring: %s\n", path)
		return
	}
	if watchSearchTerms == "" {
		fmt.Println("  waiting for a search term export before generating a report")
		return
	}

	reportSearchTerms = []string{watchSearchTerms}
	reportKDP = watchKDP
	reportSave = watchSave
	if err := runReport(cmd, nil); err != nil {
		logger.Error("report regeneration failed", zap.Error(err))
		fmt.Printf("  report failed: %v\n", err)
	}
}
