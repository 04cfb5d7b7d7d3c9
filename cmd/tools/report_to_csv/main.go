package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/soltixdb/brutlag/internal/config"
	"github.com/soltixdb/brutlag/internal/logging"
	"github.com/soltixdb/brutlag/internal/reports"
	"github.com/soltixdb/brutlag/internal/utils"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	id := flag.String("id", "", "Export a single report (default: the newest -limit reports)")
	limit := flag.Int("limit", utils.MaxListedReports, "Number of reports to export when -id is not given")
	output := flag.String("output", "./data/csv", "Output CSV directory")
	timezone := flag.String("timezone", "UTC", "Timezone for timestamps in the CSV")

	flag.Parse()

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		log.Fatalf("Error: Invalid timezone '%s': %v\n", *timezone, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v\n", err)
	}
	if cfg.Reports.Backend == string(utils.ReportBackendMemory) {
		log.Fatal("Error: the memory report backend keeps nothing to export")
	}

	store, err := reports.Open(cfg.Reports, logging.NewNop())
	if err != nil {
		log.Fatalf("Error opening report store: %v\n", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	ids := []string{*id}
	if *id == "" {
		summaries, err := store.List(ctx, *limit)
		if err != nil {
			log.Fatalf("Error listing reports: %v\n", err)
		}
		ids = ids[:0]
		for _, s := range summaries {
			ids = append(ids, s.ID)
		}
	}

	if len(ids) == 0 {
		log.Printf("Warning: No reports found in %s\n", cfg.Reports.DataDir)
		return
	}

	if err := os.MkdirAll(*output, 0o755); err != nil {
		log.Fatalf("Error creating output directory: %v\n", err)
	}

	for _, reportID := range ids {
		report, err := store.Get(ctx, reportID)
		if err != nil {
			log.Fatalf("Error reading report %s: %v\n", reportID, err)
		}
		outputFile := filepath.Join(*output, fmt.Sprintf("%s_%s.csv", report.Series, report.ID))
		if err := exportToCSV(outputFile, report, loc); err != nil {
			log.Fatalf("Error exporting to CSV: %v\n", err)
		}
		fmt.Printf("Exported %d points to: %s\n", len(report.Points), outputFile)
	}
}

func exportToCSV(path string, report *reports.Report, loc *time.Location) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	for i := range report.Points {
		report.Points[i].Time = report.Points[i].Time.In(loc)
	}
	if err := reports.WriteCSV(f, report); err != nil {
		return err
	}
	return f.Close()
}
