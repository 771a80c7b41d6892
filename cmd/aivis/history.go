package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/AIVisibility/internal/database"
	"github.com/TobiSchelling/AIVisibility/internal/mention"
	"github.com/TobiSchelling/AIVisibility/internal/report"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [domain]",
	Short: "List stored scans, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var domain string
		if len(args) == 1 {
			domain = mention.Normalize(args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		scans, err := db.ListScans(domain, historyLimit)
		if err != nil {
			return fmt.Errorf("listing scans: %w", err)
		}
		if len(scans) == 0 {
			fmt.Println("No scans yet. Run 'aivis scan <domain>' first.")
			return nil
		}

		fmt.Printf("%-8s  %-20s  %-30s  %-9s  %s\n", "ID", "Started", "Domain", "Status", "Score")
		for _, s := range scans {
			score := "-"
			if s.OverallScore != nil {
				score = fmt.Sprintf("%d", *s.OverallScore)
			}
			fmt.Printf("%-8s  %-20s  %-30s  %-9s  %s\n", shortID(s.ID), s.StartedAt, s.Domain, s.Status, score)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum scans to list")
}

var (
	reportDomain string
	reportFormat string
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report [scan-id]",
	Short: "Render a stored scan as a Markdown or HTML report",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && reportDomain == "" {
			return errors.New("pass a scan ID or --domain")
		}
		format := strings.ToLower(reportFormat)
		if format != "md" && format != "html" {
			return fmt.Errorf("unknown format %q (use md or html)", reportFormat)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var scan *database.Scan
		if len(args) == 1 {
			scan, err = db.FindScan(args[0])
		} else {
			scan, err = db.LatestScan(mention.Normalize(reportDomain))
		}
		if errors.Is(err, database.ErrNotFound) {
			return errors.New("scan not found")
		}
		if err != nil {
			return fmt.Errorf("finding scan: %w", err)
		}
		if scan.Status != database.StatusCompleted {
			return fmt.Errorf("scan %s is %s", shortID(scan.ID), scan.Status)
		}

		score, err := db.GetScores(scan.ID)
		if err != nil {
			return fmt.Errorf("loading scores: %w", err)
		}
		results, err := db.GetResults(scan.ID)
		if err != nil {
			return fmt.Errorf("loading results: %w", err)
		}

		in := report.Input{
			ScanID:       scan.ID,
			Domain:       scan.Domain,
			BusinessType: scan.BusinessType,
			Date:         scan.StartedAt,
			Score:        score,
			Results:      results,
		}

		var out string
		if format == "html" {
			out, err = report.HTML(in)
			if err != nil {
				return fmt.Errorf("rendering report: %w", err)
			}
		} else {
			out = report.Markdown(in)
		}

		if reportOutput == "" {
			fmt.Print(out)
			return nil
		}
		if err := os.WriteFile(reportOutput, []byte(out), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Report written to %s\n", reportOutput)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportDomain, "domain", "d", "", "Report the latest completed scan for this domain")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "md", "Output format: md or html")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write the report to this file")
}
