// Copyright (c) 2025 Cmpfetch
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cmpfetch/cli/internal/config"
	"cmpfetch/cli/internal/dispatch"
	"cmpfetch/cli/internal/export"
	"cmpfetch/cli/internal/logging"
	"cmpfetch/cli/internal/progress"
	"cmpfetch/cli/internal/report"
	"cmpfetch/cli/internal/session/grpcgateway"
	"cmpfetch/cli/internal/table"

	"atomicgo.dev/cursor"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	fetchSecurities     []string
	fetchSecuritiesFile string
	fetchReport         string
	fetchFactorDate     string
	fetchFields         []string
	fetchIncludePaid    bool
	fetchOutput         string
	fetchFormat         string
	fetchPipeline       bool
	verboseFetch        bool
)

// previewRows is how many aggregate rows are shown in the terminal preview.
const previewRows = 5

// fetchCmd represents the fetch command for running multi-security collateral
// report requests. It connects to the terminal's local CMP service, fetches
// the chosen report for every security, stacks the results and writes the
// aggregate to a spreadsheet or CSV artifact.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a collateral report for one or more securities",
	Long: `The fetch command requests a CMBS collateral report (loan, property, lease or
reserve data) for every given security from the terminal's local CMP service,
stacks the per-security tables into one aggregate table and writes it to an
XLSX or CSV file.

Securities can be passed with repeated --security flags or one per line in a
file via --securities-file. Per-security failures are logged and skipped; the
artifact contains the securities that succeeded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if verboseFetch {
			level = "debug"
		}
		log := logging.Setup(level)

		securities, err := collectSecurities()
		if err != nil {
			return err
		}

		reportName := strings.TrimSpace(fetchReport)
		pterm.Println()
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Terminal:   ") + pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprintf("%s:%d", cfg.Terminal.Host, cfg.Terminal.Port))
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Report:     ") + pterm.NewStyle(pterm.FgLightBlue).Sprint(displayReport(reportName)))
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Securities: ") + pterm.NewStyle(pterm.FgLightBlue).Sprintf("%d", len(securities)))
		pterm.Println()

		ctx := cmd.Context()
		cursor.Hide()
		defer cursor.Show()

		stopSpinner := startInlineSpinner(os.Stdout, "connecting to terminal", spinnerFrames, 100*time.Millisecond)
		svc, sess, err := grpcgateway.Connect(ctx, cfg.Terminal.Host, cfg.Terminal.Port)
		stopSpinner()
		if err != nil {
			pterm.Printf("❌ Failed to connect to the terminal's CMP service\n")
			pterm.Println(logging.PresentError("", err))
			pterm.Println("   Is the terminal running and its local API enabled?")
			return err
		}
		defer sess.Close(ctx)

		client := report.NewClient(svc, sess, log)
		prog := progress.NewState()
		stopSpinner = startInlineSpinner(os.Stdout, fmt.Sprintf("fetching %d securities", len(securities)), spinnerFrames, 100*time.Millisecond)
		aggregate, err := client.AssetReport(ctx, securities, report.Options{
			FactorDate:       fetchFactorDate,
			IncludePaidDown:  fetchIncludePaid,
			Fields:           fetchFields,
			CollateralReport: reportName,
			Pipeline:         fetchPipeline,
			Dispatch: dispatch.Options{
				Timeout:    time.Duration(cfg.Dispatch.TimeoutSeconds) * time.Second,
				MaxRetries: cfg.Dispatch.MaxRetries,
				RetryDelay: time.Duration(cfg.Dispatch.RetryDelaySeconds) * time.Second,
			},
			Progress: prog,
		})
		stopSpinner()
		if err != nil {
			pterm.Printf("❌ Report run failed\n")
			pterm.Println(logging.PresentError("", err))
			return err
		}

		printRunSummary(prog)
		if len(aggregate.Rows) == 0 {
			pterm.Println("⚠️  No data returned for any security; nothing to write.")
			return nil
		}

		previewTable(aggregate)

		outPath, format, err := resolveOutput(cfg, reportName)
		if err != nil {
			return err
		}
		switch format {
		case "csv":
			err = export.WriteCSV(outPath, aggregate)
		default:
			err = export.WriteXLSX(outPath, aggregate)
		}
		if err != nil {
			pterm.Printf("❌ Failed to write artifact\n")
			pterm.Println(logging.PresentError("", err))
			return err
		}

		pterm.Println()
		pterm.Println("✅ Data written to " + outPath)
		return nil
	},
}

// collectSecurities merges the --security flags with the optional file list.
func collectSecurities() ([]string, error) {
	var securities []string
	for _, s := range fetchSecurities {
		if s = strings.TrimSpace(s); s != "" {
			securities = append(securities, s)
		}
	}
	if fetchSecuritiesFile != "" {
		f, err := os.Open(fetchSecuritiesFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			securities = append(securities, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	if len(securities) == 0 {
		return nil, fmt.Errorf("no securities given; use --security or --securities-file")
	}
	return securities, nil
}

// printRunSummary reports how many securities succeeded and lists skips.
func printRunSummary(prog *progress.State) {
	completed, failed, expected := prog.Counts()
	pterm.Println()
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Fetched:    ") + pterm.NewStyle(pterm.FgLightBlue).Sprintf("%d of %d securities", completed, expected))
	if failed > 0 {
		pterm.Println(pterm.NewStyle(pterm.FgYellow).Sprintf("⚠️  %d skipped:", failed))
		for _, line := range prog.FailedList() {
			pterm.Println(pterm.Gray("   " + line))
		}
	}
}

// previewTable renders the first rows of the aggregate to the terminal.
func previewTable(t table.Table) {
	rows := t.Rows
	if len(rows) > previewRows {
		rows = rows[:previewRows]
	}
	data := pterm.TableData{t.Columns}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = export.FormatCell(v)
		}
		data = append(data, cells)
	}
	pterm.Println()
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	if len(t.Rows) > previewRows {
		pterm.Println(pterm.Gray(fmt.Sprintf("… %d more rows", len(t.Rows)-previewRows)))
	}
}

// resolveOutput picks the artifact path and format from flags and config.
func resolveOutput(cfg config.Config, reportName string) (string, string, error) {
	format := strings.ToLower(strings.TrimSpace(fetchFormat))
	path := fetchOutput

	if path != "" && format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			format = "csv"
		default:
			format = "xlsx"
		}
	}
	if format == "" {
		format = "xlsx"
	}
	if format != "xlsx" && format != "csv" {
		return "", "", fmt.Errorf("unsupported format %q; use xlsx or csv", format)
	}
	if path == "" {
		name := "asset_request"
		if reportName != "" {
			name = reportName
		}
		path = name + "." + format
		if cfg.OutputDir != "" {
			path = filepath.Join(cfg.OutputDir, path)
		}
	}
	return path, format, nil
}

// displayReport names the report for the run banner.
func displayReport(reportName string) string {
	if reportName == "" {
		return "assets (all)"
	}
	return reportName
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringArrayVarP(&fetchSecurities, "security", "s", nil, "Security identifier (repeatable)")
	fetchCmd.Flags().StringVar(&fetchSecuritiesFile, "securities-file", "", "File with one security per line")
	fetchCmd.Flags().StringVarP(&fetchReport, "report", "r", "", "Collateral report to run (e.g. cmbsloanbulk, cmbspropertybulk)")
	fetchCmd.Flags().StringVar(&fetchFactorDate, "factor-date", "", "YYYYMM data snapshot; defaults to the latest per security")
	fetchCmd.Flags().StringSliceVar(&fetchFields, "fields", nil, "Field filter; defaults to all fields")
	fetchCmd.Flags().BoolVar(&fetchIncludePaid, "include-paiddown", false, "Include zero-balance (paid down) assets")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "Artifact path; defaults to <report>.<format>")
	fetchCmd.Flags().StringVar(&fetchFormat, "format", "", "Artifact format: xlsx or csv")
	fetchCmd.Flags().BoolVar(&fetchPipeline, "pipeline", false, "Send all requests up front and correlate responses as they arrive")
	fetchCmd.Flags().BoolVarP(&verboseFetch, "verbose", "v", false, "Enable verbose debug output")
}
