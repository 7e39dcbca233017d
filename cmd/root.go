// Copyright (c) 2025 Cmpfetch
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the cmpfetch application.
// It implements subcommands for fetching collateral reports, configuring the
// terminal connection, and tunneling the terminal port, using the Cobra CLI
// framework. The package handles command parsing, execution, and provides a
// terminal UI with spinners and progress indicators.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "cmpfetch",
	Short:         "CMBS collateral report fetcher for the terminal's CMP service",
	Long:          `Cmpfetch is a command-line tool that fetches CMBS loan/property/lease/reserve collateral reports from a financial-data terminal's local CMP service and writes them to spreadsheet or CSV files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("cmpfetch %s\n", Version)
			return nil
		}
		// If no flag is set, show help
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
}
