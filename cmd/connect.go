// Copyright (c) 2025 Cmpfetch
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"cmpfetch/cli/internal/config"
	"cmpfetch/cli/internal/logging"
	"cmpfetch/cli/internal/session/grpcgateway"
	"cmpfetch/cli/internal/terminal"

	"github.com/spf13/cobra"
)

// connectCmd represents the connect command for configuring the terminal
// endpoint. It prompts for the local CMP service address and verifies that a
// session can be started before saving the endpoint to the config file.
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Configure and verify the terminal's local CMP service address",
	Long: `The connect command prompts for the terminal's local API address (host:port)
and verifies that a session can be started and the CMP service opened. The
address is stored in the config file for future runs.

The terminal's local API conventionally listens on localhost:8194.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		reader := bufio.NewReader(os.Stdin)
		def := fmt.Sprintf("%s:%d", cfg.Terminal.Host, cfg.Terminal.Port)
		promptText := fmt.Sprintf("Enter terminal address (host:port) [%s]: ", def)
		fmt.Print(promptText)
		raw, _ := reader.ReadString('\n')
		raw = strings.TrimSpace(raw)

		// Clear the prompt and user input from terminal
		terminal.ClearPreviousLines(len(promptText) + len(raw))

		if raw == "" {
			raw = def
		}
		host, portStr, err := net.SplitHostPort(raw)
		if err != nil {
			fmt.Println("❌ Invalid address format. Use host:port, e.g. localhost:8194.")
			return err
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 {
			fmt.Println("❌ Invalid port. Use host:port, e.g. localhost:8194.")
			return fmt.Errorf("invalid port %q", portStr)
		}

		startTime := time.Now()
		stopSpinner := startInlineSpinner(os.Stdout, "verifying connection", spinnerFrames, 100*time.Millisecond)

		_, sess, err := grpcgateway.Connect(ctx, host, port)
		if err != nil {
			stopSpinner()
			fmt.Println("Connection failed. Is the terminal running with its local API enabled?")
			fmt.Println(logging.PresentError("", err))
			return err
		}
		_ = sess.Close(ctx)

		// Ensure spinner runs for at least 2 seconds for better UX
		if elapsed := time.Since(startTime); elapsed < 2*time.Second {
			time.Sleep(2*time.Second - elapsed)
		}
		stopSpinner()

		cfg.Terminal.Host = host
		cfg.Terminal.Port = port
		if err := config.Save(cfg); err != nil {
			fmt.Println("❌ Connection verified but the config could not be saved.")
			return err
		}

		fmt.Println("✅ Terminal connection verified and saved!")
		fmt.Println("   You're ready to run 'cmpfetch fetch'")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}
