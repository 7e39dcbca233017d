// Copyright (c) 2025 Cmpfetch
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"cmpfetch/cli/internal/config"
	"cmpfetch/cli/internal/keychain"
	"cmpfetch/cli/internal/logging"
	"cmpfetch/cli/internal/tunnel"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	tunnelPort      int
	tunnelAuthtoken string
)

// tunnelCmd represents the tunnel command for exposing the terminal's local
// API port through an ngrok tunnel, e.g. to reach a desktop terminal from a
// remote notebook. The ngrok authtoken is kept in the OS keychain.
var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Tunnel the terminal's local API port to a public URL",
	Long: `The tunnel command starts an ngrok tunnel to the terminal's local API port and
keeps it open until interrupted. The ngrok authtoken is read from the OS
keychain (or the NGROK_AUTHTOKEN environment variable); pass --authtoken once
to store it.

Get your token from: https://dashboard.ngrok.com/get-started/your-authtoken`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		port := tunnelPort
		if port == 0 {
			port = cfg.Terminal.Port
		}

		token, err := resolveAuthtoken()
		if err != nil {
			return err
		}
		if token == "" {
			fmt.Println("⚠️  No ngrok authtoken configured.")
			fmt.Println("   Pass one with --authtoken or set NGROK_AUTHTOKEN.")
			fmt.Println("   Get your token from: https://dashboard.ngrok.com/get-started/your-authtoken")
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		stopSpinner := startInlineSpinner(os.Stdout, fmt.Sprintf("starting tunnel for localhost:%d", port), spinnerFrames, 100*time.Millisecond)
		t, err := tunnel.Start(ctx, port, token)
		stopSpinner()
		if err != nil {
			pterm.Printf("❌ Failed to start tunnel\n")
			pterm.Println(logging.PresentError("", err))
			return err
		}

		pterm.Println()
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint("Tunnel established"))
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Local URL:  ") + pterm.NewStyle(pterm.FgLightBlue).Sprintf("http://localhost:%d", port))
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Public URL: ") + pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(t.PublicURL))
		pterm.Println()
		pterm.Println("Press Ctrl+C to stop the tunnel.")

		<-ctx.Done()
		fmt.Println()
		fmt.Println("Stopping tunnel...")
		if err := t.Stop(); err != nil {
			return err
		}
		fmt.Println("Tunnel stopped.")
		return nil
	},
}

// resolveAuthtoken picks the authtoken from the flag, environment or
// keychain, persisting a newly passed one for future runs.
func resolveAuthtoken() (string, error) {
	if token := strings.TrimSpace(tunnelAuthtoken); token != "" {
		km, err := keychain.GetManager()
		if err == nil {
			if err := km.SaveTunnelAuthtoken(token); err == nil {
				fmt.Println("✅ Authtoken saved to the OS keychain.")
			}
		}
		return token, nil
	}
	if token := strings.TrimSpace(os.Getenv("NGROK_AUTHTOKEN")); token != "" {
		return token, nil
	}
	km, err := keychain.GetManager()
	if err != nil {
		// No secure storage on this platform; the agent may still have its
		// own configured token.
		return "", nil
	}
	token, err := km.LoadTunnelAuthtoken()
	if err != nil {
		return "", nil
	}
	return token, nil
}

func init() {
	rootCmd.AddCommand(tunnelCmd)
	tunnelCmd.Flags().IntVar(&tunnelPort, "port", 0, "Local port to tunnel (defaults to the configured terminal port)")
	tunnelCmd.Flags().StringVar(&tunnelAuthtoken, "authtoken", "", "ngrok authtoken; stored in the OS keychain")
}
