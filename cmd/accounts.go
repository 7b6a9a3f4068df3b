package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go.skov.dev/proxyward/internal/core"
	"go.skov.dev/proxyward/internal/sidecar"
)

func NewAccountsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "Check whether the sidecar has usable credentials",
		Long: `Check whether the sidecar has usable credentials.

Runs the same precondition check that 'proxyward up' performs before starting
the sidecar, and reports the result without starting anything.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			executable := core.GetSidecarExecutable()
			exePath, err := sidecar.Locate(executable)
			if err != nil {
				slog.Error(fmt.Sprintf("%v", err))
				os.Exit(1)
			}

			status := sidecar.CheckAccounts(exePath)
			switch status.State {
			case sidecar.AccountsConfigured:
				fmt.Printf("%s✓%s Sidecar accounts configured\n", colorGreen, colorReset)
				if status.Raw != "" {
					fmt.Println(status.Raw)
				}
			case sidecar.AccountsUnconfigured:
				fmt.Printf("%s✗%s No accounts configured\n", colorRed, colorReset)
				fmt.Println()
				fmt.Println("Set up the sidecar first by running:")
				fmt.Printf("  %s%s%s\n", colorCyan, sidecar.RemediationCommand(executable), colorReset)
				os.Exit(1)
			case sidecar.AccountsInconclusive:
				fmt.Printf("%s!%s Account check inconclusive; the sidecar may still work\n", colorYellow, colorReset)
				if status.Raw != "" {
					fmt.Println(status.Raw)
				}
			}
		},
	}
}
