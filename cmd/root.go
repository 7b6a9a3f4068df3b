package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go.skov.dev/proxyward/internal/core"
)

func NewRootCommand() *cobra.Command {
	var configPath string
	var verbose int

	homeDir, _ := os.UserHomeDir()

	rootCmd := &cobra.Command{
		Use:   "proxyward",
		Short: "Proxyward - Model Proxy Sidecar Supervisor",
		Long: `Proxyward - Model Proxy Sidecar Supervisor

Bootstraps a local sidecar that proxies API traffic to an alternate model
provider and hands the resulting endpoint to the rest of the application.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)

			// Initialize config and bind global flags to the config
			messages, err := core.InitializeConfig(cmd)
			for _, message := range messages {
				fmt.Println(message)
			}
			return err
		},
	}
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config-path", fmt.Sprintf("%s/%s", homeDir, core.BaseDirName),
		"config path",
	)
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "more output, repeat for even more")

	rootCmd.AddCommand(
		NewUpCommand(),
		NewStatusCommand(),
		NewAccountsCommand(),
		NewHistoryCommand(),
		NewVersionCommand(),
	)

	return rootCmd
}

// setupLogging installs the tint handler on stderr. Color is dropped when
// stderr is not a terminal so piped output stays clean.
func setupLogging(verbose int) {
	level := slog.LevelInfo
	if verbose > 0 {
		level = slog.LevelDebug
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
	})
	slog.SetDefault(slog.New(handler))
}
