package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.skov.dev/proxyward/internal/core"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stderr, "proxyward %s\n", core.FormatVersion(core.Version))
		},
	}
}
