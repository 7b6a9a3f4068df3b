package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"go.skov.dev/proxyward/internal/core"
	"go.skov.dev/proxyward/internal/db"
)

func NewHistoryCommand() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent bootstrap events",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			events, err := db.Open(core.GetDatabasePath())
			if err != nil {
				slog.Error(fmt.Sprintf("Failed to open event database: %v", err))
				os.Exit(1)
			}
			defer events.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			recent, err := events.GetRecentBootstrapEvents(limit)
			if err != nil {
				slog.Error(fmt.Sprintf("Failed to read events: %v", err))
				os.Exit(1)
			}

			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "text":
				if len(recent) == 0 {
					fmt.Println("No bootstrap events recorded.")
					return
				}
				for _, event := range recent {
					fmt.Printf("%s%s%s  %-22s %s\n",
						colorGray, event.Timestamp.Format(time.DateTime), colorReset,
						event.EventType, event.Details)
				}
			case "json":
				jsonBytes, _ := json.Marshal(recent)
				fmt.Println(string(jsonBytes))
			default:
				slog.Error("unknown format")
				os.Exit(1)
			}
		},
	}
	historyCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	historyCmd.Flags().StringP("format", "F", "text", "Format to use (text/json)")

	return historyCmd
}
