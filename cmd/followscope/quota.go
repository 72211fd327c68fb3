package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"followscope/pkg/ui"
)

var quotaHistory int

// quotaCmd represents the quota command
var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show today's unfollow quota and recent unfollows",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(nil)
		a := openApp(cfg, nil)
		defer closeApp(a)

		used, remaining, err := a.Quota(cmd.Context())
		if err != nil {
			fail("Failed to read daily quota", err)
		}
		ui.PrintInfo("Used today", fmt.Sprintf("%d", used))
		ui.PrintInfo("Remaining", fmt.Sprintf("%d of %d", remaining, cfg.Unfollow.DailyLimit))

		if quotaHistory <= 0 {
			return
		}
		results, err := a.Store().UnfollowLog(cmd.Context(), quotaHistory)
		if err != nil {
			fail("Failed to read unfollow log", err)
		}
		if len(results) == 0 {
			return
		}
		ui.PrintHighlight("\nRecent unfollows")
		ui.PrintUnfollowSummary(os.Stdout, results)
	},
}

func init() {
	rootCmd.AddCommand(quotaCmd)
	quotaCmd.Flags().IntVar(&quotaHistory, "history", 20, "number of recent unfollows to list")
}
