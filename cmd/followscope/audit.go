package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"followscope/pkg/relationships"
	"followscope/pkg/scanner"
	"followscope/pkg/ui"
)

var (
	auditUserID string
	auditJSON   bool
	auditList   string
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show account health and relationship counts from the last scan",
	Long: `Compute audit counts and the 0-100 health score from the profiles stored
by the last scan. No requests are sent to X.`,
	Example: `  # Summary
  followscope audit

  # List accounts that don't follow back
  followscope audit --list not-following-back

  # Machine-readable output
  followscope audit --json`,
	Args: cobra.NoArgs,
	Run:  runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditUserID, "user-id", "", "numeric id of the scanned account")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print the report as JSON")
	auditCmd.Flags().StringVar(&auditList, "list", "", "list accounts: inactive, suspended, no-tweets, not-following-back or mutual")
}

func runAudit(cmd *cobra.Command, args []string) {
	cfg := loadConfig(map[string]interface{}{"user-id": auditUserID})
	a := openApp(cfg, resolveAccount(cfg))
	defer closeApp(a)

	owner, err := a.Owner(auditUserID)
	if err != nil {
		fail("Unknown account", err)
	}

	report, err := a.Report(cmd.Context(), owner)
	if err != nil {
		fail("Failed to build report", err)
	}
	if report.Counts.Total == 0 {
		ui.PrintWarning("No scanned profiles yet; run 'followscope scan' first")
		return
	}

	if auditJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]interface{}{
			"user_id": report.Owner,
			"counts":  report.Counts,
			"health":  report.Health,
		}); err != nil {
			fail("Failed to encode report", err)
		}
		return
	}

	ui.PrintAudit(os.Stdout, report.Counts, report.Health)
	if report.LastScan != nil {
		ui.PrintInfo("\nLast scan", report.LastScan.CompletedAt.Local().Format("2006-01-02 15:04"))
	}

	if auditList != "" {
		profiles := listProfiles(report.Profiles, auditList)
		ui.PrintHighlight("\n" + plural(len(profiles), "account") + " (" + auditList + ")")
		ui.PrintProfiles(os.Stdout, profiles)
	}
}

func listProfiles(profiles []scanner.AccountProfile, kind string) []scanner.AccountProfile {
	switch kind {
	case "not-following-back":
		return relationships.Select(profiles, relationships.Filter{NotFollowingBack: true})
	case "mutual":
		var out []scanner.AccountProfile
		for _, p := range profiles {
			if p.IsMutual {
				out = append(out, p)
			}
		}
		return out
	case "inactive", "suspended", "no-tweets", "no_tweets":
		status := scanner.Status(kind)
		if kind == "no-tweets" {
			status = scanner.StatusNoTweets
		}
		return relationships.Select(profiles, relationships.Filter{Statuses: []scanner.Status{status}})
	}
	ui.PrintWarning("Unknown list", kind)
	return nil
}
