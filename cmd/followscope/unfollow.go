package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"followscope/internal/app"
	"followscope/pkg/relationships"
	"followscope/pkg/scanner"
	"followscope/pkg/ui"
	"followscope/pkg/unfollower"
)

var (
	unfollowLive             bool
	unfollowYes              bool
	unfollowLimit            int
	unfollowDailyLimit       int
	unfollowUserID           string
	unfollowNotFollowingBack bool
	unfollowStatuses         []string
	unfollowMinDays          int
	unfollowKeepVerified     bool
	unfollowProtect          []string
)

// unfollowCmd represents the unfollow command
var unfollowCmd = &cobra.Command{
	Use:   "unfollow",
	Short: "Unfollow dormant accounts from the last scan",
	Long: `Select accounts you follow from the last scan and unfollow them, most dormant
first. Runs are dry runs unless --live is given: a dry run walks the same
list and reports what would happen without contacting X.

Live runs wait 30-60 seconds between unfollows, pause 5 minutes on a rate
limit, and stop at the daily limit (default 200, at most 400).`,
	Example: `  # Preview unfollowing inactive accounts that don't follow back
  followscope unfollow --not-following-back --status inactive,suspended,no_tweets

  # Unfollow for real, at most 50 accounts
  followscope unfollow --not-following-back --live --limit 50

  # Keep some accounts no matter what
  followscope unfollow --status inactive --protect nasa,jack --live`,
	Args: cobra.NoArgs,
	Run:  runUnfollow,
}

func init() {
	rootCmd.AddCommand(unfollowCmd)

	unfollowCmd.Flags().BoolVar(&unfollowLive, "live", false, "really unfollow (default is a dry run)")
	unfollowCmd.Flags().BoolVarP(&unfollowYes, "yes", "y", false, "skip the confirmation prompt")
	unfollowCmd.Flags().IntVarP(&unfollowLimit, "limit", "l", 0, "maximum number of candidates (0 = no limit beyond the daily one)")
	unfollowCmd.Flags().IntVar(&unfollowDailyLimit, "daily-limit", 0, "unfollows allowed per day (max 400)")
	unfollowCmd.Flags().StringVar(&unfollowUserID, "user-id", "", "numeric id of the scanned account")
	unfollowCmd.Flags().BoolVar(&unfollowNotFollowingBack, "not-following-back", false, "only accounts that don't follow you")
	unfollowCmd.Flags().StringSliceVar(&unfollowStatuses, "status", nil, "only these statuses: active, inactive, suspended, no_tweets")
	unfollowCmd.Flags().IntVar(&unfollowMinDays, "min-days-inactive", 0, "only accounts whose last post is at least this many days old")
	unfollowCmd.Flags().BoolVar(&unfollowKeepVerified, "keep-verified", false, "never unfollow verified accounts")
	unfollowCmd.Flags().StringSliceVar(&unfollowProtect, "protect", nil, "ids or handles never to unfollow")
}

func runUnfollow(cmd *cobra.Command, args []string) {
	flags := map[string]interface{}{
		"user-id":     unfollowUserID,
		"daily-limit": unfollowDailyLimit,
		"dry-run":     !unfollowLive,
	}
	cfg := loadConfig(flags)

	account := resolveAccount(cfg)
	if account == nil && unfollowLive {
		ui.PrintError("No X session found")
		ui.PrintInfo("Store your browser cookies with", "followscope auth login")
		os.Exit(1)
	}

	a := openApp(cfg, account)
	defer closeApp(a)

	filter, err := buildFilter()
	if err != nil {
		fail("Invalid filter", err)
	}

	tok, stop := signalToken()
	defer stop()

	owner, err := a.Owner(unfollowUserID)
	if err != nil {
		fail("Unknown account", err)
	}
	candidates, err := a.Candidates(tok.Context(), owner, filter)
	if err != nil {
		fail("Failed to select candidates", err)
	}
	if len(candidates) == 0 {
		ui.PrintSuccess("Nothing to unfollow")
		return
	}

	used, remaining, err := a.Quota(tok.Context())
	if err != nil {
		fail("Failed to read daily quota", err)
	}

	ucfg := unfollower.ConfigFrom(cfg.Unfollow)
	ui.PrintInfo("Candidates", fmt.Sprintf("%d", len(candidates)))
	ui.PrintInfo("Daily quota", fmt.Sprintf("%d used, %d left", used, remaining))
	if ucfg.Live {
		n := plannedUnfollows(len(candidates), remaining)
		if n == 0 {
			ui.PrintWarning("Daily limit reached; try again tomorrow")
			return
		}
		eta := time.Duration(n) * (ucfg.DelayMin + ucfg.DelayMax) / 2
		ui.PrintInfo("Estimated time", eta.Round(time.Minute).String())
		if !unfollowYes && !confirm(fmt.Sprintf("Unfollow %s for real?", plural(n, "account"))) {
			ui.PrintWarning("Aborted")
			return
		}
	} else {
		ui.PrintWarning("Dry run: nothing will be unfollowed. Pass --live to act.")
	}

	display := ui.NewUnfollowDisplay(os.Stdout, ucfg.DryRun())
	notifier := ui.NewNotifier(os.Stdout, notifications)

	results, err := a.Unfollow(tok, app.UnfollowOptions{
		UserID:     owner,
		Filter:     filter,
		Config:     ucfg,
		OnProgress: display.Update,
	})

	ui.PrintUnfollowSummary(os.Stdout, results)
	done, failed := 0, 0
	for _, r := range results {
		if r.Success {
			done++
		} else {
			failed++
		}
	}
	if err != nil {
		notifier.Failed("Unfollow stopped", err)
		fail("Unfollow stopped", err)
	}
	notifier.UnfollowComplete(done, failed, ucfg.DryRun())
}

// plannedUnfollows is how many candidates a live run can act on today
func plannedUnfollows(candidates, remaining int) int {
	return max(0, min(candidates, remaining))
}

func buildFilter() (relationships.Filter, error) {
	f := relationships.Filter{
		NotFollowingBack: unfollowNotFollowingBack,
		MinDaysInactive:  unfollowMinDays,
		KeepVerified:     unfollowKeepVerified,
		Limit:            unfollowLimit,
	}
	for _, p := range unfollowProtect {
		f.Protect = append(f.Protect, strings.TrimPrefix(strings.TrimSpace(p), "@"))
	}
	for _, s := range unfollowStatuses {
		status := scanner.Status(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
		switch status {
		case scanner.StatusActive, scanner.StatusInactive, scanner.StatusSuspended, scanner.StatusNoTweets:
			f.Statuses = append(f.Statuses, status)
		default:
			return f, fmt.Errorf("unknown status %q", s)
		}
	}
	if !f.NotFollowingBack && len(f.Statuses) == 0 && f.MinDaysInactive == 0 {
		return f, fmt.Errorf("pick at least one of --not-following-back, --status or --min-days-inactive")
	}
	return f, nil
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
