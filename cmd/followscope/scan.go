package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"followscope/internal/app"
	"followscope/pkg/logger"
	"followscope/pkg/scanner"
	"followscope/pkg/ui"
)

var (
	scanUserID  string
	scanResume  bool
	scanRestart bool
	scanListen  string
	scanCookies struct {
		authToken string
		ct0       string
	}
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Harvest and classify everyone you follow and everyone who follows you",
	Long: `Collect both id lists, fetch a profile for every account, classify it as
active, inactive, suspended or without tweets, and store the result.

A scan of a few thousand accounts takes several minutes: pages are spaced
2-4 seconds apart and a rate limit pauses the scan for 60-90 seconds before
retrying. Interrupt with Ctrl-C; rerun with --resume to skip id collection.`,
	Example: `  # Scan the logged-in account
  followscope scan

  # Resume an interrupted scan
  followscope scan --resume

  # Stream progress to a dashboard on ws://127.0.0.1:8787/ws
  followscope scan --listen 127.0.0.1:8787`,
	Args: cobra.NoArgs,
	Run:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanUserID, "user-id", "", "numeric id of the account to scan (default: from the session)")
	scanCmd.Flags().BoolVar(&scanResume, "resume", false, "reuse ids collected by an interrupted scan")
	scanCmd.Flags().BoolVar(&scanRestart, "restart", false, "discard any saved checkpoint first")
	scanCmd.Flags().StringVar(&scanListen, "listen", "", "serve progress, /metrics and /health on this address")
	scanCmd.Flags().StringVar(&scanCookies.authToken, "auth-token", "", "auth_token cookie (overrides stored credentials)")
	scanCmd.Flags().StringVar(&scanCookies.ct0, "ct0", "", "ct0 cookie (overrides stored credentials)")
}

func runScan(cmd *cobra.Command, args []string) {
	flags := map[string]interface{}{
		"auth-token": scanCookies.authToken,
		"ct0":        scanCookies.ct0,
		"user-id":    scanUserID,
		"listen":     scanListen,
	}
	if scanResume {
		flags["resume"] = true
	}
	cfg := loadConfig(flags)
	log := logger.GetLogger()

	account := resolveAccount(cfg)
	if account == nil {
		ui.PrintError("No X session found")
		ui.PrintInfo("Store your browser cookies with", "followscope auth login")
		os.Exit(1)
	}

	a := openApp(cfg, account)
	defer closeApp(a)

	if err := a.StartRelay(); err != nil {
		fail("Failed to start progress relay", err)
	}

	tok, stop := signalToken()
	defer stop()

	display := ui.NewScanDisplay(os.Stdout, account.Username, verbose)
	notifier := ui.NewNotifier(os.Stdout, notifications)

	res, err := a.Scan(tok, app.ScanOptions{
		UserID:     scanUserID,
		Resume:     scanResume,
		Restart:    scanRestart,
		OnProgress: display.Update,
	})
	if err != nil {
		if errors.Is(err, scanner.ErrScanCancelled) {
			ui.PrintWarning(app.Describe(err))
			os.Exit(130)
		}
		log.WithError(err).Error("scan failed")
		notifier.Failed("Scan failed", err)
		fail("Scan failed", err)
	}

	report, err := a.Report(tok.Context(), res.UserID)
	if err != nil {
		fail("Failed to build report", err)
	}

	if res.FollowingStop != scanner.StopCursorExhausted || (res.FollowerStop != "" && res.FollowerStop != scanner.StopCursorExhausted) {
		ui.PrintWarning("Profile pagination stopped early",
			string(res.FollowingStop)+"/"+string(res.FollowerStop))
	}

	ui.PrintAudit(os.Stdout, report.Counts, report.Health)
	notifier.ScanComplete(len(res.Profiles), report.Health.Score)
}
