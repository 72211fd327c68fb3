package ui

import (
	"fmt"
	"io"
	"strings"

	"followscope/pkg/relationships"
	"followscope/pkg/scanner"
	"followscope/pkg/unfollower"
)

// PrintAudit writes the audit counts and health score
func PrintAudit(out io.Writer, counts relationships.AuditCounts, health relationships.AccountHealth) {
	fmt.Fprintf(out, "%s\n", Cyan("Account health"))
	fmt.Fprintf(out, "  score                %s\n", scoreColor(health.Score)(fmt.Sprintf("%d/100", health.Score)))
	fmt.Fprintf(out, "  follow ratio         %.2f\n", health.FollowRatio)
	fmt.Fprintf(out, "  inactive             %.1f%%\n", health.InactivePercent)
	fmt.Fprintf(out, "  mutual               %.1f%%\n", health.MutualPercent)
	fmt.Fprintf(out, "  engagement potential %.1f%%\n", health.EngagementPotential)

	fmt.Fprintf(out, "\n%s\n", Cyan("Profiles"))
	rows := []struct {
		label string
		n     int
	}{
		{"total", counts.Total},
		{"active", counts.Active},
		{"inactive", counts.Inactive},
		{"suspended", counts.Suspended},
		{"deactivated", counts.Deactivated},
		{"no tweets", counts.NoTweets},
		{"errored", counts.Errored},
		{"not returned", counts.Placeholder},
		{"mutual", counts.Mutual},
		{"not following back", counts.NotFollowingBack},
		{"not followed back", counts.NotFollowedBack},
	}
	for _, r := range rows {
		fmt.Fprintf(out, "  %-20s %d\n", r.label, r.n)
	}
}

func scoreColor(score int) func(string) string {
	switch {
	case score >= 70:
		return Green
	case score >= 40:
		return Yellow
	default:
		return Red
	}
}

// PrintProfiles writes one line per profile
func PrintProfiles(out io.Writer, profiles []scanner.AccountProfile) {
	for _, p := range profiles {
		activity := "never"
		if p.LastActivity != nil {
			activity = fmt.Sprintf("%dd ago", p.DaysSinceActivity)
		}
		var flags []string
		if p.IsMutual {
			flags = append(flags, "mutual")
		} else if p.IsFollowing {
			flags = append(flags, "not following back")
		}
		if p.Verified {
			flags = append(flags, "verified")
		}
		fmt.Fprintf(out, "  %-20s %-12s %-10s %s\n",
			"@"+p.Handle, string(p.Status), activity, Dim(strings.Join(flags, ", ")))
	}
}

// PrintUnfollowSummary writes the outcome of a batch
func PrintUnfollowSummary(out io.Writer, results []unfollower.Result) {
	var ok, failed int
	for _, r := range results {
		if r.Success {
			ok++
		} else {
			failed++
		}
	}
	dry := len(results) > 0 && results[0].DryRun
	if dry {
		fmt.Fprintf(out, "%s dry run: %d accounts would be unfollowed\n", Yellow("•"), ok)
		return
	}
	fmt.Fprintf(out, "%s unfollowed %d accounts\n", Green("✓"), ok)
	if failed > 0 {
		fmt.Fprintf(out, "%s %d failed\n", Red("✗"), failed)
		for _, r := range results {
			if !r.Success {
				fmt.Fprintf(out, "  @%s: %s\n", r.Handle, r.Error)
			}
		}
	}
}
