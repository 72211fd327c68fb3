package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"followscope/pkg/scanner"
)

const (
	barWidth  = 20
	lineWidth = 100
)

// ScanDisplay renders scanner progress as a single rewritten line
type ScanDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	handle    string
	startTime time.Time
	phase     scanner.Phase
	verbose   bool
	now       func() time.Time
}

// NewScanDisplay creates a display for a scan of handle
func NewScanDisplay(out io.Writer, handle string, verbose bool) *ScanDisplay {
	return &ScanDisplay{
		out:       out,
		handle:    handle,
		startTime: time.Now(),
		verbose:   verbose,
		now:       time.Now,
	}
}

// Update renders p. It satisfies scanner.ProgressFunc.
func (d *ScanDisplay) Update(p scanner.Progress) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p.Phase != d.phase && d.phase != "" {
		fmt.Fprintln(d.out)
	}
	d.phase = p.Phase

	switch p.Phase {
	case scanner.PhaseCollectingIDs:
		d.printLine(fmt.Sprintf("%s collecting ids • %d collected • page %d",
			Magenta("→"), p.Collected, p.Page))
	case scanner.PhaseScanningUsers:
		line := fmt.Sprintf("%s [%s] %d/%d • %.1f%% • %s",
			Cyan(d.label()), bar(p.Percent()), p.Scanned, p.Total, p.Percent(), d.eta(p))
		d.printLine(line)
	case scanner.PhaseComputingRelationships:
		d.printLine(fmt.Sprintf("%s computing relationships", Magenta("→")))
	case scanner.PhaseComplete:
		d.printLine(fmt.Sprintf("%s scan complete • %d profiles • %s",
			Green("✓"), p.Scanned, formatDuration(d.now().Sub(d.startTime))))
		fmt.Fprintln(d.out)
	case scanner.PhaseError:
		msg := p.Message
		if p.Err != nil {
			msg = p.Err.Error()
		}
		fmt.Fprintf(d.out, "\n%s scan failed: %s\n", Red("✗"), msg)
	}

	if d.verbose && p.Message != "" && p.Phase != scanner.PhaseError {
		fmt.Fprintf(d.out, "\n  %s %s", Dim("•"), Dim(p.Message))
	}
}

func (d *ScanDisplay) label() string {
	if d.handle == "" {
		return "scan"
	}
	return "@" + d.handle
}

func (d *ScanDisplay) eta(p scanner.Progress) string {
	if p.Scanned == 0 || p.Total <= p.Scanned {
		return "calculating..."
	}
	elapsed := d.now().Sub(d.startTime)
	rate := float64(p.Scanned) / elapsed.Seconds()
	if rate <= 0 {
		return "calculating..."
	}
	remaining := time.Duration(float64(p.Total-p.Scanned)/rate) * time.Second
	return formatDuration(remaining) + " left"
}

func (d *ScanDisplay) printLine(line string) {
	fmt.Fprintf(d.out, "\r%s\r%s", strings.Repeat(" ", lineWidth), line)
}

// UnfollowDisplay renders unfollow progress
type UnfollowDisplay struct {
	mu     sync.Mutex
	out    io.Writer
	dryRun bool
}

// NewUnfollowDisplay creates a display for one unfollow batch
func NewUnfollowDisplay(out io.Writer, dryRun bool) *UnfollowDisplay {
	return &UnfollowDisplay{out: out, dryRun: dryRun}
}

// Update renders one step. It satisfies unfollower.ProgressFunc.
func (d *UnfollowDisplay) Update(index, total int, handle string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pct := 0.0
	if total > 0 {
		pct = float64(index) / float64(total) * 100
	}
	verb := "unfollowing"
	if d.dryRun {
		verb = "would unfollow"
	}
	if handle == "done" && index == total {
		fmt.Fprintf(d.out, "\r%s\r%s [%s] %d/%d done\n", strings.Repeat(" ", lineWidth), Green("✓"), bar(pct), index, total)
		return
	}
	fmt.Fprintf(d.out, "\r%s\r%s [%s] %d/%d • %s @%s",
		strings.Repeat(" ", lineWidth), Magenta("→"), bar(pct), index, total, verb, handle)
}

// RateLimitWarning shows a rate limit wait
func RateLimitWarning(out io.Writer, wait time.Duration) {
	fmt.Fprintf(out, "\n%s Rate limited. Waiting %s...\n", Yellow("⚠"), formatDuration(wait))
}

func bar(pct float64) string {
	filled := int(pct / 100 * barWidth)
	filled = max(0, min(filled, barWidth))
	return strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
