package ui

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=followscope", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier prints run outcomes and mirrors them to the desktop when enabled
type Notifier struct {
	out    io.Writer
	sender NotificationSender
}

// NewNotifier creates a notifier. Desktop delivery is only attempted when
// desktop is true and the platform has a sender.
func NewNotifier(out io.Writer, desktop bool) *Notifier {
	n := &Notifier{out: out}
	if !desktop {
		return n
	}
	switch runtime.GOOS {
	case "linux":
		n.sender = &LinuxNotificationSender{}
	case "darwin":
		n.sender = &MacOSNotificationSender{}
	}
	return n
}

// WithSender replaces the desktop sender
func (n *Notifier) WithSender(s NotificationSender) *Notifier {
	n.sender = s
	return n
}

// ScanComplete reports a finished scan
func (n *Notifier) ScanComplete(profiles int, score int) {
	n.send(Green, "Scan complete", fmt.Sprintf("%d profiles, health %d/100", profiles, score))
}

// UnfollowComplete reports a finished unfollow batch
func (n *Notifier) UnfollowComplete(done, failed int, dryRun bool) {
	msg := fmt.Sprintf("%d unfollowed, %d failed", done, failed)
	if dryRun {
		msg = fmt.Sprintf("dry run, %d selected", done)
	}
	n.send(Green, "Unfollow finished", msg)
}

// Failed reports a run that stopped with an error
func (n *Notifier) Failed(title string, err error) {
	n.send(Red, title, err.Error())
}

func (n *Notifier) send(color func(string) string, title, message string) {
	fmt.Fprintf(n.out, "\n%s: %s\n", color(title), message)
	if n.sender != nil {
		// desktop delivery is best effort
		_ = n.sender.Send(title, message)
	}
}
