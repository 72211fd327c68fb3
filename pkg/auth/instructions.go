package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide writes step-by-step instructions for copying the
// session cookies out of a logged-in browser.
func ShowCookieExtractionGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"X SESSION COOKIE GUIDE",
		rule,
		"",
		"followscope talks to x.com as your logged-in browser does, so it needs",
		"three cookies from a browser session.",
		"",
		"1. Open https://x.com and log in.",
		"2. Open Developer Tools (F12, or Cmd+Option+I on macOS).",
		"3. Application (Chrome) or Storage (Firefox) -> Cookies -> https://x.com",
		"4. Copy these values:",
		"",
		"   auth_token   40 hex characters",
		"   ct0          long hex string, also sent as x-csrf-token",
		"   twid         u%3D<your numeric id>",
		"",
		"Alternatively copy the whole Cookie request header from any x.com request",
		"in the Network tab and paste it when asked; the three values are",
		"extracted automatically.",
		"",
		"These cookies grant full access to the account. They are stored in the",
		"system keychain or an encrypted file, never in plain text.",
		rule,
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// ShowQuickExtractGuide writes a one-line reminder
func ShowQuickExtractGuide(w io.Writer) {
	fmt.Fprintln(w, "F12 -> Application -> Cookies -> x.com: need auth_token, ct0 and twid (or paste the full Cookie header). Type 'help' for details.")
}
