package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"followscope/pkg/auth"
	"followscope/pkg/ui"
)

var loginCookieHeader string

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage X session credentials",
	Long: `Manage stored X session cookies.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (FOLLOWSCOPE_AUTH_TOKEN and FOLLOWSCOPE_CT0)

Your auth_token cookie is a full login. Never share it.`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store X session cookies securely",
	Long: `Store your X session cookies in the system keychain or an encrypted file.

Either paste the whole Cookie header from a request to x.com with --cookie,
or enter auth_token and ct0 when prompted. The twid cookie in a pasted
header also gives your numeric user id.`,
	Example: `  # Interactive login
  followscope auth login myhandle

  # Paste the Cookie header copied from DevTools
  followscope auth login myhandle --cookie "auth_token=...; ct0=...; twid=u%3D12345"`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Long: `Remove stored X credentials.

If no username is provided, you will be shown a list of stored accounts
to choose from.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored X accounts with masked credential information.`,
	Run:   runList,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which session commands will use",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(statusCmd)

	loginCmd.Flags().StringVar(&loginCookieHeader, "cookie", "", "Cookie header copied from a request to x.com")
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = strings.TrimPrefix(args[0], "@")
	}
	if username == "" {
		fmt.Print("X handle: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read handle", err.Error())
			os.Exit(1)
		}
		username = strings.TrimPrefix(strings.TrimSpace(input), "@")
	}
	if username == "" {
		ui.PrintError("Handle is required")
		os.Exit(1)
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Printf("\nAccount '%s' already exists. Update credentials? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	account := &auth.Account{}
	if loginCookieHeader != "" {
		account = auth.ParseCookieHeader(loginCookieHeader)
	} else {
		auth.ShowCookieExtractionGuide(os.Stdout)

		fmt.Print("\nauth_token cookie value: ")
		if account.AuthToken, err = readPassword(); err != nil {
			ui.PrintError("Failed to read auth_token", err.Error())
			os.Exit(1)
		}
		fmt.Print("ct0 cookie value: ")
		if account.CT0, err = readPassword(); err != nil {
			ui.PrintError("Failed to read ct0", err.Error())
			os.Exit(1)
		}
		fmt.Print("twid cookie value (optional): ")
		twid, _ := reader.ReadString('\n')
		account.UserID = auth.UserIDFromTwid(strings.TrimSpace(twid))
	}

	account.Username = username
	account.LastModified = time.Now()

	fmt.Print("User Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')
	account.UserAgent = strings.TrimSpace(userAgent)

	if err := account.Validate(); err != nil {
		ui.PrintError("Invalid credentials", err.Error())
		auth.ShowQuickExtractGuide(os.Stdout)
		os.Exit(1)
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	sanitized := auth.SanitizeAccount(account)
	ui.PrintSuccess("Account saved: " + username)
	ui.PrintInfo("auth_token", sanitized.AuthToken)
	ui.PrintInfo("ct0", sanitized.CT0)
	if account.UserID != "" {
		ui.PrintInfo("User ID", account.UserID)
	} else {
		ui.PrintWarning("No twid cookie given; pass --user-id to scan")
	}

	fmt.Println("\nNext:")
	fmt.Println("  $ followscope scan")
	fmt.Printf("  $ followscope scan --account %s\n", username)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var username string
	if len(args) > 0 {
		username = strings.TrimPrefix(args[0], "@")
	} else {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			ui.PrintError("No stored accounts found")
			return
		}

		fmt.Println("Select account to remove:")
		for i, account := range accounts {
			fmt.Printf("  %d. %s\n", i+1, account.Username)
		}
		fmt.Printf("  0. Cancel\n\n")

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Choice: ")
		input, _ := reader.ReadString('\n')

		var choice int
		fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)
		if choice == 0 {
			return
		}
		if choice < 0 || choice > len(accounts) {
			ui.PrintError("Invalid choice")
			os.Exit(1)
		}
		username = accounts[choice-1].Username
	}

	if err := manager.Delete(username); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + username)
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'followscope auth login' to add an account")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Username: %s\n", i+1, sanitized.Username)
		if sanitized.UserID != "" {
			fmt.Printf("   User ID: %s\n", sanitized.UserID)
		}
		fmt.Printf("   auth_token: %s\n", sanitized.AuthToken)
		fmt.Printf("   ct0: %s\n", sanitized.CT0)
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	account := resolveAccount(cfg)
	if account == nil {
		ui.PrintWarning("No session configured")
		auth.ShowQuickExtractGuide(os.Stdout)
		return
	}

	sanitized := auth.SanitizeAccount(account)
	if sanitized.Username != "" {
		ui.PrintInfo("Account", sanitized.Username)
	} else {
		ui.PrintInfo("Account", "(from config or environment)")
	}
	if account.UserID != "" {
		ui.PrintInfo("User ID", account.UserID)
	}
	ui.PrintInfo("auth_token", sanitized.AuthToken)
	ui.PrintInfo("ct0", sanitized.CT0)
}

// readPassword reads a secret from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(password)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
