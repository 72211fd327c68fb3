package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"followscope/internal/app"
	"followscope/pkg/auth"
	"followscope/pkg/config"
	"followscope/pkg/logger"
	"followscope/pkg/run"
	"followscope/pkg/ui"
)

// fail prints msg with an actionable description of err and exits
func fail(msg string, err error) {
	if err != nil {
		ui.PrintError(msg, app.Describe(err))
	} else {
		ui.PrintError(msg)
	}
	os.Exit(1)
}

// loadConfig loads configuration and initializes the global logger
func loadConfig(flags map[string]interface{}) *config.Config {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		fail("Failed to load configuration", err)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		fail("Failed to initialize logging", err)
	}
	return cfg
}

// resolveAccount picks the session: --account, then cookies from config or
// environment, then the most recent stored account. It returns nil when no
// session exists anywhere.
func resolveAccount(cfg *config.Config) *auth.Account {
	log := logger.GetLogger()
	fromConfig := &auth.Account{
		UserID:    cfg.X.UserID,
		AuthToken: cfg.X.AuthToken,
		CT0:       cfg.X.CT0,
	}

	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("credential manager unavailable")
	}

	var account *auth.Account
	switch {
	case accountName != "":
		if manager == nil {
			fail("Account not found", err)
		}
		account, err = manager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Stored accounts", "run 'followscope auth list'")
			os.Exit(1)
		}
	case cfg.X.AuthToken != "" && cfg.X.CT0 != "":
		log.Info("using session from configuration")
		return withUserAgent(fromConfig, cfg)
	case manager != nil:
		account, err = manager.RetrieveDefault()
		if err != nil && !errors.Is(err, auth.ErrCredentialsNotFound) {
			log.WithError(err).Warn("failed to read stored credentials")
		}
	}

	if account == nil {
		return nil
	}
	log.WithField("account", account.Username).Info("using stored credentials")
	return withUserAgent(auth.Merge(account, &auth.Account{UserID: cfg.X.UserID}), cfg)
}

func withUserAgent(account *auth.Account, cfg *config.Config) *auth.Account {
	if account.UserAgent == "" {
		account.UserAgent = cfg.X.UserAgent
	}
	return account
}

// openApp builds the application for cfg
func openApp(cfg *config.Config, account *auth.Account) *app.App {
	a, err := app.New(cfg, account, logger.GetLogger(), app.Options{})
	if err != nil {
		fail("Failed to open database", err)
	}
	return a
}

// signalToken returns a token cancelled by SIGINT or SIGTERM
func signalToken() (*run.Token, func()) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return run.NewToken(ctx), stop
}

func closeApp(a *app.App) {
	if err := a.Close(context.Background()); err != nil {
		logger.GetLogger().WithError(err).Warn("failed to close database")
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
