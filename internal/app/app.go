// Package app wires configuration, the X client, the SQLite store and the
// progress relay into the scan, audit and unfollow workflows the CLI runs.
package app

import (
	"context"
	"fmt"
	"time"

	"followscope/pkg/auth"
	"followscope/pkg/checkpoint"
	"followscope/pkg/config"
	"followscope/pkg/logger"
	"followscope/pkg/ratelimit"
	"followscope/pkg/relay"
	"followscope/pkg/run"
	"followscope/pkg/scanner"
	"followscope/pkg/store"
	"followscope/pkg/twitter"
	"followscope/pkg/unfollower"
)

// Options overrides collaborators, mainly for tests
type Options struct {
	// Gate paces every wait; nil uses real sleeps
	Gate *ratelimit.Gate
	// Sleep is used by the client between network retries
	Sleep ratelimit.Sleeper
	Now   func() time.Time
}

// App holds one configured followscope instance
type App struct {
	cfg      *config.Config
	logger   logger.Logger
	session  *auth.Session
	client   *twitter.Client
	store    *store.Store
	guard    *run.Guard
	gate     *ratelimit.Gate
	scanner  *scanner.Scanner
	engine   *unfollower.Engine
	hub      *relay.Hub
	relaySrv *relay.Server
	now      func() time.Time
}

// New opens the database and builds the pipeline for account. account may
// be nil for commands that only read stored data.
func New(cfg *config.Config, account *auth.Account, log logger.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.Gate == nil {
		opts.Gate = ratelimit.NewGate()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	db, err := store.Open(cfg.Storage.DatabasePath, log)
	if err != nil {
		return nil, err
	}

	session := auth.NewSession(account)
	clientOpts := twitter.OptionsFromConfig(cfg, log)
	if opts.Sleep != nil {
		clientOpts.Sleep = opts.Sleep
	}
	client := twitter.NewClient(session, clientOpts)

	guard := run.NewGuard()
	hub := relay.NewHub(cfg.Relay.AllowedOrigins, log)

	scanCfg := scanner.ConfigFrom(cfg)
	scanCfg.Hydrate.Classifier.Now = opts.Now
	scanCfg.Gate = opts.Gate
	scanCfg.Guard = guard
	scanCfg.Identity = session
	scanCfg.Logger = log
	scanCfg.Checkpoints = func(userID string) (scanner.CheckpointStore, error) {
		m, err := checkpoint.NewManager(userID, cfg.Scan.CheckpointDir)
		if err != nil {
			return nil, err
		}
		m.SetLogger(log)
		return m, nil
	}

	a := &App{
		cfg:     cfg,
		logger:  log,
		session: session,
		client:  client,
		store:   db,
		guard:   guard,
		gate:    opts.Gate,
		scanner: scanner.New(client, scanCfg),
		hub:     hub,
		now:     opts.Now,
	}
	a.engine = unfollower.NewEngine(client, db, unfollower.Options{
		Gate:    opts.Gate,
		Guard:   guard,
		Results: db,
		Logger:  log,
		Now:     opts.Now,
	})
	return a, nil
}

// StartRelay serves the relay when enabled in config
func (a *App) StartRelay() error {
	if !a.cfg.Relay.Enabled || a.relaySrv != nil {
		return nil
	}
	a.relaySrv = relay.NewServer(a.cfg.Relay, a.hub, a.logger)
	return a.relaySrv.Start()
}

// Hub exposes the progress relay hub
func (a *App) Hub() *relay.Hub {
	return a.hub
}

// Store exposes the database
func (a *App) Store() *store.Store {
	return a.store
}

// Guard exposes the run guard so callers can stop a run
func (a *App) Guard() *run.Guard {
	return a.guard
}

// Close stops the relay and closes the database
func (a *App) Close(ctx context.Context) error {
	if a.relaySrv != nil {
		if err := a.relaySrv.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Warn("relay shutdown failed")
		}
	}
	return a.store.Close()
}

// Owner resolves whose graph a command works on: explicit id first, then
// the session's twid, then the configured user id.
func (a *App) Owner(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if id, err := a.session.CurrentUserID(); err == nil {
		return id, nil
	}
	if a.cfg.X.UserID != "" {
		return a.cfg.X.UserID, nil
	}
	return "", fmt.Errorf("no user id: log in with a twid cookie or pass --user-id")
}
