package app

import (
	"context"

	"followscope/pkg/checkpoint"
	"followscope/pkg/run"
	"followscope/pkg/scanner"
)

// ScanOptions for one scan
type ScanOptions struct {
	UserID string
	Resume bool
	// Restart discards any checkpoint before scanning
	Restart    bool
	OnProgress scanner.ProgressFunc
}

// Scan runs a full scan, upserting every batch into the store and
// broadcasting progress to relay clients
func (a *App) Scan(tok *run.Token, opts ScanOptions) (*scanner.Result, error) {
	owner, err := a.Owner(opts.UserID)
	if err != nil {
		return nil, err
	}

	if opts.Restart {
		if m, err := checkpoint.NewManager(owner, a.cfg.Scan.CheckpointDir); err == nil {
			if err := m.Delete(); err != nil {
				a.logger.WithError(err).Warn("failed to discard checkpoint")
			}
		}
	}

	relayProgress := a.hub.ScanProgress()
	onProgress := func(p scanner.Progress) {
		relayProgress(p)
		if opts.OnProgress != nil {
			opts.OnProgress(p)
		}
	}

	res, err := a.scanner.FullScan(tok, scanner.Options{
		UserID:     owner,
		Resume:     opts.Resume || a.cfg.Scan.Resume,
		OnBatch:    a.store.BatchSink(owner),
		OnProgress: onProgress,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.WithoutCancel(tok.Context())
	removed, err := a.store.ReconcileProfiles(ctx, owner, res.FollowingIDs, res.FollowerIDs)
	if err != nil {
		return res, err
	}
	if removed > 0 {
		a.logger.InfoWithFields("removed accounts no longer in the graph", map[string]interface{}{
			"owner":   owner,
			"removed": removed,
		})
	}

	if err := a.store.RecordScan(ctx, res, a.now()); err != nil {
		return res, err
	}
	return res, nil
}
