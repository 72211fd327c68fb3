package app

import (
	"context"

	"followscope/pkg/relationships"
	"followscope/pkg/run"
	"followscope/pkg/scanner"
	"followscope/pkg/unfollower"
)

// UnfollowOptions for one batch
type UnfollowOptions struct {
	UserID     string
	Filter     relationships.Filter
	Config     unfollower.Config
	OnProgress unfollower.ProgressFunc
}

// Unfollow selects candidates and runs them through the mutation engine.
// Accounts unfollowed for real are marked as no longer followed in the store.
func (a *App) Unfollow(tok *run.Token, opts UnfollowOptions) ([]unfollower.Result, error) {
	owner, err := a.Owner(opts.UserID)
	if err != nil {
		return nil, err
	}
	candidates, err := a.Candidates(tok.Context(), owner, opts.Filter)
	if err != nil {
		return nil, err
	}

	relayProgress := a.hub.UnfollowProgress()
	onProgress := func(index, total int, handle string) {
		relayProgress(index, total, handle)
		if opts.OnProgress != nil {
			opts.OnProgress(index, total, handle)
		}
	}

	results, runErr := a.engine.BulkUnfollow(tok, unfollower.FromProfiles(candidates), opts.Config, onProgress)

	if err := a.markUnfollowed(context.WithoutCancel(tok.Context()), owner, candidates, results); err != nil {
		a.logger.WithError(err).Warn("failed to update unfollowed profiles")
	}
	return results, runErr
}

func (a *App) markUnfollowed(ctx context.Context, owner string, candidates []scanner.AccountProfile, results []unfollower.Result) error {
	done := make(map[string]bool, len(results))
	for _, r := range results {
		if r.Success && !r.DryRun {
			done[r.UserID] = true
		}
	}
	if len(done) == 0 {
		return nil
	}

	var changed []scanner.AccountProfile
	for _, p := range candidates {
		if done[p.ID] {
			p.SetRelationship(false, p.IsFollower)
			changed = append(changed, p)
		}
	}
	return a.store.UpsertProfiles(ctx, owner, changed)
}

// Quota reports today's unfollow count and what remains under the
// configured limit
func (a *App) Quota(ctx context.Context) (used, remaining int, err error) {
	return a.engine.Remaining(ctx, a.cfg.Unfollow.DailyLimit)
}
