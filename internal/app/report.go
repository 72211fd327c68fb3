package app

import (
	"context"

	"followscope/pkg/relationships"
	"followscope/pkg/scanner"
	"followscope/pkg/store"
)

// Report is the audit of the stored profile set
type Report struct {
	Owner    string
	Counts   relationships.AuditCounts
	Health   relationships.AccountHealth
	LastScan *store.ScanRecord
	Profiles []scanner.AccountProfile
}

// Report audits what the last scans stored for owner
func (a *App) Report(ctx context.Context, owner string) (*Report, error) {
	profiles, err := a.store.Profiles(ctx, owner)
	if err != nil {
		return nil, err
	}
	last, err := a.store.LatestScan(ctx, owner)
	if err != nil {
		return nil, err
	}

	var followerIDs []string
	followerCount := 0
	if last != nil {
		followerIDs = last.FollowerIDs
		followerCount = len(last.FollowerIDs)
	} else {
		for i := range profiles {
			if profiles[i].IsFollower {
				followerCount++
			}
		}
	}

	return &Report{
		Owner:    owner,
		Counts:   relationships.Audit(profiles, followerIDs),
		Health:   relationships.Health(profiles, followerCount, followerIDs),
		LastScan: last,
		Profiles: profiles,
	}, nil
}

// Candidates selects unfollow candidates from the stored profiles
func (a *App) Candidates(ctx context.Context, owner string, f relationships.Filter) ([]scanner.AccountProfile, error) {
	profiles, err := a.store.Profiles(ctx, owner)
	if err != nil {
		return nil, err
	}
	return relationships.Select(profiles, f), nil
}
