package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"followscope/pkg/scanner"
)

// ScanRecord is a completed scan's id sets
type ScanRecord struct {
	RunID        string
	OwnerID      string
	FollowingIDs []string
	FollowerIDs  []string
	Profiles     int
	CompletedAt  time.Time
}

// RecordScan stores the id sets of a completed scan
func (s *Store) RecordScan(ctx context.Context, res *scanner.Result, completedAt time.Time) error {
	following, err := json.Marshal(nonNil(res.FollowingIDs))
	if err != nil {
		return fmt.Errorf("failed to encode following ids: %w", err)
	}
	followers, err := json.Marshal(nonNil(res.FollowerIDs))
	if err != nil {
		return fmt.Errorf("failed to encode follower ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scan_runs (run_id, owner_id, following_ids, follower_ids, profiles, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		res.RunID, res.UserID, string(following), string(followers), len(res.Profiles), completedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	return nil
}

// LatestScan returns the most recent completed scan for owner, or nil
func (s *Store) LatestScan(ctx context.Context, owner string) (*ScanRecord, error) {
	var (
		rec                  ScanRecord
		following, followers string
		completedAt          int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, owner_id, following_ids, follower_ids, profiles, completed_at
		 FROM scan_runs WHERE owner_id = ? ORDER BY completed_at DESC, rowid DESC LIMIT 1`, owner,
	).Scan(&rec.RunID, &rec.OwnerID, &following, &followers, &rec.Profiles, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest scan: %w", err)
	}

	if err := json.Unmarshal([]byte(following), &rec.FollowingIDs); err != nil {
		return nil, fmt.Errorf("failed to decode following ids: %w", err)
	}
	if err := json.Unmarshal([]byte(followers), &rec.FollowerIDs); err != nil {
		return nil, fmt.Errorf("failed to decode follower ids: %w", err)
	}
	rec.CompletedAt = unixUTC(completedAt)
	return &rec, nil
}

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
