package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"followscope/pkg/unfollower"
)

// Count returns the unfollows recorded for date (YYYY-MM-DD)
func (s *Store) Count(ctx context.Context, date string) (int, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT count FROM unfollow_quota WHERE date = ?`, date).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quota for %s: %w", date, err)
	}
	return unfollower.ParseCount(v)
}

// Set stores n for date as a decimal string
func (s *Store) Set(ctx context.Context, date string, n int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO unfollow_quota (date, count) VALUES (?, ?)
		 ON CONFLICT(date) DO UPDATE SET count = excluded.count`,
		date, unfollower.FormatCount(n))
	if err != nil {
		return fmt.Errorf("failed to write quota for %s: %w", date, err)
	}
	return nil
}

// LogUnfollow appends one result to the unfollow log
func (s *Store) LogUnfollow(ctx context.Context, runID string, r unfollower.Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO unfollow_log (run_id, user_id, handle, success, dry_run, error, at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, r.UserID, r.Handle, boolInt(r.Success), boolInt(r.DryRun), r.Error, r.At.Unix())
	if err != nil {
		return fmt.Errorf("failed to log unfollow: %w", err)
	}
	return nil
}

// UnfollowLog returns up to limit most recent results, newest first
func (s *Store) UnfollowLog(ctx context.Context, limit int) ([]unfollower.Result, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, handle, success, dry_run, error, at FROM unfollow_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unfollow log: %w", err)
	}
	defer rows.Close()

	var out []unfollower.Result
	for rows.Next() {
		var (
			r               unfollower.Result
			success, dryRun int
			at              int64
		)
		if err := rows.Scan(&r.UserID, &r.Handle, &success, &dryRun, &r.Error, &at); err != nil {
			return nil, fmt.Errorf("failed to scan unfollow log: %w", err)
		}
		r.Success = success == 1
		r.DryRun = dryRun == 1
		r.At = unixUTC(at)
		out = append(out, r)
	}
	return out, rows.Err()
}
