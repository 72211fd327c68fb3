package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"followscope/pkg/scanner"
)

const upsertProfile = `
INSERT INTO profiles (
    owner_id, id, handle, display_name, bio, followers_count, following_count,
    post_count, last_activity, days_since_activity, status, is_following,
    is_follower, is_mutual, verified, lists, captured_at, avatar_url
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(owner_id, id) DO UPDATE SET
    handle = excluded.handle,
    display_name = excluded.display_name,
    bio = excluded.bio,
    followers_count = excluded.followers_count,
    following_count = excluded.following_count,
    post_count = excluded.post_count,
    last_activity = excluded.last_activity,
    days_since_activity = excluded.days_since_activity,
    status = excluded.status,
    is_following = excluded.is_following,
    is_follower = excluded.is_follower,
    is_mutual = excluded.is_mutual,
    verified = excluded.verified,
    lists = excluded.lists,
    captured_at = excluded.captured_at,
    avatar_url = excluded.avatar_url`

const selectProfiles = `
SELECT id, handle, display_name, bio, followers_count, following_count,
       post_count, last_activity, days_since_activity, status, is_following,
       is_follower, is_mutual, verified, lists, captured_at, avatar_url
FROM profiles WHERE owner_id = ? ORDER BY rowid`

// UpsertProfiles inserts or replaces profiles scanned for owner
func (s *Store) UpsertProfiles(ctx context.Context, owner string, profiles []scanner.AccountProfile) error {
	if len(profiles) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertProfile)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range profiles {
			lists, err := json.Marshal(nonNil(p.Lists))
			if err != nil {
				return fmt.Errorf("failed to encode lists for %s: %w", p.ID, err)
			}
			var lastActivity sql.NullInt64
			if p.LastActivity != nil {
				lastActivity = sql.NullInt64{Int64: p.LastActivity.Unix(), Valid: true}
			}

			if _, err := stmt.ExecContext(ctx,
				owner, p.ID, p.Handle, p.DisplayName, p.Bio, p.FollowersCount, p.FollowingCount,
				p.PostCount, lastActivity, p.DaysSinceActivity, string(p.Status), boolInt(p.IsFollowing),
				boolInt(p.IsFollower), boolInt(p.IsMutual), boolInt(p.Verified), string(lists),
				p.CapturedAt.Unix(), p.AvatarURL,
			); err != nil {
				return fmt.Errorf("failed to upsert profile %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// BatchSink returns a scanner.BatchFunc that upserts every batch for owner
func (s *Store) BatchSink(owner string) scanner.BatchFunc {
	return func(ctx context.Context, profiles []scanner.AccountProfile) error {
		return s.UpsertProfiles(ctx, owner, profiles)
	}
}

// Profiles returns every stored profile for owner in insertion order
func (s *Store) Profiles(ctx context.Context, owner string) ([]scanner.AccountProfile, error) {
	rows, err := s.db.QueryContext(ctx, selectProfiles, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var out []scanner.AccountProfile
	for rows.Next() {
		var (
			p                                     scanner.AccountProfile
			status, lists                         string
			lastActivity                          sql.NullInt64
			capturedAt                            int64
			following, follower, mutual, verified int
		)
		if err := rows.Scan(
			&p.ID, &p.Handle, &p.DisplayName, &p.Bio, &p.FollowersCount, &p.FollowingCount,
			&p.PostCount, &lastActivity, &p.DaysSinceActivity, &status, &following,
			&follower, &mutual, &verified, &lists, &capturedAt, &p.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}

		p.Status = scanner.Status(status)
		p.IsFollowing = following == 1
		p.IsFollower = follower == 1
		p.IsMutual = mutual == 1
		p.Verified = verified == 1
		p.CapturedAt = time.Unix(capturedAt, 0).UTC()
		if lastActivity.Valid {
			t := time.Unix(lastActivity.Int64, 0).UTC()
			p.LastActivity = &t
		}
		if err := json.Unmarshal([]byte(lists), &p.Lists); err != nil {
			return nil, fmt.Errorf("failed to decode lists for %s: %w", p.ID, err)
		}
		if len(p.Lists) == 0 {
			p.Lists = nil
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProfiles removes every profile stored for owner
func (s *Store) DeleteProfiles(ctx context.Context, owner string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE owner_id = ?`, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to delete profiles: %w", err)
	}
	return res.RowsAffected()
}

// ReconcileProfiles deletes owner's profiles whose id is in neither id set,
// so the stored graph matches the latest complete scan. It returns the
// number of profiles removed.
func (s *Store) ReconcileProfiles(ctx context.Context, owner string, followingIDs, followerIDs []string) (int64, error) {
	keep := make(map[string]struct{}, len(followingIDs)+len(followerIDs))
	for _, id := range followingIDs {
		keep[id] = struct{}{}
	}
	for _, id := range followerIDs {
		keep[id] = struct{}{}
	}

	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM profiles WHERE owner_id = ?`, owner)
		if err != nil {
			return fmt.Errorf("failed to query profile ids: %w", err)
		}
		var stale []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan profile id: %w", err)
			}
			if _, ok := keep[id]; !ok {
				stale = append(stale, id)
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `DELETE FROM profiles WHERE owner_id = ? AND id = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare delete: %w", err)
		}
		defer stmt.Close()

		for _, id := range stale {
			if _, err := stmt.ExecContext(ctx, owner, id); err != nil {
				return fmt.Errorf("failed to delete profile %s: %w", id, err)
			}
		}
		removed = int64(len(stale))
		return nil
	})
	return removed, err
}

func nonNil(lists []string) []string {
	if lists == nil {
		return []string{}
	}
	return lists
}
