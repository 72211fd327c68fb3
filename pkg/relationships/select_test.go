package relationships

import (
	"testing"
	"time"

	"followscope/pkg/scanner"

	"github.com/stretchr/testify/assert"
)

func withActivity(p scanner.AccountProfile, days int) scanner.AccountProfile {
	ts := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	p.LastActivity = &ts
	p.DaysSinceActivity = days
	return p
}

func ids(profiles []scanner.AccountProfile) []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.ID)
	}
	return out
}

func TestSelect(t *testing.T) {
	verified := withActivity(profile("v", scanner.StatusInactive, true, false), 800)
	verified.Verified = true

	set := []scanner.AccountProfile{
		withActivity(profile("recent", scanner.StatusActive, true, false), 3),
		withActivity(profile("old", scanner.StatusInactive, true, false), 400),
		withActivity(profile("older", scanner.StatusInactive, true, false), 900),
		profile("silent", scanner.StatusNoTweets, true, false),
		withActivity(profile("mutual", scanner.StatusInactive, true, true), 500),
		withActivity(profile("follower", scanner.StatusInactive, false, true), 500),
		verified,
	}

	t.Run("not following back, most dormant first", func(t *testing.T) {
		got := Select(set, Filter{NotFollowingBack: true})
		assert.Equal(t, []string{"silent", "older", "v", "old", "recent"}, ids(got))
	})

	t.Run("statuses and age", func(t *testing.T) {
		got := Select(set, Filter{
			Statuses:        []scanner.Status{scanner.StatusInactive, scanner.StatusNoTweets},
			MinDaysInactive: 450,
		})
		assert.Equal(t, []string{"silent", "older", "v", "mutual"}, ids(got))
	})

	t.Run("keep verified, protect and limit", func(t *testing.T) {
		got := Select(set, Filter{
			NotFollowingBack: true,
			KeepVerified:     true,
			Protect:          []string{"hsilent"},
			Limit:            2,
		})
		assert.Equal(t, []string{"older", "old"}, ids(got))
	})

	t.Run("never selects accounts I do not follow", func(t *testing.T) {
		for _, p := range Select(set, Filter{}) {
			assert.True(t, p.IsFollowing)
		}
	})
}
