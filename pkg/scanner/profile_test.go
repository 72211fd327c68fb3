package scanner

import (
	"strings"
	"testing"
	"time"

	"followscope/pkg/twitter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := testClassifier()
	postedAgo := func(d time.Duration) *twitter.RawStatus {
		return &twitter.RawStatus{CreatedAt: fixedNow.Add(-d).Format(time.RubyDate)}
	}

	tests := []struct {
		name string
		user twitter.RawUser
		want Status
	}{
		{"recent post", twitter.RawUser{IDStr: "1", Status: postedAgo(48 * time.Hour)}, StatusActive},
		{"exactly 365 days", twitter.RawUser{IDStr: "2", Status: postedAgo(365 * 24 * time.Hour)}, StatusActive},
		{"366 days", twitter.RawUser{IDStr: "3", Status: postedAgo(366 * 24 * time.Hour)}, StatusInactive},
		{"no status, zero posts", twitter.RawUser{IDStr: "4"}, StatusNoTweets},
		{"no status, some posts", twitter.RawUser{IDStr: "5", StatusesCount: 40}, StatusNoTweets},
		{"suspended wins", twitter.RawUser{IDStr: "6", Suspended: true, Status: postedAgo(time.Hour)}, StatusSuspended},
		{"suspended without posts", twitter.RawUser{IDStr: "7", Suspended: true}, StatusSuspended},
		{"bad timestamp", twitter.RawUser{IDStr: "8", Status: &twitter.RawStatus{CreatedAt: "last tuesday"}}, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := c.Classify(tt.user)
			assert.Equal(t, tt.want, p.Status)
			assert.True(t, p.Status.Valid())
		})
	}
}

func TestClassifyFields(t *testing.T) {
	u := activeUser("42")
	u.Description = strings.Repeat("é", 250)
	u.FollowersCount = 5
	u.FriendsCount = 6
	u.IsBlueVerified = true
	u.ProfileImageURLHTTPS = "https://pbs.twimg.com/a.jpg"

	p := testClassifier().Classify(u)
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "user42", p.Handle)
	assert.Equal(t, "User 42", p.DisplayName)
	assert.Equal(t, 200, len([]rune(p.Bio)))
	assert.Equal(t, 5, p.FollowersCount)
	assert.Equal(t, 6, p.FollowingCount)
	assert.Equal(t, 10, p.PostCount)
	assert.True(t, p.Verified)
	assert.Equal(t, "https://pbs.twimg.com/a.jpg", p.AvatarURL)
	assert.Equal(t, fixedNow, p.CapturedAt)
	require.NotNil(t, p.LastActivity)
	assert.Equal(t, 1, p.DaysSinceActivity)
	assert.False(t, p.IsFollowing || p.IsFollower || p.IsMutual)
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder("999", fixedNow)
	assert.Equal(t, "999", p.ID)
	assert.Equal(t, NotReturnedHandle, p.Handle)
	assert.Equal(t, StatusNoTweets, p.Status)
	assert.Zero(t, p.FollowersCount)
	assert.Zero(t, p.FollowingCount)
	assert.Zero(t, p.PostCount)
	assert.Nil(t, p.LastActivity)
	assert.True(t, p.IsPlaceholder())
}

func TestSetRelationship(t *testing.T) {
	var p AccountProfile
	for _, tc := range []struct{ following, follower bool }{
		{true, true}, {true, false}, {false, true}, {false, false},
	} {
		p.SetRelationship(tc.following, tc.follower)
		assert.Equal(t, tc.following && tc.follower, p.IsMutual)
	}
}

func TestStatusHelpers(t *testing.T) {
	assert.False(t, Status("sleeping").Valid())
	assert.True(t, StatusNoTweets.Dormant())
	assert.True(t, StatusSuspended.Dormant())
	assert.True(t, StatusInactive.Dormant())
	assert.False(t, StatusActive.Dormant())
	assert.False(t, StatusError.Dormant())
}

func TestProgressPercent(t *testing.T) {
	assert.Zero(t, Progress{Scanned: 5}.Percent())
	assert.InDelta(t, 50.0, Progress{Scanned: 5, Total: 10}.Percent(), 0.001)
}
