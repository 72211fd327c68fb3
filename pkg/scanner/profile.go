package scanner

import (
	"time"
	"unicode/utf8"

	"followscope/pkg/twitter"
)

// Status is the activity classification of a related account
type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusSuspended   Status = "suspended"
	StatusDeactivated Status = "deactivated"
	StatusNoTweets    Status = "no_tweets"
	StatusError       Status = "error"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusDeactivated, StatusNoTweets, StatusError:
		return true
	}
	return false
}

// Dormant reports whether s counts against account health
func (s Status) Dormant() bool {
	return s == StatusInactive || s == StatusSuspended || s == StatusNoTweets
}

const (
	// NotReturnedHandle marks a placeholder for an id the list endpoint skipped
	NotReturnedHandle = "[not_returned]"
	maxBioLength      = 200
)

// AccountProfile is one related account. IsMutual is always
// IsFollowing && IsFollower once a scan completes.
type AccountProfile struct {
	ID             string `json:"id"`
	Handle         string `json:"handle"`
	DisplayName    string `json:"display_name"`
	Bio            string `json:"bio"`
	FollowersCount int    `json:"followers_count"`
	FollowingCount int    `json:"following_count"`
	PostCount      int    `json:"post_count"`
	// LastActivity is nil when the account has no visible post
	LastActivity      *time.Time `json:"last_activity,omitempty"`
	DaysSinceActivity int        `json:"days_since_activity"`
	Status            Status     `json:"status"`
	IsFollowing       bool       `json:"is_following"`
	IsFollower        bool       `json:"is_follower"`
	IsMutual          bool       `json:"is_mutual"`
	Verified          bool       `json:"verified"`
	Lists             []string   `json:"lists,omitempty"`
	CapturedAt        time.Time  `json:"captured_at"`
	AvatarURL         string     `json:"avatar_url,omitempty"`
}

// IsPlaceholder reports whether p was synthesized rather than fetched
func (p AccountProfile) IsPlaceholder() bool {
	return p.Handle == NotReturnedHandle
}

// SetRelationship sets the three relationship flags together
func (p *AccountProfile) SetRelationship(following, follower bool) {
	p.IsFollowing = following
	p.IsFollower = follower
	p.IsMutual = following && follower
}

// Classifier derives an AccountProfile from a raw user object
type Classifier struct {
	InactiveAfterDays int
	Now               func() time.Time
}

// Classify converts u. Precedence: suspended, then no_tweets when there is
// no last post, then inactive when the last post is older than
// InactiveAfterDays, otherwise active. An unparseable timestamp is error.
func (c Classifier) Classify(u twitter.RawUser) AccountProfile {
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	threshold := c.InactiveAfterDays
	if threshold <= 0 {
		threshold = 365
	}

	p := AccountProfile{
		ID:             u.IDStr,
		Handle:         u.ScreenName,
		DisplayName:    u.Name,
		Bio:            truncate(u.Description, maxBioLength),
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FriendsCount,
		PostCount:      u.StatusesCount,
		Verified:       u.Verified || u.IsBlueVerified,
		CapturedAt:     now,
		AvatarURL:      u.ProfileImageURLHTTPS,
	}

	lastPost, ok, err := u.LastPostTime()
	if ok && err == nil {
		p.LastActivity = &lastPost
		p.DaysSinceActivity = int(now.Sub(lastPost).Hours() / 24)
	}

	switch {
	case u.Suspended:
		p.Status = StatusSuspended
	case !ok:
		p.Status = StatusNoTweets
	case err != nil:
		p.Status = StatusError
	case p.DaysSinceActivity > threshold:
		p.Status = StatusInactive
	default:
		p.Status = StatusActive
	}
	return p
}

// Placeholder builds the stand-in record for an id that was never returned
func Placeholder(id string, capturedAt time.Time) AccountProfile {
	return AccountProfile{
		ID:         id,
		Handle:     NotReturnedHandle,
		Status:     StatusNoTweets,
		CapturedAt: capturedAt,
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
