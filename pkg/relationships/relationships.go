// Package relationships computes audit counts and the account health score
// over a hydrated profile set. Everything here is pure.
package relationships

import (
	"math"

	"followscope/pkg/scanner"
)

// AuditCounts is a snapshot of a profile set
type AuditCounts struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Inactive    int `json:"inactive"`
	Suspended   int `json:"suspended"`
	Deactivated int `json:"deactivated"`
	NoTweets    int `json:"no_tweets"`
	Errored     int `json:"errored"`
	Placeholder int `json:"placeholder"`
	Mutual      int `json:"mutual"`
	// NotFollowingBack counts accounts I follow that do not follow me
	NotFollowingBack int `json:"not_following_back"`
	// NotFollowedBack counts followers I do not follow
	NotFollowedBack int `json:"not_followed_back"`
}

// AccountHealth is the derived 0-100 score and the signals behind it
type AccountHealth struct {
	Score               int     `json:"score"`
	FollowRatio         float64 `json:"follow_ratio"`
	InactivePercent     float64 `json:"inactive_percent"`
	MutualPercent       float64 `json:"mutual_percent"`
	EngagementPotential float64 `json:"engagement_potential"`
}

// followerLookup answers "does this profile follow me". With a nil id list
// it trusts the profile's own IsFollower flag.
type followerLookup map[string]struct{}

func newFollowerLookup(followerIDs []string) followerLookup {
	if followerIDs == nil {
		return nil
	}
	set := make(followerLookup, len(followerIDs))
	for _, id := range followerIDs {
		set[id] = struct{}{}
	}
	return set
}

func (f followerLookup) follows(p *scanner.AccountProfile) bool {
	if f == nil {
		return p.IsFollower
	}
	_, ok := f[p.ID]
	return ok
}

func (f followerLookup) mutual(p *scanner.AccountProfile) bool {
	if f == nil {
		return p.IsMutual || (p.IsFollowing && p.IsFollower)
	}
	return p.IsFollowing && f.follows(p)
}

// Audit tallies profiles by status and relationship in one pass
func Audit(profiles []scanner.AccountProfile, followerIDs []string) AuditCounts {
	lookup := newFollowerLookup(followerIDs)
	counts := AuditCounts{Total: len(profiles)}

	for i := range profiles {
		p := &profiles[i]
		switch p.Status {
		case scanner.StatusActive:
			counts.Active++
		case scanner.StatusInactive:
			counts.Inactive++
		case scanner.StatusSuspended:
			counts.Suspended++
		case scanner.StatusDeactivated:
			counts.Deactivated++
		case scanner.StatusNoTweets:
			counts.NoTweets++
		case scanner.StatusError:
			counts.Errored++
		}
		if p.IsPlaceholder() {
			counts.Placeholder++
		}

		follower := lookup.follows(p)
		switch {
		case p.IsFollowing && follower:
			counts.Mutual++
		case p.IsFollowing:
			counts.NotFollowingBack++
		case follower:
			counts.NotFollowedBack++
		}
	}
	return counts
}

// Health scores a profile set. It starts at 50 and adds one tiered
// adjustment each for follow ratio, dormant share and mutual share, then
// clamps to [0, 100]. Tiers compare unrounded values; the returned ratio is
// rounded to 2 decimals and the percentages to 1.
func Health(profiles []scanner.AccountProfile, totalFollowerCount int, followerIDs []string) AccountHealth {
	if len(profiles) == 0 {
		return AccountHealth{}
	}
	lookup := newFollowerLookup(followerIDs)

	var following, dormant, mutual, engaged int
	for i := range profiles {
		p := &profiles[i]
		if p.IsFollowing {
			following++
		}
		if p.Status.Dormant() {
			dormant++
		}
		if lookup.mutual(p) {
			mutual++
			if p.Status == scanner.StatusActive {
				engaged++
			}
		}
	}

	total := float64(len(profiles))
	ratio := float64(totalFollowerCount)
	if following > 0 {
		ratio = float64(totalFollowerCount) / float64(following)
	}
	inactivePct := float64(dormant) / total * 100
	mutualPct := float64(mutual) / total * 100

	score := 50 + ratioAdjustment(ratio) + inactiveAdjustment(inactivePct) + mutualAdjustment(mutualPct)

	return AccountHealth{
		Score:               clamp(score, 0, 100),
		FollowRatio:         round(ratio, 2),
		InactivePercent:     round(inactivePct, 1),
		MutualPercent:       round(mutualPct, 1),
		EngagementPotential: round(float64(engaged)/total*100, 1),
	}
}

func ratioAdjustment(ratio float64) int {
	switch {
	case ratio >= 2.0:
		return 20
	case ratio >= 1.0:
		return 15
	case ratio >= 0.5:
		return 5
	default:
		return -10
	}
}

func inactiveAdjustment(pct float64) int {
	switch {
	case pct < 5:
		return 15
	case pct < 15:
		return 10
	case pct < 30:
		return 0
	default:
		return -15
	}
}

func mutualAdjustment(pct float64) int {
	switch {
	case pct > 60:
		return 15
	case pct > 40:
		return 10
	case pct > 20:
		return 5
	default:
		return -5
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
