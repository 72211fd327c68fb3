package relationships

import (
	"sort"

	"followscope/pkg/scanner"
)

// Filter picks unfollow candidates among the accounts I follow
type Filter struct {
	// NotFollowingBack keeps only accounts that do not follow me
	NotFollowingBack bool
	// Statuses keeps only these statuses; empty keeps all
	Statuses []scanner.Status
	// MinDaysInactive keeps accounts whose last post is at least this old.
	// Accounts without a last post always pass.
	MinDaysInactive int
	KeepVerified    bool
	// Protect lists ids and handles that are never selected
	Protect []string
	Limit   int
}

// Select returns the followed accounts matching f, most dormant first
func Select(profiles []scanner.AccountProfile, f Filter) []scanner.AccountProfile {
	statuses := make(map[scanner.Status]struct{}, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses[s] = struct{}{}
	}
	protected := make(map[string]struct{}, len(f.Protect))
	for _, p := range f.Protect {
		protected[p] = struct{}{}
	}

	var out []scanner.AccountProfile
	for _, p := range profiles {
		if !p.IsFollowing {
			continue
		}
		if f.NotFollowingBack && p.IsFollower {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[p.Status]; !ok {
				continue
			}
		}
		if f.MinDaysInactive > 0 && p.LastActivity != nil && p.DaysSinceActivity < f.MinDaysInactive {
			continue
		}
		if f.KeepVerified && p.Verified {
			continue
		}
		if _, ok := protected[p.ID]; ok {
			continue
		}
		if _, ok := protected[p.Handle]; ok {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return dormancy(out[i]) > dormancy(out[j])
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// dormancy orders candidates: no activity at all first, then by age
func dormancy(p scanner.AccountProfile) int {
	if p.LastActivity == nil {
		return int(^uint(0) >> 1)
	}
	return p.DaysSinceActivity
}
