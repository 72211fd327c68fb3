package scanner

import (
	"context"
	"sync"
	"time"

	"followscope/pkg/ratelimit"
	"followscope/pkg/twitter"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type idStep struct {
	page *twitter.IDPage
	err  error
}

type profileStep struct {
	page *twitter.ProfilePage
	err  error
}

// fakeAPI replays scripted responses per endpoint, repeating the last one
type fakeAPI struct {
	mu       sync.Mutex
	ids      map[string][]idStep
	profiles map[string][]profileStep
	calls    map[string]int
	cursors  map[string][]string
	onCall   func(endpoint string, n int)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		ids:      make(map[string][]idStep),
		profiles: make(map[string][]profileStep),
		calls:    make(map[string]int),
		cursors:  make(map[string][]string),
	}
}

func (f *fakeAPI) record(endpoint, cursor string) int {
	f.mu.Lock()
	f.calls[endpoint]++
	n := f.calls[endpoint]
	f.cursors[endpoint] = append(f.cursors[endpoint], cursor)
	hook := f.onCall
	f.mu.Unlock()
	if hook != nil {
		hook(endpoint, n)
	}
	return n
}

func (f *fakeAPI) FetchIDs(ctx context.Context, endpoint, userID, cursor string) (*twitter.IDPage, error) {
	n := f.record(endpoint, cursor)
	steps := f.ids[endpoint]
	if len(steps) == 0 {
		return &twitter.IDPage{NextCursor: "0"}, nil
	}
	step := steps[min(n, len(steps))-1]
	return step.page, step.err
}

func (f *fakeAPI) FetchProfiles(ctx context.Context, endpoint, userID, cursor string) (*twitter.ProfilePage, error) {
	n := f.record(endpoint, cursor)
	steps := f.profiles[endpoint]
	if len(steps) == 0 {
		return &twitter.ProfilePage{NextCursor: "0"}, nil
	}
	step := steps[min(n, len(steps))-1]
	return step.page, step.err
}

func (f *fakeAPI) callCount(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

func idPage(cursor string, ids ...string) idStep {
	return idStep{page: &twitter.IDPage{IDs: ids, NextCursor: cursor}}
}

func profilePage(cursor string, users ...twitter.RawUser) profileStep {
	return profileStep{page: &twitter.ProfilePage{Users: users, NextCursor: cursor}}
}

// activeUser posted a day before fixedNow
func activeUser(id string) twitter.RawUser {
	return twitter.RawUser{
		IDStr:         id,
		ScreenName:    "user" + id,
		Name:          "User " + id,
		StatusesCount: 10,
		Status:        &twitter.RawStatus{CreatedAt: fixedNow.Add(-24 * time.Hour).Format(time.RubyDate)},
	}
}

func activeUsers(ids ...string) []twitter.RawUser {
	out := make([]twitter.RawUser, 0, len(ids))
	for _, id := range ids {
		out = append(out, activeUser(id))
	}
	return out
}

// testGate never sleeps and always picks the lower bound of a jitter range
func testGate() (*ratelimit.Gate, *ratelimit.SleepRecorder) {
	rec := &ratelimit.SleepRecorder{}
	return &ratelimit.Gate{Sleep: rec.Sleep, Int64N: func(n int64) int64 { return 0 }}, rec
}

func testClassifier() Classifier {
	return Classifier{InactiveAfterDays: 365, Now: func() time.Time { return fixedNow }}
}
