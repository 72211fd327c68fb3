package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followscope/pkg/auth"
	"followscope/pkg/config"
	errs "followscope/pkg/errors"
	"followscope/pkg/ratelimit"
	"followscope/pkg/relationships"
	"followscope/pkg/retry"
	"followscope/pkg/run"
	"followscope/pkg/scanner"
	"followscope/pkg/twitter"
	"followscope/pkg/unfollower"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	app   *App
	x     *mockX
	cfg   *config.Config
	sleep *ratelimit.SleepRecorder
}

func newHarness(t *testing.T, account *auth.Account) *harness {
	t.Helper()
	x := newMockX(fixedNow)
	t.Cleanup(x.Close)

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.X.BaseURL = x.URL()
	cfg.RateLimit.RequestsPerMinute = 0
	cfg.Storage.DatabasePath = filepath.Join(dir, "followscope.db")
	cfg.Scan.CheckpointDir = filepath.Join(dir, "checkpoints")

	rec := &ratelimit.SleepRecorder{}
	a, err := New(cfg, account, nil, Options{
		Gate:  &ratelimit.Gate{Sleep: rec.Sleep, Int64N: func(n int64) int64 { return 0 }},
		Sleep: rec.Sleep,
		Now:   func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	return &harness{app: a, x: x, cfg: cfg, sleep: rec}
}

func session() *auth.Account {
	return &auth.Account{Username: "me", UserID: "100", AuthToken: "token", CT0: "csrf"}
}

func TestScanPersistsProfiles(t *testing.T) {
	h := newHarness(t, session())
	var phases []scanner.Phase

	res, err := h.app.Scan(run.NewToken(context.Background()), ScanOptions{
		OnProgress: func(p scanner.Progress) {
			if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
				phases = append(phases, p.Phase)
			}
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "100", res.UserID)
	require.Len(t, res.Profiles, 4)
	assert.Equal(t, []scanner.Phase{
		scanner.PhaseCollectingIDs,
		scanner.PhaseScanningUsers,
		scanner.PhaseComputingRelationships,
		scanner.PhaseComplete,
	}, phases)

	stored, err := h.app.Store().Profiles(context.Background(), "100")
	require.NoError(t, err)
	require.Len(t, stored, 4)

	byID := make(map[string]scanner.AccountProfile)
	for _, p := range stored {
		byID[p.ID] = p
	}
	assert.Equal(t, scanner.StatusActive, byID["1"].Status)
	assert.False(t, byID["1"].IsFollower)
	assert.Equal(t, scanner.StatusInactive, byID["2"].Status)
	assert.True(t, byID["2"].IsMutual)
	assert.True(t, byID["3"].IsPlaceholder())
	assert.True(t, byID["3"].IsMutual)
	assert.True(t, byID["4"].IsFollower)
	assert.False(t, byID["4"].IsFollowing)

	last, err := h.app.Store().LatestScan(context.Background(), "100")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, res.RunID, last.RunID)
	assert.Equal(t, []string{"2", "3", "4"}, last.FollowerIDs)
}

func TestRescanDropsAccountsThatLeftTheGraph(t *testing.T) {
	h := newHarness(t, session())
	ctx := context.Background()

	_, err := h.app.Scan(run.NewToken(ctx), ScanOptions{})
	require.NoError(t, err)

	// I unfollowed 1 and 3, and 3 and 4 stopped following me
	h.x.SetGraph(mockGraph{
		followingIDs:   []string{"2"},
		followerIDs:    []string{"2"},
		followingUsers: []twitter.RawUser{h.x.user("2", 400)},
		followerUsers:  []twitter.RawUser{h.x.user("2", 400)},
	})
	_, err = h.app.Scan(run.NewToken(ctx), ScanOptions{})
	require.NoError(t, err)

	stored, err := h.app.Store().Profiles(ctx, "100")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "2", stored[0].ID)
	assert.True(t, stored[0].IsMutual)

	report, err := h.app.Report(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Total)
	assert.Equal(t, 1, report.Counts.Mutual)
	assert.Zero(t, report.Counts.NotFollowingBack)

	candidates, err := h.app.Candidates(ctx, "100", relationships.Filter{})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "2", candidates[0].ID)
}

func TestScanWithoutSessionFailsBeforeNetwork(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.app.Scan(run.NewToken(context.Background()), ScanOptions{UserID: "100"})
	require.Error(t, err)
	assert.True(t, errs.IsAuthMissing(err))
	assert.Zero(t, h.x.Requests(twitter.FollowingIDsEndpoint))
}

func TestOwnerResolution(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.app.Owner("")
	assert.Error(t, err)

	h.cfg.X.UserID = "55"
	owner, err := h.app.Owner("")
	require.NoError(t, err)
	assert.Equal(t, "55", owner)

	owner, err = h.app.Owner("7")
	require.NoError(t, err)
	assert.Equal(t, "7", owner)
}

func TestReport(t *testing.T) {
	h := newHarness(t, session())
	_, err := h.app.Scan(run.NewToken(context.Background()), ScanOptions{})
	require.NoError(t, err)

	report, err := h.app.Report(context.Background(), "100")
	require.NoError(t, err)

	assert.Equal(t, relationships.AuditCounts{
		Total:            4,
		Active:           2,
		Inactive:         1,
		NoTweets:         1,
		Placeholder:      1,
		Mutual:           2,
		NotFollowingBack: 1,
		NotFollowedBack:  1,
	}, report.Counts)

	// ratio 3/3 (+15), dormant 50% (-15), mutual 50% (+10)
	assert.Equal(t, relationships.AccountHealth{
		Score:               60,
		FollowRatio:         1,
		InactivePercent:     50,
		MutualPercent:       50,
		EngagementPotential: 0,
	}, report.Health)
	require.NotNil(t, report.LastScan)
}

func TestReportWithoutScan(t *testing.T) {
	h := newHarness(t, nil)
	report, err := h.app.Report(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, relationships.AuditCounts{}, report.Counts)
	assert.Equal(t, relationships.AccountHealth{}, report.Health)
	assert.Nil(t, report.LastScan)
}

func dormantFilter() relationships.Filter {
	return relationships.Filter{Statuses: []scanner.Status{scanner.StatusInactive, scanner.StatusNoTweets}}
}

func TestUnfollowDryRunByDefault(t *testing.T) {
	h := newHarness(t, session())
	_, err := h.app.Scan(run.NewToken(context.Background()), ScanOptions{})
	require.NoError(t, err)

	var events []string
	results, err := h.app.Unfollow(run.NewToken(context.Background()), UnfollowOptions{
		Filter: dormantFilter(),
		Config: unfollower.ConfigFrom(h.cfg.Unfollow),
		OnProgress: func(index, total int, handle string) {
			events = append(events, fmt.Sprintf("%d/%d %s", index, total, handle))
		},
	})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.True(t, results[0].DryRun)
	assert.Empty(t, h.x.Unfollowed())
	assert.Equal(t, []string{"0/2 [not_returned]", "1/2 user2", "2/2 done"}, events)

	used, remaining, err := h.app.Quota(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, used)
	assert.Equal(t, 200, remaining)
}

func TestUnfollowLive(t *testing.T) {
	h := newHarness(t, session())
	_, err := h.app.Scan(run.NewToken(context.Background()), ScanOptions{})
	require.NoError(t, err)

	cfg := unfollower.ConfigFrom(h.cfg.Unfollow)
	cfg.Live = true
	results, err := h.app.Unfollow(run.NewToken(context.Background()), UnfollowOptions{
		Filter: dormantFilter(),
		Config: cfg,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)

	// placeholder (no activity at all) goes first
	assert.Equal(t, []string{"3", "2"}, h.x.Unfollowed())

	used, remaining, err := h.app.Quota(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, used)
	assert.Equal(t, 198, remaining)

	stored, err := h.app.Store().Profiles(context.Background(), "100")
	require.NoError(t, err)
	for _, p := range stored {
		if p.ID == "2" || p.ID == "3" {
			assert.False(t, p.IsFollowing, p.ID)
			assert.False(t, p.IsMutual, p.ID)
			assert.True(t, p.IsFollower, p.ID)
		}
	}

	log, err := h.app.Store().UnfollowLog(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, log, 2)

	// the next batch finds nothing left to unfollow
	results, err = h.app.Unfollow(run.NewToken(context.Background()), UnfollowOptions{Filter: dormantFilter(), Config: cfg})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUnfollowFailureRecorded(t *testing.T) {
	h := newHarness(t, session())
	_, err := h.app.Scan(run.NewToken(context.Background()), ScanOptions{})
	require.NoError(t, err)
	h.x.FailDestroy(http.StatusForbidden)

	cfg := unfollower.ConfigFrom(h.cfg.Unfollow)
	cfg.Live = true
	results, err := h.app.Unfollow(run.NewToken(context.Background()), UnfollowOptions{Filter: dormantFilter(), Config: cfg})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Success)
		assert.NotEmpty(t, r.Error)
	}

	used, _, err := h.app.Quota(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, used)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"lease", run.ErrRunInProgress, "another scan or unfollow batch is already running"},
		{"cancelled", fmt.Errorf("wrap: %w", scanner.ErrScanCancelled), "scan cancelled; rerun with --resume to continue from the collected ids"},
		{"auth", errs.AuthMissing("x"), "no X session found; run `followscope auth login` or set FOLLOWSCOPE_AUTH_TOKEN and FOLLOWSCOPE_CT0"},
		{"rate limit", errs.RateLimited("/e"), "X is rate limiting this session; wait 15 minutes and run again"},
		{"rate limit exhausted", fmt.Errorf("%w after %d attempts: %w", retry.ErrExhausted, 31, errs.RateLimited("/e")), "X kept rate limiting after repeated backoff; wait 15 minutes and run again"},
		{"expired", errs.RequestFailed("/e", http.StatusUnauthorized), "the X session has expired; copy fresh cookies with `followscope auth login`"},
		{"not found", errs.RequestFailed("/e", http.StatusNotFound), "X could not find that account"},
		{"other status", errs.RequestFailed("/e", http.StatusBadGateway), "X returned HTTP Bad Gateway on /e"},
		{"network", errs.Network("/e", errors.New("dial")), "could not reach x.com; check the network connection"},
		{"plain", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.err))
		})
	}
}
