package scanner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"followscope/pkg/auth"
	"followscope/pkg/checkpoint"
	errs "followscope/pkg/errors"
	"followscope/pkg/logger"
	"followscope/pkg/run"
	"followscope/pkg/twitter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticIdentity struct {
	id  string
	err error
}

func (s staticIdentity) CurrentUserID() (string, error) { return s.id, s.err }

func newTestScanner(api API, guard *run.Guard) *Scanner {
	gate, _ := testGate()
	return New(api, Config{
		Pacing:   DefaultPacing(),
		Hydrate:  HydrateOptions{Classifier: testClassifier()},
		Gate:     gate,
		Guard:    guard,
		Identity: staticIdentity{id: "100"},
		Logger:   logger.NewNopLogger(),
	})
}

// graphAPI: I follow 1,2,3; 2,3,4,5 follow me. 3 and 5 are never hydrated.
func graphAPI() *fakeAPI {
	api := newFakeAPI()
	api.ids[twitter.FollowingIDsEndpoint] = []idStep{idPage("0", "1", "2", "3")}
	api.ids[twitter.FollowerIDsEndpoint] = []idStep{idPage("x", "2", "3"), idPage("0", "4", "5")}
	api.profiles[twitter.FollowingListEndpoint] = []profileStep{profilePage("0", activeUsers("1", "2")...)}
	api.profiles[twitter.FollowerListEndpoint] = []profileStep{profilePage("0", activeUsers("2", "4")...)}
	return api
}

func TestFullScan(t *testing.T) {
	api := graphAPI()
	batches := &batchRecorder{}
	var phases []Phase

	res, err := newTestScanner(api, nil).FullScan(run.NewToken(context.Background()), Options{
		OnBatch: batches.sink,
		OnProgress: func(p Progress) {
			if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
				phases = append(phases, p.Phase)
			}
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "100", res.UserID)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"1", "2", "3"}, res.FollowingIDs)
	assert.Equal(t, []string{"2", "3", "4", "5"}, res.FollowerIDs)
	assert.Equal(t, StopCursorExhausted, res.FollowingStop)
	assert.Equal(t, StopCursorExhausted, res.FollowerStop)
	assert.False(t, res.Resumed)

	assert.Equal(t, []Phase{
		PhaseCollectingIDs,
		PhaseScanningUsers,
		PhaseComputingRelationships,
		PhaseComplete,
	}, phases)

	var ids []string
	byID := map[string]AccountProfile{}
	for _, p := range res.Profiles {
		ids = append(ids, p.ID)
		byID[p.ID] = p
		assert.Equal(t, p.IsFollowing && p.IsFollower, p.IsMutual, "profile %s", p.ID)
	}
	// followed and mutual first, follower-only after, each id once
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids)

	assert.True(t, byID["1"].IsFollowing)
	assert.False(t, byID["1"].IsFollower)
	assert.True(t, byID["2"].IsMutual)
	assert.True(t, byID["3"].IsMutual)
	assert.True(t, byID["3"].IsPlaceholder())
	assert.True(t, byID["4"].IsFollower)
	assert.False(t, byID["4"].IsFollowing)
	assert.True(t, byID["5"].IsPlaceholder())

	// every flushed profile already carries its relationship flags
	for _, batch := range batches.batches {
		for _, p := range batch {
			assert.Equal(t, p.IsFollowing && p.IsFollower, p.IsMutual)
			assert.True(t, p.IsFollowing || p.IsFollower, "profile %s", p.ID)
		}
	}
}

func TestFullScanSkipsFollowerHydrationWhenAllKnown(t *testing.T) {
	api := newFakeAPI()
	api.ids[twitter.FollowingIDsEndpoint] = []idStep{idPage("0", "1", "2")}
	api.ids[twitter.FollowerIDsEndpoint] = []idStep{idPage("0", "2")}
	api.profiles[twitter.FollowingListEndpoint] = []profileStep{profilePage("0", activeUsers("1", "2")...)}

	res, err := newTestScanner(api, nil).FullScan(run.NewToken(context.Background()), Options{})
	require.NoError(t, err)
	assert.Len(t, res.Profiles, 2)
	assert.Zero(t, api.callCount(twitter.FollowerListEndpoint))
	assert.Empty(t, res.FollowerStop)
}

func TestFullScanPrefersFollowerProfileOverPlaceholder(t *testing.T) {
	api := newFakeAPI()
	api.ids[twitter.FollowingIDsEndpoint] = []idStep{idPage("0", "1", "3")}
	api.ids[twitter.FollowerIDsEndpoint] = []idStep{idPage("0", "3", "4")}
	api.profiles[twitter.FollowingListEndpoint] = []profileStep{profilePage("0", activeUsers("1")...)}
	api.profiles[twitter.FollowerListEndpoint] = []profileStep{profilePage("0", activeUsers("3", "4")...)}
	batches := &batchRecorder{}

	res, err := newTestScanner(api, nil).FullScan(run.NewToken(context.Background()), Options{OnBatch: batches.sink})
	require.NoError(t, err)

	var ids []string
	for _, p := range res.Profiles {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"1", "3", "4"}, ids)

	three := res.Profiles[1]
	assert.False(t, three.IsPlaceholder())
	assert.Equal(t, "user3", three.Handle)
	assert.Equal(t, StatusActive, three.Status)
	assert.True(t, three.IsMutual)

	// the last flush for 3 is the real profile, matching the result
	var last AccountProfile
	for _, batch := range batches.batches {
		for _, p := range batch {
			if p.ID == "3" {
				last = p
			}
		}
	}
	assert.Equal(t, "user3", last.Handle)
}

func TestFullScanRequiresLease(t *testing.T) {
	guard := run.NewGuard()
	held, err := guard.Acquire(run.KindHarvest, nil)
	require.NoError(t, err)

	api := graphAPI()
	_, err = newTestScanner(api, guard).FullScan(run.NewToken(context.Background()), Options{})
	assert.ErrorIs(t, err, run.ErrRunInProgress)
	assert.Zero(t, api.callCount(twitter.FollowingIDsEndpoint))

	held.Release()
	_, err = newTestScanner(api, guard).FullScan(run.NewToken(context.Background()), Options{})
	assert.NoError(t, err)

	_, active := guard.Active(run.KindHarvest)
	assert.False(t, active, "lease released after scan")
}

func TestFullScanStoppedThroughGuard(t *testing.T) {
	guard := run.NewGuard()
	api := graphAPI()
	api.profiles[twitter.FollowingListEndpoint] = []profileStep{profilePage("more", activeUser("1"))}
	api.onCall = func(endpoint string, n int) {
		if endpoint == twitter.FollowingListEndpoint {
			guard.Stop(run.KindHarvest)
		}
	}

	var last Progress
	_, err := newTestScanner(api, guard).FullScan(run.NewToken(context.Background()), Options{
		OnProgress: func(p Progress) { last = p },
	})

	assert.ErrorIs(t, err, ErrScanCancelled)
	assert.Equal(t, PhaseError, last.Phase)
	assert.ErrorIs(t, last.Err, ErrScanCancelled)
	assert.Zero(t, api.callCount(twitter.FollowerListEndpoint))
}

func TestFullScanCancelledDuringCollection(t *testing.T) {
	api := graphAPI()
	tok := run.NewToken(context.Background())
	api.onCall = func(endpoint string, n int) {
		if endpoint == twitter.FollowerIDsEndpoint {
			tok.Cancel()
		}
	}

	res, err := newTestScanner(api, nil).FullScan(tok, Options{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrScanCancelled)
	assert.Zero(t, api.callCount(twitter.FollowingListEndpoint))
}

func TestFullScanReportsErrorPhase(t *testing.T) {
	api := graphAPI()
	api.ids[twitter.FollowerIDsEndpoint] = []idStep{{err: errs.RequestFailed(twitter.FollowerIDsEndpoint, 401)}}

	var last Progress
	res, err := newTestScanner(api, nil).FullScan(run.NewToken(context.Background()), Options{
		OnProgress: func(p Progress) { last = p },
	})

	assert.Nil(t, res)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeRequestFailed, errs.TypeOf(err))
	assert.Equal(t, PhaseError, last.Phase)
	assert.Equal(t, err, last.Err)
	assert.NotEmpty(t, last.Message)
}

func TestFullScanNeedsUser(t *testing.T) {
	gate, _ := testGate()
	s := New(newFakeAPI(), Config{
		Gate:     gate,
		Identity: staticIdentity{err: errs.AuthMissing("no session")},
	})

	_, err := s.FullScan(run.NewToken(context.Background()), Options{})
	assert.True(t, errs.IsAuthMissing(err))

	res, err := s.FullScan(run.NewToken(context.Background()), Options{UserID: "55"})
	require.NoError(t, err)
	assert.Equal(t, "55", res.UserID)
}

func TestFullScanResumesFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	open := func(userID string) (CheckpointStore, error) {
		mgr, err := checkpoint.NewManager(userID, dir)
		if err != nil {
			return nil, err
		}
		mgr.SetLogger(logger.NewNopLogger())
		return mgr, nil
	}

	store, err := open("100")
	require.NoError(t, err)
	cp, err := store.Create("100", "earlier-run")
	require.NoError(t, err)
	require.NoError(t, store.RecordIDs(cp, []string{"1", "2"}, []string{"2", "4"}))

	api := graphAPI()
	gate, _ := testGate()
	s := New(api, Config{
		Hydrate:     HydrateOptions{Classifier: testClassifier()},
		Gate:        gate,
		Identity:    staticIdentity{id: "100"},
		Checkpoints: open,
	})

	res, err := s.FullScan(run.NewToken(context.Background()), Options{Resume: true})
	require.NoError(t, err)
	assert.True(t, res.Resumed)
	assert.Equal(t, []string{"1", "2"}, res.FollowingIDs)
	assert.Zero(t, api.callCount(twitter.FollowingIDsEndpoint))
	assert.Zero(t, api.callCount(twitter.FollowerIDsEndpoint))
	assert.Len(t, res.Profiles, 3)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded, "checkpoint removed after a completed scan")
}

func TestFullScanKeepsCheckpointOnFailure(t *testing.T) {
	dir := t.TempDir()
	mgr, err := checkpoint.NewManager("100", dir)
	require.NoError(t, err)
	mgr.SetLogger(logger.NewNopLogger())

	api := graphAPI()
	api.profiles[twitter.FollowingListEndpoint] = []profileStep{{err: errs.RequestFailed(twitter.FollowingListEndpoint, 500)}}
	gate, _ := testGate()
	s := New(api, Config{
		Gate:        gate,
		Identity:    staticIdentity{id: "100"},
		Checkpoints: func(string) (CheckpointStore, error) { return mgr, nil },
	})

	_, err = s.FullScan(run.NewToken(context.Background()), Options{})
	require.Error(t, err)

	cp, err := mgr.Load()
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, checkpoint.PhaseIDsCollected, cp.Phase)
	assert.Equal(t, []string{"1", "2", "3"}, cp.FollowingIDs)
	assert.Equal(t, []string{"2", "3", "4", "5"}, cp.FollowerIDs)
}

func TestFullScanOverHTTP(t *testing.T) {
	user := func(id string) string {
		return fmt.Sprintf(`{"id_str":%q,"screen_name":"u%s","status":{"created_at":%q}}`,
			id, id, fixedNow.Format("Mon Jan 02 15:04:05 -0700 2006"))
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("user_id"))
		switch r.URL.Path {
		case twitter.FollowingIDsEndpoint:
			w.Write([]byte(`{"ids":["1","2"],"next_cursor_str":"0"}`))
		case twitter.FollowerIDsEndpoint:
			w.Write([]byte(`{"ids":[2,3],"next_cursor":0}`))
		case twitter.FollowingListEndpoint:
			fmt.Fprintf(w, `{"users":[%s,%s],"next_cursor_str":"0"}`, user("1"), user("2"))
		case twitter.FollowerListEndpoint:
			// empty body ends pagination
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	session := auth.NewSession(&auth.Account{UserID: "100", AuthToken: "a", CT0: "b"})
	client := twitter.NewClient(session, twitter.Options{BaseURL: server.URL})
	gate, _ := testGate()
	s := New(client, Config{
		Hydrate:  HydrateOptions{Classifier: testClassifier()},
		Gate:     gate,
		Identity: session,
	})

	res, err := s.FullScan(run.NewToken(context.Background()), Options{})
	require.NoError(t, err)
	require.Len(t, res.Profiles, 3)

	assert.Equal(t, "u1", res.Profiles[0].Handle)
	assert.Equal(t, StatusActive, res.Profiles[0].Status)
	assert.True(t, res.Profiles[1].IsMutual)
	assert.Equal(t, "3", res.Profiles[2].ID)
	assert.True(t, res.Profiles[2].IsPlaceholder())
	assert.True(t, res.Profiles[2].IsFollower)
}
