package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"followscope/pkg/twitter"
)

// mockX serves a small follow graph: I follow 1,2,3 and 2,3,4 follow me.
// 1 and 4 posted yesterday, 2 last posted 400 days ago, 3 is never
// returned by the list endpoint.
type mockX struct {
	server *httptest.Server
	now    time.Time

	mu            sync.Mutex
	graph         mockGraph
	unfollowed    []string
	destroyStatus int
	requests      map[string]int
}

// mockGraph is what the four read endpoints return
type mockGraph struct {
	followingIDs   []string
	followerIDs    []string
	followingUsers []twitter.RawUser
	followerUsers  []twitter.RawUser
}

func newMockX(now time.Time) *mockX {
	m := &mockX{now: now, requests: make(map[string]int)}
	m.graph = mockGraph{
		followingIDs:   []string{"1", "2", "3"},
		followerIDs:    []string{"2", "3", "4"},
		followingUsers: []twitter.RawUser{m.user("1", 1), m.user("2", 400)},
		followerUsers:  []twitter.RawUser{m.user("2", 400), m.user("4", 1)},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(twitter.FollowingIDsEndpoint, m.ids(func(g mockGraph) []string { return g.followingIDs }))
	mux.HandleFunc(twitter.FollowerIDsEndpoint, m.ids(func(g mockGraph) []string { return g.followerIDs }))
	mux.HandleFunc(twitter.FollowingListEndpoint, m.users(func(g mockGraph) []twitter.RawUser { return g.followingUsers }))
	mux.HandleFunc(twitter.FollowerListEndpoint, m.users(func(g mockGraph) []twitter.RawUser { return g.followerUsers }))
	mux.HandleFunc(twitter.FriendshipDestroyEndpoint, m.destroy)

	m.server = httptest.NewServer(mux)
	return m
}

// SetGraph replaces the follow graph served from now on
func (m *mockX) SetGraph(g mockGraph) {
	m.mu.Lock()
	m.graph = g
	m.mu.Unlock()
}

func (m *mockX) current() mockGraph {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph
}

func (m *mockX) URL() string { return m.server.URL }

func (m *mockX) Close() { m.server.Close() }

func (m *mockX) count(path string) {
	m.mu.Lock()
	m.requests[path]++
	m.mu.Unlock()
}

func (m *mockX) ids(pick func(mockGraph) []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.count(r.URL.Path)
		writeJSON(w, map[string]interface{}{"ids": pick(m.current()), "next_cursor_str": "0"})
	}
}

func (m *mockX) user(id string, daysAgo int) twitter.RawUser {
	return twitter.RawUser{
		IDStr:         id,
		ScreenName:    "user" + id,
		Name:          "User " + id,
		StatusesCount: 5,
		Status:        &twitter.RawStatus{CreatedAt: m.now.AddDate(0, 0, -daysAgo).Format(time.RubyDate)},
	}
}

func (m *mockX) users(pick func(mockGraph) []twitter.RawUser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.count(r.URL.Path)
		writeJSON(w, map[string]interface{}{"users": pick(m.current()), "next_cursor_str": "0"})
	}
}

func (m *mockX) destroy(w http.ResponseWriter, r *http.Request) {
	m.count(r.URL.Path)
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	status := m.destroyStatus
	if status == 0 || status == http.StatusOK {
		m.unfollowed = append(m.unfollowed, r.PostForm.Get("user_id"))
	}
	m.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, map[string]string{"id_str": r.PostForm.Get("user_id")})
}

func (m *mockX) FailDestroy(status int) {
	m.mu.Lock()
	m.destroyStatus = status
	m.mu.Unlock()
}

func (m *mockX) Unfollowed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.unfollowed...)
}

func (m *mockX) Requests(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[path]
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
