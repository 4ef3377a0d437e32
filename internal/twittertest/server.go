// Package twittertest runs an in-process imitation of the two Twitter v1.1
// endpoints twscrape paginates, with request recording and fault injection.
package twittertest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const (
	// Token is the bearer token the server accepts unless changed with SetToken.
	Token = "test-bearer-token"

	// cursorBase offsets follower cursors so they never collide with -1 or 0.
	cursorBase = 1000

	defaultFollowerPage = 20
	maxTimelineCount    = 200
)

// Request is one recorded call to the fake API.
type Request struct {
	Endpoint string
	Query    url.Values
	Status   int
}

type fault struct {
	status  int
	resetAt time.Time
	apiCode int
	message string
}

// Server is a fake Twitter API backed by in-memory timelines and follower lists.
type Server struct {
	*httptest.Server

	mu               sync.Mutex
	token            string
	tweets           map[string][]int64
	followers        map[string][]int64
	followerPageSize int
	inclusiveMaxID   bool
	faults           map[string][]fault
	requests         []Request
}

// NewServer starts a fake API and closes it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		token:            Token,
		tweets:           make(map[string][]int64),
		followers:        make(map[string][]int64),
		followerPageSize: defaultFollowerPage,
		faults:           make(map[string][]fault),
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Route("/1.1", func(r chi.Router) {
		r.Use(s.recordRequest)
		r.Use(s.requireBearer)
		r.Use(s.injectFaults)
		r.Get("/statuses/user_timeline.json", s.userTimeline)
		r.Get("/followers/list.json", s.followersList)
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the value to use as the client's API base URL.
func (s *Server) BaseURL() string {
	return s.URL + "/1.1"
}

// SetToken changes the accepted bearer token.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// SetTweets replaces the timeline of userID. ids are sorted newest first.
func (s *Server) SetTweets(userID string, ids ...int64) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tweets[userID] = sorted
}

// AddTimeline gives userID n tweets with ids newest, newest-1, ...
func (s *Server) AddTimeline(userID string, n int, newest int64) {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = newest - int64(i)
	}
	s.SetTweets(userID, ids...)
}

// AddFollowers gives userID n followers with ids 1..n.
func (s *Server) AddFollowers(userID string, n int) {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.followers[userID] = ids
}

// SetFollowerPageSize sets how many users each followers/list page holds.
func (s *Server) SetFollowerPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followerPageSize = n
}

// SetInclusiveMaxID makes max_id return the tweet with that id as well, as
// the real API does. By default max_id is exclusive.
func (s *Server) SetInclusiveMaxID(inclusive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inclusiveMaxID = inclusive
}

// RateLimitNext makes the next n calls to endpoint answer 429 with the
// given x-rate-limit-reset time.
func (s *Server) RateLimitNext(endpoint string, n int, resetAt time.Time) {
	s.queueFault(endpoint, n, fault{
		status:  http.StatusTooManyRequests,
		resetAt: resetAt,
		apiCode: 88,
		message: "Rate limit exceeded",
	})
}

// FailNext makes the next n calls to endpoint answer status.
func (s *Server) FailNext(endpoint string, n int, status int) {
	s.queueFault(endpoint, n, fault{status: status, message: http.StatusText(status)})
}

func (s *Server) queueFault(endpoint string, n int, f fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.faults[endpoint] = append(s.faults[endpoint], f)
	}
}

// Requests returns the recorded calls to endpoint, or all calls when endpoint is empty.
func (s *Server) Requests(endpoint string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Request
	for _, r := range s.requests {
		if endpoint == "" || r.Endpoint == endpoint {
			out = append(out, r)
		}
	}
	return out
}

func endpointFromPath(path string) string {
	path = strings.TrimPrefix(path, "/1.1/")
	return strings.TrimSuffix(path, ".json")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Endpoint: endpointFromPath(r.URL.Path),
			Query:    r.URL.Query(),
			Status:   rec.status,
		})
		s.mu.Unlock()
	})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		want := "Bearer " + s.token
		s.mu.Unlock()

		if r.Header.Get("Authorization") != want {
			writeError(w, http.StatusUnauthorized, 89, "Invalid or expired token.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := endpointFromPath(r.URL.Path)

		s.mu.Lock()
		queue := s.faults[endpoint]
		var f *fault
		if len(queue) > 0 {
			f = &queue[0]
			s.faults[endpoint] = queue[1:]
		}
		s.mu.Unlock()

		if f == nil {
			next.ServeHTTP(w, r)
			return
		}
		if !f.resetAt.IsZero() {
			w.Header().Set("x-rate-limit-remaining", "0")
			w.Header().Set("x-rate-limit-reset", strconv.FormatInt(f.resetAt.Unix(), 10))
		}
		writeError(w, f.status, f.apiCode, f.message)
	})
}

func (s *Server) userTimeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, 44, "user_id parameter is invalid.")
		return
	}

	count := 20
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, 44, "count parameter is invalid.")
			return
		}
		count = min(n, maxTimelineCount)
	}

	var maxID int64
	hasMax := false
	if v := q.Get("max_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, 44, "max_id parameter is invalid.")
			return
		}
		maxID, hasMax = n, true
	}

	s.mu.Lock()
	timeline := s.tweets[userID]
	inclusive := s.inclusiveMaxID
	s.mu.Unlock()

	page := make([]map[string]any, 0, count)
	for _, id := range timeline {
		if len(page) == count {
			break
		}
		if hasMax && (id > maxID || (id == maxID && !inclusive)) {
			continue
		}
		page = append(page, map[string]any{
			"id":     id,
			"id_str": strconv.FormatInt(id, 10),
			"text":   "tweet " + strconv.FormatInt(id, 10),
			"user":   map[string]any{"id_str": userID},
		})
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *Server) followersList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, 44, "user_id parameter is invalid.")
		return
	}

	cursor := int64(-1)
	if v := q.Get("cursor"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, 44, "cursor parameter is invalid.")
			return
		}
		cursor = n
	}

	s.mu.Lock()
	all := s.followers[userID]
	size := s.followerPageSize
	s.mu.Unlock()

	offset := 0
	switch {
	case cursor == -1:
	case cursor == 0:
		offset = len(all)
	case cursor >= cursorBase:
		offset = int(cursor - cursorBase)
	default:
		writeError(w, http.StatusBadRequest, 44, "cursor parameter is invalid.")
		return
	}
	offset = min(offset, len(all))
	end := min(offset+size, len(all))

	users := make([]map[string]any, 0, end-offset)
	for _, id := range all[offset:end] {
		users = append(users, map[string]any{
			"id":          id,
			"id_str":      strconv.FormatInt(id, 10),
			"screen_name": "follower_" + strconv.FormatInt(id, 10),
		})
	}

	next := int64(0)
	if end < len(all) {
		next = int64(end) + cursorBase
	}
	prev := int64(0)
	if offset > 0 {
		prev = -(int64(offset) + cursorBase)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users":               users,
		"next_cursor":         next,
		"next_cursor_str":     strconv.FormatInt(next, 10),
		"previous_cursor":     prev,
		"previous_cursor_str": strconv.FormatInt(prev, 10),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status, code int, message string) {
	body := map[string]any{"errors": []map[string]any{}}
	if code != 0 {
		body["errors"] = []map[string]any{{"code": code, "message": message}}
	}
	writeJSON(w, status, body)
}
