package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// searchDebounce is how long a client's typing must pause before the
// directory is queried.
const searchDebounce = 300 * time.Millisecond

// AssigneeHit is one directory match offered as a step assignee
type AssigneeHit struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// AssigneeDirectory is the user lookup behind interactive assignee search
type AssigneeDirectory interface {
	SearchAssignees(ctx context.Context, tenantID uuid.UUID, query string, limit int) ([]AssigneeHit, error)
}

// SearchResults is the payload answered to an assignee_search message
type SearchResults struct {
	Seq     int64         `json:"seq"`
	Query   string        `json:"query"`
	Results []AssigneeHit `json:"results"`
	Error   string        `json:"error,omitempty"`
}

// searchSession debounces one client's assignee-search keystrokes and drops
// stale responses. Every submit carries a client sequence number; only the
// newest sequence ever produces a reply, even when an older directory query
// finishes after a newer one was submitted.
type searchSession struct {
	mu        sync.Mutex
	directory AssigneeDirectory
	tenantID  uuid.UUID
	debounce  time.Duration
	deliver   func(event string, payload interface{})

	timer  *time.Timer
	latest int64
}

func newSearchSession(directory AssigneeDirectory, tenantID uuid.UUID, debounce time.Duration, deliver func(event string, payload interface{})) *searchSession {
	return &searchSession{
		directory: directory,
		tenantID:  tenantID,
		debounce:  debounce,
		deliver:   deliver,
	}
}

// submit registers a new keystroke. The pending timer is reset; only the
// query that survives the debounce window runs.
func (s *searchSession) submit(query string, seq int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.latest {
		return
	}
	s.latest = seq
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.run(query, seq)
	})
}

func (s *searchSession) run(query string, seq int64) {
	if !s.current(seq) {
		return
	}

	results, err := s.directory.SearchAssignees(context.Background(), s.tenantID, query, 20)

	// A newer query may have been submitted while the directory call ran
	if !s.current(seq) {
		return
	}
	payload := SearchResults{Seq: seq, Query: query, Results: results}
	if err != nil {
		payload.Error = "search failed"
	}
	s.deliver("assignee_search.results", payload)
}

func (s *searchSession) current(seq int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.latest
}

func (s *searchSession) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
}
