package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	mu      sync.Mutex
	queries []string
	delay   time.Duration
	err     error
}

func (d *fakeDirectory) SearchAssignees(_ context.Context, _ uuid.UUID, query string, _ int) ([]AssigneeHit, error) {
	d.mu.Lock()
	d.queries = append(d.queries, query)
	d.mu.Unlock()
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.err != nil {
		return nil, d.err
	}
	return []AssigneeHit{{ID: uuid.NewString(), Username: query}}, nil
}

func (d *fakeDirectory) seen() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.queries))
	copy(out, d.queries)
	return out
}

type resultCollector struct {
	mu      sync.Mutex
	results []SearchResults
}

func (c *resultCollector) deliver(_ string, payload interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, payload.(SearchResults))
}

func (c *resultCollector) all() []SearchResults {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SearchResults, len(c.results))
	copy(out, c.results)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSearchDebouncesRapidTyping(t *testing.T) {
	dir := &fakeDirectory{}
	col := &resultCollector{}
	session := newSearchSession(dir, uuid.New(), 30*time.Millisecond, col.deliver)
	defer session.stop()

	// three keystrokes inside the debounce window
	session.submit("a", 1)
	session.submit("al", 2)
	session.submit("ali", 3)

	waitFor(t, func() bool { return len(col.all()) == 1 })

	// only the final query hit the directory
	assert.Equal(t, []string{"ali"}, dir.seen())
	res := col.all()[0]
	assert.Equal(t, int64(3), res.Seq)
	assert.Equal(t, "ali", res.Query)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "ali", res.Results[0].Username)
}

func TestSearchDropsOutOfOrderSequences(t *testing.T) {
	dir := &fakeDirectory{}
	col := &resultCollector{}
	session := newSearchSession(dir, uuid.New(), time.Millisecond, col.deliver)
	defer session.stop()

	session.submit("newer", 5)
	waitFor(t, func() bool { return len(col.all()) == 1 })

	// a late-arriving older keystroke must never run
	session.submit("older", 3)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, []string{"newer"}, dir.seen())
	assert.Len(t, col.all(), 1)
}

func TestSearchDropsStaleResponseAfterSlowLookup(t *testing.T) {
	dir := &fakeDirectory{delay: 50 * time.Millisecond}
	col := &resultCollector{}
	session := newSearchSession(dir, uuid.New(), time.Millisecond, col.deliver)
	defer session.stop()

	session.submit("slow", 1)
	// wait until the slow lookup is in flight, then supersede it
	waitFor(t, func() bool { return len(dir.seen()) == 1 })
	session.submit("fresh", 2)

	waitFor(t, func() bool {
		for _, res := range col.all() {
			if res.Seq == 2 {
				return true
			}
		}
		return false
	})
	time.Sleep(60 * time.Millisecond)

	// the superseded lookup finished but its reply was dropped
	for _, res := range col.all() {
		assert.Equal(t, int64(2), res.Seq)
		assert.Equal(t, "fresh", res.Query)
	}
}

func TestSearchSurfacesDirectoryFailure(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("directory unavailable")}
	col := &resultCollector{}
	session := newSearchSession(dir, uuid.New(), time.Millisecond, col.deliver)
	defer session.stop()

	session.submit("ali", 1)
	waitFor(t, func() bool { return len(col.all()) == 1 })

	res := col.all()[0]
	assert.Equal(t, "search failed", res.Error)
	assert.Empty(t, res.Results)
}

func TestSearchStopCancelsPendingTimer(t *testing.T) {
	dir := &fakeDirectory{}
	col := &resultCollector{}
	session := newSearchSession(dir, uuid.New(), 30*time.Millisecond, col.deliver)

	session.submit("ali", 1)
	session.stop()
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, dir.seen())
	assert.Empty(t, col.all())
}
