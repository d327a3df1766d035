package queue

import (
	"sync"

	"github.com/go-scripts/research/pkg/common"
)

// Queue is a thread-safe queue of search results waiting to be visited.
// Each URL is accepted at most once and the queue stops accepting
// once limit results were added.
type Queue struct {
	items   []common.SearchResult
	seen    map[string]bool
	visited int
	limit   int
	mu      sync.Mutex
}

// New creates a new Queue. A non-positive limit means no limit.
func New(limit int) *Queue {
	return &Queue{
		items: make([]common.SearchResult, 0),
		seen:  make(map[string]bool),
		limit: limit,
	}
}

// Add enqueues r unless its URL was already added or the limit is reached
func (q *Queue) Add(r common.SearchResult) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if r.URL == "" || q.seen[r.URL] {
		return false
	}
	if q.limit > 0 && len(q.seen) >= q.limit {
		return false
	}

	q.seen[r.URL] = true
	q.items = append(q.items, r)
	return true
}

// AddAll enqueues results in order and returns how many were accepted
func (q *Queue) AddAll(results []common.SearchResult) int {
	added := 0
	for _, r := range results {
		if q.Add(r) {
			added++
		}
	}
	return added
}

// Next returns the next result to visit
func (q *Queue) Next() (common.SearchResult, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return common.SearchResult{}, false
	}

	r := q.items[0]
	q.items = q.items[1:]
	q.visited++
	return r, true
}

// Len returns the number of results still waiting
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Total returns the number of results ever accepted
func (q *Queue) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.seen)
}

// VisitedCount returns the number of results handed out by Next
func (q *Queue) VisitedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.visited
}
