package useragent

import (
	"math/rand"
	"sync"
	"time"
)

// ChromePool holds desktop Chrome user agents. Only Chrome strings are kept
// because the session always drives Chrome.
var ChromePool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0",
}

// Pool hands out user agents
type Pool struct {
	uas  []string
	mu   sync.Mutex
	rng  *rand.Rand
	next int
}

// NewPool creates a pool. An empty slice falls back to ChromePool.
func NewPool(uas []string) *Pool {
	if len(uas) == 0 {
		uas = ChromePool
	}
	copied := make([]string, len(uas))
	copy(copied, uas)
	return &Pool{uas: copied, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Sequential returns user agents round-robin
func (p *Pool) Sequential() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ua := p.uas[p.next%len(p.uas)]
	p.next++
	return ua
}

// Random returns a random user agent
func (p *Pool) Random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rng.Intn(len(p.uas))]
}

// All returns a copy of the pool
func (p *Pool) All() []string {
	return append([]string(nil), p.uas...)
}
