// Package ratelimit keeps one token bucket per key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// Pool hands out a limiter per key and drops limiters idle for longer than ttl.
type Pool struct {
	mu    sync.Mutex
	m     map[string]*entry
	rps   rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	startCleanup sync.Once
	stopOnce     sync.Once
	stopCh       chan struct{}
}

func NewPool(rps float64, burst int) *Pool {
	if burst <= 0 {
		burst = 1
	}
	return &Pool{
		m:      make(map[string]*entry),
		rps:    rate.Limit(rps),
		burst:  burst,
		ttl:    10 * time.Minute,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Allow reports whether an event for key may happen now.
func (p *Pool) Allow(key string) bool {
	return p.get(key).Allow()
}

// Len returns the number of tracked keys.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

// Shutdown stops the cleanup goroutine.
func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

func (p *Pool) get(key string) *rate.Limiter {
	p.startCleanup.Do(func() { go p.cleanupLoop(time.Minute) })

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.m[key]; ok {
		e.lastSeen = p.now()
		return e.l
	}
	l := rate.NewLimiter(p.rps, p.burst)
	p.m[key] = &entry{l: l, lastSeen: p.now()}
	return l
}

func (p *Pool) cleanupLoop(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.evictIdle()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Pool) evictIdle() {
	cutoff := p.now().Add(-p.ttl)
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
		}
	}
}
