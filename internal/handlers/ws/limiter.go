package ws

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiterPool holds one inbound token bucket per connection.
type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   float64
	burst int
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &limiterPool{m: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = l
	return l
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

func (p *limiterPool) remove(key string) {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
}
