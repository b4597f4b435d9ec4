// Package proxy maintains a small self-healing pool of egress proxies for extraction attempts.
package proxy

import (
	"context"
	"math/rand/v2"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Discoverer finds a fresh proxy address.
type Discoverer interface {
	Discover(ctx context.Context) (string, error)
}

// Record is one pooled proxy.
type Record struct {
	Address             string
	ConsecutiveFailures int
}

// Pool serves one proxy per extraction attempt.
//
// Entries are distinct and capped; the oldest entry is evicted when a discovery overflows the
// cap. A proxy reported as failed is removed outright.
type Pool struct {
	entries          *lru.Cache[string, *Record]
	discoverer       Discoverer
	reuseProbability float64
	float64n         func() float64
	intn             func(n int) int
	onSize           func(size int)
	mutex            sync.Mutex
	logger           *zap.Logger
}

// Option customizes a Pool.
type Option func(*Pool)

// WithRand replaces the random sources used for the reuse decision and entry choice.
func WithRand(float64n func() float64, intn func(n int) int) Option {
	return func(p *Pool) {
		p.float64n = float64n
		p.intn = intn
	}
}

// WithSizeObserver is called with the pool size after every membership change.
func WithSizeObserver(fn func(size int)) Option {
	return func(p *Pool) {
		p.onSize = fn
	}
}

// NewPool creates a pool holding at most maxSize proxies.
func NewPool(maxSize int, reuseProbability float64, discoverer Discoverer, logger *zap.Logger, opts ...Option) *Pool {
	if maxSize < 1 {
		maxSize = 1
	}
	// Entries are only read with Peek and Keys, so recency order stays insertion order.
	entries, _ := lru.New[string, *Record](maxSize)

	p := &Pool{
		entries:          entries,
		discoverer:       discoverer,
		reuseProbability: reuseProbability,
		float64n:         rand.Float64,
		intn:             rand.IntN,
		onSize:           func(int) {},
		logger:           logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns a pooled proxy with the configured reuse probability, otherwise a freshly
// discovered one. When discovery fails a pooled proxy is still preferred over direct egress,
// even on the non-reuse branch. It returns "" only when the pool is empty and discovery failed;
// callers then use direct egress.
func (p *Pool) Acquire(ctx context.Context) string {
	p.mutex.Lock()
	if p.entries.Len() > 0 && p.float64n() < p.reuseProbability {
		addr := p.randomEntry()
		p.mutex.Unlock()
		return addr
	}
	p.mutex.Unlock()

	if p.discoverer != nil {
		addr, err := p.discoverer.Discover(ctx)
		if err == nil && addr != "" {
			p.insert(addr)
			return addr
		}
		p.logger.Debug("Proxy discovery failed", zap.Error(err))
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.entries.Len() > 0 {
		return p.randomEntry()
	}
	return ""
}

// ReportFailure removes address from the pool.
func (p *Pool) ReportFailure(address string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.entries.Remove(address) {
		p.logger.Info("Proxy evicted after failure", zap.String("proxy", address))
		p.onSize(p.entries.Len())
	}
}

// Size returns the number of pooled proxies.
func (p *Pool) Size() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.entries.Len()
}

// Snapshot returns the pooled proxies, oldest first.
func (p *Pool) Snapshot() []Record {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	out := make([]Record, 0, p.entries.Len())
	for _, addr := range p.entries.Keys() {
		if rec, ok := p.entries.Peek(addr); ok {
			out = append(out, *rec)
		}
	}
	return out
}

func (p *Pool) insert(addr string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.entries.Contains(addr) {
		return
	}
	if evicted := p.entries.Add(addr, &Record{Address: addr}); evicted {
		p.logger.Debug("Oldest proxy evicted, pool full", zap.String("added", addr))
	}
	p.onSize(p.entries.Len())
}

// randomEntry must be called with the mutex held and a non-empty pool.
func (p *Pool) randomEntry() string {
	keys := p.entries.Keys()
	return keys[p.intn(len(keys))]
}
