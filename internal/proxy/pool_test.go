package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type sequenceDiscoverer struct {
	mu    sync.Mutex
	next  int
	fail  bool
	calls int
}

func (s *sequenceDiscoverer) Discover(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return "", ErrNoProxy
	}
	s.next++
	return fmt.Sprintf("http://10.0.0.%d:8080", s.next), nil
}

func alwaysDiscover() Option {
	return WithRand(func() float64 { return 0.99 }, func(int) int { return 0 })
}

func alwaysReuse() Option {
	return WithRand(func() float64 { return 0.0 }, func(int) int { return 0 })
}

func TestPool_NeverExceedsMaxSize(t *testing.T) {
	discoverer := &sequenceDiscoverer{}
	pool := NewPool(5, 0.7, discoverer, zap.NewNop(), alwaysDiscover())

	for i := 0; i < 20; i++ {
		pool.Acquire(context.Background())
		if size := pool.Size(); size > 5 {
			t.Fatalf("pool size %d exceeds max 5 after %d acquires", size, i+1)
		}
	}

	if pool.Size() != 5 {
		t.Errorf("pool size = %d, want 5", pool.Size())
	}
}

func TestPool_EvictsOldestFirst(t *testing.T) {
	pool := NewPool(3, 0.7, &sequenceDiscoverer{}, zap.NewNop(), alwaysDiscover())

	for i := 0; i < 4; i++ {
		pool.Acquire(context.Background())
	}

	snapshot := pool.Snapshot()
	want := []string{"http://10.0.0.2:8080", "http://10.0.0.3:8080", "http://10.0.0.4:8080"}
	if len(snapshot) != len(want) {
		t.Fatalf("snapshot = %v, want %v", snapshot, want)
	}
	for i, rec := range snapshot {
		if rec.Address != want[i] {
			t.Errorf("snapshot[%d] = %s, want %s", i, rec.Address, want[i])
		}
	}
}

func TestPool_ReuseDoesNotDiscover(t *testing.T) {
	discoverer := &sequenceDiscoverer{}
	pool := NewPool(5, 0.7, discoverer, zap.NewNop(), alwaysReuse())

	first := pool.Acquire(context.Background())
	if first == "" {
		t.Fatal("first Acquire() on empty pool should discover")
	}
	for i := 0; i < 5; i++ {
		if got := pool.Acquire(context.Background()); got != first {
			t.Errorf("Acquire() = %q, want reused %q", got, first)
		}
	}
	if discoverer.calls != 1 {
		t.Errorf("discoverer called %d times, want 1", discoverer.calls)
	}
}

func TestPool_ReportFailureRemoves(t *testing.T) {
	discoverer := &sequenceDiscoverer{}
	pool := NewPool(5, 0.7, discoverer, zap.NewNop(), alwaysReuse())

	bad := pool.Acquire(context.Background())
	pool.ReportFailure(bad)

	if pool.Size() != 0 {
		t.Errorf("pool size = %d after ReportFailure, want 0", pool.Size())
	}
	for i := 0; i < 10; i++ {
		if got := pool.Acquire(context.Background()); got == bad {
			t.Fatalf("Acquire() returned evicted proxy %q", bad)
		}
	}

	// Unknown addresses are ignored.
	pool.ReportFailure("http://unknown:1")
}

func TestPool_NoProxyAvailable(t *testing.T) {
	pool := NewPool(5, 0.7, &sequenceDiscoverer{fail: true}, zap.NewNop())

	if got := pool.Acquire(context.Background()); got != "" {
		t.Errorf("Acquire() = %q, want direct egress", got)
	}

	nilDiscoverer := NewPool(5, 0.7, nil, zap.NewNop())
	if got := nilDiscoverer.Acquire(context.Background()); got != "" {
		t.Errorf("Acquire() without discoverer = %q, want empty", got)
	}
}

func TestPool_DiscoveryFailureFallsBackToPool(t *testing.T) {
	discoverer := &sequenceDiscoverer{}
	pool := NewPool(5, 0.7, discoverer, zap.NewNop(), alwaysDiscover())

	existing := pool.Acquire(context.Background())
	discoverer.fail = true

	if got := pool.Acquire(context.Background()); got != existing {
		t.Errorf("Acquire() = %q, want pooled %q", got, existing)
	}
}

type fixedDiscoverer string

func (f fixedDiscoverer) Discover(context.Context) (string, error) {
	if f == "" {
		return "", errors.New("none")
	}
	return string(f), nil
}

func TestPool_DistinctEntries(t *testing.T) {
	pool := NewPool(5, 0.7, fixedDiscoverer("http://1.1.1.1:80"), zap.NewNop(), alwaysDiscover())

	for i := 0; i < 3; i++ {
		pool.Acquire(context.Background())
	}
	if pool.Size() != 1 {
		t.Errorf("pool size = %d, want 1 for repeated discovery of the same address", pool.Size())
	}
}

func TestPool_SizeObserver(t *testing.T) {
	var sizes []int
	pool := NewPool(2, 0.7, &sequenceDiscoverer{}, zap.NewNop(), alwaysDiscover(),
		WithSizeObserver(func(n int) { sizes = append(sizes, n) }))

	pool.Acquire(context.Background())
	pool.Acquire(context.Background())
	newest := pool.Acquire(context.Background())
	pool.ReportFailure(newest)

	want := []int{1, 2, 2, 1}
	if fmt.Sprint(sizes) != fmt.Sprint(want) {
		t.Errorf("observed sizes = %v, want %v", sizes, want)
	}
}

func TestPool_Concurrent(t *testing.T) {
	pool := NewPool(5, 0.7, &sequenceDiscoverer{}, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			addr := pool.Acquire(context.Background())
			if addr != "" && len(addr)%2 == 0 {
				pool.ReportFailure(addr)
			}
		}()
	}
	wg.Wait()

	if pool.Size() > 5 {
		t.Errorf("pool size = %d exceeds max under concurrency", pool.Size())
	}
}
