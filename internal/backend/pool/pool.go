// Package pool implements a size-bucketed buffer pool with allocation
// statistics. It is shared by the CPU host-buffer path and both GPU backends.
package pool

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

const (
	// DefaultMinSize is the smallest pooled request in bytes.
	DefaultMinSize = 1024
	// DefaultMaxSize is the largest pooled request in bytes.
	DefaultMaxSize = 100 * 1024 * 1024
	// DefaultMaxDepth is the maximum number of idle buffers per size.
	DefaultMaxDepth = 100
)

// Config controls which requests are pooled and how deep buckets grow.
type Config struct {
	MinSize  int // Minimum size for pooling in bytes (default: 1 KiB)
	MaxSize  int // Maximum size for pooling in bytes (default: 100 MiB)
	MaxDepth int // Max idle buffers per size (default: 100)
}

// DefaultConfig returns the standard pool limits.
func DefaultConfig() Config {
	return Config{MinSize: DefaultMinSize, MaxSize: DefaultMaxSize, MaxDepth: DefaultMaxDepth}
}

// AllocFunc creates a fresh buffer of size bytes.
type AllocFunc[B any] func(size int) (B, error)

// ReleaseFunc destroys a buffer.
type ReleaseFunc[B any] func(B)

// bucket holds idle buffers of one exact size.
type bucket[B any] struct {
	mu   sync.Mutex
	idle []B
}

// Pool manages buffer reuse keyed by exact byte size.
//
// Each bucket has its own lock; the bucket map lock is only held to find or
// create a bucket. A buffer popped from a bucket is owned by the caller until
// it is passed back to Free.
type Pool[B any] struct {
	cfg     Config
	alloc   AllocFunc[B]
	release ReleaseFunc[B]

	mu      sync.RWMutex
	buckets map[int]*bucket[B]

	totalAllocated atomic.Uint64 // bytes
	totalFreed     atomic.Uint64 // bytes
	hits           atomic.Uint64
	misses         atomic.Uint64
}

// New creates a pool. Zero-valued Config fields take their defaults.
func New[B any](cfg Config, alloc AllocFunc[B], release ReleaseFunc[B]) *Pool[B] {
	if cfg.MinSize <= 0 {
		cfg.MinSize = DefaultMinSize
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if release == nil {
		release = func(B) {}
	}
	return &Pool[B]{
		cfg:     cfg,
		alloc:   alloc,
		release: release,
		buckets: make(map[int]*bucket[B]),
	}
}

// Pooled reports whether requests of size bytes go through the buckets.
func (p *Pool[B]) Pooled(size int) bool {
	return size >= p.cfg.MinSize && size <= p.cfg.MaxSize
}

// Allocate returns an idle buffer of exactly size bytes (a hit) or a fresh
// one (a miss). Sizes outside the pooled range are always misses.
func (p *Pool[B]) Allocate(size int) (B, error) {
	if p.Pooled(size) {
		if b := p.lookup(size, false); b != nil {
			b.mu.Lock()
			if n := len(b.idle); n > 0 {
				buf := b.idle[n-1]
				var zero B
				b.idle[n-1] = zero
				b.idle = b.idle[:n-1]
				b.mu.Unlock()
				p.hits.Add(1)
				return buf, nil
			}
			b.mu.Unlock()
		}
	}

	buf, err := p.alloc(size)
	if err != nil {
		var zero B
		return zero, fmt.Errorf("pool: allocate %d bytes: %w", size, err)
	}
	p.misses.Add(1)
	p.totalAllocated.Add(uint64(size))
	return buf, nil
}

// Free returns buf to its bucket, or releases it when the size is not pooled
// or the bucket is full.
func (p *Pool[B]) Free(buf B, size int) {
	if !p.Pooled(size) {
		p.destroy(buf, size)
		return
	}

	b := p.lookup(size, true)
	b.mu.Lock()
	if len(b.idle) < p.cfg.MaxDepth {
		b.idle = append(b.idle, buf)
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	p.destroy(buf, size)
}

// Optimize shrinks every bucket to half of MaxDepth.
func (p *Pool[B]) Optimize() {
	p.trim(p.cfg.MaxDepth / 2)
}

// Clear releases every idle buffer.
func (p *Pool[B]) Clear() {
	p.trim(0)
}

func (p *Pool[B]) trim(keep int) {
	p.mu.RLock()
	sizes := make([]int, 0, len(p.buckets))
	for size := range p.buckets {
		sizes = append(sizes, size)
	}
	p.mu.RUnlock()
	sort.Ints(sizes)

	for _, size := range sizes {
		b := p.lookup(size, false)
		if b == nil {
			continue
		}
		b.mu.Lock()
		var drop []B
		if len(b.idle) > keep {
			drop = append(drop, b.idle[keep:]...)
			clear(b.idle[keep:])
			b.idle = b.idle[:keep]
		}
		b.mu.Unlock()
		for _, buf := range drop {
			p.destroy(buf, size)
		}
	}
}

func (p *Pool[B]) destroy(buf B, size int) {
	p.release(buf)
	p.totalFreed.Add(uint64(size))
}

func (p *Pool[B]) lookup(size int, create bool) *bucket[B] {
	p.mu.RLock()
	b := p.buckets[size]
	p.mu.RUnlock()
	if b != nil || !create {
		return b
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if b = p.buckets[size]; b == nil {
		b = &bucket[B]{idle: make([]B, 0, 4)}
		p.buckets[size] = b
	}
	return b
}

// Stats is a snapshot of pool counters.
type Stats struct {
	TotalAllocated uint64 // bytes obtained from the allocator
	TotalFreed     uint64 // bytes handed back to the allocator
	Hits           uint64
	Misses         uint64
	Idle           int // buffers currently waiting in buckets
	Buckets        int // distinct sizes seen by Free
}

// HitRate returns hits/(hits+misses), or 0 before any request.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// CurrentUsage returns bytes allocated and not yet released, idle buffers
// included. Free accepts buffers from outside the pool, so TotalFreed can run
// ahead of TotalAllocated; the result is then zero.
func (s Stats) CurrentUsage() uint64 {
	if s.TotalFreed >= s.TotalAllocated {
		return 0
	}
	return s.TotalAllocated - s.TotalFreed
}

// String formats the snapshot for diagnostics.
func (s Stats) String() string {
	return fmt.Sprintf("pool{allocated=%d freed=%d current=%d hits=%d misses=%d hitRate=%.2f%% idle=%d/%d}",
		s.TotalAllocated, s.TotalFreed, s.CurrentUsage(), s.Hits, s.Misses, s.HitRate()*100, s.Idle, s.Buckets)
}

// Stats returns a snapshot of the counters.
func (p *Pool[B]) Stats() Stats {
	s := Stats{
		TotalAllocated: p.totalAllocated.Load(),
		TotalFreed:     p.totalFreed.Load(),
		Hits:           p.hits.Load(),
		Misses:         p.misses.Load(),
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	s.Buckets = len(p.buckets)
	for _, b := range p.buckets {
		b.mu.Lock()
		s.Idle += len(b.idle)
		b.mu.Unlock()
	}
	return s
}
