// Package alloc provides budgeted buffer allocation for host and device
// memory.
package alloc

import (
	"fmt"
	"math"
	"sync"

	"github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/robert-malhotra/go-stepio/internal/status"
)

// MaxSize is the largest buffer the host can address. Larger requests fail
// with status.ErrOutOfMemory before reaching the underlying allocator.
const MaxSize = min(math.MaxInt, 1<<47)

// Allocator hands out byte buffers from an underlying memory.Allocator while
// enforcing a limit on the bytes simultaneously in use.
type Allocator struct {
	mu sync.Mutex

	mem memory.Allocator

	// limit is the maximum number of bytes in use at any time
	limit uint64

	// inUse is the number of bytes handed out and not yet freed
	inUse uint64

	stats Stats
}

// Stats contains allocation statistics.
type Stats struct {
	TotalAllocations uint64 // Number of successful allocations
	TotalBytesAlloc  uint64 // Total bytes allocated
	TotalBytesFree   uint64 // Total bytes returned with Free
	LargestAlloc     uint64 // Largest single allocation
	Failures         uint64 // Allocations refused for exceeding the limit
	PeakInUse        uint64 // High-water mark of bytes in use
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithLimit caps the number of bytes in use. Zero means unlimited.
func WithLimit(bytes uint64) Option {
	return func(a *Allocator) {
		if bytes > 0 {
			a.limit = bytes
		}
	}
}

// WithMemory sets the backing allocator. The default is the Go heap.
func WithMemory(mem memory.Allocator) Option {
	return func(a *Allocator) {
		if mem != nil {
			a.mem = mem
		}
	}
}

// New creates an Allocator.
func New(opts ...Option) *Allocator {
	a := &Allocator{
		mem:   memory.NewGoAllocator(),
		limit: math.MaxInt,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Alloc returns a buffer of exactly size bytes. Its contents are not
// guaranteed to be zero. When the request would exceed the limit, or cannot
// be addressed by the host, no buffer is returned and the error wraps
// status.ErrOutOfMemory.
func (a *Allocator) Alloc(size uint64) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	a.mu.Lock()
	if size > MaxSize || a.inUse+size > a.limit || a.inUse+size < a.inUse {
		a.stats.Failures++
		inUse := a.inUse
		a.mu.Unlock()
		return nil, fmt.Errorf("allocating %d bytes with %d in use (limit %d): %w",
			size, inUse, a.limit, status.ErrOutOfMemory)
	}
	// Reserve before allocating so concurrent calls see the budget.
	a.inUse += size
	a.mu.Unlock()

	buf, err := a.allocate(int(size))

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.inUse -= size
		a.stats.Failures++
		return nil, fmt.Errorf("allocating %d bytes: %w", size, err)
	}
	a.stats.TotalAllocations++
	a.stats.TotalBytesAlloc += size
	if size > a.stats.LargestAlloc {
		a.stats.LargestAlloc = size
	}
	if a.inUse > a.stats.PeakInUse {
		a.stats.PeakInUse = a.inUse
	}
	return buf, nil
}

// allocate turns a panic of the underlying allocator into an error.
func (a *Allocator) allocate(size int) (buf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("%v: %w", r, status.ErrOutOfMemory)
		}
	}()
	return a.mem.Allocate(size), nil
}

// Free returns a buffer obtained from Alloc. The slice must have the length
// it was allocated with.
func (a *Allocator) Free(b []byte) {
	if len(b) == 0 {
		return
	}
	a.mem.Free(b)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.inUse -= uint64(len(b))
	a.stats.TotalBytesFree += uint64(len(b))
}

// InUse returns the number of bytes currently allocated.
func (a *Allocator) InUse() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}

// Limit returns the configured limit in bytes.
func (a *Allocator) Limit() uint64 {
	return a.limit
}

// Stats returns a copy of the allocation statistics.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
