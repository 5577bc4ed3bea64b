package reduce

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sys/cpu"

	"github.com/robert-malhotra/go-stepio/internal/alloc"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

// Device is a parallel backend that runs reduction blocks and owns the
// memory holding partial results.
type Device interface {
	// Name describes the device for diagnostics.
	Name() string

	// MaxThreadsPerBlock is the largest worker group size.
	MaxThreadsPerBlock() int

	// MaxGridSize is the largest number of blocks in one launch.
	MaxGridSize() int

	// SubgroupSize is the number of lock-step lanes combined without
	// block-wide synchronization. Always a power of two.
	SubgroupSize() int

	// Concurrency is the number of blocks that may execute at once.
	Concurrency() int

	// Alloc returns n bytes of device memory. Failures wrap
	// status.ErrDeviceAllocationFailure.
	Alloc(n int) ([]byte, error)

	// Free releases memory returned by Alloc.
	Free(b []byte)
}

// CPU is a Device that runs blocks as goroutines on the host.
type CPU struct {
	name        string
	maxThreads  int
	maxGrid     int
	subgroup    int
	concurrency int
	mem         *alloc.Allocator
}

// CPUOption configures a CPU device.
type CPUOption func(*cpuConfig)

type cpuConfig struct {
	maxThreads  int
	maxGrid     int
	subgroup    int
	concurrency int
	memLimit    uint64
	mem         memory.Allocator
}

// WithMaxGridSize limits the number of blocks per launch.
func WithMaxGridSize(n int) CPUOption {
	return func(c *cpuConfig) {
		if n > 0 {
			c.maxGrid = n
		}
	}
}

// WithMaxThreadsPerBlock limits the worker group size. It is rounded down
// to a power of two.
func WithMaxThreadsPerBlock(n int) CPUOption {
	return func(c *cpuConfig) {
		if n > 0 {
			c.maxThreads = floorPow2(n)
		}
	}
}

// WithSubgroupSize sets the lock-step lane count, rounded down to a power of
// two.
func WithSubgroupSize(n int) CPUOption {
	return func(c *cpuConfig) {
		if n > 0 {
			c.subgroup = floorPow2(n)
		}
	}
}

// WithConcurrency sets how many blocks run at once.
func WithConcurrency(n int) CPUOption {
	return func(c *cpuConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithDeviceMemory sets the allocator backing device buffers.
func WithDeviceMemory(mem memory.Allocator) CPUOption {
	return func(c *cpuConfig) {
		c.mem = mem
	}
}

// WithDeviceMemoryLimit caps device memory in bytes.
func WithDeviceMemoryLimit(bytes uint64) CPUOption {
	return func(c *cpuConfig) {
		c.memLimit = bytes
	}
}

// NewCPU creates a host device sized from the running processor.
func NewCPU(opts ...CPUOption) *CPU {
	cfg := cpuConfig{
		maxThreads:  1024,
		maxGrid:     1<<31 - 1,
		subgroup:    vectorLanes(),
		concurrency: cpuid.CPU.LogicalCores,
	}
	if cfg.concurrency <= 0 {
		cfg.concurrency = runtime.GOMAXPROCS(0)
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var aopts []alloc.Option
	if cfg.mem != nil {
		aopts = append(aopts, alloc.WithMemory(cfg.mem))
	}
	if cfg.memLimit > 0 {
		aopts = append(aopts, alloc.WithLimit(cfg.memLimit))
	}

	brand := strings.TrimSpace(cpuid.CPU.BrandName)
	if brand == "" {
		brand = runtime.GOARCH
	}

	return &CPU{
		name:        fmt.Sprintf("cpu(%s, %d lanes)", brand, cfg.subgroup),
		maxThreads:  cfg.maxThreads,
		maxGrid:     cfg.maxGrid,
		subgroup:    cfg.subgroup,
		concurrency: cfg.concurrency,
		mem:         alloc.New(aopts...),
	}
}

func (c *CPU) Name() string            { return c.name }
func (c *CPU) MaxThreadsPerBlock() int { return c.maxThreads }
func (c *CPU) MaxGridSize() int        { return c.maxGrid }
func (c *CPU) SubgroupSize() int       { return c.subgroup }
func (c *CPU) Concurrency() int        { return c.concurrency }

func (c *CPU) Alloc(n int) ([]byte, error) {
	b, err := c.mem.Alloc(uint64(n))
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", c.name, err, status.ErrDeviceAllocationFailure)
	}
	return b, nil
}

func (c *CPU) Free(b []byte) {
	c.mem.Free(b)
}

// InUse returns the device bytes currently allocated.
func (c *CPU) InUse() uint64 {
	return c.mem.InUse()
}

// vectorLanes returns the number of 32-bit lanes in the widest vector unit,
// which plays the role of a subgroup on the host.
func vectorLanes() int {
	switch {
	case cpu.X86.HasAVX512F:
		return 16
	case cpu.X86.HasAVX2:
		return 8
	case cpu.ARM64.HasASIMD:
		return 4
	default:
		return 4
	}
}

func floorPow2(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}
