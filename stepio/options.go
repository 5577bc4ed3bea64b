package stepio

import (
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/labstack/gommon/log"

	"github.com/robert-malhotra/go-stepio/internal/operator"
	"github.com/robert-malhotra/go-stepio/internal/reduce"
)

// ReaderOption configures a Reader.
type ReaderOption func(*readerOptions)

type readerOptions struct {
	memLimit uint64
	mem      memory.Allocator
	maxBytes uint64
}

// WithMemoryLimit caps the bytes a Reader may hold in staging buffers at
// once. Reads that would exceed it fail with ErrOutOfMemory before any
// fetch is issued.
func WithMemoryLimit(bytes uint64) ReaderOption {
	return func(o *readerOptions) {
		o.memLimit = bytes
	}
}

// WithHostMemory sets the allocator backing staging buffers.
func WithHostMemory(mem memory.Allocator) ReaderOption {
	return func(o *readerOptions) {
		o.mem = mem
	}
}

// WithMaxSelectionBytes sets the largest selection the host can address.
// Larger selections fail with ErrSizeOverflow. The default is 128 TiB on
// 64-bit hosts and math.MaxInt bytes elsewhere.
func WithMaxSelectionBytes(n uint64) ReaderOption {
	return func(o *readerOptions) {
		o.maxBytes = n
	}
}

// Device runs block statistics reductions.
type Device = reduce.Device

// NewCPUDevice returns a host device sized from the running processor.
func NewCPUDevice() Device {
	return reduce.NewCPU()
}

// WriterOption configures a Writer.
type WriterOption func(*writerOptions)

type writerOptions struct {
	reduce  []reduce.Option
	session *operator.TierSession
}

// WithDevice selects the device computing block statistics.
func WithDevice(d Device) WriterOption {
	return func(o *writerOptions) {
		o.reduce = append(o.reduce, reduce.WithDevice(d))
	}
}

// WithLogger sets the logger receiving reduction diagnostics.
func WithLogger(l *log.Logger) WriterOption {
	return func(o *writerOptions) {
		o.reduce = append(o.reduce, reduce.WithLogger(l))
	}
}

// WithReductionLimits caps threads per block and blocks per launch of the
// statistics reductions.
func WithReductionLimits(maxThreads, maxBlocks int) WriterOption {
	return func(o *writerOptions) {
		o.reduce = append(o.reduce, reduce.WithMaxThreads(maxThreads), reduce.WithMaxBlocks(maxBlocks))
	}
}

// WithTierSession makes every multi-tier operator of the writer share s.
// Without it each variable's operators keep private state.
func WithTierSession(s *TierSession) WriterOption {
	return func(o *writerOptions) {
		o.session = s
	}
}

// VariableOption configures a variable definition.
type VariableOption func(*variableOptions)

type variableOptions struct {
	chunks []uint64
	ops    []operator.Spec
	stats  bool
}

func defaultVariableOptions() *variableOptions {
	return &variableOptions{stats: true}
}

// WithChunks splits every put block along a regular grid of the given
// dimensions; each chunk is stored and compressed separately.
func WithChunks(dims ...uint64) VariableOption {
	return func(o *variableOptions) {
		o.chunks = dims
	}
}

// WithOperation appends a compression operator to the variable's pipeline.
// Operators run in the order they are added.
func WithOperation(name string, params Params) VariableOption {
	return func(o *variableOptions) {
		o.ops = append(o.ops, operator.Spec{Name: name, Params: params})
	}
}

// WithStats enables or disables per-block min/max statistics. They are on
// by default and skipped for types without a natural order.
func WithStats(enabled bool) VariableOption {
	return func(o *variableOptions) {
		o.stats = enabled
	}
}
