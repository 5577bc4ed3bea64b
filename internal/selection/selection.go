// Package selection resolves hyperslab and step selections into allocation
// sizes and a single engine-level fetch request.
package selection

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-stepio/internal/alloc"
	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/shape"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

// MaxRank is the highest supported variable rank.
const MaxRank = 6

// Selection is a hyperslab: per-axis start offsets and extents.
type Selection struct {
	Start []uint64
	Count []uint64
}

// Rank returns the number of dimensions selected.
func (s Selection) Rank() int {
	return len(s.Start)
}

// Steps selects the contiguous run of steps [Start, Start+Count).
type Steps struct {
	Start uint64
	Count uint64
}

// End returns one past the last selected step.
func (s Steps) End() uint64 {
	return s.Start + s.Count
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Rank          int
	ElementSize   uint64
	BlockElements uint64   // product(Count), 1 for rank 0
	Steps         uint64   // number of step blocks
	TotalElements uint64   // BlockElements * Steps
	Bytes         uint64   // TotalElements * ElementSize
	Shape         []uint64 // allocation shape: [Steps, Count...]
}

// BlockBytes returns the size of one step block in bytes.
func (r Resolution) BlockBytes() uint64 {
	return r.BlockElements * r.ElementSize
}

type config struct {
	maxBytes uint64
}

// Option configures Resolve.
type Option func(*config)

// WithMaxBytes sets the largest buffer the host can address. Selections
// larger than this fail with status.ErrSizeOverflow. The default is
// alloc.MaxSize.
func WithMaxBytes(n uint64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// Resolve computes the element count and allocation shape for a selection
// replicated across steps. It performs no allocation.
func Resolve(sel Selection, steps Steps, elementSize int, opts ...Option) (Resolution, error) {
	cfg := config{maxBytes: alloc.MaxSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	rank := len(sel.Start)
	switch {
	case len(sel.Count) != rank:
		return Resolution{}, fmt.Errorf("start has %d dims, count has %d: %w",
			rank, len(sel.Count), status.ErrInvalidArgument)
	case rank > MaxRank:
		return Resolution{}, fmt.Errorf("rank %d exceeds %d: %w", rank, MaxRank, status.ErrInvalidArgument)
	case steps.Count == 0:
		return Resolution{}, fmt.Errorf("step count must be >= 1: %w", status.ErrInvalidArgument)
	case elementSize <= 0:
		return Resolution{}, fmt.Errorf("element size %d: %w", elementSize, status.ErrInvalidArgument)
	}
	for d, c := range sel.Count {
		if c == 0 {
			return Resolution{}, fmt.Errorf("count[%d] is zero: %w", d, status.ErrInvalidArgument)
		}
	}

	block, ok := shape.Product(sel.Count)
	if !ok {
		return Resolution{}, fmt.Errorf("product of count %v: %w", sel.Count, status.ErrSizeOverflow)
	}
	total, ok := shape.Mul(block, steps.Count)
	if !ok {
		return Resolution{}, fmt.Errorf("%d elements x %d steps: %w", block, steps.Count, status.ErrSizeOverflow)
	}
	bytes, ok := shape.Mul(total, uint64(elementSize))
	if !ok || bytes > cfg.maxBytes {
		return Resolution{}, fmt.Errorf("%d elements of %d bytes exceed %d bytes: %w",
			total, elementSize, cfg.maxBytes, status.ErrSizeOverflow)
	}

	allocShape := make([]uint64, 0, rank+1)
	allocShape = append(allocShape, steps.Count)
	allocShape = append(allocShape, sel.Count...)

	return Resolution{
		Rank:          rank,
		ElementSize:   uint64(elementSize),
		BlockElements: block,
		Steps:         steps.Count,
		TotalElements: total,
		Bytes:         bytes,
		Shape:         allocShape,
	}, nil
}

// Allocate obtains a caller-owned buffer of exactly r.Bytes from a. The
// contents are undefined until a fetch fills them. On failure nothing is
// allocated.
func (r Resolution) Allocate(a *alloc.Allocator) ([]byte, error) {
	buf, err := a.Alloc(r.Bytes)
	if err != nil {
		return nil, fmt.Errorf("allocating %d elements: %w", r.TotalElements, err)
	}
	return buf, nil
}

// VarInfo is the catalog view of a variable.
type VarInfo struct {
	Name string
	Type dtype.Type
	// Shapes holds the global shape for each of the variable's steps, in
	// step order. Every entry has the same length (the rank).
	Shapes [][]uint64
}

// Rank returns the number of dimensions.
func (v VarInfo) Rank() int {
	if len(v.Shapes) == 0 {
		return 0
	}
	return len(v.Shapes[0])
}

// StepCount returns the number of steps the variable has been written at.
func (v VarInfo) StepCount() uint64 {
	return uint64(len(v.Shapes))
}

// Shape returns the shape at the latest step, or nil if none.
func (v VarInfo) Shape() []uint64 {
	if len(v.Shapes) == 0 {
		return nil
	}
	return v.Shapes[len(v.Shapes)-1]
}

// Validate checks a selection against a variable: every selected step must
// exist and the box must fit that step's shape. Out-of-range boxes are
// rejected, never clamped.
func Validate(info VarInfo, sel Selection, steps Steps) error {
	if steps.Count == 0 {
		return fmt.Errorf("step count must be >= 1: %w", status.ErrInvalidArgument)
	}
	if steps.End() < steps.Start || steps.End() > info.StepCount() {
		return fmt.Errorf("variable %q has %d steps, selected [%d, %d): %w",
			info.Name, info.StepCount(), steps.Start, steps.End(), status.ErrNotFound)
	}
	if sel.Rank() != info.Rank() {
		return fmt.Errorf("variable %q has rank %d, selection has rank %d: %w",
			info.Name, info.Rank(), sel.Rank(), status.ErrInvalidArgument)
	}
	for s := steps.Start; s < steps.End(); s++ {
		if err := shape.CheckBox(sel.Start, sel.Count, info.Shapes[s]); err != nil {
			if errors.Is(err, shape.ErrOutOfBounds) || errors.Is(err, shape.ErrRankMismatch) {
				return fmt.Errorf("variable %q step %d: %v: %w", info.Name, s, err, status.ErrInvalidArgument)
			}
			return err
		}
	}
	return nil
}

// Request describes one engine-level fetch: an N-D box replicated across a
// run of steps. The destination holds Resolution.Steps consecutive blocks.
type Request struct {
	Name       string
	Type       dtype.Type
	Selection  Selection
	Steps      Steps
	Resolution Resolution
}

// NewRequest validates and resolves a selection against info.
func NewRequest(info VarInfo, sel Selection, steps Steps, opts ...Option) (Request, error) {
	res, err := Resolve(sel, steps, info.Type.Size(), opts...)
	if err != nil {
		return Request{}, err
	}
	if err := Validate(info, sel, steps); err != nil {
		return Request{}, err
	}
	return Request{
		Name:       info.Name,
		Type:       info.Type,
		Selection:  sel,
		Steps:      steps,
		Resolution: res,
	}, nil
}
