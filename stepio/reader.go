package stepio

import (
	"errors"
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-stepio/internal/alloc"
	"github.com/robert-malhotra/go-stepio/internal/selection"
)

// Reader reads typed selections of step-indexed variables. It holds no
// mutable state besides its allocator, so one Reader may serve concurrent
// reads when its Catalog and Engine are safe for concurrent use.
type Reader struct {
	catalog  Catalog
	engine   Engine
	alloc    *alloc.Allocator
	maxBytes uint64
}

// NewReader creates a Reader resolving names through c and transferring
// data through e.
func NewReader(c Catalog, e Engine, opts ...ReaderOption) *Reader {
	o := &readerOptions{maxBytes: alloc.MaxSize}
	for _, opt := range opts {
		opt(o)
	}
	var aopts []alloc.Option
	if o.memLimit > 0 {
		aopts = append(aopts, alloc.WithLimit(o.memLimit))
	}
	if o.mem != nil {
		aopts = append(aopts, alloc.WithMemory(o.mem))
	}
	return &Reader{
		catalog:  c,
		engine:   e,
		alloc:    alloc.New(aopts...),
		maxBytes: o.maxBytes,
	}
}

// Open creates a Reader over an in-memory store, which serves as both
// catalog and engine.
func Open(m *Memory, opts ...ReaderOption) *Reader {
	return NewReader(m, m, opts...)
}

// ReadSelection reads the box (start, count) of a variable across the
// variable steps [stepStart, stepStart+stepCount) into out, which must be a
// *[]T matching the variable's type (*[]byte for LongDouble). The result
// holds stepCount consecutive row-major blocks.
func (r *Reader) ReadSelection(name string, out interface{}, start, count []uint64, stepStart, stepCount uint64) error {
	info, acc, err := r.prepare(name, out)
	if err != nil {
		return err
	}
	raw, n, err := r.fetch(info, selection.Selection{Start: start, Count: count},
		selection.Steps{Start: stepStart, Count: stepCount})
	if err != nil {
		return err
	}
	defer r.alloc.Free(raw)
	return acc.decode(raw, n, out)
}

// ReadValue reads a rank-0 variable at one step into out, a *T.
func (r *Reader) ReadValue(name string, out interface{}, step uint64) error {
	info, acc, err := r.prepare(name, out)
	if err != nil {
		return err
	}
	if info.Rank() != 0 {
		return fmt.Errorf("variable %q has rank %d, not a single value: %w", name, info.Rank(), ErrInvalidArgument)
	}
	raw, n, err := r.fetch(info, selection.Selection{}, selection.Steps{Start: step, Count: 1})
	if err != nil {
		return err
	}
	defer r.alloc.Free(raw)
	return acc.decode(raw, n, out)
}

// ReadRaw returns the little-endian element bytes of a selection. It works
// for every type, including those without a Go representation.
func (r *Reader) ReadRaw(name string, start, count []uint64, stepStart, stepCount uint64) ([]byte, VarInfo, error) {
	info, err := r.lookup(name)
	if err != nil {
		return nil, VarInfo{}, err
	}
	raw, _, err := r.fetch(info, selection.Selection{Start: start, Count: count},
		selection.Steps{Start: stepStart, Count: stepCount})
	if err != nil {
		return nil, VarInfo{}, err
	}
	defer r.alloc.Free(raw)
	return slices.Clone(raw), info, nil
}

// Read is ReadSelection returning a new slice.
func Read[T any](r *Reader, name string, start, count []uint64, stepStart, stepCount uint64) ([]T, error) {
	var out []T
	if err := r.ReadSelection(name, &out, start, count, stepStart, stepCount); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadValue is Reader.ReadValue returning the value.
func ReadValue[T any](r *Reader, name string, step uint64) (T, error) {
	var v T
	err := r.ReadValue(name, &v, step)
	return v, err
}

// Variables returns the names known to the catalog.
func (r *Reader) Variables() []string {
	return r.catalog.Variables()
}

// Inspect returns the catalog entry of a variable.
func (r *Reader) Inspect(name string) (VarInfo, error) {
	return r.lookup(name)
}

// BlockStat describes one block written at a variable step.
type BlockStat struct {
	Start    []uint64
	Count    []uint64
	Min, Max interface{}
	HasStats bool
}

// BlockStats returns the blocks of a variable step with the min/max
// recorded when they were written. The catalog must implement BlockLister.
func (r *Reader) BlockStats(name string, step uint64) ([]BlockStat, error) {
	bl, ok := r.catalog.(BlockLister)
	if !ok {
		return nil, fmt.Errorf("catalog %T keeps no block statistics: %w", r.catalog, ErrInvalidArgument)
	}
	blocks, err := bl.Blocks(name, step)
	if err != nil {
		return nil, err
	}
	stats := make([]BlockStat, len(blocks))
	for i, b := range blocks {
		stats[i] = BlockStat{Start: b.Start, Count: b.Count}
		if b.Stats != nil {
			stats[i].Min, stats[i].Max, stats[i].HasStats = b.Stats.Min, b.Stats.Max, true
		}
	}
	return stats, nil
}

// MemoryInUse returns the staging bytes currently held by reads.
func (r *Reader) MemoryInUse() uint64 {
	return r.alloc.InUse()
}

// prepare looks up name and checks out against its type. Nothing is
// allocated.
func (r *Reader) prepare(name string, out interface{}) (VarInfo, accessor, error) {
	info, err := r.lookup(name)
	if err != nil {
		return VarInfo{}, nil, err
	}
	acc, err := accessorFor(info.Type)
	if err != nil {
		return VarInfo{}, nil, fmt.Errorf("variable %q: %w", name, err)
	}
	if err := acc.check(out); err != nil {
		return VarInfo{}, nil, fmt.Errorf("variable %q: %w", name, err)
	}
	return info, acc, nil
}

func (r *Reader) lookup(name string) (VarInfo, error) {
	info, err := r.catalog.Lookup(name)
	if err != nil {
		return VarInfo{}, engineError("looking up "+name, err)
	}
	if info.Rank() > MaxRank {
		return VarInfo{}, fmt.Errorf("variable %q has rank %d: %w", name, info.Rank(), ErrInvalidArgument)
	}
	return info, nil
}

// fetch resolves the selection, allocates its buffer and issues exactly one
// engine fetch. The caller frees the returned buffer.
func (r *Reader) fetch(info VarInfo, sel selection.Selection, steps selection.Steps) ([]byte, int, error) {
	req, err := selection.NewRequest(info, sel, steps, selection.WithMaxBytes(r.maxBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("variable %q: %w", info.Name, err)
	}
	buf, err := req.Resolution.Allocate(r.alloc)
	if err != nil {
		return nil, 0, fmt.Errorf("variable %q: %w", info.Name, err)
	}
	if err := r.engine.Fetch(req, buf); err != nil {
		r.alloc.Free(buf)
		return nil, 0, engineError("reading "+info.Name, err)
	}
	return buf, int(req.Resolution.TotalElements), nil
}

// engineError keeps missing data as ErrNotFound and classifies every other
// collaborator failure as ErrEngineFailure.
func engineError(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrEngineFailure, err)
}
