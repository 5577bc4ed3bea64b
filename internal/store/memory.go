// Package store implements an in-memory, step-indexed storage engine and
// variable catalog.
package store

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/operator"
	"github.com/robert-malhotra/go-stepio/internal/selection"
	"github.com/robert-malhotra/go-stepio/internal/shape"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

// Stats holds the extremes of a block, boxed in the variable's Go type.
type Stats struct {
	Min interface{} `json:"min"`
	Max interface{} `json:"max"`
}

// Block is one stored box of a variable at one step.
type Block struct {
	Start  []uint64
	Count  []uint64
	Frames [][]byte // pipeline output
	Stats  *Stats   // nil when not computed
}

// StoredBytes returns the total size of the block's frames.
func (b *Block) StoredBytes() int {
	n := 0
	for _, f := range b.Frames {
		n += len(f)
	}
	return n
}

type step struct {
	global uint64 // store step the variable was written at
	shape  []uint64
	blocks []*Block
}

type variable struct {
	name     string
	typ      dtype.Type
	shape    []uint64 // shape for the next step
	pipeline *operator.Pipeline
	steps    []*step
	pending  *step
}

// Memory is a thread-safe in-memory engine. Writes accumulate in a pending
// step that EndStep commits; reads only see committed steps.
type Memory struct {
	mu    sync.RWMutex
	vars  map[string]*variable
	steps uint64 // committed store steps
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{vars: make(map[string]*variable)}
}

// Define registers a variable. A nil pipeline stores blocks unencoded.
func (m *Memory) Define(name string, typ dtype.Type, shp []uint64, p *operator.Pipeline) error {
	switch {
	case name == "":
		return fmt.Errorf("variable name is empty: %w", status.ErrInvalidArgument)
	case !typ.Valid():
		return fmt.Errorf("variable %q: %v: %w", name, typ, status.ErrUnsupportedType)
	case len(shp) > selection.MaxRank:
		return fmt.Errorf("variable %q: rank %d exceeds %d: %w", name, len(shp), selection.MaxRank, status.ErrInvalidArgument)
	}
	if p == nil {
		p = &operator.Pipeline{}
	}
	if err := p.Validate(typ); err != nil {
		return fmt.Errorf("variable %q: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vars[name]; ok {
		return fmt.Errorf("variable %q already defined: %w", name, status.ErrInvalidArgument)
	}
	m.vars[name] = &variable{
		name:     name,
		typ:      typ,
		shape:    slices.Clone(shp),
		pipeline: p,
	}
	return nil
}

// SetShape changes the global shape used from the current step on. The rank
// cannot change, and a step that already holds blocks keeps its shape.
func (m *Memory) SetShape(name string, shp []uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.variable(name)
	if err != nil {
		return err
	}
	if len(shp) != len(v.shape) {
		return fmt.Errorf("variable %q has rank %d, new shape %v: %w",
			name, len(v.shape), shp, status.ErrInvalidArgument)
	}
	if v.pending != nil && len(v.pending.blocks) > 0 {
		return fmt.Errorf("variable %q: shape change after blocks were put in step %d: %w",
			name, m.steps, status.ErrInvalidArgument)
	}
	v.shape = slices.Clone(shp)
	return nil
}

// Put is one box of row-major element bytes for PutBlocks.
type Put struct {
	Start, Count []uint64
	Raw          []byte
	Stats        *Stats
}

// PutBlock encodes raw, the row-major elements of the box (start, count),
// and adds it to the pending step. Blocks of one step may not overlap.
func (m *Memory) PutBlock(name string, start, count []uint64, raw []byte, stats *Stats) error {
	return m.PutBlocks(name, []Put{{Start: start, Count: count, Raw: raw, Stats: stats}})
}

// PutBlocks adds several blocks to the pending step. Either all of them are
// stored or, on error, none is.
func (m *Memory) PutBlocks(name string, puts []Put) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.variable(name)
	if err != nil {
		return err
	}

	var existing []*Block
	if v.pending != nil {
		existing = v.pending.blocks
	}
	blocks := make([]*Block, 0, len(puts))
	for _, p := range puts {
		if err := v.checkPut(p); err != nil {
			return err
		}
		for _, b := range slices.Concat(existing, blocks) {
			if len(p.Start) == 0 {
				return fmt.Errorf("variable %q: scalar already written in step %d: %w", name, m.steps, status.ErrInvalidArgument)
			}
			if _, _, overlap := shape.Overlap(b.Start, b.Count, p.Start, p.Count); overlap {
				return fmt.Errorf("variable %q: block at %v overlaps block at %v: %w",
					name, p.Start, b.Start, status.ErrInvalidArgument)
			}
		}
		blocks = append(blocks, &Block{
			Start: slices.Clone(p.Start),
			Count: slices.Clone(p.Count),
			Stats: p.Stats,
		})
	}

	for i, p := range puts {
		frames, err := v.pipeline.Encode(p.Raw, p.Count, v.typ)
		if err != nil {
			return fmt.Errorf("variable %q: %w", name, err)
		}
		blocks[i].Frames = frames
	}

	if v.pending == nil {
		v.pending = &step{global: m.steps, shape: slices.Clone(v.shape)}
	}
	v.pending.blocks = append(v.pending.blocks, blocks...)
	return nil
}

// checkPut validates a box and its data against the variable's shape.
func (v *variable) checkPut(p Put) error {
	if err := shape.CheckBox(p.Start, p.Count, v.shape); err != nil {
		return fmt.Errorf("variable %q: %v: %w", v.name, err, status.ErrInvalidArgument)
	}
	if slices.Contains(p.Count, 0) {
		return fmt.Errorf("variable %q: empty block %v: %w", v.name, p.Count, status.ErrInvalidArgument)
	}
	n, ok := shape.Product(p.Count)
	if !ok {
		return fmt.Errorf("variable %q: block %v: %w", v.name, p.Count, status.ErrSizeOverflow)
	}
	if want := n * uint64(v.typ.Size()); uint64(len(p.Raw)) != want {
		return fmt.Errorf("variable %q: block of %v %v needs %d bytes, got %d: %w",
			v.name, p.Count, v.typ, want, len(p.Raw), status.ErrInvalidArgument)
	}
	return nil
}

// Step returns the index of the step being written.
func (m *Memory) Step() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.steps
}

// EndStep commits the pending step of every variable that received blocks
// and returns the committed store step. Variables written in this step gain
// one variable step each; others are unchanged.
func (m *Memory) EndStep() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vars {
		if v.pending != nil {
			v.steps = append(v.steps, v.pending)
			v.pending = nil
		}
	}
	m.steps++
	return m.steps - 1
}

// Lookup returns the catalog entry of a variable: its type and the shape of
// every committed step.
func (m *Memory) Lookup(name string) (selection.VarInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, err := m.variable(name)
	if err != nil {
		return selection.VarInfo{}, err
	}
	return v.info(), nil
}

func (v *variable) info() selection.VarInfo {
	shapes := make([][]uint64, len(v.steps))
	for i, s := range v.steps {
		shapes[i] = slices.Clone(s.shape)
	}
	return selection.VarInfo{Name: v.name, Type: v.typ, Shapes: shapes}
}

// Variables returns the defined variable names in sorted order.
func (m *Memory) Variables() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.vars))
	for name := range m.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Blocks returns the committed blocks of a variable at one of its steps.
func (m *Memory) Blocks(name string, varStep uint64) ([]*Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, err := m.variable(name)
	if err != nil {
		return nil, err
	}
	if varStep >= uint64(len(v.steps)) {
		return nil, fmt.Errorf("variable %q has %d steps, requested %d: %w",
			name, len(v.steps), varStep, status.ErrNotFound)
	}
	return slices.Clone(v.steps[varStep].blocks), nil
}

// Fetch fills dst with the box of req for every requested step, one block
// after the other. Stored blocks overlapping the box are decoded through
// the variable's pipeline. Every element of the box must have been written.
// Decoding may advance tier sessions, so Fetch holds the store exclusively.
func (m *Memory) Fetch(req selection.Request, dst []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.variable(req.Name)
	if err != nil {
		return err
	}
	if req.Type != v.typ {
		return fmt.Errorf("variable %q holds %v, request is for %v: %w", v.name, v.typ, req.Type, status.ErrTypeMismatch)
	}
	res := req.Resolution
	if uint64(len(dst)) != res.Bytes {
		return fmt.Errorf("destination holds %d bytes, selection needs %d: %w", len(dst), res.Bytes, status.ErrInvalidArgument)
	}
	if err := selection.Validate(v.info(), req.Selection, req.Steps); err != nil {
		return err
	}

	blockBytes := res.BlockBytes()
	for i := uint64(0); i < req.Steps.Count; i++ {
		s := v.steps[req.Steps.Start+i]
		out := dst[i*blockBytes : (i+1)*blockBytes]
		if err := v.fill(s, req.Selection, out); err != nil {
			return fmt.Errorf("variable %q step %d: %w", v.name, req.Steps.Start+i, err)
		}
	}
	return nil
}

// fill copies the selected box of one step into out.
func (v *variable) fill(s *step, sel selection.Selection, out []byte) error {
	want := shape.MustProduct(sel.Count)
	var covered uint64
	for _, b := range s.blocks {
		_, ov, ok := shape.Overlap(sel.Start, sel.Count, b.Start, b.Count)
		if !ok {
			continue
		}
		raw, err := v.pipeline.Decode(b.Frames, b.Count, v.typ)
		if err != nil {
			return err
		}
		shape.CopyOverlap(out, sel.Start, sel.Count, raw, b.Start, b.Count, uint64(v.typ.Size()))
		covered += shape.MustProduct(ov)
	}
	if covered != want {
		return fmt.Errorf("%d of %d selected elements were written: %w", covered, want, status.ErrNotFound)
	}
	return nil
}

func (m *Memory) variable(name string) (*variable, error) {
	v, ok := m.vars[name]
	if !ok {
		return nil, fmt.Errorf("variable %q: %w", name, status.ErrNotFound)
	}
	return v, nil
}
