package stepio

import (
	"fmt"
	"slices"
	"sync"

	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/operator"
	"github.com/robert-malhotra/go-stepio/internal/reduce"
	"github.com/robert-malhotra/go-stepio/internal/shape"
	"github.com/robert-malhotra/go-stepio/internal/store"
)

// Writer defines variables in a Memory store and writes them step by step.
// Blocks put between BeginStep and EndStep form one step.
type Writer struct {
	mu     sync.Mutex
	store  *store.Memory
	opts   *writerOptions
	vars   map[string]*varConfig
	inStep bool
}

type varConfig struct {
	typ    dtype.Type
	shape  []uint64
	chunks []uint64
	stats  bool
}

// NewWriter creates a Writer over m.
func NewWriter(m *Memory, opts ...WriterOption) *Writer {
	o := &writerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return &Writer{
		store: m,
		opts:  o,
		vars:  make(map[string]*varConfig),
	}
}

// DefineVariable declares a variable with its element type and initial
// global shape. An empty shape declares a single value per step.
func (w *Writer) DefineVariable(name string, typ Type, shp []uint64, opts ...VariableOption) error {
	vo := defaultVariableOptions()
	for _, opt := range opts {
		opt(vo)
	}
	if vo.chunks != nil {
		if len(vo.chunks) != len(shp) {
			return fmt.Errorf("variable %q: chunk rank %d, shape rank %d: %w",
				name, len(vo.chunks), len(shp), ErrInvalidArgument)
		}
		if slices.Contains(vo.chunks, 0) {
			return fmt.Errorf("variable %q: zero chunk dimension in %v: %w", name, vo.chunks, ErrInvalidArgument)
		}
	}

	p, err := operator.NewPipeline(vo.ops, operator.WithSession(w.opts.session))
	if err != nil {
		return fmt.Errorf("variable %q: %w", name, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.store.Define(name, typ, shp, p); err != nil {
		return err
	}
	w.vars[name] = &varConfig{
		typ:    typ,
		shape:  slices.Clone(shp),
		chunks: slices.Clone(vo.chunks),
		stats:  vo.stats,
	}
	return nil
}

// SetShape changes a variable's global shape from the current step on.
func (w *Writer) SetShape(name string, shp []uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	vc, err := w.variable(name)
	if err != nil {
		return err
	}
	if err := w.store.SetShape(name, shp); err != nil {
		return err
	}
	vc.shape = slices.Clone(shp)
	return nil
}

// BeginStep starts a step and returns its index in the store.
func (w *Writer) BeginStep() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inStep = true
	return w.store.Step()
}

// EndStep commits the current step and returns its index.
func (w *Writer) EndStep() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.inStep {
		return 0, fmt.Errorf("end step without begin: %w", ErrInvalidArgument)
	}
	w.inStep = false
	return w.store.EndStep(), nil
}

// PutBlock writes data, the row-major elements of the box (start, count),
// to the current step. data is a []T of the variable's type ([]byte for
// LongDouble) with exactly product(count) elements.
func (w *Writer) PutBlock(name string, start, count []uint64, data interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	vc, err := w.variable(name)
	if err != nil {
		return err
	}
	if !w.inStep {
		return fmt.Errorf("variable %q: put outside a step: %w", name, ErrInvalidArgument)
	}
	if len(start) != len(count) || len(start) != len(vc.shape) {
		return fmt.Errorf("variable %q: box %v+%v for rank %d: %w",
			name, start, count, len(vc.shape), ErrInvalidArgument)
	}
	if slices.Contains(count, 0) {
		return fmt.Errorf("variable %q: empty block %v: %w", name, count, ErrInvalidArgument)
	}
	n, ok := shape.Product(count)
	if !ok {
		return fmt.Errorf("variable %q: block %v: %w", name, count, ErrSizeOverflow)
	}
	raw, err := dtype.Encode(vc.typ, data)
	if err != nil {
		return fmt.Errorf("variable %q: %w", name, err)
	}
	if got := dtype.Len(vc.typ, data); uint64(got) != n {
		return fmt.Errorf("variable %q: block %v needs %d elements, got %d: %w",
			name, count, n, got, ErrInvalidArgument)
	}
	return w.putChunks(name, vc, start, count, raw)
}

// Put writes data as the whole current shape of a variable.
func (w *Writer) Put(name string, data interface{}) error {
	w.mu.Lock()
	vc, err := w.variable(name)
	var shp []uint64
	if err == nil {
		shp = slices.Clone(vc.shape)
	}
	w.mu.Unlock()
	if err != nil {
		return err
	}
	return w.PutBlock(name, make([]uint64, len(shp)), shp, data)
}

// PutValue writes a single value of a rank-0 variable.
func (w *Writer) PutValue(name string, value interface{}) error {
	return w.PutBlock(name, nil, nil, value)
}

// putChunks stores the chunks of one put in a single store call, so a
// failing chunk leaves none of them behind.
func (w *Writer) putChunks(name string, vc *varConfig, start, count []uint64, raw []byte) error {
	elemSize := uint64(vc.typ.Size())
	boxes := shape.Chunks(start, count, vc.chunks)
	puts := make([]store.Put, 0, len(boxes))
	for _, c := range boxes {
		part := raw
		if len(c.Count) > 0 && !slices.Equal(c.Count, count) {
			rel := make([]uint64, len(c.Start))
			for d := range rel {
				rel[d] = c.Start[d] - start[d]
			}
			part = shape.Extract(raw, count, rel, c.Count, elemSize)
		}
		stats, err := w.blockStats(vc, part)
		if err != nil {
			return fmt.Errorf("variable %q: %w", name, err)
		}
		puts = append(puts, store.Put{Start: c.Start, Count: c.Count, Raw: part, Stats: stats})
	}
	return w.store.PutBlocks(name, puts)
}

// blockStats reduces a block to its extremes. Types without an order are
// stored without statistics.
func (w *Writer) blockStats(vc *varConfig, raw []byte) (*store.Stats, error) {
	if !vc.stats || !vc.typ.IsOrdered() {
		return nil, nil
	}
	lo, hi, err := reduce.MinMaxBytes(raw, vc.typ, len(raw)/vc.typ.Size(), w.opts.reduce...)
	if err != nil {
		return nil, err
	}
	return &store.Stats{Min: lo, Max: hi}, nil
}

func (w *Writer) variable(name string) (*varConfig, error) {
	vc, ok := w.vars[name]
	if !ok {
		return nil, fmt.Errorf("variable %q: %w", name, ErrNotFound)
	}
	return vc, nil
}
