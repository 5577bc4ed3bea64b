package stepio

import (
	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/operator"
	"github.com/robert-malhotra/go-stepio/internal/selection"
	"github.com/robert-malhotra/go-stepio/internal/store"
)

// Type is a variable's element type.
type Type = dtype.Type

// Element types.
const (
	Int8       = dtype.Int8
	Int16      = dtype.Int16
	Int32      = dtype.Int32
	Int64      = dtype.Int64
	Uint8      = dtype.Uint8
	Uint16     = dtype.Uint16
	Uint32     = dtype.Uint32
	Uint64     = dtype.Uint64
	Float32    = dtype.Float32
	Float64    = dtype.Float64
	Complex64  = dtype.Complex64
	Complex128 = dtype.Complex128
	Bool       = dtype.Bool
	LongDouble = dtype.LongDouble
)

// VarInfo is the catalog entry of a variable.
type VarInfo = selection.VarInfo

// Request is the single fetch a read issues to the engine.
type Request = selection.Request

// Memory is the in-memory step-indexed engine and catalog.
type Memory = store.Memory

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return store.NewMemory()
}

// Params configures a compression operator.
type Params = operator.Params

// TierSession holds the state of multi-tier operators.
type TierSession = operator.TierSession

// NewTierSession creates a tier session positioned at tier 0.
func NewTierSession() *TierSession {
	return operator.NewTierSession()
}

// Catalog resolves variable names.
type Catalog interface {
	Lookup(name string) (VarInfo, error)
	Variables() []string
}

// Engine performs the data transfer for one resolved request, filling dst
// with Request.Resolution.Steps consecutive row-major blocks.
type Engine interface {
	Fetch(req Request, dst []byte) error
}

// BlockLister is implemented by catalogs that keep per-block statistics.
type BlockLister interface {
	Blocks(name string, step uint64) ([]*store.Block, error)
}
