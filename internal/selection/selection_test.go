package selection

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robert-malhotra/go-stepio/internal/alloc"
	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

func TestResolveCounts(t *testing.T) {
	tests := []struct {
		name  string
		sel   Selection
		steps Steps
		want  uint64
	}{
		{"1d", Selection{Start: []uint64{0}, Count: []uint64{7}}, Steps{0, 1}, 7},
		{"2d three steps", Selection{Start: []uint64{10, 10}, Count: []uint64{5, 5}}, Steps{0, 3}, 75},
		{"3d", Selection{Start: []uint64{0, 1, 2}, Count: []uint64{2, 3, 4}}, Steps{4, 2}, 48},
		{"6d", Selection{Start: make([]uint64, 6), Count: []uint64{1, 2, 1, 2, 1, 2}}, Steps{0, 5}, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Resolve(tt.sel, tt.steps, 8)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if res.TotalElements != tt.want {
				t.Errorf("TotalElements = %d, want %d", res.TotalElements, tt.want)
			}
			if res.Bytes != tt.want*8 {
				t.Errorf("Bytes = %d, want %d", res.Bytes, tt.want*8)
			}
			if res.Shape[0] != tt.steps.Count {
				t.Errorf("allocation shape %v must lead with step count %d", res.Shape, tt.steps.Count)
			}
		})
	}
}

func TestResolveScalarSteps(t *testing.T) {
	for _, n := range []uint64{1, 2, 9} {
		res, err := Resolve(Selection{}, Steps{Start: 3, Count: n}, 4)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if res.TotalElements != n {
			t.Errorf("rank 0 with %d steps: TotalElements = %d", n, res.TotalElements)
		}
		if diff := cmp.Diff([]uint64{n}, res.Shape); diff != "" {
			t.Errorf("allocation shape mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestResolveInvalid(t *testing.T) {
	tests := []struct {
		name  string
		sel   Selection
		steps Steps
		size  int
	}{
		{"rank mismatch", Selection{Start: []uint64{0}, Count: []uint64{1, 1}}, Steps{0, 1}, 4},
		{"zero count", Selection{Start: []uint64{0, 0}, Count: []uint64{1, 0}}, Steps{0, 1}, 4},
		{"zero steps", Selection{Start: []uint64{0}, Count: []uint64{1}}, Steps{0, 0}, 4},
		{"rank 7", Selection{Start: make([]uint64, 7), Count: []uint64{1, 1, 1, 1, 1, 1, 1}}, Steps{0, 1}, 4},
		{"no element size", Selection{}, Steps{0, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.sel, tt.steps, tt.size)
			if !errors.Is(err, status.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestResolveOverflow(t *testing.T) {
	sel := Selection{Start: []uint64{0, 0}, Count: []uint64{math.MaxUint32 + 1, math.MaxUint32 + 1}}
	if _, err := Resolve(sel, Steps{0, 1}, 1); !errors.Is(err, status.ErrSizeOverflow) {
		t.Errorf("element product: expected ErrSizeOverflow, got %v", err)
	}

	sel = Selection{Start: []uint64{0}, Count: []uint64{1 << 40}}
	if _, err := Resolve(sel, Steps{0, 1 << 30}, 1); !errors.Is(err, status.ErrSizeOverflow) {
		t.Errorf("step product: expected ErrSizeOverflow, got %v", err)
	}

	sel = Selection{Start: []uint64{0}, Count: []uint64{1024}}
	if _, err := Resolve(sel, Steps{0, 1}, 8, WithMaxBytes(4096)); !errors.Is(err, status.ErrSizeOverflow) {
		t.Errorf("host limit: expected ErrSizeOverflow, got %v", err)
	}

	// Fits uint64 and the shape, but not the host.
	sel = Selection{Start: []uint64{0}, Count: []uint64{1 << 47}}
	if _, err := Resolve(sel, Steps{0, 1}, 8); !errors.Is(err, status.ErrSizeOverflow) {
		t.Errorf("default host limit: expected ErrSizeOverflow, got %v", err)
	}
}

func testInfo() VarInfo {
	return VarInfo{
		Name:   "temperature",
		Type:   dtype.Float64,
		Shapes: [][]uint64{{100, 100}, {100, 100}, {100, 100}},
	}
}

func TestNewRequestScenario(t *testing.T) {
	req, err := NewRequest(testInfo(),
		Selection{Start: []uint64{10, 10}, Count: []uint64{5, 5}}, Steps{Start: 0, Count: 3})
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	if req.Resolution.TotalElements != 75 {
		t.Errorf("TotalElements = %d, want 75", req.Resolution.TotalElements)
	}
	if req.Resolution.ElementSize != 8 {
		t.Errorf("ElementSize = %d, want 8", req.Resolution.ElementSize)
	}
}

func TestValidateOutOfBounds(t *testing.T) {
	err := Validate(testInfo(), Selection{Start: []uint64{98, 0}, Count: []uint64{5, 5}}, Steps{0, 1})
	if !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestValidateEvolvingShape(t *testing.T) {
	info := VarInfo{
		Name:   "particles",
		Type:   dtype.Float32,
		Shapes: [][]uint64{{10}, {20}, {5}},
	}
	sel := Selection{Start: []uint64{0}, Count: []uint64{8}}
	if err := Validate(info, sel, Steps{0, 2}); err != nil {
		t.Errorf("steps 0-1 should accept count 8: %v", err)
	}
	if err := Validate(info, sel, Steps{1, 2}); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("step 2 has size 5, expected ErrInvalidArgument, got %v", err)
	}
}

func TestValidateMissingStep(t *testing.T) {
	err := Validate(testInfo(), Selection{Start: []uint64{0, 0}, Count: []uint64{1, 1}}, Steps{2, 2})
	if !errors.Is(err, status.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAllocate(t *testing.T) {
	res, err := Resolve(Selection{Start: []uint64{0}, Count: []uint64{16}}, Steps{0, 2}, 4)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	a := alloc.New()
	buf, err := res.Allocate(a)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(buf) != 128 {
		t.Errorf("buffer length = %d, want 128", len(buf))
	}

	small := alloc.New(alloc.WithLimit(64))
	buf, err = res.Allocate(small)
	if !errors.Is(err, status.ErrOutOfMemory) {
		t.Errorf("expected ErrOutOfMemory, got %v", err)
	}
	if buf != nil || small.InUse() != 0 {
		t.Error("failed allocation must leave nothing allocated")
	}
}
