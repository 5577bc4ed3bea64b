package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/operator"
	"github.com/robert-malhotra/go-stepio/internal/selection"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

func encode(t *testing.T, typ dtype.Type, v interface{}) []byte {
	t.Helper()
	raw, err := dtype.Encode(typ, v)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return raw
}

func fetch(t *testing.T, m *Memory, name string, sel selection.Selection, steps selection.Steps) ([]byte, error) {
	t.Helper()
	info, err := m.Lookup(name)
	if err != nil {
		return nil, err
	}
	req, err := selection.NewRequest(info, sel, steps)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, req.Resolution.Bytes)
	return dst, m.Fetch(req, dst)
}

// grid returns a rows x cols int32 grid with value 100*step + 10*row + col.
func grid(rows, cols, step int) []int32 {
	v := make([]int32, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v[r*cols+c] = int32(100*step + 10*r + c)
		}
	}
	return v
}

func TestMemoryFetchAcrossBlocksAndSteps(t *testing.T) {
	pipelines := map[string][]operator.Spec{
		"plain":   nil,
		"deflate": {{Name: operator.ShuffleName}, {Name: operator.DeflateName}},
		"check":   {{Name: operator.ChecksumName}},
	}
	for name, specs := range pipelines {
		t.Run(name, func(t *testing.T) {
			p, err := operator.NewPipeline(specs)
			if err != nil {
				t.Fatal(err)
			}
			m := NewMemory()
			if err := m.Define("g", dtype.Int32, []uint64{4, 6}, p); err != nil {
				t.Fatalf("Define failed: %v", err)
			}

			for s := 0; s < 2; s++ {
				full := grid(4, 6, s)
				// Two blocks: rows 0-1 and rows 2-3.
				if err := m.PutBlock("g", []uint64{0, 0}, []uint64{2, 6}, encode(t, dtype.Int32, full[:12]), nil); err != nil {
					t.Fatalf("PutBlock failed: %v", err)
				}
				if err := m.PutBlock("g", []uint64{2, 0}, []uint64{2, 6}, encode(t, dtype.Int32, full[12:]), nil); err != nil {
					t.Fatalf("PutBlock failed: %v", err)
				}
				m.EndStep()
			}

			raw, err := fetch(t, m, "g",
				selection.Selection{Start: []uint64{1, 2}, Count: []uint64{2, 3}},
				selection.Steps{Start: 0, Count: 2})
			if err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			var got []int32
			if err := dtype.Decode(dtype.Int32, raw, 12, &got); err != nil {
				t.Fatal(err)
			}
			want := []int32{
				12, 13, 14, 22, 23, 24,
				112, 113, 114, 122, 123, 124,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("fetched box (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMemoryVariableSteps(t *testing.T) {
	m := NewMemory()
	m.Define("a", dtype.Float64, nil, nil)
	m.Define("b", dtype.Float64, nil, nil)

	// a is written at store steps 0, 1 and 2; b only at step 1.
	for s := 0; s < 3; s++ {
		m.PutBlock("a", nil, nil, encode(t, dtype.Float64, []float64{float64(s)}), nil)
		if s == 1 {
			m.PutBlock("b", nil, nil, encode(t, dtype.Float64, []float64{42}), nil)
		}
		if got := m.EndStep(); got != uint64(s) {
			t.Errorf("EndStep = %d, want %d", got, s)
		}
	}

	info, _ := m.Lookup("b")
	if info.StepCount() != 1 {
		t.Fatalf("b has %d steps, want 1", info.StepCount())
	}
	raw, err := fetch(t, m, "b", selection.Selection{}, selection.Steps{Start: 0, Count: 1})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	var got []float64
	dtype.Decode(dtype.Float64, raw, 1, &got)
	if got[0] != 42 {
		t.Errorf("b step 0 = %v, want 42", got[0])
	}

	raw, err = fetch(t, m, "a", selection.Selection{}, selection.Steps{Start: 0, Count: 3})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	dtype.Decode(dtype.Float64, raw, 3, &got)
	if diff := cmp.Diff([]float64{0, 1, 2}, got); diff != "" {
		t.Errorf("a steps (-want +got):\n%s", diff)
	}

	if _, err := fetch(t, m, "b", selection.Selection{}, selection.Steps{Start: 1, Count: 1}); !errors.Is(err, status.ErrNotFound) {
		t.Errorf("unwritten step: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryEvolvingShape(t *testing.T) {
	m := NewMemory()
	m.Define("v", dtype.Uint8, []uint64{2}, nil)
	m.PutBlock("v", []uint64{0}, []uint64{2}, []byte{1, 2}, nil)
	m.EndStep()

	if err := m.SetShape("v", []uint64{4}); err != nil {
		t.Fatalf("SetShape failed: %v", err)
	}
	m.PutBlock("v", []uint64{0}, []uint64{4}, []byte{3, 4, 5, 6}, nil)
	m.EndStep()

	info, _ := m.Lookup("v")
	if diff := cmp.Diff([][]uint64{{2}, {4}}, info.Shapes); diff != "" {
		t.Errorf("shapes (-want +got):\n%s", diff)
	}

	raw, err := fetch(t, m, "v", selection.Selection{Start: []uint64{2}, Count: []uint64{2}}, selection.Steps{Start: 1, Count: 1})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if diff := cmp.Diff([]byte{5, 6}, raw); diff != "" {
		t.Errorf("fetched (-want +got):\n%s", diff)
	}

	// The box fits step 1 but not step 0.
	_, err = fetch(t, m, "v", selection.Selection{Start: []uint64{2}, Count: []uint64{2}}, selection.Steps{Start: 0, Count: 2})
	if !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("box outside step 0: expected ErrInvalidArgument, got %v", err)
	}

	if err := m.SetShape("v", []uint64{4, 4}); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("rank change: expected ErrInvalidArgument, got %v", err)
	}
}

func TestMemoryPutBlockErrors(t *testing.T) {
	m := NewMemory()
	if err := m.Define("v", dtype.Int16, []uint64{4, 4}, nil); err != nil {
		t.Fatal(err)
	}
	block := encode(t, dtype.Int16, make([]int16, 4))

	tests := []struct {
		name         string
		start, count []uint64
		raw          []byte
		want         error
	}{
		{"outside shape", []uint64{3, 3}, []uint64{2, 2}, block, status.ErrInvalidArgument},
		{"rank mismatch", []uint64{0}, []uint64{4}, block, status.ErrInvalidArgument},
		{"short data", []uint64{0, 0}, []uint64{2, 2}, block[:6], status.ErrInvalidArgument},
		{"empty count", []uint64{0, 0}, []uint64{0, 2}, nil, status.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.PutBlock("v", tt.start, tt.count, tt.raw, nil); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if err := m.PutBlock("v", []uint64{0, 0}, []uint64{2, 2}, block, nil); err != nil {
		t.Fatal(err)
	}
	if err := m.PutBlock("v", []uint64{1, 1}, []uint64{2, 2}, block, nil); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("overlapping block: expected ErrInvalidArgument, got %v", err)
	}
	if err := m.SetShape("v", []uint64{8, 8}); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("shape change mid-step: expected ErrInvalidArgument, got %v", err)
	}
	if err := m.PutBlock("missing", nil, nil, nil, nil); !errors.Is(err, status.ErrNotFound) {
		t.Errorf("unknown variable: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryPutBlocksAllOrNothing(t *testing.T) {
	m := NewMemory()
	if err := m.Define("v", dtype.Uint8, []uint64{6}, nil); err != nil {
		t.Fatal(err)
	}
	if err := m.PutBlock("v", []uint64{4}, []uint64{2}, []byte{5, 6}, nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		puts []Put
	}{
		{"overlaps stored block", []Put{
			{Start: []uint64{0}, Count: []uint64{2}, Raw: []byte{1, 2}},
			{Start: []uint64{3}, Count: []uint64{2}, Raw: []byte{4, 5}},
		}},
		{"overlap within call", []Put{
			{Start: []uint64{0}, Count: []uint64{2}, Raw: []byte{1, 2}},
			{Start: []uint64{1}, Count: []uint64{2}, Raw: []byte{2, 3}},
		}},
		{"short data in later put", []Put{
			{Start: []uint64{0}, Count: []uint64{2}, Raw: []byte{1, 2}},
			{Start: []uint64{2}, Count: []uint64{2}, Raw: []byte{3}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.PutBlocks("v", tt.puts); !errors.Is(err, status.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}

	if err := m.PutBlocks("v", []Put{
		{Start: []uint64{0}, Count: []uint64{2}, Raw: []byte{1, 2}},
		{Start: []uint64{2}, Count: []uint64{2}, Raw: []byte{3, 4}},
	}); err != nil {
		t.Fatalf("PutBlocks after failed calls: %v", err)
	}
	m.EndStep()

	blocks, err := m.Blocks("v", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 3 {
		t.Errorf("step holds %d blocks, want 3", len(blocks))
	}
	raw, err := fetch(t, m, "v", selection.Selection{Start: []uint64{0}, Count: []uint64{6}}, selection.Steps{Count: 1})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4, 5, 6}, raw); diff != "" {
		t.Errorf("fetched (-want +got):\n%s", diff)
	}
}

func TestMemoryDefineErrors(t *testing.T) {
	m := NewMemory()
	if err := m.Define("v", dtype.Float32, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := m.Define("v", dtype.Float32, nil, nil); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("duplicate: expected ErrInvalidArgument, got %v", err)
	}
	if err := m.Define("r7", dtype.Float32, make([]uint64, 7), nil); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("rank 7: expected ErrInvalidArgument, got %v", err)
	}
	if err := m.Define("bad", dtype.Unknown, nil, nil); !errors.Is(err, status.ErrUnsupportedType) {
		t.Errorf("unknown type: expected ErrUnsupportedType, got %v", err)
	}

	tiered, _ := operator.NewPipeline([]operator.Spec{{Name: operator.TieredName}})
	if err := m.Define("c", dtype.Complex64, []uint64{2}, tiered); !errors.Is(err, status.ErrUnsupportedType) {
		t.Errorf("tiered complex: expected ErrUnsupportedType, got %v", err)
	}
}

func TestMemoryPartialCoverage(t *testing.T) {
	m := NewMemory()
	m.Define("v", dtype.Uint8, []uint64{4}, nil)
	m.PutBlock("v", []uint64{0}, []uint64{2}, []byte{1, 2}, nil)
	m.EndStep()

	_, err := fetch(t, m, "v", selection.Selection{Start: []uint64{1}, Count: []uint64{2}}, selection.Steps{Start: 0, Count: 1})
	if !errors.Is(err, status.ErrNotFound) {
		t.Errorf("unwritten region: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryFetchChecks(t *testing.T) {
	m := NewMemory()
	m.Define("v", dtype.Uint8, []uint64{2}, nil)
	m.PutBlock("v", []uint64{0}, []uint64{2}, []byte{1, 2}, nil)
	m.EndStep()

	info, _ := m.Lookup("v")
	req, err := selection.NewRequest(info, selection.Selection{Start: []uint64{0}, Count: []uint64{2}}, selection.Steps{Count: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Fetch(req, make([]byte, 1)); !errors.Is(err, status.ErrInvalidArgument) {
		t.Errorf("short destination: expected ErrInvalidArgument, got %v", err)
	}
	req.Type = dtype.Int8
	if err := m.Fetch(req, make([]byte, 2)); !errors.Is(err, status.ErrTypeMismatch) {
		t.Errorf("wrong type: expected ErrTypeMismatch, got %v", err)
	}
}

func TestMemoryTieredBlocks(t *testing.T) {
	p, err := operator.NewPipeline([]operator.Spec{
		{Name: operator.TieredName, Params: operator.Params{"tier_count": "3"}},
		{Name: operator.DeflateName},
	})
	if err != nil {
		t.Fatal(err)
	}
	m := NewMemory()
	m.Define("t", dtype.Float32, []uint64{10}, p)
	data := []float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	if err := m.PutBlock("t", []uint64{0}, []uint64{10}, encode(t, dtype.Float32, data), nil); err != nil {
		t.Fatal(err)
	}
	m.EndStep()

	blocks, err := m.Blocks("t", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 || len(blocks[0].Frames) != 3 {
		t.Fatalf("expected one block of three frames, got %d blocks", len(blocks))
	}

	raw, err := fetch(t, m, "t", selection.Selection{Start: []uint64{3}, Count: []uint64{4}}, selection.Steps{Count: 1})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	var got []float32
	dtype.Decode(dtype.Float32, raw, 4, &got)
	if diff := cmp.Diff([]float32{3, 4, 5, 6}, got); diff != "" {
		t.Errorf("fetched (-want +got):\n%s", diff)
	}
}

func TestMemoryDescribe(t *testing.T) {
	p, _ := operator.NewPipeline([]operator.Spec{{Name: operator.ChecksumName}})
	m := NewMemory()
	m.Define("temp", dtype.Float64, []uint64{2}, p)
	m.Define("count", dtype.Int64, nil, nil)
	m.PutBlock("temp", []uint64{0}, []uint64{2}, encode(t, dtype.Float64, []float64{1.5, -2}),
		&Stats{Min: -2.0, Max: 1.5})
	m.EndStep()

	if diff := cmp.Diff([]string{"count", "temp"}, m.Variables()); diff != "" {
		t.Errorf("Variables (-want +got):\n%s", diff)
	}

	desc := m.Describe()
	if len(desc) != 2 || desc[1].Name != "temp" {
		t.Fatalf("Describe = %+v", desc)
	}
	temp := desc[1]
	if temp.Type != "float64" || len(temp.Steps) != 1 || len(temp.Steps[0].Blocks) != 1 {
		t.Errorf("temp summary = %+v", temp)
	}
	if temp.StoredBytes == 0 || temp.StoredBytes != temp.Steps[0].Blocks[0].StoredBytes {
		t.Errorf("stored bytes = %d", temp.StoredBytes)
	}

	js, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	for _, want := range []string{`"steps":1`, `"name":"temp"`, `"name":"checksum"`, `"min":-2`} {
		if !strings.Contains(string(js), want) {
			t.Errorf("JSON missing %s: %s", want, js)
		}
	}
}
