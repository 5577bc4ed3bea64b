package dtype

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robert-malhotra/go-stepio/internal/status"
)

func TestTypeSizes(t *testing.T) {
	tests := []struct {
		typ  Type
		size int
	}{
		{Int8, 1}, {Int16, 2}, {Int32, 4}, {Int64, 8},
		{Uint8, 1}, {Uint16, 2}, {Uint32, 4}, {Uint64, 8},
		{Float32, 4}, {Float64, 8},
		{Complex64, 8}, {Complex128, 16},
		{Bool, 1}, {LongDouble, 16},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			if got := tt.typ.Size(); got != tt.size {
				t.Errorf("Size() = %d, want %d", got, tt.size)
			}
			if gt := tt.typ.GoType(); gt != nil && int(gt.Size()) != tt.size {
				t.Errorf("Go type %v has size %d, want %d", gt, gt.Size(), tt.size)
			}
		})
	}
}

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		v    interface{}
		want Type
	}{
		{"slice", []float32{1}, Float32},
		{"pointer to slice", &[]int16{}, Int16},
		{"scalar", complex64(1), Complex64},
		{"array", [3]uint64{}, Uint64},
		{"bool", []bool{true}, Bool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Of(tt.v)
			if err != nil {
				t.Fatalf("Of failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Of(%T) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}

	if _, err := Of([]string{"x"}); err == nil {
		t.Error("expected error for string slice")
	}
}

func TestIsOrdered(t *testing.T) {
	for _, typ := range All {
		want := typ != Complex64 && typ != Complex128 && typ != Bool && typ != LongDouble
		if got := typ.IsOrdered(); got != want {
			t.Errorf("%v.IsOrdered() = %v, want %v", typ, got, want)
		}
	}
}

func TestEncodeDecodeLittleEndian(t *testing.T) {
	raw, err := Encode(Int32, []int32{1, -2})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := []byte{0x01, 0, 0, 0, 0xFE, 0xFF, 0xFF, 0xFF}
	if diff := cmp.Diff(want, raw); diff != "" {
		t.Errorf("encoded bytes mismatch (-want +got):\n%s", diff)
	}

	var out []int32
	if err := Decode(Int32, raw, 2, &out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff([]int32{1, -2}, out); diff != "" {
		t.Errorf("decoded mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeComplexAndBool(t *testing.T) {
	src := []complex128{complex(1, 2), complex(-3.5, 0)}
	raw, err := Encode(Complex128, src)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var out []complex128
	if err := Decode(Complex128, raw, len(src), &out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(out, src) {
		t.Errorf("got %v, want %v", out, src)
	}

	braw, err := Encode(Bool, []bool{true, false, true})
	if err != nil {
		t.Fatalf("Encode bool failed: %v", err)
	}
	var b []bool
	if err := Decode(Bool, braw, 3, &b); err != nil {
		t.Fatalf("Decode bool failed: %v", err)
	}
	if diff := cmp.Diff([]bool{true, false, true}, b); diff != "" {
		t.Errorf("bool mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeScalar(t *testing.T) {
	raw, _ := Encode(Float64, []float64{2.5})
	var v float64
	if err := Decode(Float64, raw, 1, &v); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if v != 2.5 {
		t.Errorf("got %v, want 2.5", v)
	}
}

func TestTypeMismatch(t *testing.T) {
	if _, err := Encode(Float64, []float32{1}); !errors.Is(err, status.ErrTypeMismatch) {
		t.Errorf("Encode: expected ErrTypeMismatch, got %v", err)
	}

	var out []float32
	raw := make([]byte, 16)
	if err := Decode(Float64, raw, 2, &out); !errors.Is(err, status.ErrTypeMismatch) {
		t.Errorf("Decode: expected ErrTypeMismatch, got %v", err)
	}
	if out != nil {
		t.Error("destination must be untouched on mismatch")
	}
}

func TestLongDoubleRaw(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}
	enc, err := Encode(LongDouble, raw)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if Len(LongDouble, raw) != 2 {
		t.Errorf("Len = %d, want 2", Len(LongDouble, raw))
	}
	var out []byte
	if err := Decode(LongDouble, enc, 2, &out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(raw, out); diff != "" {
		t.Errorf("long double mismatch (-want +got):\n%s", diff)
	}

	if _, err := Encode(LongDouble, make([]byte, 10)); !errors.Is(err, status.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch for ragged long double, got %v", err)
	}
}
