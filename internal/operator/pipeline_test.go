package operator

import (
	"bytes"
	"errors"
	"testing"

	"github.com/robert-malhotra/go-stepio/internal/dtype"
	"github.com/robert-malhotra/go-stepio/internal/status"
)

func TestPipelineRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		specs  []Spec
		frames int
	}{
		{"empty", nil, 1},
		{"shuffle deflate", []Spec{{Name: ShuffleName}, {Name: DeflateName, Params: Params{"level": "9"}}}, 1},
		{"deflate checksum", []Spec{{Name: DeflateName}, {Name: ChecksumName}}, 1},
		{"tiered deflate", []Spec{{Name: TieredName, Params: Params{"tier_count": "3"}}, {Name: DeflateName}}, 3},
		{"shuffle tiered checksum", []Spec{{Name: ShuffleName}, {Name: TieredName, Params: Params{"tier_count": "2"}}, {Name: ChecksumName}}, 2},
	}

	block := float64Block(100, 1e3)
	dims := []uint64{10, 10}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPipeline(tt.specs)
			if err != nil {
				t.Fatalf("NewPipeline failed: %v", err)
			}
			if p.Len() != len(tt.specs) || p.Empty() != (len(tt.specs) == 0) {
				t.Errorf("Len = %d, Empty = %v", p.Len(), p.Empty())
			}

			frames, err := p.Encode(block, dims, dtype.Float64)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(frames) != tt.frames {
				t.Errorf("Encode produced %d frames, want %d", len(frames), tt.frames)
			}

			got, err := p.Decode(frames, dims, dtype.Float64)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !bytes.Equal(got, block) {
				t.Error("pipeline round trip mismatch")
			}
		})
	}
}

func TestPipelineValidate(t *testing.T) {
	p, err := NewPipeline([]Spec{{Name: DeflateName}, {Name: TieredName}})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Validate(dtype.Float32); err != nil {
		t.Errorf("float32: %v", err)
	}
	if err := p.Validate(dtype.Complex64); !errors.Is(err, status.ErrUnsupportedType) {
		t.Errorf("complex64: expected ErrUnsupportedType, got %v", err)
	}
	if _, err := p.Encode(make([]byte, 8), []uint64{1}, dtype.Complex64); !errors.Is(err, status.ErrUnsupportedType) {
		t.Errorf("Encode complex64: expected ErrUnsupportedType, got %v", err)
	}
}

func TestPipelineDecodeErrors(t *testing.T) {
	p, _ := NewPipeline([]Spec{{Name: TieredName, Params: Params{"tier_count": "3"}}})
	block := float64Block(9, 1)
	dims := []uint64{9}
	frames, err := p.Encode(block, dims, dtype.Float64)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Decode(frames[:2], dims, dtype.Float64); !errors.Is(err, status.ErrCorruptInput) {
		t.Errorf("missing tier: expected ErrCorruptInput, got %v", err)
	}

	plain, _ := NewPipeline([]Spec{{Name: ChecksumName}})
	if _, err := plain.Decode([][]byte{[]byte("garbage")}, dims, dtype.Float64); !errors.Is(err, status.ErrCorruptInput) {
		t.Errorf("garbage frame: expected ErrCorruptInput, got %v", err)
	}

	if _, err := NewPipeline([]Spec{{Name: "zfp"}}); !errors.Is(err, status.ErrNotFound) {
		t.Errorf("unknown codec: expected ErrNotFound, got %v", err)
	}
}

func TestPipelineSharedSession(t *testing.T) {
	session := NewTierSession()
	specs := []Spec{{Name: TieredName, Params: Params{"tier_count": "2"}}}
	p, err := NewPipeline(specs, WithSession(session))
	if err != nil {
		t.Fatal(err)
	}
	frames, err := p.Encode(float64Block(4, 1), []uint64{4}, dtype.Float64)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 || session.CurrentTier() != 0 {
		t.Errorf("%d frames, session at tier %d", len(frames), session.CurrentTier())
	}
}

func TestPipelineDecodeRecoversFromCorruptTier(t *testing.T) {
	session := NewTierSession()
	p, err := NewPipeline([]Spec{{Name: TieredName, Params: Params{"tier_count": "3"}}}, WithSession(session))
	if err != nil {
		t.Fatal(err)
	}
	dims := []uint64{9}
	blockA := float64Block(9, 1)
	blockB := float64Block(9, -2)
	framesA, err := p.Encode(blockA, dims, dtype.Float64)
	if err != nil {
		t.Fatal(err)
	}
	framesB, err := p.Encode(blockB, dims, dtype.Float64)
	if err != nil {
		t.Fatal(err)
	}

	bad := bytes.Clone(framesA[1])
	bad[len(bad)-9] ^= 0xFF
	framesA[1] = bad

	if _, err := p.Decode(framesA, dims, dtype.Float64); !errors.Is(err, status.ErrCorruptInput) {
		t.Fatalf("corrupt tier: expected ErrCorruptInput, got %v", err)
	}
	if session.CurrentTier() != 0 {
		t.Errorf("session at tier %d after a failed block, want 0", session.CurrentTier())
	}

	got, err := p.Decode(framesB, dims, dtype.Float64)
	if err != nil {
		t.Fatalf("intact block after a failed one: %v", err)
	}
	if !bytes.Equal(got, blockB) {
		t.Error("intact block decoded to different bytes")
	}
}
