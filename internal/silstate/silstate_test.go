package silstate

import (
	"testing"

	"github.com/silvanoneto/sil-core/internal/bytesil"
)

func TestByteRoundTrip(t *testing.T) {
	cases := []SilState{Vacuum(), Neutral(), Maximum()}
	s := Vacuum()
	for i := 0; i < NumLayers; i++ {
		s = s.WithLayer(i, bytesil.New(i-8, i))
	}
	cases = append(cases, s)

	for _, want := range cases {
		got := FromBytes(want.ToBytes())
		if !Equal(got, want) {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
		}
	}
}

func TestTensorIsPointwiseMul(t *testing.T) {
	a := Vacuum().WithLayer(2, bytesil.New(3, 1))
	b := Neutral().WithLayer(2, bytesil.New(1, 2))
	got := Tensor(a, b)
	for i := 0; i < NumLayers; i++ {
		want := bytesil.Mul(a.Get(i), b.Get(i))
		if !bytesil.Equal(got.Get(i), want) {
			t.Fatalf("layer %d: got %v want %v", i, got.Get(i), want)
		}
	}
}

func TestProjectHonorsMask(t *testing.T) {
	s := Vacuum()
	for i := 0; i < NumLayers; i++ {
		s = s.WithLayer(i, bytesil.New(i%8-4, i))
	}
	mask := uint16(0b0000_0000_0101_0101)
	out := Project(s, mask)
	for i := 0; i < NumLayers; i++ {
		if mask&(1<<uint(i)) != 0 {
			if !bytesil.Equal(out.Get(i), s.Get(i)) {
				t.Fatalf("layer %d should be preserved", i)
			}
		} else if !out.Get(i).IsNull() {
			t.Fatalf("layer %d should be NULL, got %v", i, out.Get(i))
		}
	}
}

func TestXorCollapseOrderIndependent(t *testing.T) {
	s := Vacuum()
	for i := 0; i < NumLayers; i++ {
		s = s.WithLayer(i, bytesil.New(i-4, (i*3)%16))
	}
	// fold forward
	forward := bytesil.Null
	for i := 0; i < NumLayers; i++ {
		forward = bytesil.Xor(forward, s.Get(i))
	}
	// fold backward
	backward := bytesil.Null
	for i := NumLayers - 1; i >= 0; i-- {
		backward = bytesil.Xor(backward, s.Get(i))
	}
	if !bytesil.Equal(forward, backward) {
		t.Fatalf("xor fold order dependent: forward=%v backward=%v", forward, backward)
	}
	got := s.Collapse(CollapseXor)
	if !bytesil.Equal(got, forward) {
		t.Fatalf("Collapse(Xor) = %v, want %v", got, forward)
	}
}

func TestCollapseFirstLast(t *testing.T) {
	s := Vacuum().WithLayer(0, bytesil.New(5, 0)).WithLayer(15, bytesil.New(2, 3))
	if !bytesil.Equal(s.Collapse(CollapseFirst), bytesil.New(5, 0)) {
		t.Fatalf("CollapseFirst wrong")
	}
	if !bytesil.Equal(s.Collapse(CollapseLast), bytesil.New(2, 3)) {
		t.Fatalf("CollapseLast wrong")
	}
}

func TestSingleLayerXorCollapse(t *testing.T) {
	// E6: vacuum with slot 0 set to (5,0) collapses (xor) to (5,0).
	s := Vacuum().WithLayer(0, bytesil.New(5, 0))
	got := s.Collapse(CollapseXor)
	if got.ToU8() != bytesil.New(5, 0).ToU8() {
		t.Fatalf("got %v want rho=5 theta=0", got)
	}
}

func TestGroupAccessors(t *testing.T) {
	s := Vacuum()
	for i := 0; i < NumLayers; i++ {
		s = s.WithLayer(i, bytesil.New(i-8, i%16))
	}
	if s.Perception() != [5]bytesil.ByteSil{s.Get(0), s.Get(1), s.Get(2), s.Get(3), s.Get(4)} {
		t.Fatalf("Perception group mismatch")
	}
	if s.Meta() != [3]bytesil.ByteSil{s.Get(13), s.Get(14), s.Get(15)} {
		t.Fatalf("Meta group mismatch")
	}
}

func TestHashPacksBytesAtOffset8i(t *testing.T) {
	s := Vacuum().WithLayer(0, bytesil.New(5, 3)).WithLayer(8, bytesil.New(1, 1))
	h := s.Hash()
	if byte(h.Lo) != s.Get(0).ToU8() {
		t.Fatalf("hash lo byte 0 mismatch")
	}
	if byte(h.Hi) != s.Get(8).ToU8() {
		t.Fatalf("hash hi byte 0 (layer 8) mismatch")
	}
}
