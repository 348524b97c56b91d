// Package silstate implements the SilState primitive: an ordered 16-element
// tuple of bytesil.ByteSil with algebraic operations (xor, tensor, project,
// collapse) and a 128-bit canonical serialization.
//
// The 16 slots L0..L15 carry named semantic roles (spec.md §3): L0-L4
// perception, L5-L7 processing, L8-L10 interaction, L11-L12 emergence,
// L13-L15 meta. The algebra itself does not privilege any slot; the group
// names below are pure accessor sugar, mirroring the way the teacher's
// CPU64 register file exposes "R31 aliases as stack pointer" without the
// arithmetic core caring about register identity.
package silstate

import (
	"fmt"

	"github.com/silvanoneto/sil-core/internal/bytesil"
)

// NumLayers is the fixed width of a SilState.
const NumLayers = 16

// SilState is an ordered 16-tuple of ByteSil. Always 16 elements; the zero
// value is NOT meaningful on its own (use Vacuum), since bytesil's zero
// value (Rho=0, Theta=0) is ONE, not NULL.
type SilState struct {
	layers [NumLayers]bytesil.ByteSil
}

// Vacuum returns the all-NULL state.
func Vacuum() SilState {
	var s SilState
	for i := range s.layers {
		s.layers[i] = bytesil.Null
	}
	return s
}

// Neutral returns the all-ONE state.
func Neutral() SilState {
	var s SilState
	for i := range s.layers {
		s.layers[i] = bytesil.One
	}
	return s
}

// Maximum returns the all-MAX state.
func Maximum() SilState {
	var s SilState
	for i := range s.layers {
		s.layers[i] = bytesil.Max
	}
	return s
}

// FromLayers builds a state from exactly 16 ByteSil values.
func FromLayers(layers [NumLayers]bytesil.ByteSil) SilState {
	return SilState{layers: layers}
}

// FromBytes decodes the canonical 16-byte serialization (slot i at byte i).
func FromBytes(buf [NumLayers]byte) SilState {
	var s SilState
	for i, b := range buf {
		s.layers[i] = bytesil.FromU8(b)
	}
	return s
}

// ToBytes encodes the canonical 16-byte serialization.
func (s SilState) ToBytes() [NumLayers]byte {
	var buf [NumLayers]byte
	for i, l := range s.layers {
		buf[i] = l.ToU8()
	}
	return buf
}

// Get returns the ByteSil at layer i. Panics if i is out of [0,15].
func (s SilState) Get(i int) bytesil.ByteSil {
	s.checkIndex(i)
	return s.layers[i]
}

// Layer is an alias for Get, matching the §4.2 "get(i) / layer(i)" naming.
func (s SilState) Layer(i int) bytesil.ByteSil { return s.Get(i) }

// WithLayer returns a new state with slot i replaced by v.
func (s SilState) WithLayer(i int, v bytesil.ByteSil) SilState {
	s.checkIndex(i)
	out := s
	out.layers[i] = v
	return out
}

func (s SilState) checkIndex(i int) {
	if i < 0 || i >= NumLayers {
		panic(fmt.Sprintf("silstate: layer index %d out of range [0,%d)", i, NumLayers))
	}
}

// Equal is pointwise bit equality.
func Equal(a, b SilState) bool {
	for i := 0; i < NumLayers; i++ {
		if !bytesil.Equal(a.layers[i], b.layers[i]) {
			return false
		}
	}
	return true
}

// Xor computes the pointwise ByteSil xor of a and b.
func Xor(a, b SilState) SilState {
	var out SilState
	for i := 0; i < NumLayers; i++ {
		out.layers[i] = bytesil.Xor(a.layers[i], b.layers[i])
	}
	return out
}

// Tensor computes the pointwise ByteSil multiply of a and b.
func Tensor(a, b SilState) SilState {
	var out SilState
	for i := 0; i < NumLayers; i++ {
		out.layers[i] = bytesil.Mul(a.layers[i], b.layers[i])
	}
	return out
}

// Project returns a state whose slot i equals a.Get(i) if bit i of mask is
// set, else NULL.
func Project(a SilState, mask uint16) SilState {
	out := Vacuum()
	for i := 0; i < NumLayers; i++ {
		if mask&(1<<uint(i)) != 0 {
			out.layers[i] = a.layers[i]
		}
	}
	return out
}

// CollapseStrategy selects how Collapse reduces a SilState to one ByteSil.
type CollapseStrategy int

const (
	CollapseXor CollapseStrategy = iota
	CollapseSum
	CollapseFirst
	CollapseLast
)

func (cs CollapseStrategy) String() string {
	switch cs {
	case CollapseXor:
		return "xor"
	case CollapseSum:
		return "sum"
	case CollapseFirst:
		return "first"
	case CollapseLast:
		return "last"
	default:
		return fmt.Sprintf("CollapseStrategy(%d)", int(cs))
	}
}

// Collapse reduces s to a single ByteSil under strategy.
func (s SilState) Collapse(strategy CollapseStrategy) bytesil.ByteSil {
	switch strategy {
	case CollapseXor:
		acc := bytesil.Null
		for _, l := range s.layers {
			acc = bytesil.Xor(acc, l)
		}
		return acc
	case CollapseSum:
		var acc complex128
		for _, l := range s.layers {
			acc += l.ToComplex()
		}
		return bytesil.FromComplex(acc)
	case CollapseFirst:
		return s.layers[0]
	case CollapseLast:
		return s.layers[NumLayers-1]
	default:
		panic(fmt.Sprintf("silstate: unknown collapse strategy %d", int(strategy)))
	}
}

// Hash returns the 128-bit canonical hash: the byte image of layer i placed
// at bit offset 8*i, represented as two little-endian halves since Go has
// no native uint128.
type Hash struct {
	Lo uint64 // layers 0..7
	Hi uint64 // layers 8..15
}

// Hash computes the 128-bit hash of s.
func (s SilState) Hash() Hash {
	var h Hash
	for i := 0; i < 8; i++ {
		h.Lo |= uint64(s.layers[i].ToU8()) << uint(8*i)
	}
	for i := 8; i < NumLayers; i++ {
		h.Hi |= uint64(s.layers[i].ToU8()) << uint(8*(i-8))
	}
	return h
}

// Group accessors, per the §3 semantic grouping. Pure sugar over Get.

// Perception returns layers L0..L4.
func (s SilState) Perception() [5]bytesil.ByteSil {
	var g [5]bytesil.ByteSil
	copy(g[:], s.layers[0:5])
	return g
}

// Processing returns layers L5..L7.
func (s SilState) Processing() [3]bytesil.ByteSil {
	var g [3]bytesil.ByteSil
	copy(g[:], s.layers[5:8])
	return g
}

// Interaction returns layers L8..L10.
func (s SilState) Interaction() [3]bytesil.ByteSil {
	var g [3]bytesil.ByteSil
	copy(g[:], s.layers[8:11])
	return g
}

// Emergence returns layers L11..L12.
func (s SilState) Emergence() [2]bytesil.ByteSil {
	var g [2]bytesil.ByteSil
	copy(g[:], s.layers[11:13])
	return g
}

// Meta returns layers L13..L15.
func (s SilState) Meta() [3]bytesil.ByteSil {
	var g [3]bytesil.ByteSil
	copy(g[:], s.layers[13:16])
	return g
}
