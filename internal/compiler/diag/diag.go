// Package diag implements the multi-error accumulation spec.md §7/§9
// describe for the lexer/parser/type-checker/assembler front ends: "hand
// back a collection type with {empty?, len, first, into_vec}; never hide a
// single 'first error' behind an exception." Grounded on
// github.com/samber/lo's slice helpers (ajroetker-goat's go.mod), the one
// generics/slice toolkit in the retrieved pack.
package diag

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Pos is a source location: 1-based line and column, shared by the lexer,
// parser, type checker and codegen diagnostics.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.Line == 0 {
		return "?:?"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Span is a start/end source range.
type Span struct {
	Start Pos
	End   Pos
}

// DefaultMaxErrors bounds how many diagnostics a Bag accumulates before it
// stops appending new ones (spec.md §7 "up to a configurable limit").
const DefaultMaxErrors = 64

// Bag accumulates diagnostics from a single compilation phase (lex, parse,
// type-check, or assemble). It satisfies error itself so callers that want
// one combined message can use it directly, while callers that want
// structured access use Empty/Len/First/All.
type Bag struct {
	max  int
	errs []error
}

// NewBag returns a Bag capped at max errors (0 means DefaultMaxErrors).
func NewBag(max int) *Bag {
	if max <= 0 {
		max = DefaultMaxErrors
	}
	return &Bag{max: max}
}

// Add appends err unless the bag is already at capacity or err is nil.
func (b *Bag) Add(err error) {
	if err == nil || len(b.errs) >= b.max {
		return
	}
	b.errs = append(b.errs, err)
}

// Empty reports whether no diagnostics were recorded.
func (b *Bag) Empty() bool { return len(b.errs) == 0 }

// Len returns the number of recorded diagnostics.
func (b *Bag) Len() int { return len(b.errs) }

// First returns the first recorded diagnostic, or nil if the bag is empty
// (spec.md §7 "the first error is also retrievable individually for
// callers that want only one").
func (b *Bag) First() error {
	if len(b.errs) == 0 {
		return nil
	}
	return b.errs[0]
}

// All returns every recorded diagnostic, in order.
func (b *Bag) All() []error {
	return append([]error(nil), b.errs...)
}

// Error implements error by joining every diagnostic's message.
func (b *Bag) Error() string {
	msgs := lo.Map(b.errs, func(e error, _ int) string { return e.Error() })
	return strings.Join(msgs, "; ")
}

// AsError returns nil if the bag is empty, else the bag itself as an error.
func (b *Bag) AsError() error {
	if b.Empty() {
		return nil
	}
	return b
}
