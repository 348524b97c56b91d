// Package ast defines the node types the parser builds and the type
// checker and code generator consume (spec.md §3 AST / Typed AST): an
// ordered forest of top-level items, each carrying a source span, with
// statements and expressions forming a standard tree.
//
// Grounded on other_examples' recursive-descent compiler shapes
// (089cef79_informatter-nilan__compiler-compiler.go,
// adf938d2_mna-nenuphar__lang-compiler-compiler.go) for the item/statement/
// expression node split; github.com/samber/lo (ajroetker-goat) supplies the
// distinct-layer-index check on state literals and the FreeVars
// free-variable collection helper.
package ast

import "github.com/silvanoneto/sil-core/internal/compiler/diag"

// Program is the root of a parsed source file: an ordered forest of items.
type Program struct {
	Items []Item
}

// Item is a top-level declaration.
type Item interface {
	itemNode()
	Span() diag.Span
}

// Param is one function/transform parameter, with an optional type
// annotation (spec.md §6 "type annotations optional (inferred) — when
// present, `: T` after a parameter").
type Param struct {
	Name string
	Type *TypeExpr // nil when uninferred at parse time
	Pos  diag.Pos
}

// TypeExpr is a parsed (not yet resolved) type annotation.
type TypeExpr struct {
	Name string // Int, Float, Bool, String, ByteSil, State, or a Named type
	Pos  diag.Pos
}

// FuncDecl is `fn name(p1, p2) { ... }`.
type FuncDecl struct {
	Name    string
	Params  []Param
	RetType *TypeExpr
	Body    *BlockStmt
	Pub     bool
	span    diag.Span
}

func (f *FuncDecl) itemNode()        {}
func (f *FuncDecl) Span() diag.Span  { return f.span }
func NewFuncDecl(name string, params []Param, ret *TypeExpr, body *BlockStmt, pub bool, span diag.Span) *FuncDecl {
	return &FuncDecl{Name: name, Params: params, RetType: ret, Body: body, Pub: pub, span: span}
}

// TransformDecl is `transform name(p) { ... }` — a function restricted by
// spec.md §4.5's pipe-operator typing to exactly one parameter.
type TransformDecl struct {
	Name    string
	Param   Param
	RetType *TypeExpr
	Body    *BlockStmt
	Pub     bool
	span    diag.Span
}

func (t *TransformDecl) itemNode()       {}
func (t *TransformDecl) Span() diag.Span { return t.span }
func NewTransformDecl(name string, param Param, ret *TypeExpr, body *BlockStmt, pub bool, span diag.Span) *TransformDecl {
	return &TransformDecl{Name: name, Param: param, RetType: ret, Body: body, Pub: pub, span: span}
}

// TypeAliasDecl is `type Name = T;`.
type TypeAliasDecl struct {
	Name string
	Type TypeExpr
	span diag.Span
}

func (t *TypeAliasDecl) itemNode()       {}
func (t *TypeAliasDecl) Span() diag.Span { return t.span }
func NewTypeAliasDecl(name string, typ TypeExpr, span diag.Span) *TypeAliasDecl {
	return &TypeAliasDecl{Name: name, Type: typ, span: span}
}

// UseDecl is `use path::to::thing;`.
type UseDecl struct {
	Path []string
	span diag.Span
}

func (u *UseDecl) itemNode()       {}
func (u *UseDecl) Span() diag.Span { return u.span }
func NewUseDecl(path []string, span diag.Span) *UseDecl { return &UseDecl{Path: path, span: span} }

// ModDecl is `mod name;`.
type ModDecl struct {
	Name string
	span diag.Span
}

func (m *ModDecl) itemNode()       {}
func (m *ModDecl) Span() diag.Span { return m.span }
func NewModDecl(name string, span diag.Span) *ModDecl { return &ModDecl{Name: name, span: span} }

// ExternDecl is `extern fn name(p1, p2): T;` — a typed declaration with no
// executable body (spec.md §4.5's extern items; FFI/bindings themselves
// are a non-goal, see SPEC_FULL.md §3 "Manifest-adjacent compiler front
// matter").
type ExternDecl struct {
	Name    string
	Params  []Param
	RetType *TypeExpr
	span    diag.Span
}

func (e *ExternDecl) itemNode()       {}
func (e *ExternDecl) Span() diag.Span { return e.span }
func NewExternDecl(name string, params []Param, ret *TypeExpr, span diag.Span) *ExternDecl {
	return &ExternDecl{Name: name, Params: params, RetType: ret, span: span}
}

// Stmt is a statement node.
type Stmt interface {
	stmtNode()
	Span() diag.Span
}

// BlockStmt is a `{ ... }` sequence of statements.
type BlockStmt struct {
	Stmts []Stmt
	span  diag.Span
}

func (b *BlockStmt) stmtNode()      {}
func (b *BlockStmt) Span() diag.Span { return b.span }
func NewBlockStmt(stmts []Stmt, span diag.Span) *BlockStmt { return &BlockStmt{Stmts: stmts, span: span} }

// LetStmt is `let name [: T] = expr;`.
type LetStmt struct {
	Name string
	Type *TypeExpr
	Expr Expr
	span diag.Span
}

func (l *LetStmt) stmtNode()      {}
func (l *LetStmt) Span() diag.Span { return l.span }
func NewLetStmt(name string, typ *TypeExpr, expr Expr, span diag.Span) *LetStmt {
	return &LetStmt{Name: name, Type: typ, Expr: expr, span: span}
}

// AssignStmt is `name = expr;` (reassignment of an existing binding).
type AssignStmt struct {
	Name string
	Expr Expr
	span diag.Span
}

func (a *AssignStmt) stmtNode()      {}
func (a *AssignStmt) Span() diag.Span { return a.span }
func NewAssignStmt(name string, expr Expr, span diag.Span) *AssignStmt {
	return &AssignStmt{Name: name, Expr: expr, span: span}
}

// ReturnStmt is `return [expr];`.
type ReturnStmt struct {
	Expr Expr // nil for a bare `return;`
	span diag.Span
}

func (r *ReturnStmt) stmtNode()      {}
func (r *ReturnStmt) Span() diag.Span { return r.span }
func NewReturnStmt(expr Expr, span diag.Span) *ReturnStmt { return &ReturnStmt{Expr: expr, span: span} }

// ExprStmt wraps an expression used as a statement.
type ExprStmt struct {
	Expr Expr
	span diag.Span
}

func (e *ExprStmt) stmtNode()      {}
func (e *ExprStmt) Span() diag.Span { return e.span }
func NewExprStmt(expr Expr, span diag.Span) *ExprStmt { return &ExprStmt{Expr: expr, span: span} }

// IfStmt is `if cond { then } [else { else }]`. Else may itself be a
// single-statement block wrapping another IfStmt for `else if` chains.
type IfStmt struct {
	Cond Expr
	Then *BlockStmt
	Else *BlockStmt // nil if absent
	span diag.Span
}

func (i *IfStmt) stmtNode()      {}
func (i *IfStmt) Span() diag.Span { return i.span }
func NewIfStmt(cond Expr, then, els *BlockStmt, span diag.Span) *IfStmt {
	return &IfStmt{Cond: cond, Then: then, Else: els, span: span}
}

// LoopStmt is `loop { ... }`, exited only via break.
type LoopStmt struct {
	Body *BlockStmt
	span diag.Span
}

func (l *LoopStmt) stmtNode()      {}
func (l *LoopStmt) Span() diag.Span { return l.span }
func NewLoopStmt(body *BlockStmt, span diag.Span) *LoopStmt { return &LoopStmt{Body: body, span: span} }

// BreakStmt is `break;`.
type BreakStmt struct{ span diag.Span }

func (b *BreakStmt) stmtNode()      {}
func (b *BreakStmt) Span() diag.Span { return b.span }
func NewBreakStmt(span diag.Span) *BreakStmt { return &BreakStmt{span: span} }

// ContinueStmt is `continue;`.
type ContinueStmt struct{ span diag.Span }

func (c *ContinueStmt) stmtNode()      {}
func (c *ContinueStmt) Span() diag.Span { return c.span }
func NewContinueStmt(span diag.Span) *ContinueStmt { return &ContinueStmt{span: span} }

// Expr is an expression node. Every expression carries a span to drive
// diagnostics (spec.md §3 "expressions carry spans to drive diagnostics").
type Expr interface {
	exprNode()
	Span() diag.Span
	ID() int // stable identity used by the type checker's expr->Type map
}

var nextExprID = 0

func freshID() int {
	nextExprID++
	return nextExprID
}

type exprBase struct {
	id   int
	span diag.Span
}

func newExprBase(span diag.Span) exprBase { return exprBase{id: freshID(), span: span} }
func (e exprBase) Span() diag.Span        { return e.span }
func (e exprBase) ID() int                { return e.id }

// IntLitExpr is an integer literal.
type IntLitExpr struct {
	exprBase
	Value int64
}

func (*IntLitExpr) exprNode() {}
func NewIntLitExpr(v int64, span diag.Span) *IntLitExpr {
	return &IntLitExpr{exprBase: newExprBase(span), Value: v}
}

// FloatLitExpr is a float literal.
type FloatLitExpr struct {
	exprBase
	Value float64
}

func (*FloatLitExpr) exprNode() {}
func NewFloatLitExpr(v float64, span diag.Span) *FloatLitExpr {
	return &FloatLitExpr{exprBase: newExprBase(span), Value: v}
}

// StringLitExpr is a string literal.
type StringLitExpr struct {
	exprBase
	Value string
}

func (*StringLitExpr) exprNode() {}
func NewStringLitExpr(v string, span diag.Span) *StringLitExpr {
	return &StringLitExpr{exprBase: newExprBase(span), Value: v}
}

// BoolLitExpr is a boolean literal.
type BoolLitExpr struct {
	exprBase
	Value bool
}

func (*BoolLitExpr) exprNode() {}
func NewBoolLitExpr(v bool, span diag.Span) *BoolLitExpr {
	return &BoolLitExpr{exprBase: newExprBase(span), Value: v}
}

// IdentExpr references a binding by name.
type IdentExpr struct {
	exprBase
	Name string
}

func (*IdentExpr) exprNode() {}
func NewIdentExpr(name string, span diag.Span) *IdentExpr {
	return &IdentExpr{exprBase: newExprBase(span), Name: name}
}

// BinOp enumerates binary operators (spec.md §4.5's precedence table).
type BinOp int

const (
	OpOr BinOp = iota
	OpAnd
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpBitOr
	OpBitXor
	OpBitAnd
	OpShl
	OpShr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPow
)

func (o BinOp) String() string {
	names := map[BinOp]string{
		OpOr: "||", OpAnd: "&&", OpEq: "==", OpNeq: "!=",
		OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
		OpBitOr: "|", OpBitXor: "^", OpBitAnd: "&",
		OpShl: "<<", OpShr: ">>",
		OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpPow: "**",
	}
	return names[o]
}

// BinaryExpr is `lhs op rhs`.
type BinaryExpr struct {
	exprBase
	Op    BinOp
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func NewBinaryExpr(op BinOp, left, right Expr, span diag.Span) *BinaryExpr {
	return &BinaryExpr{exprBase: newExprBase(span), Op: op, Left: left, Right: right}
}

// UnaryOp enumerates the unary operators: `~` conjugate, `|x|` magnitude
// (parsed as UnaryExpr with Op=OpMagnitude), `-` negate, `!` logical not.
type UnaryOp int

const (
	OpConj UnaryOp = iota
	OpMagnitude
	OpNegate
	OpNot
)

// UnaryExpr is a prefix (or, for magnitude, bracketing) unary operator.
type UnaryExpr struct {
	exprBase
	Op      UnaryOp
	Operand Expr
}

func (*UnaryExpr) exprNode() {}
func NewUnaryExpr(op UnaryOp, operand Expr, span diag.Span) *UnaryExpr {
	return &UnaryExpr{exprBase: newExprBase(span), Op: op, Operand: operand}
}

// CallExpr is `callee(args...)`.
type CallExpr struct {
	exprBase
	Callee string
	Args   []Expr
}

func (*CallExpr) exprNode() {}
func NewCallExpr(callee string, args []Expr, span diag.Span) *CallExpr {
	return &CallExpr{exprBase: newExprBase(span), Callee: callee, Args: args}
}

// LayerAccessExpr is `state.LX`.
type LayerAccessExpr struct {
	exprBase
	State Expr
	Layer int
}

func (*LayerAccessExpr) exprNode() {}
func NewLayerAccessExpr(state Expr, layer int, span diag.Span) *LayerAccessExpr {
	return &LayerAccessExpr{exprBase: newExprBase(span), State: state, Layer: layer}
}

// PipeExpr is `e |> t`, recorded as-is; desugaring into a call happens at
// code-gen time (spec.md §4.5 "actual desugaring happens in codegen/types").
type PipeExpr struct {
	exprBase
	Value     Expr
	Transform string
}

func (*PipeExpr) exprNode() {}
func NewPipeExpr(value Expr, transform string, span diag.Span) *PipeExpr {
	return &PipeExpr{exprBase: newExprBase(span), Value: value, Transform: transform}
}

// StateLitField is one `LX: expr` entry of a State literal.
type StateLitField struct {
	Layer int
	Value Expr
	Pos   diag.Pos
}

// StateLitExpr is `State { L0: e0, L1: e1, ... }`; every Layer in Fields
// must be distinct (spec.md §4.5).
type StateLitExpr struct {
	exprBase
	Fields []StateLitField
}

func (*StateLitExpr) exprNode() {}
func NewStateLitExpr(fields []StateLitField, span diag.Span) *StateLitExpr {
	return &StateLitExpr{exprBase: newExprBase(span), Fields: fields}
}

// DistinctLayers reports whether every field names a distinct layer index,
// using github.com/samber/lo's uniqueness helper over the collected indices.
func (s *StateLitExpr) DistinctLayers() bool {
	return len(uniqueInts(layerIndices(s.Fields))) == len(s.Fields)
}

func layerIndices(fields []StateLitField) []int {
	idx := make([]int, len(fields))
	for i, f := range fields {
		idx[i] = f.Layer
	}
	return idx
}

// FeedbackExpr is `feedback e` (spec.md §4.5 "require e: State, result
// State"; DESIGN.md fixes feedback as an in-place EMERGE at codegen).
type FeedbackExpr struct {
	exprBase
	Operand Expr
}

func (*FeedbackExpr) exprNode() {}
func NewFeedbackExpr(operand Expr, span diag.Span) *FeedbackExpr {
	return &FeedbackExpr{exprBase: newExprBase(span), Operand: operand}
}

// EmergeExpr is `emerge e`, allocating a fresh result rather than writing
// back in place (see FeedbackExpr).
type EmergeExpr struct {
	exprBase
	Operand Expr
}

func (*EmergeExpr) exprNode() {}
func NewEmergeExpr(operand Expr, span diag.Span) *EmergeExpr {
	return &EmergeExpr{exprBase: newExprBase(span), Operand: operand}
}
