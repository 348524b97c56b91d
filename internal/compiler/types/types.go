// Package types implements the Hindley-Milner-ish unification type checker
// of spec.md §4.5: fresh type variables for each binding/expression, walked
// and unified eagerly (algorithm-J style) rather than solved as a batch,
// with occurs-check and the exhaustive built-in rule set spec.md lists.
//
// Grounded on other_examples' recursive-descent compiler-front-end shape
// for the walk-and-unify structure; error taxonomy follows spec.md §7's
// TypeError variant list exactly, each carrying a stable integer code.
package types

import (
	"fmt"

	"github.com/silvanoneto/sil-core/internal/bytesil"
	"github.com/silvanoneto/sil-core/internal/compiler/ast"
	"github.com/silvanoneto/sil-core/internal/compiler/diag"
)

// Kind enumerates the fixed type-variant set of spec.md §3 Typed AST.
type Kind int

const (
	KInt Kind = iota
	KFloat
	KBool
	KString
	KByteSil
	KState
	KLayer    // Layer(i)
	KHardware // Hardware(hint)
	KTuple
	KFunction
	KNamed
	KVar // inference-only type variable
)

// Type is a single node of the fixed type-variant set. Only the fields
// matching Kind are meaningful — the same flat-struct-variant shape
// internal/vsp.Operand uses for decoded operands, applied here to types.
type Type struct {
	Kind     Kind
	LayerIdx int      // KLayer
	Hint     string   // KHardware
	Elems    []Type   // KTuple
	Params   []Type   // KFunction
	Ret      *Type    // KFunction
	Name     string   // KNamed
	Var      int      // KVar
}

func (t Type) String() string {
	switch t.Kind {
	case KInt:
		return "Int"
	case KFloat:
		return "Float"
	case KBool:
		return "Bool"
	case KString:
		return "String"
	case KByteSil:
		return "ByteSil"
	case KState:
		return "State"
	case KLayer:
		return fmt.Sprintf("Layer(%d)", t.LayerIdx)
	case KHardware:
		return fmt.Sprintf("Hardware(%s)", t.Hint)
	case KTuple:
		return fmt.Sprintf("Tuple%v", t.Elems)
	case KFunction:
		return fmt.Sprintf("Function(%v -> %v)", t.Params, *t.Ret)
	case KNamed:
		return "Named(" + t.Name + ")"
	default:
		return fmt.Sprintf("$%d", t.Var)
	}
}

var (
	Int     = Type{Kind: KInt}
	Float   = Type{Kind: KFloat}
	Bool    = Type{Kind: KBool}
	String  = Type{Kind: KString}
	ByteSil = Type{Kind: KByteSil}
	State   = Type{Kind: KState}
)

// Code is the stable integer error code spec.md §7 requires for every
// TypeError variant.
type Code int

const (
	CodeMismatch Code = iota + 1
	CodeUndefinedVariable
	CodeInvalidLayerAccess
	CodeHardwareConflict
	CodeInfiniteType
	CodeArgumentCountMismatch
	CodeInvalidOperation
)

// TypeError is one structured diagnostic (spec.md §7). Help is the
// optional one-line message (e.g. "valid range is L0..LF").
type TypeError struct {
	Code Code
	Pos  diag.Pos
	Msg  string
	Help string
}

func (e *TypeError) Error() string {
	s := fmt.Sprintf("%s: type error [%d]: %s", e.Pos, e.Code, e.Msg)
	if e.Help != "" {
		s += " (help: " + e.Help + ")"
	}
	return s
}

// FuncSig is a resolved function/transform/extern signature.
type FuncSig struct {
	Params []Type
	Ret    Type
}

// Result is the output of Check: a resolved type per expression plus the
// resolved function/transform signature tables codegen needs.
type Result struct {
	exprTypes  map[int]Type
	Funcs      map[string]FuncSig
	Transforms map[string]FuncSig
}

// TypeOf returns the resolved type of e (zero Type{} if e was never
// visited, which should not happen for a successfully checked program).
func (r *Result) TypeOf(e ast.Expr) Type {
	if e == nil {
		return Type{}
	}
	return r.exprTypes[e.ID()]
}

// checker walks a Program, eagerly unifying constraints into subst.
type checker struct {
	errs     *diag.Bag
	subst    map[int]Type
	nextVar  int
	result   *Result
	retType  Type // current function's declared/inferred return type
}

// Check type-checks prog and returns the resolved type table plus any
// diagnostics (spec.md §4.5, §7).
func Check(prog *ast.Program) (*Result, *diag.Bag) {
	errs := diag.NewBag(0)
	c := &checker{
		errs:  errs,
		subst: make(map[int]Type),
		result: &Result{
			exprTypes:  make(map[int]Type),
			Funcs:      make(map[string]FuncSig),
			Transforms: make(map[string]FuncSig),
		},
	}
	c.collectSignatures(prog)
	for _, item := range prog.Items {
		switch it := item.(type) {
		case *ast.FuncDecl:
			c.checkFunc(it.Params, it.Body, c.result.Funcs[it.Name].Ret)
		case *ast.TransformDecl:
			c.checkFunc([]ast.Param{it.Param}, it.Body, c.result.Transforms[it.Name].Ret)
		}
	}
	// Resolve signatures and per-expression types through the final
	// substitution, so callers see the kinds inference settled on.
	for _, sigs := range []map[string]FuncSig{c.result.Funcs, c.result.Transforms} {
		for name, sig := range sigs {
			for i, p := range sig.Params {
				sig.Params[i] = c.resolve(p)
			}
			sig.Ret = c.resolve(sig.Ret)
			sigs[name] = sig
		}
	}
	for id, t := range c.result.exprTypes {
		c.result.exprTypes[id] = c.resolve(t)
	}
	return c.result, errs
}

func (c *checker) freshVar() Type {
	c.nextVar++
	return Type{Kind: KVar, Var: c.nextVar}
}

func typeExprToType(te *ast.TypeExpr) Type {
	switch te.Name {
	case "Int":
		return Int
	case "Float":
		return Float
	case "Bool":
		return Bool
	case "String":
		return String
	case "ByteSil":
		return ByteSil
	case "State":
		return State
	default:
		return Type{Kind: KNamed, Name: te.Name}
	}
}

func (c *checker) collectSignatures(prog *ast.Program) {
	sigOf := func(params []ast.Param, ret *ast.TypeExpr) FuncSig {
		ps := make([]Type, len(params))
		for i, p := range params {
			if p.Type != nil {
				ps[i] = typeExprToType(p.Type)
			} else {
				ps[i] = c.freshVar()
			}
		}
		var rt Type
		if ret != nil {
			rt = typeExprToType(ret)
		} else {
			rt = c.freshVar()
		}
		return FuncSig{Params: ps, Ret: rt}
	}
	for _, item := range prog.Items {
		switch it := item.(type) {
		case *ast.FuncDecl:
			c.result.Funcs[it.Name] = sigOf(it.Params, it.RetType)
		case *ast.TransformDecl:
			c.result.Transforms[it.Name] = sigOf([]ast.Param{it.Param}, it.RetType)
		case *ast.ExternDecl:
			c.result.Funcs[it.Name] = sigOf(it.Params, it.RetType)
		}
	}
}

// resolve follows a chain of substituted type variables to its current
// representative (possibly still a KVar if unconstrained).
func (c *checker) resolve(t Type) Type {
	for t.Kind == KVar {
		next, ok := c.subst[t.Var]
		if !ok {
			return t
		}
		t = next
	}
	return t
}

func (c *checker) occurs(v int, t Type) bool {
	t = c.resolve(t)
	switch t.Kind {
	case KVar:
		return t.Var == v
	case KTuple:
		for _, e := range t.Elems {
			if c.occurs(v, e) {
				return true
			}
		}
	case KFunction:
		for _, p := range t.Params {
			if c.occurs(v, p) {
				return true
			}
		}
		if t.Ret != nil && c.occurs(v, *t.Ret) {
			return true
		}
	}
	return false
}

// unify attempts to make a and b equal, recording errs.Add(TypeError) with
// the given context on mismatch. Returns the unified type (best-effort: on
// failure, returns a's resolved form so checking can proceed).
func (c *checker) unify(a, b Type, pos diag.Pos, context string) Type {
	ra, rb := c.resolve(a), c.resolve(b)
	if ra.Kind == KVar {
		if ra.Var == rb.Var && rb.Kind == KVar {
			return ra
		}
		if rb.Kind == KVar && c.occurs(ra.Var, rb) {
			c.errs.Add(&TypeError{Code: CodeInfiniteType, Pos: pos, Msg: fmt.Sprintf("infinite type $%d in %s", ra.Var, context)})
			return ra
		}
		c.subst[ra.Var] = rb
		return rb
	}
	if rb.Kind == KVar {
		return c.unify(rb, ra, pos, context)
	}
	if ra.Kind != rb.Kind {
		c.errs.Add(&TypeError{Code: CodeMismatch, Pos: pos, Msg: fmt.Sprintf("%s: expected %s, found %s", context, ra, rb)})
		return ra
	}
	switch ra.Kind {
	case KNamed:
		if ra.Name != rb.Name {
			c.errs.Add(&TypeError{Code: CodeMismatch, Pos: pos, Msg: fmt.Sprintf("%s: expected %s, found %s", context, ra, rb)})
		}
	case KLayer:
		if ra.LayerIdx != rb.LayerIdx {
			c.errs.Add(&TypeError{Code: CodeMismatch, Pos: pos, Msg: fmt.Sprintf("%s: expected %s, found %s", context, ra, rb)})
		}
	case KTuple:
		if len(ra.Elems) != len(rb.Elems) {
			c.errs.Add(&TypeError{Code: CodeMismatch, Pos: pos, Msg: fmt.Sprintf("%s: tuple arity mismatch", context)})
			return ra
		}
		for i := range ra.Elems {
			c.unify(ra.Elems[i], rb.Elems[i], pos, context)
		}
	case KFunction:
		if len(ra.Params) != len(rb.Params) {
			c.errs.Add(&TypeError{Code: CodeArgumentCountMismatch, Pos: pos, Msg: fmt.Sprintf("%s: arity mismatch", context)})
			return ra
		}
		for i := range ra.Params {
			c.unify(ra.Params[i], rb.Params[i], pos, context)
		}
		c.unify(*ra.Ret, *rb.Ret, pos, context)
	}
	return ra
}

type scope map[string]Type

func (c *checker) checkFunc(params []ast.Param, body *ast.BlockStmt, ret Type) {
	env := make(scope, len(params))
	for _, p := range params {
		if p.Type != nil {
			env[p.Name] = typeExprToType(p.Type)
		} else {
			env[p.Name] = c.freshVar()
		}
	}
	prevRet := c.retType
	c.retType = ret
	c.checkBlock(body, env)
	c.retType = prevRet
}

func (c *checker) checkBlock(b *ast.BlockStmt, env scope) {
	if b == nil {
		return
	}
	for _, st := range b.Stmts {
		c.checkStmt(st, env)
	}
}

func (c *checker) checkStmt(st ast.Stmt, env scope) {
	switch s := st.(type) {
	case *ast.LetStmt:
		t := c.inferExpr(s.Expr, env)
		if s.Type != nil {
			t = c.unify(typeExprToType(s.Type), t, s.Span().Start, "let "+s.Name)
		}
		env[s.Name] = t
	case *ast.AssignStmt:
		t := c.inferExpr(s.Expr, env)
		if existing, ok := env[s.Name]; ok {
			c.unify(existing, t, s.Span().Start, "assignment to "+s.Name)
		} else {
			c.errs.Add(&TypeError{Code: CodeUndefinedVariable, Pos: s.Span().Start, Msg: "undefined variable " + s.Name})
		}
	case *ast.ReturnStmt:
		if s.Expr != nil {
			t := c.inferExpr(s.Expr, env)
			c.retType = c.unify(c.retType, t, s.Span().Start, "return")
		}
	case *ast.ExprStmt:
		c.inferExpr(s.Expr, env)
	case *ast.IfStmt:
		condT := c.inferExpr(s.Cond, env)
		c.unify(Bool, condT, s.Span().Start, "if condition")
		c.checkBlock(s.Then, env)
		c.checkBlock(s.Else, env)
	case *ast.LoopStmt:
		c.checkBlock(s.Body, env)
	case *ast.BreakStmt, *ast.ContinueStmt:
		// no type obligations
	}
}

func numericOperand(t Type) bool {
	switch t.Kind {
	case KInt, KFloat, KByteSil, KState:
		return true
	}
	return false
}

func algebraOperand(t Type) bool {
	switch t.Kind {
	case KByteSil, KState, KInt:
		return true
	}
	return false
}

func (c *checker) inferExpr(e ast.Expr, env scope) Type {
	var t Type
	switch n := e.(type) {
	case *ast.IntLitExpr:
		t = Int
	case *ast.FloatLitExpr:
		t = Float
	case *ast.StringLitExpr:
		t = String
	case *ast.BoolLitExpr:
		t = Bool
	case *ast.IdentExpr:
		if found, ok := env[n.Name]; ok {
			t = found
		} else {
			c.errs.Add(&TypeError{Code: CodeUndefinedVariable, Pos: n.Span().Start, Msg: "undefined variable " + n.Name})
			t = c.freshVar()
		}
	case *ast.BinaryExpr:
		t = c.inferBinary(n, env)
	case *ast.UnaryExpr:
		t = c.inferUnary(n, env)
	case *ast.CallExpr:
		t = c.inferCall(n, env)
	case *ast.LayerAccessExpr:
		stateT := c.inferExpr(n.State, env)
		c.unify(State, stateT, n.Span().Start, "layer access")
		t = ByteSil
	case *ast.PipeExpr:
		t = c.inferPipe(n, env)
	case *ast.StateLitExpr:
		t = c.inferStateLit(n, env)
	case *ast.FeedbackExpr:
		opT := c.inferExpr(n.Operand, env)
		c.unify(State, opT, n.Span().Start, "feedback")
		t = State
	case *ast.EmergeExpr:
		opT := c.inferExpr(n.Operand, env)
		c.unify(State, opT, n.Span().Start, "emerge")
		t = State
	default:
		t = c.freshVar()
	}
	c.result.exprTypes[e.ID()] = t
	return t
}

func (c *checker) inferBinary(n *ast.BinaryExpr, env scope) Type {
	lt := c.inferExpr(n.Left, env)
	rt := c.inferExpr(n.Right, env)
	pos := n.Span().Start
	switch n.Op {
	case ast.OpOr, ast.OpAnd:
		c.unify(Bool, lt, pos, "logical operand")
		c.unify(Bool, rt, pos, "logical operand")
		return Bool
	case ast.OpEq, ast.OpNeq:
		c.unify(lt, rt, pos, "comparison operands")
		return Bool
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		if r := c.resolve(lt); r.Kind != KVar && !numericOperand(r) {
			c.errs.Add(&TypeError{Code: CodeInvalidOperation, Pos: pos, Msg: fmt.Sprintf("comparison %s requires numeric operands, found %s", n.Op, lt)})
		}
		c.unify(lt, rt, pos, "comparison operands")
		return Bool
	case ast.OpBitOr, ast.OpBitXor, ast.OpBitAnd:
		if r := c.resolve(lt); r.Kind != KVar && !algebraOperand(r) {
			c.errs.Add(&TypeError{Code: CodeInvalidOperation, Pos: pos, Msg: fmt.Sprintf("operator %s requires ByteSil/State/Int operands, found %s", n.Op, lt)})
		}
		c.unify(lt, rt, pos, "bitwise operands")
		return c.resolve(lt)
	case ast.OpShl, ast.OpShr:
		c.unify(Int, lt, pos, "shift operand")
		c.unify(Int, rt, pos, "shift operand")
		return Int
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpPow:
		if r := c.resolve(lt); r.Kind != KVar && !numericOperand(r) {
			c.errs.Add(&TypeError{Code: CodeInvalidOperation, Pos: pos, Msg: fmt.Sprintf("operator %s requires Int/Float/ByteSil/State operands, found %s", n.Op, lt)})
		}
		c.unify(lt, rt, pos, "arithmetic operands")
		return c.resolve(lt)
	default:
		return c.freshVar()
	}
}

func (c *checker) inferUnary(n *ast.UnaryExpr, env scope) Type {
	opT := c.inferExpr(n.Operand, env)
	pos := n.Span().Start
	switch n.Op {
	case ast.OpConj:
		r := c.resolve(opT)
		if r.Kind != KByteSil && r.Kind != KState {
			c.errs.Add(&TypeError{Code: CodeInvalidOperation, Pos: pos, Msg: "~ requires ByteSil or State, found " + r.String()})
		}
		return r
	case ast.OpMagnitude:
		r := c.resolve(opT)
		if r.Kind != KByteSil && r.Kind != KState {
			c.errs.Add(&TypeError{Code: CodeInvalidOperation, Pos: pos, Msg: "|x| requires ByteSil or State, found " + r.String()})
		}
		return Float
	case ast.OpNegate:
		r := c.resolve(opT)
		if r.Kind != KInt && r.Kind != KFloat {
			c.errs.Add(&TypeError{Code: CodeInvalidOperation, Pos: pos, Msg: "unary - requires Int or Float, found " + r.String()})
		}
		return r
	case ast.OpNot:
		c.unify(Bool, opT, pos, "logical not")
		return Bool
	default:
		return c.freshVar()
	}
}

func (c *checker) inferCall(n *ast.CallExpr, env scope) Type {
	sig, ok := c.result.Funcs[n.Callee]
	if !ok {
		c.errs.Add(&TypeError{Code: CodeUndefinedVariable, Pos: n.Span().Start, Msg: "undefined function " + n.Callee})
		return c.freshVar()
	}
	if len(sig.Params) != len(n.Args) {
		c.errs.Add(&TypeError{Code: CodeArgumentCountMismatch, Pos: n.Span().Start,
			Msg: fmt.Sprintf("%s expects %d arguments, got %d", n.Callee, len(sig.Params), len(n.Args))})
	}
	for i, arg := range n.Args {
		at := c.inferExpr(arg, env)
		if i < len(sig.Params) {
			c.unify(sig.Params[i], at, arg.Span().Start, "argument "+fmt.Sprint(i))
		}
	}
	return sig.Ret
}

func (c *checker) inferPipe(n *ast.PipeExpr, env scope) Type {
	valT := c.inferExpr(n.Value, env)
	sig, ok := c.result.Transforms[n.Transform]
	if !ok {
		c.errs.Add(&TypeError{Code: CodeUndefinedVariable, Pos: n.Span().Start, Msg: "undefined transform " + n.Transform})
		return c.freshVar()
	}
	if len(sig.Params) == 1 {
		c.unify(sig.Params[0], valT, n.Span().Start, "pipe into "+n.Transform)
	}
	return sig.Ret
}

func (c *checker) inferStateLit(n *ast.StateLitExpr, env scope) Type {
	if !n.DistinctLayers() {
		c.errs.Add(&TypeError{
			Code: CodeInvalidLayerAccess, Pos: n.Span().Start,
			Msg: "state literal repeats a layer index", Help: "valid range is L0..LF, each used at most once",
		})
	}
	for _, f := range n.Fields {
		ft := c.inferExpr(f.Value, env)
		if c.resolve(ft).Kind == KInt {
			// Int fields are accepted alongside ByteSil ones.
			continue
		}
		c.unify(ByteSil, ft, f.Pos, "state literal field")
	}
	return State
}

// QuantizeFloatToByteSil is exposed for codegen's float-literal lowering:
// floats lower through the same quantization the runtime uses for
// COLLAPSE's Sum strategy (internal/bytesil.FromComplex).
func QuantizeFloatToByteSil(v float64) bytesil.ByteSil {
	return bytesil.FromComplex(complex(v, 0))
}
