// Package parser implements the recursive-descent parser of spec.md §4.5:
// token stream → AST, with panic-mode recovery at statement boundaries so a
// source with N syntactic errors yields at least 1 and never more than N
// diagnostics (spec.md §8 property 14).
//
// Grounded on other_examples' recursive-descent shapes
// (089cef79_informatter-nilan__compiler-compiler.go,
// adf938d2_mna-nenuphar__lang-compiler-compiler.go) and the teacher's own
// two-pass assembler parser (internal/silasm/parser.go) for the
// token-cursor/expect-or-record-error idiom, widened from assembly's flat
// instruction grammar to expressions with the precedence table spec.md
// §4.5 specifies.
//
// Precedence note: spec.md §4.5 lists
// `|>` in the same top precedence tier as call/layer-access, but then says
// pipe "binds looser than call but tighter than comparisons" — the two
// statements conflict. This parser follows the more specific prose: pipe
// sits directly above comparisons and below the bitwise tier.
package parser

import (
	"fmt"

	"github.com/silvanoneto/sil-core/internal/compiler/ast"
	"github.com/silvanoneto/sil-core/internal/compiler/diag"
	"github.com/silvanoneto/sil-core/internal/compiler/lexer"
)

// ParseError is one unexpected-token or missing-terminator diagnostic
// (spec.md §7 ParseError).
type ParseError struct {
	Line, Col int
	Detail    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: parse: %s", e.Line, e.Col, e.Detail)
}

// Parser consumes a token slice and builds an ast.Program.
type Parser struct {
	toks []lexer.Token
	pos  int
	errs *diag.Bag
}

// New returns a Parser over toks (as produced by lexer.Lexer.Tokenize),
// accumulating diagnostics into errs.
func New(toks []lexer.Token, errs *diag.Bag) *Parser {
	if errs == nil {
		errs = diag.NewBag(0)
	}
	return &Parser{toks: toks, errs: errs}
}

// Parse parses an entire source file into a Program. Parsing continues
// past recoverable errors; callers should check Errors().Empty() before
// trusting the result.
func Parse(src string) (*ast.Program, *diag.Bag) {
	errs := diag.NewBag(0)
	lx := lexer.New(src, errs)
	toks := lx.Tokenize()
	p := New(toks, errs)
	return p.ParseProgram(), errs
}

// Errors returns the accumulated parse diagnostics (lex diagnostics are
// accumulated into the same bag when constructed via Parse).
func (p *Parser) Errors() *diag.Bag { return p.errs }

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekNext() lexer.Token {
	if p.pos+1 >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[p.pos+1]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) isOp(text string) bool {
	t := p.cur()
	return t.Kind == lexer.Op && t.Text == text
}

func (p *Parser) isKeyword(word string) bool {
	t := p.cur()
	return t.Kind == lexer.Keyword && t.Text == word
}

func (p *Parser) span(start diag.Pos) diag.Span {
	prev := lexer.Token{}
	if p.pos > 0 {
		prev = p.toks[p.pos-1]
	}
	return diag.Span{Start: start, End: diag.Pos{Line: prev.Line, Col: prev.Col}}
}

func (p *Parser) pos0() diag.Pos { return diag.Pos{Line: p.cur().Line, Col: p.cur().Col} }

func (p *Parser) errorf(format string, args ...any) {
	t := p.cur()
	p.errs.Add(&ParseError{Line: t.Line, Col: t.Col, Detail: fmt.Sprintf(format, args...)})
}

func (p *Parser) expect(kind lexer.Kind, what string) (lexer.Token, bool) {
	if p.cur().Kind == kind {
		return p.advance(), true
	}
	p.errorf("expected %s, found %s", what, p.cur())
	return lexer.Token{}, false
}

func (p *Parser) expectOp(text string) bool {
	if p.isOp(text) {
		p.advance()
		return true
	}
	p.errorf("expected %q, found %s", text, p.cur())
	return false
}

// recoverToStmtBoundary implements panic-mode recovery: skip tokens until a
// `;`, `}`, or EOF (spec.md §4.5 "panic-mode recovery on statement
// boundaries").
func (p *Parser) recoverToStmtBoundary() {
	for {
		t := p.cur()
		if t.Kind == lexer.EOF || t.Kind == lexer.RBrace {
			return
		}
		if t.Kind == lexer.Semi {
			p.advance()
			return
		}
		p.advance()
	}
}

// ParseProgram parses every top-level item until EOF.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for p.cur().Kind != lexer.EOF {
		before := p.pos
		item := p.parseItem()
		if item != nil {
			prog.Items = append(prog.Items, item)
		}
		if p.pos == before {
			// Parser made no progress; force it forward to avoid an
			// infinite loop on a truly unparseable token.
			p.errorf("unexpected token %s", p.cur())
			p.advance()
		}
	}
	return prog
}

func (p *Parser) parseItem() ast.Item {
	pub := false
	if p.isKeyword("pub") {
		p.advance()
		pub = true
	}
	switch {
	case p.isKeyword("fn"):
		return p.parseFuncDecl(pub)
	case p.isKeyword("transform"):
		return p.parseTransformDecl(pub)
	case p.isKeyword("type"):
		return p.parseTypeAlias()
	case p.isKeyword("use"):
		return p.parseUseDecl()
	case p.isKeyword("mod"):
		return p.parseModDecl()
	case p.isKeyword("extern"):
		return p.parseExternDecl()
	default:
		p.errorf("expected item (fn/transform/type/use/mod/extern), found %s", p.cur())
		p.recoverToStmtBoundary()
		return nil
	}
}

func (p *Parser) parseTypeExprOpt() *ast.TypeExpr {
	if p.cur().Kind != lexer.Colon {
		return nil
	}
	p.advance() // ':'
	pos := p.pos0()
	name := p.cur().Text
	if p.cur().Kind != lexer.Ident && p.cur().Kind != lexer.Keyword {
		p.errorf("expected type name, found %s", p.cur())
		return nil
	}
	p.advance()
	return &ast.TypeExpr{Name: name, Pos: pos}
}

func (p *Parser) parseParams() []ast.Param {
	var params []ast.Param
	if !p.expect(lexer.LParen, "(") {
		return params
	}
	for p.cur().Kind != lexer.RParen && p.cur().Kind != lexer.EOF {
		pos := p.pos0()
		name, ok := p.expect(lexer.Ident, "parameter name")
		if !ok {
			break
		}
		typ := p.parseTypeExprOpt()
		params = append(params, ast.Param{Name: name.Text, Type: typ, Pos: pos})
		if p.cur().Kind == lexer.Comma {
			p.advance()
		} else {
			break
		}
	}
	p.expect(lexer.RParen, ")")
	return params
}

func (p *Parser) parseFuncDecl(pub bool) ast.Item {
	start := p.pos0()
	p.advance() // 'fn'
	name, _ := p.expect(lexer.Ident, "function name")
	params := p.parseParams()
	ret := p.parseTypeExprOpt()
	body := p.parseBlock()
	return ast.NewFuncDecl(name.Text, params, ret, body, pub, p.span(start))
}

func (p *Parser) parseTransformDecl(pub bool) ast.Item {
	start := p.pos0()
	p.advance() // 'transform'
	name, _ := p.expect(lexer.Ident, "transform name")
	params := p.parseParams()
	var param ast.Param
	if len(params) > 0 {
		param = params[0]
		if len(params) > 1 {
			p.errorf("transform %s takes exactly one parameter, got %d", name.Text, len(params))
		}
	}
	ret := p.parseTypeExprOpt()
	body := p.parseBlock()
	return ast.NewTransformDecl(name.Text, param, ret, body, pub, p.span(start))
}

func (p *Parser) parseTypeAlias() ast.Item {
	start := p.pos0()
	p.advance() // 'type'
	name, _ := p.expect(lexer.Ident, "type name")
	p.expectOp("=")
	typePos := p.pos0()
	underlying, _ := p.expect(lexer.Ident, "type name")
	if p.cur().Kind == lexer.Semi {
		p.advance()
	}
	return ast.NewTypeAliasDecl(name.Text, ast.TypeExpr{Name: underlying.Text, Pos: typePos}, p.span(start))
}

func (p *Parser) parseUseDecl() ast.Item {
	start := p.pos0()
	p.advance() // 'use'
	var path []string
	for p.cur().Kind == lexer.Ident || p.cur().Kind == lexer.ColonColon {
		if p.cur().Kind == lexer.Ident {
			path = append(path, p.cur().Text)
		}
		p.advance()
	}
	if p.cur().Kind == lexer.Semi {
		p.advance()
	}
	return ast.NewUseDecl(path, p.span(start))
}

func (p *Parser) parseModDecl() ast.Item {
	start := p.pos0()
	p.advance() // 'mod'
	name, _ := p.expect(lexer.Ident, "module name")
	if p.cur().Kind == lexer.Semi {
		p.advance()
	}
	return ast.NewModDecl(name.Text, p.span(start))
}

func (p *Parser) parseExternDecl() ast.Item {
	start := p.pos0()
	p.advance() // 'extern'
	p.advance() // 'fn' (keyword already checked by caller context)
	name, _ := p.expect(lexer.Ident, "extern function name")
	params := p.parseParams()
	ret := p.parseTypeExprOpt()
	if p.cur().Kind == lexer.Semi {
		p.advance()
	}
	return ast.NewExternDecl(name.Text, params, ret, p.span(start))
}

func (p *Parser) parseBlock() *ast.BlockStmt {
	start := p.pos0()
	if !p.expect(lexer.LBrace, "{") {
		return ast.NewBlockStmt(nil, p.span(start))
	}
	var stmts []ast.Stmt
	for p.cur().Kind != lexer.RBrace && p.cur().Kind != lexer.EOF {
		before := p.pos
		st := p.parseStmt()
		if st != nil {
			stmts = append(stmts, st)
		}
		if p.pos == before {
			p.recoverToStmtBoundary()
		}
	}
	p.expect(lexer.RBrace, "}")
	return ast.NewBlockStmt(stmts, p.span(start))
}

func (p *Parser) parseStmt() ast.Stmt {
	switch {
	case p.isKeyword("let"):
		return p.parseLetStmt()
	case p.isKeyword("return"):
		return p.parseReturnStmt()
	case p.isKeyword("if"):
		return p.parseIfStmt()
	case p.isKeyword("loop"):
		return p.parseLoopStmt()
	case p.isKeyword("break"):
		start := p.pos0()
		p.advance()
		p.expect(lexer.Semi, ";")
		return ast.NewBreakStmt(p.span(start))
	case p.isKeyword("continue"):
		start := p.pos0()
		p.advance()
		p.expect(lexer.Semi, ";")
		return ast.NewContinueStmt(p.span(start))
	case p.cur().Kind == lexer.Ident && p.peekNext().Kind == lexer.Op && p.peekNext().Text == "=":
		return p.parseAssignStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseLetStmt() ast.Stmt {
	start := p.pos0()
	p.advance() // 'let'
	name, _ := p.expect(lexer.Ident, "binding name")
	typ := p.parseTypeExprOpt()
	p.expectOp("=")
	expr := p.parseExpr()
	p.expect(lexer.Semi, ";")
	return ast.NewLetStmt(name.Text, typ, expr, p.span(start))
}

func (p *Parser) parseAssignStmt() ast.Stmt {
	start := p.pos0()
	name, _ := p.expect(lexer.Ident, "binding name")
	p.expectOp("=")
	expr := p.parseExpr()
	p.expect(lexer.Semi, ";")
	return ast.NewAssignStmt(name.Text, expr, p.span(start))
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	start := p.pos0()
	p.advance() // 'return'
	var expr ast.Expr
	if p.cur().Kind != lexer.Semi {
		expr = p.parseExpr()
	}
	p.expect(lexer.Semi, ";")
	return ast.NewReturnStmt(expr, p.span(start))
}

func (p *Parser) parseIfStmt() ast.Stmt {
	start := p.pos0()
	p.advance() // 'if'
	cond := p.parseExpr()
	then := p.parseBlock()
	var els *ast.BlockStmt
	if p.isKeyword("else") {
		p.advance()
		if p.isKeyword("if") {
			elseStart := p.pos0()
			inner := p.parseIfStmt()
			els = ast.NewBlockStmt([]ast.Stmt{inner}, p.span(elseStart))
		} else {
			els = p.parseBlock()
		}
	}
	return ast.NewIfStmt(cond, then, els, p.span(start))
}

func (p *Parser) parseLoopStmt() ast.Stmt {
	start := p.pos0()
	p.advance() // 'loop'
	body := p.parseBlock()
	return ast.NewLoopStmt(body, p.span(start))
}

func (p *Parser) parseExprStmt() ast.Stmt {
	start := p.pos0()
	expr := p.parseExpr()
	p.expect(lexer.Semi, ";")
	return ast.NewExprStmt(expr, p.span(start))
}

// --- expressions, precedence low -> high ---
// || ; && ; comparisons ; pipe (|>) ; | ^ & ; << >> ; + - ; * / ; ** ; unary ; postfix(call/layer/paren)

func (p *Parser) parseExpr() ast.Expr { return p.parseOr() }

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.isOp("||") {
		start := left.Span().Start
		p.advance()
		right := p.parseAnd()
		left = ast.NewBinaryExpr(ast.OpOr, left, right, diag.Span{Start: start})
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseCmp()
	for p.isOp("&&") {
		start := left.Span().Start
		p.advance()
		right := p.parseCmp()
		left = ast.NewBinaryExpr(ast.OpAnd, left, right, diag.Span{Start: start})
	}
	return left
}

var cmpOps = map[string]ast.BinOp{
	"==": ast.OpEq, "!=": ast.OpNeq, "<": ast.OpLt, "<=": ast.OpLe, ">": ast.OpGt, ">=": ast.OpGe,
}

func (p *Parser) parseCmp() ast.Expr {
	left := p.parsePipe()
	for p.cur().Kind == lexer.Op {
		op, ok := cmpOps[p.cur().Text]
		if !ok {
			break
		}
		start := left.Span().Start
		p.advance()
		right := p.parsePipe()
		left = ast.NewBinaryExpr(op, left, right, diag.Span{Start: start})
	}
	return left
}

func (p *Parser) parsePipe() ast.Expr {
	left := p.parseBitOr()
	for p.isOp("|>") {
		start := left.Span().Start
		p.advance()
		name, _ := p.expect(lexer.Ident, "transform name after |>")
		left = ast.NewPipeExpr(left, name.Text, diag.Span{Start: start})
	}
	return left
}

func (p *Parser) parseBitOr() ast.Expr {
	left := p.parseShift()
	for p.cur().Kind == lexer.Op && (p.cur().Text == "|" || p.cur().Text == "^" || p.cur().Text == "&") {
		var op ast.BinOp
		switch p.cur().Text {
		case "|":
			op = ast.OpBitOr
		case "^":
			op = ast.OpBitXor
		case "&":
			op = ast.OpBitAnd
		}
		start := left.Span().Start
		p.advance()
		right := p.parseShift()
		left = ast.NewBinaryExpr(op, left, right, diag.Span{Start: start})
	}
	return left
}

func (p *Parser) parseShift() ast.Expr {
	left := p.parseAdd()
	for (p.isOp("<") && p.peekNext().Kind == lexer.Op && p.peekNext().Text == "<") ||
		(p.isOp(">") && p.peekNext().Kind == lexer.Op && p.peekNext().Text == ">") {
		isLeft := p.cur().Text == "<"
		start := left.Span().Start
		p.advance()
		p.advance()
		right := p.parseAdd()
		op := ast.OpShr
		if isLeft {
			op = ast.OpShl
		}
		left = ast.NewBinaryExpr(op, left, right, diag.Span{Start: start})
	}
	return left
}

func (p *Parser) parseAdd() ast.Expr {
	left := p.parseMul()
	for p.isOp("+") || p.isOp("-") {
		op := ast.OpAdd
		if p.cur().Text == "-" {
			op = ast.OpSub
		}
		start := left.Span().Start
		p.advance()
		right := p.parseMul()
		left = ast.NewBinaryExpr(op, left, right, diag.Span{Start: start})
	}
	return left
}

func (p *Parser) parseMul() ast.Expr {
	left := p.parsePow()
	for (p.isOp("*") && !(p.peekNext().Kind == lexer.Op && p.peekNext().Text == "*")) || p.isOp("/") {
		op := ast.OpMul
		if p.cur().Text == "/" {
			op = ast.OpDiv
		}
		start := left.Span().Start
		p.advance()
		right := p.parsePow()
		left = ast.NewBinaryExpr(op, left, right, diag.Span{Start: start})
	}
	return left
}

func (p *Parser) parsePow() ast.Expr {
	left := p.parseUnary()
	if p.isOp("**") {
		start := left.Span().Start
		p.advance()
		right := p.parsePow() // right-associative
		return ast.NewBinaryExpr(ast.OpPow, left, right, diag.Span{Start: start})
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	start := p.pos0()
	switch {
	case p.isOp("~"):
		p.advance()
		operand := p.parseUnary()
		return ast.NewUnaryExpr(ast.OpConj, operand, p.span(start))
	case p.isOp("-"):
		p.advance()
		operand := p.parseUnary()
		return ast.NewUnaryExpr(ast.OpNegate, operand, p.span(start))
	case p.isOp("!"):
		p.advance()
		operand := p.parseUnary()
		return ast.NewUnaryExpr(ast.OpNot, operand, p.span(start))
	case p.isOp("|"):
		p.advance()
		operand := p.parseOr()
		p.expectOp("|")
		return ast.NewUnaryExpr(ast.OpMagnitude, operand, p.span(start))
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for {
		switch {
		case p.cur().Kind == lexer.Dot && p.peekNext().Kind == lexer.Layer:
			start := expr.Span().Start
			p.advance() // '.'
			layerTok := p.advance()
			expr = ast.NewLayerAccessExpr(expr, layerTok.Layer, diag.Span{Start: start})
		case p.cur().Kind == lexer.LParen:
			if id, ok := expr.(*ast.IdentExpr); ok {
				start := expr.Span().Start
				args := p.parseArgs()
				expr = ast.NewCallExpr(id.Name, args, diag.Span{Start: start})
			} else {
				return expr
			}
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgs() []ast.Expr {
	var args []ast.Expr
	p.advance() // '('
	for p.cur().Kind != lexer.RParen && p.cur().Kind != lexer.EOF {
		args = append(args, p.parseExpr())
		if p.cur().Kind == lexer.Comma {
			p.advance()
		} else {
			break
		}
	}
	p.expect(lexer.RParen, ")")
	return args
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.cur()
	start := p.pos0()
	switch t.Kind {
	case lexer.IntLit:
		p.advance()
		return ast.NewIntLitExpr(t.Int, p.span(start))
	case lexer.FloatLit:
		p.advance()
		return ast.NewFloatLitExpr(t.Float, p.span(start))
	case lexer.StringLit:
		p.advance()
		return ast.NewStringLitExpr(t.Text, p.span(start))
	case lexer.BoolLit:
		p.advance()
		return ast.NewBoolLitExpr(t.Int != 0, p.span(start))
	case lexer.LParen:
		p.advance()
		inner := p.parseExpr()
		p.expect(lexer.RParen, ")")
		return inner
	case lexer.Keyword:
		switch t.Text {
		case "feedback":
			p.advance()
			operand := p.parseUnary()
			return ast.NewFeedbackExpr(operand, p.span(start))
		case "emerge":
			p.advance()
			operand := p.parseUnary()
			return ast.NewEmergeExpr(operand, p.span(start))
		}
	case lexer.Ident:
		if t.Text == "State" && p.peekNext().Kind == lexer.LBrace {
			return p.parseStateLit()
		}
		p.advance()
		return ast.NewIdentExpr(t.Text, p.span(start))
	}
	p.errorf("unexpected token %s in expression", t)
	if t.Kind != lexer.Semi && t.Kind != lexer.RBrace {
		// A statement terminator is left for the caller, so a missing
		// expression is reported once rather than again as a missing ';'.
		p.advance()
	}
	return ast.NewIdentExpr("", p.span(start))
}

func (p *Parser) parseStateLit() ast.Expr {
	start := p.pos0()
	p.advance() // 'State'
	p.expect(lexer.LBrace, "{")
	var fields []ast.StateLitField
	for p.cur().Kind != lexer.RBrace && p.cur().Kind != lexer.EOF {
		fieldPos := p.pos0()
		layerTok, ok := p.expect(lexer.Layer, "layer literal (L0..LF)")
		if !ok {
			break
		}
		p.expect(lexer.Colon, ":")
		val := p.parseExpr()
		fields = append(fields, ast.StateLitField{Layer: layerTok.Layer, Value: val, Pos: fieldPos})
		if p.cur().Kind == lexer.Comma {
			p.advance()
		} else {
			break
		}
	}
	p.expect(lexer.RBrace, "}")
	return ast.NewStateLitExpr(fields, p.span(start))
}
