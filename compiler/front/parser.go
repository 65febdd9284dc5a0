package front

import (
	"context"
	"fmt"
	"math"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/ninecc/compiler/ast"
	"github.com/slowlang/ninecc/compiler/diag"
	"github.com/slowlang/ninecc/compiler/lex"
	"github.com/slowlang/ninecc/compiler/tp"
)

type (
	parser struct {
		src  *diag.Source
		toks []lex.Token
		i    int

		prog  *ast.Program
		fn    *ast.Func
		scope *Scope

		strs int

		tr tlog.Span
	}
)

// MaxArgs is the number of integer argument registers.
const MaxArgs = 6

// MaxArraySize bounds the size of an array type in bytes.
const MaxArraySize = math.MaxInt32

// Parse builds the annotated syntax tree of a whole translation unit.
// toks must end with an EOF token.
func Parse(ctx context.Context, src *diag.Source, toks []lex.Token) (prog *ast.Program, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "front: parse", "name", src.Name, "tokens", len(toks))
	defer tr.Finish("err", &err)

	p := &parser{
		src:  src,
		toks: toks,
		prog: &ast.Program{
			Arena:  ast.NewArena(),
			Source: src,
		},
		scope: NewScope(),
		tr:    tr,
	}

	err = p.program()
	if err != nil {
		return nil, err
	}

	tr.Printw("parsed", "globals", len(p.prog.Globals), "funcs", len(p.prog.Funcs), "nodes", p.prog.Len())

	return p.prog, nil
}

// program = (function | global)*
func (p *parser) program() error {
	for !p.atEOF() {
		if p.isFunction() {
			f, err := p.function()
			if err != nil {
				return errors.Wrap(err, "func %v", p.ident(f))
			}

			p.prog.Funcs = append(p.prog.Funcs, f)

			continue
		}

		err := p.global()
		if err != nil {
			return err
		}
	}

	return nil
}

// isFunction reports whether the cursor is at `type ident (`.
func (p *parser) isFunction() bool {
	return p.lookahead(func() bool {
		_, err := p.basetype()
		if err != nil {
			return false
		}

		if _, ok := p.consumeIdent(); !ok {
			return false
		}

		_, ok := p.consume("(")

		return ok
	})
}

// function = basetype ident "(" params? ")" "{" stmt* "}"
func (p *parser) function() (fn *ast.Func, err error) {
	ret, err := p.basetype()
	if err != nil {
		return nil, err
	}

	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	fn = &ast.Func{
		Name: string(name.Text),
		Pos:  name.Pos,
		Ret:  ret,
	}

	p.fn = fn
	defer func() { p.fn = nil }()

	depth := p.scope.Enter()
	defer p.scope.Leave(depth)

	if _, err = p.expect("("); err != nil {
		return fn, err
	}

	err = p.params(fn)
	if err != nil {
		return fn, err
	}

	if _, err = p.expect("{"); err != nil {
		return fn, err
	}

	fn.Body, err = p.compound()
	if err != nil {
		return fn, err
	}

	p.tr.V("func").Printw("function", "name", fn.Name, "params", len(fn.Params), "locals", len(fn.Locals), "stmts", len(fn.Body))

	return fn, nil
}

// params = basetype ident ("," basetype ident)* ")"
func (p *parser) params(fn *ast.Func) error {
	if _, ok := p.consume(")"); ok {
		return nil
	}

	for {
		if len(fn.Params) == MaxArgs {
			return p.errorf(diag.SyntaxError, p.tok().Pos, "too many parameters")
		}

		t, err := p.basetype()
		if err != nil {
			return err
		}

		name, err := p.expectIdent()
		if err != nil {
			return err
		}

		v := p.newLocal(name, t)
		fn.Params = append(fn.Params, v)

		if _, ok := p.consume(")"); ok {
			return nil
		}

		if _, err = p.expect(","); err != nil {
			return err
		}
	}
}

// global = basetype ident ("[" num "]")* ";"
func (p *parser) global() error {
	t, err := p.basetype()
	if err != nil {
		return err
	}

	name, err := p.expectIdent()
	if err != nil {
		return err
	}

	t, err = p.typeSuffix(t)
	if err != nil {
		return err
	}

	if _, err = p.expect(";"); err != nil {
		return err
	}

	v := &ast.Var{
		Name:  string(name.Text),
		Type:  t,
		Pos:   name.Pos,
		Label: string(name.Text),
	}

	p.prog.Globals = append(p.prog.Globals, v)
	p.scope.DeclareGlobal(v)

	return nil
}

// basetype = ("char" | "int") "*"*
func (p *parser) basetype() (t tp.Type, err error) {
	switch tok := p.tok(); {
	case tok.Is("char"):
		t = tp.Char
	case tok.Is("int"):
		t = tp.Int64
	default:
		return nil, p.errorf(diag.SyntaxError, tok.Pos, "expected a type")
	}

	p.i++

	for {
		if _, ok := p.consume("*"); !ok {
			break
		}

		t = tp.PointerTo(t)
	}

	return t, nil
}

// typeSuffix = ("[" num "]" typeSuffix)?
func (p *parser) typeSuffix(t tp.Type) (tp.Type, error) {
	if _, ok := p.consume("["); !ok {
		return t, nil
	}

	pos := p.tok().Pos

	n, err := p.expectNumber()
	if err != nil {
		return nil, err
	}

	if n <= 0 {
		return nil, p.errorf(diag.SyntaxError, pos, "array size must be positive")
	}

	if _, err = p.expect("]"); err != nil {
		return nil, err
	}

	t, err = p.typeSuffix(t)
	if err != nil {
		return nil, err
	}

	if n > int64(MaxArraySize/t.Size()) {
		return nil, p.errorf(diag.SyntaxError, pos, "array too large")
	}

	return tp.ArrayOf(t, int(n)), nil
}

func (p *parser) isTypename() bool {
	return p.peek("char") || p.peek("int")
}

// compound parses statements up to and including the closing brace,
// annotating each one as soon as it is parsed.
func (p *parser) compound() (body []ast.ID, err error) {
	for {
		if _, ok := p.consume("}"); ok {
			return body, nil
		}

		id, err := p.stmt()
		if err != nil {
			return nil, err
		}

		err = p.annotate(id)
		if err != nil {
			return nil, err
		}

		body = append(body, id)
	}
}

// stmt = "return" expr ";"
//
//	| "if" "(" expr ")" stmt ("else" stmt)?
//	| "while" "(" expr ")" stmt
//	| "for" "(" expr? ";" expr? ";" expr? ")" stmt
//	| "{" stmt* "}"
//	| declaration
//	| expr ";"
func (p *parser) stmt() (ast.ID, error) {
	tok := p.tok()
	base := ast.Base{Pos: tok.Pos}

	switch {
	case tok.Is("return"):
		p.i++

		x, err := p.expr()
		if err != nil {
			return ast.None, err
		}

		if _, err = p.expect(";"); err != nil {
			return ast.None, err
		}

		return p.add(ast.Return{Base: base, X: x}), nil
	case tok.Is("if"):
		p.i++

		n := ast.If{Base: base, Else: ast.None}

		cond, err := p.parenExpr()
		if err != nil {
			return ast.None, err
		}

		n.Cond = cond

		n.Then, err = p.stmt()
		if err != nil {
			return ast.None, err
		}

		if _, ok := p.consume("else"); ok {
			n.Else, err = p.stmt()
			if err != nil {
				return ast.None, err
			}
		}

		return p.add(n), nil
	case tok.Is("while"):
		p.i++

		cond, err := p.parenExpr()
		if err != nil {
			return ast.None, err
		}

		body, err := p.stmt()
		if err != nil {
			return ast.None, err
		}

		return p.add(ast.While{Base: base, Cond: cond, Body: body}), nil
	case tok.Is("for"):
		p.i++

		return p.forStmt(base)
	case tok.Is("{"):
		p.i++

		depth := p.scope.Enter()
		defer p.scope.Leave(depth)

		p.tr.V("scope").Printw("enter block", "depth", depth, "pos", tok.Pos, "from", p.scope.From())

		body, err := p.compound()
		if err != nil {
			return ast.None, err
		}

		return p.add(ast.Block{Base: base, Body: body}), nil
	case p.isTypename():
		return p.declaration()
	}

	return p.exprStmt()
}

func (p *parser) forStmt(base ast.Base) (id ast.ID, err error) {
	n := ast.For{Base: base, Init: ast.None, Cond: ast.None, Step: ast.None}

	if _, err = p.expect("("); err != nil {
		return ast.None, err
	}

	if _, ok := p.consume(";"); !ok {
		n.Init, err = p.exprStmt()
		if err != nil {
			return ast.None, err
		}
	}

	if _, ok := p.consume(";"); !ok {
		n.Cond, err = p.expr()
		if err != nil {
			return ast.None, err
		}

		if _, err = p.expect(";"); err != nil {
			return ast.None, err
		}
	}

	if _, ok := p.consume(")"); !ok {
		x, err := p.expr()
		if err != nil {
			return ast.None, err
		}

		n.Step = p.add(ast.ExprStmt{Base: ast.Base{Pos: p.prog.Pos(x)}, X: x})

		if _, err = p.expect(")"); err != nil {
			return ast.None, err
		}
	}

	n.Body, err = p.stmt()
	if err != nil {
		return ast.None, err
	}

	return p.add(n), nil
}

// declaration = basetype ident ("[" num "]")* ("=" expr)? ";"
//
// It declares a new local and lowers to the initializing assignment,
// or to a null statement without an initializer.
func (p *parser) declaration() (ast.ID, error) {
	tok := p.tok()

	t, err := p.basetype()
	if err != nil {
		return ast.None, err
	}

	name, err := p.expectIdent()
	if err != nil {
		return ast.None, err
	}

	t, err = p.typeSuffix(t)
	if err != nil {
		return ast.None, err
	}

	v := p.newLocal(name, t)

	if _, ok := p.consume(";"); ok {
		return p.add(ast.Null{Base: ast.Base{Pos: tok.Pos}}), nil
	}

	eq, err := p.expect("=")
	if err != nil {
		return ast.None, err
	}

	lhs := p.add(ast.VarRef{Base: ast.Base{Pos: name.Pos}, Var: v})

	rhs, err := p.expr()
	if err != nil {
		return ast.None, err
	}

	if _, err = p.expect(";"); err != nil {
		return ast.None, err
	}

	as := p.add(ast.Assign{Base: ast.Base{Pos: eq.Pos}, L: lhs, R: rhs})

	return p.add(ast.ExprStmt{Base: ast.Base{Pos: tok.Pos}, X: as}), nil
}

// exprStmt = expr ";"
func (p *parser) exprStmt() (ast.ID, error) {
	pos := p.tok().Pos

	x, err := p.expr()
	if err != nil {
		return ast.None, err
	}

	if _, err = p.expect(";"); err != nil {
		return ast.None, err
	}

	return p.add(ast.ExprStmt{Base: ast.Base{Pos: pos}, X: x}), nil
}

func (p *parser) parenExpr() (ast.ID, error) {
	if _, err := p.expect("("); err != nil {
		return ast.None, err
	}

	x, err := p.expr()
	if err != nil {
		return ast.None, err
	}

	if _, err = p.expect(")"); err != nil {
		return ast.None, err
	}

	return x, nil
}

func (p *parser) newLocal(name lex.Token, t tp.Type) *ast.Var {
	v := &ast.Var{
		Name:  string(name.Text),
		Type:  t,
		Pos:   name.Pos,
		Local: true,
	}

	p.fn.Locals = append(p.fn.Locals, v)
	p.scope.Declare(v)

	p.tr.V("scope").Printw("declare", "name", v.Name, "type", v.Type, "depth", p.scope.Depth())

	return v
}

func (p *parser) newStringLiteral(tok lex.Token) *ast.Var {
	label := fmt.Sprintf(".L.data.%d", p.strs)
	p.strs++

	v := &ast.Var{
		Name:  label,
		Type:  tp.ArrayOf(tp.Char, len(tok.Str)),
		Pos:   tok.Pos,
		Label: label,
		Data:  tok.Str,
	}

	p.prog.Globals = append(p.prog.Globals, v)

	return v
}

func (p *parser) add(n ast.Node) ast.ID {
	return p.prog.Add(n)
}

// lookahead runs f and puts the cursor back whatever f did.
func (p *parser) lookahead(f func() bool) bool {
	st := p.i
	defer func() { p.i = st }()

	return f()
}

func (p *parser) tok() lex.Token {
	return p.toks[p.i]
}

func (p *parser) atEOF() bool {
	return p.tok().Kind == lex.EOF
}

func (p *parser) peek(s string) bool {
	return p.tok().Is(s)
}

func (p *parser) consume(s string) (lex.Token, bool) {
	t := p.tok()
	if !t.Is(s) {
		return t, false
	}

	p.i++

	return t, true
}

func (p *parser) consumeIdent() (lex.Token, bool) {
	t := p.tok()
	if t.Kind != lex.Ident {
		return t, false
	}

	p.i++

	return t, true
}

func (p *parser) expect(s string) (lex.Token, error) {
	t, ok := p.consume(s)
	if !ok {
		return t, p.errorf(diag.SyntaxError, t.Pos, "expected '%s'", s)
	}

	return t, nil
}

func (p *parser) expectIdent() (lex.Token, error) {
	t, ok := p.consumeIdent()
	if !ok {
		return t, p.errorf(diag.SyntaxError, t.Pos, "expected an identifier")
	}

	return t, nil
}

func (p *parser) expectNumber() (int64, error) {
	t := p.tok()
	if t.Kind != lex.Num {
		return 0, p.errorf(diag.SyntaxError, t.Pos, "expected a number")
	}

	p.i++

	return t.Val, nil
}

func (p *parser) ident(f *ast.Func) string {
	if f == nil {
		return "?"
	}

	return f.Name
}

func (p *parser) errorf(kind diag.Kind, pos int, format string, args ...any) error {
	e := p.src.Errorf(kind, pos, format, args...)
	e.From = loc.Caller(1)

	return e
}
