package front

import (
	"github.com/slowlang/ninecc/compiler/ast"
	"github.com/slowlang/ninecc/compiler/diag"
	"github.com/slowlang/ninecc/compiler/lex"
	"github.com/slowlang/ninecc/compiler/tp"
)

// expr = assign
func (p *parser) expr() (ast.ID, error) {
	return p.assign()
}

// assign = equality ("=" assign)?
func (p *parser) assign() (ast.ID, error) {
	x, err := p.equality()
	if err != nil {
		return ast.None, err
	}

	eq, ok := p.consume("=")
	if !ok {
		return x, nil
	}

	y, err := p.assign()
	if err != nil {
		return ast.None, err
	}

	return p.add(ast.Assign{Base: ast.Base{Pos: eq.Pos}, L: x, R: y}), nil
}

// equality = relational ("==" relational | "!=" relational)*
func (p *parser) equality() (ast.ID, error) {
	x, err := p.relational()
	if err != nil {
		return ast.None, err
	}

	for {
		var op ast.Op

		tok := p.tok()

		switch {
		case tok.Is("=="):
			op = ast.Eq
		case tok.Is("!="):
			op = ast.Ne
		default:
			return x, nil
		}

		p.i++

		y, err := p.relational()
		if err != nil {
			return ast.None, err
		}

		x = p.binary(tok, op, x, y)
	}
}

// relational = add ("<" add | "<=" add | ">" add | ">=" add)*
func (p *parser) relational() (ast.ID, error) {
	x, err := p.addExpr()
	if err != nil {
		return ast.None, err
	}

	for {
		var op ast.Op
		var swap bool

		tok := p.tok()

		switch {
		case tok.Is("<"):
			op = ast.Lt
		case tok.Is("<="):
			op = ast.Le
		case tok.Is(">"):
			op, swap = ast.Lt, true
		case tok.Is(">="):
			op, swap = ast.Le, true
		default:
			return x, nil
		}

		p.i++

		y, err := p.addExpr()
		if err != nil {
			return ast.None, err
		}

		if swap {
			x, y = y, x
		}

		x = p.binary(tok, op, x, y)
	}
}

// add = mul ("+" mul | "-" mul)*
func (p *parser) addExpr() (ast.ID, error) {
	x, err := p.mul()
	if err != nil {
		return ast.None, err
	}

	for {
		tok := p.tok()

		if !tok.Is("+") && !tok.Is("-") {
			return x, nil
		}

		p.i++

		y, err := p.mul()
		if err != nil {
			return ast.None, err
		}

		if tok.Is("+") {
			x, err = p.newAdd(tok, x, y)
		} else {
			x, err = p.newSub(tok, x, y)
		}
		if err != nil {
			return ast.None, err
		}
	}
}

// mul = unary ("*" unary | "/" unary)*
func (p *parser) mul() (ast.ID, error) {
	x, err := p.unary()
	if err != nil {
		return ast.None, err
	}

	for {
		var op ast.Op

		tok := p.tok()

		switch {
		case tok.Is("*"):
			op = ast.Mul
		case tok.Is("/"):
			op = ast.Div
		default:
			return x, nil
		}

		p.i++

		y, err := p.unary()
		if err != nil {
			return ast.None, err
		}

		x = p.binary(tok, op, x, y)
	}
}

// unary = ("+" | "-" | "&" | "*")? unary
//
//	| "sizeof" unary
//	| suffix
func (p *parser) unary() (ast.ID, error) {
	tok := p.tok()
	base := ast.Base{Pos: tok.Pos}

	switch {
	case tok.Is("+"):
		p.i++

		return p.unary()
	case tok.Is("-"):
		p.i++

		x, err := p.unary()
		if err != nil {
			return ast.None, err
		}

		zero := p.add(ast.Num{Base: base})

		return p.binary(tok, ast.Sub, zero, x), nil
	case tok.Is("&"):
		p.i++

		x, err := p.unary()
		if err != nil {
			return ast.None, err
		}

		return p.add(ast.Addr{Base: base, X: x}), nil
	case tok.Is("*"):
		p.i++

		x, err := p.unary()
		if err != nil {
			return ast.None, err
		}

		return p.add(ast.Deref{Base: base, X: x}), nil
	case tok.Is("sizeof"):
		p.i++

		x, err := p.unary()
		if err != nil {
			return ast.None, err
		}

		err = p.annotate(x)
		if err != nil {
			return ast.None, err
		}

		size := p.prog.Type(x).Size()

		return p.add(ast.Num{Base: base, Val: int64(size)}), nil
	}

	return p.suffix()
}

// suffix = primary ("[" expr "]")*
func (p *parser) suffix() (ast.ID, error) {
	x, err := p.primary()
	if err != nil {
		return ast.None, err
	}

	for {
		tok, ok := p.consume("[")
		if !ok {
			return x, nil
		}

		idx, err := p.expr()
		if err != nil {
			return ast.None, err
		}

		if _, err = p.expect("]"); err != nil {
			return ast.None, err
		}

		sum, err := p.newAdd(tok, x, idx)
		if err != nil {
			return ast.None, err
		}

		x = p.add(ast.Deref{Base: ast.Base{Pos: tok.Pos}, X: sum})
	}
}

// primary = "(" "{" stmt+ "}" ")"
//
//	| "(" expr ")"
//	| ident ("(" args? ")")?
//	| str
//	| num
func (p *parser) primary() (ast.ID, error) {
	tok := p.tok()
	base := ast.Base{Pos: tok.Pos}

	switch {
	case tok.Is("(") && p.toks[p.i+1].Is("{"):
		p.i += 2

		return p.stmtExpr(base)
	case tok.Is("("):
		return p.parenExpr()
	case tok.Kind == lex.Ident:
		p.i++

		if _, ok := p.consume("("); ok {
			return p.call(tok)
		}

		v := p.scope.Lookup(string(tok.Text))
		if v == nil {
			return ast.None, p.errorf(diag.ScopeError, tok.Pos, "undefined variable")
		}

		return p.add(ast.VarRef{Base: base, Var: v}), nil
	case tok.Kind == lex.Str:
		p.i++

		v := p.newStringLiteral(tok)

		return p.add(ast.VarRef{Base: base, Var: v}), nil
	case tok.Kind == lex.Num:
		p.i++

		return p.add(ast.Num{Base: base, Val: tok.Val}), nil
	}

	return ast.None, p.errorf(diag.SyntaxError, tok.Pos, "expected an expression")
}

// call = ident "(" (assign ("," assign)*)? ")"
// The name and the opening paren are already consumed.
func (p *parser) call(name lex.Token) (ast.ID, error) {
	n := ast.Call{
		Base: ast.Base{Pos: name.Pos},
		Name: string(name.Text),
	}

	if _, ok := p.consume(")"); ok {
		return p.add(n), nil
	}

	for {
		if len(n.Args) == MaxArgs {
			return ast.None, p.errorf(diag.SyntaxError, p.tok().Pos, "too many arguments")
		}

		x, err := p.assign()
		if err != nil {
			return ast.None, err
		}

		n.Args = append(n.Args, x)

		if _, ok := p.consume(")"); ok {
			return p.add(n), nil
		}

		if _, err = p.expect(","); err != nil {
			return ast.None, err
		}
	}
}

// stmtExpr parses the rest of ({ stmt+ }).
// The value of the last statement is the value of the whole expression.
func (p *parser) stmtExpr(base ast.Base) (ast.ID, error) {
	depth := p.scope.Enter()
	defer p.scope.Leave(depth)

	p.tr.V("scope").Printw("enter statement expression", "depth", depth, "pos", base.Pos, "from", p.scope.From())

	body, err := p.compound()
	if err != nil {
		return ast.None, err
	}

	if len(body) == 0 {
		return ast.None, p.errorf(diag.SyntaxError, base.Pos, "void-valued statement expression unsupported")
	}

	last := body[len(body)-1]

	es, ok := p.prog.Node(last).(ast.ExprStmt)
	if !ok {
		return ast.None, p.errorf(diag.SyntaxError, p.prog.Pos(last), "void-valued statement expression unsupported")
	}

	body[len(body)-1] = es.X

	if _, err = p.expect(")"); err != nil {
		return ast.None, err
	}

	return p.add(ast.StmtExpr{Base: base, Body: body}), nil
}

func (p *parser) binary(tok lex.Token, op ast.Op, x, y ast.ID) ast.ID {
	return p.add(ast.Binary{Base: ast.Base{Pos: tok.Pos}, Op: op, L: x, R: y})
}

// newAdd picks between integer and pointer addition by the operand types.
func (p *parser) newAdd(tok lex.Token, x, y ast.ID) (ast.ID, error) {
	xt, yt, err := p.operandTypes(x, y)
	if err != nil {
		return ast.None, err
	}

	base := ast.Base{Pos: tok.Pos}

	switch {
	case tp.IsInteger(xt) && tp.IsInteger(yt):
		return p.binary(tok, ast.Add, x, y), nil
	case isPointer(xt) && tp.IsInteger(yt):
		return p.add(ast.PtrAdd{Base: base, Ptr: x, Off: y}), nil
	case tp.IsInteger(xt) && isPointer(yt):
		return p.add(ast.PtrAdd{Base: base, Ptr: y, Off: x}), nil
	}

	return ast.None, p.errorf(diag.TypeError, tok.Pos, "invalid operands")
}

// newSub picks between integer subtraction, pointer offset and pointer difference.
func (p *parser) newSub(tok lex.Token, x, y ast.ID) (ast.ID, error) {
	xt, yt, err := p.operandTypes(x, y)
	if err != nil {
		return ast.None, err
	}

	base := ast.Base{Pos: tok.Pos}

	switch {
	case tp.IsInteger(xt) && tp.IsInteger(yt):
		return p.binary(tok, ast.Sub, x, y), nil
	case isPointer(xt) && tp.IsInteger(yt):
		return p.add(ast.PtrSub{Base: base, Ptr: x, Off: y}), nil
	case isPointer(xt) && isPointer(yt):
		xe, _ := tp.Elem(xt)
		ye, _ := tp.Elem(yt)

		if !tp.Equal(xe, ye) {
			break
		}

		return p.add(ast.PtrDiff{Base: base, L: x, R: y}), nil
	}

	return ast.None, p.errorf(diag.TypeError, tok.Pos, "invalid operands")
}

func (p *parser) operandTypes(x, y ast.ID) (xt, yt tp.Type, err error) {
	err = p.annotate(x)
	if err != nil {
		return
	}

	err = p.annotate(y)
	if err != nil {
		return
	}

	return p.prog.Type(x), p.prog.Type(y), nil
}

func isPointer(t tp.Type) bool {
	_, ok := tp.Elem(t)
	return ok
}
