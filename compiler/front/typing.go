package front

import (
	"github.com/slowlang/ninecc/compiler/ast"
	"github.com/slowlang/ninecc/compiler/diag"
	"github.com/slowlang/ninecc/compiler/tp"
)

// annotate attaches types to the subtree bottom-up.
// Nodes already annotated are skipped, so it's safe to call it
// on the same subtree again.
func (p *parser) annotate(id ast.ID) (err error) {
	if id == ast.None || p.prog.Typed(id) {
		return nil
	}

	var t tp.Type

	switch n := p.prog.Node(id).(type) {
	case ast.Num:
		t = tp.Int64
	case ast.VarRef:
		t = n.Var.Type
	case ast.Binary:
		xt, yt, err := p.operandTypes(n.L, n.R)
		if err != nil {
			return err
		}

		switch n.Op {
		case ast.Add, ast.Sub, ast.Mul, ast.Div:
			if !tp.IsInteger(xt) || !tp.IsInteger(yt) {
				return p.errorf(diag.TypeError, n.Pos, "invalid operands")
			}
		}

		t = tp.Int64
	case ast.PtrAdd:
		t, err = p.ptrArith(n.Ptr, n.Off)
	case ast.PtrSub:
		t, err = p.ptrArith(n.Ptr, n.Off)
	case ast.PtrDiff:
		_, _, err = p.operandTypes(n.L, n.R)

		t = tp.Int64
	case ast.Assign:
		xt, _, err := p.operandTypes(n.L, n.R)
		if err != nil {
			return err
		}

		if _, ok := xt.(tp.Array); ok || !ast.IsLvalue(p.prog.Node(n.L)) {
			return p.errorf(diag.TypeError, p.prog.Pos(n.L), "not an lvalue")
		}

		t = xt
	case ast.Addr:
		err = p.annotate(n.X)
		if err != nil {
			return err
		}

		if !ast.IsLvalue(p.prog.Node(n.X)) {
			return p.errorf(diag.TypeError, p.prog.Pos(n.X), "not an lvalue")
		}

		xt := p.prog.Type(n.X)

		if a, ok := xt.(tp.Array); ok {
			t = tp.PointerTo(a.X)
		} else {
			t = tp.PointerTo(xt)
		}
	case ast.Deref:
		err = p.annotate(n.X)
		if err != nil {
			return err
		}

		var ok bool

		t, ok = tp.Elem(p.prog.Type(n.X))
		if !ok {
			return p.errorf(diag.TypeError, n.Pos, "invalid pointer dereference")
		}
	case ast.Member:
		err = p.annotate(n.X)

		t = n.Field.Type
	case ast.Call:
		err = p.annotateAll(n.Args)

		t = tp.Int64
	case ast.StmtExpr:
		err = p.annotateAll(n.Body)
		if err != nil {
			return err
		}

		t = p.prog.Type(n.Body[len(n.Body)-1])
	case ast.Block:
		err = p.annotateAll(n.Body)
	case ast.If:
		err = p.annotateAll([]ast.ID{n.Cond, n.Then, n.Else})
	case ast.While:
		err = p.annotateAll([]ast.ID{n.Cond, n.Body})
	case ast.For:
		err = p.annotateAll([]ast.ID{n.Init, n.Cond, n.Step, n.Body})
	case ast.Return:
		err = p.annotate(n.X)
	case ast.ExprStmt:
		err = p.annotate(n.X)
	case ast.Null:
	default:
		panic(n)
	}

	if err != nil {
		return err
	}

	p.prog.SetType(id, t)

	if p.tr.If("types") {
		p.tr.Printw("annotate", "id", id, "type", t)
	}

	return nil
}

func (p *parser) annotateAll(ids []ast.ID) error {
	for _, id := range ids {
		err := p.annotate(id)
		if err != nil {
			return err
		}
	}

	return nil
}

// ptrArith types the pointer operand of PtrAdd and PtrSub.
// An array operand decays to a pointer to its element.
func (p *parser) ptrArith(ptr, off ast.ID) (tp.Type, error) {
	xt, _, err := p.operandTypes(ptr, off)
	if err != nil {
		return nil, err
	}

	if a, ok := xt.(tp.Array); ok {
		return tp.PointerTo(a.X), nil
	}

	return xt, nil
}
