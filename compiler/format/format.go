package format

import (
	"context"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/ninecc/compiler/ast"
)

// Format appends a fully parenthesized C-like dump of x to b.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ast.Program:
		return formatProgram(ctx, b, x, d)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatProgram(ctx context.Context, b []byte, p *ast.Program, d int) (_ []byte, err error) {
	for _, v := range p.Globals {
		if v.Data != nil {
			b = app(b, d, "%v %s = %s;\n", v.Type, v.Label, strconv.Quote(string(v.Data)))
			continue
		}

		b = app(b, d, "%v %s;\n", v.Type, v.Label)
	}

	for i, f := range p.Funcs {
		if i != 0 || len(p.Globals) != 0 {
			b = append(b, '\n')
		}

		b, err = formatFunc(ctx, b, p, f, d)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, p *ast.Program, f *ast.Func, d int) (_ []byte, err error) {
	b = app(b, d, "%v %s(", f.Ret, f.Name)

	for i, a := range f.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = app(b, 0, "%v %s", a.Type, a.Name)
	}

	b = app(b, 0, ") { // stack_size %d\n", f.StackSize)

	for _, v := range f.Locals {
		b = app(b, d+1, "// %v %s [rbp-%d]\n", v.Type, v.Name, v.Offset)
	}

	for _, id := range f.Body {
		b, err = formatStmt(ctx, b, p, id, d+1)
		if err != nil {
			return nil, err
		}
	}

	b = app(b, d, "}\n")

	return b, nil
}

func formatStmt(ctx context.Context, b []byte, p *ast.Program, id ast.ID, d int) (_ []byte, err error) {
	switch x := p.Node(id).(type) {
	case ast.Null:
		b = app(b, d, ";\n")
	case ast.ExprStmt:
		b = app(b, d, "")

		b, err = formatExpr(ctx, b, p, x.X, d)
		if err != nil {
			return nil, err
		}

		b = append(b, ";\n"...)
	case ast.Return:
		b = app(b, d, "return ")

		b, err = formatExpr(ctx, b, p, x.X, d)
		if err != nil {
			return nil, errors.Wrap(err, "return")
		}

		b = append(b, ";\n"...)
	case ast.Block:
		b = app(b, d, "{\n")

		for _, s := range x.Body {
			b, err = formatStmt(ctx, b, p, s, d+1)
			if err != nil {
				return nil, err
			}
		}

		b = app(b, d, "}\n")
	case ast.If:
		b = app(b, d, "if (")

		b, err = formatExpr(ctx, b, p, x.Cond, d)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, ")\n"...)

		b, err = formatStmt(ctx, b, p, x.Then, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}

		if x.Else != ast.None {
			b = app(b, d, "else\n")

			b, err = formatStmt(ctx, b, p, x.Else, d+1)
			if err != nil {
				return nil, errors.Wrap(err, "else")
			}
		}
	case ast.While:
		b = app(b, d, "while (")

		b, err = formatExpr(ctx, b, p, x.Cond, d)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, ")\n"...)

		b, err = formatStmt(ctx, b, p, x.Body, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}
	case ast.For:
		b = app(b, d, "for (")

		for i, s := range []ast.ID{x.Init, x.Cond, x.Step} {
			if i != 0 {
				b = append(b, "; "...)
			}

			if s == ast.None {
				continue
			}

			if es, ok := p.Node(s).(ast.ExprStmt); ok {
				s = es.X
			}

			b, err = formatExpr(ctx, b, p, s, d)
			if err != nil {
				return nil, errors.Wrap(err, "for header")
			}
		}

		b = append(b, ")\n"...)

		b, err = formatStmt(ctx, b, p, x.Body, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}
	default:
		return nil, errors.New("unsupported stmt: %T", x)
	}

	return b, nil
}

func formatExpr(ctx context.Context, b []byte, p *ast.Program, id ast.ID, d int) (_ []byte, err error) {
	pair := func(f string, l, r ast.ID) {
		b = append(b, '(')

		b, err = formatExpr(ctx, b, p, l, d)
		if err != nil {
			return
		}

		b = app(b, 0, f)

		b, err = formatExpr(ctx, b, p, r, d)
		if err != nil {
			return
		}

		b = append(b, ')')
	}

	switch x := p.Node(id).(type) {
	case ast.Num:
		b = app(b, 0, "%d", x.Val)
	case ast.VarRef:
		b = append(b, x.Var.Name...)
	case ast.Binary:
		pair(" "+x.Op.String()+" ", x.L, x.R)
	case ast.Assign:
		pair(" = ", x.L, x.R)
	case ast.PtrAdd:
		pair(" +ptr ", x.Ptr, x.Off)
	case ast.PtrSub:
		pair(" -ptr ", x.Ptr, x.Off)
	case ast.PtrDiff:
		pair(" -diff ", x.L, x.R)
	case ast.Addr:
		b = append(b, "(&"...)

		b, err = formatExpr(ctx, b, p, x.X, d)

		b = append(b, ')')
	case ast.Deref:
		b = append(b, "(*"...)

		b, err = formatExpr(ctx, b, p, x.X, d)

		b = append(b, ')')
	case ast.Member:
		b, err = formatExpr(ctx, b, p, x.X, d)

		b = app(b, 0, ".%s", x.Field.Name)
	case ast.Call:
		b = app(b, 0, "%s(", x.Name)

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = formatExpr(ctx, b, p, a, d)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}
		}

		b = append(b, ')')
	case ast.StmtExpr:
		b = append(b, "({\n"...)

		last := len(x.Body) - 1

		for _, s := range x.Body[:last] {
			b, err = formatStmt(ctx, b, p, s, d+1)
			if err != nil {
				return nil, err
			}
		}

		b = app(b, d+1, "")

		b, err = formatExpr(ctx, b, p, x.Body[last], d+1)
		if err != nil {
			return nil, err
		}

		b = append(b, ";\n"...)
		b = app(b, d, "})")
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	if err != nil {
		return nil, err
	}

	return b, nil
}

func app(b []byte, d int, f string, args ...any) []byte {
	for i := 0; i < d; i++ {
		b = append(b, '\t')
	}

	b = hfmt.Appendf(b, f, args...)
	return b
}
