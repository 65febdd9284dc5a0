package back

import (
	"context"
	"math"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/ninecc/compiler/ast"
	"github.com/slowlang/ninecc/compiler/diag"
	"github.com/slowlang/ninecc/compiler/tp"
)

type (
	// Compiler emits Intel syntax x86-64 assembly.
	// Labels are unique within everything emitted by the same Compiler.
	Compiler struct {
		label int
	}

	funContext struct {
		*ast.Program
		*ast.Func

		tr tlog.Span
	}
)

var (
	argreg8 = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
	argreg4 = []string{"edi", "esi", "edx", "ecx", "r8d", "r9d"}
	argreg2 = []string{"di", "si", "dx", "cx", "r8w", "r9w"}
	argreg1 = []string{"dil", "sil", "dl", "cl", "r8b", "r9b"}
)

func New() *Compiler {
	return &Compiler{}
}

// CompileProgram appends the assembly of prog to b.
// prog must be laid out by Layout.
func (c *Compiler) CompileProgram(ctx context.Context, b []byte, prog *ast.Program) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile program", "globals", len(prog.Globals), "funcs", len(prog.Funcs))
	defer tr.Finish("err", &err)

	st := len(b)

	b = append(b, ".intel_syntax noprefix\n"...)

	b = c.compileData(ctx, b, prog)

	b = append(b, ".text\n"...)

	for _, f := range prog.Funcs {
		b, err = c.compileFunc(ctx, b, prog, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	tr.Printw("compiled", "size", len(b)-st, "labels", c.label)

	return b, nil
}

func (c *Compiler) compileData(ctx context.Context, b []byte, prog *ast.Program) []byte {
	b = append(b, ".data\n"...)

	for _, v := range prog.Globals {
		b = hfmt.Appendf(b, "%s:\n", v.Label)

		if v.Data == nil {
			b = hfmt.Appendf(b, "\t.zero\t%d\n", v.Type.Size())
			continue
		}

		for _, x := range v.Data {
			b = hfmt.Appendf(b, "\t.byte\t%d\n", x)
		}
	}

	return b
}

func (c *Compiler) compileFunc(ctx context.Context, b []byte, prog *ast.Program, fn *ast.Func) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile func", "name", fn.Name, "stack_size", fn.StackSize)
	defer tr.Finish("err", &err)

	f := &funContext{
		Program: prog,
		Func:    fn,
		tr:      tr,
	}

	st := len(b)

	b = hfmt.Appendf(b, ".global %s\n%[1]s:\n", fn.Name)

	b = append(b, "\tpush\trbp\n\tmov\trbp, rsp\n"...)
	b = hfmt.Appendf(b, "\tsub\trsp, %d\n", frameSize(fn))

	for i, v := range fn.Params {
		b = hfmt.Appendf(b, "\tmov\t%s [rbp-%d], %s\n", ptrSize(v.Type), v.Offset, argreg(v.Type, i))
	}

	for _, id := range fn.Body {
		b, err = c.genStmt(ctx, b, f, id)
		if err != nil {
			return nil, err
		}
	}

	b = hfmt.Appendf(b, ".L.return.%s:\n", fn.Name)
	b = append(b, "\tmov\trsp, rbp\n\tpop\trbp\n\tret\n"...)

	if tr.If("emit") {
		tr.Printw("emitted", "func", fn.Name, "asm", b[st:])
	}

	return b, nil
}

func (c *Compiler) genStmt(ctx context.Context, b []byte, f *funContext, id ast.ID) (_ []byte, err error) {
	switch n := f.Node(id).(type) {
	case ast.Null:
	case ast.ExprStmt:
		b, err = c.genExpr(ctx, b, f, n.X)
		if err != nil {
			return nil, err
		}

		b = append(b, "\tadd\trsp, 8\n"...)
	case ast.Return:
		b, err = c.genExpr(ctx, b, f, n.X)
		if err != nil {
			return nil, err
		}

		b = append(b, "\tpop\trax\n"...)
		b = hfmt.Appendf(b, "\tjmp\t.L.return.%s\n", f.Func.Name)
	case ast.Block:
		for _, s := range n.Body {
			b, err = c.genStmt(ctx, b, f, s)
			if err != nil {
				return nil, err
			}
		}
	case ast.If:
		seq := c.next()

		b, err = c.genCond(ctx, b, f, n.Cond, ".Lelse", seq)
		if err != nil {
			return nil, err
		}

		b, err = c.genStmt(ctx, b, f, n.Then)
		if err != nil {
			return nil, err
		}

		b = hfmt.Appendf(b, "\tjmp\t.Lend%d\n", seq)
		b = hfmt.Appendf(b, ".Lelse%d:\n", seq)

		if n.Else != ast.None {
			b, err = c.genStmt(ctx, b, f, n.Else)
			if err != nil {
				return nil, err
			}
		}

		b = hfmt.Appendf(b, ".Lend%d:\n", seq)
	case ast.While:
		seq := c.next()

		b = hfmt.Appendf(b, ".Lbegin%d:\n", seq)

		b, err = c.genCond(ctx, b, f, n.Cond, ".Lend", seq)
		if err != nil {
			return nil, err
		}

		b, err = c.genStmt(ctx, b, f, n.Body)
		if err != nil {
			return nil, err
		}

		b = hfmt.Appendf(b, "\tjmp\t.Lbegin%d\n", seq)
		b = hfmt.Appendf(b, ".Lend%d:\n", seq)
	case ast.For:
		seq := c.next()

		if n.Init != ast.None {
			b, err = c.genStmt(ctx, b, f, n.Init)
			if err != nil {
				return nil, err
			}
		}

		b = hfmt.Appendf(b, ".Lbegin%d:\n", seq)

		if n.Cond != ast.None {
			b, err = c.genCond(ctx, b, f, n.Cond, ".Lend", seq)
			if err != nil {
				return nil, err
			}
		}

		b, err = c.genStmt(ctx, b, f, n.Body)
		if err != nil {
			return nil, err
		}

		if n.Step != ast.None {
			b, err = c.genStmt(ctx, b, f, n.Step)
			if err != nil {
				return nil, err
			}
		}

		b = hfmt.Appendf(b, "\tjmp\t.Lbegin%d\n", seq)
		b = hfmt.Appendf(b, ".Lend%d:\n", seq)
	default:
		panic(n)
	}

	return b, nil
}

// genCond evaluates cond and jumps to label<seq> if it's zero.
func (c *Compiler) genCond(ctx context.Context, b []byte, f *funContext, cond ast.ID, label string, seq int) (_ []byte, err error) {
	b, err = c.genExpr(ctx, b, f, cond)
	if err != nil {
		return nil, err
	}

	b = append(b, "\tpop\trax\n\tcmp\trax, 0\n"...)
	b = hfmt.Appendf(b, "\tje\t%s%d\n", label, seq)

	return b, nil
}

// genExpr leaves the value of the expression on top of the stack.
func (c *Compiler) genExpr(ctx context.Context, b []byte, f *funContext, id ast.ID) (_ []byte, err error) {
	switch n := f.Node(id).(type) {
	case ast.Num:
		if n.Val >= math.MinInt32 && n.Val <= math.MaxInt32 {
			b = hfmt.Appendf(b, "\tpush\t%d\n", n.Val)
		} else {
			b = hfmt.Appendf(b, "\tmovabs\trax, %d\n\tpush\trax\n", n.Val)
		}
	case ast.VarRef, ast.Member:
		b, err = c.genAddr(ctx, b, f, id)
		if err != nil {
			return nil, err
		}

		b = load(b, f.Type(id))
	case ast.Deref:
		b, err = c.genExpr(ctx, b, f, n.X)
		if err != nil {
			return nil, err
		}

		b = load(b, f.Type(id))
	case ast.Addr:
		b, err = c.genAddr(ctx, b, f, n.X)
	case ast.Assign:
		b, err = c.genAddr(ctx, b, f, n.L)
		if err != nil {
			return nil, err
		}

		b, err = c.genExpr(ctx, b, f, n.R)
		if err != nil {
			return nil, err
		}

		b = store(b, f.Type(id))
	case ast.Call:
		b, err = c.genCall(ctx, b, f, n)
	case ast.StmtExpr:
		last := len(n.Body) - 1

		for _, s := range n.Body[:last] {
			b, err = c.genStmt(ctx, b, f, s)
			if err != nil {
				return nil, err
			}
		}

		b, err = c.genExpr(ctx, b, f, n.Body[last])
	case ast.Binary:
		b, err = c.genOperands(ctx, b, f, n.L, n.R)
		if err != nil {
			return nil, err
		}

		b = binop(b, n.Op)
	case ast.PtrAdd:
		b, err = c.genOperands(ctx, b, f, n.Ptr, n.Off)
		if err != nil {
			return nil, err
		}

		b = hfmt.Appendf(b, "\timul\trdi, %d\n\tadd\trax, rdi\n\tpush\trax\n", elemSize(f.Type(n.Ptr)))
	case ast.PtrSub:
		b, err = c.genOperands(ctx, b, f, n.Ptr, n.Off)
		if err != nil {
			return nil, err
		}

		b = hfmt.Appendf(b, "\timul\trdi, %d\n\tsub\trax, rdi\n\tpush\trax\n", elemSize(f.Type(n.Ptr)))
	case ast.PtrDiff:
		b, err = c.genOperands(ctx, b, f, n.L, n.R)
		if err != nil {
			return nil, err
		}

		b = hfmt.Appendf(b, "\tsub\trax, rdi\n\tcqo\n\tmov\trdi, %d\n\tidiv\trdi\n\tpush\trax\n", elemSize(f.Type(n.L)))
	default:
		panic(n)
	}

	if err != nil {
		return nil, err
	}

	return b, nil
}

// genOperands leaves x in rax and y in rdi.
func (c *Compiler) genOperands(ctx context.Context, b []byte, f *funContext, x, y ast.ID) (_ []byte, err error) {
	b, err = c.genExpr(ctx, b, f, x)
	if err != nil {
		return nil, err
	}

	b, err = c.genExpr(ctx, b, f, y)
	if err != nil {
		return nil, err
	}

	b = append(b, "\tpop\trdi\n\tpop\trax\n"...)

	return b, nil
}

// genAddr pushes the address of an lvalue.
func (c *Compiler) genAddr(ctx context.Context, b []byte, f *funContext, id ast.ID) (_ []byte, err error) {
	switch n := f.Node(id).(type) {
	case ast.VarRef:
		if n.Var.Local {
			b = hfmt.Appendf(b, "\tlea\trax, [rbp-%d]\n\tpush\trax\n", n.Var.Offset)
		} else {
			b = hfmt.Appendf(b, "\tlea\trax, [rip+%s]\n\tpush\trax\n", n.Var.Label)
		}
	case ast.Deref:
		b, err = c.genExpr(ctx, b, f, n.X)
	case ast.Member:
		b, err = c.genAddr(ctx, b, f, n.X)
		if err != nil {
			return nil, err
		}

		b = hfmt.Appendf(b, "\tpop\trax\n\tadd\trax, %d\n\tpush\trax\n", n.Field.Offset)
	default:
		e := f.Source.Errorf(diag.TypeError, f.Program.Pos(id), "not an lvalue")
		e.From = loc.Caller(0)

		return nil, e
	}

	if err != nil {
		return nil, err
	}

	return b, nil
}

func (c *Compiler) genCall(ctx context.Context, b []byte, f *funContext, n ast.Call) (_ []byte, err error) {
	for _, a := range n.Args {
		b, err = c.genExpr(ctx, b, f, a)
		if err != nil {
			return nil, err
		}
	}

	for i := len(n.Args) - 1; i >= 0; i-- {
		b = hfmt.Appendf(b, "\tpop\t%s\n", argreg8[i])
	}

	seq := c.next()

	f.tr.V("emit").Printw("call", "name", n.Name, "args", len(n.Args), "seq", seq)

	b = append(b, "\tmov\trax, rsp\n\tand\trax, 15\n"...)
	b = hfmt.Appendf(b, "\tjnz\t.L.call.%d\n", seq)
	b = hfmt.Appendf(b, "\tmov\trax, 0\n\tcall\t%s\n", n.Name)
	b = hfmt.Appendf(b, "\tjmp\t.L.end.%d\n", seq)
	b = hfmt.Appendf(b, ".L.call.%d:\n", seq)
	b = append(b, "\tsub\trsp, 8\n\tmov\trax, 0\n"...)
	b = hfmt.Appendf(b, "\tcall\t%s\n", n.Name)
	b = append(b, "\tadd\trsp, 8\n"...)
	b = hfmt.Appendf(b, ".L.end.%d:\n", seq)
	b = append(b, "\tpush\trax\n"...)

	return b, nil
}

func (c *Compiler) next() int {
	seq := c.label
	c.label++

	return seq
}

func binop(b []byte, op ast.Op) []byte {
	switch op {
	case ast.Add:
		b = append(b, "\tadd\trax, rdi\n"...)
	case ast.Sub:
		b = append(b, "\tsub\trax, rdi\n"...)
	case ast.Mul:
		b = append(b, "\timul\trax, rdi\n"...)
	case ast.Div:
		b = append(b, "\tcqo\n\tidiv\trdi\n"...)
	case ast.Eq, ast.Ne, ast.Lt, ast.Le:
		b = hfmt.Appendf(b, "\tcmp\trax, rdi\n\t%s\tal\n\tmovzx\trax, al\n", setcc(op))
	default:
		panic(op)
	}

	return append(b, "\tpush\trax\n"...)
}

func setcc(op ast.Op) string {
	switch op {
	case ast.Eq:
		return "sete"
	case ast.Ne:
		return "setne"
	case ast.Lt:
		return "setl"
	case ast.Le:
		return "setle"
	default:
		panic(op)
	}
}

// load replaces the address on top of the stack with the value it points to.
// Arrays and structs are left as addresses.
func load(b []byte, t tp.Type) []byte {
	switch t := t.(type) {
	case tp.Array, tp.Struct:
		return b
	case tp.Bool:
		b = append(b, "\tpop\trax\n\tmovzx\trax, byte ptr [rax]\n"...)
	case tp.Int:
		b = append(b, "\tpop\trax\n"...)

		switch {
		case t.Size() == 8:
			b = append(b, "\tmov\trax, [rax]\n"...)
		case t.Size() == 4 && t.Signed:
			b = append(b, "\tmovsxd\trax, dword ptr [rax]\n"...)
		case t.Size() == 4:
			b = append(b, "\tmov\teax, dword ptr [rax]\n"...)
		case t.Signed:
			b = hfmt.Appendf(b, "\tmovsx\trax, %s [rax]\n", ptrSize(t))
		default:
			b = hfmt.Appendf(b, "\tmovzx\trax, %s [rax]\n", ptrSize(t))
		}
	case tp.Ptr:
		b = append(b, "\tpop\trax\n\tmov\trax, [rax]\n"...)
	default:
		panic(t)
	}

	return append(b, "\tpush\trax\n"...)
}

// store pops the value and the address and writes the value.
// The value stays on the stack.
func store(b []byte, t tp.Type) []byte {
	b = append(b, "\tpop\trdi\n\tpop\trax\n"...)

	switch t := t.(type) {
	case tp.Struct:
		for i := 0; i < t.Size(); i++ {
			b = hfmt.Appendf(b, "\tmov\tr8b, [rdi+%d]\n\tmov\t[rax+%d], r8b\n", i, i)
		}
	case tp.Bool:
		b = append(b, "\tcmp\trdi, 0\n\tsetne\tdil\n\tmovzx\trdi, dil\n\tmov\t[rax], dil\n"...)
	default:
		b = hfmt.Appendf(b, "\tmov\t%s [rax], %s\n", ptrSize(t), reg("rdi", t.Size()))
	}

	return append(b, "\tpush\trdi\n"...)
}

func elemSize(t tp.Type) int {
	x, ok := tp.Elem(t)
	if !ok {
		panic(t)
	}

	return x.Size()
}

func ptrSize(t tp.Type) string {
	switch t.Size() {
	case 1:
		return "byte ptr"
	case 2:
		return "word ptr"
	case 4:
		return "dword ptr"
	case 8:
		return "qword ptr"
	default:
		panic(t)
	}
}

func argreg(t tp.Type, i int) string {
	switch t.Size() {
	case 1:
		return argreg1[i]
	case 2:
		return argreg2[i]
	case 4:
		return argreg4[i]
	case 8:
		return argreg8[i]
	default:
		panic(t)
	}
}

func reg(r string, size int) string {
	for i, x := range argreg8 {
		if x == r {
			return argreg(tp.Int{Bits: int16(size * 8)}, i)
		}
	}

	panic(r)
}
