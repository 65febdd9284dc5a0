package front

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/ninecc/compiler/ast"
	"github.com/slowlang/ninecc/compiler/diag"
	"github.com/slowlang/ninecc/compiler/lex"
	"github.com/slowlang/ninecc/compiler/tp"
)

func parse(t *testing.T, text string) *ast.Program {
	t.Helper()

	prog, err := parseErr(text)
	require.NoError(t, err)

	return prog
}

func parseErr(text string) (*ast.Program, error) {
	ctx := context.Background()
	src := diag.NewSource("t.c", []byte(text))

	toks, err := lex.Tokenize(ctx, src)
	if err != nil {
		return nil, err
	}

	return Parse(ctx, src, toks)
}

// body parses text as the body of main and returns the program and its statements.
func body(t *testing.T, text string) (*ast.Program, []ast.ID) {
	t.Helper()

	prog := parse(t, "int main() {\n"+text+"\n}\n")
	require.Len(t, prog.Funcs, 1)

	return prog, prog.Funcs[0].Body
}

// exprOf returns the expression of the expression statement or return.
func exprOf(t *testing.T, prog *ast.Program, id ast.ID) ast.ID {
	t.Helper()

	switch n := prog.Node(id).(type) {
	case ast.ExprStmt:
		return n.X
	case ast.Return:
		return n.X
	default:
		t.Fatalf("not an expression statement: %T", n)
		return ast.None
	}
}

func node[T ast.Node](t *testing.T, prog *ast.Program, id ast.ID) T {
	t.Helper()

	n, ok := prog.Node(id).(T)
	require.True(t, ok, "got %T", prog.Node(id))

	return n
}

func TestPrecedence(t *testing.T) {
	prog, stmts := body(t, "return 1 + 2 * 3;")

	add := node[ast.Binary](t, prog, exprOf(t, prog, stmts[0]))
	assert.Equal(t, ast.Add, add.Op)
	assert.Equal(t, int64(1), node[ast.Num](t, prog, add.L).Val)

	mul := node[ast.Binary](t, prog, add.R)
	assert.Equal(t, ast.Mul, mul.Op)

	prog, stmts = body(t, "return (1 + 2) * 3;")

	mul = node[ast.Binary](t, prog, exprOf(t, prog, stmts[0]))
	assert.Equal(t, ast.Mul, mul.Op)
	assert.Equal(t, ast.Add, node[ast.Binary](t, prog, mul.L).Op)

	prog, stmts = body(t, "return 1 - 2 - 3;")

	sub := node[ast.Binary](t, prog, exprOf(t, prog, stmts[0]))
	assert.Equal(t, ast.Sub, sub.Op)
	assert.Equal(t, int64(3), node[ast.Num](t, prog, sub.R).Val, "left associative")
}

func TestRelationalSwap(t *testing.T) {
	for _, tc := range []struct {
		src string
		op  ast.Op
		l   int64
	}{
		{"return 1 < 2;", ast.Lt, 1},
		{"return 1 <= 2;", ast.Le, 1},
		{"return 1 > 2;", ast.Lt, 2},
		{"return 1 >= 2;", ast.Le, 2},
	} {
		prog, stmts := body(t, tc.src)

		b := node[ast.Binary](t, prog, exprOf(t, prog, stmts[0]))
		assert.Equal(t, tc.op, b.Op, tc.src)
		assert.Equal(t, tc.l, node[ast.Num](t, prog, b.L).Val, tc.src)
	}
}

func TestUnary(t *testing.T) {
	prog, stmts := body(t, "return -5;")

	b := node[ast.Binary](t, prog, exprOf(t, prog, stmts[0]))
	assert.Equal(t, ast.Sub, b.Op)
	assert.Equal(t, int64(0), node[ast.Num](t, prog, b.L).Val)
	assert.Equal(t, int64(5), node[ast.Num](t, prog, b.R).Val)

	prog, stmts = body(t, "return +5;")

	assert.Equal(t, int64(5), node[ast.Num](t, prog, exprOf(t, prog, stmts[0])).Val)
}

func TestDeclarationLowering(t *testing.T) {
	prog, stmts := body(t, "int x = 3; int y; return x;")
	require.Len(t, stmts, 3)

	as := node[ast.Assign](t, prog, exprOf(t, prog, stmts[0]))
	assert.Equal(t, "x", node[ast.VarRef](t, prog, as.L).Var.Name)
	assert.Equal(t, int64(3), node[ast.Num](t, prog, as.R).Val)

	node[ast.Null](t, prog, stmts[1])

	fn := prog.Funcs[0]
	require.Len(t, fn.Locals, 2)
	assert.Equal(t, "x", fn.Locals[0].Name)
	assert.Equal(t, "y", fn.Locals[1].Name)
	assert.True(t, fn.Locals[0].Local)
}

func TestParams(t *testing.T) {
	prog := parse(t, "int f(int a, char *b) { int c; return a; }\nint main() { return f(1, 2); }\n")
	require.Len(t, prog.Funcs, 2)

	f := prog.Funcs[0]
	assert.Equal(t, "f", f.Name)
	assert.Equal(t, tp.Int64, f.Ret)

	require.Len(t, f.Params, 2)
	assert.Equal(t, "a", f.Params[0].Name)
	assert.Equal(t, tp.PointerTo(tp.Char), f.Params[1].Type)

	var names []string
	for _, v := range f.Locals {
		names = append(names, v.Name)
	}

	assert.Equal(t, []string{"a", "b", "c"}, names)

	call := node[ast.Call](t, prog, exprOf(t, prog, prog.Funcs[1].Body[0]))
	assert.Equal(t, "f", call.Name)
	assert.Len(t, call.Args, 2)
}

func TestUndeclaredFunction(t *testing.T) {
	prog, stmts := body(t, "return foo(1, 2, 3, 4, 5, 6);")

	id := exprOf(t, prog, stmts[0])
	call := node[ast.Call](t, prog, id)

	assert.Equal(t, "foo", call.Name)
	assert.Len(t, call.Args, 6)
	assert.Equal(t, tp.Int64, prog.Type(id))
}

func TestPointerArith(t *testing.T) {
	prog, stmts := body(t, "int *p; int *q; p + 1; 1 + p; p - 1; p - q; 2 - 1;")

	ptr := tp.PointerTo(tp.Int64)

	id := exprOf(t, prog, stmts[2])
	pa := node[ast.PtrAdd](t, prog, id)
	assert.Equal(t, ptr, prog.Type(id))
	assert.Equal(t, "p", node[ast.VarRef](t, prog, pa.Ptr).Var.Name)

	id = exprOf(t, prog, stmts[3])
	pa = node[ast.PtrAdd](t, prog, id)
	assert.Equal(t, ptr, prog.Type(id))
	assert.Equal(t, "p", node[ast.VarRef](t, prog, pa.Ptr).Var.Name, "operands swapped")

	id = exprOf(t, prog, stmts[4])
	node[ast.PtrSub](t, prog, id)
	assert.Equal(t, ptr, prog.Type(id))

	id = exprOf(t, prog, stmts[5])
	node[ast.PtrDiff](t, prog, id)
	assert.Equal(t, tp.Int64, prog.Type(id))

	id = exprOf(t, prog, stmts[6])
	assert.Equal(t, ast.Sub, node[ast.Binary](t, prog, id).Op)
}

func TestArrayIndex(t *testing.T) {
	prog, stmts := body(t, "int a[3]; a[1];")

	id := exprOf(t, prog, stmts[1])
	d := node[ast.Deref](t, prog, id)
	assert.Equal(t, tp.Int64, prog.Type(id))

	pa := node[ast.PtrAdd](t, prog, d.X)
	assert.Equal(t, tp.PointerTo(tp.Int64), prog.Type(d.X))
	assert.Equal(t, int64(1), node[ast.Num](t, prog, pa.Off).Val)
}

func TestAddr(t *testing.T) {
	prog, stmts := body(t, "int x; int a[2]; &x; &a; *&x;")

	assert.Equal(t, tp.PointerTo(tp.Int64), prog.Type(exprOf(t, prog, stmts[2])))
	assert.Equal(t, tp.PointerTo(tp.Int64), prog.Type(exprOf(t, prog, stmts[3])), "array address is element pointer")
	assert.Equal(t, tp.Int64, prog.Type(exprOf(t, prog, stmts[4])))
}

func TestSizeof(t *testing.T) {
	for _, tc := range []struct {
		src  string
		size int64
	}{
		{"int x; return sizeof x;", 8},
		{"char c; return sizeof c;", 1},
		{"char *p; return sizeof p;", 8},
		{"char *p; return sizeof *p;", 1},
		{"return sizeof(1 + 2);", 8},
		{"int a[2][3]; return sizeof a;", 48},
		{"int a[2][3]; return sizeof a[1];", 24},
		{"int a[2][3]; return sizeof a[1][2];", 8},
		{"char s[10]; return sizeof(s);", 10},
		{"return sizeof \"abc\";", 4},
	} {
		prog, stmts := body(t, tc.src)

		n := node[ast.Num](t, prog, exprOf(t, prog, stmts[len(stmts)-1]))
		assert.Equal(t, tc.size, n.Val, tc.src)
	}
}

func TestShadowing(t *testing.T) {
	prog, stmts := body(t, "int x; { int x; x = 1; } x = 2;")

	fn := prog.Funcs[0]
	require.Len(t, fn.Locals, 2)

	outer, inner := fn.Locals[0], fn.Locals[1]
	assert.NotSame(t, outer, inner)

	blk := node[ast.Block](t, prog, stmts[1])
	as := node[ast.Assign](t, prog, exprOf(t, prog, blk.Body[1]))
	assert.Same(t, inner, node[ast.VarRef](t, prog, as.L).Var)

	as = node[ast.Assign](t, prog, exprOf(t, prog, stmts[2]))
	assert.Same(t, outer, node[ast.VarRef](t, prog, as.L).Var)
}

func TestBlockScopeEnds(t *testing.T) {
	_, err := parseErr("int main() { { int y; } return y; }\n")

	e, ok := diag.As(err)
	require.True(t, ok, "err: %v", err)
	assert.Equal(t, diag.ScopeError, e.Kind)
	assert.Equal(t, "undefined variable", e.Msg)
}

func TestGlobals(t *testing.T) {
	prog := parse(t, "int g; char *s[4];\nint main() { return g; }\n")

	require.Len(t, prog.Globals, 2)
	assert.Equal(t, "g", prog.Globals[0].Label)
	assert.Equal(t, tp.ArrayOf(tp.PointerTo(tp.Char), 4), prog.Globals[1].Type)

	ref := node[ast.VarRef](t, prog, exprOf(t, prog, prog.Funcs[0].Body[0]))
	assert.Same(t, prog.Globals[0], ref.Var)
	assert.False(t, ref.Var.Local)
}

func TestStringLiteral(t *testing.T) {
	prog, stmts := body(t, `char *s; s = "ab"; s = "c";`)

	require.Len(t, prog.Globals, 2)

	v := prog.Globals[0]
	assert.Equal(t, ".L.data.0", v.Label)
	assert.Equal(t, []byte("ab\x00"), v.Data)
	assert.Equal(t, tp.ArrayOf(tp.Char, 3), v.Type)

	assert.Equal(t, ".L.data.1", prog.Globals[1].Label)

	as := node[ast.Assign](t, prog, exprOf(t, prog, stmts[1]))
	assert.Same(t, v, node[ast.VarRef](t, prog, as.R).Var)
}

func TestStmtExpr(t *testing.T) {
	prog, stmts := body(t, "return ({ int a; a = 3; a + 1; });")

	id := exprOf(t, prog, stmts[0])
	se := node[ast.StmtExpr](t, prog, id)
	require.Len(t, se.Body, 3)

	last := node[ast.Binary](t, prog, se.Body[2])
	assert.Equal(t, ast.Add, last.Op, "last statement unwrapped")
	assert.Equal(t, tp.Int64, prog.Type(id))

	_, err := parseErr("int main() { return ({ int a; }); }\n")

	e, ok := diag.As(err)
	require.True(t, ok, "err: %v", err)
	assert.Equal(t, diag.SyntaxError, e.Kind)
	assert.Equal(t, "void-valued statement expression unsupported", e.Msg)

	_, err = parseErr("int main() { ({ int a; 1; }); return a; }\n")

	e, ok = diag.As(err)
	require.True(t, ok, "err: %v", err)
	assert.Equal(t, diag.ScopeError, e.Kind, "statement expression has its own scope")
}

func TestControlFlow(t *testing.T) {
	prog, stmts := body(t, "int i; for (i = 0; i < 10; i = i + 1) if (i) return 1; else return 2; while (i) i = i - 1; for (;;) return 0;")

	f := node[ast.For](t, prog, stmts[1])
	node[ast.ExprStmt](t, prog, f.Init)
	node[ast.ExprStmt](t, prog, f.Step)
	node[ast.Binary](t, prog, f.Cond)

	ifs := node[ast.If](t, prog, f.Body)
	node[ast.Return](t, prog, ifs.Then)
	node[ast.Return](t, prog, ifs.Else)

	w := node[ast.While](t, prog, stmts[2])
	node[ast.VarRef](t, prog, w.Cond)

	f = node[ast.For](t, prog, stmts[3])
	assert.Equal(t, ast.None, f.Init)
	assert.Equal(t, ast.None, f.Cond)
	assert.Equal(t, ast.None, f.Step)
}

func TestAnnotatedOnce(t *testing.T) {
	prog := parse(t, `int g[4];
int sum(int *a, int n) { int s = 0; int i; for (i = 0; i < n; i = i + 1) s = s + a[i]; return s; }
int main() { char *p = "hi"; int x = ({ int y = 2; y * sizeof(g); }); { int x; x = *p; } return sum(&x, 1) - x; }
`)

	assert.Equal(t, prog.Len(), prog.NumTyped())

	p := &parser{prog: prog}

	for id := 0; id < prog.Len(); id++ {
		require.NoError(t, p.annotate(ast.ID(id)), "reannotating is a no-op")
	}
}

func TestLookahead(t *testing.T) {
	for _, tc := range []struct {
		src string
		fn  bool
	}{
		{"int main() {}", true},
		{"char **f(int a) {}", true},
		{"int x;", false},
		{"int *x[3];", false},
		{"foo", false},
		{"int", false},
	} {
		ctx := context.Background()
		src := diag.NewSource("t.c", []byte(tc.src))

		toks, err := lex.Tokenize(ctx, src)
		require.NoError(t, err)

		p := &parser{src: src, toks: toks}

		assert.Equal(t, tc.fn, p.isFunction(), tc.src)
		assert.Equal(t, 0, p.i, "cursor restored: %s", tc.src)
	}
}

func TestErrors(t *testing.T) {
	for _, tc := range []struct {
		src  string
		kind diag.Kind
		msg  string
		col  int
	}{
		{"int main(){ return ; }", diag.SyntaxError, "expected an expression", 19},
		{"int main(){ return 1 }", diag.SyntaxError, "expected ';'", 21},
		{"int main(){ return x; }", diag.ScopeError, "undefined variable", 19},
		{"int main(){ int x; return *x; }", diag.TypeError, "invalid pointer dereference", 26},
		{"int main(){ 1 = 2; }", diag.TypeError, "not an lvalue", 12},
		{"int main(){ return &1; }", diag.TypeError, "not an lvalue", 20},
		{"int main(){ int a[2]; a = 1; }", diag.TypeError, "not an lvalue", 22},
		{"int main(){ int *p; char *q; return p - q; }", diag.TypeError, "invalid operands", 38},
		{"int main(){ int *p; int *q; return p + q; }", diag.TypeError, "invalid operands", 37},
		{"int main(){ int *p; return p * 2; }", diag.TypeError, "invalid operands", 29},
		{"int main(){ return f(1,2,3,4,5,6,7); }", diag.SyntaxError, "too many arguments", 33},
		{"int f(int a,int b,int c,int d,int e,int f,int g){ return 0; }", diag.SyntaxError, "too many parameters", 42},
		{"foo x;", diag.SyntaxError, "expected a type", 0},
		{"int a[0];", diag.SyntaxError, "array size must be positive", 6},
		{"int a[n];", diag.SyntaxError, "expected a number", 6},
		{"int a[4294967296];", diag.SyntaxError, "array too large", 6},
		{"int a[9223372036854775807];", diag.SyntaxError, "array too large", 6},
		{"int main(){ int a[300000000][8]; }", diag.SyntaxError, "array too large", 18},
		{"int main(){ return 1 @ 2; }", diag.SyntaxError, "expected ';'", 21},
		{"int 1;", diag.SyntaxError, "expected an identifier", 4},
		{"int main(){ return 1;", diag.SyntaxError, "expected an expression", 21},
	} {
		_, err := parseErr(tc.src)

		e, ok := diag.As(err)
		if !assert.True(t, ok, "%s: err: %v", tc.src, err) {
			continue
		}

		assert.Equal(t, tc.kind, e.Kind, tc.src)
		assert.Equal(t, tc.msg, e.Msg, tc.src)
		assert.Equal(t, 1, e.Line, tc.src)
		assert.Equal(t, tc.col, e.Col, tc.src)
	}
}

func TestErrorLine(t *testing.T) {
	_, err := parseErr("int main() {\n  int x;\n  return y;\n}\n")

	e, ok := diag.As(err)
	require.True(t, ok)

	assert.Equal(t, 3, e.Line)
	assert.Equal(t, 9, e.Col)
	assert.Equal(t, "  return y;", e.Text)
	assert.NotZero(t, e.From)
}
