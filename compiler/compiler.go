package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/ninecc/compiler/ast"
	"github.com/slowlang/ninecc/compiler/back"
	"github.com/slowlang/ninecc/compiler/diag"
	"github.com/slowlang/ninecc/compiler/format"
	"github.com/slowlang/ninecc/compiler/front"
	"github.com/slowlang/ninecc/compiler/lex"
)

// MaxFileSize is the largest source file LoadFile accepts.
const MaxFileSize = 10 << 20

// LoadFile reads the source file. The text always ends with a newline.
func LoadFile(ctx context.Context, name string) (text []byte, err error) {
	inf, err := os.Stat(name)
	if err != nil {
		return nil, diag.Usagef(name, "cannot open: %v", err)
	}

	if inf.Size() > MaxFileSize {
		return nil, diag.Usagef(name, "file too large")
	}

	text, err = os.ReadFile(name)
	if err != nil {
		return nil, diag.Usagef(name, "cannot read: %v", err)
	}

	if len(text) == 0 || text[len(text)-1] != '\n' {
		text = append(text, '\n')
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return text, nil
}

func CompileFile(ctx context.Context, name string) (obj []byte, err error) {
	text, err := LoadFile(ctx, name)
	if err != nil {
		return nil, err
	}

	return Compile(ctx, name, text)
}

// Parse runs the front end and lays out the stack frames.
func Parse(ctx context.Context, name string, text []byte) (prog *ast.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: parse", "name", name, "size", len(text))
	defer tr.Finish("err", &err)

	src := diag.NewSource(name, text)

	toks, err := lex.Tokenize(ctx, src)
	if err != nil {
		return nil, errors.Wrap(err, "tokenize")
	}

	prog, err = front.Parse(ctx, src, toks)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	back.Layout(ctx, prog)

	if tr.If("dump_ast") {
		b, err := format.Format(ctx, nil, prog)
		if err != nil {
			return nil, errors.Wrap(err, "dump ast")
		}

		tr.Printw("ast", "nodes", prog.Len(), "typed", prog.NumTyped(), "text", b)
	}

	return prog, nil
}

// Compile translates one translation unit into assembly text.
func Compile(ctx context.Context, name string, text []byte) (obj []byte, err error) {
	prog, err := Parse(ctx, name, text)
	if err != nil {
		return nil, err
	}

	c := back.New()

	obj, err = c.CompileProgram(ctx, nil, prog)
	if err != nil {
		return nil, errors.Wrap(err, "compile")
	}

	return obj, nil
}
