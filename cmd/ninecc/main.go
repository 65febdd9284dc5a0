package main

import (
	"context"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/ninecc/compiler"
	"github.com/slowlang/ninecc/compiler/back"
	"github.com/slowlang/ninecc/compiler/diag"
	"github.com/slowlang/ninecc/compiler/format"
)

func main() {
	app := &cli.Command{
		Name:        "ninecc",
		Description: "ninecc compiles a small subset of C into x86-64 assembly",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("dump-ast", false, "print the annotated syntax tree to stderr"),
			cli.NewFlag("log", false, "write debug logs to stderr"),
			cli.NewFlag("v", "", "verbosity topics (dump_tokens, dump_ast, func, scope, types, layout, emit)"),
			cli.HelpFlag,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()

	if c.Bool("log") {
		tlog.SetVerbosity(c.String("v"))

		ctx = tlog.ContextWithSpan(ctx, tlog.Root())
	}

	if len(c.Args) != 1 {
		fatal(ctx, diag.Usagef("ninecc", "want exactly one source file, got %d", len(c.Args)))
	}

	name := c.Args[0]

	text, err := compiler.LoadFile(ctx, name)
	if err != nil {
		fatal(ctx, err)
	}

	if c.Bool("dump-ast") {
		prog, err := compiler.Parse(ctx, name, text)
		if err != nil {
			fatal(ctx, err)
		}

		b, err := format.Format(ctx, nil, prog)
		if err != nil {
			return errors.Wrap(err, "dump ast")
		}

		_, _ = os.Stderr.Write(b)

		obj, err := back.New().CompileProgram(ctx, nil, prog)
		if err != nil {
			fatal(ctx, err)
		}

		return write(obj)
	}

	obj, err := compiler.Compile(ctx, name, text)
	if err != nil {
		fatal(ctx, err)
	}

	return write(obj)
}

func write(obj []byte) error {
	_, err := os.Stdout.Write(obj)
	if err != nil {
		return errors.Wrap(err, "write output")
	}

	return nil
}

// fatal prints a compilation error the way compilers do and exits.
// Other errors are printed as is.
func fatal(ctx context.Context, err error) {
	tr := tlog.SpanFromContext(ctx)

	if e, ok := diag.As(err); ok {
		tr.Printw("compilation failed", "err", err, "raised_at", e.From)

		_ = diag.Fprint(os.Stderr, e)
	} else {
		tr.Printw("compilation failed", "err", err)

		_, _ = os.Stderr.WriteString(err.Error() + "\n")
	}

	os.Exit(1)
}
