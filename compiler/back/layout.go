package back

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/ninecc/compiler/ast"
	"github.com/slowlang/ninecc/compiler/tp"
)

// FrameAlign is the stack alignment the ABI requires at call sites.
const FrameAlign = 16

// Layout assigns each local its offset below the frame base
// and sets the function stack size.
// It's idempotent.
func Layout(ctx context.Context, prog *ast.Program) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "back: layout", "funcs", len(prog.Funcs))
	defer tr.Finish()

	for _, f := range prog.Funcs {
		off := 0

		for _, v := range f.Locals {
			off = tp.AlignTo(off+v.Type.Size(), v.Type.Align())
			v.Offset = off

			tr.V("layout").Printw("local", "func", f.Name, "name", v.Name, "type", v.Type, "offset", -off)
		}

		f.StackSize = off

		tr.V("layout").Printw("frame", "func", f.Name, "locals", len(f.Locals), "stack_size", f.StackSize)
	}
}

func frameSize(f *ast.Func) int {
	return tp.AlignTo(f.StackSize, FrameAlign)
}
