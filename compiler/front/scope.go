package front

import (
	"tlog.app/go/loc"

	"github.com/slowlang/ninecc/compiler/ast"
)

type (
	// Scope is the stack of visible names.
	// Locals are looked up innermost first, then globals.
	Scope struct {
		levels  []level
		globals map[string]*ast.Var
	}

	level struct {
		vars map[string]*ast.Var
		from loc.PC
	}
)

func NewScope() *Scope {
	return &Scope{
		globals: make(map[string]*ast.Var),
	}
}

// Enter pushes a new level and returns the depth to pass to Leave.
func (s *Scope) Enter() int {
	d := len(s.levels)

	s.levels = append(s.levels, level{
		vars: make(map[string]*ast.Var),
		from: loc.Caller(1),
	})

	return d
}

// Leave drops all the levels pushed since Enter returned depth.
func (s *Scope) Leave(depth int) {
	for i := depth; i < len(s.levels); i++ {
		s.levels[i] = level{}
	}

	s.levels = s.levels[:depth]
}

func (s *Scope) Depth() int { return len(s.levels) }

// Declare binds v in the innermost level, or globally outside of any.
func (s *Scope) Declare(v *ast.Var) {
	if len(s.levels) == 0 {
		s.DeclareGlobal(v)
		return
	}

	s.levels[len(s.levels)-1].vars[v.Name] = v
}

func (s *Scope) DeclareGlobal(v *ast.Var) {
	s.globals[v.Name] = v
}

func (s *Scope) Lookup(name string) *ast.Var {
	for i := len(s.levels) - 1; i >= 0; i-- {
		if v, ok := s.levels[i].vars[name]; ok {
			return v
		}
	}

	return s.globals[name]
}

// From is where the innermost level was entered.
func (s *Scope) From() loc.PC {
	if len(s.levels) == 0 {
		return 0
	}

	return s.levels[len(s.levels)-1].from
}
