package ast

import (
	"github.com/slowlang/ninecc/compiler/diag"
	"github.com/slowlang/ninecc/compiler/tp"
)

type (
	// ID is a node handle in the Arena.
	ID int

	// Node is one of the node types below.
	Node interface {
		pos() int
	}

	// Base is embedded in every node. Pos is the byte offset
	// of the token the node was created from.
	Base struct {
		Pos int
	}

	Op int

	Num struct {
		Base `tlog:",embed"`

		Val int64
	}

	VarRef struct {
		Base `tlog:",embed"`

		Var *Var
	}

	Binary struct {
		Base `tlog:",embed"`

		Op   Op
		L, R ID
	}

	// PtrAdd is Ptr + Off*sizeof(*Ptr).
	PtrAdd struct {
		Base `tlog:",embed"`

		Ptr, Off ID
	}

	// PtrSub is Ptr - Off*sizeof(*Ptr).
	PtrSub struct {
		Base `tlog:",embed"`

		Ptr, Off ID
	}

	// PtrDiff is (L - R) / sizeof(*L).
	PtrDiff struct {
		Base `tlog:",embed"`

		L, R ID
	}

	Assign struct {
		Base `tlog:",embed"`

		L, R ID
	}

	Addr struct {
		Base `tlog:",embed"`

		X ID
	}

	Deref struct {
		Base `tlog:",embed"`

		X ID
	}

	Member struct {
		Base `tlog:",embed"`

		X     ID
		Field tp.StructField
	}

	Call struct {
		Base `tlog:",embed"`

		Name string
		Args []ID
	}

	// StmtExpr is a ({ ... }) block. Its last element is an expression
	// which value is the value of the whole node.
	StmtExpr struct {
		Base `tlog:",embed"`

		Body []ID
	}

	Block struct {
		Base `tlog:",embed"`

		Body []ID
	}

	If struct {
		Base `tlog:",embed"`

		Cond, Then, Else ID
	}

	While struct {
		Base `tlog:",embed"`

		Cond, Body ID
	}

	For struct {
		Base `tlog:",embed"`

		Init, Cond, Step, Body ID
	}

	Return struct {
		Base `tlog:",embed"`

		X ID
	}

	ExprStmt struct {
		Base `tlog:",embed"`

		X ID
	}

	Null struct {
		Base `tlog:",embed"`
	}

	Var struct {
		Name string
		Type tp.Type
		Pos  int

		Local  bool
		Offset int // from the frame base, locals only

		Label string // globals only
		Data  []byte // string literal contents
	}

	Func struct {
		Name string
		Pos  int
		Ret  tp.Type

		Params []*Var
		Locals []*Var // in declaration order, params first
		Body   []ID

		StackSize int
	}

	Program struct {
		*Arena

		Globals []*Var
		Funcs   []*Func

		Source *diag.Source
	}
)

// None is the absent child.
const None ID = -1

const (
	Add Op = iota
	Sub
	Mul
	Div
	Eq
	Ne
	Lt
	Le
)

func (b Base) pos() int { return b.Pos }

func (op Op) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Eq:
		return "=="
	case Ne:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	default:
		return "?"
	}
}

// IsLvalue reports whether the node denotes an addressable location.
func IsLvalue(n Node) bool {
	switch n.(type) {
	case VarRef, Deref, Member:
		return true
	}

	return false
}
