package tp

import (
	"fmt"

	"tlog.app/go/tlog/tlwire"
)

type (
	Type interface {
		Size() int
		Align() int
		String() string
	}

	Int struct {
		Bits   int16
		Signed bool
	}

	// Bool is stored as one byte holding 0 or 1.
	Bool struct{}

	Ptr struct {
		X Type
	}

	Array struct {
		X   Type
		Len int
	}

	Struct struct {
		Fields []StructField
	}

	StructField struct {
		Name   string
		Offset int
		Type   Type
	}
)

var (
	Char  Type = Int{Bits: 8, Signed: true}
	Int64 Type = Int{Bits: 64, Signed: true}
)

func PointerTo(x Type) Type {
	return Ptr{X: x}
}

func ArrayOf(x Type, n int) Type {
	return Array{X: x, Len: n}
}

// NewStruct lays fields out in order, each aligned to its type.
func NewStruct(names []string, types []Type) Struct {
	var s Struct
	off := 0

	for i, t := range types {
		off = AlignTo(off, t.Align())

		s.Fields = append(s.Fields, StructField{
			Name:   names[i],
			Offset: off,
			Type:   t,
		})

		off += t.Size()
	}

	return s
}

func IsInteger(t Type) bool {
	switch t.(type) {
	case Int, Bool:
		return true
	}

	return false
}

// Elem returns the pointee of a pointer or the element of an array.
func Elem(t Type) (Type, bool) {
	switch t := t.(type) {
	case Ptr:
		return t.X, true
	case Array:
		return t.X, true
	}

	return nil, false
}

func Equal(x, y Type) bool {
	switch x := x.(type) {
	case Int:
		y, ok := y.(Int)
		return ok && x == y
	case Bool:
		_, ok := y.(Bool)
		return ok
	case Ptr:
		y, ok := y.(Ptr)
		return ok && Equal(x.X, y.X)
	case Array:
		y, ok := y.(Array)
		return ok && x.Len == y.Len && Equal(x.X, y.X)
	case Struct:
		y, ok := y.(Struct)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}

		for i, f := range x.Fields {
			g := y.Fields[i]

			if f.Name != g.Name || f.Offset != g.Offset || !Equal(f.Type, g.Type) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

func AlignTo(n, align int) int {
	return (n + align - 1) / align * align
}

func (x Int) Size() int {
	return int(x.Bits) / 8
}

func (x Int) Align() int { return x.Size() }

func (x Int) String() string {
	switch x.Bits {
	case 8:
		return "char"
	case 64:
		return "int"
	default:
		return fmt.Sprintf("int%d", x.Bits)
	}
}

func (x Bool) Size() int { return 1 }
func (x Bool) Align() int { return 1 }
func (x Bool) String() string { return "_Bool" }

func (x Ptr) Size() int {
	return 8
}

func (x Ptr) Align() int { return 8 }

func (x Ptr) String() string {
	return x.X.String() + "*"
}

func (x Array) Size() int {
	return x.X.Size() * x.Len
}

func (x Array) Align() int { return x.X.Align() }

func (x Array) String() string {
	var dims []byte
	var t Type = x

	for {
		a, ok := t.(Array)
		if !ok {
			break
		}

		dims = fmt.Appendf(dims, "[%d]", a.Len)
		t = a.X
	}

	return t.String() + string(dims)
}

func (x Struct) Size() (s int) {
	for _, f := range x.Fields {
		if end := f.Offset + f.Type.Size(); end > s {
			s = end
		}
	}

	return AlignTo(s, x.Align())
}

func (x Struct) Align() (a int) {
	a = 1

	for _, f := range x.Fields {
		if fa := f.Type.Align(); fa > a {
			a = fa
		}
	}

	return a
}

func (x Struct) String() string {
	b := []byte("struct {")

	for _, f := range x.Fields {
		b = fmt.Appendf(b, " %v %s;", f.Type, f.Name)
	}

	return string(append(b, " }"...))
}

// Field returns the field called name.
func (x Struct) Field(name string) (StructField, bool) {
	for _, f := range x.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return StructField{}, false
}

func (x Int) TlogAppend(b []byte) []byte { return appendString(b, x) }
func (x Ptr) TlogAppend(b []byte) []byte { return appendString(b, x) }
func (x Array) TlogAppend(b []byte) []byte { return appendString(b, x) }
func (x Struct) TlogAppend(b []byte) []byte { return appendString(b, x) }

func appendString(b []byte, t Type) []byte {
	var e tlwire.Encoder

	return e.AppendString(b, t.String())
}
