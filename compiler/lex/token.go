package lex

import (
	"fmt"

	"tlog.app/go/tlog/tlwire"
)

type (
	Kind int

	// Token is a lexeme of the source.
	// Text is a subslice of the source buffer, Str is the decoded
	// string literal contents including the terminating NUL.
	Token struct {
		Kind Kind
		Pos  int
		Text []byte

		Val int64
		Str []byte
	}
)

const (
	EOF Kind = iota
	Reserved
	Ident
	Num
	Str
)

func (t Token) Is(s string) bool {
	return t.Kind == Reserved && string(t.Text) == s
}

func (t Token) Len() int { return len(t.Text) }

func (t Token) String() string {
	if t.Kind == EOF {
		return "EOF"
	}

	return fmt.Sprintf("%v %q", t.Kind, t.Text)
}

func (t Token) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)

	b = e.AppendKeyString(b, "kind", t.Kind.String())
	b = e.AppendKeyInt(b, "pos", t.Pos)
	b = e.AppendKeyString(b, "text", string(t.Text))

	return b
}

func (k Kind) String() string {
	switch k {
	case EOF:
		return "eof"
	case Reserved:
		return "reserved"
	case Ident:
		return "ident"
	case Num:
		return "num"
	case Str:
		return "str"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}
