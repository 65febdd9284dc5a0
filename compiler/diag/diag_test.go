package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"
)

func TestLocate(t *testing.T) {
	src := NewSource("a.c", []byte("int x;\nint main() { return ; }\n"))

	line, col, text := src.Locate(0)
	assert.Equal(t, 1, line)
	assert.Equal(t, 0, col)
	assert.Equal(t, "int x;", text)

	line, col, text = src.Locate(7 + 20)
	assert.Equal(t, 2, line)
	assert.Equal(t, 20, col)
	assert.Equal(t, "int main() { return ; }", text)

	line, col, text = src.Locate(1000)
	assert.Equal(t, 2, line)
	assert.Equal(t, 23, col)
	assert.Equal(t, "int main() { return ; }", text)
}

func TestLocateEOF(t *testing.T) {
	src := NewSource("a.c", []byte("int x\n"))

	e := src.Errorf(SyntaxError, 6, "expected ';'")

	assert.Equal(t, 1, e.Line)
	assert.Equal(t, 5, e.Col)
	assert.Equal(t, "int x", e.Text)
	assert.Equal(t, "a.c:1: int x\n            ^ expected ';'\n", string(e.AppendCaret(nil)))

	line, col, text := NewSource("e.c", []byte("\n")).Locate(1)
	assert.Equal(t, 1, line)
	assert.Equal(t, 0, col)
	assert.Equal(t, "", text)
}

func TestCaret(t *testing.T) {
	src := NewSource("a.c", []byte("int main(){ return ; }\n"))

	e := src.Errorf(SyntaxError, 19, "expected an expression")

	exp := "a.c:1: int main(){ return ; }\n" +
		"                          ^ expected an expression\n"

	assert.Equal(t, exp, string(e.AppendCaret(nil)))
	assert.Equal(t, "a.c:1:20: syntax error: expected an expression", e.Error())
	assert.NotZero(t, e.From)
}

func TestAs(t *testing.T) {
	src := NewSource("a.c", []byte("x\n"))

	err := errors.Wrap(src.Errorf(ScopeError, 0, "undefined variable"), "parse")

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, ScopeError, e.Kind)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestUsage(t *testing.T) {
	e := Usagef("big.c", "file too large")

	assert.Equal(t, "big.c: usage error: file too large", e.Error())
	assert.Equal(t, "big.c: usage error: file too large\n", string(e.AppendCaret(nil)))
}
