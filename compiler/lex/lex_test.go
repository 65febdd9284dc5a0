package lex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/ninecc/compiler/diag"
)

func tokenize(t *testing.T, text string) []Token {
	t.Helper()

	toks, err := Tokenize(context.Background(), diag.NewSource("t.c", []byte(text)))
	require.NoError(t, err)

	return toks
}

func kinds(toks []Token) (r []Kind) {
	for _, t := range toks {
		r = append(r, t.Kind)
	}

	return r
}

func texts(toks []Token) (r []string) {
	for _, t := range toks {
		r = append(r, string(t.Text))
	}

	return r
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		texts []string
		kinds []Kind
	}{
		{
			name:  "Empty",
			input: "\n",
			texts: []string{""},
			kinds: []Kind{EOF},
		},
		{
			name:  "Arith",
			input: "1+2*3\n",
			texts: []string{"1", "+", "2", "*", "3", ""},
			kinds: []Kind{Num, Reserved, Num, Reserved, Num, EOF},
		},
		{
			name:  "MultiPunct",
			input: "a==b!=c<=d>=e<f>g=h",
			texts: []string{"a", "==", "b", "!=", "c", "<=", "d", ">=", "e", "<", "f", ">", "g", "=", "h", ""},
			kinds: []Kind{Ident, Reserved, Ident, Reserved, Ident, Reserved, Ident, Reserved, Ident, Reserved, Ident, Reserved, Ident, Reserved, Ident, EOF},
		},
		{
			name:  "KeywordPrefix",
			input: "return returnx int_ int intx sizeof sizeof2 for_",
			texts: []string{"return", "returnx", "int_", "int", "intx", "sizeof", "sizeof2", "for_", ""},
			kinds: []Kind{Reserved, Ident, Ident, Reserved, Ident, Reserved, Ident, Ident, EOF},
		},
		{
			name:  "Punct",
			input: "{ ( [ ] ) } ; , & .",
			texts: []string{"{", "(", "[", "]", ")", "}", ";", ",", "&", ".", ""},
			kinds: []Kind{Reserved, Reserved, Reserved, Reserved, Reserved, Reserved, Reserved, Reserved, Reserved, Reserved, EOF},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			toks := tokenize(t, tc.input)

			assert.Equal(t, tc.texts, texts(toks))
			assert.Equal(t, tc.kinds, kinds(toks))
		})
	}
}

func TestTokenizeNumbers(t *testing.T) {
	toks := tokenize(t, "0 42 9223372036854775807")

	require.Len(t, toks, 4)
	assert.Equal(t, int64(0), toks[0].Val)
	assert.Equal(t, int64(42), toks[1].Val)
	assert.Equal(t, int64(9223372036854775807), toks[2].Val)
	assert.Equal(t, 2, toks[1].Pos)
	assert.Equal(t, 2, toks[1].Len())
}

func TestTokenizeStrings(t *testing.T) {
	toks := tokenize(t, `"abc" "a\nb\"c\\" ""`)

	require.Len(t, toks, 4)

	assert.Equal(t, Str, toks[0].Kind)
	assert.Equal(t, []byte("abc\x00"), toks[0].Str)
	assert.Equal(t, `"abc"`, string(toks[0].Text))

	assert.Equal(t, []byte("a\nb\"c\\\x00"), toks[1].Str)
	assert.Equal(t, []byte{0}, toks[2].Str)
}

func TestTokenizeSingleEOF(t *testing.T) {
	toks := tokenize(t, "int main() { return 0; }\n")

	n := 0
	for _, tk := range toks {
		if tk.Kind == EOF {
			n++
		}
	}

	assert.Equal(t, 1, n)
	assert.Equal(t, EOF, toks[len(toks)-1].Kind)
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		pos   int
		msg   string
	}{
		{name: "InvalidChar", input: "int a = 1 \x01 2;\n", pos: 10, msg: "invalid token"},
		{name: "NonASCII", input: "a = \xc3\xa9;\n", pos: 4, msg: "invalid token"},
		{name: "Unclosed", input: "x = \"abc\n", pos: 4, msg: "unclosed string literal"},
		{name: "UnclosedEOF", input: "\"abc", pos: 0, msg: "unclosed string literal"},
		{name: "Overflow", input: "99999999999999999999\n", pos: 0, msg: "integer literal out of range"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Tokenize(context.Background(), diag.NewSource("t.c", []byte(tc.input)))
			require.Error(t, err)

			e, ok := diag.As(err)
			require.True(t, ok)

			assert.Equal(t, diag.LexError, e.Kind)
			assert.Equal(t, tc.pos, e.Col)
			assert.Equal(t, tc.msg, e.Msg)
		})
	}
}

func TestReserved(t *testing.T) {
	assert.Equal(t, 6, reserved([]byte("return")))
	assert.Equal(t, 6, reserved([]byte("return;")))
	assert.Equal(t, 0, reserved([]byte("returns")))
	assert.Equal(t, 2, reserved([]byte("==1")))
	assert.Equal(t, 0, reserved([]byte("=1")))
}
