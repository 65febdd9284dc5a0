package lex

import (
	"bytes"
	"context"
	"strconv"

	"tlog.app/go/tlog"

	"github.com/slowlang/ninecc/compiler/diag"
)

var (
	Keywords = []string{"return", "if", "else", "while", "for", "char", "int", "sizeof"}

	puncts = []string{"==", "!=", "<=", ">="}
)

// Tokenize splits the whole source into tokens.
// The result always ends with exactly one EOF token.
func Tokenize(ctx context.Context, src *diag.Source) (toks []Token, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "lex: tokenize", "name", src.Name, "size", len(src.Text))
	defer tr.Finish("err", &err)

	b := src.Text

	for i := 0; ; {
		i = SpaceAll.Skip(b, i)
		if i == len(b) {
			break
		}

		if l := reserved(b[i:]); l != 0 {
			toks = append(toks, Token{Kind: Reserved, Pos: i, Text: b[i : i+l]})
			i += l

			continue
		}

		c := b[i]

		switch {
		case isAlpha(c):
			end := skipIdent(b, i+1)

			toks = append(toks, Token{Kind: Ident, Pos: i, Text: b[i:end]})
			i = end
		case c == '"':
			var t Token

			t, i, err = readString(src, i)
			if err != nil {
				return nil, err
			}

			toks = append(toks, t)
		case isDigit(c):
			end := i + 1
			for end < len(b) && isDigit(b[end]) {
				end++
			}

			v, err := strconv.ParseInt(string(b[i:end]), 10, 64)
			if err != nil {
				return nil, src.Errorf(diag.LexError, i, "integer literal out of range")
			}

			toks = append(toks, Token{Kind: Num, Pos: i, Text: b[i:end], Val: v})
			i = end
		case isPunct(c):
			toks = append(toks, Token{Kind: Reserved, Pos: i, Text: b[i : i+1]})
			i++
		default:
			return nil, src.Errorf(diag.LexError, i, "invalid token")
		}
	}

	toks = append(toks, Token{Kind: EOF, Pos: len(b), Text: b[len(b):]})

	tr.Printw("tokenized", "tokens", len(toks))

	if tr.If("dump_tokens") {
		for i, t := range toks {
			tr.Printw("token", "i", i, "tok", t)
		}
	}

	return toks, nil
}

// reserved returns the length of the keyword or multi-byte punctuator
// at the beginning of b, or 0.
func reserved(b []byte) int {
	for _, kw := range Keywords {
		if bytes.HasPrefix(b, []byte(kw)) && (len(b) == len(kw) || !isAlnum(b[len(kw)])) {
			return len(kw)
		}
	}

	for _, p := range puncts {
		if bytes.HasPrefix(b, []byte(p)) {
			return len(p)
		}
	}

	return 0
}

func readString(src *diag.Source, st int) (t Token, i int, err error) {
	b := src.Text
	var s []byte

	for i = st + 1; ; {
		if i == len(b) || b[i] == '\n' {
			return Token{}, i, src.Errorf(diag.LexError, st, "unclosed string literal")
		}

		c := b[i]

		if c == '"' {
			break
		}

		if c == '\\' {
			if i+1 == len(b) {
				return Token{}, i, src.Errorf(diag.LexError, st, "unclosed string literal")
			}

			s = append(s, escape(b[i+1]))
			i += 2

			continue
		}

		s = append(s, c)
		i++
	}

	i++ // closing quote
	s = append(s, 0)

	return Token{Kind: Str, Pos: st, Text: b[st:i], Str: s}, i, nil
}

func escape(c byte) byte {
	switch c {
	case 'a':
		return '\a'
	case 'b':
		return '\b'
	case 't':
		return '\t'
	case 'n':
		return '\n'
	case 'v':
		return '\v'
	case 'f':
		return '\f'
	case 'r':
		return '\r'
	case 'e':
		return 27
	case '0':
		return 0
	default:
		return c
	}
}

func skipIdent(b []byte, i int) int {
	for i < len(b) && isAlnum(b[i]) {
		i++
	}

	return i
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlnum(c byte) bool {
	return isAlpha(c) || isDigit(c)
}

func isPunct(c byte) bool {
	return c > ' ' && c < 0x7f && !isAlnum(c)
}
