package diag

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/loc"
)

type (
	Kind int

	Source struct {
		Name string
		Text []byte
	}

	// Error is a fatal compilation error pinned to a source location.
	// Line is 1-based, Col is the byte offset of the fault inside Text.
	Error struct {
		Kind Kind
		File string
		Line int
		Col  int
		Text string
		Msg  string

		From loc.PC
	}
)

const (
	_ Kind = iota
	LexError
	SyntaxError
	ScopeError
	TypeError
	UsageError
)

func NewSource(name string, text []byte) *Source {
	return &Source{
		Name: name,
		Text: text,
	}
}

// Errorf creates an error of the given kind at byte offset pos.
func (s *Source) Errorf(kind Kind, pos int, format string, args ...any) *Error {
	line, col, text := s.Locate(pos)

	return &Error{
		Kind: kind,
		File: s.Name,
		Line: line,
		Col:  col,
		Text: text,
		Msg:  fmt.Sprintf(format, args...),
		From: loc.Caller(1),
	}
}

// Locate returns the line number, the column and the line text of pos.
func (s *Source) Locate(pos int) (line, col int, text string) {
	b := s.Text

	if pos > len(b) {
		pos = len(b)
	}
	if pos < 0 {
		pos = 0
	}
	if pos == len(b) && pos > 0 && b[pos-1] == '\n' {
		pos--
	}

	st := bytes.LastIndexByte(b[:pos], '\n') + 1

	end := bytes.IndexByte(b[pos:], '\n')
	if end < 0 {
		end = len(b)
	} else {
		end += pos
	}

	line = bytes.Count(b[:st], []byte{'\n'}) + 1

	return line, pos - st, string(b[st:end])
}

func Usagef(file string, format string, args ...any) *Error {
	return &Error{
		Kind: UsageError,
		File: file,
		Msg:  fmt.Sprintf(format, args...),
		From: loc.Caller(1),
	}
}

// As finds the first *Error in the err chain.
func As(err error) (*Error, bool) {
	var e *Error

	if !errors.As(err, &e) {
		return nil, false
	}

	return e, true
}

func (e *Error) Error() string {
	switch {
	case e.Line != 0:
		return fmt.Sprintf("%s:%d:%d: %v: %s", e.File, e.Line, e.Col+1, e.Kind, e.Msg)
	case e.File != "":
		return fmt.Sprintf("%s: %v: %s", e.File, e.Kind, e.Msg)
	default:
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	}
}

// AppendCaret renders the error the way the driver prints it:
// the offending line prefixed with file and line, then a caret under the column.
func (e *Error) AppendCaret(b []byte) []byte {
	if e.Line == 0 {
		b = append(b, e.Error()...)
		return append(b, '\n')
	}

	st := len(b)
	b = hfmt.Appendf(b, "%s:%d: ", e.File, e.Line)
	indent := len(b) - st

	b = hfmt.Appendf(b, "%s\n", e.Text)

	for i := 0; i < indent+e.Col; i++ {
		b = append(b, ' ')
	}

	b = hfmt.Appendf(b, "^ %s\n", e.Msg)

	return b
}

func Fprint(w io.Writer, e *Error) error {
	_, err := w.Write(e.AppendCaret(nil))
	return err
}

func (k Kind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case SyntaxError:
		return "syntax error"
	case ScopeError:
		return "scope error"
	case TypeError:
		return "type error"
	case UsageError:
		return "usage error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}
