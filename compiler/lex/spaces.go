package lex

type (
	// Spaces is a set of skippable bytes, all of them below 64.
	Spaces uint64
)

var (
	SpaceAll = NewSpaces(' ', '\t', '\n', '\v', '\f', '\r')
)

func NewSpaces(skip ...byte) (ss Spaces) {
	for _, q := range skip {
		if q >= 64 {
			panic("too high char code")
		}

		ss |= 1 << q
	}

	return
}

func (s Spaces) Skip(b []byte, st int) (i int) {
	i = st

	for i < len(b) && b[i] < 64 && s&(1<<b[i]) != 0 {
		i++
	}

	return
}

