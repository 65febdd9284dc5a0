package ast

import (
	"fmt"

	"github.com/slowlang/ninecc/compiler/set"
	"github.com/slowlang/ninecc/compiler/tp"
)

type (
	// Arena owns all the nodes of a program.
	// Each node gets its type attached exactly once.
	// Statements are marked typed with a nil type.
	Arena struct {
		nodes []Node
		types []tp.Type
		typed set.Bitmap
	}
)

func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) Add(n Node) ID {
	id := ID(len(a.nodes))

	a.nodes = append(a.nodes, n)
	a.types = append(a.types, nil)

	return id
}

func (a *Arena) Node(id ID) Node {
	return a.nodes[id]
}

func (a *Arena) Len() int { return len(a.nodes) }

func (a *Arena) Pos(id ID) int {
	return a.nodes[id].pos()
}

func (a *Arena) Type(id ID) tp.Type {
	return a.types[id]
}

func (a *Arena) Typed(id ID) bool {
	return a.typed.IsSet(int(id))
}

func (a *Arena) SetType(id ID, t tp.Type) {
	if a.typed.IsSet(int(id)) {
		panic(fmt.Sprintf("node %d typed twice", id))
	}

	a.typed.Set(int(id))
	a.types[id] = t
}

// NumTyped is the number of annotated nodes.
func (a *Arena) NumTyped() int {
	return a.typed.Size()
}
