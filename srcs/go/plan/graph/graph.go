// Package graph holds the directed graphs that route a collective: an edge
// i->j means rank i sends its buffer to rank j.
package graph

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Graph is a directed graph over ranks 0..Len()-1. A loop on a rank of a
// reduce graph makes it add what it receives to its own buffer.
type Graph struct {
	loop  []bool
	prevs [][]int
	nexts [][]int
}

func New(n int) *Graph {
	return &Graph{
		loop:  make([]bool, n),
		prevs: make([][]int, n),
		nexts: make([][]int, n),
	}
}

func (g *Graph) Len() int { return len(g.loop) }

// Connect adds the edge i->j, or a loop when i == j.
func (g *Graph) Connect(i, j int) {
	if i == j {
		g.loop[i] = true
		return
	}
	g.nexts[i] = append(g.nexts[i], j)
	g.prevs[j] = append(g.prevs[j], i)
}

func (g *Graph) HasLoop(i int) bool { return g.loop[i] }

func (g *Graph) Prevs(i int) []int { return g.prevs[i] }

func (g *Graph) Nexts(i int) []int { return g.nexts[i] }

// Isolated reports whether rank i neither sends nor receives.
func (g *Graph) Isolated(i int) bool {
	return len(g.prevs[i]) == 0 && len(g.nexts[i]) == 0
}

// Reverse flips every edge and drops loops.
func (g *Graph) Reverse() *Graph {
	r := New(g.Len())
	for i, js := range g.nexts {
		for _, j := range js {
			r.Connect(j, i)
		}
	}
	return r
}

func (g *Graph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d]{", g.Len())
	for i, l := range g.loop {
		if l {
			fmt.Fprintf(&sb, "(%d)", i)
		}
	}
	for i, js := range g.nexts {
		for _, j := range js {
			fmt.Fprintf(&sb, "(%d->%d)", i, j)
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// Digest hashes the edges and loops of g regardless of the order in which
// they were added.
func (g *Graph) Digest() uint32 {
	h := murmur3.New32()
	put := func(x int) { binary.Write(h, binary.LittleEndian, int32(x)) }
	put(g.Len())
	for i, l := range g.loop {
		if l {
			put(1)
		} else {
			put(0)
		}
		js := slices.Clone(g.nexts[i])
		slices.Sort(js)
		put(len(js))
		for _, j := range js {
			put(j)
		}
	}
	return h.Sum32()
}
