package plan

import "github.com/lsds/shardcomm/srcs/go/plan/graph"

// Broadcast graphs route a buffer from one root to every rank. The reduce
// graph of a broadcast graph runs the same edges backwards.

// hostLayout groups ranks by host. leaders holds the first rank seen on
// each host, in rank order; leaderOf maps every rank to the leader of its
// host.
type hostLayout struct {
	leaders  []int
	leaderOf []int
}

func layoutOf(peers PeerList) hostLayout {
	l := hostLayout{leaderOf: make([]int, len(peers))}
	first := make(map[uint32]int)
	for rank, p := range peers {
		leader, ok := first[p.IPv4]
		if !ok {
			leader = rank
			first[p.IPv4] = rank
			l.leaders = append(l.leaders, rank)
		}
		l.leaderOf[rank] = leader
	}
	return l
}

// withLocalStars returns a graph where each leader feeds the other ranks of
// its host.
func (l hostLayout) withLocalStars() *graph.Graph {
	g := graph.New(len(l.leaderOf))
	for rank, leader := range l.leaderOf {
		if rank != leader {
			g.Connect(leader, rank)
		}
	}
	return g
}

// rotated lists the leaders starting from the i-th.
func (l hostLayout) rotated(i int) []int {
	k := len(l.leaders)
	out := make([]int, k)
	for j := range out {
		out[j] = l.leaders[(i+j)%k]
	}
	return out
}

func connectStar(g *graph.Graph, root int, ranks []int) {
	for _, r := range ranks {
		if r != root {
			g.Connect(root, r)
		}
	}
}

// connectHeap links ranks as a binary heap rooted at ranks[0].
func connectHeap(g *graph.Graph, ranks []int) {
	for i := range ranks {
		for _, c := range []int{2*i + 1, 2*i + 2} {
			if c < len(ranks) {
				g.Connect(ranks[i], ranks[c])
			}
		}
	}
}

func iota(k int) []int {
	rs := make([]int, k)
	for i := range rs {
		rs[i] = i
	}
	return rs
}

// Star is the broadcast graph of k ranks centred at root.
func Star(k, root int) *graph.Graph {
	g := graph.New(k)
	connectStar(g, root, iota(k))
	return g
}

// BinaryTree is the broadcast heap of k ranks rooted at 0.
func BinaryTree(k int) *graph.Graph {
	g := graph.New(k)
	connectHeap(g, iota(k))
	return g
}

// HostTree feeds every host from its leader, and every leader from the
// leader of rank 0.
func HostTree(peers PeerList) *graph.Graph {
	l := layoutOf(peers)
	g := l.withLocalStars()
	connectStar(g, l.leaders[0], l.leaders)
	return g
}

// HostStars returns one HostTree per host, each rooted at a different
// leader.
func HostStars(peers PeerList) []*graph.Graph {
	l := layoutOf(peers)
	var gs []*graph.Graph
	for _, root := range l.leaders {
		g := l.withLocalStars()
		connectStar(g, root, l.leaders)
		gs = append(gs, g)
	}
	return gs
}

// HostBinaryTrees links the leaders as a binary heap, once for every
// rotation of the leaders, below local stars.
func HostBinaryTrees(peers PeerList) []*graph.Graph {
	l := layoutOf(peers)
	var gs []*graph.Graph
	for i := range l.leaders {
		g := l.withLocalStars()
		connectHeap(g, l.rotated(i))
		gs = append(gs, g)
	}
	return gs
}

// ReduceOf reverses a broadcast graph and puts a loop on every rank, so
// that data is summed on its way to the root.
func ReduceOf(bcast *graph.Graph) *graph.Graph {
	g := bcast.Reverse()
	for i := 0; i < g.Len(); i++ {
		g.Connect(i, i)
	}
	return g
}

// Ring returns a reduce chain that starts after root and ends at root, and
// the broadcast chain that starts at root.
func Ring(k, root int) (reduce, bcast *graph.Graph) {
	reduce, bcast = graph.New(k), graph.New(k)
	at := func(i int) int { return (root + i) % k }
	for i := 0; i < k; i++ {
		reduce.Connect(i, i)
	}
	for i := 1; i < k; i++ {
		reduce.Connect(at(i), at(i+1))
		bcast.Connect(at(i-1), at(i))
	}
	return reduce, bcast
}
