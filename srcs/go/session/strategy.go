package session

import (
	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/lsds/shardcomm/srcs/go/plan/graph"
)

// strategy routes one AllReduce chunk: partial sums flow along reduceGraph
// to the root, then the total flows back along bcastGraph.
type strategy struct {
	reduceGraph *graph.Graph
	bcastGraph  *graph.Graph
}

type strategyList []strategy

func (sl strategyList) choose(h uint64) strategy {
	return sl[h%uint64(len(sl))]
}

func reversing(bcasts ...*graph.Graph) strategyList {
	sl := make(strategyList, len(bcasts))
	for i, b := range bcasts {
		sl[i] = strategy{reduceGraph: plan.ReduceOf(b), bcastGraph: b}
	}
	return sl
}

func stars(k int) []*graph.Graph {
	gs := make([]*graph.Graph, k)
	for r := range gs {
		gs[r] = plan.Star(k, r)
	}
	return gs
}

func rings(k int) strategyList {
	sl := make(strategyList, k)
	for r := range sl {
		sl[r].reduceGraph, sl[r].bcastGraph = plan.Ring(k, r)
	}
	return sl
}

// genStrategyList builds the routes of s over peers. Auto picks a star on
// a single host and binary trees of host stars otherwise.
func genStrategyList(peers plan.PeerList, s base.Strategy) strategyList {
	k := len(peers)
	if s == base.Auto {
		s = base.BinaryTreeStar
		if len(peers.Hosts()) == 1 {
			s = base.Star
		}
	}
	switch s {
	case base.Star:
		return reversing(plan.Star(k, rootRank))
	case base.MultiStar:
		return reversing(plan.HostStars(peers)...)
	case base.Clique:
		return reversing(stars(k)...)
	case base.Ring:
		return rings(k)
	case base.Tree:
		return reversing(plan.HostTree(peers))
	case base.BinaryTree:
		return reversing(plan.BinaryTree(k))
	case base.MultiBinaryTreeStar:
		return reversing(plan.HostBinaryTrees(peers)...)
	default:
		return reversing(plan.HostBinaryTrees(peers)[0])
	}
}
