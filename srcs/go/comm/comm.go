// Package comm implements collectives over sharded tensors on top of an
// injected Backend. Every operation resolves a parallel.Mode to its Group
// through a Registry and runs on the FIFO queue of that mode, so that
// operations issued in the same order on every rank execute in that order.
package comm

import (
	"github.com/lsds/shardcomm/srcs/go/device"
	"github.com/lsds/shardcomm/srcs/go/ordergroup"
	"github.com/lsds/shardcomm/srcs/go/parallel"
	"github.com/lsds/shardcomm/srcs/go/tensor"
)

// Group is a fixed set of ranks that take part in a collective together.
type Group interface {
	// Ranks are the global ranks of the members, in group order.
	Ranks() []int
	Size() int
	// Rank is the index of the calling process in Ranks.
	Rank() int
}

// Backend moves tensors between the members of a group.
type Backend interface {
	JoinGroup(ranks []int) (Group, error)
	// AllGather copies the input of the i-th member of g into out[i].
	AllGather(out []*tensor.Tensor, in *tensor.Tensor, g Group) error
	// ReduceScatter sums in[r] over all members into out of member r.
	ReduceScatter(out *tensor.Tensor, in []*tensor.Tensor, g Group) error
	AllReduce(t *tensor.Tensor, g Group) error
	Broadcast(t *tensor.Tensor, src int, g Group) error
	Close() error
}

// Registry maps a parallel mode to the group of the calling process.
type Registry interface {
	WorldSize(m parallel.Mode) int
	Group(m parallel.Mode) (Group, error)
	LocalRank(m parallel.Mode) int
	Device() device.Device
	Backend() Backend
	// Queue is the executor shared by every operation on the group of m.
	Queue(m parallel.Mode) *ordergroup.OrderGroup
}
