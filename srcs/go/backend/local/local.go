// Package local is an in-process comm.Backend where every rank is a
// goroutine. Each collective is a rendezvous: members post a private copy of
// their contribution, wait for the others, and compute their own result from
// the posted copies in group order.
package local

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/comm"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/tensor"
	"github.com/pkg/errors"
)

var (
	errClosed        = errors.New("backend closed")
	errNotMember     = errors.New("rank is not a member")
	errForeignGroup  = errors.New("group not created by this backend")
	errShapeMismatch = errors.New("shape mismatch")
	errBadSegments   = errors.New("bad number of segments")
)

// NewCluster returns one Backend per rank of a world of size n.
func NewCluster(n int) []*Backend {
	h := &hub{rounds: make(map[string]*round)}
	bs := make([]*Backend, n)
	for i := range bs {
		bs[i] = &Backend{hub: h, rank: i, worldSize: n}
	}
	return bs
}

type Backend struct {
	hub       *hub
	rank      int
	worldSize int

	mu     sync.Mutex
	closed bool
	joined int
}

type group struct {
	owner *Backend
	id    string
	ranks []int
	rank  int

	mu  sync.Mutex
	seq int
}

func (g *group) Ranks() []int { return g.ranks }

func (g *group) Size() int { return len(g.ranks) }

func (g *group) Rank() int { return g.rank }

func (g *group) next(op string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s/%s#%d", g.id, op, g.seq)
}

func (b *Backend) JoinGroup(ranks []int) (comm.Group, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errClosed
	}
	local := -1
	var parts []string
	for i, r := range ranks {
		if r < 0 || r >= b.worldSize {
			return nil, errors.Errorf("rank %d out of world of %d", r, b.worldSize)
		}
		if r == b.rank {
			local = i
		}
		parts = append(parts, fmt.Sprint(r))
	}
	if local < 0 {
		return nil, errors.Wrapf(errNotMember, "%d in %v", b.rank, ranks)
	}
	// members join their common groups in the same order
	id := fmt.Sprintf("g%d[%s]", b.joined, strings.Join(parts, ","))
	b.joined++
	return &group{
		owner: b,
		id:    id,
		ranks: append([]int(nil), ranks...),
		rank:  local,
	}, nil
}

func (b *Backend) groupOf(g comm.Group) (*group, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, errClosed
	}
	lg, ok := g.(*group)
	if !ok || lg.owner != b {
		return nil, errForeignGroup
	}
	return lg, nil
}

func (b *Backend) AllGather(out []*tensor.Tensor, in *tensor.Tensor, g comm.Group) error {
	lg, err := b.groupOf(g)
	if err != nil {
		return err
	}
	if len(out) != lg.Size() {
		return errors.Wrapf(errBadSegments, "%d outputs for group of %d", len(out), lg.Size())
	}
	for _, o := range out {
		if !o.Shape().Equal(in.Shape()) {
			return errors.Wrapf(errShapeMismatch, "output %s, input %s", o.Shape(), in.Shape())
		}
	}
	ins := tensors(b.hub.exchange(lg.next("allgather"), lg.Size(), lg.rank, in.Clone()))
	if err := sameShapes(ins); err != nil {
		return err
	}
	for i, x := range ins {
		out[i].CopyFrom(x)
	}
	return nil
}

func (b *Backend) ReduceScatter(out *tensor.Tensor, in []*tensor.Tensor, g comm.Group) error {
	lg, err := b.groupOf(g)
	if err != nil {
		return err
	}
	if len(in) != lg.Size() {
		return errors.Wrapf(errBadSegments, "%d inputs for group of %d", len(in), lg.Size())
	}
	for _, x := range in {
		if !x.Shape().Equal(out.Shape()) {
			return errors.Wrapf(errShapeMismatch, "uneven segment %s, output %s", x.Shape(), out.Shape())
		}
	}
	var mine []*tensor.Tensor
	for _, x := range in {
		mine = append(mine, x.Clone())
	}
	contributions := b.hub.exchange(lg.next("reducescatter"), lg.Size(), lg.rank, mine)
	segments := make([]*tensor.Tensor, len(contributions))
	for r, c := range contributions {
		segments[r] = c.([]*tensor.Tensor)[lg.rank]
	}
	if err := sameShapes(segments); err != nil {
		return err
	}
	return sum(out, segments)
}

func (b *Backend) AllReduce(t *tensor.Tensor, g comm.Group) error {
	lg, err := b.groupOf(g)
	if err != nil {
		return err
	}
	ins := tensors(b.hub.exchange(lg.next("allreduce"), lg.Size(), lg.rank, t.Clone()))
	if err := sameShapes(ins); err != nil {
		return err
	}
	return sum(t, ins)
}

func (b *Backend) Broadcast(t *tensor.Tensor, src int, g comm.Group) error {
	lg, err := b.groupOf(g)
	if err != nil {
		return err
	}
	if src < 0 || src >= lg.Size() {
		return errors.Errorf("broadcast root %d out of range [0, %d)", src, lg.Size())
	}
	ins := tensors(b.hub.exchange(lg.next("broadcast"), lg.Size(), lg.rank, t.Clone()))
	if err := sameShapes(ins); err != nil {
		return err
	}
	t.CopyFrom(ins[src])
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func sum(out *tensor.Tensor, ts []*tensor.Tensor) error {
	if len(ts) == 0 {
		return nil
	}
	out.CopyFrom(ts[0])
	for _, x := range ts[1:] {
		out.Reduce(x, base.SUM)
	}
	return nil
}

func tensors(xs []interface{}) []*tensor.Tensor {
	ts := make([]*tensor.Tensor, len(xs))
	for i, x := range xs {
		ts[i] = x.(*tensor.Tensor)
	}
	return ts
}

func sameShapes(ts []*tensor.Tensor) error {
	var first tensor.Shape
	for i, t := range ts {
		s := t.Shape()
		if i == 0 {
			first = s
			continue
		}
		if !first.Equal(s) {
			log.Debugf("member %d contributed %s, member 0 %s", i, s, first)
			return errors.Wrapf(errShapeMismatch, "%s vs %s", s, first)
		}
	}
	return nil
}
