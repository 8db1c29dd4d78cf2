package session

import (
	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/execution"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ReduceScatter splits SendBuf into Size() equal segments and leaves in
// RecvBuf of rank r the combination with OP of segment r of every peer.
// Contributions are combined in rank order so that every run gives the
// same bits.
func (sess *Session) ReduceScatter(w base.Workspace) error {
	k := len(sess.peers)
	n := w.RecvBuf.Count
	if w.SendBuf.Count != n*k {
		return errors.Errorf("reduce-scatter %s: send count %d != %d x %d", w.Name, w.SendBuf.Count, n, k)
	}
	if n == 0 {
		return nil
	}
	name := sess.scoped(w.Name)
	segment := func(r int) *base.Vector { return w.SendBuf.Slice(r*n, (r+1)*n) }
	parts := make([]*base.Vector, k)
	parts[sess.rank] = segment(sess.rank)
	others := sess.peers.Others(sess.self)
	var eg errgroup.Group
	eg.Go(func() error {
		return execution.Par(others, func(p plan.PeerID) error {
			r, _ := sess.peers.Rank(p)
			return sess.out.Send(p, name, segment(r), 0)
		})
	})
	eg.Go(func() error {
		return execution.Par(others, func(p plan.PeerID) error {
			r, _ := sess.peers.Rank(p)
			v, err := sess.in.Recv(p, name)
			if err != nil {
				return err
			}
			if v.Type != w.RecvBuf.Type || v.Count != n {
				return errors.Errorf("reduce-scatter %s: %d x %s from rank %d, want %d x %s",
					w.Name, v.Count, base.ShortName(v.Type), r, n, base.ShortName(w.RecvBuf.Type))
			}
			parts[r] = v
			return nil
		})
	})
	if err := eg.Wait(); err != nil {
		return err
	}
	if err := w.RecvBuf.CopyFrom(parts[0]); err != nil {
		return err
	}
	for _, p := range parts[1:] {
		base.Transform(w.RecvBuf, p, w.OP)
	}
	return nil
}
