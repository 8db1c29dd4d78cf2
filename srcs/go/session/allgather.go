package session

import (
	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/execution"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/lsds/shardcomm/srcs/go/rchannel"
	"github.com/lsds/shardcomm/srcs/go/utils"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// AllGather leaves the SendBuf of every peer, in rank order, in RecvBuf of
// every peer. Every peer sends directly to every other.
func (sess *Session) AllGather(w base.Workspace) error {
	n := w.SendBuf.Count
	if w.RecvBuf.Count != n*len(sess.peers) {
		return errors.Errorf("allgather %s: recv count %d != %d x %d", w.Name, w.RecvBuf.Count, n, len(sess.peers))
	}
	if n == 0 {
		return nil
	}
	segment := func(r int) *base.Vector { return w.RecvBuf.Slice(r*n, (r+1)*n) }
	if err := segment(sess.rank).CopyFrom(w.SendBuf); err != nil {
		return err
	}
	name := sess.scoped(w.Name)
	others := sess.peers.Others(sess.self)
	var eg errgroup.Group
	eg.Go(func() error {
		return execution.Par(others, func(p plan.PeerID) error {
			return sess.out.Send(p, name, w.SendBuf, rchannel.Direct)
		})
	})
	eg.Go(func() error {
		return execution.Par(others, func(p plan.PeerID) error {
			r, ok := sess.peers.Rank(p)
			if !ok {
				utils.Impossible()
			}
			return sess.in.RecvInto(p, name, segment(r))
		})
	})
	return eg.Wait()
}
