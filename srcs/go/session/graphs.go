package session

import (
	"sync"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/config"
	"github.com/lsds/shardcomm/srcs/go/execution"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/lsds/shardcomm/srcs/go/plan/graph"
	"github.com/lsds/shardcomm/srcs/go/rchannel"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// flow carries one workspace through a sequence of graphs.
type flow struct {
	sess *Session
	w    base.Workspace
	name string

	mu   sync.Mutex
	full bool // RecvBuf holds this rank's partial result
}

// current is the buffer this rank would send now.
func (f *flow) current() *base.Vector {
	if f.full || f.w.IsInplace() {
		return f.w.RecvBuf
	}
	return f.w.SendBuf
}

func (f *flow) send(g *graph.Graph, to int) error {
	var flags rchannel.Flags
	if !g.HasLoop(to) {
		flags = rchannel.Direct
	}
	return f.sess.out.Send(f.sess.peers[to], f.name, f.current(), flags)
}

// accumulate folds the buffer of peer into RecvBuf with OP.
func (f *flow) accumulate(peer plan.PeerID) error {
	v, err := f.sess.in.Recv(peer, f.name)
	if err != nil {
		return err
	}
	if v.Type != f.w.RecvBuf.Type || v.Count != f.w.RecvBuf.Count {
		return errors.Errorf("%s: %d x %s from %s, want %d x %s", f.name,
			v.Count, base.ShortName(v.Type), peer, f.w.RecvBuf.Count, base.ShortName(f.w.RecvBuf.Type))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	base.Transform2(f.w.RecvBuf, f.current(), v, f.w.OP)
	f.full = true
	return nil
}

// step runs one graph. A rank with a loop combines what its prevs send
// with its own buffer; any other rank takes the buffer of its only prev.
func (f *flow) step(g *graph.Graph) error {
	r := f.sess.rank
	prevs := g.Prevs(r)
	if g.HasLoop(r) {
		if err := execution.Par(f.sess.peers.Select(prevs), f.accumulate); err != nil {
			return err
		}
	} else {
		switch len(prevs) {
		case 0:
			if !f.full {
				f.w.Forward()
				f.full = true
			}
		case 1:
			if err := f.sess.in.RecvInto(f.sess.peers[prevs[0]], f.name, f.w.RecvBuf); err != nil {
				return err
			}
			f.full = true
		default:
			return errors.Errorf("%s: rank %d has %d prevs and no loop", f.name, r, len(prevs))
		}
	}
	var eg errgroup.Group
	for _, next := range g.Nexts(r) {
		next := next
		eg.Go(func() error { return f.send(g, next) })
	}
	return eg.Wait()
}

func (sess *Session) runGraphs(w base.Workspace, graphs ...*graph.Graph) error {
	if w.IsEmpty() {
		return nil
	}
	idle := true
	for _, g := range graphs {
		idle = idle && g.Isolated(sess.rank)
	}
	if idle {
		w.Forward()
		return nil
	}
	f := &flow{sess: sess, w: w, name: sess.scoped(w.Name)}
	for _, g := range graphs {
		if err := f.step(g); err != nil {
			return err
		}
	}
	return nil
}

// allReduce cuts w into chunks of about config.ChunkSize bytes and runs
// each along the route its hash picks.
func (sess *Session) allReduce(w base.Workspace) error {
	size := w.RecvBuf.Count * w.RecvBuf.Type.Size()
	k := (size + config.ChunkSize - 1) / config.ChunkSize
	if k == 0 {
		return nil
	}
	var eg errgroup.Group
	for i, part := range w.Split(k) {
		s := sess.routes.choose(sess.hash(i, part.Name))
		part := part
		eg.Go(func() error { return sess.runGraphs(part, s.reduceGraph, s.bcastGraph) })
	}
	return eg.Wait()
}
