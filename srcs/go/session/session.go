// Package session runs collectives among a fixed list of peers, sending
// vectors over an rchannel client and receiving them on an rchannel
// endpoint. Sessions may share a client and endpoint when their prefixes
// differ.
package session

import (
	"bytes"
	"sync"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/lsds/shardcomm/srcs/go/rchannel"
	"github.com/pkg/errors"
)

const rootRank = 0

var errNotInPeerList = errors.New("self not in peer list")

type Session struct {
	mu     sync.Mutex
	self   plan.PeerID
	peers  plan.PeerList
	rank   int
	prefix string
	routes strategyList
	hash   strategyHashFunc
	out    *rchannel.Client
	in     *rchannel.Endpoint
}

func New(strategy base.Strategy, self plan.PeerID, pl plan.PeerList, prefix string, out *rchannel.Client, in *rchannel.Endpoint) (*Session, error) {
	rank, ok := pl.Rank(self)
	if !ok {
		return nil, errors.Wrapf(errNotInPeerList, "%s in %s", self, pl)
	}
	sess := &Session{
		self:   self,
		peers:  pl,
		rank:   rank,
		prefix: prefix,
		routes: genStrategyList(pl, strategy),
		hash:   getStrategyHash(),
		out:    out,
		in:     in,
	}
	for i, s := range sess.routes {
		log.Debugf("%s route #%d: reduce %08x bcast %08x", prefix, i, s.reduceGraph.Digest(), s.bcastGraph.Digest())
	}
	return sess, nil
}

func (sess *Session) Size() int { return len(sess.peers) }

func (sess *Session) Rank() int { return sess.rank }

func (sess *Session) Peers() plan.PeerList { return sess.peers }

func (sess *Session) scoped(name string) string {
	return sess.prefix + "::" + name
}

// Barrier returns once every peer has entered it.
func (sess *Session) Barrier() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	k := len(sess.peers)
	return sess.allReduce(base.Workspace{
		SendBuf: base.NewVector(k, base.U8),
		RecvBuf: base.NewVector(k, base.U8),
		OP:      base.SUM,
		Name:    "barrier",
	})
}

// BytesConsensus reports, on every peer, whether all peers passed the same
// bytes.
func (sess *Session) BytesConsensus(bs []byte, name string) (bool, error) {
	n := base.NewVector(1, base.I32)
	n.AsI32()[0] = int32(len(bs))
	if ok, err := sess.agree(n, ":consensus:len:"+name); !ok || err != nil {
		return false, err
	}
	if len(bs) == 0 {
		return true, nil
	}
	return sess.agree(&base.Vector{Data: bs, Count: len(bs), Type: base.U8}, ":consensus:"+name)
}

// agree holds when the element-wise min and max of v over all peers
// coincide.
func (sess *Session) agree(v *base.Vector, name string) (bool, error) {
	lo := base.NewVector(v.Count, v.Type)
	hi := base.NewVector(v.Count, v.Type)
	if err := sess.AllReduce(base.Workspace{SendBuf: v, RecvBuf: lo, OP: base.MIN, Name: name + ":min"}); err != nil {
		return false, err
	}
	if err := sess.AllReduce(base.Workspace{SendBuf: v, RecvBuf: hi, OP: base.MAX, Name: name + ":max"}); err != nil {
		return false, err
	}
	return bytes.Equal(lo.Data, hi.Data), nil
}

// Broadcast copies the buffer of rank 0 to every peer.
func (sess *Session) Broadcast(w base.Workspace) error {
	return sess.runGraphs(w, sess.routes[0].bcastGraph)
}

// BroadcastFrom copies the buffer of rank root to every peer.
func (sess *Session) BroadcastFrom(root int, w base.Workspace) error {
	if root < 0 || root >= len(sess.peers) {
		return errors.Errorf("broadcast root %d out of range [0, %d)", root, len(sess.peers))
	}
	if root == rootRank {
		return sess.Broadcast(w)
	}
	return sess.runGraphs(w, plan.Star(len(sess.peers), root))
}
