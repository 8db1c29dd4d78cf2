// Package tcp is a comm.Backend where every rank is a process and tensors
// travel over rchannel links. Each group gets its own session and client,
// so that groups never block each other; all groups share one endpoint.
package tcp

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/comm"
	"github.com/lsds/shardcomm/srcs/go/config"
	"github.com/lsds/shardcomm/srcs/go/env"
	"github.com/lsds/shardcomm/srcs/go/execution"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/lsds/shardcomm/srcs/go/rchannel"
	"github.com/lsds/shardcomm/srcs/go/session"
	"github.com/lsds/shardcomm/srcs/go/tensor"
	"github.com/lsds/shardcomm/srcs/go/utils"
	"github.com/pkg/errors"
)

var (
	errClosed        = errors.New("backend closed")
	errForeignGroup  = errors.New("group not created by this backend")
	errShapeMismatch = errors.New("shape mismatch")
	errBadSegments   = errors.New("bad number of segments")
)

type Config struct {
	Self     plan.PeerID
	Peers    plan.PeerList
	Strategy base.Strategy
	// WaitTimeout bounds how long New waits for the other peers to listen.
	WaitTimeout time.Duration
}

type Backend struct {
	self     plan.PeerID
	peers    plan.PeerList
	strategy base.Strategy
	in       *rchannel.Endpoint
	pinger   *rchannel.Client

	mu     sync.Mutex
	groups []*group
	closed bool
}

func NewFromEnv() (*Backend, error) {
	cfg, err := env.ParseConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return New(Config{
		Self:        cfg.Self,
		Peers:       cfg.InitPeers,
		Strategy:    cfg.Strategy,
		WaitTimeout: config.ConnRetryCount * config.ConnRetryPeriod,
	})
}

// New starts serving on the port of cfg.Self and waits until every peer is
// reachable.
func New(cfg Config) (*Backend, error) {
	if _, ok := cfg.Peers.Rank(cfg.Self); !ok {
		return nil, errors.Errorf("%s not in %s", cfg.Self, cfg.Peers)
	}
	b := &Backend{
		self:     cfg.Self,
		peers:    cfg.Peers,
		strategy: cfg.Strategy,
	}
	in, err := rchannel.Listen(cfg.Self)
	if err != nil {
		return nil, err
	}
	b.in = in
	b.pinger = rchannel.NewClient(cfg.Self)
	defer b.pinger.Close()
	timeout := cfg.WaitTimeout
	if timeout == 0 {
		timeout = config.ConnRetryCount * config.ConnRetryPeriod
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var wait execution.PeerFunc = func(peer plan.PeerID) error {
		n, err := b.pinger.Wait(ctx, peer)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Debugf("%s is up after pinged %d times", peer, n+1)
		}
		return nil
	}
	if err := wait.Par(cfg.Peers.Others(cfg.Self)); err != nil {
		in.Close()
		return nil, err
	}
	return b, nil
}

type group struct {
	owner *Backend
	ranks []int
	sess  *session.Session
	cli   *rchannel.Client

	mu  sync.Mutex
	seq int
}

func (g *group) Ranks() []int { return g.ranks }

func (g *group) Size() int { return g.sess.Size() }

func (g *group) Rank() int { return g.sess.Rank() }

func (g *group) next(op string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s#%d", op, g.seq)
}

// groupPrefix names the i-th group joined by a peer. Groups with the same
// members, joined as different modes, get different names.
func groupPrefix(i int, ranks []int) string {
	var parts []string
	for _, r := range ranks {
		parts = append(parts, fmt.Sprint(r))
	}
	return fmt.Sprintf("g%d[%s]", i, strings.Join(parts, ","))
}

// JoinGroup returns after every member has joined. Members must join their
// common groups in the same order.
func (b *Backend) JoinGroup(ranks []int) (comm.Group, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errClosed
	}
	pl, err := b.peers.Sub(ranks)
	if err != nil {
		return nil, err
	}
	prefix := groupPrefix(len(b.groups), ranks)
	cli := rchannel.NewClient(b.self)
	sess, err := session.New(b.strategy, b.self, pl, prefix, cli, b.in)
	if err != nil {
		cli.Close()
		return nil, err
	}
	if err := sess.Barrier(); err != nil {
		cli.Close()
		return nil, errors.Wrapf(err, "barrier of %s", prefix)
	}
	g := &group{
		owner: b,
		ranks: append([]int(nil), ranks...),
		sess:  sess,
		cli:   cli,
	}
	b.groups = append(b.groups, g)
	return g, nil
}

func (b *Backend) groupOf(g comm.Group) (*group, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, errClosed
	}
	tg, ok := g.(*group)
	if !ok || tg.owner != b {
		return nil, errForeignGroup
	}
	return tg, nil
}

func shapeBytes(s tensor.Shape) []byte {
	bs := make([]byte, 4*(1+len(s.Dimensions)))
	binary.LittleEndian.PutUint32(bs, uint32(s.DType))
	for i, d := range s.Dimensions {
		binary.LittleEndian.PutUint32(bs[4*(i+1):], uint32(d))
	}
	return bs
}

// agree fails on every member unless all members passed the same shape.
func (g *group) agree(s tensor.Shape, name string) error {
	ok, err := g.sess.BytesConsensus(shapeBytes(s), name+":shape")
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(errShapeMismatch, "%s: local shape %s", name, s)
	}
	return nil
}

func (b *Backend) AllGather(out []*tensor.Tensor, in *tensor.Tensor, g comm.Group) error {
	tg, err := b.groupOf(g)
	if err != nil {
		return err
	}
	if len(out) != tg.Size() {
		return errors.Wrapf(errBadSegments, "%d outputs for group of %d", len(out), tg.Size())
	}
	for _, o := range out {
		if !o.Shape().Equal(in.Shape()) {
			return errors.Wrapf(errShapeMismatch, "output %s, input %s", o.Shape(), in.Shape())
		}
	}
	name := tg.next("allgather")
	if err := tg.agree(in.Shape(), name); err != nil {
		return err
	}
	send := in.Vector()
	recv := base.NewVector(send.Count*tg.Size(), send.Type)
	w := base.Workspace{SendBuf: send, RecvBuf: recv, OP: base.SUM, Name: name}
	if err := tg.sess.AllGather(w); err != nil {
		return err
	}
	for i, o := range out {
		if err := o.Vector().CopyFrom(recv.Slice(i*send.Count, (i+1)*send.Count)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) ReduceScatter(out *tensor.Tensor, in []*tensor.Tensor, g comm.Group) error {
	tg, err := b.groupOf(g)
	if err != nil {
		return err
	}
	if len(in) != tg.Size() {
		return errors.Wrapf(errBadSegments, "%d inputs for group of %d", len(in), tg.Size())
	}
	for _, x := range in {
		if !x.Shape().Equal(out.Shape()) {
			return errors.Wrapf(errShapeMismatch, "uneven segment %s, output %s", x.Shape(), out.Shape())
		}
	}
	name := tg.next("reducescatter")
	if err := tg.agree(out.Shape(), name); err != nil {
		return err
	}
	count := out.Vector().Count
	send := base.NewVector(count*len(in), out.DType())
	for i, x := range in {
		if err := send.Slice(i*count, (i+1)*count).CopyFrom(x.Vector()); err != nil {
			return err
		}
	}
	w := base.Workspace{SendBuf: send, RecvBuf: out.Vector(), OP: base.SUM, Name: name}
	return tg.sess.ReduceScatter(w)
}

func (b *Backend) AllReduce(t *tensor.Tensor, g comm.Group) error {
	tg, err := b.groupOf(g)
	if err != nil {
		return err
	}
	name := tg.next("allreduce")
	if err := tg.agree(t.Shape(), name); err != nil {
		return err
	}
	w := base.Workspace{SendBuf: t.Vector(), RecvBuf: t.Vector(), OP: base.SUM, Name: name}
	return tg.sess.AllReduce(w)
}

func (b *Backend) Broadcast(t *tensor.Tensor, src int, g comm.Group) error {
	tg, err := b.groupOf(g)
	if err != nil {
		return err
	}
	name := tg.next("broadcast")
	if err := tg.agree(t.Shape(), name); err != nil {
		return err
	}
	w := base.Workspace{SendBuf: t.Vector(), RecvBuf: t.Vector(), OP: base.SUM, Name: name}
	return tg.sess.BroadcastFrom(src, w)
}

// EgressBytes is the payload sent by every group so far.
func (b *Backend) EgressBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for _, g := range b.groups {
		n += g.cli.EgressBytes()
	}
	return n
}

func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	groups := b.groups
	b.groups = nil
	b.mu.Unlock()
	var egress int64
	for _, g := range groups {
		egress += g.cli.EgressBytes()
		g.cli.Close()
	}
	b.in.Close()
	log.Debugf("%s closed after sending %s", b.self, utils.ShowSize(egress))
	return nil
}
