package rchannel

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/config"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/lsds/shardcomm/srcs/go/utils"
	"github.com/pkg/errors"
)

var errUnreachable = errors.New("peer unreachable")

// link is a one-way connection to the Endpoint of a remote peer, dialled on
// first use. Frames sent on one link arrive in order.
type link struct {
	mu      sync.Mutex
	kind    Kind
	self    plan.PeerID
	remote  plan.PeerID
	conn    net.Conn
	retries int
}

func (l *link) dial() error {
	if l.conn != nil {
		return nil
	}
	t0 := time.Now()
	var err error
	for i := 0; i <= l.retries; i++ {
		if i > 0 {
			time.Sleep(config.ConnRetryPeriod)
		}
		var c net.Conn
		if c, err = net.Dial("tcp", l.remote.String()); err != nil {
			continue
		}
		if err = greet(c, l.kind, l.self, l.remote); err != nil {
			c.Close()
			continue
		}
		l.conn = c
		log.Debugf("%s link %s -> %s up after %d attempts in %s", l.kind, l.self, l.remote, i+1, time.Since(t0))
		return nil
	}
	return errors.Wrapf(errUnreachable, "%s: %v", l.remote, err)
}

func (l *link) send(name string, v *base.Vector, flags Flags) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.dial(); err != nil {
		return err
	}
	return writeFrame(l.conn, name, v, flags)
}

func (l *link) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
}

// Client sends frames from self, keeping one tensor link per remote peer.
type Client struct {
	self   plan.PeerID
	mu     sync.Mutex
	links  map[plan.PeerID]*link
	egress atomic.Int64
}

func NewClient(self plan.PeerID) *Client {
	return &Client{
		self:  self,
		links: make(map[plan.PeerID]*link),
	}
}

func (c *Client) linkTo(to plan.PeerID) *link {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.links[to]
	if !ok {
		l = &link{kind: KindTensor, self: c.self, remote: to, retries: config.ConnRetryCount}
		c.links[to] = l
	}
	return l
}

// Send writes v to peer to under name. It returns once the frame is handed
// to the kernel, not when it is received.
func (c *Client) Send(to plan.PeerID, name string, v *base.Vector, flags Flags) error {
	if err := c.linkTo(to).send(name, v, flags); err != nil {
		return err
	}
	c.egress.Add(int64(len(v.Data)))
	return nil
}

// Ping makes one round trip to the Endpoint of peer to on a fresh link.
func (c *Client) Ping(to plan.PeerID) (time.Duration, error) {
	t0 := time.Now()
	l := &link{kind: KindPing, self: c.self, remote: to}
	defer l.close()
	empty := base.NewVector(0, base.U8)
	if err := l.send("ping", empty, 0); err != nil {
		return time.Since(t0), err
	}
	h, name, err := readHeader(l.conn)
	if err == nil && (name != "ping" || h.Count != 0) {
		err = errors.Wrapf(errBadFrame, "ping answered with %q", name)
	}
	return time.Since(t0), err
}

// Wait pings peer to until it answers or ctx is done, and returns the
// number of failed attempts.
func (c *Client) Wait(ctx context.Context, to plan.PeerID) (int, error) {
	const period = 200 * time.Millisecond
	n, ok := utils.Poll(ctx, func() bool {
		t0 := time.Now()
		if _, err := c.Ping(to); err == nil {
			return true
		}
		if d := time.Since(t0); d < period {
			time.Sleep(period - d)
		}
		return false
	})
	if !ok {
		return n, errors.Wrapf(errUnreachable, "%s after %d pings", to, n)
	}
	return n, nil
}

// EgressBytes is the payload sent so far.
func (c *Client) EgressBytes() int64 {
	return c.egress.Load()
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for to, l := range c.links {
		l.close()
		delete(c.links, to)
	}
}
