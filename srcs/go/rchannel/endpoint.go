package rchannel

import (
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/pkg/errors"
)

// Endpoint accepts the links of remote peers. Ping frames are echoed back;
// tensor frames are handed to Recv and RecvInto.
type Endpoint struct {
	self plan.PeerID
	ln   net.Listener
	box  *mailbox

	wg    sync.WaitGroup
	mu    sync.Mutex
	conns map[net.Conn]struct{}
	once  sync.Once
}

// Listen serves on the port of self on all interfaces until Close.
func Listen(self plan.PeerID) (*Endpoint, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort("0.0.0.0", strconv.Itoa(int(self.Port))))
	if err != nil {
		return nil, err
	}
	e := &Endpoint{
		self:  self,
		ln:    ln,
		box:   newMailbox(),
		conns: make(map[net.Conn]struct{}),
	}
	log.Debugf("%s listening on %s", self, ln.Addr())
	go e.acceptLoop()
	return e, nil
}

func (e *Endpoint) Self() plan.PeerID { return e.self }

// Recv waits for the next frame named name from peer and returns its
// payload in a fresh vector.
func (e *Endpoint) Recv(from plan.PeerID, name string) (*base.Vector, error) {
	return e.box.recv(slot{from, name})
}

// RecvInto waits for the next frame named name from peer, which must have
// been sent Direct, and reads it into v. The frame must match the dtype and
// count of v.
func (e *Endpoint) RecvInto(from plan.PeerID, name string, v *base.Vector) error {
	return e.box.recvInto(slot{from, name}, v)
}

// Close stops accepting, drops every link and fails pending receives.
func (e *Endpoint) Close() error {
	var err error
	e.once.Do(func() {
		err = e.ln.Close()
		e.box.close()
		e.mu.Lock()
		for c := range e.conns {
			c.Close()
		}
		e.mu.Unlock()
		e.wg.Wait()
		log.Debugf("%s endpoint closed", e.self)
	})
	return err
}

func (e *Endpoint) acceptLoop() {
	for {
		c, err := e.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warnf("%s accept: %v", e.self, err)
			continue
		}
		if !e.track(c) {
			c.Close()
			return
		}
		go e.serve(c)
	}
}

func (e *Endpoint) track(c net.Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.box.done:
		return false
	default:
	}
	e.conns[c] = struct{}{}
	e.wg.Add(1)
	return true
}

func (e *Endpoint) serve(c net.Conn) {
	defer e.wg.Done()
	defer func() {
		e.mu.Lock()
		delete(e.conns, c)
		e.mu.Unlock()
		c.Close()
	}()
	h, err := answer(c, e.self)
	if err != nil {
		log.Debugf("%s rejected link from %s: %v", e.self, c.RemoteAddr(), err)
		return
	}
	var n int
	switch h.Kind {
	case KindPing:
		n, err = e.echo(c)
	case KindTensor:
		n, err = e.collect(c, h.peer())
	default:
		err = errors.Errorf("unknown link kind %s", h.Kind)
	}
	if err != nil && !closedByPeer(err) {
		log.Warnf("%s link from %s failed after %d frames: %v", h.Kind, h.peer(), n, err)
	}
}

func closedByPeer(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, errClosed)
}

func (e *Endpoint) echo(c net.Conn) (int, error) {
	for n := 0; ; n++ {
		h, name, err := readHeader(c)
		if err != nil {
			return n, err
		}
		v := base.NewVector(int(h.Count), h.dtype())
		if _, err := io.ReadFull(c, v.Data); err != nil {
			return n, err
		}
		if err := writeFrame(c, name, v, h.Flags); err != nil {
			return n, err
		}
	}
}

func (e *Endpoint) collect(c net.Conn, from plan.PeerID) (int, error) {
	for n := 0; ; n++ {
		h, name, err := readHeader(c)
		if err != nil {
			return n, err
		}
		s := slot{from, name}
		var a arrival
		if h.Flags&Direct != 0 {
			v, err := e.box.claim(s)
			if err != nil {
				return n, err
			}
			if a.err = h.fits(v); a.err != nil {
				_, err = io.CopyN(io.Discard, c, int64(h.payload()))
			} else {
				a.v = v
				_, err = io.ReadFull(c, v.Data)
			}
			if err != nil {
				return n, err
			}
		} else {
			a.v = base.NewVector(int(h.Count), h.dtype())
			if _, err := io.ReadFull(c, a.v.Data); err != nil {
				return n, err
			}
		}
		if err := e.box.deliver(s, a); err != nil {
			return n, err
		}
	}
}
