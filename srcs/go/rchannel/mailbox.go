package rchannel

import (
	"sync"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/pkg/errors"
)

var (
	errClosed       = errors.New("endpoint closed")
	errBufferUnused = errors.New("registered buffer not used")
)

type slot struct {
	from plan.PeerID
	name string
}

type arrival struct {
	v   *base.Vector
	err error
}

// mailbox holds at most one registered buffer and one undelivered frame
// per slot. Senders with the same slot are served in arrival order.
type mailbox struct {
	mu     sync.Mutex
	posted map[slot]chan *base.Vector
	ready  map[slot]chan arrival
	done   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{
		posted: make(map[slot]chan *base.Vector),
		ready:  make(map[slot]chan arrival),
		done:   make(chan struct{}),
	}
}

func (m *mailbox) buffers(s slot) chan *base.Vector {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.posted[s]
	if !ok {
		ch = make(chan *base.Vector, 1)
		m.posted[s] = ch
	}
	return ch
}

func (m *mailbox) arrivals(s slot) chan arrival {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.ready[s]
	if !ok {
		ch = make(chan arrival, 1)
		m.ready[s] = ch
	}
	return ch
}

func (m *mailbox) deliver(s slot, a arrival) error {
	select {
	case m.arrivals(s) <- a:
		return nil
	case <-m.done:
		return errClosed
	}
}

// claim waits for the buffer a receiver registered for s.
func (m *mailbox) claim(s slot) (*base.Vector, error) {
	select {
	case v := <-m.buffers(s):
		return v, nil
	case <-m.done:
		return nil, errClosed
	}
}

func (m *mailbox) recv(s slot) (*base.Vector, error) {
	select {
	case a := <-m.arrivals(s):
		return a.v, a.err
	case <-m.done:
		return nil, errClosed
	}
}

func (m *mailbox) recvInto(s slot, v *base.Vector) error {
	select {
	case m.buffers(s) <- v:
	case <-m.done:
		return errClosed
	}
	got, err := m.recv(s)
	if err != nil {
		return err
	}
	if got != v {
		return errors.Wrapf(errBufferUnused, "%s from %s", s.name, s.from)
	}
	return nil
}

func (m *mailbox) close() {
	close(m.done)
}
