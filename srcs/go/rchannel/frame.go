// Package rchannel moves named vectors between peers over TCP. A peer dials
// one link per remote peer and sends frames on it; the remote Endpoint
// pairs each frame with the Recv or RecvInto call waiting for its
// (sender, name) slot.
package rchannel

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/pkg/errors"
)

// Kind selects how the accepting Endpoint serves a link.
type Kind uint8

const (
	KindPing Kind = iota + 1
	KindTensor
)

func (k Kind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindTensor:
		return "tensor"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Flags modify how the receiver handles a frame.
type Flags uint8

const (
	// Direct frames are read straight into the buffer registered by RecvInto.
	Direct Flags = 1 << iota
)

const magic uint32 = 0x7368636d

var order = binary.BigEndian

var (
	errBadMagic      = errors.New("not a shardcomm peer")
	errWrongPeer     = errors.New("dialled the wrong peer")
	errBadFrame      = errors.New("malformed frame")
	errFrameMismatch = errors.New("frame does not fit the registered buffer")
)

// hello is written by the dialling side of every link. The accepting side
// answers with its own identity so that a stale port is detected.
type hello struct {
	Magic uint32
	Kind  Kind
	IPv4  uint32
	Port  uint16
}

func (h hello) peer() plan.PeerID { return plan.PeerID{IPv4: h.IPv4, Port: h.Port} }

func greet(c net.Conn, kind Kind, self, remote plan.PeerID) error {
	out := hello{Magic: magic, Kind: kind, IPv4: self.IPv4, Port: self.Port}
	if err := binary.Write(c, order, &out); err != nil {
		return err
	}
	var in hello
	if err := binary.Read(c, order, &in); err != nil {
		return err
	}
	if in.Magic != magic {
		return errBadMagic
	}
	if in.peer() != remote {
		return errors.Wrapf(errWrongPeer, "want %s, reached %s", remote, in.peer())
	}
	return nil
}

func answer(c net.Conn, self plan.PeerID) (hello, error) {
	var in hello
	if err := binary.Read(c, order, &in); err != nil {
		return in, err
	}
	if in.Magic != magic {
		return in, errBadMagic
	}
	out := hello{Magic: magic, Kind: in.Kind, IPv4: self.IPv4, Port: self.Port}
	return in, binary.Write(c, order, &out)
}

// maxName bounds the name a remote frame may claim.
const maxName = 1 << 12

// header precedes the name and payload of every frame. The payload is
// Count elements of DType.
type header struct {
	Flags   Flags
	DType   uint8
	NameLen uint16
	Count   uint32
}

const headerSize = 8

func (h header) dtype() base.DataType { return base.DataType(h.DType) }

func (h header) payload() int { return int(h.Count) * h.dtype().Size() }

func (h header) check() error {
	if h.NameLen > maxName {
		return errors.Wrapf(errBadFrame, "name of %d bytes", h.NameLen)
	}
	if !base.IsSupported(h.dtype()) {
		return errors.Wrapf(errBadFrame, "dtype %d", h.DType)
	}
	return nil
}

// fits reports whether the payload of h can be read into v.
func (h header) fits(v *base.Vector) error {
	if h.dtype() != v.Type || int(h.Count) != v.Count {
		return errors.Wrapf(errFrameMismatch, "got %d x %s, want %d x %s",
			h.Count, base.ShortName(h.dtype()), v.Count, base.ShortName(v.Type))
	}
	return nil
}

func writeFrame(w io.Writer, name string, v *base.Vector, flags Flags) error {
	if len(name) > maxName {
		return errors.Wrapf(errBadFrame, "name of %d bytes", len(name))
	}
	hdr := make([]byte, headerSize+len(name))
	hdr[0] = byte(flags)
	hdr[1] = byte(v.Type)
	order.PutUint16(hdr[2:], uint16(len(name)))
	order.PutUint32(hdr[4:], uint32(v.Count))
	copy(hdr[headerSize:], name)
	bufs := net.Buffers{hdr, v.Data}
	_, err := bufs.WriteTo(w)
	return err
}

func readHeader(r io.Reader) (header, string, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return header{}, "", err
	}
	h := header{
		Flags:   Flags(buf[0]),
		DType:   buf[1],
		NameLen: order.Uint16(buf[2:]),
		Count:   order.Uint32(buf[4:]),
	}
	if err := h.check(); err != nil {
		return h, "", err
	}
	name := make([]byte, h.NameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return h, "", err
	}
	return h, string(name), nil
}
