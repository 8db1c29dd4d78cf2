package plan

import (
	"encoding/binary"
	"net/netip"
	"strings"

	"github.com/pkg/errors"
)

var (
	errNotIPv4        = errors.New("not an IPv4 address")
	errRankOutOfRange = errors.New("rank out of range")
)

// PeerID locates a worker: the IPv4 address of its host, as a big-endian
// integer, and the port its endpoint listens on.
type PeerID struct {
	IPv4 uint32
	Port uint16
}

func ipv4Addr(ipv4 uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], ipv4)
	return netip.AddrFrom4(b)
}

func (p PeerID) String() string {
	return netip.AddrPortFrom(ipv4Addr(p.IPv4), p.Port).String()
}

// ParsePeerID parses <ipv4>:<port>.
func ParsePeerID(s string) (PeerID, error) {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return PeerID{}, err
	}
	ipv4, err := fromAddr(ap.Addr())
	if err != nil {
		return PeerID{}, errors.Wrap(err, s)
	}
	return PeerID{IPv4: ipv4, Port: ap.Port()}, nil
}

func FormatIPv4(ipv4 uint32) string { return ipv4Addr(ipv4).String() }

func ParseIPv4(host string) (uint32, error) {
	a, err := netip.ParseAddr(host)
	if err != nil {
		return 0, errors.Wrap(errNotIPv4, host)
	}
	return fromAddr(a)
}

func MustParseIPv4(host string) uint32 {
	ipv4, err := ParseIPv4(host)
	if err != nil {
		panic(err)
	}
	return ipv4
}

func fromAddr(a netip.Addr) (uint32, error) {
	a = a.Unmap()
	if !a.Is4() {
		return 0, errors.Wrap(errNotIPv4, a.String())
	}
	b := a.As4()
	return binary.BigEndian.Uint32(b[:]), nil
}

// IPv4Of converts a 4 or 16 byte IP slice, as found on network interfaces.
func IPv4Of(ip []byte) (uint32, bool) {
	a, ok := netip.AddrFromSlice(ip)
	if !ok {
		return 0, false
	}
	ipv4, err := fromAddr(a)
	return ipv4, err == nil
}

// PeerList is ordered by rank.
type PeerList []PeerID

func ParsePeerList(s string) (PeerList, error) {
	if s == "" {
		return nil, nil
	}
	var pl PeerList
	for _, part := range strings.Split(s, ",") {
		p, err := ParsePeerID(part)
		if err != nil {
			return nil, err
		}
		pl = append(pl, p)
	}
	return pl, nil
}

func (pl PeerList) String() string {
	parts := make([]string, len(pl))
	for i, p := range pl {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

func (pl PeerList) Rank(p PeerID) (int, bool) {
	for i, q := range pl {
		if q == p {
			return i, true
		}
	}
	return -1, false
}

// LocalRank counts the peers that precede p on its host.
func (pl PeerList) LocalRank(p PeerID) (int, bool) {
	n := 0
	for _, q := range pl {
		if q == p {
			return n, true
		}
		if q.IPv4 == p.IPv4 {
			n++
		}
	}
	return -1, false
}

func (pl PeerList) filter(keep func(PeerID) bool) PeerList {
	var out PeerList
	for _, p := range pl {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// Others is pl without self.
func (pl PeerList) Others(self PeerID) PeerList {
	return pl.filter(func(p PeerID) bool { return p != self })
}

// On lists the peers on host.
func (pl PeerList) On(host uint32) PeerList {
	return pl.filter(func(p PeerID) bool { return p.IPv4 == host })
}

// Hosts lists the distinct hosts in order of first appearance.
func (pl PeerList) Hosts() []uint32 {
	var hosts []uint32
	for _, p := range pl {
		if r, _ := pl.LocalRank(p); r == 0 {
			hosts = append(hosts, p.IPv4)
		}
	}
	return hosts
}

// Select picks the peers of ranks, which must be in range.
func (pl PeerList) Select(ranks []int) PeerList {
	out := make(PeerList, len(ranks))
	for i, r := range ranks {
		out[i] = pl[r]
	}
	return out
}

// Sub is Select with a range check.
func (pl PeerList) Sub(ranks []int) (PeerList, error) {
	for _, r := range ranks {
		if r < 0 || r >= len(pl) {
			return nil, errors.Wrapf(errRankOutOfRange, "%d of %d", r, len(pl))
		}
	}
	return pl.Select(ranks), nil
}
