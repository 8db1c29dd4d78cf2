package plan

import (
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	errBadHostSpec   = errors.New("bad host spec")
	errShortCapacity = errors.New("not enough capacity")
)

// HostSpec describes one host of a cluster, written
// <ipv4>[:<slots>[:<public addr>]]. The public address is what the
// launcher uses to reach the host; it defaults to the IPv4 address.
type HostSpec struct {
	IPv4       uint32
	Slots      int
	PublicAddr string
}

var DefaultHostSpec = HostSpec{
	IPv4:       MustParseIPv4(`127.0.0.1`),
	Slots:      runtime.NumCPU(),
	PublicAddr: `127.0.0.1`,
}

var DefaultHostList = HostList{DefaultHostSpec}

func (h HostSpec) String() string {
	return strings.Join([]string{FormatIPv4(h.IPv4), strconv.Itoa(h.Slots), h.PublicAddr}, ":")
}

func ParseHostSpec(s string) (HostSpec, error) {
	fields := strings.Split(s, ":")
	if len(fields) > 3 {
		return HostSpec{}, errors.Wrap(errBadHostSpec, s)
	}
	ipv4, err := ParseIPv4(fields[0])
	if err != nil {
		return HostSpec{}, err
	}
	h := HostSpec{IPv4: ipv4, Slots: 1, PublicAddr: fields[0]}
	if len(fields) > 1 {
		if h.Slots, err = strconv.Atoi(fields[1]); err != nil || h.Slots < 0 {
			return HostSpec{}, errors.Wrap(errBadHostSpec, s)
		}
	}
	if len(fields) > 2 {
		h.PublicAddr = fields[2]
	}
	return h, nil
}

// HostList is comma separated on the command line.
type HostList []HostSpec

func ParseHostList(s string) (HostList, error) {
	var hl HostList
	for _, part := range strings.Split(s, ",") {
		h, err := ParseHostSpec(part)
		if err != nil {
			return nil, err
		}
		hl = append(hl, h)
	}
	return hl, nil
}

func (hl HostList) String() string {
	parts := make([]string, len(hl))
	for i, h := range hl {
		parts[i] = h.String()
	}
	return strings.Join(parts, ",")
}

// Slots is the total number of workers hl can hold.
func (hl HostList) Slots() int {
	n := 0
	for _, h := range hl {
		n += h.Slots
	}
	return n
}

func (hl HostList) PublicAddr(ipv4 uint32) (string, bool) {
	for _, h := range hl {
		if h.IPv4 == ipv4 {
			return h.PublicAddr, true
		}
	}
	return "", false
}

// GenPeerList places np workers host by host, filling the slots of a host
// before moving to the next. The workers of a host take consecutive ports
// from the start of pr.
func (hl HostList) GenPeerList(np int, pr PortRange) (PeerList, error) {
	if hl.Slots() < np {
		return nil, errors.Wrapf(errShortCapacity, "%d workers on %d slots", np, hl.Slots())
	}
	pl := make(PeerList, 0, np)
	for _, h := range hl {
		n := min(h.Slots, np-len(pl))
		if n > pr.Len() {
			return nil, errors.Wrapf(errShortCapacity, "%d workers on %s in ports %s", n, FormatIPv4(h.IPv4), pr)
		}
		for j := 0; j < n; j++ {
			pl = append(pl, PeerID{IPv4: h.IPv4, Port: pr.Begin + uint16(j)})
		}
	}
	return pl, nil
}
