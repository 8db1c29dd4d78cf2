package runner

import (
	"net"

	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/pkg/errors"
)

var errNoIPv4 = errors.New("no IPv4 address")

// InferSelfIPv4 picks the address this launcher is known by among the
// peers: ipv4 when given, else the first IPv4 address of nic, else
// loopback.
func InferSelfIPv4(ipv4 string, nic string) (uint32, error) {
	switch {
	case ipv4 != "":
		return plan.ParseIPv4(ipv4)
	case nic != "":
		return nicIPv4(nic)
	}
	return plan.MustParseIPv4(`127.0.0.1`), nil
}

func nicIPv4(name string) (uint32, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return 0, errors.Wrap(errNoIPv4, err.Error())
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return 0, err
	}
	for _, a := range addrs {
		n, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ipv4, ok := plan.IPv4Of(n.IP); ok {
			return ipv4, nil
		}
	}
	return 0, errors.Wrap(errNoIPv4, name)
}
