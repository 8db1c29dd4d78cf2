// Package hostfile reads mpirun style hostfiles: one host per line, an
// IPv4 address followed by optional slots=<n> and public_addr=<addr>
// fields. Text after # is ignored.
package hostfile

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/pkg/errors"
)

var errBadField = errors.New("bad hostfile field")

func ParseFile(filename string) (plan.HostList, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	hl, err := Read(f)
	return hl, errors.Wrap(err, filename)
}

func Read(r io.Reader) (plan.HostList, error) {
	var hl plan.HostList
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line, _, _ := strings.Cut(sc.Text(), "#")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		h, err := hostOf(fields)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n)
		}
		hl = append(hl, h)
	}
	return hl, sc.Err()
}

func hostOf(fields []string) (plan.HostSpec, error) {
	h := plan.HostSpec{Slots: 1, PublicAddr: fields[0]}
	var err error
	if h.IPv4, err = plan.ParseIPv4(fields[0]); err != nil {
		return h, err
	}
	for _, f := range fields[1:] {
		switch k, v, _ := strings.Cut(f, "="); {
		case k == "slots" && v != "":
			if h.Slots, err = strconv.Atoi(v); err != nil || h.Slots < 0 {
				return h, errors.Wrap(errBadField, f)
			}
		case k == "public_addr" && v != "":
			h.PublicAddr = v
		default:
			return h, errors.Wrap(errBadField, f)
		}
	}
	return h, nil
}
