package plan

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var errBadPortRange = errors.New("bad port range")

// PortRange is the inclusive range <begin>-<end>.
type PortRange struct {
	Begin uint16
	End   uint16
}

var DefaultPortRange = PortRange{Begin: 10000, End: 11000}

func ParsePortRange(s string) (PortRange, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return PortRange{}, errors.Wrap(errBadPortRange, s)
	}
	begin, err1 := strconv.ParseUint(lo, 10, 16)
	end, err2 := strconv.ParseUint(hi, 10, 16)
	if err1 != nil || err2 != nil || end < begin {
		return PortRange{}, errors.Wrap(errBadPortRange, s)
	}
	return PortRange{Begin: uint16(begin), End: uint16(end)}, nil
}

func (pr PortRange) Len() int { return int(pr.End) - int(pr.Begin) + 1 }

func (pr PortRange) String() string {
	return strconv.Itoa(int(pr.Begin)) + "-" + strconv.Itoa(int(pr.End))
}

// Set implements flag.Value.
func (pr *PortRange) Set(s string) error {
	r, err := ParsePortRange(s)
	if err != nil {
		return err
	}
	*pr = r
	return nil
}
