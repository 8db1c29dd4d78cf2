package parallel

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Mode selects one of the rank groupings that partition the world.
type Mode int

const (
	Global Mode = iota
	Data
	Pipeline
	Tensor
)

// Modes lists every mode in the order groups are joined.
var Modes = []Mode{Global, Data, Pipeline, Tensor}

var modeNames = map[Mode]string{
	Global:   "global",
	Data:     "data",
	Pipeline: "pipeline",
	Tensor:   "tensor",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

func ModeNames() []string {
	var names []string
	for _, name := range modeNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var errInvalidMode = errors.New("invalid parallel mode")

func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, errors.Wrapf(errInvalidMode, "%q, expect one of %s", s, strings.Join(ModeNames(), "|"))
}

// Set implements flag.Value
func (m *Mode) Set(val string) error {
	value, err := ParseMode(val)
	if err != nil {
		return err
	}
	*m = value
	return nil
}
