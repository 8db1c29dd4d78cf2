package base

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
)

// Strategy selects the reduce and broadcast graphs used by AllReduce.
type Strategy int32

const (
	Star Strategy = iota
	MultiStar
	Ring
	Clique
	Tree
	BinaryTree
	BinaryTreeStar
	MultiBinaryTreeStar
	Auto
)

const DefaultStrategy = BinaryTreeStar

var strategyNames = [...]string{
	Star:                `STAR`,
	MultiStar:           `MULTI_STAR`,
	Ring:                `RING`,
	Clique:              `CLIQUE`,
	Tree:                `TREE`,
	BinaryTree:          `BINARY_TREE`,
	BinaryTreeStar:      `BINARY_TREE_STAR`,
	MultiBinaryTreeStar: `MULTI_BINARY_TREE_STAR`,
	Auto:                `AUTO`,
}

var errUnknownStrategy = errors.New("unknown strategy")

// StrategyNames lists the accepted names in sorted order.
func StrategyNames() []string {
	names := slices.Clone(strategyNames[:])
	slices.Sort(names)
	return names
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("Strategy(%d)", int32(s))
	}
	return strategyNames[s]
}

func ParseStrategy(name string) (Strategy, error) {
	if i := slices.Index(strategyNames[:], name); i >= 0 {
		return Strategy(i), nil
	}
	return 0, errors.Wrap(errUnknownStrategy, name)
}

// Set implements flag.Value.
func (s *Strategy) Set(name string) error {
	v, err := ParseStrategy(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
