package parallel

import (
	"fmt"

	"github.com/pkg/errors"
)

// Config gives the sizes of the pipeline and tensor axes. The data axis
// takes what is left of the world.
type Config struct {
	PipelineSize int
	TensorSize   int
}

var DefaultConfig = Config{PipelineSize: 1, TensorSize: 1}

// Layout arranges WorldSize ranks on a pipeline x data x tensor grid.
// Tensor groups are runs of consecutive ranks, data groups are strided by
// the tensor size inside one pipeline stage, and pipeline groups are
// strided by the stage size.
type Layout struct {
	WorldSize int
	Config
}

var errInvalidLayout = errors.New("invalid parallel layout")

func NewLayout(worldSize int, cfg Config) (*Layout, error) {
	if cfg.PipelineSize == 0 {
		cfg.PipelineSize = 1
	}
	if cfg.TensorSize == 0 {
		cfg.TensorSize = 1
	}
	if worldSize <= 0 || cfg.PipelineSize < 0 || cfg.TensorSize < 0 {
		return nil, errors.Wrapf(errInvalidLayout, "world %d, pipeline %d, tensor %d", worldSize, cfg.PipelineSize, cfg.TensorSize)
	}
	if worldSize%(cfg.PipelineSize*cfg.TensorSize) != 0 {
		return nil, errors.Wrapf(errInvalidLayout, "world %d not divisible by pipeline %d x tensor %d", worldSize, cfg.PipelineSize, cfg.TensorSize)
	}
	return &Layout{WorldSize: worldSize, Config: cfg}, nil
}

func (l Layout) DataSize() int {
	return l.WorldSize / (l.PipelineSize * l.TensorSize)
}

func (l Layout) stageSize() int {
	return l.WorldSize / l.PipelineSize
}

func (l Layout) Size(m Mode) int {
	switch m {
	case Data:
		return l.DataSize()
	case Pipeline:
		return l.PipelineSize
	case Tensor:
		return l.TensorSize
	default:
		return l.WorldSize
	}
}

// Groups returns every group of mode m, each listing global ranks in group
// order. The groups of one mode partition [0, WorldSize).
func (l Layout) Groups(m Mode) [][]int {
	var groups [][]int
	switch m {
	case Data:
		for p := 0; p < l.PipelineSize; p++ {
			for t := 0; t < l.TensorSize; t++ {
				groups = append(groups, strided(p*l.stageSize()+t, l.TensorSize, l.DataSize()))
			}
		}
	case Pipeline:
		for i := 0; i < l.stageSize(); i++ {
			groups = append(groups, strided(i, l.stageSize(), l.PipelineSize))
		}
	case Tensor:
		for i := 0; i < l.WorldSize; i += l.TensorSize {
			groups = append(groups, strided(i, 1, l.TensorSize))
		}
	default:
		groups = append(groups, strided(0, 1, l.WorldSize))
	}
	return groups
}

// GroupOf returns the group of mode m that contains rank.
func (l Layout) GroupOf(m Mode, rank int) []int {
	for _, g := range l.Groups(m) {
		if indexOf(g, rank) >= 0 {
			return g
		}
	}
	return nil
}

// LocalRank is the index of rank in its group of mode m, or -1.
func (l Layout) LocalRank(m Mode, rank int) int {
	return indexOf(l.GroupOf(m, rank), rank)
}

func (l Layout) String() string {
	return fmt.Sprintf("world=%d pipeline=%d data=%d tensor=%d", l.WorldSize, l.PipelineSize, l.DataSize(), l.TensorSize)
}

func strided(begin, stride, n int) []int {
	rs := make([]int, n)
	for i := range rs {
		rs[i] = begin + i*stride
	}
	return rs
}

func indexOf(rs []int, r int) int {
	for i, x := range rs {
		if x == r {
			return i
		}
	}
	return -1
}
