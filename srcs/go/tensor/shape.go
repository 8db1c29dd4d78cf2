package tensor

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/lsds/shardcomm/srcs/go/base"
)

// Shape is the dtype and dimensions of a dense row-major tensor.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

func MakeShape(dtype dtypes.DType, dimensions ...int) Shape {
	for _, d := range dimensions {
		if d < 0 {
			exceptions.Panicf("negative dimension in %v", dimensions)
		}
	}
	return Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
}

func (s Shape) Rank() int { return len(s.Dimensions) }

// Size is the number of elements.
func (s Shape) Size() int {
	n := 1
	for _, d := range s.Dimensions {
		n *= d
	}
	return n
}

// Memory is the number of bytes of the data.
func (s Shape) Memory() int {
	return s.Size() * s.DType.Size()
}

func (s Shape) Equal(t Shape) bool {
	return s.DType == t.DType && slices.Equal(s.Dimensions, t.Dimensions)
}

// EqualExcept compares two shapes ignoring the size of one axis.
func (s Shape) EqualExcept(t Shape, axis int) bool {
	if s.DType != t.DType || s.Rank() != t.Rank() {
		return false
	}
	for i := range s.Dimensions {
		if i != axis && s.Dimensions[i] != t.Dimensions[i] {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	dims := make([]string, len(s.Dimensions))
	for i, d := range s.Dimensions {
		dims[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("(%s)[%s]", base.ShortName(s.DType), strings.Join(dims, " "))
}

// Axis normalizes axis, which may be negative to count from the end. It
// panics if axis is out of range.
func (s Shape) Axis(axis int) int {
	r := s.Rank()
	if axis < -r || axis >= r {
		exceptions.Panicf("axis %d out of range for shape %s", axis, s)
	}
	if axis < 0 {
		axis += r
	}
	return axis
}

func (s Shape) WithDim(axis, dim int) Shape {
	t := MakeShape(s.DType, s.Dimensions...)
	t.Dimensions[s.Axis(axis)] = dim
	return t
}

// split returns the number of blocks before axis and the number of elements
// after it.
func (s Shape) split(axis int) (outer, inner int) {
	outer, inner = 1, 1
	for i, d := range s.Dimensions {
		switch {
		case i < axis:
			outer *= d
		case i > axis:
			inner *= d
		}
	}
	return outer, inner
}
