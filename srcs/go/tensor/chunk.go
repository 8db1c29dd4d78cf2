package tensor

import (
	"github.com/gomlx/exceptions"
	"github.com/lsds/shardcomm/srcs/go/plan"
)

// Chunk splits t along axis into at most n contiguous tensors. Each has size
// ceil(dim/n) on axis except the last, which may be smaller; fewer than n
// pieces are returned when dim is not large enough. An empty axis gives n
// empty pieces.
func (t *Tensor) Chunk(n, axis int) []*Tensor {
	if n <= 0 {
		exceptions.Panicf("chunk into %d pieces", n)
	}
	axis = t.shape.Axis(axis)
	dim := t.shape.Dimensions[axis]
	if dim == 0 {
		parts := make([]*Tensor, n)
		for i := range parts {
			parts[i] = FromShape(t.shape)
		}
		return parts
	}
	var parts []*Tensor
	for _, r := range plan.CeilPartition(plan.Interval{Begin: 0, End: dim}, n) {
		parts = append(parts, t.narrow(axis, r))
	}
	return parts
}

// narrow copies the range r of axis into a new contiguous tensor.
func (t *Tensor) narrow(axis int, r plan.Interval) *Tensor {
	dim := t.shape.Dimensions[axis]
	outer, inner := t.shape.split(axis)
	esize := t.shape.DType.Size()
	row := inner * esize
	p := FromShape(t.shape.WithDim(axis, r.Len()))
	for o := 0; o < outer; o++ {
		src := t.data.Data[(o*dim+r.Begin)*row : (o*dim+r.End)*row]
		copy(p.data.Data[o*r.Len()*row:], src)
	}
	return p
}

// Concat joins ts along axis. All tensors must agree on dtype and on every
// other dimension.
func Concat(axis int, ts ...*Tensor) *Tensor {
	if len(ts) == 0 {
		exceptions.Panicf("concat of no tensors")
	}
	first := ts[0].shape
	axis = first.Axis(axis)
	total := 0
	for _, t := range ts {
		if !first.EqualExcept(t.shape, axis) {
			exceptions.Panicf("concat %s with %s along axis %d", first, t.shape, axis)
		}
		total += t.shape.Dimensions[axis]
	}
	out := FromShape(first.WithDim(axis, total))
	outer, inner := first.split(axis)
	row := inner * first.DType.Size()
	var off int
	for o := 0; o < outer; o++ {
		for _, t := range ts {
			n := t.shape.Dimensions[axis] * row
			off += copy(out.data.Data[off:], t.data.Data[o*n:(o+1)*n])
		}
	}
	return out
}

// Repeat tiles t n times along axis.
func Repeat(t *Tensor, n, axis int) *Tensor {
	if n <= 0 {
		exceptions.Panicf("repeat %d times", n)
	}
	ts := make([]*Tensor, n)
	for i := range ts {
		ts[i] = t
	}
	return Concat(axis, ts...)
}

// Stack joins tensors of the same shape along a new leading axis.
func Stack(ts ...*Tensor) *Tensor {
	if len(ts) == 0 {
		exceptions.Panicf("stack of no tensors")
	}
	first := ts[0].shape
	out := FromShape(MakeShape(first.DType, append([]int{len(ts)}, first.Dimensions...)...))
	n := first.Memory()
	for i, t := range ts {
		if !first.Equal(t.shape) {
			exceptions.Panicf("stack %s with %s", first, t.shape)
		}
		copy(out.data.Data[i*n:(i+1)*n], t.data.Data)
	}
	return out
}
