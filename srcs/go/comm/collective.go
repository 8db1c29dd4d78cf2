package comm

import (
	"github.com/lsds/shardcomm/srcs/go/parallel"
	"github.com/lsds/shardcomm/srcs/go/tensor"
)

// AllGather returns the shards of every member of the group of m, in group
// order. An invalid dim panics.
func AllGather(reg Registry, t *tensor.Tensor, dim int, m parallel.Mode) ([]*tensor.Tensor, error) {
	return AllGatherAsync(reg, t, dim, m).Wait()
}

// AllGatherAsync is AllGather returning at once. The segments must not be
// read before Wait returns.
func AllGatherAsync(reg Registry, t *tensor.Tensor, dim int, m parallel.Mode) *Work[[]*tensor.Tensor] {
	depth := reg.WorldSize(m)
	t.Shape().Axis(dim) // panics on an invalid dim
	in := t.Clone()
	out := make([]*tensor.Tensor, depth)
	for i := range out {
		out[i] = reg.Device().Alloc(in.Shape())
	}
	return submit(reg, m, "all-gather", func(g Group) ([]*tensor.Tensor, error) {
		if err := reg.Backend().AllGather(out, in, g); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// ReduceScatter sums t over the group of m and returns the segment of the
// sum along dim that belongs to the calling rank. The extent of dim must be
// divisible by the group size.
func ReduceScatter(reg Registry, t *tensor.Tensor, dim int, m parallel.Mode) (*tensor.Tensor, error) {
	return ReduceScatterAsync(reg, t, dim, m).Wait()
}

// ReduceScatterAsync is ReduceScatter returning at once. The segment must
// not be read before Wait returns.
func ReduceScatterAsync(reg Registry, t *tensor.Tensor, dim int, m parallel.Mode) *Work[*tensor.Tensor] {
	depth := reg.WorldSize(m)
	in := t.Chunk(depth, dim)
	out := reg.Device().Alloc(in[0].Shape())
	out.CopyFrom(in[0])
	return submit(reg, m, "reduce-scatter", func(g Group) (*tensor.Tensor, error) {
		if err := reg.Backend().ReduceScatter(out, in, g); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// AllReduce sums t in place over the group of m and returns t.
func AllReduce(reg Registry, t *tensor.Tensor, m parallel.Mode) (*tensor.Tensor, error) {
	return AllReduceAsync(reg, t, m).Wait()
}

// AllReduceAsync is AllReduce returning at once. t must not be read or
// written before Wait returns.
func AllReduceAsync(reg Registry, t *tensor.Tensor, m parallel.Mode) *Work[*tensor.Tensor] {
	return submit(reg, m, "all-reduce", func(g Group) (*tensor.Tensor, error) {
		if err := reg.Backend().AllReduce(t, g); err != nil {
			return nil, err
		}
		return t, nil
	})
}

// Broadcast overwrites t with the tensor of member src of the group of m.
func Broadcast(reg Registry, t *tensor.Tensor, src int, m parallel.Mode) error {
	_, err := submit(reg, m, "broadcast", func(g Group) (*tensor.Tensor, error) {
		return t, reg.Backend().Broadcast(t, src, g)
	}).Wait()
	return err
}
