package comm_test

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	fuzz "github.com/google/gofuzz"
	"github.com/lsds/shardcomm/srcs/go/backend/local"
	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/comm"
	"github.com/lsds/shardcomm/srcs/go/parallel"
	"github.com/lsds/shardcomm/srcs/go/registry"
	"github.com/lsds/shardcomm/srcs/go/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func launch(t *testing.T, n int, cfg parallel.Config) []*registry.Context {
	bs := local.NewCluster(n)
	ctxs := make([]*registry.Context, n)
	for i, b := range bs {
		ctx, err := registry.Launch(registry.LaunchConfig{Rank: i, WorldSize: n, Parallel: cfg, ForceCPU: true}, b)
		require.NoError(t, err)
		ctxs[i] = ctx
	}
	t.Cleanup(func() {
		for _, ctx := range ctxs {
			ctx.Close()
		}
	})
	return ctxs
}

func runAll(t *testing.T, ctxs []*registry.Context, f func(rank int, reg *registry.Context) error) {
	var g errgroup.Group
	for i, ctx := range ctxs {
		i, ctx := i, ctx
		g.Go(func() error { return f(i, ctx) })
	}
	require.NoError(t, g.Wait())
}

func randomI64(fz *fuzz.Fuzzer, dims ...int) *tensor.Tensor {
	t := tensor.New(dtypes.Int64, dims...)
	flat := tensor.Flat[int64](t)
	for i := range flat {
		var x int32
		fz.Fuzz(&x)
		flat[i] = int64(x)
	}
	return t
}

func Test_AllGather(t *testing.T) {
	const n = 4
	fz := fuzz.NewWithSeed(1)
	for _, dim := range []int{0, 1, -1} {
		ctxs := launch(t, n, parallel.DefaultConfig)
		shards := make([]*tensor.Tensor, n)
		for i := range shards {
			shards[i] = randomI64(fz, 2, 3)
		}
		results := make([][]*tensor.Tensor, n)
		runAll(t, ctxs, func(rank int, reg *registry.Context) error {
			out, err := comm.AllGather(reg, shards[rank], dim, parallel.Data)
			results[rank] = out
			return err
		})
		want := tensor.Concat(dim, shards...)
		for _, out := range results {
			require.Len(t, out, n)
			for i := range out {
				assert.True(t, tensor.Equal(shards[i], out[i]), "dim=%d segment %d", dim, i)
			}
			got := tensor.Concat(dim, out...)
			assert.Equal(t, n*shards[0].Dim(dim), got.Dim(dim))
			assert.True(t, tensor.Equal(want, got))
		}
	}
}

func Test_AllGather_DoesNotAlias(t *testing.T) {
	ctxs := launch(t, 1, parallel.DefaultConfig)
	x := tensor.FromFlat([]float32{1, 2, 3}, 3)
	out, err := comm.AllGather(ctxs[0], x, 0, parallel.Global)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, tensor.Equal(x, out[0]))
	tensor.Flat[float32](out[0])[0] = 7
	assert.Equal(t, float32(1), tensor.Flat[float32](x)[0])
}

func Test_AllGather_InvalidDim(t *testing.T) {
	ctxs := launch(t, 1, parallel.DefaultConfig)
	x := tensor.New(dtypes.Float32, 2, 2)
	assert.Panics(t, func() { comm.AllGather(ctxs[0], x, 2, parallel.Data) })
	assert.Panics(t, func() { comm.ReduceScatter(ctxs[0], x, -3, parallel.Data) })
}

func Test_ReduceScatter(t *testing.T) {
	const n = 4
	fz := fuzz.NewWithSeed(2)
	for _, dim := range []int{0, 1} {
		ctxs := launch(t, n, parallel.DefaultConfig)
		inputs := make([]*tensor.Tensor, n)
		for i := range inputs {
			inputs[i] = randomI64(fz, 8, 4)
		}
		results := make([]*tensor.Tensor, n)
		runAll(t, ctxs, func(rank int, reg *registry.Context) error {
			out, err := comm.ReduceScatter(reg, inputs[rank], dim, parallel.Data)
			results[rank] = out
			return err
		})
		sum := inputs[0].Clone()
		for _, x := range inputs[1:] {
			sum.Reduce(x, base.SUM)
		}
		want := sum.Chunk(n, dim)
		for r, out := range results {
			assert.True(t, tensor.Equal(want[r], out), "dim=%d rank %d", dim, r)
		}
		assert.True(t, tensor.Equal(sum, tensor.Concat(dim, results...)))
	}
}

func Test_ReduceScatter_Uneven(t *testing.T) {
	ctxs := launch(t, 2, parallel.DefaultConfig)
	errs := make([]error, 2)
	runAll(t, ctxs, func(rank int, reg *registry.Context) error {
		_, errs[rank] = comm.ReduceScatter(reg, tensor.New(dtypes.Float32, 5), 0, parallel.Data)
		return nil
	})
	for _, err := range errs {
		assert.Error(t, err)
	}
}

func Test_EmptyDim(t *testing.T) {
	for _, n := range []int{1, 4} {
		ctxs := launch(t, n, parallel.DefaultConfig)
		gathered := make([][]*tensor.Tensor, n)
		scattered := make([]*tensor.Tensor, n)
		runAll(t, ctxs, func(rank int, reg *registry.Context) error {
			x := tensor.New(dtypes.Float32, 0, 3)
			var err error
			if gathered[rank], err = comm.AllGather(reg, x, 0, parallel.Data); err != nil {
				return err
			}
			scattered[rank], err = comm.ReduceScatter(reg, x, 0, parallel.Data)
			return err
		})
		for r := 0; r < n; r++ {
			require.Len(t, gathered[r], n, "depth %d", n)
			for _, seg := range gathered[r] {
				assert.Equal(t, []int{0, 3}, seg.Shape().Dimensions)
			}
			assert.Equal(t, []int{0, 3}, scattered[r].Shape().Dimensions)
		}
	}
}

func Test_AllReduce(t *testing.T) {
	const n = 3
	fz := fuzz.NewWithSeed(3)
	ctxs := launch(t, n, parallel.DefaultConfig)
	xs := make([]*tensor.Tensor, n)
	for i := range xs {
		xs[i] = randomI64(fz, 5)
	}
	want := xs[0].Clone()
	for _, x := range xs[1:] {
		want.Reduce(x, base.SUM)
	}
	runAll(t, ctxs, func(rank int, reg *registry.Context) error {
		y, err := comm.AllReduce(reg, xs[rank], parallel.Data)
		if err == nil && y != xs[rank] {
			t.Errorf("all-reduce did not return its input")
		}
		return err
	})
	for _, x := range xs {
		assert.True(t, tensor.Equal(want, x))
	}
}

func Test_AllReduce_FixedPoint(t *testing.T) {
	const n = 2
	ctxs := launch(t, n, parallel.DefaultConfig)
	xs := []*tensor.Tensor{
		tensor.FromFlat([]int32{0, 0, 0}, 3),
		tensor.FromFlat([]int32{0, 0, 0}, 3),
	}
	runAll(t, ctxs, func(rank int, reg *registry.Context) error {
		_, err := comm.AllReduce(reg, xs[rank], parallel.Global)
		return err
	})
	for _, x := range xs {
		assert.Equal(t, []int32{0, 0, 0}, tensor.Flat[int32](x))
	}
}

func Test_SingleRank(t *testing.T) {
	ctxs := launch(t, 1, parallel.DefaultConfig)
	x := tensor.FromFlat([]float64{1, 2, 3, 4}, 2, 2)
	rs, err := comm.ReduceScatter(ctxs[0], x, 0, parallel.Data)
	require.NoError(t, err)
	assert.True(t, tensor.Equal(x, rs))
	ar, err := comm.AllReduce(ctxs[0], x.Clone(), parallel.Data)
	require.NoError(t, err)
	assert.True(t, tensor.Equal(x, ar))
}

func Test_TensorGroups(t *testing.T) {
	const n = 4
	ctxs := launch(t, n, parallel.Config{TensorSize: 2})
	xs := make([]*tensor.Tensor, n)
	for i := range xs {
		xs[i] = tensor.FromFlat([]int32{int32(1 << i)}, 1)
	}
	runAll(t, ctxs, func(rank int, reg *registry.Context) error {
		assert.Equal(t, 2, reg.WorldSize(parallel.Tensor))
		assert.Equal(t, rank%2, reg.LocalRank(parallel.Tensor))
		assert.Equal(t, rank/2, reg.LocalRank(parallel.Data))
		_, err := comm.AllReduce(reg, xs[rank], parallel.Tensor)
		return err
	})
	assert.Equal(t, []int32{3, 3, 12, 12}, []int32{
		tensor.Flat[int32](xs[0])[0],
		tensor.Flat[int32](xs[1])[0],
		tensor.Flat[int32](xs[2])[0],
		tensor.Flat[int32](xs[3])[0],
	})
}

func Test_Async(t *testing.T) {
	const n = 2
	ctxs := launch(t, n, parallel.DefaultConfig)
	runAll(t, ctxs, func(rank int, reg *registry.Context) error {
		x := tensor.FromFlat([]int32{int32(rank + 1)}, 1)
		w1 := comm.AllReduceAsync(reg, x, parallel.Data)
		w2 := comm.AllGatherAsync(reg, x, 0, parallel.Data)
		w3 := comm.ReduceScatterAsync(reg, tensor.FromFlat([]int32{1, 2}, 2), 0, parallel.Data)

		gathered, err := w2.Wait()
		if err != nil {
			return err
		}
		// queued after the all-reduce, so it sees the summed value
		for _, g := range gathered {
			assert.Equal(t, []int32{3}, tensor.Flat[int32](g))
		}
		<-w1.Done()
		y, err := w1.Wait()
		if err != nil {
			return err
		}
		assert.Equal(t, []int32{3}, tensor.Flat[int32](y))
		_, err = w1.Wait()
		assert.ErrorIs(t, err, comm.ErrWorkConsumed)

		s, err := w3.Wait()
		if err != nil {
			return err
		}
		assert.Equal(t, []int32{int32(2 * (rank + 1))}, tensor.Flat[int32](s))
		return nil
	})
}

func Test_Broadcast(t *testing.T) {
	const n = 3
	ctxs := launch(t, n, parallel.DefaultConfig)
	xs := make([]*tensor.Tensor, n)
	for i := range xs {
		xs[i] = tensor.FromFlat([]uint8{uint8(i), uint8(i)}, 2)
	}
	runAll(t, ctxs, func(rank int, reg *registry.Context) error {
		return comm.Broadcast(reg, xs[rank], 2, parallel.Data)
	})
	for _, x := range xs {
		assert.Equal(t, []uint8{2, 2}, tensor.Flat[uint8](x))
	}
}
