package tcp

import (
	"net"
	"testing"
	"time"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/comm"
	"github.com/lsds/shardcomm/srcs/go/parallel"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/lsds/shardcomm/srcs/go/registry"
	"github.com/lsds/shardcomm/srcs/go/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func freePeers(t *testing.T, n int) plan.PeerList {
	var pl plan.PeerList
	for i := 0; i < n; i++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := l.Addr().(*net.TCPAddr).Port
		require.NoError(t, l.Close())
		pl = append(pl, plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: uint16(port)})
	}
	return pl
}

func launch(t *testing.T, n int, strategy base.Strategy, pc parallel.Config) ([]*Backend, []*registry.Context) {
	pl := freePeers(t, n)
	bs := make([]*Backend, n)
	ctxs := make([]*registry.Context, n)
	var g errgroup.Group
	for i := range pl {
		i := i
		g.Go(func() error {
			b, err := New(Config{Self: pl[i], Peers: pl, Strategy: strategy, WaitTimeout: 10 * time.Second})
			if err != nil {
				return err
			}
			bs[i] = b
			ctx, err := registry.Launch(registry.LaunchConfig{Rank: i, WorldSize: n, Parallel: pc, ForceCPU: true}, b)
			ctxs[i] = ctx
			return err
		})
	}
	require.NoError(t, g.Wait())
	t.Cleanup(func() {
		for _, ctx := range ctxs {
			ctx.Close()
		}
	})
	return bs, ctxs
}

func runAll(t *testing.T, ctxs []*registry.Context, f func(rank int, reg *registry.Context) error) {
	var g errgroup.Group
	for i, ctx := range ctxs {
		i, ctx := i, ctx
		g.Go(func() error { return f(i, ctx) })
	}
	require.NoError(t, g.Wait())
}

func Test_Collectives(t *testing.T) {
	const n = 4
	bs, ctxs := launch(t, n, base.BinaryTreeStar, parallel.DefaultConfig)
	runAll(t, ctxs, func(rank int, reg *registry.Context) error {
		x := tensor.FromFlat([]float32{float32(rank), float32(10 * rank)}, 1, 2)

		parts, err := comm.AllGather(reg, x, 0, parallel.Data)
		if err != nil {
			return err
		}
		for i, p := range parts {
			assert.Equal(t, []float32{float32(i), float32(10 * i)}, tensor.Flat[float32](p))
		}

		full := tensor.FromFlat([]int32{1, 2, 3, 4, 5, 6, 7, 8}, 8)
		seg, err := comm.ReduceScatter(reg, full, 0, parallel.Data)
		if err != nil {
			return err
		}
		assert.Equal(t, []int32{int32(n * (2*rank + 1)), int32(n * (2*rank + 2))}, tensor.Flat[int32](seg))

		y, err := comm.AllReduce(reg, x, parallel.Global)
		if err != nil {
			return err
		}
		assert.Equal(t, []float32{6, 60}, tensor.Flat[float32](y))

		z := tensor.FromFlat([]int64{int64(rank)}, 1)
		if err := comm.Broadcast(reg, z, 3, parallel.Data); err != nil {
			return err
		}
		assert.Equal(t, []int64{3}, tensor.Flat[int64](z))
		return nil
	})
	for _, b := range bs {
		assert.Greater(t, b.EgressBytes(), int64(0))
	}
}

func Test_SubGroups(t *testing.T) {
	const n = 4
	_, ctxs := launch(t, n, base.Star, parallel.Config{PipelineSize: 2})
	runAll(t, ctxs, func(rank int, reg *registry.Context) error {
		x := tensor.FromFlat([]int32{int32(1 << rank)}, 1)
		w1 := comm.AllReduceAsync(reg, x.Clone(), parallel.Pipeline)
		w2 := comm.AllReduceAsync(reg, x.Clone(), parallel.Data)
		p, err := w1.Wait()
		if err != nil {
			return err
		}
		d, err := w2.Wait()
		if err != nil {
			return err
		}
		// data groups {0,1} {2,3}, pipeline groups {0,2} {1,3}
		wantP := int32(1<<(rank%2) | 1<<(rank%2+2))
		wantD := int32(3 << (2 * (rank / 2)))
		assert.Equal(t, wantP, tensor.Flat[int32](p)[0])
		assert.Equal(t, wantD, tensor.Flat[int32](d)[0])
		return nil
	})
}

func Test_ShapeMismatch(t *testing.T) {
	const n = 2
	_, ctxs := launch(t, n, base.Star, parallel.DefaultConfig)
	errs := make([]error, n)
	runAll(t, ctxs, func(rank int, reg *registry.Context) error {
		_, errs[rank] = comm.AllReduce(reg, tensor.New(base.F32, 2+rank), parallel.Data)
		return nil
	})
	for _, err := range errs {
		assert.ErrorIs(t, err, errShapeMismatch)
	}
}

func Test_Close_FailsPending(t *testing.T) {
	bs, ctxs := launch(t, 2, base.Star, parallel.DefaultConfig)
	done := make(chan error, 1)
	go func() {
		// rank 1 never joins, so rank 0 waits for it
		_, err := comm.AllReduce(ctxs[0], tensor.New(base.F32, 4), parallel.Data)
		done <- err
	}()
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, bs[0].Close())
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("all-reduce still blocked after Close")
	}
	_, err := bs[0].JoinGroup([]int{0, 1})
	assert.ErrorIs(t, err, errClosed)
}

func Test_EmptyDim(t *testing.T) {
	const n = 4
	_, ctxs := launch(t, n, base.Ring, parallel.DefaultConfig)
	runAll(t, ctxs, func(rank int, reg *registry.Context) error {
		x := tensor.New(base.F32, 0, 2)
		parts, err := comm.AllGather(reg, x, 0, parallel.Data)
		if err != nil {
			return err
		}
		assert.Len(t, parts, n)
		seg, err := comm.ReduceScatter(reg, x, 0, parallel.Data)
		if err != nil {
			return err
		}
		assert.Equal(t, []int{0, 2}, seg.Shape().Dimensions)
		return nil
	})
}

func Test_New_NotInPeers(t *testing.T) {
	pl := freePeers(t, 2)
	_, err := New(Config{Self: plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 1}, Peers: pl})
	assert.Error(t, err)
}

func Test_shapeBytes(t *testing.T) {
	a := shapeBytes(tensor.MakeShape(base.F32, 2, 3))
	b := shapeBytes(tensor.MakeShape(base.F32, 3, 2))
	c := shapeBytes(tensor.MakeShape(base.I32, 2, 3))
	assert.Len(t, a, 12)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}
