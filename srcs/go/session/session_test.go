package session

import (
	"fmt"
	"net"
	"testing"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/config"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/lsds/shardcomm/srcs/go/rchannel"
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

func startSessions(t *testing.T, n int, strategy base.Strategy) []*Session {
	pl := freePeers(t, n)
	var sessions []*Session
	for _, self := range pl {
		in, err := rchannel.Listen(self)
		require.NoError(t, err)
		out := rchannel.NewClient(self)
		t.Cleanup(func() {
			out.Close()
			in.Close()
		})
		sess, err := New(strategy, self, pl, "test", out, in)
		require.NoError(t, err)
		sessions = append(sessions, sess)
	}
	return sessions
}

func runAll(t *testing.T, sessions []*Session, f func(sess *Session) error) {
	var g errgroup.Group
	for _, sess := range sessions {
		sess := sess
		g.Go(func() error { return f(sess) })
	}
	require.NoError(t, g.Wait())
}

func Test_New_NotInPeerList(t *testing.T) {
	pl := freePeers(t, 2)
	other := plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 1}
	_, err := New(base.Star, other, pl, "test", rchannel.NewClient(other), nil)
	assert.Error(t, err)
}

func Test_AllReduce(t *testing.T) {
	for _, s := range []base.Strategy{base.Star, base.Ring, base.Clique, base.Tree, base.BinaryTree, base.BinaryTreeStar} {
		t.Run(s.String(), func(t *testing.T) {
			const n, count = 4, 37
			sessions := startSessions(t, n, s)
			results := make([][]float32, n)
			runAll(t, sessions, func(sess *Session) error {
				x := base.NewVector(count, base.F32)
				y := base.NewVector(count, base.F32)
				for i := range x.AsF32() {
					x.AsF32()[i] = float32(sess.Rank()*count + i)
				}
				w := base.Workspace{SendBuf: x, RecvBuf: y, OP: base.SUM, Name: "x"}
				if err := sess.AllReduce(w); err != nil {
					return err
				}
				results[sess.Rank()] = y.AsF32()
				return nil
			})
			for r := 0; r < n; r++ {
				for i := 0; i < count; i++ {
					want := float32(n*i + count*(0+1+2+3))
					assert.Equal(t, want, results[r][i], "rank %d index %d", r, i)
				}
			}
		})
	}
}

func Test_AllReduce_Chunked(t *testing.T) {
	defer func(n int) { config.ChunkSize = n }(config.ChunkSize)
	config.ChunkSize = 16
	const n, count = 3, 50
	sessions := startSessions(t, n, base.Clique)
	results := make([][]float64, n)
	runAll(t, sessions, func(sess *Session) error {
		x := base.NewVector(count, base.F64)
		for i := range x.AsF64() {
			x.AsF64()[i] = float64(i * (sess.Rank() + 1))
		}
		w := base.Workspace{SendBuf: x, RecvBuf: x, OP: base.SUM, Name: "chunked"}
		if err := sess.AllReduce(w); err != nil {
			return err
		}
		results[sess.Rank()] = x.AsF64()
		return nil
	})
	for _, got := range results {
		for i, v := range got {
			assert.Equal(t, float64(6*i), v)
		}
	}
}

func Test_AllReduce_Inplace(t *testing.T) {
	const n = 3
	sessions := startSessions(t, n, base.BinaryTreeStar)
	results := make([][]int32, n)
	runAll(t, sessions, func(sess *Session) error {
		x := base.NewVector(2, base.I32)
		x.AsI32()[0] = int32(sess.Rank() + 1)
		x.AsI32()[1] = int32(10 * (sess.Rank() + 1))
		w := base.Workspace{SendBuf: x, RecvBuf: x, OP: base.MAX, Name: "inplace"}
		if err := sess.AllReduce(w); err != nil {
			return err
		}
		results[sess.Rank()] = x.AsI32()
		return nil
	})
	for _, r := range results {
		assert.Equal(t, []int32{3, 30}, r)
	}
}

func Test_AllGather(t *testing.T) {
	const n, count = 4, 5
	sessions := startSessions(t, n, base.Star)
	results := make([][]int64, n)
	runAll(t, sessions, func(sess *Session) error {
		x := base.NewVector(count, base.I64)
		for i := range x.AsI64() {
			x.AsI64()[i] = int64(100*sess.Rank() + i)
		}
		y := base.NewVector(count*n, base.I64)
		if err := sess.AllGather(base.Workspace{SendBuf: x, RecvBuf: y, Name: "ag"}); err != nil {
			return err
		}
		results[sess.Rank()] = y.AsI64()
		return nil
	})
	for _, got := range results {
		for r := 0; r < n; r++ {
			for i := 0; i < count; i++ {
				assert.Equal(t, int64(100*r+i), got[r*count+i])
			}
		}
	}
}

func Test_AllGather_BadCount(t *testing.T) {
	sessions := startSessions(t, 2, base.Star)
	x := base.NewVector(3, base.F32)
	y := base.NewVector(5, base.F32)
	err := sessions[0].AllGather(base.Workspace{SendBuf: x, RecvBuf: y, Name: "bad"})
	assert.Error(t, err)
}

func Test_ReduceScatter(t *testing.T) {
	const n, count = 4, 3
	sessions := startSessions(t, n, base.Star)
	results := make([][]float32, n)
	runAll(t, sessions, func(sess *Session) error {
		x := base.NewVector(count*n, base.F32)
		for i := range x.AsF32() {
			x.AsF32()[i] = float32(i + sess.Rank())
		}
		y := base.NewVector(count, base.F32)
		if err := sess.ReduceScatter(base.Workspace{SendBuf: x, RecvBuf: y, OP: base.SUM, Name: "rs"}); err != nil {
			return err
		}
		results[sess.Rank()] = y.AsF32()
		return nil
	})
	for r, got := range results {
		for i := 0; i < count; i++ {
			j := r*count + i
			assert.Equal(t, float32(n*j+0+1+2+3), got[i], "rank %d index %d", r, i)
		}
	}
}

func Test_ReduceScatter_Uneven(t *testing.T) {
	sessions := startSessions(t, 2, base.Star)
	x := base.NewVector(5, base.F32)
	y := base.NewVector(2, base.F32)
	err := sessions[1].ReduceScatter(base.Workspace{SendBuf: x, RecvBuf: y, OP: base.SUM, Name: "uneven"})
	assert.Error(t, err)
}

func Test_BroadcastFrom(t *testing.T) {
	const n = 4
	for root := 0; root < n; root++ {
		t.Run(fmt.Sprintf("root=%d", root), func(t *testing.T) {
			sessions := startSessions(t, n, base.BinaryTreeStar)
			results := make([][]uint8, n)
			runAll(t, sessions, func(sess *Session) error {
				x := base.NewVector(4, base.U8)
				for i := range x.AsU8() {
					x.AsU8()[i] = uint8(sess.Rank()*10 + i)
				}
				if err := sess.BroadcastFrom(root, base.Workspace{SendBuf: x, RecvBuf: x, Name: "bcast"}); err != nil {
					return err
				}
				results[sess.Rank()] = x.AsU8()
				return nil
			})
			want := []uint8{uint8(root * 10), uint8(root*10 + 1), uint8(root*10 + 2), uint8(root*10 + 3)}
			for _, got := range results {
				assert.Equal(t, want, got)
			}
		})
	}
}

func Test_BroadcastFrom_BadRoot(t *testing.T) {
	sessions := startSessions(t, 2, base.Star)
	x := base.NewVector(1, base.U8)
	assert.Error(t, sessions[0].BroadcastFrom(2, base.Workspace{SendBuf: x, RecvBuf: x, Name: "bad"}))
}

func Test_Barrier_BytesConsensus(t *testing.T) {
	const n = 3
	sessions := startSessions(t, n, base.Ring)
	runAll(t, sessions, func(sess *Session) error { return sess.Barrier() })

	agreed := make([]bool, n)
	runAll(t, sessions, func(sess *Session) error {
		ok, err := sess.BytesConsensus([]byte("same"), "a")
		agreed[sess.Rank()] = ok
		return err
	})
	assert.Equal(t, []bool{true, true, true}, agreed)

	runAll(t, sessions, func(sess *Session) error {
		ok, err := sess.BytesConsensus([]byte(fmt.Sprintf("rank-%d", sess.Rank())), "b")
		agreed[sess.Rank()] = ok
		return err
	})
	assert.Equal(t, []bool{false, false, false}, agreed)
}

func Test_genStrategyList(t *testing.T) {
	pl := freePeers(t, 4)
	for _, s := range []base.Strategy{base.Star, base.MultiStar, base.Ring, base.Clique, base.Tree, base.BinaryTree, base.BinaryTreeStar, base.MultiBinaryTreeStar, base.Auto} {
		sl := genStrategyList(pl, s)
		require.NotEmpty(t, sl, "%s", s)
		for _, st := range sl {
			assert.Equal(t, 4, st.reduceGraph.Len())
			assert.Equal(t, 4, st.bcastGraph.Len())
		}
	}
}

func Test_strategyHash(t *testing.T) {
	assert.Equal(t, uint64(3), byIndex(3, "x"))
	assert.Equal(t, byName(0, "grad"), byName(7, "grad"))
	assert.NotEqual(t, byName(0, "a"), byName(0, "b"))
}
