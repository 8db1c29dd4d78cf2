package rchannel

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePeer(t *testing.T) plan.PeerID {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: uint16(port)}
}

func listen(t *testing.T) *Endpoint {
	e, err := Listen(freePeer(t))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func f32s(xs ...float32) *base.Vector {
	v := base.NewVector(len(xs), base.F32)
	copy(v.AsF32(), xs)
	return v
}

func Test_FrameHeader(t *testing.T) {
	var buf bytes.Buffer
	v := f32s(1, 2, 3)
	require.NoError(t, writeFrame(&buf, "grad", v, Direct))
	assert.Equal(t, headerSize+len("grad")+12, buf.Len())

	h, name, err := readHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, "grad", name)
	assert.Equal(t, Direct, h.Flags)
	assert.Equal(t, base.F32, h.dtype())
	assert.Equal(t, 12, h.payload())
	assert.NoError(t, h.fits(base.NewVector(3, base.F32)))
	assert.ErrorIs(t, h.fits(base.NewVector(4, base.F32)), errFrameMismatch)
	assert.ErrorIs(t, h.fits(base.NewVector(3, base.I32)), errFrameMismatch)
	assert.Equal(t, v.Data, buf.Bytes())
}

func Test_FrameHeader_Rejects(t *testing.T) {
	assert.ErrorIs(t, writeFrame(&bytes.Buffer{}, strings.Repeat("x", maxName+1), f32s(), 0), errBadFrame)

	raw := []byte{0, 0xff, 0, 1, 0, 0, 0, 0, 'x'}
	_, _, err := readHeader(bytes.NewReader(raw))
	assert.ErrorIs(t, err, errBadFrame)
}

func Test_SendRecv(t *testing.T) {
	a, b := listen(t), listen(t)
	c := NewClient(a.Self())
	defer c.Close()

	require.NoError(t, c.Send(b.Self(), "x", f32s(1, 2), 0))
	require.NoError(t, c.Send(b.Self(), "y", base.NewVector(0, base.I64), 0))
	y, err := b.Recv(a.Self(), "y")
	require.NoError(t, err)
	assert.Equal(t, 0, y.Count)
	x, err := b.Recv(a.Self(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, x.AsF32())
	assert.Equal(t, int64(8), c.EgressBytes())
}

func Test_RecvInto(t *testing.T) {
	a, b := listen(t), listen(t)
	c := NewClient(a.Self())
	defer c.Close()

	out := base.NewVector(3, base.F32)
	done := make(chan error, 1)
	go func() { done <- b.RecvInto(a.Self(), "w", out) }()
	require.NoError(t, c.Send(b.Self(), "w", f32s(4, 5, 6), Direct))
	require.NoError(t, <-done)
	assert.Equal(t, []float32{4, 5, 6}, out.AsF32())
}

func Test_RecvInto_Mismatch(t *testing.T) {
	a, b := listen(t), listen(t)
	c := NewClient(a.Self())
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- b.RecvInto(a.Self(), "w", base.NewVector(4, base.F32)) }()
	require.NoError(t, c.Send(b.Self(), "w", f32s(1, 2, 3), Direct))
	assert.ErrorIs(t, <-done, errFrameMismatch)

	// the link stays usable after a rejected frame
	require.NoError(t, c.Send(b.Self(), "next", f32s(7), 0))
	v, err := b.Recv(a.Self(), "next")
	require.NoError(t, err)
	assert.Equal(t, []float32{7}, v.AsF32())
}

func Test_PingWait(t *testing.T) {
	a, b := listen(t), listen(t)
	c := NewClient(a.Self())
	_, err := c.Ping(b.Self())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := c.Wait(ctx, b.Self())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ctx, cancel = context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = c.Wait(ctx, freePeer(t))
	assert.ErrorIs(t, err, errUnreachable)
}

func Test_WrongPeer(t *testing.T) {
	a := listen(t)
	other := a.Self()
	other.IPv4 = plan.MustParseIPv4("127.0.0.2")
	conn, err := net.Dial("tcp", a.Self().String())
	require.NoError(t, err)
	defer conn.Close()
	assert.ErrorIs(t, greet(conn, KindTensor, a.Self(), other), errWrongPeer)
}

func Test_Close_FailsPendingRecv(t *testing.T) {
	a, b := listen(t), listen(t)
	done := make(chan error, 1)
	go func() {
		_, err := b.Recv(a.Self(), "never")
		done <- err
	}()
	require.NoError(t, b.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, errClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Recv still blocked after Close")
	}
	assert.NoError(t, b.Close())
}
