package execution

import (
	"sync/atomic"
	"testing"

	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var peers = plan.PeerList{{IPv4: 1, Port: 1}, {IPv4: 1, Port: 2}, {IPv4: 2, Port: 1}}

func Test_Par(t *testing.T) {
	var n int32
	var f PeerFunc = func(p plan.PeerID) error {
		atomic.AddInt32(&n, 1)
		if p.Port == 2 {
			return errors.New("port 2")
		}
		return nil
	}
	err := f.Par(peers)
	assert.EqualValues(t, 3, n)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "port 2")
}

func Test_Seq(t *testing.T) {
	var visited []uint16
	var f PeerFunc = func(p plan.PeerID) error {
		visited = append(visited, p.Port)
		if p.IPv4 == 1 && p.Port == 2 {
			return errors.New("stop")
		}
		return nil
	}
	assert.Error(t, f.Seq(peers))
	assert.Equal(t, []uint16{1, 2}, visited)
	assert.NoError(t, PeerFunc(func(plan.PeerID) error { return nil }).Seq(peers))
}
