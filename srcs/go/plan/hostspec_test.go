package plan

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeHosts(n int) HostList {
	var hosts HostList
	for i := 0; i < n; i++ {
		ip := fmt.Sprintf(`192.168.1.%d`, 11+i)
		hosts = append(hosts, HostSpec{
			IPv4:       MustParseIPv4(ip),
			Slots:      4,
			PublicAddr: ip,
		})
	}
	return hosts
}

func Test_ParseHostList(t *testing.T) {
	hl, err := ParseHostList(`192.168.1.11:4,192.168.1.12:2:gpu2,192.168.1.13`)
	require.NoError(t, err)
	require.Len(t, hl, 3)
	assert.Equal(t, 7, hl.Slots())
	addr, ok := hl.PublicAddr(MustParseIPv4(`192.168.1.12`))
	assert.True(t, ok)
	assert.Equal(t, `gpu2`, addr)
	assert.Equal(t, `192.168.1.11:4:192.168.1.11,192.168.1.12:2:gpu2,192.168.1.13:1:192.168.1.13`, hl.String())

	for _, bad := range []string{`192.168.1.11:x`, `node1`, `192.168.1.11:-1`, `192.168.1.11:1:a:b`, `::1`} {
		_, err = ParseHostList(bad)
		assert.Error(t, err, bad)
	}
}

func Test_GenPeerList(t *testing.T) {
	hl := fakeHosts(2)
	pl, err := hl.GenPeerList(6, DefaultPortRange)
	require.NoError(t, err)
	require.Len(t, pl, 6)
	assert.Equal(t, `192.168.1.11:10003`, pl[3].String())
	assert.Equal(t, `192.168.1.12:10001`, pl[5].String())
	r, ok := pl.LocalRank(pl[5])
	assert.True(t, ok)
	assert.Equal(t, 1, r)

	_, err = hl.GenPeerList(9, DefaultPortRange)
	assert.ErrorIs(t, err, errShortCapacity)
	_, err = hl.GenPeerList(4, PortRange{Begin: 10000, End: 10001})
	assert.ErrorIs(t, err, errShortCapacity)
	pl, err = hl.GenPeerList(2, PortRange{Begin: 10000, End: 10001})
	require.NoError(t, err)
	assert.Len(t, pl.Hosts(), 1)
}

func Test_PortRange(t *testing.T) {
	pr, err := ParsePortRange(`10000-10010`)
	require.NoError(t, err)
	assert.Equal(t, 11, pr.Len())
	assert.Equal(t, `10000-10010`, pr.String())
	for _, bad := range []string{`10-1`, `10000`, `a-b`, `1-70000`} {
		_, err = ParsePortRange(bad)
		assert.ErrorIs(t, err, errBadPortRange, bad)
	}
	var flag PortRange
	require.NoError(t, flag.Set(`20-30`))
	assert.Equal(t, PortRange{Begin: 20, End: 30}, flag)
}

func Test_PeerID(t *testing.T) {
	p, err := ParsePeerID(`10.0.0.2:10001`)
	require.NoError(t, err)
	assert.Equal(t, PeerID{IPv4: 0x0a000002, Port: 10001}, p)
	assert.Equal(t, `10.0.0.2:10001`, p.String())
	_, err = ParsePeerID(`[::1]:10001`)
	assert.ErrorIs(t, err, errNotIPv4)
	_, err = ParsePeerID(`10.0.0.2`)
	assert.Error(t, err)

	ipv4, ok := IPv4Of([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff, 192, 168, 0, 1})
	assert.True(t, ok)
	assert.Equal(t, `192.168.0.1`, FormatIPv4(ipv4))
	_, ok = IPv4Of([]byte{1, 2, 3})
	assert.False(t, ok)
}

func Test_PeerList(t *testing.T) {
	pl, err := ParsePeerList(`127.0.0.1:10000,127.0.0.1:10001,127.0.0.2:10000`)
	require.NoError(t, err)
	assert.Equal(t, `127.0.0.1:10000,127.0.0.1:10001,127.0.0.2:10000`, pl.String())
	sub, err := pl.Sub([]int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, PeerList{pl[2], pl[0]}, sub)
	_, err = pl.Sub([]int{3})
	assert.ErrorIs(t, err, errRankOutOfRange)
	assert.Equal(t, []uint32{MustParseIPv4(`127.0.0.1`), MustParseIPv4(`127.0.0.2`)}, pl.Hosts())
	assert.Len(t, pl.On(pl[0].IPv4), 2)
	assert.Equal(t, PeerList{pl[1], pl[2]}, pl.Others(pl[0]))
	empty, err := ParsePeerList(``)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
