// Package job turns a launch request into the processes of its workers.
package job

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/config"
	"github.com/lsds/shardcomm/srcs/go/device"
	"github.com/lsds/shardcomm/srcs/go/env"
	"github.com/lsds/shardcomm/srcs/go/parallel"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/lsds/shardcomm/srcs/go/proc"
)

type Job struct {
	ID        string
	Strategy  base.Strategy
	HostList  plan.HostList
	PortRange plan.PortRange
	Parallel  parallel.Config
	Seed      int64
	Prog      string
	Args      []string
	LogDir    string
}

// NewID returns a fresh job id.
func NewID() string {
	return uuid.NewString()
}

// NewProc creates the process of peer, pinned to device dev unless dev is
// negative.
func (j Job) NewProc(peer plan.PeerID, dev int, pl plan.PeerList) proc.Proc {
	envs := proc.Envs{
		env.SelfSpecEnvKey:          peer.String(),
		env.PeerListEnvKey:          pl.String(),
		env.AllReduceStrategyEnvKey: j.Strategy.String(),
		env.PipelineSizeEnvKey:      strconv.Itoa(j.Parallel.PipelineSize),
		env.TensorSizeEnvKey:        strconv.Itoa(j.Parallel.TensorSize),
		env.SeedEnvKey:              strconv.FormatInt(j.Seed, 10),
		env.JobIDEnvKey:             j.ID,
	}
	if dev != noDevice {
		envs[device.CudaVisibleDevicesKey] = strconv.Itoa(dev)
	}
	allEnvs := proc.Merge(getConfigEnvs(), envs)
	pubAddr, _ := j.HostList.PublicAddr(peer.IPv4)
	return proc.Proc{
		Name:    fmt.Sprintf("%s.%d", plan.FormatIPv4(peer.IPv4), peer.Port),
		Prog:    j.Prog,
		Args:    j.Args,
		Envs:    allEnvs,
		IPv4:    peer.IPv4,
		PubAddr: pubAddr,
		LogDir:  j.LogDir,
	}
}

// CreateAllProcs creates the processes of every peer in pl.
func (j Job) CreateAllProcs(pl plan.PeerList) []proc.Proc {
	var ps []proc.Proc
	for _, host := range pl.Hosts() {
		ps = append(ps, j.CreateProcs(pl, host)...)
	}
	return ps
}

// CreateProcs creates the processes of the peers of pl on host, giving each
// a device of its own.
func (j Job) CreateProcs(pl plan.PeerList, host uint32) []proc.Proc {
	local := pl.On(host)
	pool := HostDevicePool(len(local))
	var ps []proc.Proc
	for _, self := range local {
		ps = append(ps, j.NewProc(self, pool.Acquire(), pl))
	}
	return ps
}

func getConfigEnvs() proc.Envs {
	envs := make(proc.Envs)
	for _, k := range config.ConfigEnvKeys {
		if val := os.Getenv(k); len(val) > 0 {
			envs[k] = val
		}
	}
	return envs
}
