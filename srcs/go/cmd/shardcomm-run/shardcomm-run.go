package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lsds/shardcomm/srcs/go/job"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/parallel"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/lsds/shardcomm/srcs/go/runner"
	"github.com/lsds/shardcomm/srcs/go/utils"
)

var f runner.FlagSet

func init() { runner.Init(&f, os.Args) }

func main() {
	if len(f.Logfile) > 0 {
		lf, err := os.Create(f.Logfile)
		if err != nil {
			utils.ExitErr(err)
		}
		defer lf.Close()
		log.SetOutput(lf)
	}
	t0 := time.Now()
	defer func(prog string) { log.Infof("%s took %s", prog, time.Since(t0)) }(utils.ProgName())
	selfIPv4, err := runner.InferSelfIPv4(f.Self, f.NIC)
	if err != nil {
		utils.ExitErr(err)
	}
	log.Infof("Using self=%s", plan.FormatIPv4(selfIPv4))
	peers, err := f.HostList.GenPeerList(f.ClusterSize, f.PortRange)
	if err != nil {
		utils.ExitErr(fmt.Errorf("failed to create peers: %v", err))
	}
	pc := parallel.Config{PipelineSize: f.PipelineSize, TensorSize: f.TensorSize}
	layout, err := parallel.NewLayout(len(peers), pc)
	if err != nil {
		utils.ExitErr(err)
	}
	j := job.Job{
		ID:        job.NewID(),
		Strategy:  f.Strategy,
		HostList:  f.HostList,
		PortRange: f.PortRange,
		Parallel:  pc,
		Seed:      f.Seed,
		Prog:      f.Prog,
		Args:      f.Args,
		LogDir:    f.LogDir,
	}
	log.Infof("job %s: %d peers, layout %s", j.ID, len(peers), layout)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if f.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	utils.Trap(func(sig os.Signal) {
		log.Warnf("%s received, cancelling job %s", sig, j.ID)
		cancel()
	})
	if f.Remote {
		err = runner.RemoteRun(ctx, f.User, peers, j, f.VerboseLog)
	} else {
		err = runner.SimpleRun(ctx, selfIPv4, peers, j, f.VerboseLog)
	}
	if err != nil {
		utils.ExitErr(err)
	}
}
