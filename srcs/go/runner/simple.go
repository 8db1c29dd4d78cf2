package runner

import (
	"context"

	"github.com/lsds/shardcomm/srcs/go/job"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/plan"
	"github.com/lsds/shardcomm/srcs/go/runner/local"
	"github.com/lsds/shardcomm/srcs/go/runner/remote"
	"github.com/lsds/shardcomm/srcs/go/utils"
)

// SimpleRun runs the peers of pl that live on selfIPv4.
func SimpleRun(ctx context.Context, selfIPv4 uint32, pl plan.PeerList, j job.Job, verboseLog bool) error {
	procs := j.CreateProcs(pl, selfIPv4)
	log.Infof("will parallel run %d instances of %s with %q", len(procs), j.Prog, j.Args)
	d, err := utils.Measure(func() error { return local.RunAll(ctx, procs, verboseLog) })
	log.Infof("all %d/%d local peers finished, took %s", len(procs), len(pl), d)
	return err
}

// RemoteRun runs every peer of pl over ssh.
func RemoteRun(ctx context.Context, user string, pl plan.PeerList, j job.Job, verboseLog bool) error {
	procs := j.CreateAllProcs(pl)
	log.Infof("will run %d instances of %s on %d hosts", len(procs), j.Prog, len(pl.Hosts()))
	d, err := utils.Measure(func() error { return remote.RunAll(ctx, user, procs, verboseLog, j.LogDir) })
	log.Infof("all %d peers finished, took %s", len(procs), d)
	return err
}
