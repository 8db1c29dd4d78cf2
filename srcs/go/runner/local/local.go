// Package local runs worker processes on this host.
package local

import (
	"context"
	"os/exec"

	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/proc"
	"github.com/lsds/shardcomm/srcs/go/utils"
	"github.com/lsds/shardcomm/srcs/go/utils/iostream"
	"github.com/lsds/shardcomm/srcs/go/utils/xterm"
	"golang.org/x/sync/errgroup"
)

// Run starts cmd with its output pumped to sinks and waits for it. If ctx
// ends first the process is killed and ctx.Err() returned.
func Run(ctx context.Context, cmd *exec.Cmd, sinks ...iostream.Sink) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	pumped := iostream.Pump(stdout, stderr, sinks...)
	exited := make(chan error, 1)
	go func() {
		pumped.Wait()
		exited <- cmd.Wait()
	}()
	select {
	case err := <-exited:
		return err
	case <-ctx.Done():
		cmd.Process.Kill()
		<-exited
		return ctx.Err()
	}
}

// RunAll runs every process at once. The first failure kills the rest.
func RunAll(ctx context.Context, ps []proc.Proc, verboseLog bool) error {
	g, ctx := errgroup.WithContext(ctx)
	errs := make([]error, len(ps))
	for i, p := range ps {
		i, p := i, p
		sinks := iostream.For(p.Name, xterm.BasicColors.Choose(i), verboseLog, p.LogDir)
		g.Go(func() error {
			if errs[i] = Run(ctx, p.Cmd(), sinks...); errs[i] != nil {
				log.Errorf("%s: %v", p.Name, errs[i])
				return errs[i]
			}
			log.Debugf("%s done", p.Name)
			return nil
		})
	}
	g.Wait()
	return utils.MergeErrors(errs, "run")
}
