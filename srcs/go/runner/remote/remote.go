// Package remote runs worker processes on other hosts over ssh.
package remote

import (
	"context"
	"time"

	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/proc"
	"github.com/lsds/shardcomm/srcs/go/utils"
	"github.com/lsds/shardcomm/srcs/go/utils/iostream"
	"github.com/lsds/shardcomm/srcs/go/utils/ssh"
	"github.com/lsds/shardcomm/srcs/go/utils/xterm"
	"golang.org/x/sync/errgroup"
)

// RunAll runs the script of every process on its public address. The first
// failure stops the others.
func RunAll(ctx context.Context, user string, ps []proc.Proc, verboseLog bool, logDir string) error {
	g, ctx := errgroup.WithContext(ctx)
	errs := make([]error, len(ps))
	for i, p := range ps {
		i, p := i, p
		sinks := iostream.For(p.Name, xterm.BasicColors.Choose(i), verboseLog, logDir)
		g.Go(func() error {
			errs[i] = runOn(ctx, ssh.Target{User: user, Host: p.PubAddr}, p, sinks)
			return errs[i]
		})
	}
	g.Wait()
	return utils.MergeErrors(errs, "remote run")
}

func runOn(ctx context.Context, t ssh.Target, p proc.Proc, sinks []iostream.Sink) error {
	t0 := time.Now()
	c, err := ssh.Dial(t)
	if err != nil {
		log.Errorf("%s: %v", p.Name, err)
		return err
	}
	defer c.Close()
	if err := c.Run(ctx, p.Script(), sinks...); err != nil {
		log.Errorf("%s on %s: %v after %s", p.Name, c, err, time.Since(t0))
		return err
	}
	log.Debugf("%s on %s done in %s", p.Name, c, time.Since(t0))
	return nil
}
