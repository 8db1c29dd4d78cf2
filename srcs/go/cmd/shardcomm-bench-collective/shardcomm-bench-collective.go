package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/janpfeifer/must"
	"github.com/lsds/shardcomm/srcs/go/backend/local"
	"github.com/lsds/shardcomm/srcs/go/backend/tcp"
	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/comm"
	"github.com/lsds/shardcomm/srcs/go/env"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/parallel"
	"github.com/lsds/shardcomm/srcs/go/profile"
	"github.com/lsds/shardcomm/srcs/go/registry"
	"github.com/lsds/shardcomm/srcs/go/tensor"
	"github.com/lsds/shardcomm/srcs/go/utils"
	"github.com/lsds/shardcomm/srcs/go/utils/assert"
	"golang.org/x/sync/errgroup"
)

var (
	size    = flag.String("size", "4MiB", "bytes of the tensor per rank")
	dtype   = flag.String("dtype", base.ShortName(base.F32), "element type of the tensor")
	steps   = flag.Int("steps", 10, "")
	warmup  = flag.Int("warmup", 2, "")
	np      = flag.Int("np", 4, "number of ranks when not launched by shardcomm-run")
	modeArg = flag.String("mode", parallel.Global.String(), fmt.Sprintf("one of %v", parallel.ModeNames()))
)

func main() {
	log.InitFlags(nil)
	flag.Parse()
	n := must.M1(utils.ParseBytes(*size))
	mode := must.M1(parallel.ParseMode(*modeArg))
	dt := must.M1(base.ParseDataType(*dtype))
	ec := must.M1(env.ParseConfigFromEnv())
	if ec.Single {
		bs := local.NewCluster(*np)
		var g errgroup.Group
		for i := range bs {
			i := i
			g.Go(func() error {
				return bench(registry.LaunchConfig{Rank: i, WorldSize: *np, LocalRank: i, ForceCPU: true}, bs[i], dt, int(n), mode)
			})
		}
		assert.OK(g.Wait())
		return
	}
	b := must.M1(tcp.NewFromEnv())
	assert.OK(bench(registry.LaunchConfig{
		Rank:      ec.Rank(),
		WorldSize: len(ec.InitPeers),
		LocalRank: ec.LocalRank(),
		Parallel:  ec.Parallel,
	}, b, dt, int(n), mode))
}

func bench(cfg registry.LaunchConfig, b comm.Backend, dt base.DataType, n int, mode parallel.Mode) error {
	reg, err := registry.Launch(cfg, b)
	if err != nil {
		return err
	}
	defer reg.Close()
	depth := reg.WorldSize(mode)
	count := n / dt.Size() / depth * depth
	if count == 0 {
		count = depth
	}
	x := tensor.New(dt, count)
	benches := []struct {
		name string
		run  func() error
	}{
		{"all-reduce", func() error { _, err := comm.AllReduce(reg, x, mode); return err }},
		{"all-gather", func() error { _, err := comm.AllGather(reg, x.Chunk(depth, 0)[0], 0, mode); return err }},
		{"reduce-scatter", func() error { _, err := comm.ReduceScatter(reg, x, 0, mode); return err }},
	}
	prof := profile.New()
	bytes := int64(x.Shape().Memory())
	for _, bm := range benches {
		for i := 0; i < *warmup; i++ {
			if err := bm.run(); err != nil {
				return err
			}
		}
		for i := 0; i < *steps; i++ {
			scope := prof.Profile(fmt.Sprintf("%s/%s", bm.name, mode), bytes)
			if err := bm.run(); err != nil {
				return err
			}
			scope.Done()
		}
	}
	if cfg.Rank == 0 {
		log.Infof("%s per rank over %s group of %d, %d steps", utils.ShowSize(bytes), mode, depth, *steps)
		prof.WriteSummary(os.Stdout)
	}
	return nil
}
