package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/janpfeifer/must"
	"github.com/lsds/shardcomm/srcs/go/backend/tcp"
	"github.com/lsds/shardcomm/srcs/go/env"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/parallel"
	"github.com/lsds/shardcomm/srcs/go/utils"
	"github.com/lsds/shardcomm/srcs/go/utils/assert"
	"github.com/lsds/shardcomm/srcs/go/verify"
)

var (
	runLocal  = flag.Bool("local", false, "run all workers in this process over the local backend")
	workers   = flag.Int("np", verify.DefaultConfig.Workers, "number of workers, with -local")
	batchSize = flag.Int("batch-size", verify.DefaultConfig.BatchSize, "")
	seed      = flag.Int64("seed", verify.DefaultConfig.Seed, "random seed, with -local; launched workers read SHARDCOMM_SEED")

	stallPeriod = flag.Duration("stall-period", 10*time.Second, "report to stderr when verification takes longer")
)

func main() {
	log.InitFlags(nil)
	flag.Parse()
	if *runLocal {
		cfg := verify.DefaultConfig
		cfg.Workers = *workers
		cfg.BatchSize = *batchSize
		cfg.Seed = *seed
		ws, err := verify.RunLocal(cfg)
		assert.OK(err)
		for i, w := range ws {
			assert.True(w.State() == verify.Verified)
			log.Infof("worker %d: %s", i, w.State())
		}
		return
	}
	ec := must.M1(env.ParseConfigFromEnv())
	assert.True(!ec.Single)
	b := must.M1(tcp.NewFromEnv())
	cfg := verify.Config{
		Workers:   len(ec.InitPeers),
		Seed:      ec.Seed,
		BatchSize: *batchSize,
		Parallel:  ec.Parallel,
	}
	w := verify.NewWorker(cfg)
	sd := utils.InstallStallDetector(fmt.Sprintf("rank %d verify", ec.Rank()), *stallPeriod)
	err := w.Run(ec.Rank(), ec.LocalRank(), b)
	sd.Stop()
	if err != nil {
		log.Errorf("rank %d: %s: %v", ec.Rank(), w.State(), err)
		assert.OK(err)
	}
	log.Infof("rank %d of %d (data group size %d): %s", ec.Rank(), cfg.Workers, mustDataSize(cfg), w.State())
}

func mustDataSize(cfg verify.Config) int {
	l := must.M1(parallel.NewLayout(cfg.Workers, cfg.Parallel))
	return l.DataSize()
}
