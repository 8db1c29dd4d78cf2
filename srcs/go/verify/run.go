package verify

import (
	"github.com/lsds/shardcomm/srcs/go/backend/local"
	"github.com/lsds/shardcomm/srcs/go/utils"
	"golang.org/x/sync/errgroup"
)

// RunLocal runs cfg.Workers workers as goroutines over the local backend.
func RunLocal(cfg Config) ([]*Worker, error) {
	bs := local.NewCluster(cfg.Workers)
	ws := make([]*Worker, cfg.Workers)
	errs := make([]error, cfg.Workers)
	var g errgroup.Group
	for i := range ws {
		i := i
		ws[i] = NewWorker(cfg)
		g.Go(func() error {
			errs[i] = ws[i].Run(i, i, bs[i])
			return nil
		})
	}
	g.Wait()
	return ws, utils.MergeErrors(errs, "verify")
}
