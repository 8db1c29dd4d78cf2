// Package verify checks that a data parallel sampler gives every rank a
// different first sample.
package verify

import (
	"fmt"

	"github.com/lsds/shardcomm/srcs/go/comm"
	"github.com/lsds/shardcomm/srcs/go/data"
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/parallel"
	"github.com/lsds/shardcomm/srcs/go/registry"
	"github.com/lsds/shardcomm/srcs/go/tensor"
	"github.com/pkg/errors"
)

type State int

const (
	Uninitialized State = iota
	GroupJoined
	ShardLoaded
	Verified
	Failed
)

var stateNames = map[State]string{
	Uninitialized: "uninitialized",
	GroupJoined:   "group-joined",
	ShardLoaded:   "shard-loaded",
	Verified:      "verified",
	Failed:        "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Config struct {
	Workers   int
	Seed      int64
	BatchSize int
	Parallel  parallel.Config
}

var DefaultConfig = Config{
	Workers:   4,
	Seed:      1024,
	BatchSize: 8,
	Parallel:  parallel.DefaultConfig,
}

var (
	ErrSameSample   = errors.New("same sample was distributed across ranks")
	errInvalidState = errors.New("invalid state")
)

// Worker walks Uninitialized -> GroupJoined -> ShardLoaded -> Verified, or
// ends in Failed.
type Worker struct {
	cfg    Config
	state  State
	reg    *registry.Context
	sample *tensor.Tensor
}

func NewWorker(cfg Config) *Worker {
	return &Worker{cfg: cfg}
}

func (w *Worker) State() State { return w.state }

// Sample is the first sample of the first batch of this rank.
func (w *Worker) Sample() *tensor.Tensor { return w.sample }

func (w *Worker) expect(s State) error {
	if w.state != s {
		return errors.Wrapf(errInvalidState, "%s, expect %s", w.state, s)
	}
	return nil
}

func (w *Worker) fail(err error) error {
	w.state = Failed
	return err
}

// Join launches the registry of rank over b.
func (w *Worker) Join(rank, localRank int, b comm.Backend) error {
	if err := w.expect(Uninitialized); err != nil {
		return err
	}
	reg, err := registry.Launch(registry.LaunchConfig{
		Rank:      rank,
		WorldSize: w.cfg.Workers,
		LocalRank: localRank,
		Parallel:  w.cfg.Parallel,
		ForceCPU:  true,
	}, b)
	if err != nil {
		return w.fail(err)
	}
	w.reg = reg
	w.state = GroupJoined
	return nil
}

func NewDataset(seed int64) data.Dataset {
	tf := data.Compose(data.ToTensor, data.Normalize{
		Mean: []float32{0.5, 0.5, 0.5},
		Std:  []float32{0.5, 0.5, 0.5},
	})
	return data.CIFAR10Like(uint32(seed), tf)
}

// LoadShard draws one batch from the share of the data group and keeps its
// first sample.
func (w *Worker) LoadShard() error {
	if err := w.expect(GroupJoined); err != nil {
		return err
	}
	loader, err := data.NewDataLoader(NewDataset(w.cfg.Seed), w.reg.LocalRank(parallel.Data), w.reg.WorldSize(parallel.Data), data.Config{
		BatchSize: w.cfg.BatchSize,
		Seed:      w.cfg.Seed,
	})
	if err != nil {
		return w.fail(err)
	}
	batch, err := loader.Iter().Next()
	if err != nil {
		return w.fail(err)
	}
	if batch == nil {
		return w.fail(errors.New("empty shard"))
	}
	w.sample = batch.Images.Row(0)
	w.state = ShardLoaded
	return nil
}

// Verify broadcasts the sample of local rank 0 of the data group and fails
// with ErrSameSample on any other rank holding an equal sample.
func (w *Worker) Verify() error {
	if err := w.expect(ShardLoaded); err != nil {
		return err
	}
	toCompare := w.sample.Clone()
	if err := comm.Broadcast(w.reg, toCompare, 0, parallel.Data); err != nil {
		return w.fail(err)
	}
	if rank := w.reg.LocalRank(parallel.Data); rank != 0 && tensor.Equal(w.sample, toCompare) {
		return w.fail(errors.Wrapf(ErrSameSample, "rank %d", w.reg.Rank()))
	}
	w.state = Verified
	log.Infof("rank %d: sample differs from rank 0 of data group %v", w.reg.Rank(), w.reg.Layout().GroupOf(parallel.Data, w.reg.Rank()))
	return nil
}

// Run goes through every state and closes the registry.
func (w *Worker) Run(rank, localRank int, b comm.Backend) error {
	if err := w.Join(rank, localRank, b); err != nil {
		return err
	}
	defer w.reg.Close()
	if err := w.LoadShard(); err != nil {
		return err
	}
	return w.Verify()
}
