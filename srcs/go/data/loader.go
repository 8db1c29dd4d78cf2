package data

import (
	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/tensor"
)

type Batch struct {
	Images *tensor.Tensor
	Labels []int
}

type Config struct {
	BatchSize int
	Shuffle   bool
	DropLast  bool
	Seed      int64
}

var DefaultConfig = Config{
	BatchSize: 8,
	Seed:      1024,
}

// DataLoader draws batches from Dataset in the order of Sampler.
type DataLoader struct {
	Dataset   Dataset
	Sampler   *DataParallelSampler
	BatchSize int
	DropLast  bool
}

// NewDataLoader returns a loader of the share of ds that belongs to rank
// among replicas.
func NewDataLoader(ds Dataset, rank, replicas int, cfg Config) (*DataLoader, error) {
	s, err := NewDataParallelSampler(ds.Len(), rank, replicas, cfg.Shuffle, cfg.Seed)
	if err != nil {
		return nil, err
	}
	s.DropLast = cfg.DropLast
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig.BatchSize
	}
	log.Debugf("rank %d of %d: %d samples in batches of %d", rank, replicas, s.NumSamples(), cfg.BatchSize)
	return &DataLoader{
		Dataset:   ds,
		Sampler:   s,
		BatchSize: cfg.BatchSize,
		DropLast:  cfg.DropLast,
	}, nil
}

type Iterator struct {
	l       *DataLoader
	indices []int
	pos     int
}

func (l *DataLoader) Iter() *Iterator {
	return &Iterator{l: l, indices: l.Sampler.Indices()}
}

// Next returns the next batch, or nil at the end of the epoch.
func (it *Iterator) Next() (*Batch, error) {
	n := len(it.indices) - it.pos
	if n > it.l.BatchSize {
		n = it.l.BatchSize
	}
	if n <= 0 || (it.l.DropLast && n < it.l.BatchSize) {
		return nil, nil
	}
	var images []*tensor.Tensor
	var labels []int
	for _, i := range it.indices[it.pos : it.pos+n] {
		s, err := it.l.Dataset.Get(i)
		if err != nil {
			return nil, err
		}
		images = append(images, s.Image)
		labels = append(labels, s.Label)
	}
	it.pos += n
	return &Batch{Images: tensor.Stack(images...), Labels: labels}, nil
}
