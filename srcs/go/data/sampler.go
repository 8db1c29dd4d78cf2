package data

import (
	"math/rand"

	"github.com/pkg/errors"
)

// DataParallelSampler gives each of Replicas ranks a disjoint share of the
// indices of a dataset. The index list is padded by wrapping around until
// its length is a multiple of Replicas (or truncated when DropLast), and
// rank r takes every Replicas-th index starting at r.
type DataParallelSampler struct {
	Len      int
	Rank     int
	Replicas int
	Shuffle  bool
	Seed     int64
	DropLast bool

	epoch int64
}

func NewDataParallelSampler(n, rank, replicas int, shuffle bool, seed int64) (*DataParallelSampler, error) {
	if replicas <= 0 || rank < 0 || rank >= replicas {
		return nil, errors.Errorf("invalid rank %d of %d replicas", rank, replicas)
	}
	return &DataParallelSampler{
		Len:      n,
		Rank:     rank,
		Replicas: replicas,
		Shuffle:  shuffle,
		Seed:     seed,
	}, nil
}

// SetEpoch changes the shuffle order of the following calls to Indices.
func (s *DataParallelSampler) SetEpoch(epoch int64) {
	s.epoch = epoch
}

// NumSamples is the number of indices given to each rank.
func (s *DataParallelSampler) NumSamples() int {
	if s.DropLast && s.Len%s.Replicas != 0 {
		return s.Len / s.Replicas
	}
	return (s.Len + s.Replicas - 1) / s.Replicas
}

func (s *DataParallelSampler) Indices() []int {
	var indices []int
	if s.Shuffle {
		indices = rand.New(rand.NewSource(s.Seed + s.epoch)).Perm(s.Len)
	} else {
		indices = make([]int, s.Len)
		for i := range indices {
			indices[i] = i
		}
	}
	total := s.NumSamples() * s.Replicas
	if total <= len(indices) {
		indices = indices[:total]
	} else if len(indices) > 0 {
		for i := 0; len(indices) < total; i++ {
			indices = append(indices, indices[i])
		}
	}
	var mine []int
	for i := s.Rank; i < len(indices); i += s.Replicas {
		mine = append(mine, indices[i])
	}
	return mine
}
