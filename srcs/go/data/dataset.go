// Package data provides the minimal dataset, transform, sampler and loader
// needed to feed sharded workers.
package data

import (
	"encoding/binary"

	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/tensor"
	"github.com/pkg/errors"
	"github.com/spaolacci/murmur3"
)

type Sample struct {
	Image *tensor.Tensor
	Label int
}

type Dataset interface {
	Len() int
	Get(i int) (*Sample, error)
}

var errIndexOutOfRange = errors.New("index out of range")

// SyntheticImages is a deterministic image classification dataset. Pixel
// values and labels are hashes of the seed and the sample index, so every
// process builds the same dataset.
type SyntheticImages struct {
	N        int
	Channels int
	Height   int
	Width    int
	Classes  int
	Seed     uint32

	Transform Transform
}

// CIFAR10Like returns a dataset with the shape of the CIFAR-10 training set.
func CIFAR10Like(seed uint32, t Transform) *SyntheticImages {
	return &SyntheticImages{
		N:         50000,
		Channels:  3,
		Height:    32,
		Width:     32,
		Classes:   10,
		Seed:      seed,
		Transform: t,
	}
}

func (d *SyntheticImages) Len() int { return d.N }

// Get returns the i-th image as u8[Channels, Height, Width] passed through
// d.Transform.
func (d *SyntheticImages) Get(i int) (*Sample, error) {
	if i < 0 || i >= d.N {
		return nil, errors.Wrapf(errIndexOutOfRange, "%d of %d", i, d.N)
	}
	img := tensor.New(base.U8, d.Channels, d.Height, d.Width)
	pixels := tensor.Flat[uint8](img)
	var key [12]byte
	binary.LittleEndian.PutUint32(key[0:], d.Seed)
	binary.LittleEndian.PutUint32(key[4:], uint32(i))
	for j := 0; j < len(pixels); j += 4 {
		binary.LittleEndian.PutUint32(key[8:], uint32(j))
		h := murmur3.Sum32(key[:])
		for k := 0; k < 4 && j+k < len(pixels); k++ {
			pixels[j+k] = uint8(h >> (8 * k))
		}
	}
	label := int(murmur3.Sum32(key[:8]) % uint32(d.Classes))
	if d.Transform != nil {
		var err error
		if img, err = d.Transform.Apply(img); err != nil {
			return nil, err
		}
	}
	return &Sample{Image: img, Label: label}, nil
}
