package data

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/lsds/shardcomm/srcs/go/base"
	"github.com/lsds/shardcomm/srcs/go/tensor"
	"github.com/pkg/errors"
)

type Transform interface {
	Apply(*tensor.Tensor) (*tensor.Tensor, error)
}

type TransformFunc func(*tensor.Tensor) (*tensor.Tensor, error)

func (f TransformFunc) Apply(t *tensor.Tensor) (*tensor.Tensor, error) { return f(t) }

// Compose applies ts in order.
func Compose(ts ...Transform) Transform {
	return TransformFunc(func(x *tensor.Tensor) (*tensor.Tensor, error) {
		for _, t := range ts {
			var err error
			if x, err = t.Apply(x); err != nil {
				return nil, err
			}
		}
		return x, nil
	})
}

// ToTensor scales a u8 image to f32 values in [0, 1].
var ToTensor = TransformFunc(func(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.DType() != base.U8 {
		return nil, errors.Errorf("ToTensor expects u8, got %s", base.ShortName(x.DType()))
	}
	y := tensor.New(dtypes.Float32, x.Shape().Dimensions...)
	ys := tensor.Flat[float32](y)
	for i, v := range tensor.Flat[uint8](x) {
		ys[i] = float32(v) / 255
	}
	return y, nil
})

// Normalize maps each channel c of a f32[C, ...] image to (x - Mean[c]) / Std[c].
type Normalize struct {
	Mean []float32
	Std  []float32
}

func (n Normalize) Apply(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.DType() != base.F32 {
		return nil, errors.Errorf("Normalize expects f32, got %s", base.ShortName(x.DType()))
	}
	if x.Shape().Rank() == 0 || x.Dim(0) != len(n.Mean) || len(n.Mean) != len(n.Std) {
		return nil, errors.Errorf("Normalize of %d channels applied to %s", len(n.Mean), x.Shape())
	}
	y := x.Clone()
	ys := tensor.Flat[float32](y)
	per := len(ys) / len(n.Mean)
	for c := range n.Mean {
		for i := c * per; i < (c+1)*per; i++ {
			ys[i] = (ys[i] - n.Mean[c]) / n.Std[c]
		}
	}
	return y, nil
}
