package tensor

import (
	"bytes"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/lsds/shardcomm/srcs/go/base"
)

// Tensor is a dense row-major tensor that owns its data.
type Tensor struct {
	shape Shape
	data  *base.Vector
}

// New allocates a zero tensor.
func New(dtype dtypes.DType, dimensions ...int) *Tensor {
	return FromShape(MakeShape(dtype, dimensions...))
}

func FromShape(s Shape) *Tensor {
	if !base.IsSupported(s.DType) {
		exceptions.Panicf("unsupported dtype %s", s.DType)
	}
	return &Tensor{
		shape: MakeShape(s.DType, s.Dimensions...),
		data:  base.NewVector(s.Size(), s.DType),
	}
}

// FromFlat creates a tensor holding a copy of flat.
func FromFlat[T dtypes.Supported](flat []T, dimensions ...int) *Tensor {
	t := New(dtypes.FromGenericsType[T](), dimensions...)
	if t.shape.Size() != len(flat) {
		exceptions.Panicf("%d values for shape %s", len(flat), t.shape)
	}
	copy(Flat[T](t), flat)
	return t
}

// Flat returns the data of t as a slice of T, shared with t.
func Flat[T dtypes.Supported](t *Tensor) []T {
	if want := dtypes.FromGenericsType[T](); want != t.shape.DType {
		exceptions.Panicf("Flat[%s] is incompatible with tensor of %s", want, t.shape.DType)
	}
	if t.shape.Size() == 0 {
		return nil
	}
	return unsafeSlice[T](t.data.Data, t.shape.Size())
}

func (t *Tensor) Shape() Shape { return t.shape }

func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

func (t *Tensor) Dim(axis int) int { return t.shape.Dimensions[t.shape.Axis(axis)] }

// Vector exposes the raw data for transports and reduction kernels.
func (t *Tensor) Vector() *base.Vector { return t.data }

func (t *Tensor) Bytes() []byte { return t.data.Data }

func (t *Tensor) Clone() *Tensor {
	c := FromShape(t.shape)
	copy(c.data.Data, t.data.Data)
	return c
}

// CopyFrom overwrites t with the data of u, which must have the same shape.
func (t *Tensor) CopyFrom(u *Tensor) {
	if !t.shape.Equal(u.shape) {
		exceptions.Panicf("copy %s into %s", u.shape, t.shape)
	}
	copy(t.data.Data, u.data.Data)
}

// Equal compares dtype, dimensions and data bit by bit.
func Equal(a, b *Tensor) bool {
	return a.shape.Equal(b.shape) && bytes.Equal(a.data.Data, b.data.Data)
}

// Row returns a copy of the i-th slice along axis 0.
func (t *Tensor) Row(i int) *Tensor {
	if t.shape.Rank() == 0 || i < 0 || i >= t.shape.Dimensions[0] {
		exceptions.Panicf("row %d out of range for shape %s", i, t.shape)
	}
	s := MakeShape(t.shape.DType, t.shape.Dimensions[1:]...)
	n := s.Memory()
	r := FromShape(s)
	copy(r.data.Data, t.data.Data[i*n:(i+1)*n])
	return r
}

// Reduce applies y = y op x element-wise.
func (t *Tensor) Reduce(x *Tensor, op base.OP) {
	if !t.shape.Equal(x.shape) {
		exceptions.Panicf("reduce %s into %s", x.shape, t.shape)
	}
	base.Transform(t.data, x.data, op)
}

func (t *Tensor) String() string {
	return t.shape.String()
}
