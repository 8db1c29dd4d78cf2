package base

import (
	"unsafe"

	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

type Vector struct {
	Data  []byte
	Count int
	Type  DataType
}

func NewVector(count int, dtype DataType) *Vector {
	return &Vector{
		Data:  make([]byte, count*dtype.Size()),
		Count: count,
		Type:  dtype,
	}
}

// Slice returns a new Vector that points to a subset of the original Vector.
// 0 <= begin <= end <= count
func (b *Vector) Slice(begin, end int) *Vector {
	return &Vector{
		Data:  b.Data[begin*b.Type.Size() : end*b.Type.Size()],
		Count: end - begin,
		Type:  b.Type,
	}
}

func (b *Vector) CopyFrom(c *Vector) error {
	if b.Count != c.Count {
		return errors.Errorf("inconsistent count: %d vs %d", b.Count, c.Count)
	}
	if b.Type != c.Type {
		return errors.Errorf("inconsistent type: %s vs %s", ShortName(b.Type), ShortName(c.Type))
	}
	copy(b.Data, c.Data)
	return nil
}

func (b *Vector) IsEmpty() bool {
	return len(b.Data) == 0
}

func asSlice[T any](b *Vector, t DataType) []T {
	if b.Type != t {
		panic(errors.Errorf("vector of %s used as %s", ShortName(b.Type), ShortName(t)))
	}
	if b.Count == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b.Data[0])), b.Count)
}

func (b *Vector) AsU8() []uint8               { return asSlice[uint8](b, U8) }
func (b *Vector) AsU16() []uint16             { return asSlice[uint16](b, U16) }
func (b *Vector) AsU32() []uint32             { return asSlice[uint32](b, U32) }
func (b *Vector) AsU64() []uint64             { return asSlice[uint64](b, U64) }
func (b *Vector) AsI8() []int8                { return asSlice[int8](b, I8) }
func (b *Vector) AsI16() []int16              { return asSlice[int16](b, I16) }
func (b *Vector) AsI32() []int32              { return asSlice[int32](b, I32) }
func (b *Vector) AsI64() []int64              { return asSlice[int64](b, I64) }
func (b *Vector) AsF16() []float16.Float16    { return asSlice[float16.Float16](b, F16) }
func (b *Vector) AsBF16() []bfloat16.BFloat16 { return asSlice[bfloat16.BFloat16](b, BF16) }
func (b *Vector) AsF32() []float32            { return asSlice[float32](b, F32) }
func (b *Vector) AsF64() []float64            { return asSlice[float64](b, F64) }
