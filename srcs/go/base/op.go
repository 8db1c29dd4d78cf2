package base

import (
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"
	"gonum.org/v1/gonum/floats"
)

type OP int32

const (
	SUM OP = iota
	MIN
	MAX
	PROD
)

var opNames = map[OP]string{
	SUM:  "SUM",
	MIN:  "MIN",
	MAX:  "MAX",
	PROD: "PROD",
}

func (op OP) String() string {
	return opNames[op]
}

// Transform performs y[i] = y[i] op x[i] for vectors y and x
func Transform(y, x *Vector, op OP) {
	// Assuming Count and Type are consistent
	Transform2(y, x, y, op)
}

// Transform2 performs z[i] = x[i] op y[i] for vectors z and x, y.
func Transform2(z, x, y *Vector, op OP) {
	// Assuming Count and Type are consistent
	switch z.Type {
	case U8:
		transform(z.AsU8(), x.AsU8(), y.AsU8(), op)
	case U16:
		transform(z.AsU16(), x.AsU16(), y.AsU16(), op)
	case U32:
		transform(z.AsU32(), x.AsU32(), y.AsU32(), op)
	case U64:
		transform(z.AsU64(), x.AsU64(), y.AsU64(), op)
	case I8:
		transform(z.AsI8(), x.AsI8(), y.AsI8(), op)
	case I16:
		transform(z.AsI16(), x.AsI16(), y.AsI16(), op)
	case I32:
		transform(z.AsI32(), x.AsI32(), y.AsI32(), op)
	case I64:
		transform(z.AsI64(), x.AsI64(), y.AsI64(), op)
	case F16:
		transformVia(z.AsF16(), x.AsF16(), y.AsF16(), op, float16.Float16.Float32, float16.Fromfloat32)
	case BF16:
		transformVia(z.AsBF16(), x.AsBF16(), y.AsBF16(), op, bfloat16.BFloat16.Float32, bfloat16.FromFloat32)
	case F32:
		transform(z.AsF32(), x.AsF32(), y.AsF32(), op)
	case F64:
		transformF64(z.AsF64(), x.AsF64(), y.AsF64(), op)
	default:
		panic("unsupported data type: " + z.Type.String())
	}
}

type number interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~int8 | ~int16 | ~int32 | ~int64 |
		~float32 | ~float64
}

func transform[T number](z, x, y []T, op OP) {
	switch op {
	case SUM:
		for i := range z {
			z[i] = x[i] + y[i]
		}
	case MIN:
		for i := range z {
			z[i] = min(x[i], y[i])
		}
	case MAX:
		for i := range z {
			z[i] = max(x[i], y[i])
		}
	case PROD:
		for i := range z {
			z[i] = x[i] * y[i]
		}
	}
}

// transformVia reduces half precision values in float32.
func transformVia[T any](z, x, y []T, op OP, up func(T) float32, down func(float32) T) {
	var f func(a, b float32) float32
	switch op {
	case SUM:
		f = func(a, b float32) float32 { return a + b }
	case MIN:
		f = func(a, b float32) float32 { return min(a, b) }
	case MAX:
		f = func(a, b float32) float32 { return max(a, b) }
	case PROD:
		f = func(a, b float32) float32 { return a * b }
	}
	for i := range z {
		z[i] = down(f(up(x[i]), up(y[i])))
	}
}

func transformF64(z, x, y []float64, op OP) {
	switch op {
	case SUM:
		floats.AddTo(z, x, y)
	case PROD:
		floats.MulTo(z, x, y)
	default:
		transform(z, x, y, op)
	}
}
