package base

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// DataType is the element type of a Vector.
type DataType = dtypes.DType

const (
	U8  = dtypes.Uint8
	U16 = dtypes.Uint16
	U32 = dtypes.Uint32
	U64 = dtypes.Uint64

	I8  = dtypes.Int8
	I16 = dtypes.Int16
	I32 = dtypes.Int32
	I64 = dtypes.Int64

	F16  = dtypes.Float16
	BF16 = dtypes.BFloat16
	F32  = dtypes.Float32
	F64  = dtypes.Float64
)

var dtypeNames = map[DataType]string{
	U8:  "u8",
	U16: "u16",
	U32: "u32",
	U64: "u64",

	I8:  "i8",
	I16: "i16",
	I32: "i32",
	I64: "i64",

	F16:  "f16",
	BF16: "bf16",
	F32:  "f32",
	F64:  "f64",
}

// IsSupported reports whether vectors of t can be reduced.
func IsSupported(t DataType) bool {
	_, ok := dtypeNames[t]
	return ok
}

// ShortName is the compact name used in logs and on the command line.
func ShortName(t DataType) string {
	if name, ok := dtypeNames[t]; ok {
		return name
	}
	return t.String()
}

var errInvalidDataType = errors.New("invalid data type")

func ParseDataType(name string) (DataType, error) {
	for t, n := range dtypeNames {
		if n == name {
			return t, nil
		}
	}
	return dtypes.InvalidDType, errors.Wrap(errInvalidDataType, name)
}
