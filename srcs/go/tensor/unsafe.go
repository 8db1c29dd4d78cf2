package tensor

import "unsafe"

func unsafeSlice[T any](bs []byte, n int) []T {
	return unsafe.Slice((*T)(unsafe.Pointer(&bs[0])), n)
}
