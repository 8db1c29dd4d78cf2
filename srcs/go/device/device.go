// Package device resolves where the buffers of the current process live.
package device

import (
	"fmt"

	"github.com/lsds/shardcomm/srcs/go/log"
	"github.com/lsds/shardcomm/srcs/go/tensor"
)

type Kind string

const (
	CPU  Kind = `cpu`
	CUDA Kind = `cuda`
)

// Device is a placement for tensors. Buffers are held in host memory; the
// placement is carried so that peers agree on device assignment.
type Device struct {
	Kind  Kind
	Index int
}

func (d Device) String() string {
	if d.Kind == CPU {
		return string(CPU)
	}
	return fmt.Sprintf("%s:%d", d.Kind, d.Index)
}

// Alloc returns a new zero tensor of shape s on d.
func (d Device) Alloc(s tensor.Shape) *tensor.Tensor {
	return tensor.FromShape(s)
}

// Resolver picks the device of a process from its local rank.
type Resolver struct {
	LocalRank int
	// ForceCPU disables accelerator lookup.
	ForceCPU bool
}

// Current returns cuda:<id> where id is the local-rank-th entry of
// CUDA_VISIBLE_DEVICES (or the local rank itself when the variable is
// unset), and cpu when no device is visible.
func (r Resolver) Current() Device {
	if r.ForceCPU {
		return Device{Kind: CPU}
	}
	idx, err := cudaIndex(r.LocalRank)
	if err != nil {
		log.Warnf("%v, falling back to %s", err, CPU)
		return Device{Kind: CPU}
	}
	if idx < 0 {
		log.Debugf("no device visible for local rank %d", r.LocalRank)
		return Device{Kind: CPU}
	}
	return Device{Kind: CUDA, Index: idx}
}
