package job

import (
	"os"
	"sync"

	"github.com/lsds/shardcomm/srcs/go/device"
	"github.com/lsds/shardcomm/srcs/go/log"
)

const noDevice = -1

// DevicePool hands out the device ids of one host, one per peer.
type DevicePool struct {
	mu   sync.Mutex
	ids  []int
	used map[int]bool
}

func NewDevicePool(ids []int) *DevicePool {
	return &DevicePool{ids: ids, used: make(map[int]bool)}
}

// HostDevicePool returns a pool of n devices, taken from the
// CUDA_VISIBLE_DEVICES of the launcher when it is set.
func HostDevicePool(n int) *DevicePool {
	val, ok := os.LookupEnv(device.CudaVisibleDevicesKey)
	if !ok {
		ids := make([]int, n)
		for i := range ids {
			ids[i] = i
		}
		return NewDevicePool(ids)
	}
	ids, err := device.ParseCudaVisibleDevices(val)
	if err != nil {
		log.Warnf("%v", err)
		return NewDevicePool(nil)
	}
	if len(ids) < n {
		log.Warnf("%s=%s is not enough for %d devices", device.CudaVisibleDevicesKey, val, n)
	} else {
		ids = ids[:n]
	}
	return NewDevicePool(ids)
}

// Acquire returns the first free device id, or noDevice.
func (p *DevicePool) Acquire() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.ids {
		if !p.used[id] {
			p.used[id] = true
			return id
		}
	}
	return noDevice
}

func (p *DevicePool) Release(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.used, id)
}
