package device

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// https://devblogs.nvidia.com/cuda-pro-tip-control-gpu-visibility-cuda_visible_devices/
const CudaVisibleDevicesKey = `CUDA_VISIBLE_DEVICES`

var lookupEnv = os.LookupEnv

var errInvalidCudaVisibleDevices = errors.New("invalid " + CudaVisibleDevicesKey)

// ParseCudaVisibleDevices parses a comma separated list of distinct device
// ids. Negative ids hide all devices after them.
func ParseCudaVisibleDevices(val string) ([]int, error) {
	if len(val) == 0 {
		return nil, nil
	}
	set := make(map[int]struct{})
	var ids []int
	for _, p := range strings.Split(val, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(errInvalidCudaVisibleDevices, "%q", val)
		}
		if n < 0 {
			break
		}
		if _, ok := set[n]; ok {
			return nil, errors.Wrapf(errInvalidCudaVisibleDevices, "duplicated %d", n)
		}
		set[n] = struct{}{}
		ids = append(ids, n)
	}
	return ids, nil
}

// cudaIndex returns the device id for localRank, or -1 if none is visible.
func cudaIndex(localRank int) (int, error) {
	val, ok := lookupEnv(CudaVisibleDevicesKey)
	if !ok {
		return localRank, nil
	}
	ids, err := ParseCudaVisibleDevices(val)
	if err != nil {
		return -1, err
	}
	if len(ids) <= localRank {
		return -1, nil
	}
	return ids[localRank], nil
}
