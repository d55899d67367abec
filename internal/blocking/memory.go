package blocking

import (
	"context"

	"github.com/shirou/gopsutil/v4/mem"
)

// DefaultMemoryLimitMB is used when the host cannot be probed
const DefaultMemoryLimitMB = 512

// MemoryLimitFromHost returns a quarter of the host's available memory in MB,
// or DefaultMemoryLimitMB when the probe fails.
func MemoryLimitFromHost(ctx context.Context) int {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil || vm == nil || vm.Available == 0 {
		return DefaultMemoryLimitMB
	}
	limit := int(vm.Available / 4 / (1024 * 1024))
	if limit <= 0 {
		return DefaultMemoryLimitMB
	}
	return limit
}
