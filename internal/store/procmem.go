package store

import "github.com/shirou/gopsutil/v4/mem"

// SystemMemoryBytes reports the host's total physical memory, shown beside
// UsedMemory's per-entry estimate as INFO's total_system_memory field,
// grounded on the teacher's
// own info.go use of gopsutil's mem.VirtualMemory for the same report.
func SystemMemoryBytes() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Total, nil
}
