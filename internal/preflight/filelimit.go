package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the minimum required file descriptor limit. Every
// open tenant partition holds bleve segments, a sqlite handle, and the
// vector snapshot, so low limits bite quickly with many tenants.
const MinFileDescriptors = 1024

// CheckFileDescriptors checks if the file descriptor limit is sufficient.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{
		Name:     "file_descriptors",
		Required: true,
	}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	current := rLimit.Cur
	result.Message = fmt.Sprintf("%d (minimum: %d)", current, MinFileDescriptors)

	if current < MinFileDescriptors {
		result.Status = StatusFail
		result.Details = "Run 'ulimit -n 4096' to raise the limit; each open tenant partition holds several files"
		return result
	}

	result.Status = StatusPass
	return result
}
