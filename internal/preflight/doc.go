// Package preflight validates the environment before riptide serves or
// indexes.
//
// The doctor command runs the full set:
//   - Configuration validity (.riptide.yaml layers and RIPTIDE_* overrides)
//   - Data directory writability
//   - Disk space on the data directory's filesystem (minimum 100MB)
//   - Available memory (minimum 1GB)
//   - File descriptor limits (minimum 1024)
//   - Embedder reachability (static always passes; ollama needs a live server)
//   - Partition lock status (tenants held by another process)
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, root)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
