package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/riptide-search/riptide/internal/config"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker runs environment validation for the doctor command and the
// first-run gate in serve.
type Checker struct {
	offline bool
	verbose bool
	output  io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithOffline skips checks that need the network (the ollama probe).
func WithOffline(offline bool) Option {
	return func(c *Checker) {
		c.offline = offline
	}
}

// WithVerbose enables detail lines in printed output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check against the project rooted at root and returns
// the results in display order. A config that fails to load leaves the
// remaining checks running against the defaults rather than aborting.
func (c *Checker) RunAll(ctx context.Context, root string) []CheckResult {
	cfg, cfgResult := c.loadConfig(root)
	dataDir := cfg.ResolveDataDir(root)

	results := []CheckResult{cfgResult}
	results = append(results, c.CheckDataDir(dataDir))
	results = append(results, c.CheckDiskSpace(dataDir))
	results = append(results, c.CheckMemory())
	results = append(results, c.CheckFileDescriptors())
	results = append(results, c.CheckEmbedder(ctx, cfg))
	results = append(results, c.CheckPartitionLocks(dataDir))
	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "Riptide System Check")
	_, _ = fmt.Fprintln(c.output, "====================")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "       %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	var warnings, failures []string
	for _, r := range results {
		if r.IsCritical() {
			failures = append(failures, r.Name+": "+r.Message)
		} else if r.Status == StatusWarn {
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}

	if len(failures) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d error(s):\n", len(failures))
		for _, f := range failures {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", f)
		}
	}

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d warning(s):\n", len(warnings))
		for _, w := range warnings {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", w)
		}
	}
}

// CheckConfig loads and validates the layered configuration rooted at
// root. A broken .riptide.yaml or RIPTIDE_* override fails the check.
func (c *Checker) CheckConfig(root string) CheckResult {
	_, result := c.loadConfig(root)
	return result
}

// loadConfig loads the config for RunAll, reporting the outcome as a
// check result. On failure the defaults are returned so the remaining
// checks still have something sensible to probe.
func (c *Checker) loadConfig(root string) (*config.Config, CheckResult) {
	result := CheckResult{
		Name:     "config",
		Required: true,
	}

	cfg, err := config.Load(root)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		result.Details = "Fix .riptide.yaml (or the user config / RIPTIDE_* overrides) and re-run"
		return config.NewConfig(), result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("valid (data_dir: %s, embeddings: %s)",
		cfg.DataDir, cfg.Embeddings.Provider)
	return cfg, result
}

// CheckDataDir checks that the resolved data directory is writable, or
// can be created when it does not exist yet.
func (c *Checker) CheckDataDir(dataDir string) CheckResult {
	result := CheckResult{
		Name:     "data_dir",
		Required: true,
	}

	info, err := os.Stat(dataDir)
	switch {
	case err == nil && !info.IsDir():
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s exists but is not a directory", dataDir)
		return result

	case os.IsNotExist(err):
		// Not created until the first index; probe the nearest existing
		// ancestor instead.
		if werr := probeWrite(nearestExistingDir(dataDir)); werr != nil {
			result.Status = StatusFail
			result.Message = fmt.Sprintf("cannot create %s: %v", dataDir, werr)
			return result
		}
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s (created on first index)", dataDir)
		return result

	case err != nil:
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot stat %s: %v", dataDir, err)
		return result
	}

	if werr := probeWrite(dataDir); werr != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", werr)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s is writable", dataDir)
	return result
}

// probeWrite verifies dir accepts new files by creating and removing a
// scratch file.
func probeWrite(dir string) error {
	probe := filepath.Join(dir, ".riptide-preflight")
	f, err := os.Create(probe)
	if err != nil {
		return err
	}
	_ = f.Close()
	return os.Remove(probe)
}
